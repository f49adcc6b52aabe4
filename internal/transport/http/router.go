package httptransport

import (
	"strconv"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	jwtpkg "mailhost/backend/internal/auth/jwt"
	"mailhost/backend/internal/config"
	"mailhost/backend/internal/middleware"
	"mailhost/backend/internal/monitoring"
	"mailhost/backend/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config         *config.Config
	DomainService  *service.DomainService
	AccountService *service.AccountService
	MailboxService *service.MailboxService
	QuotaService   *service.QuotaService
	JWTManager     *jwtpkg.Manager
	Metrics        *monitoring.Metrics
	Health         healthcheck.Handler
	Logger         *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))
	if deps.Metrics != nil {
		router.Use(metricsMiddleware(deps.Metrics))
	}

	// CORS 配置
	allowedOrigins := deps.Config.CORS.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	corsConfig := gincors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// 允许所有来源时需清空凭证支持
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 健康检查与指标
	if deps.Health != nil {
		router.GET("/health", gin.WrapF(deps.Health.LiveEndpoint))
		router.GET("/health/live", gin.WrapF(deps.Health.LiveEndpoint))
		router.GET("/health/ready", gin.WrapF(deps.Health.ReadyEndpoint))
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	domainHandler := NewDomainHandler(deps.DomainService)
	accountHandler := NewAccountHandler(deps.AccountService)
	mailboxHandler := NewMailboxHandler(deps.MailboxService)
	quotaHandler := NewQuotaHandler(deps.QuotaService)

	jwtAuth := middleware.NewJWTAuth(deps.JWTManager, deps.Logger)
	sendRateLimit := middleware.NewRateLimiter(1, 5)

	v1 := router.Group("/v1")
	v1.Use(jwtAuth.RequireAuth())
	v1.Use(middleware.ValidateContentType("application/json"))
	{
		// ========== Domain Routes ==========
		domainRoutes := v1.Group("/domains")
		{
			domainRoutes.POST("", domainHandler.AddDomain)
			domainRoutes.GET("", domainHandler.ListDomains)
			domainRoutes.GET("/:id", domainHandler.GetDomain)
			domainRoutes.POST("/:id/verify", domainHandler.VerifyDomain)
			domainRoutes.GET("/:id/instructions", domainHandler.GetInstructions)
			domainRoutes.PUT("/:id/smtp", domainHandler.UpdateSMTPConfig)
			domainRoutes.DELETE("/:id", domainHandler.DeleteDomain)
		}

		// ========== Email Account Routes ==========
		accountRoutes := v1.Group("/email-accounts")
		{
			accountRoutes.POST("", accountHandler.CreateAccount)
			accountRoutes.GET("", accountHandler.ListAccounts)
			accountRoutes.GET("/:id", accountHandler.GetAccount)
			accountRoutes.DELETE("/:id", accountHandler.DeleteAccount)
			accountRoutes.POST("/:id/reprovision", accountHandler.ReprovisionAccount)
		}

		// ========== Mailbox Routes ==========
		mailboxRoutes := v1.Group("/mailbox")
		{
			mailboxRoutes.POST("/send",
				sendRateLimit.Handler(),
				middleware.BodySizeLimit(middleware.MailBodyLimit),
				mailboxHandler.Send)
			mailboxRoutes.GET("/inbox", mailboxHandler.Inbox)
			mailboxRoutes.GET("/sent", mailboxHandler.Sent)
			mailboxRoutes.PATCH("/messages/:id/flags", mailboxHandler.UpdateFlags)
			mailboxRoutes.DELETE("/messages/:id", mailboxHandler.DeleteMessage)
		}

		// ========== Quota Routes ==========
		v1.GET("/quota", quotaHandler.GetQuota)
	}

	return router
}

// metricsMiddleware 记录 HTTP 请求指标
func metricsMiddleware(metrics *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.RecordHTTPRequest(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}

// currentUserID 从认证中间件写入的上下文中取用户ID
func currentUserID(c *gin.Context) string {
	if v, exists := c.Get("userID"); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
