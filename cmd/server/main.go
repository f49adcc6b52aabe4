package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	jwtpkg "mailhost/backend/internal/auth/jwt"
	"mailhost/backend/internal/config"
	"mailhost/backend/internal/delivery"
	"mailhost/backend/internal/dnscheck"
	"mailhost/backend/internal/domain"
	"mailhost/backend/internal/logger"
	"mailhost/backend/internal/mailsync"
	"mailhost/backend/internal/monitoring"
	"mailhost/backend/internal/pool"
	"mailhost/backend/internal/provision"
	"mailhost/backend/internal/security"
	"mailhost/backend/internal/service"
	"mailhost/backend/internal/storage/memory"
	redisstore "mailhost/backend/internal/storage/redis"
	sqlstore "mailhost/backend/internal/storage/sql"
	httptransport "mailhost/backend/internal/transport/http"
)

// main 启动邮件身份与投递开通服务
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("starting mailhost server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 存储层：配置了数据库用 SQL，否则内存（开发环境）
	var store domain.Store
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		sqlStore, err := sqlstore.NewStore(
			cfg.Database.Type,
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			log.Fatal("failed to initialize database storage", zap.Error(err))
		}
		store = sqlStore
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}
	defer store.Close()

	// Redis 可选：DNS 结果缓存与配额登记锁
	redisClient, err := redisstore.New(cfg.Redis, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	// 凭据静态加密；未配置密钥时明文存储并告警
	cipher, err := security.NewCredentialCipher(cfg.Security.CredentialKey)
	if err != nil {
		log.Fatal("invalid credential encryption key", zap.Error(err))
	}
	if cipher == nil {
		log.Warn("credential encryption key not set, sync credentials stored in plaintext")
	}

	// DNS 验证器；缓存只服务只读的 VerifyCached，不影响显式验证
	var dnsCache dnscheck.ResultCache
	if redisClient != nil {
		dnsCache = redisstore.NewDNSCache(redisClient)
	}
	verifier := dnscheck.NewVerifier(nil, dnsCache, log)

	// 外部开通器；未配置管理 API 时邮箱以 local_only 创建
	var provisioner provision.Provisioner
	if adminAPI := provision.NewAdminAPI(cfg.Provision, log); adminAPI != nil {
		provisioner = adminAPI
		log.Info("mail server provisioning enabled", zap.String("baseURL", cfg.Provision.BaseURL))
	} else {
		log.Warn("mail server provisioning not configured, accounts will be created local-only")
	}

	metrics := monitoring.NewMetrics()
	health := monitoring.NewHealthHandler(store, redisClient, log)

	router := delivery.NewRouter(store, delivery.DefaultResolvers(cfg.Delivery), cipher, log)
	syncer := mailsync.NewSyncer(store, cipher, cfg.Sync, cfg.Delivery.SMTPHost, log)

	quotaService := service.NewQuotaService(store, redisClient, log)
	domainService := service.NewDomainService(store, quotaService, verifier, cipher, metrics, log)
	accountService := service.NewAccountService(store, quotaService, provisioner, cipher, metrics, log)
	mailboxService := service.NewMailboxService(store, router, syncer, metrics, log)

	jwtManager := jwtpkg.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)

	engine := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:         cfg,
		DomainService:  domainService,
		AccountService: accountService,
		MailboxService: mailboxService,
		QuotaService:   quotaService,
		JWTManager:     jwtManager,
		Metrics:        metrics,
		Health:         health,
		Logger:         log,
	})

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 可选的后台收信同步
	if cfg.Sync.Background {
		workers := pool.NewWorkerPool(cfg.Sync.Workers, cfg.Sync.Workers*4, log)
		workers.Start(groupCtx)
		background := mailsync.NewBackgroundSyncer(store, syncer, workers, cfg.Sync.Interval, metrics, log)

		group.Go(func() error {
			background.Run(groupCtx)
			workers.Stop()
			return nil
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}
	log.Info("server exited cleanly")
}
