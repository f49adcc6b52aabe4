package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 彩色输出和详细堆栈
	File        string // 日志文件路径，为空只输出到控制台
}

// DatabaseConfig 定义数据库连接配置（支持 MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type            string        // 数据库类型: "mysql" 或 "postgres"，为空使用内存存储
	DSN             string        // 数据库连接字符串
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 缓存服务配置（可选）
type RedisConfig struct {
	Address  string // Redis 服务地址，为空禁用 Redis
	Password string // Redis 认证密码
	DB       int    // Redis 数据库编号
}

// JWTConfig 定义 JWT 认证相关配置
type JWTConfig struct {
	Secret        string        // JWT 签名密钥，必须至少 32 字符
	Issuer        string        // JWT 签发者标识
	AccessExpiry  time.Duration // 访问令牌有效期，默认 15 分钟
	RefreshExpiry time.Duration // 刷新令牌有效期，默认 7 天
}

// DeliveryConfig 定义全局发信兜底配置
//
// 投递路由的最后两级解析来源：先尝试全局 SMTP，再尝试全局 SendGrid。
// 配置在进程启动时读取一次并注入路由器，业务逻辑不读环境变量。
type DeliveryConfig struct {
	SMTPHost     string // 全局 SMTP 主机
	SMTPPort     int    // 全局 SMTP 端口，默认 587
	SMTPUser     string // 全局 SMTP 用户
	SMTPPassword string // 全局 SMTP 密码
	SendGridKey  string // 全局 SendGrid API Key（最后兜底）
}

// ProvisionConfig 定义邮件服务器管理 API 配置
type ProvisionConfig struct {
	BaseURL  string        // 管理 API 地址，为空禁用外部开通（邮箱以 local_only 创建）
	APIKey   string        // 管理 API 密钥
	SMTPHost string        // 开通成功后下发给邮箱的 SMTP 主机
	SMTPPort int           // 开通成功后下发给邮箱的 SMTP 端口，默认 587
	Timeout  time.Duration // 单次管理 API 调用超时，默认 10s
}

// SyncConfig 定义收信同步配置
type SyncConfig struct {
	IMAPPort    int           // 远端 IMAP 端口，默认 993
	Timeout     time.Duration // 单次同步会话超时，默认 30s
	FetchWindow uint32        // 每次同步抓取 INBOX 尾部的邮件数量，默认 50
	Background  bool          // 是否启用后台周期同步（默认关闭，可选运维工具）
	Interval    time.Duration // 后台同步间隔，默认 10 分钟
	Workers     int           // 后台同步并发数，默认 4
}

// SecurityConfig 定义凭据加密配置
type SecurityConfig struct {
	CredentialKey string // 凭据静态加密密钥（64 位 hex = 32 字节），为空则明文存储并告警
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server    ServerConfig
	CORS      CORSConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Delivery  DeliveryConfig
	Provision ProvisionConfig
	Sync      SyncConfig
	Security  SecurityConfig
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（前缀 MAILHOST_，如 MAILHOST_SERVER_PORT）
//  2. .env 文件（如果存在）
//  3. 默认值
func Load() (*Config, error) {
	loadEnvFile()

	viper.SetEnvPrefix("mailhost")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.file", "")
	viper.SetDefault("database.type", "") // 默认为空，使用内存存储
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.address", "")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.issuer", "mailhost")
	viper.SetDefault("jwt.access_expiry", "15m")
	viper.SetDefault("jwt.refresh_expiry", "168h")
	viper.SetDefault("delivery.smtp_host", "")
	viper.SetDefault("delivery.smtp_port", 587)
	viper.SetDefault("delivery.smtp_user", "")
	viper.SetDefault("delivery.smtp_password", "")
	viper.SetDefault("delivery.sendgrid_key", "")
	viper.SetDefault("provision.base_url", "")
	viper.SetDefault("provision.api_key", "")
	viper.SetDefault("provision.smtp_host", "")
	viper.SetDefault("provision.smtp_port", 587)
	viper.SetDefault("provision.timeout", "10s")
	viper.SetDefault("sync.imap_port", 993)
	viper.SetDefault("sync.timeout", "30s")
	viper.SetDefault("sync.fetch_window", 50)
	viper.SetDefault("sync.background", false)
	viper.SetDefault("sync.interval", "10m")
	viper.SetDefault("sync.workers", 4)
	viper.SetDefault("security.credential_key", "")

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	jwtSecret := viper.GetString("jwt.secret")
	if jwtSecret == "change-me-in-production" {
		return nil, fmt.Errorf("SECURITY ERROR: JWT secret cannot be the default value. Please set MAILHOST_JWT_SECRET")
	}
	if len(jwtSecret) < 32 {
		return nil, fmt.Errorf("SECURITY ERROR: JWT secret must be at least 32 characters long")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			File:        viper.GetString("log.file"),
		},
		Database: DatabaseConfig{
			Type:            viper.GetString("database.type"),
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: durationOr("database.conn_max_lifetime", 5*time.Minute),
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:        jwtSecret,
			Issuer:        viper.GetString("jwt.issuer"),
			AccessExpiry:  durationOr("jwt.access_expiry", 15*time.Minute),
			RefreshExpiry: durationOr("jwt.refresh_expiry", 168*time.Hour),
		},
		Delivery: DeliveryConfig{
			SMTPHost:     viper.GetString("delivery.smtp_host"),
			SMTPPort:     viper.GetInt("delivery.smtp_port"),
			SMTPUser:     viper.GetString("delivery.smtp_user"),
			SMTPPassword: viper.GetString("delivery.smtp_password"),
			SendGridKey:  viper.GetString("delivery.sendgrid_key"),
		},
		Provision: ProvisionConfig{
			BaseURL:  viper.GetString("provision.base_url"),
			APIKey:   viper.GetString("provision.api_key"),
			SMTPHost: viper.GetString("provision.smtp_host"),
			SMTPPort: viper.GetInt("provision.smtp_port"),
			Timeout:  durationOr("provision.timeout", 10*time.Second),
		},
		Sync: SyncConfig{
			IMAPPort:    viper.GetInt("sync.imap_port"),
			Timeout:     durationOr("sync.timeout", 30*time.Second),
			FetchWindow: viper.GetUint32("sync.fetch_window"),
			Background:  viper.GetBool("sync.background"),
			Interval:    durationOr("sync.interval", 10*time.Minute),
			Workers:     viper.GetInt("sync.workers"),
		},
		Security: SecurityConfig{
			CredentialKey: viper.GetString("security.credential_key"),
		},
	}

	if cfg.Sync.FetchWindow == 0 {
		cfg.Sync.FetchWindow = 50
	}
	if cfg.Sync.Workers <= 0 {
		cfg.Sync.Workers = 4
	}

	return cfg, nil
}

// durationOr 解析时长配置，非法时回退默认值
func durationOr(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		return fallback
	}
	return d
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件（可选，静默失败）
//
// 已存在的环境变量优先级更高，不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
