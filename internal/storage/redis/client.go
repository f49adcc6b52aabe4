package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mailhost/backend/internal/config"
)

// Client 封装 Redis 客户端
//
// Redis 在本系统中是可选依赖：DNS 结果缓存与自动登记锁。
// 未配置时所有调用方都必须能在 nil Client 下正常工作。
type Client struct {
	rdb *goredis.Client
	log *zap.Logger
}

// New 创建 Redis 客户端；cfg.Address 为空返回 (nil, nil)
func New(cfg config.RedisConfig, log *zap.Logger) (*Client, error) {
	if cfg.Address == "" {
		return nil, nil
	}
	if log == nil {
		log = zap.NewNop()
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("connected to Redis",
		zap.String("address", cfg.Address),
		zap.Int("db", cfg.DB),
	)

	return &Client{rdb: rdb, log: log}, nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

// Ping 测试 Redis 连接
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// AcquireLock 尝试用 SETNX 获取一把带过期时间的锁
//
// Redis 未配置时返回 true：锁只是幂等性的加强手段，
// 存储层的有效订阅唯一性仍然兜底。
func (c *Client) AcquireLock(ctx context.Context, key string, ttl time.Duration) bool {
	if c == nil {
		return true
	}
	ok, err := c.rdb.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		c.log.Warn("redis lock acquisition failed", zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}

// ReleaseLock 释放锁
func (c *Client) ReleaseLock(ctx context.Context, key string) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		c.log.Warn("redis lock release failed", zap.String("key", key), zap.Error(err))
	}
}
