package monitoring

import (
	"context"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"mailhost/backend/internal/domain"
	"mailhost/backend/internal/storage/redis"
)

// NewHealthHandler 创建健康检查处理器
//
// 存活检查只看进程自身；就绪检查依赖存储连通性。
// Redis 是可选组件，不可用时只降级不拒绝流量。
func NewHealthHandler(store domain.Store, cache *redis.Client, logger *zap.Logger) healthcheck.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	health := healthcheck.NewHandler()

	health.AddLivenessCheck("goroutine-count", healthcheck.GoroutineCountCheck(1000))

	health.AddReadinessCheck("store", func() error {
		if err := store.Health(); err != nil {
			logger.Warn("store readiness check failed", zap.Error(err))
			return err
		}
		return nil
	})

	if cache != nil {
		health.AddLivenessCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return cache.Ping(ctx)
		})
	}

	return health
}
