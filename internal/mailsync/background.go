package mailsync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mailhost/backend/internal/domain"
	"mailhost/backend/internal/monitoring"
	"mailhost/backend/internal/pool"
)

// BackgroundSyncer 周期性同步所有已完全开通邮箱的收件箱
//
// 每轮把各邮箱的同步任务投给协程池，池满时跳过本轮剩余邮箱。
// 幂等去重由 Syncer 保证，跳过或重复一轮不会产生重复邮件。
type BackgroundSyncer struct {
	store    domain.Store
	syncer   *Syncer
	workers  *pool.WorkerPool
	interval time.Duration
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewBackgroundSyncer 创建后台同步器，metrics 可为 nil
func NewBackgroundSyncer(store domain.Store, syncer *Syncer, workers *pool.WorkerPool, interval time.Duration, metrics *monitoring.Metrics, logger *zap.Logger) *BackgroundSyncer {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackgroundSyncer{
		store:    store,
		syncer:   syncer,
		workers:  workers,
		interval: interval,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run 阻塞运行直到 ctx 取消
func (b *BackgroundSyncer) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.logger.Info("background sync started", zap.Duration("interval", b.interval))
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("background sync stopped")
			return
		case <-ticker.C:
			b.runOnce(ctx)
		}
	}
}

// runOnce 对所有已开通邮箱排一轮同步任务
func (b *BackgroundSyncer) runOnce(ctx context.Context) {
	accounts, err := b.store.ListEmailAccountsByState(domain.ProvisionFull)
	if err != nil {
		b.logger.Error("failed to list accounts for sync", zap.Error(err))
		return
	}

	submitted := 0
	for _, account := range accounts {
		account := account

		var mailDomain *domain.MailDomain
		if d, derr := b.store.GetMailDomain(account.DomainID); derr == nil {
			mailDomain = d
		}

		ok := b.workers.TrySubmit(func() {
			start := time.Now()
			result, serr := b.syncer.Sync(ctx, account, mailDomain)
			switch {
			case serr != nil:
				b.metrics.RecordSyncRun("error", 0, time.Since(start))
				b.logger.Warn("background sync failed",
					zap.String("address", account.Address), zap.Error(serr))
			case result.Skipped:
				b.metrics.RecordSyncRun("skipped", 0, time.Since(start))
			default:
				b.metrics.RecordSyncRun("ok", result.Fetched, time.Since(start))
			}
		})
		if !ok {
			b.logger.Warn("sync queue full, skipping rest of this round",
				zap.Int("submitted", submitted), zap.Int("total", len(accounts)))
			return
		}
		submitted++
	}

	if submitted > 0 {
		b.logger.Debug("sync round scheduled", zap.Int("accounts", submitted))
	}
}
