package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailhost/backend/internal/domain"
	"mailhost/backend/internal/storage/redis"
)

// ErrQuotaExceeded 资源数量达到套餐上限
var ErrQuotaExceeded = errors.New("quota limit reached")

// QuotaLimits 套餐上限与实时用量
type QuotaLimits struct {
	PlanName      string  `json:"planName"`
	MaxMailboxes  int     `json:"maxMailboxes"`
	MaxDomains    int     `json:"maxDomains"`
	MaxStorageGB  float64 `json:"maxStorageGb"`
	UsedMailboxes int     `json:"usedMailboxes"`
	UsedDomains   int     `json:"usedDomains"`
	UsedStorageGB float64 `json:"usedStorageGb"`
}

// QuotaDecision 配额检查结论
type QuotaDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// QuotaService 配额守卫
//
// 用量全部实时统计，不维护计数缓存。检查本身不持锁：
// 两个并发请求可能同时通过并超限一个单位，这是已接受的竞态。
// Redis 锁只保证免费套餐自动登记的幂等，不保证 check-then-create 原子性。
type QuotaService struct {
	store  domain.Store
	locks  *redis.Client
	logger *zap.Logger
}

// NewQuotaService 创建配额守卫
func NewQuotaService(store domain.Store, locks *redis.Client, logger *zap.Logger) *QuotaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuotaService{store: store, locks: locks, logger: logger}
}

// GetLimits 返回用户套餐上限与实时用量
//
// 没有有效订阅的用户先被自动登记到免费套餐，不会失败关闭。
func (s *QuotaService) GetLimits(ctx context.Context, userID string) (*QuotaLimits, error) {
	plan, err := s.ensureSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	usedMailboxes, err := s.store.CountEmailAccountsByOwner(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count mailboxes: %w", err)
	}
	usedDomains, err := s.store.CountMailDomainsByOwner(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count domains: %w", err)
	}
	usedStorage, err := s.store.SumStorageUsedByOwner(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum storage usage: %w", err)
	}

	return &QuotaLimits{
		PlanName:      plan.Name,
		MaxMailboxes:  plan.MaxMailboxes,
		MaxDomains:    plan.MaxDomains,
		MaxStorageGB:  plan.MaxStorageGB,
		UsedMailboxes: usedMailboxes,
		UsedDomains:   usedDomains,
		UsedStorageGB: usedStorage,
	}, nil
}

// CanCreateMailbox 判断用户能否再创建一个邮箱
func (s *QuotaService) CanCreateMailbox(ctx context.Context, userID string) (*QuotaDecision, error) {
	limits, err := s.GetLimits(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limits.MaxMailboxes >= 0 && limits.UsedMailboxes >= limits.MaxMailboxes {
		return &QuotaDecision{
			Allowed: false,
			Reason:  fmt.Sprintf("mailbox limit reached (%d/%d)", limits.UsedMailboxes, limits.MaxMailboxes),
		}, nil
	}
	return &QuotaDecision{Allowed: true}, nil
}

// CanCreateDomain 判断用户能否再添加一个域名
func (s *QuotaService) CanCreateDomain(ctx context.Context, userID string) (*QuotaDecision, error) {
	limits, err := s.GetLimits(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limits.MaxDomains >= 0 && limits.UsedDomains >= limits.MaxDomains {
		return &QuotaDecision{
			Allowed: false,
			Reason:  fmt.Sprintf("domain limit reached (%d/%d)", limits.UsedDomains, limits.MaxDomains),
		}, nil
	}
	return &QuotaDecision{Allowed: true}, nil
}

// ensureSubscription 返回用户有效订阅对应的套餐，没有订阅时自动登记免费套餐
//
// 幂等性由两层保证：Redis SETNX 锁挡住跨进程的并发登记，
// 存储层拒绝同一用户的第二个有效订阅，撞到冲突时重读即可。
func (s *QuotaService) ensureSubscription(ctx context.Context, userID string) (*domain.SubscriptionPlan, error) {
	sub, err := s.store.GetActiveSubscription(userID)
	if err == nil {
		plan, perr := s.store.GetPlan(sub.PlanID)
		if perr != nil {
			return nil, fmt.Errorf("failed to load plan: %w", perr)
		}
		return plan, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	lockKey := "quota:enroll:" + userID
	if s.locks.AcquireLock(ctx, lockKey, 10*time.Second) {
		defer s.locks.ReleaseLock(ctx, lockKey)
	} else {
		// 另一个请求正在登记，稍等后重读
		time.Sleep(100 * time.Millisecond)
		if sub, err := s.store.GetActiveSubscription(userID); err == nil {
			return s.store.GetPlan(sub.PlanID)
		}
	}

	plan, err := s.ensureFreePlan()
	if err != nil {
		return nil, err
	}

	// 拿锁后再查一次，避免重复登记
	if sub, err := s.store.GetActiveSubscription(userID); err == nil {
		return s.store.GetPlan(sub.PlanID)
	}

	if err := s.store.SaveSubscription(&domain.Subscription{
		ID:        uuid.NewString(),
		UserID:    userID,
		PlanID:    plan.ID,
		Status:    domain.SubscriptionActive,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		// 并发登记撞了有效订阅唯一性，重读即可
		if errors.Is(err, domain.ErrDuplicate) {
			if sub, rerr := s.store.GetActiveSubscription(userID); rerr == nil {
				return s.store.GetPlan(sub.PlanID)
			}
		}
		return nil, fmt.Errorf("failed to enroll user into free plan: %w", err)
	}

	s.logger.Info("user auto-enrolled into free plan", zap.String("userID", userID))
	return plan, nil
}

// ensureFreePlan 确保规范的免费套餐存在
func (s *QuotaService) ensureFreePlan() (*domain.SubscriptionPlan, error) {
	plan, err := s.store.GetPlanByName(domain.FreePlanName)
	if err == nil {
		return plan, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to load free plan: %w", err)
	}

	fresh := domain.DefaultFreePlan()
	fresh.ID = uuid.NewString()
	fresh.CreatedAt = time.Now().UTC()

	if err := s.store.SavePlan(fresh); err != nil {
		// 并发创建撞了唯一索引，重读即可
		if errors.Is(err, domain.ErrDuplicate) {
			return s.store.GetPlanByName(domain.FreePlanName)
		}
		return nil, fmt.Errorf("failed to create free plan: %w", err)
	}
	return fresh, nil
}
