package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailhost/backend/internal/domain"
	"mailhost/backend/internal/storage/memory"
)

func TestQuotaAutoEnroll(t *testing.T) {
	store := memory.NewStore()
	quota := NewQuotaService(store, nil, nil)
	ctx := context.Background()

	t.Run("无订阅用户自动登记免费套餐", func(t *testing.T) {
		limits, err := quota.GetLimits(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, domain.FreePlanName, limits.PlanName)
		assert.Equal(t, 1, limits.MaxMailboxes)
		assert.Equal(t, 1, limits.MaxDomains)
		assert.InDelta(t, 1.0, limits.MaxStorageGB, 0.001)

		sub, err := store.GetActiveSubscription("u1")
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionActive, sub.Status)
	})

	t.Run("重复检查不产生第二个订阅或套餐", func(t *testing.T) {
		_, err := quota.GetLimits(ctx, "u1")
		require.NoError(t, err)

		_, err = quota.GetLimits(ctx, "u2")
		require.NoError(t, err)

		// 免费套餐只有一份
		plan, err := store.GetPlanByName(domain.FreePlanName)
		require.NoError(t, err)
		dup := domain.DefaultFreePlan()
		dup.ID = "another"
		assert.ErrorIs(t, store.SavePlan(dup), domain.ErrDuplicate)
		_ = plan
	})
}

func TestQuotaConcurrentEnroll(t *testing.T) {
	store := memory.NewStore()
	quota := NewQuotaService(store, nil, nil)
	ctx := context.Background()

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			limits, err := quota.GetLimits(ctx, "u1")
			if assert.NoError(t, err) {
				assert.Equal(t, domain.FreePlanName, limits.PlanName)
			}
		}()
	}
	close(start)
	wg.Wait()

	// 只能存在一个有效订阅，再登记一个必须被存储层拒绝
	sub, err := store.GetActiveSubscription("u1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionActive, sub.Status)
	assert.ErrorIs(t, store.SaveSubscription(&domain.Subscription{
		ID: "extra", UserID: "u1", PlanID: sub.PlanID, Status: domain.SubscriptionActive,
	}), domain.ErrDuplicate)
}

func TestQuotaLiveCounting(t *testing.T) {
	store := memory.NewStore()
	quota := NewQuotaService(store, nil, nil)
	ctx := context.Background()

	t.Run("达到上限后拒绝", func(t *testing.T) {
		decision, err := quota.CanCreateMailbox(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)

		require.NoError(t, store.SaveEmailAccount(&domain.EmailAccount{
			ID: "a1", Address: "a@x.com", OwnerID: "u1", StorageUsedGB: 0.4,
		}))

		decision, err = quota.CanCreateMailbox(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Contains(t, decision.Reason, "mailbox limit reached")
	})

	t.Run("删除后立即恢复额度", func(t *testing.T) {
		require.NoError(t, store.DeleteEmailAccount("a1"))

		decision, err := quota.CanCreateMailbox(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("域名配额独立计数", func(t *testing.T) {
		require.NoError(t, store.SaveMailDomain(&domain.MailDomain{ID: "d1", Name: "x.com", OwnerID: "u1"}))

		decision, err := quota.CanCreateDomain(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, decision.Allowed)

		// 域名满了不影响邮箱
		decision, err = quota.CanCreateMailbox(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	})

	t.Run("存储用量实时汇总", func(t *testing.T) {
		require.NoError(t, store.SaveEmailAccount(&domain.EmailAccount{
			ID: "a2", Address: "b@x.com", OwnerID: "u1", StorageUsedGB: 0.7,
		}))

		limits, err := quota.GetLimits(ctx, "u1")
		require.NoError(t, err)
		assert.InDelta(t, 0.7, limits.UsedStorageGB, 0.001)
	})
}

func TestQuotaUnlimitedPlan(t *testing.T) {
	store := memory.NewStore()
	quota := NewQuotaService(store, nil, nil)
	ctx := context.Background()

	// 上限 -1 表示不限制
	plan := &domain.SubscriptionPlan{ID: "p-unlimited", Name: "enterprise", MaxMailboxes: -1, MaxDomains: -1, MaxStorageGB: 100, IsActive: true}
	require.NoError(t, store.SavePlan(plan))
	require.NoError(t, store.SaveSubscription(&domain.Subscription{ID: "s1", UserID: "u1", PlanID: "p-unlimited", Status: domain.SubscriptionActive}))

	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveEmailAccount(&domain.EmailAccount{
			ID: string(rune('a'+i)) + "-acct", Address: string(rune('a'+i)) + "@x.com", OwnerID: "u1",
		}))
	}

	decision, err := quota.CanCreateMailbox(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}
