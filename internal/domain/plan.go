package domain

import "time"

// FreePlanName 免费套餐的规范名称
//
// 没有有效订阅的用户在首次配额检查时被自动登记到该套餐，
// "无套餐" 与 "免费套餐" 对外不可区分。
const FreePlanName = "free"

// SubscriptionPlan 订阅套餐及其资源上限
//
// 对本子系统而言是只读数据，上限字段 -1 表示不限制。
type SubscriptionPlan struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name         string    `json:"name" gorm:"uniqueIndex;type:varchar(50);not null"`
	MaxMailboxes int       `json:"maxMailboxes" gorm:"default:1"`
	MaxDomains   int       `json:"maxDomains" gorm:"default:1"`
	MaxStorageGB float64   `json:"maxStorageGb" gorm:"type:decimal(10,2);default:1"`
	PriceMonthly float64   `json:"priceMonthly" gorm:"type:decimal(10,2);default:0"`
	IsActive     bool      `json:"isActive" gorm:"default:true"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DefaultFreePlan 返回免费套餐的规范定义
func DefaultFreePlan() *SubscriptionPlan {
	return &SubscriptionPlan{
		Name:         FreePlanName,
		MaxMailboxes: 1,
		MaxDomains:   1,
		MaxStorageGB: 1,
		PriceMonthly: 0,
		IsActive:     true,
	}
}

// SubscriptionStatus 订阅状态
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription 用户与套餐的关联
type Subscription struct {
	ID        string             `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string             `json:"userId" gorm:"type:varchar(36);index;not null"`
	PlanID    string             `json:"planId" gorm:"type:varchar(36);not null"`
	Status    SubscriptionStatus `json:"status" gorm:"type:varchar(20);default:'active';index"`
	CreatedAt time.Time          `json:"createdAt"`
}

// PlanRepository 套餐/订阅仓储接口
type PlanRepository interface {
	// SavePlan 保存套餐；name 唯一冲突时返回 ErrDuplicate
	SavePlan(p *SubscriptionPlan) error

	// GetPlanByName 按名称获取套餐
	GetPlanByName(name string) (*SubscriptionPlan, error)

	// GetPlan 按 ID 获取套餐
	GetPlan(id string) (*SubscriptionPlan, error)

	// SaveSubscription 保存订阅；同一用户已存在其他有效订阅时返回 ErrDuplicate
	SaveSubscription(s *Subscription) error

	// GetActiveSubscription 获取用户当前有效订阅
	GetActiveSubscription(userID string) (*Subscription, error)
}
