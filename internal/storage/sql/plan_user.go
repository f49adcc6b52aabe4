package sql

import (
	"gorm.io/gorm"

	"mailhost/backend/internal/domain"
)

// SavePlan 保存套餐，名称唯一冲突映射为 ErrDuplicate
func (s *Store) SavePlan(p *domain.SubscriptionPlan) error {
	return translateError(s.db.Save(p).Error)
}

// GetPlanByName 按名称获取套餐
func (s *Store) GetPlanByName(name string) (*domain.SubscriptionPlan, error) {
	var p domain.SubscriptionPlan
	if err := s.db.First(&p, "name = ?", name).Error; err != nil {
		return nil, translateError(err)
	}
	return &p, nil
}

// GetPlan 按 ID 获取套餐
func (s *Store) GetPlan(id string) (*domain.SubscriptionPlan, error) {
	var p domain.SubscriptionPlan
	if err := s.db.First(&p, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &p, nil
}

// SaveSubscription 保存订阅；同一用户已存在其他有效订阅时返回 ErrDuplicate
//
// 取消态的订阅可以并存，不能用 user_id+status 的普通唯一索引表达，
// 改在事务里做有效订阅的唯一性检查。
func (s *Store) SaveSubscription(sub *domain.Subscription) error {
	if sub.Status != domain.SubscriptionActive {
		return translateError(s.db.Save(sub).Error)
	}
	return translateError(s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&domain.Subscription{}).
			Where("user_id = ? AND status = ? AND id <> ?", sub.UserID, domain.SubscriptionActive, sub.ID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrDuplicate
		}
		return tx.Save(sub).Error
	}))
}

// GetActiveSubscription 获取用户当前有效订阅
func (s *Store) GetActiveSubscription(userID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := s.db.First(&sub, "user_id = ? AND status = ?", userID, domain.SubscriptionActive).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &sub, nil
}

// SaveUser 保存用户
func (s *Store) SaveUser(u *domain.User) error {
	return translateError(s.db.Save(u).Error)
}

// GetUser 按 ID 获取用户
func (s *Store) GetUser(id string) (*domain.User, error) {
	var u domain.User
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &u, nil
}

// GetUserByEmail 按邮箱获取用户
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	var u domain.User
	if err := s.db.First(&u, "email = ?", email).Error; err != nil {
		return nil, translateError(err)
	}
	return &u, nil
}
