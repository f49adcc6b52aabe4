package sql

import (
	"gorm.io/gorm"

	"mailhost/backend/internal/domain"
)

// SaveMessage 保存邮件
//
// 发出的邮件外部标识与指纹都可能为空，空字符串不能进唯一索引，
// 去重改在事务里检查：新邮件撞上同邮箱内已有的外部标识
// （或无外部标识时撞上指纹）返回 ErrDuplicate。
func (s *Store) SaveMessage(m *domain.Message) error {
	if m.ProviderMessageID == "" && m.Fingerprint == "" {
		return translateError(s.db.Save(m).Error)
	}
	return translateError(s.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&domain.Message{}).Where("account_id = ? AND id <> ?", m.AccountID, m.ID)
		if m.ProviderMessageID != "" {
			query = query.Where("provider_message_id = ?", m.ProviderMessageID)
		} else {
			query = query.Where("fingerprint = ?", m.Fingerprint)
		}

		var count int64
		if err := query.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrDuplicate
		}
		return tx.Save(m).Error
	}))
}

// GetMessage 获取指定邮箱下的单封邮件
func (s *Store) GetMessage(accountID, messageID string) (*domain.Message, error) {
	var m domain.Message
	err := s.db.First(&m, "account_id = ? AND id = ?", accountID, messageID).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &m, nil
}

// ListMessages 按方向列出邮件，接收时间倒序
func (s *Store) ListMessages(accountID string, direction domain.Direction) ([]*domain.Message, error) {
	var result []*domain.Message
	err := s.db.Where("account_id = ? AND direction = ?", accountID, direction).
		Order("received_at desc").
		Find(&result).Error
	if err != nil {
		return nil, translateError(err)
	}
	return result, nil
}

// FindMessageByProviderID 按外部标识查找邮件
func (s *Store) FindMessageByProviderID(accountID, providerMessageID string) (*domain.Message, error) {
	var m domain.Message
	err := s.db.First(&m, "account_id = ? AND provider_message_id = ?", accountID, providerMessageID).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &m, nil
}

// FindMessageByFingerprint 按去重指纹查找邮件
func (s *Store) FindMessageByFingerprint(accountID, fingerprint string) (*domain.Message, error) {
	var m domain.Message
	err := s.db.First(&m, "account_id = ? AND fingerprint = ?", accountID, fingerprint).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &m, nil
}

// DeleteMessage 物理删除邮件
func (s *Store) DeleteMessage(accountID, messageID string) error {
	result := s.db.Delete(&domain.Message{}, "account_id = ? AND id = ?", accountID, messageID)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
