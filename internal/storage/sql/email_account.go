package sql

import (
	"mailhost/backend/internal/domain"
)

// SaveEmailAccount 保存邮箱，地址唯一冲突映射为 ErrDuplicate
func (s *Store) SaveEmailAccount(a *domain.EmailAccount) error {
	return translateError(s.db.Save(a).Error)
}

// GetEmailAccount 根据 ID 获取邮箱
func (s *Store) GetEmailAccount(id string) (*domain.EmailAccount, error) {
	var a domain.EmailAccount
	if err := s.db.First(&a, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &a, nil
}

// GetEmailAccountByAddress 根据地址获取邮箱
func (s *Store) GetEmailAccountByAddress(address string) (*domain.EmailAccount, error) {
	var a domain.EmailAccount
	if err := s.db.First(&a, "address = ?", address).Error; err != nil {
		return nil, translateError(err)
	}
	return &a, nil
}

// ListEmailAccountsByOwner 获取用户的全部邮箱
func (s *Store) ListEmailAccountsByOwner(ownerID string) ([]*domain.EmailAccount, error) {
	var result []*domain.EmailAccount
	err := s.db.Where("owner_id = ?", ownerID).Order("created_at asc").Find(&result).Error
	if err != nil {
		return nil, translateError(err)
	}
	return result, nil
}

// ListEmailAccountsByState 按开通状态筛选邮箱
func (s *Store) ListEmailAccountsByState(state domain.ProvisionState) ([]*domain.EmailAccount, error) {
	var result []*domain.EmailAccount
	err := s.db.Where("state = ?", state).Order("created_at asc").Find(&result).Error
	if err != nil {
		return nil, translateError(err)
	}
	return result, nil
}

// CountEmailAccountsByOwner 统计用户的邮箱数量
func (s *Store) CountEmailAccountsByOwner(ownerID string) (int, error) {
	var count int64
	err := s.db.Model(&domain.EmailAccount{}).Where("owner_id = ?", ownerID).Count(&count).Error
	if err != nil {
		return 0, translateError(err)
	}
	return int(count), nil
}

// CountEmailAccountsByDomain 统计域名下的邮箱数量
func (s *Store) CountEmailAccountsByDomain(domainID string) (int, error) {
	var count int64
	err := s.db.Model(&domain.EmailAccount{}).Where("domain_id = ?", domainID).Count(&count).Error
	if err != nil {
		return 0, translateError(err)
	}
	return int(count), nil
}

// SumStorageUsedByOwner 汇总用户全部邮箱的已用存储（GB）
func (s *Store) SumStorageUsedByOwner(ownerID string) (float64, error) {
	var total float64
	err := s.db.Model(&domain.EmailAccount{}).
		Where("owner_id = ?", ownerID).
		Select("COALESCE(SUM(storage_used_gb), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, translateError(err)
	}
	return total, nil
}

// DeleteEmailAccount 删除邮箱及其全部邮件
func (s *Store) DeleteEmailAccount(id string) error {
	if err := s.db.Delete(&domain.Message{}, "account_id = ?", id).Error; err != nil {
		return translateError(err)
	}
	result := s.db.Delete(&domain.EmailAccount{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
