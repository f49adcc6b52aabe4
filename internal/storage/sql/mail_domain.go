package sql

import (
	"mailhost/backend/internal/domain"
)

// SaveMailDomain 保存域名，唯一索引冲突映射为 ErrDuplicate
func (s *Store) SaveMailDomain(d *domain.MailDomain) error {
	return translateError(s.db.Save(d).Error)
}

// GetMailDomain 根据 ID 获取域名
func (s *Store) GetMailDomain(id string) (*domain.MailDomain, error) {
	var d domain.MailDomain
	if err := s.db.First(&d, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &d, nil
}

// GetMailDomainByName 根据名称获取域名
func (s *Store) GetMailDomainByName(name string) (*domain.MailDomain, error) {
	var d domain.MailDomain
	if err := s.db.First(&d, "name = ?", name).Error; err != nil {
		return nil, translateError(err)
	}
	return &d, nil
}

// ListMailDomainsByOwner 获取用户拥有的全部域名
func (s *Store) ListMailDomainsByOwner(ownerID string) ([]*domain.MailDomain, error) {
	var result []*domain.MailDomain
	err := s.db.Where("owner_id = ?", ownerID).Order("created_at asc").Find(&result).Error
	if err != nil {
		return nil, translateError(err)
	}
	return result, nil
}

// CountMailDomainsByOwner 统计用户拥有的域名数量
func (s *Store) CountMailDomainsByOwner(ownerID string) (int, error) {
	var count int64
	err := s.db.Model(&domain.MailDomain{}).Where("owner_id = ?", ownerID).Count(&count).Error
	if err != nil {
		return 0, translateError(err)
	}
	return int(count), nil
}

// DeleteMailDomain 删除域名
func (s *Store) DeleteMailDomain(id string) error {
	result := s.db.Delete(&domain.MailDomain{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
