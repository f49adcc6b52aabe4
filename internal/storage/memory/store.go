package memory

import (
	"sort"
	"sync"

	"mailhost/backend/internal/domain"
)

// Store 使用内存保存全部数据，用于开发验证与单元测试。
type Store struct {
	mu sync.RWMutex

	domains      map[string]*domain.MailDomain // domainID -> domain
	byDomainName map[string]string             // name -> domainID

	accounts  map[string]*domain.EmailAccount // accountID -> account
	byAddress map[string]string               // address -> accountID

	messages map[string]map[string]*domain.Message // accountID -> messageID -> message

	plans         map[string]*domain.SubscriptionPlan // planID -> plan
	byPlanName    map[string]string                   // name -> planID
	subscriptions map[string]*domain.Subscription     // subscriptionID -> subscription

	users   map[string]*domain.User // userID -> user
	byEmail map[string]string       // email -> userID
}

// NewStore 创建内存存储实例。
func NewStore() *Store {
	return &Store{
		domains:       make(map[string]*domain.MailDomain),
		byDomainName:  make(map[string]string),
		accounts:      make(map[string]*domain.EmailAccount),
		byAddress:     make(map[string]string),
		messages:      make(map[string]map[string]*domain.Message),
		plans:         make(map[string]*domain.SubscriptionPlan),
		byPlanName:    make(map[string]string),
		subscriptions: make(map[string]*domain.Subscription),
		users:         make(map[string]*domain.User),
		byEmail:       make(map[string]string),
	}
}

// ---- MailDomainRepository ----

// SaveMailDomain 保存域名；名称唯一冲突时返回 ErrDuplicate。
func (s *Store) SaveMailDomain(d *domain.MailDomain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.byDomainName[d.Name]; ok && existingID != d.ID {
		return domain.ErrDuplicate
	}

	// 更名时清理旧索引
	if old, ok := s.domains[d.ID]; ok && old.Name != d.Name {
		delete(s.byDomainName, old.Name)
	}

	copied := *d
	s.domains[d.ID] = &copied
	s.byDomainName[d.Name] = d.ID
	return nil
}

// GetMailDomain 根据 ID 获取域名。
func (s *Store) GetMailDomain(id string) (*domain.MailDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.domains[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *d
	return &copied, nil
}

// GetMailDomainByName 根据名称获取域名。
func (s *Store) GetMailDomainByName(name string) (*domain.MailDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byDomainName[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *s.domains[id]
	return &copied, nil
}

// ListMailDomainsByOwner 获取用户拥有的全部域名。
func (s *Store) ListMailDomainsByOwner(ownerID string) ([]*domain.MailDomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MailDomain
	for _, d := range s.domains {
		if d.OwnerID == ownerID {
			copied := *d
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// CountMailDomainsByOwner 统计用户拥有的域名数量。
func (s *Store) CountMailDomainsByOwner(ownerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, d := range s.domains {
		if d.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

// DeleteMailDomain 删除域名。
func (s *Store) DeleteMailDomain(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.domains[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.byDomainName, d.Name)
	delete(s.domains, id)
	return nil
}

// ---- EmailAccountRepository ----

// SaveEmailAccount 保存邮箱；地址唯一冲突时返回 ErrDuplicate。
func (s *Store) SaveEmailAccount(a *domain.EmailAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.byAddress[a.Address]; ok && existingID != a.ID {
		return domain.ErrDuplicate
	}

	copied := *a
	s.accounts[a.ID] = &copied
	s.byAddress[a.Address] = a.ID
	return nil
}

// GetEmailAccount 根据 ID 获取邮箱。
func (s *Store) GetEmailAccount(id string) (*domain.EmailAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

// GetEmailAccountByAddress 根据地址获取邮箱。
func (s *Store) GetEmailAccountByAddress(address string) (*domain.EmailAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byAddress[address]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *s.accounts[id]
	return &copied, nil
}

// ListEmailAccountsByOwner 获取用户的全部邮箱。
func (s *Store) ListEmailAccountsByOwner(ownerID string) ([]*domain.EmailAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EmailAccount
	for _, a := range s.accounts {
		if a.OwnerID == ownerID {
			copied := *a
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// ListEmailAccountsByState 按开通状态筛选邮箱。
func (s *Store) ListEmailAccountsByState(state domain.ProvisionState) ([]*domain.EmailAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EmailAccount
	for _, a := range s.accounts {
		if a.State == state {
			copied := *a
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// CountEmailAccountsByOwner 统计用户的邮箱数量。
func (s *Store) CountEmailAccountsByOwner(ownerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, a := range s.accounts {
		if a.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

// CountEmailAccountsByDomain 统计域名下的邮箱数量。
func (s *Store) CountEmailAccountsByDomain(domainID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, a := range s.accounts {
		if a.DomainID == domainID {
			count++
		}
	}
	return count, nil
}

// SumStorageUsedByOwner 汇总用户全部邮箱的已用存储。
func (s *Store) SumStorageUsedByOwner(ownerID string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0.0
	for _, a := range s.accounts {
		if a.OwnerID == ownerID {
			total += a.StorageUsedGB
		}
	}
	return total, nil
}

// DeleteEmailAccount 删除邮箱及其全部邮件。
func (s *Store) DeleteEmailAccount(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.byAddress, a.Address)
	delete(s.accounts, id)
	delete(s.messages, id)
	return nil
}

// ---- MessageRepository ----

// SaveMessage 保存邮件。
//
// 新插入的邮件撞上同邮箱内已有的外部标识（或无外部标识时撞上指纹）
// 返回 ErrDuplicate；空值不参与去重，更新已有邮件不受影响。
func (s *Store) SaveMessage(m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	box, ok := s.messages[m.AccountID]
	if !ok {
		box = make(map[string]*domain.Message)
		s.messages[m.AccountID] = box
	}
	if _, exists := box[m.ID]; !exists {
		for _, existing := range box {
			if m.ProviderMessageID != "" && existing.ProviderMessageID == m.ProviderMessageID {
				return domain.ErrDuplicate
			}
			if m.ProviderMessageID == "" && m.Fingerprint != "" && existing.Fingerprint == m.Fingerprint {
				return domain.ErrDuplicate
			}
		}
	}
	copied := *m
	box[m.ID] = &copied
	return nil
}

// GetMessage 获取指定邮箱下的单封邮件。
func (s *Store) GetMessage(accountID, messageID string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[accountID][messageID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

// ListMessages 按方向列出邮件，接收时间倒序。
func (s *Store) ListMessages(accountID string, direction domain.Direction) ([]*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Message
	for _, m := range s.messages[accountID] {
		if m.Direction == direction {
			copied := *m
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ReceivedAt.After(result[j].ReceivedAt) })
	return result, nil
}

// FindMessageByProviderID 按外部标识查找邮件。
func (s *Store) FindMessageByProviderID(accountID, providerMessageID string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.messages[accountID] {
		if m.ProviderMessageID == providerMessageID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

// FindMessageByFingerprint 按去重指纹查找邮件。
func (s *Store) FindMessageByFingerprint(accountID, fingerprint string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.messages[accountID] {
		if m.Fingerprint == fingerprint {
			copied := *m
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

// DeleteMessage 物理删除邮件。
func (s *Store) DeleteMessage(accountID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[accountID][messageID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.messages[accountID], messageID)
	return nil
}

// ---- PlanRepository ----

// SavePlan 保存套餐；名称唯一冲突时返回 ErrDuplicate。
func (s *Store) SavePlan(p *domain.SubscriptionPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.byPlanName[p.Name]; ok && existingID != p.ID {
		return domain.ErrDuplicate
	}

	copied := *p
	s.plans[p.ID] = &copied
	s.byPlanName[p.Name] = p.ID
	return nil
}

// GetPlanByName 按名称获取套餐。
func (s *Store) GetPlanByName(name string) (*domain.SubscriptionPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byPlanName[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *s.plans[id]
	return &copied, nil
}

// GetPlan 按 ID 获取套餐。
func (s *Store) GetPlan(id string) (*domain.SubscriptionPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

// SaveSubscription 保存订阅；同一用户已存在其他有效订阅时返回 ErrDuplicate。
func (s *Store) SaveSubscription(sub *domain.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.Status == domain.SubscriptionActive {
		for id, existing := range s.subscriptions {
			if id != sub.ID && existing.UserID == sub.UserID && existing.Status == domain.SubscriptionActive {
				return domain.ErrDuplicate
			}
		}
	}

	copied := *sub
	s.subscriptions[sub.ID] = &copied
	return nil
}

// GetActiveSubscription 获取用户当前有效订阅。
func (s *Store) GetActiveSubscription(userID string) (*domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subscriptions {
		if sub.UserID == userID && sub.Status == domain.SubscriptionActive {
			copied := *sub
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ---- UserRepository ----

// SaveUser 保存用户。
func (s *Store) SaveUser(u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingID, ok := s.byEmail[u.Email]; ok && existingID != u.ID {
		return domain.ErrDuplicate
	}

	copied := *u
	s.users[u.ID] = &copied
	s.byEmail[u.Email] = u.ID
	return nil
}

// GetUser 按 ID 获取用户。
func (s *Store) GetUser(id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

// GetUserByEmail 按邮箱获取用户。
func (s *Store) GetUserByEmail(email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *s.users[id]
	return &copied, nil
}

// ---- 生命周期 ----

// Close 实现 domain.Store，内存实现无需释放资源。
func (s *Store) Close() error {
	return nil
}

// Health 实现 domain.Store。
func (s *Store) Health() error {
	return nil
}
