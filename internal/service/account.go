package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailhost/backend/internal/auth"
	"mailhost/backend/internal/domain"
	"mailhost/backend/internal/monitoring"
	"mailhost/backend/internal/provision"
	"mailhost/backend/internal/security"
)

var (
	// ErrAddressDomainMismatch 邮箱地址不属于指定域名
	ErrAddressDomainMismatch = errors.New("address does not belong to domain")
	// ErrNoSyncCredential 没有可用于重新开通的凭据
	ErrNoSyncCredential = errors.New("no stored credential available, provide a password")
)

// CreateAccountResult 邮箱创建结果
//
// 外部开通失败不致命：邮箱以 local_only 状态存在，SMTPError 记录原因。
type CreateAccountResult struct {
	Account        *domain.EmailAccount `json:"account"`
	SMTPConfigured bool                 `json:"smtpConfigured"`
	SMTPError      string               `json:"smtpError,omitempty"`
}

// AccountService 邮箱身份生命周期编排
//
// 创建顺序固定：配额检查 → 域名归属与后缀校验 → 本地落库（local_only）
// → 外部开通 → 回填连接参数（fully_provisioned）。
// 后半段失败不回滚前半段，保住用户选择的地址。
type AccountService struct {
	store       domain.Store
	quota       *QuotaService
	provisioner provision.Provisioner
	cipher      *security.CredentialCipher
	metrics     *monitoring.Metrics
	logger      *zap.Logger
}

// NewAccountService 创建邮箱服务；provisioner 为 nil 表示外部开通未启用，metrics 可为 nil
func NewAccountService(store domain.Store, quota *QuotaService, provisioner provision.Provisioner, cipher *security.CredentialCipher, metrics *monitoring.Metrics, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		store:       store,
		quota:       quota,
		provisioner: provisioner,
		cipher:      cipher,
		metrics:     metrics,
		logger:      logger,
	}
}

// CreateAccount 创建邮箱身份
func (s *AccountService) CreateAccount(ctx context.Context, ownerID, domainID, address, password string) (*CreateAccountResult, error) {
	decision, err := s.quota.CanCreateMailbox(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrQuotaExceeded, decision.Reason)
	}

	d, err := s.store.GetMailDomain(domainID)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != ownerID {
		return nil, ErrNotOwner
	}

	address = strings.ToLower(strings.TrimSpace(address))
	if err := domain.ValidateEmailAddress(address); err != nil {
		return nil, err
	}
	if !strings.HasSuffix(address, "@"+d.Name) {
		return nil, ErrAddressDomainMismatch
	}
	if err := domain.ValidatePassword(password); err != nil {
		return nil, err
	}

	if _, err := s.store.GetEmailAccountByAddress(address); err == nil {
		return nil, domain.ErrDuplicate
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to check address uniqueness: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &domain.EmailAccount{
		ID:           uuid.NewString(),
		Address:      address,
		OwnerID:      ownerID,
		DomainID:     d.ID,
		PasswordHash: hash,
		State:        domain.ProvisionLocalOnly,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.SaveEmailAccount(account); err != nil {
		return nil, err
	}

	result := &CreateAccountResult{Account: account}
	s.provisionAccount(ctx, account, password, d.Name, result)
	return result, nil
}

// provisionAccount 执行外部开通并回填连接参数，失败只记录不回滚
func (s *AccountService) provisionAccount(ctx context.Context, account *domain.EmailAccount, password, domainName string, result *CreateAccountResult) {
	if s.provisioner == nil {
		result.SMTPError = "mail server provisioning not configured"
		s.logger.Warn("account created local-only: provisioner not configured",
			zap.String("address", account.Address))
		return
	}

	creds, err := s.provisioner.Create(ctx, account.Address, password, domainName)
	s.metrics.RecordProvision("create", err == nil)
	if err != nil {
		result.SMTPError = err.Error()
		s.logger.Warn("external provisioning failed, account stays local-only",
			zap.String("address", account.Address), zap.Error(err))
		return
	}

	encrypted, err := s.cipher.Encrypt(password)
	if err != nil {
		result.SMTPError = fmt.Sprintf("failed to store sync credential: %v", err)
		s.logger.Error("failed to encrypt sync credential", zap.Error(err))
		return
	}

	account.SMTPHost = creds.Host
	account.SMTPPort = creds.Port
	account.SMTPUser = creds.User
	account.SMTPPassword = encrypted
	account.State = domain.ProvisionFull

	if err := s.store.SaveEmailAccount(account); err != nil {
		result.SMTPError = fmt.Sprintf("failed to persist connection parameters: %v", err)
		s.logger.Error("failed to persist provisioned credentials",
			zap.String("address", account.Address), zap.Error(err))
		return
	}

	result.SMTPConfigured = true
	result.Account = account
	s.logger.Info("account fully provisioned", zap.String("address", account.Address))
}

// GetAccount 获取用户自己的邮箱
func (s *AccountService) GetAccount(ownerID, id string) (*domain.EmailAccount, error) {
	account, err := s.store.GetEmailAccount(id)
	if err != nil {
		return nil, err
	}
	if account.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return account, nil
}

// ListAccounts 列出用户的全部邮箱
func (s *AccountService) ListAccounts(ownerID string) ([]*domain.EmailAccount, error) {
	return s.store.ListEmailAccountsByOwner(ownerID)
}

// DeleteAccount 删除邮箱
//
// 先尝试外部注销再删本地行；注销失败只记录日志，
// 服务器侧残留账号是可恢复的运维问题，不阻塞删除。
func (s *AccountService) DeleteAccount(ctx context.Context, ownerID, id string) error {
	account, err := s.GetAccount(ownerID, id)
	if err != nil {
		return err
	}

	d, err := s.store.GetMailDomain(account.DomainID)
	domainName := ""
	if err == nil {
		domainName = d.Name
	}

	if s.provisioner != nil {
		err := s.provisioner.Delete(ctx, account.Address, domainName)
		s.metrics.RecordProvision("delete", err == nil)
		if err != nil {
			s.logger.Warn("external deprovisioning failed, deleting local row anyway",
				zap.String("address", account.Address), zap.Error(err))
		}
	}

	if err := s.store.DeleteEmailAccount(account.ID); err != nil {
		return err
	}

	s.logger.Info("account deleted", zap.String("address", account.Address))
	return nil
}

// ReprovisionAccount 对 local_only 邮箱显式重试外部开通
//
// 没有自动重试流转，恢复只能由用户显式触发。
// password 为空时复用已存储的同步凭据。
func (s *AccountService) ReprovisionAccount(ctx context.Context, ownerID, id, password string) (*CreateAccountResult, error) {
	account, err := s.GetAccount(ownerID, id)
	if err != nil {
		return nil, err
	}

	if password == "" {
		stored, derr := s.cipher.Decrypt(account.SMTPPassword)
		if derr != nil || stored == "" {
			return nil, ErrNoSyncCredential
		}
		password = stored
	}

	d, err := s.store.GetMailDomain(account.DomainID)
	if err != nil {
		return nil, err
	}

	result := &CreateAccountResult{Account: account}
	s.provisionAccount(ctx, account, password, d.Name, result)
	return result, nil
}
