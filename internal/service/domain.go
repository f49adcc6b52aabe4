package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailhost/backend/internal/dnscheck"
	"mailhost/backend/internal/domain"
	"mailhost/backend/internal/monitoring"
	"mailhost/backend/internal/security"
)

var (
	// ErrNotOwner 资源不属于当前用户
	ErrNotOwner = errors.New("resource does not belong to user")
	// ErrInvalidSMTPConfig 域名发信配置不完整
	ErrInvalidSMTPConfig = errors.New("invalid smtp configuration")
)

// DomainNotEmptyError 域名下仍有依赖邮箱，删除被阻止
type DomainNotEmptyError struct {
	Count int
}

func (e *DomainNotEmptyError) Error() string {
	return fmt.Sprintf("domain has %d dependent email accounts", e.Count)
}

// VerifyOutcome 一次域名验证的完整结果
type VerifyOutcome struct {
	Domain       *domain.MailDomain `json:"domain"`
	DNSResult    *dnscheck.Result   `json:"dnsResult"`
	Instructions []dnscheck.Record  `json:"dnsInstructions"`
}

// SMTPConfigUpdate 域名发信配置更新请求
type SMTPConfigUpdate struct {
	Provider domain.SMTPProvider
	Host     string
	Port     int
	User     string
	Password string
	APIKey   string
}

// DomainService 域名生命周期编排
//
// 状态流转：Unverified → Verified（可反复重验，始终实时查询 DNS）
// → Deleted（仅当依赖邮箱数为零）。
type DomainService struct {
	store    domain.Store
	quota    *QuotaService
	verifier *dnscheck.Verifier
	cipher   *security.CredentialCipher
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewDomainService 创建域名服务，metrics 可为 nil
func NewDomainService(store domain.Store, quota *QuotaService, verifier *dnscheck.Verifier, cipher *security.CredentialCipher, metrics *monitoring.Metrics, logger *zap.Logger) *DomainService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DomainService{
		store:    store,
		quota:    quota,
		verifier: verifier,
		cipher:   cipher,
		metrics:  metrics,
		logger:   logger,
	}
}

// AddDomain 添加域名：配额 → 校验归一 → 唯一性 → 落库
//
// 返回域名与需要发布的 DNS 记录清单；新域名初始为未验证状态。
func (s *DomainService) AddDomain(ctx context.Context, ownerID, name string) (*domain.MailDomain, []dnscheck.Record, error) {
	decision, err := s.quota.CanCreateDomain(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	if !decision.Allowed {
		return nil, nil, fmt.Errorf("%w: %s", ErrQuotaExceeded, decision.Reason)
	}

	name = domain.NormalizeDomainName(name)
	if err := domain.ValidateDomainName(name); err != nil {
		return nil, nil, err
	}

	if _, err := s.store.GetMailDomainByName(name); err == nil {
		return nil, nil, domain.ErrDuplicate
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, fmt.Errorf("failed to check domain uniqueness: %w", err)
	}

	d := &domain.MailDomain{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveMailDomain(d); err != nil {
		return nil, nil, err
	}

	s.logger.Info("domain added", zap.String("domain", name), zap.String("ownerID", ownerID))
	return d, s.verifier.Instructions(name), nil
}

// GetDomain 获取用户自己的域名
func (s *DomainService) GetDomain(ownerID, id string) (*domain.MailDomain, error) {
	d, err := s.store.GetMailDomain(id)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return d, nil
}

// ListDomains 列出用户的全部域名
func (s *DomainService) ListDomains(ownerID string) ([]*domain.MailDomain, error) {
	return s.store.ListMailDomainsByOwner(ownerID)
}

// DomainStatus 域名详情及展示用 DNS 状态
//
// DNS 状态优先取缓存，未命中才实时查询；只用于展示，
// 不落库也不影响 dnsVerified，显式验证走 VerifyDomain。
func (s *DomainService) DomainStatus(ctx context.Context, ownerID, id string) (*domain.MailDomain, *dnscheck.Result, error) {
	d, err := s.GetDomain(ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	return d, s.verifier.VerifyCached(ctx, d.Name), nil
}

// VerifyDomain 重新验证域名 DNS 配置
//
// 显式验证永远实时查询，刷新记录字段、dnsVerified 与 lastCheckedAt。
func (s *DomainService) VerifyDomain(ctx context.Context, ownerID, id string) (*VerifyOutcome, error) {
	d, err := s.GetDomain(ownerID, id)
	if err != nil {
		return nil, err
	}

	result := s.verifier.Verify(ctx, d.Name)
	s.metrics.RecordDNSVerification(result.OverallOK)

	d.DNSVerified = result.OverallOK
	d.MXRecord = result.MXValue
	d.SPFRecord = result.SPFValue
	d.DKIMRecord = result.DKIMValue
	d.DMARCRecord = result.DMARCValue
	d.LastCheckedAt = &result.CheckedAt

	if err := s.store.SaveMailDomain(d); err != nil {
		return nil, fmt.Errorf("failed to persist verification result: %w", err)
	}

	s.logger.Info("domain verified",
		zap.String("domain", d.Name),
		zap.Bool("overallOk", result.OverallOK))
	return &VerifyOutcome{
		Domain:       d,
		DNSResult:    result,
		Instructions: s.verifier.Instructions(d.Name),
	}, nil
}

// Instructions 返回域名需要发布的 DNS 记录清单
func (s *DomainService) Instructions(ownerID, id string) ([]dnscheck.Record, error) {
	d, err := s.GetDomain(ownerID, id)
	if err != nil {
		return nil, err
	}
	return s.verifier.Instructions(d.Name), nil
}

// UpdateSMTPConfig 更新域名级发信配置
//
// 按投递商校验：API Key 类投递商必须提供 Key；
// 通用 SMTP 必须提供 host+user+password。密钥加密后落库。
func (s *DomainService) UpdateSMTPConfig(ctx context.Context, ownerID, id string, update SMTPConfigUpdate) (*domain.MailDomain, error) {
	d, err := s.GetDomain(ownerID, id)
	if err != nil {
		return nil, err
	}

	switch update.Provider {
	case domain.ProviderSendGrid:
		if update.APIKey == "" {
			return nil, fmt.Errorf("%w: sendgrid requires an api key", ErrInvalidSMTPConfig)
		}
	case domain.ProviderMailgun:
		if update.Password == "" {
			return nil, fmt.Errorf("%w: mailgun requires an smtp password", ErrInvalidSMTPConfig)
		}
	case domain.ProviderSMTP:
		if update.Host == "" || update.User == "" || update.Password == "" {
			return nil, fmt.Errorf("%w: smtp requires host, user and password", ErrInvalidSMTPConfig)
		}
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidSMTPConfig, update.Provider)
	}

	password, err := s.cipher.Encrypt(update.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt smtp password: %w", err)
	}
	apiKey, err := s.cipher.Encrypt(update.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt api key: %w", err)
	}

	d.SMTPProvider = update.Provider
	d.SMTPHost = update.Host
	d.SMTPPort = update.Port
	d.SMTPUser = update.User
	d.SMTPPassword = password
	d.SMTPAPIKey = apiKey

	if err := s.store.SaveMailDomain(d); err != nil {
		return nil, fmt.Errorf("failed to persist smtp config: %w", err)
	}

	s.logger.Info("domain smtp config updated",
		zap.String("domain", d.Name),
		zap.String("provider", string(update.Provider)))
	return d, nil
}

// DeleteDomain 删除域名，存在依赖邮箱时返回 DomainNotEmptyError
func (s *DomainService) DeleteDomain(ctx context.Context, ownerID, id string) error {
	d, err := s.GetDomain(ownerID, id)
	if err != nil {
		return err
	}

	count, err := s.store.CountEmailAccountsByDomain(d.ID)
	if err != nil {
		return fmt.Errorf("failed to count dependent accounts: %w", err)
	}
	if count > 0 {
		return &DomainNotEmptyError{Count: count}
	}

	if err := s.store.DeleteMailDomain(d.ID); err != nil {
		return err
	}

	s.logger.Info("domain deleted", zap.String("domain", d.Name))
	return nil
}
