package delivery

import (
	"mailhost/backend/internal/config"
	"mailhost/backend/internal/domain"
)

// TransportResolver 按优先级解析投递后端
//
// 返回 nil 表示该级配置不完整，路由器继续尝试下一级。
type TransportResolver interface {
	Resolve(account *domain.EmailAccount, mailDomain *domain.MailDomain) Transport
}

// DefaultResolvers 返回标准优先级链：
// 邮箱级 SMTP 凭据 → 域名级投递商配置 → 全局兜底配置。
//
// 链在构造时注入路由器，便于单测替换，业务逻辑不读环境变量。
func DefaultResolvers(cfg config.DeliveryConfig) []TransportResolver {
	return []TransportResolver{
		AccountResolver{},
		DomainResolver{},
		GlobalResolver{Config: cfg},
	}
}

// AccountResolver 第一优先级：邮箱自身的 SMTP 凭据（开通器写入的字段）
type AccountResolver struct{}

// Resolve 实现 TransportResolver
func (AccountResolver) Resolve(account *domain.EmailAccount, _ *domain.MailDomain) Transport {
	if account == nil || !account.HasSMTPCredentials() {
		return nil
	}
	t := NewSMTPTransport(account.SMTPHost, account.SMTPPort, account.SMTPUser, account.SMTPPassword)
	t.name = "account-smtp"
	return t
}

// DomainResolver 第二优先级：所属域名的投递商配置
type DomainResolver struct{}

// Resolve 实现 TransportResolver
func (DomainResolver) Resolve(_ *domain.EmailAccount, mailDomain *domain.MailDomain) Transport {
	if mailDomain == nil {
		return nil
	}

	switch mailDomain.SMTPProvider {
	case domain.ProviderSendGrid:
		if mailDomain.SMTPAPIKey == "" {
			return nil
		}
		return NewSendGridTransport(mailDomain.SMTPAPIKey)
	case domain.ProviderMailgun:
		if mailDomain.SMTPPassword == "" {
			return nil
		}
		return NewMailgunTransport(mailDomain.Name, mailDomain.SMTPUser, mailDomain.SMTPPassword)
	case domain.ProviderSMTP:
		if mailDomain.SMTPHost == "" || mailDomain.SMTPUser == "" || mailDomain.SMTPPassword == "" {
			return nil
		}
		t := NewSMTPTransport(mailDomain.SMTPHost, mailDomain.SMTPPort, mailDomain.SMTPUser, mailDomain.SMTPPassword)
		t.name = "domain-smtp"
		return t
	default:
		return nil
	}
}

// GlobalResolver 第三优先级：进程级全局配置，先 SMTP 后 SendGrid
type GlobalResolver struct {
	Config config.DeliveryConfig
}

// Resolve 实现 TransportResolver
func (r GlobalResolver) Resolve(_ *domain.EmailAccount, _ *domain.MailDomain) Transport {
	cfg := r.Config
	if cfg.SMTPHost != "" && cfg.SMTPUser != "" && cfg.SMTPPassword != "" {
		t := NewSMTPTransport(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
		t.name = "global-smtp"
		return t
	}
	if cfg.SendGridKey != "" {
		return NewSendGridTransport(cfg.SendGridKey)
	}
	return nil
}
