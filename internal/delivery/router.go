package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailhost/backend/internal/domain"
	"mailhost/backend/internal/security"
)

// SendResult 一次发送的结果
//
// 无论成功与否，邮件行都已落库；Sent=false 时 ErrorMessage 说明原因。
type SendResult struct {
	MessageID         string `json:"messageId"`
	ProviderMessageID string `json:"providerMessageId,omitempty"`
	Sent              bool   `json:"sent"`
	Transport         string `json:"transport,omitempty"`
	ErrorMessage      string `json:"error,omitempty"`
}

// Router 投递路由器
//
// 解析链在构造时注入，首个配置完整的传输胜出；
// 链全部落空属于配置错误（ErrNoTransport），与投递商拒信分开上报。
type Router struct {
	store     domain.Store
	resolvers []TransportResolver
	cipher    *security.CredentialCipher
	logger    *zap.Logger
}

// NewRouter 创建投递路由器
func NewRouter(store domain.Store, resolvers []TransportResolver, cipher *security.CredentialCipher, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		store:     store,
		resolvers: resolvers,
		cipher:    cipher,
		logger:    logger,
	}
}

// Send 发送一封邮件
//
// 信封 From 永远是邮箱自身地址；正文只有 HTML 时剥离标签生成纯文本回退。
// 任何结果都会持久化 direction=sent 的邮件行，SentAt 仅在成功时写入。
func (r *Router) Send(ctx context.Context, accountID, to, subject, body string) (*SendResult, error) {
	account, err := r.store.GetEmailAccount(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	// 域名可能已被删除或查询失败，只影响第二级解析
	var mailDomain *domain.MailDomain
	if account.DomainID != "" {
		if d, derr := r.store.GetMailDomain(account.DomainID); derr == nil {
			mailDomain = d
		}
	}

	account, mailDomain = r.decryptCredentials(account, mailDomain)

	email := &Email{
		From:    account.Address,
		To:      to,
		Subject: subject,
	}
	if LooksLikeHTML(body) {
		email.BodyHTML = body
		email.BodyText = StripHTML(body)
	} else {
		email.BodyText = body
	}

	message := &domain.Message{
		ID:         uuid.NewString(),
		AccountID:  account.ID,
		From:       account.Address,
		To:         to,
		Subject:    subject,
		BodyText:   email.BodyText,
		BodyHTML:   email.BodyHTML,
		Direction:  domain.DirectionSent,
		ReceivedAt: time.Now().UTC(),
	}

	result := &SendResult{MessageID: message.ID}

	transport := r.resolve(account, mailDomain)
	if transport == nil {
		message.DeliveryError = ErrNoTransport.Error()
		result.ErrorMessage = ErrNoTransport.Error()
		r.persist(message)
		return result, nil
	}
	result.Transport = transport.Name()

	providerID, sendErr := transport.Send(ctx, email)
	if sendErr != nil {
		r.logger.Warn("delivery failed",
			zap.String("account", account.Address),
			zap.String("transport", transport.Name()),
			zap.Error(sendErr))
		message.DeliveryError = sendErr.Error()
		result.ErrorMessage = sendErr.Error()
		r.persist(message)
		return result, nil
	}

	now := time.Now().UTC()
	message.SentAt = &now
	message.ProviderMessageID = providerID
	result.Sent = true
	result.ProviderMessageID = providerID
	r.persist(message)

	r.logger.Info("mail delivered",
		zap.String("account", account.Address),
		zap.String("transport", transport.Name()),
		zap.String("to", to))
	return result, nil
}

func (r *Router) resolve(account *domain.EmailAccount, mailDomain *domain.MailDomain) Transport {
	for _, resolver := range r.resolvers {
		if t := resolver.Resolve(account, mailDomain); t != nil {
			return t
		}
	}
	return nil
}

// decryptCredentials 返回解密后的副本，不回写存储
func (r *Router) decryptCredentials(account *domain.EmailAccount, mailDomain *domain.MailDomain) (*domain.EmailAccount, *domain.MailDomain) {
	if r.cipher == nil {
		return account, mailDomain
	}

	acct := *account
	if plain, err := r.cipher.Decrypt(acct.SMTPPassword); err == nil {
		acct.SMTPPassword = plain
	}

	if mailDomain == nil {
		return &acct, nil
	}
	d := *mailDomain
	if plain, err := r.cipher.Decrypt(d.SMTPPassword); err == nil {
		d.SMTPPassword = plain
	}
	if plain, err := r.cipher.Decrypt(d.SMTPAPIKey); err == nil {
		d.SMTPAPIKey = plain
	}
	return &acct, &d
}

func (r *Router) persist(message *domain.Message) {
	if err := r.store.SaveMessage(message); err != nil {
		r.logger.Error("failed to persist sent message",
			zap.String("account", message.AccountID),
			zap.Error(err))
	}
}
