package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mailhost/backend/internal/delivery"
	"mailhost/backend/internal/domain"
	"mailhost/backend/internal/mailsync"
	"mailhost/backend/internal/monitoring"
)

var (
	// ErrNotSoftDeleted 物理删除只允许作用于已软删除的邮件
	ErrNotSoftDeleted = errors.New("message must be soft-deleted first")
)

// FlagUpdates 邮件标记位更新，nil 字段表示保持不变
type FlagUpdates struct {
	Read      *bool `json:"read,omitempty"`
	Starred   *bool `json:"starred,omitempty"`
	Archived  *bool `json:"archived,omitempty"`
	Spam      *bool `json:"spam,omitempty"`
	Important *bool `json:"important,omitempty"`
	Deleted   *bool `json:"deleted,omitempty"`
	Draft     *bool `json:"draft,omitempty"`
}

// MailboxService 收发件用例层
type MailboxService struct {
	store   domain.Store
	router  *delivery.Router
	syncer  *mailsync.Syncer
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewMailboxService 创建收发件服务，metrics 可为 nil
func NewMailboxService(store domain.Store, router *delivery.Router, syncer *mailsync.Syncer, metrics *monitoring.Metrics, logger *zap.Logger) *MailboxService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailboxService{
		store:   store,
		router:  router,
		syncer:  syncer,
		metrics: metrics,
		logger:  logger,
	}
}

// Send 发送邮件
//
// 投递结果（成功、拒信、无后端）都反映在返回值里，不作为错误上抛；
// 只有账号归属等前置校验失败才返回错误。
func (s *MailboxService) Send(ctx context.Context, ownerID, accountID, to, subject, body string) (*delivery.SendResult, error) {
	if err := s.checkOwnership(ownerID, accountID); err != nil {
		return nil, err
	}
	if err := domain.ValidateEmailAddress(to); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.router.Send(ctx, accountID, to, subject, body)
	if err == nil {
		s.metrics.RecordMailSend(result.Transport, result.Sent, time.Since(start))
	}
	return result, err
}

// Inbox 列出收件箱
//
// sync=true 时先尽力同步一轮远端邮件，同步失败不阻塞读取。
func (s *MailboxService) Inbox(ctx context.Context, ownerID, accountID string, sync bool) ([]*domain.Message, error) {
	account, err := s.ownedAccount(ownerID, accountID)
	if err != nil {
		return nil, err
	}

	if sync && s.syncer != nil {
		var mailDomain *domain.MailDomain
		if d, derr := s.store.GetMailDomain(account.DomainID); derr == nil {
			mailDomain = d
		}

		start := time.Now()
		syncResult, serr := s.syncer.Sync(ctx, account, mailDomain)
		switch {
		case serr != nil:
			s.metrics.RecordSyncRun("error", 0, time.Since(start))
			s.logger.Warn("best-effort inbox sync failed",
				zap.String("address", account.Address), zap.Error(serr))
		case syncResult.Skipped:
			s.metrics.RecordSyncRun("skipped", 0, time.Since(start))
		default:
			s.metrics.RecordSyncRun("ok", syncResult.Fetched, time.Since(start))
		}
	}

	return s.store.ListMessages(accountID, domain.DirectionReceived)
}

// Sent 列出发件箱（含投递失败的邮件）
func (s *MailboxService) Sent(ownerID, accountID string) ([]*domain.Message, error) {
	if err := s.checkOwnership(ownerID, accountID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(accountID, domain.DirectionSent)
}

// UpdateFlags 更新邮件标记位
func (s *MailboxService) UpdateFlags(ownerID, accountID, messageID string, updates FlagUpdates) (*domain.Message, error) {
	if err := s.checkOwnership(ownerID, accountID); err != nil {
		return nil, err
	}

	message, err := s.store.GetMessage(accountID, messageID)
	if err != nil {
		return nil, err
	}

	apply := func(target *bool, value *bool) {
		if value != nil {
			*target = *value
		}
	}
	apply(&message.IsRead, updates.Read)
	apply(&message.IsStarred, updates.Starred)
	apply(&message.IsArchived, updates.Archived)
	apply(&message.IsSpam, updates.Spam)
	apply(&message.IsImportant, updates.Important)
	apply(&message.IsDeleted, updates.Deleted)
	apply(&message.IsDraft, updates.Draft)

	if err := s.store.SaveMessage(message); err != nil {
		return nil, fmt.Errorf("failed to persist flags: %w", err)
	}
	return message, nil
}

// DeleteMessagePermanently 物理删除邮件，要求已处于软删除状态
func (s *MailboxService) DeleteMessagePermanently(ownerID, accountID, messageID string) error {
	if err := s.checkOwnership(ownerID, accountID); err != nil {
		return err
	}

	message, err := s.store.GetMessage(accountID, messageID)
	if err != nil {
		return err
	}
	if !message.IsDeleted {
		return ErrNotSoftDeleted
	}

	return s.store.DeleteMessage(accountID, messageID)
}

func (s *MailboxService) ownedAccount(ownerID, accountID string) (*domain.EmailAccount, error) {
	account, err := s.store.GetEmailAccount(accountID)
	if err != nil {
		return nil, err
	}
	if account.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return account, nil
}

func (s *MailboxService) checkOwnership(ownerID, accountID string) error {
	_, err := s.ownedAccount(ownerID, accountID)
	return err
}
