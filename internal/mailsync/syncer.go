package mailsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailhost/backend/internal/config"
	"mailhost/backend/internal/domain"
	"mailhost/backend/internal/security"
)

// RemoteMessage 从远端邮箱抓取到的一封邮件
type RemoteMessage struct {
	MessageID string
	From      string
	Subject   string
	Date      time.Time
	BodyText  string
	BodyHTML  string
}

// SyncResult 一次同步的结果
//
// 凭据或主机缺失时 Skipped=true 并附带原因，不作为错误上抛。
type SyncResult struct {
	Fetched int    `json:"fetched"`
	Skipped bool   `json:"skipped"`
	Warning string `json:"warning,omitempty"`
}

// FetchFunc 抓取远端 INBOX 尾部邮件，测试中可注入假实现
type FetchFunc func(ctx context.Context, host string, port int, user, password string, window uint32) ([]*RemoteMessage, error)

// Syncer 收信同步器
//
// 去重保证幂等：先匹配外部 Message-Id，缺失时匹配 发件人+主题+时间 指纹，
// 并发或重复同步收敛到同一集合。
type Syncer struct {
	store          domain.Store
	cipher         *security.CredentialCipher
	cfg            config.SyncConfig
	globalSMTPHost string
	fetch          FetchFunc
	logger         *zap.Logger
}

// NewSyncer 创建同步器
func NewSyncer(store domain.Store, cipher *security.CredentialCipher, cfg config.SyncConfig, globalSMTPHost string, logger *zap.Logger) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Syncer{
		store:          store,
		cipher:         cipher,
		cfg:            cfg,
		globalSMTPHost: globalSMTPHost,
		logger:         logger,
	}
	s.fetch = s.imapFetch
	return s
}

// Sync 同步一个邮箱的收件箱
//
// 只有传输层故障返回错误；凭据缺失等预期情况返回 Skipped 结果。
func (s *Syncer) Sync(ctx context.Context, account *domain.EmailAccount, mailDomain *domain.MailDomain) (*SyncResult, error) {
	// 登录密码哈希无法用于远端认证，必须使用存储的同步密码
	password := account.SMTPPassword
	if s.cipher != nil {
		if plain, err := s.cipher.Decrypt(password); err == nil {
			password = plain
		}
	}
	if password == "" {
		s.logger.Warn("sync skipped: no usable credential", zap.String("address", account.Address))
		return &SyncResult{Skipped: true, Warning: "no usable sync credential for mailbox"}, nil
	}

	host := DeriveIMAPHost(account, mailDomain, s.globalSMTPHost)
	if host == "" {
		s.logger.Warn("sync skipped: no imap host", zap.String("address", account.Address))
		return &SyncResult{Skipped: true, Warning: "no imap host configured or derivable"}, nil
	}

	user := account.SMTPUser
	if user == "" {
		user = account.Address
	}

	port := s.cfg.IMAPPort
	if port <= 0 {
		port = 993
	}
	window := s.cfg.FetchWindow
	if window == 0 {
		window = 50
	}

	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	remote, err := s.fetch(ctx, host, port, user, password, window)
	if err != nil {
		return nil, fmt.Errorf("imap fetch failed for %s: %w", account.Address, err)
	}

	fetched := 0
	for _, rm := range remote {
		inserted, err := s.storeRemote(account, rm)
		if err != nil {
			s.logger.Error("failed to store synced message",
				zap.String("address", account.Address), zap.Error(err))
			continue
		}
		if inserted {
			fetched++
		}
	}

	s.logger.Info("inbox synced",
		zap.String("address", account.Address),
		zap.Int("fetched", fetched),
		zap.Int("remote", len(remote)))
	return &SyncResult{Fetched: fetched}, nil
}

// storeRemote 幂等写入一封远端邮件，返回是否新插入
func (s *Syncer) storeRemote(account *domain.EmailAccount, rm *RemoteMessage) (bool, error) {
	if rm.MessageID != "" {
		_, err := s.store.FindMessageByProviderID(account.ID, rm.MessageID)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return false, err
		}
	}

	fingerprint := domain.MessageFingerprint(rm.From, rm.Subject, rm.Date)
	if rm.MessageID == "" {
		_, err := s.store.FindMessageByFingerprint(account.ID, fingerprint)
		if err == nil {
			return false, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return false, err
		}
	}

	receivedAt := rm.Date
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	message := &domain.Message{
		ID:                uuid.NewString(),
		AccountID:         account.ID,
		From:              rm.From,
		To:                account.Address,
		Subject:           rm.Subject,
		BodyText:          rm.BodyText,
		BodyHTML:          rm.BodyHTML,
		Direction:         domain.DirectionReceived,
		ProviderMessageID: rm.MessageID,
		Fingerprint:       fingerprint,
		ReceivedAt:        receivedAt,
	}
	if err := s.store.SaveMessage(message); err != nil {
		// 并发同步撞了去重约束，这封邮件已经存在
		if errors.Is(err, domain.ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
