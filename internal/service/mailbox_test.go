package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailhost/backend/internal/config"
	"mailhost/backend/internal/delivery"
	"mailhost/backend/internal/domain"
	"mailhost/backend/internal/mailsync"
	"mailhost/backend/internal/storage/memory"
)

// recordingTransport 记录发送调用的假传输
type recordingTransport struct {
	sent []*delivery.Email
	fail error
}

func (r *recordingTransport) Send(_ context.Context, email *delivery.Email) (string, error) {
	if r.fail != nil {
		return "", r.fail
	}
	r.sent = append(r.sent, email)
	return "provider-msg-1", nil
}

func (r *recordingTransport) Name() string { return "fake" }

type staticResolver struct{ transport delivery.Transport }

func (s staticResolver) Resolve(_ *domain.EmailAccount, _ *domain.MailDomain) delivery.Transport {
	return s.transport
}

func newMailboxFixture(t *testing.T, transport delivery.Transport) (*memory.Store, *MailboxService, *domain.EmailAccount) {
	t.Helper()
	store := memory.NewStore()

	var resolvers []delivery.TransportResolver
	if transport != nil {
		resolvers = []delivery.TransportResolver{staticResolver{transport: transport}}
	}
	router := delivery.NewRouter(store, resolvers, nil, nil)
	syncer := mailsync.NewSyncer(store, nil, config.SyncConfig{}, "", nil)
	svc := NewMailboxService(store, router, syncer, nil, nil)

	account := &domain.EmailAccount{ID: "a1", Address: "alice@example.com", OwnerID: "u1", DomainID: "d1"}
	require.NoError(t, store.SaveEmailAccount(account))
	return store, svc, account
}

func TestMailboxSend(t *testing.T) {
	ctx := context.Background()

	t.Run("发送成功落库发件箱", func(t *testing.T) {
		transport := &recordingTransport{}
		store, svc, account := newMailboxFixture(t, transport)

		result, err := svc.Send(ctx, "u1", account.ID, "bob@other.com", "hello", "body text")
		require.NoError(t, err)
		assert.True(t, result.Sent)
		assert.Equal(t, "provider-msg-1", result.ProviderMessageID)

		require.Len(t, transport.sent, 1)
		assert.Equal(t, "alice@example.com", transport.sent[0].From)

		sent, err := store.ListMessages(account.ID, domain.DirectionSent)
		require.NoError(t, err)
		require.Len(t, sent, 1)
		assert.NotNil(t, sent[0].SentAt)
	})

	t.Run("无可用传输返回配置错误而非异常", func(t *testing.T) {
		store, svc, account := newMailboxFixture(t, nil)

		result, err := svc.Send(ctx, "u1", account.ID, "bob@other.com", "hello", "body")
		require.NoError(t, err)
		assert.False(t, result.Sent)
		assert.Contains(t, result.ErrorMessage, "no delivery transport")

		// 失败的邮件也在发件箱里可见
		sent, err := store.ListMessages(account.ID, domain.DirectionSent)
		require.NoError(t, err)
		require.Len(t, sent, 1)
		assert.Nil(t, sent[0].SentAt)
	})

	t.Run("收件人地址非法被拒", func(t *testing.T) {
		_, svc, account := newMailboxFixture(t, &recordingTransport{})
		_, err := svc.Send(ctx, "u1", account.ID, "not-an-address", "hello", "body")
		assert.ErrorIs(t, err, domain.ErrInvalidEmail)
	})

	t.Run("非属主无法发送", func(t *testing.T) {
		_, svc, account := newMailboxFixture(t, &recordingTransport{})
		_, err := svc.Send(ctx, "intruder", account.ID, "bob@other.com", "hello", "body")
		assert.ErrorIs(t, err, ErrNotOwner)
	})
}

func TestMailboxInbox(t *testing.T) {
	ctx := context.Background()

	t.Run("同步被跳过时仍返回本地邮件", func(t *testing.T) {
		store, svc, account := newMailboxFixture(t, nil)

		require.NoError(t, store.SaveMessage(&domain.Message{
			ID: "m1", AccountID: account.ID, From: "bob@other.com", To: account.Address,
			Subject: "hi", Direction: domain.DirectionReceived, ReceivedAt: time.Now().UTC(),
		}))

		// 账号没有同步凭据，sync=true 会被跳过而不是报错
		messages, err := svc.Inbox(ctx, "u1", account.ID, true)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, "hi", messages[0].Subject)
	})

	t.Run("收件箱不包含已发送邮件", func(t *testing.T) {
		store, svc, account := newMailboxFixture(t, nil)

		require.NoError(t, store.SaveMessage(&domain.Message{
			ID: "m1", AccountID: account.ID, Direction: domain.DirectionReceived, ReceivedAt: time.Now().UTC(),
		}))
		require.NoError(t, store.SaveMessage(&domain.Message{
			ID: "m2", AccountID: account.ID, Direction: domain.DirectionSent, ReceivedAt: time.Now().UTC(),
		}))

		inbox, err := svc.Inbox(ctx, "u1", account.ID, false)
		require.NoError(t, err)
		require.Len(t, inbox, 1)
		assert.Equal(t, "m1", inbox[0].ID)
	})
}

func TestMailboxFlags(t *testing.T) {
	boolPtr := func(v bool) *bool { return &v }

	t.Run("部分更新只改指定标记", func(t *testing.T) {
		store, svc, account := newMailboxFixture(t, nil)
		require.NoError(t, store.SaveMessage(&domain.Message{
			ID: "m1", AccountID: account.ID, Direction: domain.DirectionReceived,
			MessageFlags: domain.MessageFlags{IsStarred: true},
			ReceivedAt:   time.Now().UTC(),
		}))

		updated, err := svc.UpdateFlags("u1", account.ID, "m1", FlagUpdates{Read: boolPtr(true)})
		require.NoError(t, err)
		assert.True(t, updated.IsRead)
		assert.True(t, updated.IsStarred) // 未指定的标记保持原值

		updated, err = svc.UpdateFlags("u1", account.ID, "m1", FlagUpdates{Starred: boolPtr(false)})
		require.NoError(t, err)
		assert.True(t, updated.IsRead)
		assert.False(t, updated.IsStarred)
	})

	t.Run("不存在的邮件返回未找到", func(t *testing.T) {
		_, svc, account := newMailboxFixture(t, nil)
		_, err := svc.UpdateFlags("u1", account.ID, "ghost", FlagUpdates{Read: boolPtr(true)})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestDeleteMessagePermanently(t *testing.T) {
	t.Run("未软删除的邮件拒绝物理删除", func(t *testing.T) {
		store, svc, account := newMailboxFixture(t, nil)
		require.NoError(t, store.SaveMessage(&domain.Message{
			ID: "m1", AccountID: account.ID, Direction: domain.DirectionReceived, ReceivedAt: time.Now().UTC(),
		}))

		err := svc.DeleteMessagePermanently("u1", account.ID, "m1")
		assert.ErrorIs(t, err, ErrNotSoftDeleted)
	})

	t.Run("软删除后可以物理删除", func(t *testing.T) {
		store, svc, account := newMailboxFixture(t, nil)
		require.NoError(t, store.SaveMessage(&domain.Message{
			ID: "m1", AccountID: account.ID, Direction: domain.DirectionReceived,
			MessageFlags: domain.MessageFlags{IsDeleted: true},
			ReceivedAt:   time.Now().UTC(),
		}))

		require.NoError(t, svc.DeleteMessagePermanently("u1", account.ID, "m1"))
		_, err := store.GetMessage(account.ID, "m1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
