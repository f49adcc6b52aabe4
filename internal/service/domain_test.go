package service

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailhost/backend/internal/dnscheck"
	"mailhost/backend/internal/domain"
	"mailhost/backend/internal/storage/memory"
)

// fakeResolver 预置 DNS 应答
type fakeResolver struct {
	mx  map[string][]*net.MX
	txt map[string][]string
}

func (f *fakeResolver) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	if records, ok := f.mx[name]; ok {
		return records, nil
	}
	return nil, errors.New("no such host")
}

func (f *fakeResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	if values, ok := f.txt[name]; ok {
		return values, nil
	}
	return nil, errors.New("no such host")
}

// fakeDNSCache 内存版验证结果缓存
type fakeDNSCache struct {
	results map[string]*dnscheck.Result
}

func (f *fakeDNSCache) GetResult(_ context.Context, name string) (*dnscheck.Result, bool) {
	r, ok := f.results[name]
	return r, ok
}

func (f *fakeDNSCache) SetResult(_ context.Context, name string, r *dnscheck.Result) {
	f.results[name] = r
}

func newDomainFixture(resolver dnscheck.Resolver) (*memory.Store, *DomainService) {
	store := memory.NewStore()
	quota := NewQuotaService(store, nil, nil)
	verifier := dnscheck.NewVerifier(resolver, nil, nil)
	svc := NewDomainService(store, quota, verifier, nil, nil, nil)
	return store, svc
}

func TestAddDomain(t *testing.T) {
	ctx := context.Background()

	t.Run("创建成功并返回DNS指引", func(t *testing.T) {
		_, svc := newDomainFixture(&fakeResolver{})

		d, instructions, err := svc.AddDomain(ctx, "u1", "  Example.COM ")
		require.NoError(t, err)
		assert.Equal(t, "example.com", d.Name)
		assert.False(t, d.DNSVerified)
		require.Len(t, instructions, 4)
	})

	t.Run("重名返回冲突", func(t *testing.T) {
		store, svc := newDomainFixture(&fakeResolver{})
		require.NoError(t, store.SaveMailDomain(&domain.MailDomain{ID: "d0", Name: "taken.com", OwnerID: "other"}))

		_, _, err := svc.AddDomain(ctx, "u1", "taken.com")
		assert.ErrorIs(t, err, domain.ErrDuplicate)
	})

	t.Run("非法域名被拒绝", func(t *testing.T) {
		_, svc := newDomainFixture(&fakeResolver{})
		_, _, err := svc.AddDomain(ctx, "u1", "not a domain")
		assert.ErrorIs(t, err, domain.ErrInvalidDomain)
	})

	t.Run("超出配额返回限额错误", func(t *testing.T) {
		_, svc := newDomainFixture(&fakeResolver{})

		_, _, err := svc.AddDomain(ctx, "u1", "first.com")
		require.NoError(t, err)

		// 免费套餐只允许一个域名
		_, _, err = svc.AddDomain(ctx, "u1", "second.com")
		assert.ErrorIs(t, err, ErrQuotaExceeded)
	})
}

func TestVerifyDomain(t *testing.T) {
	ctx := context.Background()

	resolver := &fakeResolver{
		mx: map[string][]*net.MX{
			"example.com": {{Host: "mail.example.com.", Pref: 10}},
		},
		txt: map[string][]string{
			"example.com": {"v=spf1 mx ~all"},
		},
	}
	store, svc := newDomainFixture(resolver)

	d, _, err := svc.AddDomain(ctx, "u1", "example.com")
	require.NoError(t, err)

	t.Run("验证刷新记录字段与时间戳", func(t *testing.T) {
		outcome, err := svc.VerifyDomain(ctx, "u1", d.ID)
		require.NoError(t, err)
		assert.True(t, outcome.DNSResult.OverallOK)
		assert.Equal(t, "10 mail.example.com", outcome.Domain.MXRecord)
		assert.True(t, outcome.Domain.DNSVerified)
		require.NotNil(t, outcome.Domain.LastCheckedAt)

		stored, err := store.GetMailDomain(d.ID)
		require.NoError(t, err)
		assert.True(t, stored.DNSVerified)
	})

	t.Run("记录消失后重验回退为未验证", func(t *testing.T) {
		delete(resolver.txt, "example.com")

		outcome, err := svc.VerifyDomain(ctx, "u1", d.ID)
		require.NoError(t, err)
		assert.False(t, outcome.DNSResult.OverallOK)
		assert.False(t, outcome.Domain.DNSVerified)
	})

	t.Run("非属主无法验证", func(t *testing.T) {
		_, err := svc.VerifyDomain(ctx, "intruder", d.ID)
		assert.ErrorIs(t, err, ErrNotOwner)
	})
}

func TestDomainStatus(t *testing.T) {
	ctx := context.Background()

	cache := &fakeDNSCache{results: map[string]*dnscheck.Result{}}
	store := memory.NewStore()
	quota := NewQuotaService(store, nil, nil)
	verifier := dnscheck.NewVerifier(&fakeResolver{}, cache, nil)
	svc := NewDomainService(store, quota, verifier, nil, nil, nil)

	d, _, err := svc.AddDomain(ctx, "u1", "example.com")
	require.NoError(t, err)

	t.Run("缓存命中时不做实时查询", func(t *testing.T) {
		cache.results["example.com"] = &dnscheck.Result{MXOK: true, SPFOK: true, OverallOK: true}

		got, status, err := svc.DomainStatus(ctx, "u1", d.ID)
		require.NoError(t, err)
		assert.True(t, status.OverallOK)
		// 展示状态不落库
		assert.False(t, got.DNSVerified)
	})

	t.Run("缓存未命中回退实时查询并回填", func(t *testing.T) {
		delete(cache.results, "example.com")

		_, status, err := svc.DomainStatus(ctx, "u1", d.ID)
		require.NoError(t, err)
		// fakeResolver 无任何记录
		assert.False(t, status.OverallOK)
		_, ok := cache.results["example.com"]
		assert.True(t, ok)
	})

	t.Run("非属主无法查询", func(t *testing.T) {
		_, _, err := svc.DomainStatus(ctx, "intruder", d.ID)
		assert.ErrorIs(t, err, ErrNotOwner)
	})
}

func TestUpdateSMTPConfig(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*DomainService, string) {
		t.Helper()
		_, svc := newDomainFixture(&fakeResolver{})
		d, _, err := svc.AddDomain(ctx, "u1", "example.com")
		require.NoError(t, err)
		return svc, d.ID
	}

	t.Run("sendgrid缺APIKey被拒", func(t *testing.T) {
		svc, id := setup(t)
		_, err := svc.UpdateSMTPConfig(ctx, "u1", id, SMTPConfigUpdate{Provider: domain.ProviderSendGrid})
		assert.ErrorIs(t, err, ErrInvalidSMTPConfig)
	})

	t.Run("通用smtp要求完整凭据", func(t *testing.T) {
		svc, id := setup(t)
		_, err := svc.UpdateSMTPConfig(ctx, "u1", id, SMTPConfigUpdate{Provider: domain.ProviderSMTP, Host: "smtp.x.com"})
		assert.ErrorIs(t, err, ErrInvalidSMTPConfig)

		d, err := svc.UpdateSMTPConfig(ctx, "u1", id, SMTPConfigUpdate{
			Provider: domain.ProviderSMTP, Host: "smtp.x.com", Port: 587, User: "u", Password: "p",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ProviderSMTP, d.SMTPProvider)
		assert.Equal(t, "p", d.SMTPPassword) // 未配置加密密钥时原样存储
	})

	t.Run("未知投递商被拒", func(t *testing.T) {
		svc, id := setup(t)
		_, err := svc.UpdateSMTPConfig(ctx, "u1", id, SMTPConfigUpdate{Provider: "pigeon"})
		assert.ErrorIs(t, err, ErrInvalidSMTPConfig)
	})
}

func TestDeleteDomain(t *testing.T) {
	ctx := context.Background()

	t.Run("有依赖邮箱时阻止并报数量", func(t *testing.T) {
		store, svc := newDomainFixture(&fakeResolver{})
		d, _, err := svc.AddDomain(ctx, "u1", "x.com")
		require.NoError(t, err)

		require.NoError(t, store.SaveEmailAccount(&domain.EmailAccount{ID: "a1", Address: "a@x.com", OwnerID: "u1", DomainID: d.ID}))
		require.NoError(t, store.SaveEmailAccount(&domain.EmailAccount{ID: "a2", Address: "b@x.com", OwnerID: "u1", DomainID: d.ID}))

		err = svc.DeleteDomain(ctx, "u1", d.ID)
		var notEmpty *DomainNotEmptyError
		require.ErrorAs(t, err, &notEmpty)
		assert.Equal(t, 2, notEmpty.Count)

		// 域名仍然存在
		_, err = store.GetMailDomain(d.ID)
		assert.NoError(t, err)
	})

	t.Run("无依赖时删除成功", func(t *testing.T) {
		store, svc := newDomainFixture(&fakeResolver{})
		d, _, err := svc.AddDomain(ctx, "u1", "y.com")
		require.NoError(t, err)

		require.NoError(t, svc.DeleteDomain(ctx, "u1", d.ID))
		_, err = store.GetMailDomain(d.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
