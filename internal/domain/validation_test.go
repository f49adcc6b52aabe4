package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateDomainName(t *testing.T) {
	t.Run("合法域名通过验证", func(t *testing.T) {
		for _, name := range []string{"example.com", "mail.example.com", "a-b.co", "x1.io"} {
			assert.NoError(t, ValidateDomainName(name), name)
		}
	})

	t.Run("非法域名被拒绝", func(t *testing.T) {
		for _, name := range []string{"", "nodot", "-bad.com", "bad-.com", "foo..com", "foo .com", strings.Repeat("a", 64) + ".com"} {
			assert.Error(t, ValidateDomainName(name), name)
		}
	})

	t.Run("超长域名返回专属错误", func(t *testing.T) {
		name := strings.Repeat("a.", 127) + "com"
		assert.ErrorIs(t, ValidateDomainName(name), ErrDomainTooLong)
	})
}

func TestNormalizeDomainName(t *testing.T) {
	assert.Equal(t, "example.com", NormalizeDomainName("  Example.COM "))
}

func TestValidateEmailAddress(t *testing.T) {
	t.Run("合法地址通过验证", func(t *testing.T) {
		for _, addr := range []string{"alice@example.com", "a.b-c@mail.example.com"} {
			assert.NoError(t, ValidateEmailAddress(addr), addr)
		}
	})

	t.Run("非法地址被拒绝", func(t *testing.T) {
		for _, addr := range []string{"", "noat", "@example.com", "a@nodot", "a b@example.com"} {
			assert.Error(t, ValidateEmailAddress(addr), addr)
		}
	})

	t.Run("超长本地部分被拒绝", func(t *testing.T) {
		addr := strings.Repeat("a", 65) + "@example.com"
		assert.ErrorIs(t, ValidateEmailAddress(addr), ErrLocalPartTooLong)
	})
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("short"), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidatePassword(strings.Repeat("x", 129)), ErrPasswordTooLong)
	assert.NoError(t, ValidatePassword("longenough"))
}

func TestMessageFingerprint(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("相同输入得到相同指纹", func(t *testing.T) {
		a := MessageFingerprint("a@x.com", "hello", at)
		b := MessageFingerprint("a@x.com", "hello", at)
		assert.Equal(t, a, b)
	})

	t.Run("不同输入得到不同指纹", func(t *testing.T) {
		a := MessageFingerprint("a@x.com", "hello", at)
		b := MessageFingerprint("b@x.com", "hello", at)
		assert.NotEqual(t, a, b)
	})
}

func TestEmailAccountHelpers(t *testing.T) {
	acct := &EmailAccount{Address: "bob@example.com"}
	assert.Equal(t, "bob", acct.LocalPart())
	assert.False(t, acct.HasSMTPCredentials())

	acct.SMTPHost = "smtp.example.com"
	acct.SMTPUser = "bob@example.com"
	acct.SMTPPassword = "secret"
	assert.True(t, acct.HasSMTPCredentials())
}
