package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(accessExpiry time.Duration) *Manager {
	return NewManager("test-secret-key-that-is-long-enough!", "mailhost-test", accessExpiry, 24*time.Hour)
}

func TestManagerGenerateAndValidate(t *testing.T) {
	m := newTestManager(time.Hour)

	pair, err := m.GenerateTokenPair("user-1", "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(3600), pair.ExpiresIn)

	claims, err := m.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "mailhost-test", claims.Issuer)
}

func TestManagerRejectsTamperedToken(t *testing.T) {
	m := newTestManager(time.Hour)

	pair, err := m.GenerateTokenPair("user-1", "alice@example.com")
	require.NoError(t, err)

	other := NewManager("another-secret-key-that-is-long-enough", "mailhost-test", time.Hour, 24*time.Hour)
	_, err = other.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManagerExpiredToken(t *testing.T) {
	m := newTestManager(-time.Minute)

	pair, err := m.GenerateTokenPair("user-1", "alice@example.com")
	require.NoError(t, err)

	_, err = m.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestManagerRefreshAccessToken(t *testing.T) {
	m := newTestManager(time.Hour)

	pair, err := m.GenerateTokenPair("user-1", "alice@example.com")
	require.NoError(t, err)

	token, err := m.RefreshAccessToken(pair.RefreshToken)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}
