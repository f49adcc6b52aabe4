package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestCredentialCipherRoundTrip(t *testing.T) {
	c, err := NewCredentialCipher(testKey)
	require.NoError(t, err)
	require.NotNil(t, c)

	encrypted, err := c.Encrypt("SG.api-key-secret")
	require.NoError(t, err)
	assert.NotEqual(t, "SG.api-key-secret", encrypted)

	plain, err := c.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "SG.api-key-secret", plain)
}

func TestCredentialCipherDisabled(t *testing.T) {
	c, err := NewCredentialCipher("")
	require.NoError(t, err)
	require.Nil(t, c)

	// nil 加密器透传明文
	out, err := c.Encrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", out)

	out, err = c.Decrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", out)
}

func TestCredentialCipherInvalidKey(t *testing.T) {
	_, err := NewCredentialCipher("short")
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewCredentialCipher(strings.Repeat("zz", 32))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestCredentialCipherRejectsGarbage(t *testing.T) {
	c, err := NewCredentialCipher(testKey)
	require.NoError(t, err)

	_, err = c.Decrypt("AAAA")
	assert.Error(t, err)
}
