package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrInvalidKey 密钥格式错误（需要 64 位 hex 编码的 32 字节密钥）
	ErrInvalidKey = errors.New("credential key must be 64 hex characters (32 bytes)")
	// ErrCiphertextTooShort 密文长度不足
	ErrCiphertextTooShort = errors.New("ciphertext too short")
)

// CredentialCipher 负责投递凭据（SMTP 密码 / API Key）的静态加密
//
// 使用 AES-256-GCM；密钥未配置时 Enabled 为 false，调用方应明文存储并告警。
type CredentialCipher struct {
	aead cipher.AEAD
}

// NewCredentialCipher 从 hex 编码密钥创建加密器
//
// key 为空时返回 (nil, nil)，表示加密未启用。
func NewCredentialCipher(key string) (*CredentialCipher, error) {
	if key == "" {
		return nil, nil
	}

	raw, err := hex.DecodeString(key)
	if err != nil || len(raw) != 32 {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}

	return &CredentialCipher{aead: aead}, nil
}

// Encrypt 加密明文凭据，返回 base64 编码的 nonce+密文
//
// 接收 nil 加密器时原样返回明文，方便调用方统一处理未启用的情况。
func (c *CredentialCipher) Encrypt(plaintext string) (string, error) {
	if c == nil || plaintext == "" {
		return plaintext, nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt 解密 Encrypt 输出的密文
func (c *CredentialCipher) Decrypt(ciphertext string) (string, error) {
	if c == nil || ciphertext == "" {
		return ciphertext, nil
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	if len(raw) < c.aead.NonceSize() {
		return "", ErrCiphertextTooShort
	}

	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential: %w", err)
	}
	return string(plain), nil
}
