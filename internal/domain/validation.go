package domain

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"
)

// 验证相关的错误定义
var (
	ErrInvalidEmail     = errors.New("invalid email format")
	ErrEmailTooLong     = errors.New("email address too long")
	ErrLocalPartTooLong = errors.New("local part too long (max 64 chars)")
	ErrDomainTooLong    = errors.New("domain too long (max 253 chars)")
	ErrInvalidDomain    = errors.New("invalid domain format")
	ErrPasswordTooShort = errors.New("password too short (min 8 chars)")
	ErrPasswordTooLong  = errors.New("password too long (max 128 chars)")
)

// RFC 5321/5322 长度限制
const (
	MaxEmailLength     = 254
	MaxLocalPartLength = 64
	MaxDomainLength    = 253

	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// 域名格式（支持多级子域名，标签不以连字符开头/结尾）
var domainRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)+$`)

// NormalizeDomainName 去除空白并转小写
func NormalizeDomainName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateDomainName 验证域名格式（输入需已 Normalize）
func ValidateDomainName(name string) error {
	if name == "" {
		return ErrInvalidDomain
	}
	if len(name) > MaxDomainLength {
		return ErrDomainTooLong
	}
	if !domainRegex.MatchString(name) {
		return ErrInvalidDomain
	}
	return nil
}

// ValidateEmailAddress 验证完整邮箱地址
func ValidateEmailAddress(address string) error {
	address = strings.ToLower(strings.TrimSpace(address))
	if len(address) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if _, err := mail.ParseAddress(address); err != nil {
		return ErrInvalidEmail
	}
	local, domainPart, ok := strings.Cut(address, "@")
	if !ok || local == "" {
		return ErrInvalidEmail
	}
	if len(local) > MaxLocalPartLength {
		return ErrLocalPartTooLong
	}
	return ValidateDomainName(domainPart)
}

// ValidatePassword 验证邮箱密码长度
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}
