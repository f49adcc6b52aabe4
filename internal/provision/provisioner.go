package provision

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured 未配置邮件服务器管理 API，邮箱只能以 local_only 状态创建
	ErrNotConfigured = errors.New("mail server admin api not configured")
)

// Credentials 开通成功后返回的 SMTP 连接参数
type Credentials struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	User string `json:"user"`
}

// Provisioner 抽象外部邮件服务器账号的创建与删除
//
// Create 必须幂等：服务器端账号已存在时返回成功和既有连接参数。
type Provisioner interface {
	// Create 在邮件服务器上创建邮箱账号
	Create(ctx context.Context, address, password, domainName string) (*Credentials, error)

	// Delete 删除邮件服务器上的邮箱账号，账号不存在视为成功
	Delete(ctx context.Context, address, domainName string) error
}
