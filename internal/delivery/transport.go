package delivery

import (
	"context"
	"errors"
)

// ErrNoTransport 找不到任何已配置的投递后端（配置错误，区别于投递商拒信）
var ErrNoTransport = errors.New("no delivery transport configured")

// Email 一封待投递的邮件
//
// From 永远是邮箱自身地址，即使通过共享的全局中继发送。
type Email struct {
	From     string
	To       string
	Subject  string
	BodyText string
	BodyHTML string
}

// Transport 投递传输层抽象
//
// 投递商差异（API Key 作密码、固定发件账号等）封装在各实现内部。
type Transport interface {
	// Send 投递一封邮件，返回投递商消息标识（可为空）
	Send(ctx context.Context, email *Email) (providerMessageID string, err error)

	// Name 传输名称，用于日志和消息记录
	Name() string
}
