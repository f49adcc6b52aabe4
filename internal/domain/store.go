package domain

import "errors"

// 仓储层通用错误
var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 唯一约束冲突（域名/地址/套餐名已存在）
	ErrDuplicate = errors.New("record already exists")
)

// Store 聚合全部仓储接口
//
// 业务层只依赖该接口；内存实现用于开发与测试，SQL 实现用于生产。
type Store interface {
	MailDomainRepository
	EmailAccountRepository
	MessageRepository
	PlanRepository
	UserRepository

	// Close 释放底层连接
	Close() error

	// Health 探活，供健康检查使用
	Health() error
}
