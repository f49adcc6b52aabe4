package domain

import "time"

// User 表示已认证的平台用户
//
// 注册/登录由外部认证系统负责，本子系统只消费 JWT 中的用户标识；
// 这里保留最小实体用于归属关系和管理工具。
type User struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email        string     `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	PasswordHash string     `json:"-" gorm:"type:varchar(255)"`
	IsActive     bool       `json:"isActive" gorm:"default:true"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// UserRepository 用户仓储接口
type UserRepository interface {
	// SaveUser 保存用户
	SaveUser(u *User) error

	// GetUser 按 ID 获取用户
	GetUser(id string) (*User, error)

	// GetUserByEmail 按邮箱获取用户
	GetUserByEmail(email string) (*User, error)
}
