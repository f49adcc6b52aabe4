package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Direction 邮件方向
type Direction string

const (
	// DirectionSent 用户发出的邮件（无论投递成功与否都会落库）
	DirectionSent Direction = "sent"
	// DirectionReceived 从远端邮箱同步进来的邮件
	DirectionReceived Direction = "received"
)

// MessageFlags 邮件标记位
type MessageFlags struct {
	IsRead      bool `json:"isRead" gorm:"default:false;index"`
	IsStarred   bool `json:"isStarred" gorm:"default:false"`
	IsArchived  bool `json:"isArchived" gorm:"default:false"`
	IsSpam      bool `json:"isSpam" gorm:"default:false"`
	IsImportant bool `json:"isImportant" gorm:"default:false"`
	IsDeleted   bool `json:"isDeleted" gorm:"default:false;index"`
	IsDraft     bool `json:"isDraft" gorm:"default:false"`
}

// Message 表示一封邮箱内的邮件
//
// direction=sent 的邮件在投递失败时 sentAt 为空、deliveryError 记录原因；
// 物理删除只允许作用于已软删除（isDeleted=true）的邮件。
type Message struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AccountID string    `json:"accountId" gorm:"type:varchar(36);index;not null"`
	From      string    `json:"from" gorm:"type:varchar(254)"`
	To        string    `json:"to" gorm:"type:varchar(254)"`
	Subject   string    `json:"subject" gorm:"type:varchar(500)"`
	BodyText  string    `json:"bodyText,omitempty" gorm:"type:text"`
	BodyHTML  string    `json:"bodyHtml,omitempty" gorm:"type:text"`
	Direction Direction `json:"direction" gorm:"type:varchar(10);index;not null"`

	MessageFlags `gorm:"embedded"`

	// ProviderMessageID 外部系统的邮件标识（IMAP Message-Id 或服务商返回的 ID）
	ProviderMessageID string `json:"providerMessageId,omitempty" gorm:"type:varchar(255);index"`

	// DeliveryError 投递失败原因；成功时为空
	DeliveryError string `json:"deliveryError,omitempty" gorm:"type:text"`

	// Fingerprint 同步去重指纹，见 MessageFingerprint
	Fingerprint string `json:"-" gorm:"type:varchar(64);index"`

	ReceivedAt time.Time  `json:"receivedAt"`
	SentAt     *time.Time `json:"sentAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// MessageFingerprint 根据 发件人+主题+时间戳 计算去重指纹
//
// 远端邮件缺少 Message-Id 时用作同步幂等的兜底匹配键。
func MessageFingerprint(from, subject string, receivedAt time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", from, subject, receivedAt.Unix())))
	return hex.EncodeToString(sum[:16])
}

// MessageRepository 邮件仓储接口
type MessageRepository interface {
	// SaveMessage 保存（插入或更新）邮件
	SaveMessage(m *Message) error

	// GetMessage 获取指定邮箱下的单封邮件
	GetMessage(accountID, messageID string) (*Message, error)

	// ListMessages 按方向列出邮箱内邮件，按接收时间倒序
	ListMessages(accountID string, direction Direction) ([]*Message, error)

	// FindMessageByProviderID 按外部标识查找（同步去重用）
	FindMessageByProviderID(accountID, providerMessageID string) (*Message, error)

	// FindMessageByFingerprint 按指纹查找（无外部标识时的去重兜底）
	FindMessageByFingerprint(accountID, fingerprint string) (*Message, error)

	// DeleteMessage 物理删除邮件
	DeleteMessage(accountID, messageID string) error
}
