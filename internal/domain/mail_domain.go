package domain

import "time"

// SMTPProvider 域名级别的发信服务商类型
type SMTPProvider string

const (
	// ProviderSMTP 通用 SMTP 服务器（需要 host/user/password）
	ProviderSMTP SMTPProvider = "smtp"
	// ProviderSendGrid SendGrid（API Key 作为 SMTP 密码）
	ProviderSendGrid SMTPProvider = "sendgrid"
	// ProviderMailgun Mailgun（postmaster@域名 作为 SMTP 用户）
	ProviderMailgun SMTPProvider = "mailgun"
)

// MailDomain 客户托管的邮件域名
//
// name 全局唯一且始终小写。DNS 记录字段在每次验证时整体刷新，
// 只有显式触发验证才会更新 dnsVerified，不信任任何缓存结果。
type MailDomain struct {
	ID            string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name          string     `json:"name" gorm:"uniqueIndex;type:varchar(253);not null"`
	OwnerID       string     `json:"ownerId" gorm:"type:varchar(36);index;not null"`
	DNSVerified   bool       `json:"dnsVerified" gorm:"default:false;index"`
	MXRecord      string     `json:"mxRecord,omitempty" gorm:"type:varchar(255)"`
	SPFRecord     string     `json:"spfRecord,omitempty" gorm:"type:varchar(500)"`
	DKIMRecord    string     `json:"dkimRecord,omitempty" gorm:"type:text"`
	DMARCRecord   string     `json:"dmarcRecord,omitempty" gorm:"type:varchar(500)"`
	LastCheckedAt *time.Time `json:"lastCheckedAt,omitempty"`

	// 域名级发信配置（可选，优先级低于邮箱自身凭据）
	SMTPProvider SMTPProvider `json:"smtpProvider,omitempty" gorm:"type:varchar(20)"`
	SMTPHost     string       `json:"smtpHost,omitempty" gorm:"type:varchar(255)"`
	SMTPPort     int          `json:"smtpPort,omitempty"`
	SMTPUser     string       `json:"smtpUser,omitempty" gorm:"type:varchar(255)"`
	SMTPPassword string       `json:"-" gorm:"type:text"`
	SMTPAPIKey   string       `json:"-" gorm:"type:text"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// MailDomainRepository 邮件域名仓储接口
type MailDomainRepository interface {
	// SaveMailDomain 保存（插入或更新）域名
	SaveMailDomain(d *MailDomain) error

	// GetMailDomain 根据 ID 获取域名
	GetMailDomain(id string) (*MailDomain, error)

	// GetMailDomainByName 根据域名名称获取（名称已小写）
	GetMailDomainByName(name string) (*MailDomain, error)

	// ListMailDomainsByOwner 获取用户拥有的全部域名
	ListMailDomainsByOwner(ownerID string) ([]*MailDomain, error)

	// CountMailDomainsByOwner 统计用户拥有的域名数量
	CountMailDomainsByOwner(ownerID string) (int, error)

	// DeleteMailDomain 删除域名
	DeleteMailDomain(id string) error
}
