package domain

import (
	"strings"
	"time"
)

// ProvisionState 邮箱的外部开通状态
type ProvisionState string

const (
	// ProvisionLocalOnly 仅本地记录，邮件服务器侧账号未开通（模拟模式）
	ProvisionLocalOnly ProvisionState = "local_only"
	// ProvisionFull 邮件服务器侧账号已开通，SMTP 凭据可用
	ProvisionFull ProvisionState = "fully_provisioned"
)

// EmailAccount 邮箱身份（SMTP 凭据绑定在所属域名之下）
//
// address 全局唯一，且必须以 "@<所属域名>" 结尾。
// smtp* 字段由凭据开通器写入，投递路由和收信同步消费。
// 外部开通失败时邮箱仍会以 local_only 状态创建，不回滚。
type EmailAccount struct {
	ID           string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Address      string         `json:"address" gorm:"uniqueIndex;type:varchar(254);not null"`
	OwnerID      string         `json:"ownerId" gorm:"type:varchar(36);index;not null"`
	DomainID     string         `json:"domainId" gorm:"type:varchar(36);index;not null"`
	PasswordHash string         `json:"-" gorm:"type:varchar(255)"`
	State        ProvisionState `json:"state" gorm:"type:varchar(20);default:'local_only';index"`

	// 邮件服务器连接参数（开通成功后填充）
	SMTPHost     string `json:"smtpHost,omitempty" gorm:"type:varchar(255)"`
	SMTPPort     int    `json:"smtpPort,omitempty"`
	SMTPUser     string `json:"smtpUser,omitempty" gorm:"type:varchar(255)"`
	SMTPPassword string `json:"-" gorm:"type:text"`

	// IMAPHost 显式的收信主机；为空时从 SMTP 主机按启发式推导
	IMAPHost string `json:"imapHost,omitempty" gorm:"type:varchar(255)"`

	StorageUsedGB float64   `json:"storageUsedGb" gorm:"type:decimal(10,3);default:0"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// LocalPart 返回地址 @ 之前的部分
func (a *EmailAccount) LocalPart() string {
	if i := strings.Index(a.Address, "@"); i >= 0 {
		return a.Address[:i]
	}
	return a.Address
}

// HasSMTPCredentials 判断邮箱自身凭据是否完整（host+user+password）
func (a *EmailAccount) HasSMTPCredentials() bool {
	return a.SMTPHost != "" && a.SMTPUser != "" && a.SMTPPassword != ""
}

// EmailAccountRepository 邮箱仓储接口
type EmailAccountRepository interface {
	// SaveEmailAccount 保存（插入或更新）邮箱
	SaveEmailAccount(a *EmailAccount) error

	// GetEmailAccount 根据 ID 获取邮箱
	GetEmailAccount(id string) (*EmailAccount, error)

	// GetEmailAccountByAddress 根据地址获取邮箱
	GetEmailAccountByAddress(address string) (*EmailAccount, error)

	// ListEmailAccountsByOwner 获取用户的全部邮箱
	ListEmailAccountsByOwner(ownerID string) ([]*EmailAccount, error)

	// ListEmailAccountsByState 按开通状态筛选邮箱（运维工具查询 local_only 用）
	ListEmailAccountsByState(state ProvisionState) ([]*EmailAccount, error)

	// CountEmailAccountsByOwner 统计用户的邮箱数量
	CountEmailAccountsByOwner(ownerID string) (int, error)

	// CountEmailAccountsByDomain 统计域名下的邮箱数量
	CountEmailAccountsByDomain(domainID string) (int, error)

	// SumStorageUsedByOwner 汇总用户全部邮箱的已用存储（GB）
	SumStorageUsedByOwner(ownerID string) (float64, error)

	// DeleteEmailAccount 删除邮箱
	DeleteEmailAccount(id string) error
}
