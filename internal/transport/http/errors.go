package httptransport

import (
	"errors"

	"github.com/gin-gonic/gin"

	"mailhost/backend/internal/domain"
	"mailhost/backend/internal/service"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	domain.ErrNotFound:         "资源不存在",
	domain.ErrDuplicate:        "资源已存在",
	domain.ErrInvalidDomain:    "域名格式无效",
	domain.ErrInvalidEmail:     "邮箱地址格式无效",
	domain.ErrEmailTooLong:     "邮箱地址过长",
	domain.ErrLocalPartTooLong: "邮箱前缀过长",
	domain.ErrPasswordTooShort: "密码过短（至少8位）",
	domain.ErrPasswordTooLong:  "密码过长（最多128位）",

	service.ErrNotOwner:              "您不是该资源的所有者",
	service.ErrQuotaExceeded:         "已达到套餐限额",
	service.ErrInvalidSMTPConfig:     "SMTP投递配置不完整或无效",
	service.ErrAddressDomainMismatch: "邮箱地址与所选域名不匹配",
	service.ErrNoSyncCredential:      "没有可复用的凭据，请提供密码",
	service.ErrNotSoftDeleted:        "邮件需要先移入回收站才能彻底删除",
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	for sentinel, msg := range errorMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return err.Error()
}

// quotaErrorData 限额错误的结构化载荷，前端据此引导升级套餐
type quotaErrorData struct {
	Code   string `json:"code"`
	Reason string `json:"reason,omitempty"`
}

// respondError 按业务错误类型选择 HTTP 状态码
func respondError(c *gin.Context, err error) {
	var notEmpty *service.DomainNotEmptyError
	switch {
	case errors.As(err, &notEmpty):
		BadRequestWithData(c, "无法删除：该域名下存在邮箱账号", gin.H{
			"emailAccountsCount": notEmpty.Count,
		})
	case errors.Is(err, service.ErrQuotaExceeded):
		ForbiddenWithData(c, GetErrorMessage(err), quotaErrorData{
			Code:   "LIMIT_REACHED",
			Reason: err.Error(),
		})
	case errors.Is(err, service.ErrNotOwner):
		Forbidden(c, GetErrorMessage(err))
	case errors.Is(err, domain.ErrNotFound):
		NotFound(c, GetErrorMessage(err))
	case errors.Is(err, domain.ErrDuplicate):
		Conflict(c, GetErrorMessage(err))
	case errors.Is(err, domain.ErrInvalidDomain),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, domain.ErrEmailTooLong),
		errors.Is(err, domain.ErrLocalPartTooLong),
		errors.Is(err, domain.ErrDomainTooLong),
		errors.Is(err, domain.ErrPasswordTooShort),
		errors.Is(err, domain.ErrPasswordTooLong),
		errors.Is(err, service.ErrInvalidSMTPConfig),
		errors.Is(err, service.ErrAddressDomainMismatch),
		errors.Is(err, service.ErrNoSyncCredential),
		errors.Is(err, service.ErrNotSoftDeleted):
		BadRequest(c, GetErrorMessage(err))
	default:
		InternalError(c, MsgInternalError)
	}
}

// 通用错误消息
const (
	MsgInvalidRequest = "请求参数格式错误"
	MsgInternalError  = "服务器内部错误，请稍后重试"
)
