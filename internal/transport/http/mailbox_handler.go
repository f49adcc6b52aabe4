package httptransport

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"mailhost/backend/internal/service"
)

// MailboxHandler 收发件处理器
type MailboxHandler struct {
	mailbox *service.MailboxService
}

// NewMailboxHandler 创建收发件处理器
func NewMailboxHandler(mailbox *service.MailboxService) *MailboxHandler {
	return &MailboxHandler{mailbox: mailbox}
}

type sendRequest struct {
	EmailAccountID string `json:"emailAccountId" binding:"required"`
	To             string `json:"to" binding:"required"`
	Subject        string `json:"subject"`
	Message        string `json:"message"`
}

// Send 发送邮件
//
// 投递失败（拒信、无可用后端）返回 200，结果在 data.sent 与 data.error 里；
// 只有归属校验、参数错误等前置问题返回非 2xx。
func (h *MailboxHandler) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.mailbox.Send(c.Request.Context(), currentUserID(c), req.EmailAccountID, req.To, req.Subject, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, result)
}

// Inbox 获取收件箱，sync=true 时先尽力同步一轮远端邮件
func (h *MailboxHandler) Inbox(c *gin.Context) {
	accountID := c.Query("emailAccountId")
	if accountID == "" {
		BadRequest(c, "emailAccountId is required")
		return
	}
	sync, _ := strconv.ParseBool(c.Query("sync"))

	messages, err := h.mailbox.Inbox(c.Request.Context(), currentUserID(c), accountID, sync)
	if err != nil {
		respondError(c, err)
		return
	}

	Success(c, gin.H{
		"items": messages,
		"count": len(messages),
	})
}

// Sent 获取发件箱（包含投递失败的邮件）
func (h *MailboxHandler) Sent(c *gin.Context) {
	accountID := c.Query("emailAccountId")
	if accountID == "" {
		BadRequest(c, "emailAccountId is required")
		return
	}

	messages, err := h.mailbox.Sent(currentUserID(c), accountID)
	if err != nil {
		respondError(c, err)
		return
	}

	Success(c, gin.H{
		"items": messages,
		"count": len(messages),
	})
}

// UpdateFlags 更新邮件标记位（未提供的字段保持不变）
func (h *MailboxHandler) UpdateFlags(c *gin.Context) {
	accountID := c.Query("emailAccountId")
	if accountID == "" {
		BadRequest(c, "emailAccountId is required")
		return
	}

	var updates service.FlagUpdates
	if err := c.ShouldBindJSON(&updates); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	message, err := h.mailbox.UpdateFlags(currentUserID(c), accountID, c.Param("id"), updates)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, message)
}

// DeleteMessage 物理删除邮件，要求先软删除
func (h *MailboxHandler) DeleteMessage(c *gin.Context) {
	accountID := c.Query("emailAccountId")
	if accountID == "" {
		BadRequest(c, "emailAccountId is required")
		return
	}

	if err := h.mailbox.DeleteMessagePermanently(currentUserID(c), accountID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	NoContent(c)
}
