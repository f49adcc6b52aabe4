package httptransport

import (
	"github.com/gin-gonic/gin"

	"mailhost/backend/internal/service"
)

// AccountHandler 邮箱账号处理器
type AccountHandler struct {
	accounts *service.AccountService
}

// NewAccountHandler 创建邮箱账号处理器
func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type createAccountRequest struct {
	DomainID string `json:"domainId" binding:"required"`
	Address  string `json:"address" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type reprovisionRequest struct {
	Password string `json:"password"`
}

// CreateAccount 创建邮箱账号
//
// 外部开通失败不算请求失败：响应里 smtpConfigured=false、
// smtpError 说明原因，邮箱以 local_only 状态返回 201。
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req createAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	result, err := h.accounts.CreateAccount(c.Request.Context(), currentUserID(c), req.DomainID, req.Address, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	Created(c, result)
}

// ListAccounts 列出当前用户的邮箱账号
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	accounts, err := h.accounts.ListAccounts(currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	Success(c, gin.H{
		"items": accounts,
		"count": len(accounts),
	})
}

// GetAccount 获取邮箱账号详情
func (h *AccountHandler) GetAccount(c *gin.Context) {
	account, err := h.accounts.GetAccount(currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, account)
}

// DeleteAccount 删除邮箱账号（先外部注销，再删本地记录）
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	if err := h.accounts.DeleteAccount(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	NoContent(c)
}

// ReprovisionAccount 对 local_only 邮箱重试外部开通
func (h *AccountHandler) ReprovisionAccount(c *gin.Context) {
	var req reprovisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, MsgInvalidRequest)
			return
		}
	}

	result, err := h.accounts.ReprovisionAccount(c.Request.Context(), currentUserID(c), c.Param("id"), req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, result)
}
