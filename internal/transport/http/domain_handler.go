package httptransport

import (
	"github.com/gin-gonic/gin"

	"mailhost/backend/internal/domain"
	"mailhost/backend/internal/service"
)

// DomainHandler 域名管理处理器
type DomainHandler struct {
	domains *service.DomainService
}

// NewDomainHandler 创建域名处理器
func NewDomainHandler(domains *service.DomainService) *DomainHandler {
	return &DomainHandler{domains: domains}
}

type addDomainRequest struct {
	DomainName string `json:"domainName" binding:"required"`
}

type updateSMTPRequest struct {
	Provider string `json:"provider" binding:"required"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	APIKey   string `json:"apiKey"`
}

// AddDomain 添加域名并返回 DNS 配置指引
func (h *DomainHandler) AddDomain(c *gin.Context) {
	var req addDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	d, instructions, err := h.domains.AddDomain(c.Request.Context(), currentUserID(c), req.DomainName)
	if err != nil {
		respondError(c, err)
		return
	}

	Created(c, gin.H{
		"domain":          d,
		"dnsInstructions": instructions,
	})
}

// ListDomains 列出当前用户的域名
func (h *DomainHandler) ListDomains(c *gin.Context) {
	domains, err := h.domains.ListDomains(currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	Success(c, gin.H{
		"items": domains,
		"count": len(domains),
	})
}

// GetDomain 获取域名详情及展示用 DNS 状态（缓存优先）
func (h *DomainHandler) GetDomain(c *gin.Context) {
	d, status, err := h.domains.DomainStatus(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, gin.H{
		"domain":    d,
		"dnsStatus": status,
	})
}

// VerifyDomain 实时重验域名 DNS 配置
func (h *DomainHandler) VerifyDomain(c *gin.Context) {
	outcome, err := h.domains.VerifyDomain(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, outcome)
}

// GetInstructions 获取域名需要发布的 DNS 记录清单
func (h *DomainHandler) GetInstructions(c *gin.Context) {
	instructions, err := h.domains.Instructions(currentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, gin.H{"dnsInstructions": instructions})
}

// UpdateSMTPConfig 更新域名级发信配置
func (h *DomainHandler) UpdateSMTPConfig(c *gin.Context) {
	var req updateSMTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	d, err := h.domains.UpdateSMTPConfig(c.Request.Context(), currentUserID(c), c.Param("id"), service.SMTPConfigUpdate{
		Provider: domain.SMTPProvider(req.Provider),
		Host:     req.Host,
		Port:     req.Port,
		User:     req.User,
		Password: req.Password,
		APIKey:   req.APIKey,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, d)
}

// DeleteDomain 删除域名，存在依赖邮箱时返回 400 与数量
func (h *DomainHandler) DeleteDomain(c *gin.Context) {
	if err := h.domains.DeleteDomain(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	NoContent(c)
}
