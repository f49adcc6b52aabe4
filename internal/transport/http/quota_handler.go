package httptransport

import (
	"github.com/gin-gonic/gin"

	"mailhost/backend/internal/service"
)

// QuotaHandler 配额查询处理器
type QuotaHandler struct {
	quota *service.QuotaService
}

// NewQuotaHandler 创建配额处理器
func NewQuotaHandler(quota *service.QuotaService) *QuotaHandler {
	return &QuotaHandler{quota: quota}
}

// GetQuota 返回当前用户的套餐上限与实时用量
func (h *QuotaHandler) GetQuota(c *gin.Context) {
	limits, err := h.quota.GetLimits(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, limits)
}
