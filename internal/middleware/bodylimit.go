package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	// DefaultBodyLimit 普通 API 请求的请求体上限
	DefaultBodyLimit = 1 * 1024 * 1024 // 1MB

	// MailBodyLimit 发信端点的请求体上限，对齐常见邮件服务器的消息大小限制
	MailBodyLimit = 25 * 1024 * 1024 // 25MB
)

// BodySizeLimit 限制请求体大小的中间件
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBytes),
				"limit": maxBytes,
				"size":  c.Request.ContentLength,
			})
			c.Abort()
			return
		}

		// Content-Length 可能缺失或撒谎，读取时仍然强制截断
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Header("X-Max-Body-Size", strconv.FormatInt(maxBytes, 10))

		c.Next()
	}
}
