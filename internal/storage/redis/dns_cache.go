package redis

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"mailhost/backend/internal/dnscheck"
)

// DNS 验证结果缓存的默认有效期。
// 显式验证请求绕过缓存，此 TTL 只影响列表展示类查询。
const dnsResultTTL = 5 * time.Minute

// DNSCache 基于 Redis 的 DNS 验证结果缓存，实现 dnscheck.ResultCache
type DNSCache struct {
	client *Client
}

// NewDNSCache 创建缓存；client 为 nil 时返回 nil（禁用缓存）
func NewDNSCache(client *Client) *DNSCache {
	if client == nil {
		return nil
	}
	return &DNSCache{client: client}
}

// GetResult 实现 dnscheck.ResultCache
func (c *DNSCache) GetResult(ctx context.Context, domainName string) (*dnscheck.Result, bool) {
	if c == nil {
		return nil, false
	}

	data, err := c.client.rdb.Get(ctx, "dns:"+domainName).Result()
	if err != nil {
		return nil, false
	}

	var result dnscheck.Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, false
	}
	return &result, true
}

// SetResult 实现 dnscheck.ResultCache
func (c *DNSCache) SetResult(ctx context.Context, domainName string, result *dnscheck.Result) {
	if c == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.rdb.Set(ctx, "dns:"+domainName, data, dnsResultTTL).Err(); err != nil {
		c.client.log.Warn("failed to cache dns result", zap.String("domain", domainName), zap.Error(err))
	}
}
