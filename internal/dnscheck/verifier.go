package dnscheck

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Resolver 抽象 DNS 查询，*net.Resolver 直接满足该接口
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// ResultCache 可选的验证结果缓存（Redis 实现，nil 表示禁用）
type ResultCache interface {
	GetResult(ctx context.Context, domain string) (*Result, bool)
	SetResult(ctx context.Context, domain string, result *Result)
}

// Result DNS 验证结果
//
// 每项查询失败只降级为 false，永远不向调用方返回错误。
type Result struct {
	MXOK       bool      `json:"mxOk"`
	MXValue    string    `json:"mxValue,omitempty"`
	SPFOK      bool      `json:"spfOk"`
	SPFValue   string    `json:"spfValue,omitempty"`
	DKIMOK     bool      `json:"dkimOk"`
	DKIMValue  string    `json:"dkimValue,omitempty"`
	DMARCOK    bool      `json:"dmarcOk"`
	DMARCValue string    `json:"dmarcValue,omitempty"`
	OverallOK  bool      `json:"overallOk"`
	CheckedAt  time.Time `json:"checkedAt"`
}

// Record 用户需要发布的一条 DNS 记录说明
type Record struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// DKIM 选择器固定为 "default"，与已发布记录保持兼容
const dkimSelector = "default"

const defaultLookupTimeout = 5 * time.Second

// Verifier DNS 验证器
type Verifier struct {
	resolver Resolver
	cache    ResultCache
	timeout  time.Duration
	logger   *zap.Logger
}

// NewVerifier 创建 DNS 验证器
//
// resolver 为 nil 时使用系统解析器；cache 为 nil 时禁用缓存。
func NewVerifier(resolver Resolver, cache ResultCache, logger *zap.Logger) *Verifier {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		resolver: resolver,
		cache:    cache,
		timeout:  defaultLookupTimeout,
		logger:   logger,
	}
}

// Verify 实时验证域名的 MX/SPF/DKIM/DMARC 记录
//
// OverallOK = MXOK && SPFOK；DKIM/DMARC 仅供参考，不参与判定。
// 显式验证请求必须走此方法，不信任缓存结果。
func (v *Verifier) Verify(ctx context.Context, domainName string) *Result {
	result := &Result{CheckedAt: time.Now().UTC()}

	result.MXOK, result.MXValue = v.checkMX(ctx, domainName)
	result.SPFOK, result.SPFValue = v.checkTXT(ctx, domainName, "v=spf1", prefixMatch)
	result.DKIMOK, result.DKIMValue = v.checkTXT(ctx, dkimSelector+"._domainkey."+domainName, "v=DKIM1", containsMatch)
	result.DMARCOK, result.DMARCValue = v.checkTXT(ctx, "_dmarc."+domainName, "v=DMARC1", prefixMatch)
	result.OverallOK = result.MXOK && result.SPFOK

	if v.cache != nil {
		v.cache.SetResult(ctx, domainName, result)
	}

	return result
}

// VerifyCached 返回缓存结果，未命中时回退实时验证
//
// 仅用于展示场景（如域名列表），显式验证请求应调用 Verify。
func (v *Verifier) VerifyCached(ctx context.Context, domainName string) *Result {
	if v.cache != nil {
		if cached, ok := v.cache.GetResult(ctx, domainName); ok {
			return cached
		}
	}
	return v.Verify(ctx, domainName)
}

// Instructions 返回用户需要发布的 DNS 记录清单，纯格式化无网络访问
func (v *Verifier) Instructions(domainName string) []Record {
	return []Record{
		{Name: domainName, Type: "MX", Value: "10 mail." + domainName},
		{Name: domainName, Type: "TXT", Value: "v=spf1 mx ~all"},
		{Name: dkimSelector + "._domainkey." + domainName, Type: "TXT", Value: "v=DKIM1; k=rsa; p=<your-public-key>"},
		{Name: "_dmarc." + domainName, Type: "TXT", Value: "v=DMARC1; p=none; rua=mailto:postmaster@" + domainName},
	}
}

func (v *Verifier) checkMX(ctx context.Context, domainName string) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	records, err := v.resolver.LookupMX(ctx, domainName)
	if err != nil || len(records) == 0 {
		if err != nil {
			v.logger.Debug("mx lookup failed", zap.String("domain", domainName), zap.Error(err))
		}
		return false, ""
	}

	// 取优先级最低（优先级数值最小）的记录
	sort.Slice(records, func(i, j int) bool { return records[i].Pref < records[j].Pref })
	best := records[0]
	return true, fmt.Sprintf("%d %s", best.Pref, trimDot(best.Host))
}

type matchMode int

const (
	prefixMatch matchMode = iota
	containsMatch
)

func (v *Verifier) checkTXT(ctx context.Context, name, marker string, mode matchMode) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	values, err := v.resolver.LookupTXT(ctx, name)
	if err != nil {
		v.logger.Debug("txt lookup failed", zap.String("name", name), zap.Error(err))
		return false, ""
	}

	for _, value := range values {
		if matches(value, marker, mode) {
			return true, value
		}
	}
	return false, ""
}

func matches(value, marker string, mode matchMode) bool {
	if mode == containsMatch {
		return strings.Contains(value, marker)
	}
	return strings.HasPrefix(value, marker)
}

func trimDot(host string) string {
	return strings.TrimSuffix(host, ".")
}
