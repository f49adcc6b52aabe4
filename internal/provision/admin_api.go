package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"mailhost/backend/internal/config"
)

// AdminAPI 通过邮件服务器的管理 API 开通邮箱账号
//
// 管理面是一个 JSON over HTTP 的接口（mailcow 风格），
// 使用 X-API-Key 头认证。开通成功后下发的 SMTP 连接参数来自配置，
// 而不是管理 API 的响应体。
type AdminAPI struct {
	baseURL  string
	apiKey   string
	smtpHost string
	smtpPort int
	client   *http.Client
	logger   *zap.Logger
}

// NewAdminAPI 创建管理 API 客户端
//
// cfg.BaseURL 为空时返回 nil，表示外部开通未启用。
func NewAdminAPI(cfg config.ProvisionConfig, logger *zap.Logger) *AdminAPI {
	if cfg.BaseURL == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	smtpHost := cfg.SMTPHost
	if smtpHost == "" {
		// 未单独配置时从管理 API 地址推导
		if u, err := url.Parse(cfg.BaseURL); err == nil {
			smtpHost = u.Hostname()
		}
	}

	smtpPort := cfg.SMTPPort
	if smtpPort <= 0 {
		smtpPort = 587
	}

	return &AdminAPI{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type createMailboxRequest struct {
	Address  string `json:"address"`
	Domain   string `json:"domain"`
	Password string `json:"password"`
}

type adminAPIError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Create 在邮件服务器上创建邮箱账号
//
// 幂等：409 或响应体提示账号已存在时按成功处理，返回标准连接参数。
func (a *AdminAPI) Create(ctx context.Context, address, password, domainName string) (*Credentials, error) {
	if a == nil {
		return nil, ErrNotConfigured
	}

	payload, err := json.Marshal(createMailboxRequest{
		Address:  address,
		Domain:   domainName,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/v1/mailboxes", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mail server admin api unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		// 正常创建
	case resp.StatusCode == http.StatusConflict, alreadyExists(body):
		a.logger.Info("mailbox already provisioned on mail server",
			zap.String("address", address))
	default:
		return nil, fmt.Errorf("mail server admin api returned %d: %s", resp.StatusCode, errorMessage(body))
	}

	return &Credentials{
		Host: a.smtpHost,
		Port: a.smtpPort,
		User: address,
	}, nil
}

// Delete 删除邮件服务器上的邮箱账号
//
// 404 视为已删除，返回成功。
func (a *AdminAPI) Delete(ctx context.Context, address, domainName string) error {
	if a == nil {
		return ErrNotConfigured
	}

	endpoint := a.baseURL + "/api/v1/mailboxes/" + url.PathEscape(address)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-API-Key", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail server admin api unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return fmt.Errorf("mail server admin api returned %d: %s", resp.StatusCode, errorMessage(body))
}

func alreadyExists(body []byte) bool {
	return strings.Contains(strings.ToLower(string(body)), "already exists")
}

func errorMessage(body []byte) string {
	var apiErr adminAPIError
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Error != "" {
			return apiErr.Error
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "no response body"
	}
	return msg
}
