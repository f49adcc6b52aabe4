package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwtpkg "mailhost/backend/internal/auth/jwt"
	"mailhost/backend/internal/config"
	"mailhost/backend/internal/delivery"
	"mailhost/backend/internal/dnscheck"
	"mailhost/backend/internal/domain"
	"mailhost/backend/internal/mailsync"
	"mailhost/backend/internal/service"
	"mailhost/backend/internal/storage/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var errNoHost = errors.New("no such host")

// testResolver 预置 MX/SPF 全绿的 DNS 应答
type testResolver struct{ domains map[string]bool }

func (r *testResolver) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	if r.domains[name] {
		return []*net.MX{{Host: "mail." + name + ".", Pref: 10}}, nil
	}
	return nil, errNoHost
}

func (r *testResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	if r.domains[name] {
		return []string{"v=spf1 mx ~all"}, nil
	}
	return nil, errNoHost
}

type testEnv struct {
	router *gin.Engine
	store  *memory.Store
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()

	quota := service.NewQuotaService(store, nil, nil)
	verifier := dnscheck.NewVerifier(&testResolver{domains: map[string]bool{"example.com": true}}, nil, nil)
	domains := service.NewDomainService(store, quota, verifier, nil, nil, nil)
	accounts := service.NewAccountService(store, quota, nil, nil, nil, nil)
	router := delivery.NewRouter(store, nil, nil, nil)
	syncer := mailsync.NewSyncer(store, nil, config.SyncConfig{}, "", nil)
	mailbox := service.NewMailboxService(store, router, syncer, nil, nil)

	jwtManager := jwtpkg.NewManager("test-secret-that-is-long-enough-123", "mailhost", time.Hour, 24*time.Hour)
	pair, err := jwtManager.GenerateTokenPair("u1", "user@example.com")
	require.NoError(t, err)

	engine := NewRouter(RouterDependencies{
		Config:         &config.Config{},
		DomainService:  domains,
		AccountService: accounts,
		MailboxService: mailbox,
		QuotaService:   quota,
		JWTManager:     jwtManager,
	})

	return &testEnv{router: engine, store: store, token: pair.AccessToken}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+e.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp struct {
		Code int                    `json:"code"`
		Msg  string                 `json:"msg"`
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/domains", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDomainEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("创建域名返回DNS指引", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/domains", gin.H{"domainName": "example.com"})
		require.Equal(t, http.StatusCreated, w.Code)

		data := decodeData(t, w)
		require.NotNil(t, data["domain"])
		instructions := data["dnsInstructions"].([]interface{})
		assert.Len(t, instructions, 4)
	})

	t.Run("重复创建返回409", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/domains", gin.H{"domainName": "example.com"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("超出配额返回403与LIMIT_REACHED", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/domains", gin.H{"domainName": "second.com"})
		require.Equal(t, http.StatusForbidden, w.Code)

		data := decodeData(t, w)
		assert.Equal(t, "LIMIT_REACHED", data["code"])
	})

	t.Run("验证域名刷新状态", func(t *testing.T) {
		domains, err := env.store.ListMailDomainsByOwner("u1")
		require.NoError(t, err)
		require.Len(t, domains, 1)

		w := env.do(t, http.MethodPost, "/v1/domains/"+domains[0].ID+"/verify", nil)
		require.Equal(t, http.StatusOK, w.Code)

		data := decodeData(t, w)
		result := data["dnsResult"].(map[string]interface{})
		assert.Equal(t, true, result["overallOk"])
	})

	t.Run("有依赖邮箱时删除返回400与数量", func(t *testing.T) {
		domains, err := env.store.ListMailDomainsByOwner("u1")
		require.NoError(t, err)
		d := domains[0]

		require.NoError(t, env.store.SaveEmailAccount(&domain.EmailAccount{
			ID: "a1", Address: "a@example.com", OwnerID: "u1", DomainID: d.ID,
		}))

		w := env.do(t, http.MethodDelete, "/v1/domains/"+d.ID, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)

		data := decodeData(t, w)
		assert.Equal(t, float64(1), data["emailAccountsCount"])

		require.NoError(t, env.store.DeleteEmailAccount("a1"))
	})
}

func TestAccountEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/domains", gin.H{"domainName": "example.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	domains, err := env.store.ListMailDomainsByOwner("u1")
	require.NoError(t, err)
	domainID := domains[0].ID

	t.Run("开通器未配置时创建为local_only", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/email-accounts", gin.H{
			"domainId": domainID,
			"address":  "alice@example.com",
			"password": "secret-password",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		data := decodeData(t, w)
		assert.Equal(t, false, data["smtpConfigured"])
		assert.NotEmpty(t, data["smtpError"])

		account := data["account"].(map[string]interface{})
		assert.Equal(t, "local_only", account["state"])
	})

	t.Run("地址与域名不匹配返回400", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/email-accounts", gin.H{
			"domainId": domainID,
			"address":  "bob@other.com",
			"password": "secret-password",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("超出邮箱配额返回403", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/email-accounts", gin.H{
			"domainId": domainID,
			"address":  "carol@example.com",
			"password": "secret-password",
		})
		require.Equal(t, http.StatusForbidden, w.Code)

		data := decodeData(t, w)
		assert.Equal(t, "LIMIT_REACHED", data["code"])
	})
}

func TestMailboxEndpoints(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.store.SaveEmailAccount(&domain.EmailAccount{
		ID: "a1", Address: "alice@example.com", OwnerID: "u1", DomainID: "d1",
	}))

	t.Run("无投递后端时发送返回200但sent=false", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/v1/mailbox/send", gin.H{
			"emailAccountId": "a1",
			"to":             "bob@other.com",
			"subject":        "hello",
			"message":        "text",
		})
		require.Equal(t, http.StatusOK, w.Code)

		data := decodeData(t, w)
		assert.Equal(t, false, data["sent"])
		assert.NotEmpty(t, data["error"])
	})

	t.Run("发件箱包含投递失败的邮件", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/v1/mailbox/sent?emailAccountId=a1", nil)
		require.Equal(t, http.StatusOK, w.Code)

		data := decodeData(t, w)
		assert.Equal(t, float64(1), data["count"])
	})

	t.Run("标记位部分更新", func(t *testing.T) {
		require.NoError(t, env.store.SaveMessage(&domain.Message{
			ID: "m1", AccountID: "a1", Direction: domain.DirectionReceived, ReceivedAt: time.Now().UTC(),
		}))

		w := env.do(t, http.MethodPatch, "/v1/mailbox/messages/m1/flags?emailAccountId=a1", gin.H{"read": true})
		require.Equal(t, http.StatusOK, w.Code)

		msg, err := env.store.GetMessage("a1", "m1")
		require.NoError(t, err)
		assert.True(t, msg.IsRead)
	})

	t.Run("未软删除禁止物理删除", func(t *testing.T) {
		w := env.do(t, http.MethodDelete, "/v1/mailbox/messages/m1?emailAccountId=a1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("软删除后物理删除成功", func(t *testing.T) {
		w := env.do(t, http.MethodPatch, "/v1/mailbox/messages/m1/flags?emailAccountId=a1", gin.H{"deleted": true})
		require.Equal(t, http.StatusOK, w.Code)

		w = env.do(t, http.MethodDelete, "/v1/mailbox/messages/m1?emailAccountId=a1", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestQuotaEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/quota", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, "free", data["planName"])
	assert.Equal(t, float64(1), data["maxMailboxes"])
	assert.Equal(t, float64(0), data["usedMailboxes"])
}
