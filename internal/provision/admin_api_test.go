package provision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailhost/backend/internal/config"
)

func newTestAPI(t *testing.T, handler http.HandlerFunc) *AdminAPI {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewAdminAPI(config.ProvisionConfig{
		BaseURL:  server.URL,
		APIKey:   "test-key",
		SMTPHost: "smtp.mailhost.test",
		SMTPPort: 587,
		Timeout:  2 * time.Second,
	}, nil)
}

func TestAdminAPICreate(t *testing.T) {
	t.Run("创建成功返回连接参数", func(t *testing.T) {
		api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v1/mailboxes", r.URL.Path)
			assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))

			var req createMailboxRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "alice@example.com", req.Address)
			assert.Equal(t, "example.com", req.Domain)

			w.WriteHeader(http.StatusCreated)
		})

		creds, err := api.Create(context.Background(), "alice@example.com", "secret123", "example.com")
		require.NoError(t, err)
		assert.Equal(t, "smtp.mailhost.test", creds.Host)
		assert.Equal(t, 587, creds.Port)
		assert.Equal(t, "alice@example.com", creds.User)
	})

	t.Run("账号已存在视为成功", func(t *testing.T) {
		api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"mailbox already exists"}`))
		})

		creds, err := api.Create(context.Background(), "alice@example.com", "secret123", "example.com")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", creds.User)
	})

	t.Run("服务器错误返回错误信息", func(t *testing.T) {
		api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"disk full"}`))
		})

		_, err := api.Create(context.Background(), "alice@example.com", "secret123", "example.com")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})

	t.Run("幂等性: 连续两次创建都成功且用户名一致", func(t *testing.T) {
		calls := 0
		api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusCreated)
				return
			}
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"mailbox already exists"}`))
		})

		first, err := api.Create(context.Background(), "bob@example.com", "secret123", "example.com")
		require.NoError(t, err)
		second, err := api.Create(context.Background(), "bob@example.com", "secret123", "example.com")
		require.NoError(t, err)
		assert.Equal(t, first.User, second.User)
	})
}

func TestAdminAPIDelete(t *testing.T) {
	t.Run("删除成功", func(t *testing.T) {
		api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodDelete, r.Method)
			assert.Equal(t, "/api/v1/mailboxes/alice@example.com", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		})

		assert.NoError(t, api.Delete(context.Background(), "alice@example.com", "example.com"))
	})

	t.Run("账号不存在视为成功", func(t *testing.T) {
		api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		assert.NoError(t, api.Delete(context.Background(), "ghost@example.com", "example.com"))
	})

	t.Run("服务器错误返回错误", func(t *testing.T) {
		api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		assert.Error(t, api.Delete(context.Background(), "alice@example.com", "example.com"))
	})
}

func TestAdminAPINotConfigured(t *testing.T) {
	api := NewAdminAPI(config.ProvisionConfig{}, nil)
	require.Nil(t, api)

	_, err := api.Create(context.Background(), "a@x.com", "pw", "x.com")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, api.Delete(context.Background(), "a@x.com", "x.com"), ErrNotConfigured)
}
