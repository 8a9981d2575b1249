package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jerseyprint/internal/config"
)

func TestEnsureLogDir(t *testing.T) {
	require.NoError(t, ensureLogDir(""))
	require.NoError(t, ensureLogDir("app.log"))

	dir := filepath.Join(t.TempDir(), "nested", "logs")
	require.NoError(t, ensureLogDir(filepath.Join(dir, "jerseyprint.log")))
	st, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, st.IsDir())
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  public_base_url: "https://shop.test"
storage:
  root: "`+filepath.Join(t.TempDir(), "files")+`"
notify:
  webhook_url: "your-webhook-url"
`), 0o644))
	return config.LoadFrom(path)
}

func TestWireWithoutDatabase(t *testing.T) {
	cfg := testConfig(t)
	svc := wire(context.Background(), cfg)
	t.Cleanup(svc.close)
	assert.Nil(t, svc.pool)
	assert.Nil(t, svc.rdb)

	resp, err := svc.app.Test(httptest.NewRequest(http.MethodGet, "/v1/render/layout?width=511&height=438&mode=template", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/v1/render/template", strings.NewReader(`{"name":"ava","number":"8"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err = svc.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get(fiber.HeaderContentType))

	req = httptest.NewRequest(http.MethodPost, "/v1/orders", strings.NewReader(`{"productId":"p1"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err = svc.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	// admin routes stay closed while no token store is loaded
	resp, err = svc.app.Test(httptest.NewRequest(http.MethodGet, "/v1/stores", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/v1/stores", nil)
	req.Header.Set("X-API-Key", "anything")
	resp, err = svc.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	var body struct {
		Error struct {
			Code int `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, fiber.StatusServiceUnavailable, body.Error.Code)
}

func TestWireWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Cache.RedisHost = mr.Addr()
	cfg.Cache.IdempotencyTTL = time.Minute

	svc := wire(context.Background(), cfg)
	t.Cleanup(svc.close)
	require.NotNil(t, svc.rdb)
	require.NoError(t, svc.rdb.Ping(context.Background()).Err())
}
