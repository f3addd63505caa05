package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neorecon/internal/app/server/router"
	"neorecon/internal/config"
	"neorecon/internal/core/model"
	"neorecon/internal/pkg/logger"
	"neorecon/internal/store"
)

func init() {
	logger.InitWriter(io.Discard, "debug")
}

type stubScanner struct{}

func (stubScanner) Scan(_ context.Context, cfg *model.ScanConfig) ([]model.ScanResult, error) {
	return []model.ScanResult{{
		ScanID:    cfg.ID,
		Host:      cfg.Target,
		Hostname:  cfg.Target,
		IsOnline:  true,
		OpenPorts: []model.PortResult{{Port: 22, Service: "ssh", Banner: "SSH-2.0-OpenSSH_5.3"}},
	}}, nil
}

func (stubScanner) QuickScan(_ context.Context, target string, cfg *model.ScanConfig) model.ScanResult {
	return model.ScanResult{ScanID: cfg.ID, Host: target, Hostname: target}
}

func (stubScanner) OTScan(_ context.Context, target string, cfg *model.ScanConfig) model.ScanResult {
	return model.ScanResult{ScanID: cfg.ID, Host: target, Hostname: target,
		OpenPorts: []model.PortResult{{Port: 502, Service: "modbus"}}}
}

type stubLookup map[string]model.Vulnerability

func (s stubLookup) Lookup(_ context.Context, id string) (*model.Vulnerability, bool) {
	v, ok := s[id]
	if !ok {
		return nil, false
	}
	return &v, true
}

func newTestApp(t *testing.T, mutate func(*config.ServerConfig)) http.Handler {
	t.Helper()
	cfg := &config.ServerConfig{
		Host:       "127.0.0.1",
		Port:       0,
		Mode:       gin.TestMode,
		APIVersion: "v1",
		Prefix:     "/api",
	}
	if mutate != nil {
		mutate(cfg)
	}
	app := NewApp(cfg, router.Deps{
		Scanner: stubScanner{},
		Results: store.NewMemoryRepository(),
		CVE:     stubLookup{"CVE-2021-44228": {ID: "CVE-2021-44228", Description: "Log4Shell"}},
	})
	return app.Handler()
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestPingAndVersion(t *testing.T) {
	h := newTestApp(t, nil)

	w, _ := do(t, h, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w, env := do(t, h, http.MethodGet, "/version", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", env.Status)
	assert.Contains(t, string(env.Data), `"api_version":"v1"`)
}

func TestHealth(t *testing.T) {
	h := newTestApp(t, nil)
	w, env := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", env.Message)
	assert.Contains(t, string(env.Data), `"metrics"`)
}

func TestScanLifecycle(t *testing.T) {
	h := newTestApp(t, nil)

	w, env := do(t, h, http.MethodPost, "/api/v1/scans", `{"target":"10.0.0.1","ports":"22","offline":true}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var created struct {
		ScanID  string             `json:"scan_id"`
		Hosts   int                `json:"hosts"`
		Results []model.ScanResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.ScanID)
	assert.Equal(t, 1, created.Hosts)
	assert.Equal(t, "10.0.0.1", created.Results[0].Host)

	w, env = do(t, h, http.MethodGet, "/api/v1/scans/"+created.ScanID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"host":"10.0.0.1"`)

	w, env = do(t, h, http.MethodGet, "/api/v1/scans/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "error", env.Status)
}

func TestScanVariants(t *testing.T) {
	h := newTestApp(t, nil)

	// quick 扫描无开放端口时结果为空数组
	w, env := do(t, h, http.MethodPost, "/api/v1/scans", `{"type":"quick","target":"10.0.0.2"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"results":[]`)

	var created struct {
		ScanID string `json:"scan_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	// 没有主机结果的扫描仍可按 scan_id 查询
	w, env = do(t, h, http.MethodGet, "/api/v1/scans/"+created.ScanID, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), `"hosts":0`)
	assert.Contains(t, string(env.Data), `"results":[]`)

	w, env = do(t, h, http.MethodPost, "/api/v1/scans", `{"type":"ot","target":"10.0.0.3"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"service":"modbus"`)
}

func TestScanValidation(t *testing.T) {
	h := newTestApp(t, nil)

	cases := []struct {
		name string
		body string
	}{
		{"missing target", `{"ports":"22"}`},
		{"bad threads", `{"target":"10.0.0.1","threads":0}`},
		{"bad timeout", `{"target":"10.0.0.1","timeout_ms":10}`},
		{"bad ports", `{"target":"10.0.0.1","ports":"70000"}`},
		{"unsupported type", `{"type":"discover","target":"10.0.0.1"}`},
		{"malformed json", `{"target":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := do(t, h, http.MethodPost, "/api/v1/scans", tc.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "error", env.Status)
		})
	}
}

func TestCVELookup(t *testing.T) {
	h := newTestApp(t, nil)

	w, env := do(t, h, http.MethodGet, "/api/v1/cve/cve-2021-44228", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "Log4Shell")

	w, _ = do(t, h, http.MethodGet, "/api/v1/cve/CVE-1999-0001", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPIKey(t *testing.T) {
	h := newTestApp(t, func(c *config.ServerConfig) { c.APIKey = "s3cret" })

	w, _ := do(t, h, http.MethodGet, "/api/v1/cve/CVE-2021-44228", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, h, http.MethodGet, "/api/v1/cve/CVE-2021-44228", "", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, h, http.MethodGet, "/api/v1/cve/CVE-2021-44228", "", map[string]string{"X-API-Key": "s3cret"})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, h, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	h := newTestApp(t, func(c *config.ServerConfig) {
		c.RateLimit = 0.001
		c.RateBurst = 1
	})

	w, _ := do(t, h, http.MethodGet, "/api/v1/cve/CVE-2021-44228", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, h, http.MethodGet, "/api/v1/cve/CVE-2021-44228", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// 健康检查不受限流影响
	for i := 0; i < 3; i++ {
		w, _ = do(t, h, http.MethodGet, "/ping", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRunShutdown(t *testing.T) {
	cfg := &config.ServerConfig{Host: "127.0.0.1", Port: 0, Mode: gin.TestMode, APIVersion: "v1", Prefix: "/api"}
	app := NewApp(cfg, router.Deps{Scanner: stubScanner{}, Results: store.NewMemoryRepository(), CVE: stubLookup{}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
