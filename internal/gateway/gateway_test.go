// ABOUTME: Tests for gateway lifecycle and health endpoints
// ABOUTME: Covers construction, readiness via store ping, and graceful shutdown

package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/convo-gateway/internal/config"
	"github.com/2389/convo-gateway/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			HTTPAddr:          "127.0.0.1:0",
			ReadHeaderTimeout: time.Second,
			ShutdownTimeout:   time.Second,
		},
		Database: config.DatabaseConfig{
			Driver: "sqlite",
			Path:   filepath.Join(t.TempDir(), "gateway.db"),
		},
		Webhook: config.WebhookConfig{
			MaxBodyBytes: 1 << 20,
			DedupeTTL:    time.Minute,
			DedupeSize:   100,
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestGateway creates a gateway backed by a temporary SQLite database.
func newTestGateway(t *testing.T, opts ...func(*config.Config)) *Gateway {
	t.Helper()

	cfg := testConfig(t)
	for _, opt := range opts {
		opt(cfg)
	}

	gw, err := New(cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = gw.closeComponents()
	})
	return gw
}

func serve(gw *Gateway, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNew_InvalidDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "postgres"

	_, err := New(cfg, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initializing store")
}

func TestNew_MemoryDatabase(t *testing.T) {
	gw := newTestGateway(t, func(c *config.Config) { c.Database.Path = ":memory:" })

	rec := serve(gw, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNew_AppliesDefaultsForZeroValues(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.ReadHeaderTimeout = 0

	gw, err := newGateway(cfg, store.NewMockStore(), nil)
	require.NoError(t, err)
	defer gw.closeComponents()

	assert.Equal(t, config.DefaultReadHeaderTimeout, gw.httpServer.ReadHeaderTimeout)
	assert.Nil(t, gw.verifier, "no secret means no verifier")
}

func TestHandleHealth(t *testing.T) {
	gw := newTestGateway(t)

	rec := serve(gw, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHandleReady(t *testing.T) {
	mock := store.NewMockStore()
	gw, err := newGateway(testConfig(t), mock, discardLogger())
	require.NoError(t, err)
	defer gw.closeComponents()

	rec := serve(gw, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", rec.Body.String())

	mock.PingErr = errors.New("disk I/O error")
	rec = serve(gw, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk", "store details stay in the log")
}

func TestRun_ServesUntilCanceled(t *testing.T) {
	// Reserve a free port, then hand it to the gateway
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	gw := newTestGateway(t, func(c *config.Config) { c.Server.HTTPAddr = addr })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gw.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	_, err = http.Get("http://" + addr + "/health")
	assert.Error(t, err, "server must stop accepting connections")
}

func TestRun_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	gw := newTestGateway(t, func(c *config.Config) { c.Server.HTTPAddr = ln.Addr().String() })

	err = gw.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listening on HTTP address")
}
