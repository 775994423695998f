package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kestrel-data/resolve-engine/pkg/config"
	"github.com/kestrel-data/resolve-engine/pkg/resolver"
)

func newTestHandler() *HealthHandler {
	cfg := &config.Config{Env: "test", Version: "1.0.0"}
	res := resolver.New(config.ResolverConfig{}, resolver.NewUserPreferenceStore(), zap.NewNop())
	return NewHealthHandler(cfg, res, zap.NewNop())
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestPingEndpoint(t *testing.T) {
	h := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	h.Ping(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var response PingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "1.0.0", response.Version)
	assert.Equal(t, "resolve-engine", response.Service)
	assert.False(t, response.IndexReady, "no index activated yet")
}
