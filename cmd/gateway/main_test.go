package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admission-gateway/internal/server"
	"admission-gateway/middleware/admission/domain"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigCmd_PrintsEffectiveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
upstream:
  simulate: true
stats:
  redis_password: hunter2
`), 0o600))

	out, err := execute(t, "--config", path, "config")
	require.NoError(t, err)

	assert.Contains(t, out, "requests_per_minute: 60")
	assert.Contains(t, out, "queue_timeout: 30s")
	assert.Contains(t, out, "simulate: true")
	assert.NotContains(t, out, "hunter2")
}

func TestConfigCmd_InvalidConfigFails(t *testing.T) {
	t.Setenv("GATEWAY_UPSTREAM_SIMULATE", "true")
	t.Setenv("GATEWAY_RATE_LIMIT_BURST_SIZE", "0")

	_, err := execute(t, "config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit.burst_size")
}

func TestStatsCmd_RendersTables(t *testing.T) {
	metrics := server.MetricsResponse{
		RequestCount:    10,
		ErrorCount:      2,
		ErrorRate:       0.2,
		AvgResponseTime: 1.5,
		EndpointStats: map[string]server.EndpointMetrics{
			"/text-to-image": {Count: 8, ErrorCount: 2, AvgResponseTime: 1.8},
			"/health":        {Count: 2},
		},
		ErrorStats:  map[string]int64{domain.KindRateLimitExceeded: 2},
		Concurrency: domain.GateStats{Active: 1, Capacity: 4, MaxQueue: 8},
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/metrics", r.URL.Path)
		_ = json.NewEncoder(w).Encode(metrics)
	}))
	defer ts.Close()

	out, err := execute(t, "stats", "--addr", ts.URL)
	require.NoError(t, err)

	assert.Contains(t, out, "/text-to-image")
	assert.Contains(t, out, "20.00%")
	assert.Contains(t, out, "1/4")
	assert.Contains(t, out, domain.KindRateLimitExceeded)
}

func TestStatsCmd_JSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(server.MetricsResponse{RequestCount: 3})
	}))
	defer ts.Close()

	out, err := execute(t, "stats", "--addr", ts.URL, "--json")
	require.NoError(t, err)

	var m server.MetricsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, int64(3), m.RequestCount)
}

func TestStatsCmd_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	_, err := execute(t, "stats", "--addr", ts.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
