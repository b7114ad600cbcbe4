package monitor

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deusflow/headwatch/internal/metrics"
	"github.com/deusflow/headwatch/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, s *Server, path string) (int, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Router().ServeHTTP(w, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealth_OK(t *testing.T) {
	m := metrics.New()
	m.SetState("running")
	m.RecordCycle(time.Second)

	code, body := get(t, NewServer(m, nil), "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "running", body["state"])
	assert.NotEmpty(t, body["last_run"])
}

func TestHealth_Unhealthy(t *testing.T) {
	m := metrics.New()
	m.SetError("failed to persist seen headlines: disk full")

	code, body := get(t, NewServer(m, nil), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["last_error"], "disk full")
}

func TestMetrics(t *testing.T) {
	m := metrics.New()
	m.AddHeadlinesMatched(3)
	m.AddRecordsWritten(2)

	code, body := get(t, NewServer(m, nil), "/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), body["headlines_matched"])
	assert.Equal(t, float64(2), body["records_written"])
}

func TestMetrics_IncludesQuota(t *testing.T) {
	quota := ratelimit.NewQuotaLimiter(map[string]int{"gemini": 200})
	require.NoError(t, quota.Use("gemini"))

	code, body := get(t, NewServer(metrics.New(), quota), "/metrics")
	assert.Equal(t, http.StatusOK, code)

	q, ok := body["quota"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), q["gemini_used"])
	assert.Equal(t, float64(200), q["gemini_limit"])
	assert.NotEmpty(t, q["reset_time"])
}

func TestMetrics_WithoutQuota(t *testing.T) {
	_, body := get(t, NewServer(metrics.New(), nil), "/metrics")
	assert.NotContains(t, body, "quota")
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(metrics.New(), nil).ListenAndServe(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
