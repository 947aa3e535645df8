package observability

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLogLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLogLevel("ERROR"))
	assert.Equal(t, InfoLevel, ParseLogLevel("info"))
	assert.Equal(t, InfoLevel, ParseLogLevel("nonsense"))
}

func TestLoggerStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("domain", "alohawaii.travel").
		WithError(assert.AnError).
		Info("sign-in lifecycle")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "sign-in lifecycle", line["msg"])
	assert.Equal(t, "alohawaii.travel", line["domain"])
	assert.NotEmpty(t, line["error"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WarnLevel, &buf)

	logger.Info("suppressed")
	assert.Empty(t, buf.Bytes())

	logger.Warn("emitted")
	assert.NotEmpty(t, buf.Bytes())
}

func TestMetricsRecord(t *testing.T) {
	metrics := NewMetrics(nil)

	// Recording must not panic and the scrape endpoint must serve.
	metrics.RecordHTTPRequest(http.MethodGet, "/api/external/tours", http.StatusOK, 5*time.Millisecond)
	metrics.RecordGateDecision("internal", "role_insufficient", false)
	metrics.RecordSignIn("created")

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "alohawaii_http_requests_total")
	assert.Contains(t, body, "alohawaii_gate_decisions_total")
	assert.Contains(t, body, "alohawaii_sign_ins_total")
}

func TestHealthLiveness(t *testing.T) {
	checker := NewHealthChecker(nil)

	rec := httptest.NewRecorder()
	checker.Liveness(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthReadinessWithoutDB(t *testing.T) {
	checker := NewHealthChecker(nil)

	rec := httptest.NewRecorder()
	checker.Readiness(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(t.Context(), "req-123")
	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(t.Context()))
}
