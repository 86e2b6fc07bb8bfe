package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/api/complaints", 200, 15*time.Millisecond)
	m.ObserveAI("text", "timeout", 8*time.Second)
	m.ObserveNotification("kafka", "error")
	m.ComplaintSubmitted("HIGH")
	m.TransitionAccepted("PENDING_REVIEW", "APPROVED")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, _ := io.ReadAll(rr.Body)
	text := string(body)
	assert.Contains(t, text, `http_requests_total{method="GET",path="/api/complaints",status="200"} 1`)
	assert.Contains(t, text, `ai_analysis_duration_seconds_count{kind="text",outcome="timeout"} 1`)
	assert.Contains(t, text, `notifications_total{notifier="kafka",outcome="error"} 1`)
	assert.Contains(t, text, `complaints_submitted_total{priority="HIGH"} 1`)
	assert.Contains(t, text, `complaint_transitions_total{from="PENDING_REVIEW",to="APPROVED"} 1`)
}
