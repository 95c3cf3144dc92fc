package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveRequest("list_catalog", "2xx", 10*time.Millisecond)
	m.ObserveRequest("list_catalog", "2xx", 20*time.Millisecond)
	m.ObserveRequest("list_catalog", "5xx", 5*time.Millisecond)
	m.StaleResponse("catalog")
	m.SlotFailure()
	m.SlotFailure()
	m.ObserveHTTP("/api/books", http.StatusOK)

	body := scrape(t, m)
	assert.Contains(t, body, `libraryclient_backend_requests_total{op="list_catalog",outcome="2xx"} 2`)
	assert.Contains(t, body, `libraryclient_backend_requests_total{op="list_catalog",outcome="5xx"} 1`)
	assert.Contains(t, body, `libraryclient_backend_request_duration_seconds_count{op="list_catalog"} 3`)
	assert.Contains(t, body, `libraryclient_stale_responses_total{kind="catalog"} 1`)
	assert.Contains(t, body, "libraryclient_fanout_slot_failures_total 2")
	assert.Contains(t, body, `libraryclient_http_requests_total{code="200",route="/api/books"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveRequest("op", "2xx", time.Second)
		m.StaleResponse("catalog")
		m.SlotFailure()
		m.ObserveHTTP("/", 200)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
