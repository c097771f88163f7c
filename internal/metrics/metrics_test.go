package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "error", Outcome(errors.New("boom")))
}

func TestMiddlewareCountsRequests(t *testing.T) {
	counter := HTTPRequests.WithLabelValues("test", http.MethodPost, "201")
	before := counterValue(t, counter)

	h := Middleware("test")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	for range 3 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	}

	assert.Equal(t, before+3, counterValue(t, counter))
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObserveAPI("invoices", http.MethodGet, 200, time.Now().Add(-10*time.Millisecond))
	StoreOperations.WithLabelValues("invoices", "fetch", "ok").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `bizdash_api_client_request_duration_seconds_count{method="GET",resource="invoices",status="200"}`), body)
	assert.Contains(t, body, `bizdash_store_operations_total{entity="invoices",operation="fetch",outcome="ok"}`)
	assert.Contains(t, body, "go_goroutines")
}
