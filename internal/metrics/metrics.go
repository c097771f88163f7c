// Package metrics holds the Prometheus collectors shared by the dashboard,
// the CLI and the demo backend.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bizdash"

var (
	// APIRequestDuration observes REST calls made by the API client.
	APIRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api_client",
		Name:      "request_duration_seconds",
		Help:      "Duration of backend REST calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"resource", "method", "status"})

	// StoreOperations counts store operations by outcome.
	StoreOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Entity store operations by outcome.",
	}, []string{"entity", "operation", "outcome"})

	// StaleResponses counts list responses discarded because a newer fetch was issued.
	StaleResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "stale_responses_total",
		Help:      "List responses dropped in favour of a newer fetch.",
	}, []string{"entity"})

	// HTTPRequests counts requests served by the dashboard and the backend.
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests served.",
	}, []string{"server", "method", "status"})
)

// Registry is the registry every collector above is registered with.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		APIRequestDuration,
		StoreOperations,
		StaleResponses,
		HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveAPI records one API call.
func ObserveAPI(resource, method string, status int, start time.Time) {
	APIRequestDuration.
		WithLabelValues(resource, method, strconv.Itoa(status)).
		Observe(time.Since(start).Seconds())
}

// Outcome returns "ok" or "error" for a store operation result.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Middleware counts requests served by server ("dashboard" or "backend").
func Middleware(server string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			HTTPRequests.WithLabelValues(server, r.Method, strconv.Itoa(status)).Inc()
		})
	}
}
