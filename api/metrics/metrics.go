package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BuildInfo carries the build version labels as a constant gauge.
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cabinet_api_build_info",
		Help: "Build information for the cabinet API",
	}, []string{"version", "commit", "date"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cabinet_api_http_requests_total",
		Help: "Total HTTP requests by route, method and status code",
	}, []string{"route", "method", "code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cabinet_api_http_request_duration_seconds",
		Help:    "HTTP request duration by route and method",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	anthropicRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cabinet_api_anthropic_requests_total",
		Help: "Total Anthropic API requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	anthropicRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cabinet_api_anthropic_request_duration_seconds",
		Help:    "Anthropic API request duration by endpoint",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"endpoint"})

	anthropicTokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cabinet_api_anthropic_tokens_total",
		Help: "Total Anthropic tokens consumed by direction",
	}, []string{"direction"})

	billingQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cabinet_api_billing_queries_total",
		Help: "Total billing database queries by outcome",
	}, []string{"outcome"})

	billingQueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cabinet_api_billing_query_duration_seconds",
		Help:    "Billing database query duration",
		Buckets: prometheus.DefBuckets,
	})
)

// RecordAnthropicRequest records one Anthropic API call.
func RecordAnthropicRequest(endpoint string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	anthropicRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	anthropicRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordAnthropicTokens records token usage for one Anthropic API call.
func RecordAnthropicTokens(input, output int64) {
	anthropicTokensTotal.WithLabelValues("input").Add(float64(input))
	anthropicTokensTotal.WithLabelValues("output").Add(float64(output))
}

// RecordBillingQuery records one query against the billing database.
func RecordBillingQuery(duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	billingQueriesTotal.WithLabelValues(outcome).Inc()
	billingQueryDuration.Observe(duration.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and durations per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
