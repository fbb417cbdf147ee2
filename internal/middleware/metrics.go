package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	requests         *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	rejections       *prometheus.CounterVec
	revocationErrors prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookshelf",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookshelf",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookshelf",
			Name:      "auth_rejections_total",
			Help:      "Requests rejected by the token or role guards, by reason.",
		}, []string{"reason"}),
		revocationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookshelf",
			Name:      "auth_revocation_check_failures_total",
			Help:      "Revocation lookups that failed and were treated as not revoked.",
		}),
	}

	reg.MustRegister(m.requests, m.duration, m.rejections, m.revocationErrors)
	return m
}

// Instrument records request count and latency labelled by the matched
// route template.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) observeRejection(err error) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(rejectionReason(err)).Inc()
}

func (m *Metrics) observeRevocationCheckFailure() {
	if m == nil {
		return
	}
	m.revocationErrors.Inc()
}
