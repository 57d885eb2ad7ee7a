package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records request outcomes. A nil *Metrics records nothing.
type Metrics struct {
	gatherer      prometheus.Gatherer
	requestsTotal *prometheus.CounterVec
	planDuration  prometheus.Histogram
	bytesSent     prometheus.Counter
}

// NewMetrics registers the servefile collectors with reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "servefile_requests_total",
				Help: "Total number of file requests by status and body kind",
			},
			[]string{"status", "body"},
		),
		planDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "servefile_plan_duration_seconds",
				Help:    "Time to resolve a request into a response plan",
				Buckets: prometheus.DefBuckets,
			},
		),
		bytesSent: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "servefile_response_bytes_total",
				Help: "Total file bytes written to clients",
			},
		),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) observePlan(d time.Duration) {
	if m == nil {
		return
	}
	m.planDuration.Observe(d.Seconds())
}

func (m *Metrics) countResponse(status int, body string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(strconv.Itoa(status), body).Inc()
}

func (m *Metrics) addBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesSent.Add(float64(n))
}
