package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inspectra/internal/models"
)

// Metrics collects assessment and HTTP metrics on a private registry.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	registry          *prometheus.Registry
	assessmentsTotal  *prometheus.CounterVec
	failuresTotal     *prometheus.CounterVec
	propertyScore     prometheus.Histogram
	coverage          prometheus.Histogram
	queueRejected     prometheus.Counter
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		assessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inspectra_assessments_total",
			Help: "Snapshots produced, by risk tier and decision signal.",
		}, []string{"tier", "decision"}),
		failuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inspectra_assessment_failures_total",
			Help: "Inspections that could not be assessed or stored, by reason.",
		}, []string{"reason"}),
		propertyScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "inspectra_property_score",
			Help:    "Distribution of final property risk scores.",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		}),
		coverage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "inspectra_inspection_coverage",
			Help:    "Distribution of inspection coverage ratios.",
			Buckets: []float64{0.2, 0.4, 0.6, 0.8, 1.0},
		}),
		queueRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inspectra_queue_rejected_total",
			Help: "Inspection batches rejected because the queue was full or closed.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.assessmentsTotal,
		m.failuresTotal,
		m.propertyScore,
		m.coverage,
		m.queueRejected,
		m.httpRequestsTotal,
		m.httpDuration,
	)

	return m
}

// ObserveSnapshot records one successful assessment
func (m *Metrics) ObserveSnapshot(snapshot *models.PropertySnapshot) {
	if m == nil || snapshot == nil {
		return
	}
	m.assessmentsTotal.WithLabelValues(string(snapshot.RiskTier), string(snapshot.DecisionSignal)).Inc()
	m.propertyScore.Observe(snapshot.PropertyScore)
	m.coverage.Observe(snapshot.Coverage)
}

func (m *Metrics) AssessmentFailed(reason string) {
	if m == nil {
		return
	}
	m.failuresTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) QueueRejected() {
	if m == nil {
		return
	}
	m.queueRejected.Inc()
}

// Middleware records request counts and latency per gin route
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
