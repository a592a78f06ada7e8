package uploader

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Record outcomes, used as metric labels.
const (
	OutcomePosted    = "posted"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
	OutcomeStale     = "stale"
	OutcomeThrottled = "throttled"
	OutcomeDropped   = "dropped"
)

type MetricsProviderInterface interface {
	IncRecords(outcome string, n int)
	IncAttempts(result string)
	ObservePostDuration(duration time.Duration)
	SetQueueLength(n int)
}

type MetricsProvider struct {
	records      *prometheus.CounterVec
	attempts     *prometheus.CounterVec
	postDuration prometheus.Histogram
	queueLength  prometheus.Gauge
}

// NewMetricsProvider registers the uploader metrics for one protocol on reg.
// A nil registerer yields a no-op implementation.
func NewMetricsProvider(reg prometheus.Registerer, protocol string) MetricsProviderInterface {
	if reg == nil {
		return &noopMetrics{}
	}

	labels := prometheus.Labels{"protocol": protocol}
	factory := promauto.With(reg)

	return &MetricsProvider{
		records: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "publisher_records_total",
			Help:        "Records handled by the upload worker, by outcome",
			ConstLabels: labels,
		}, []string{"outcome"}),

		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "publisher_post_attempts_total",
			Help:        "HTTP post attempts, by result",
			ConstLabels: labels,
		}, []string{"result"}),

		postDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "publisher_post_duration_seconds",
			Help:        "Duration of single post attempts in seconds",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}),

		queueLength: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "publisher_queue_length",
			Help:        "Records waiting in the upload queue",
			ConstLabels: labels,
		}),
	}
}

func (m *MetricsProvider) IncRecords(outcome string, n int) {
	m.records.WithLabelValues(outcome).Add(float64(n))
}

func (m *MetricsProvider) IncAttempts(result string) {
	m.attempts.WithLabelValues(result).Inc()
}

func (m *MetricsProvider) ObservePostDuration(duration time.Duration) {
	m.postDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) SetQueueLength(n int) {
	m.queueLength.Set(float64(n))
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRecords(_ string, _ int)          {}
func (n *noopMetrics) IncAttempts(_ string)                {}
func (n *noopMetrics) ObservePostDuration(_ time.Duration) {}
func (n *noopMetrics) SetQueueLength(_ int)                {}
