package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Generation outcomes.
const (
	OutcomeIssued           = "issued"
	OutcomeLockBusy         = "lock_busy"
	OutcomeExhausted        = "registry_exhausted"
	OutcomeStoreUnavailable = "store_unavailable"
)

// Metrics provides observability for tracking number generation.
type Metrics struct {
	Generations       *prometheus.CounterVec
	Collisions        prometheus.Counter
	LockAcquisitions  *prometheus.CounterVec
	CriticalSection   prometheus.Histogram
	StoreLatency      *prometheus.HistogramVec
	PublishFailures   prometheus.Counter
	PublisherCircuit  prometheus.Gauge
	AttemptsPerIssued prometheus.Histogram
	Rejections        *prometheus.CounterVec
}

// New creates the tracking metrics on reg. A nil registerer uses the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Generations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trackgen_generations_total",
			Help: "Tracking number generation calls by outcome",
		}, []string{"outcome"}),

		Collisions: factory.NewCounter(prometheus.CounterOpts{
			Name: "trackgen_registry_collisions_total",
			Help: "Candidate codes rejected because the registry already held them",
		}),

		LockAcquisitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trackgen_lock_acquisitions_total",
			Help: "Lock acquisition attempts by result",
		}, []string{"result"}), // result: "acquired", "busy", "error"

		CriticalSection: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "trackgen_critical_section_duration_seconds",
			Help:    "Time the generation lock was held",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trackgen_store_operation_duration_seconds",
			Help:    "Latency of lock and registry round trips",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
		}, []string{"operation"}), // operation: "acquire", "release", "record", "exists"

		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "trackgen_issuance_publish_failures_total",
			Help: "Issuance events that could not be published",
		}),

		PublisherCircuit: factory.NewGauge(prometheus.GaugeOpts{
			Name: "trackgen_issuance_publisher_circuit_state",
			Help: "Issuance publisher circuit breaker state (0=closed, 1=open)",
		}),

		AttemptsPerIssued: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "trackgen_attempts_per_issued",
			Help:    "Encoding attempts needed per issued tracking number",
			Buckets: []float64{1, 2, 3, 4, 5, 8},
		}),

		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trackgen_request_rejections_total",
			Help: "Generation requests rejected by input validation, by field",
		}, []string{"field"}),
	}
}

func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.Generations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementCollision() {
	if m != nil {
		m.Collisions.Inc()
	}
}

func (m *Metrics) IncrementLockAcquisition(result string) {
	if m != nil {
		m.LockAcquisitions.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ObserveCriticalSection(d time.Duration) {
	if m != nil {
		m.CriticalSection.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveStoreLatency(operation string, d time.Duration) {
	if m != nil {
		m.StoreLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveAttempts(attempts int) {
	if m != nil {
		m.AttemptsPerIssued.Observe(float64(attempts))
	}
}

func (m *Metrics) IncrementPublishFailure() {
	if m != nil {
		m.PublishFailures.Inc()
	}
}

func (m *Metrics) SetPublisherCircuit(open bool) {
	if m == nil {
		return
	}
	if open {
		m.PublisherCircuit.Set(1)
	} else {
		m.PublisherCircuit.Set(0)
	}
}

func (m *Metrics) IncrementRejection(field string) {
	if m != nil {
		m.Rejections.WithLabelValues(field).Inc()
	}
}
