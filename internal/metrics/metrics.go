package metrics

import (
	"time"

	"github.com/F3Joule/subsocial-v2/internal/social"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "subsocial"

// Recorder owns a private registry so several runs in one process never
// collide on metric registration.
type Recorder struct {
	registry          *prometheus.Registry
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	events            *prometheus.CounterVec
	reputationDelta   prometheus.Counter
	ledgerEntities    *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of ledger operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Ledger operation latency in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}, []string{"operation"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of committed ledger events by name.",
		}, []string{"event"}),
		reputationDelta: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reputation_granted_total",
			Help:      "Sum of positive reputation deltas applied to accounts.",
		}),
		ledgerEntities: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_entities",
			Help:      "Number of stored entities by kind.",
		}, []string{"kind"}),
	}
}

// Registry exposes the recorder's registry as a gatherer.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveOperation counts one operation attempt and its latency.
func (r *Recorder) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	r.operations.WithLabelValues(operation, outcome).Inc()
	r.operationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// Publish implements social.EventSink.
func (r *Recorder) Publish(event social.Event) {
	r.events.WithLabelValues(string(event.Name)).Inc()
	if event.Name == social.EventAccountReputationChanged && event.Delta > 0 {
		r.reputationDelta.Add(float64(event.Delta))
	}
}

// ObserveSnapshot sets the entity gauges from a ledger snapshot.
func (r *Recorder) ObserveSnapshot(snapshot social.Snapshot) {
	r.ledgerEntities.WithLabelValues("accounts").Set(float64(len(snapshot.Accounts)))
	r.ledgerEntities.WithLabelValues("spaces").Set(float64(len(snapshot.Spaces)))
	r.ledgerEntities.WithLabelValues("posts").Set(float64(len(snapshot.Posts)))
	r.ledgerEntities.WithLabelValues("reactions").Set(float64(len(snapshot.Reactions)))
	r.ledgerEntities.WithLabelValues("account_follows").Set(float64(len(snapshot.AccountFollows)))
	r.ledgerEntities.WithLabelValues("space_follows").Set(float64(len(snapshot.SpaceFollows)))
}

// WriteTextfile writes the current metrics in the text exposition format,
// suitable for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
