package shared

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the store's Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "sharedstate").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the store's Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "sharedstate",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors for a Store. A nil *Metrics is
// valid and records nothing.
//
// Metrics collected:
//   - sharedstate_entries: Gauge of keys in the registry
//   - sharedstate_listeners: Gauge of mounted listeners across all keys
//   - sharedstate_writes_total: Counter of value writes
//   - sharedstate_notifications_total: Counter of listener notifications
//   - sharedstate_persist_loads_total: Counter of storage loads by result (hit, miss)
//   - sharedstate_persist_writes_total: Counter of successful storage writes
//   - sharedstate_persist_errors_total: Counter of persistence failures by op
//     (load, decode, encode, store)
type Metrics struct {
	entries       prometheus.Gauge
	listeners     prometheus.Gauge
	writes        prometheus.Counter
	notifications prometheus.Counter
	persistLoads  *prometheus.CounterVec
	persistWrites prometheus.Counter
	persistErrors *prometheus.CounterVec
}

// NewMetrics creates and registers the store collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		entries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "entries",
			Help:        "Number of keys in the shared value registry",
			ConstLabels: config.ConstLabels,
		}),

		listeners: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "listeners",
			Help:        "Number of mounted listeners across all keys",
			ConstLabels: config.ConstLabels,
		}),

		writes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "writes_total",
			Help:        "Total number of shared value writes",
			ConstLabels: config.ConstLabels,
		}),

		notifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of listener notifications",
			ConstLabels: config.ConstLabels,
		}),

		persistLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "persist_loads_total",
			Help:        "Total number of persisted value loads by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		persistWrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "persist_writes_total",
			Help:        "Total number of successful persisted value writes",
			ConstLabels: config.ConstLabels,
		}),

		persistErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "persist_errors_total",
			Help:        "Total number of persistence failures by operation",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),
	}
}

func (m *Metrics) entryCreated() {
	if m != nil {
		m.entries.Inc()
	}
}

func (m *Metrics) subscribed() {
	if m != nil {
		m.listeners.Inc()
	}
}

func (m *Metrics) unsubscribed() {
	if m != nil {
		m.listeners.Dec()
	}
}

func (m *Metrics) wrote() {
	if m != nil {
		m.writes.Inc()
	}
}

func (m *Metrics) notified(n int) {
	if m != nil && n > 0 {
		m.notifications.Add(float64(n))
	}
}

func (m *Metrics) loaded(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.persistLoads.WithLabelValues(result).Inc()
}

func (m *Metrics) persisted() {
	if m != nil {
		m.persistWrites.Inc()
	}
}

func (m *Metrics) persistFailed(op string) {
	if m != nil {
		m.persistErrors.WithLabelValues(op).Inc()
	}
}
