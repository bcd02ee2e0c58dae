package shared

import (
	"context"
	"log/slog"
	"time"

	"github.com/vango-dev/sharedstate/pkg/storage"
	"go.opentelemetry.io/otel/trace"
)

// DefaultPersistTimeout bounds each storage call made by the store.
const DefaultPersistTimeout = 5 * time.Second

// Option is a functional option for configuring a Store.
type Option func(*Store)

// WithStorage sets the durable store used by persisted bindings.
func WithStorage(st storage.Storage) Option {
	return func(s *Store) {
		s.storage = st
	}
}

// WithLogger sets the logger for diagnostics.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDebug enables development diagnostics: conflicting initial values and
// disagreeing persist flags are logged as warnings.
func WithDebug(debug bool) Option {
	return func(s *Store) {
		s.debug = debug
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithTracer sets the tracer for storage spans.
// Default: otel.Tracer("sharedstate").
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Store) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithContext sets the base context for storage calls.
// Default: context.Background().
func WithContext(ctx context.Context) Option {
	return func(s *Store) {
		if ctx != nil {
			s.baseCtx = ctx
		}
	}
}

// WithPersistTimeout bounds each storage call. Zero disables the bound.
// Default: DefaultPersistTimeout.
func WithPersistTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.persistTimeout = d
	}
}

// InitPolicy decides what GetOrCreate does when the key already exists.
type InitPolicy int

const (
	// KeepExisting leaves an existing value alone; the first creator wins.
	KeepExisting InitPolicy = iota

	// Overwrite replaces an existing value with the supplied initial value
	// and notifies its listeners.
	Overwrite
)

// String returns a human-readable name for the policy.
func (p InitPolicy) String() string {
	switch p {
	case KeepExisting:
		return "keep-existing"
	case Overwrite:
		return "overwrite"
	default:
		return "unknown"
	}
}

// BindOption configures a single binding.
type BindOption func(*bindConfig)

type bindConfig struct {
	persist bool
	policy  InitPolicy
}

// Persist mirrors this binding's writes to durable storage and seeds a new
// entry from it.
func Persist() BindOption {
	return func(c *bindConfig) {
		c.persist = true
	}
}

// WithPolicy sets the init policy used when the binding mounts or re-keys.
// Default: KeepExisting.
func WithPolicy(p InitPolicy) BindOption {
	return func(c *bindConfig) {
		c.policy = p
	}
}

func applyBindOptions(opts []BindOption) bindConfig {
	var cfg bindConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
