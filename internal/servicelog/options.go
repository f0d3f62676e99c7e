package servicelog

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/cars-service-log/internal/metrics"
)

// Option configures a Manager.
type Option func(*Manager)

// WithIDGenerator replaces the default ObjectID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(m *Manager) {
		if g != nil {
			m.ids = g
		}
	}
}

// WithClock sets the source of deletion timestamps.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithLogger sets the logger used for load and persist warnings.
func WithLogger(logger *logrus.Entry) Option {
	return func(m *Manager) {
		if logger != nil {
			m.log = logger
		}
	}
}

// WithMetrics records store and collection metrics on mt.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithPersistTimeout bounds each store read and write. Zero or negative
// disables the bound.
func WithPersistTimeout(d time.Duration) Option {
	return func(m *Manager) { m.persistTimeout = d }
}

// WithKeyPrefix namespaces the storage keys, e.g. per deployment.
func WithKeyPrefix(prefix string) Option {
	return func(m *Manager) { m.keyPrefix = prefix }
}
