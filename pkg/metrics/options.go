package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Default latency buckets in milliseconds. Authoring spans a whole slot; I/O covers one upstream call
// or one state commit.
var (
	defaultAuthoringBuckets = []float64{50, 100, 250, 500, 1000, 2000, 3000, 4500, 6000, 9000}
	defaultIOBuckets        = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}
)

// Option configures a Manager.
type Option func(*Manager)

// WithNames sets the metric namespace and subsystem. Empty values keep the
// defaults.
func WithNames(namespace, subsystem string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithSlotDuration scales the authoring latency buckets to slot, from 1% of
// the slot up to one and a half slots.
func WithSlotDuration(slot time.Duration) Option {
	return func(m *Manager) {
		if slot <= 0 {
			return
		}
		ms := float64(slot.Milliseconds())
		fractions := []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 0.75, 1, 1.5}
		buckets := make([]float64, 0, len(fractions))
		for _, f := range fractions {
			if b := ms * f; len(buckets) == 0 || b > buckets[len(buckets)-1] {
				buckets = append(buckets, b)
			}
		}
		m.authoringBuckets = buckets
	}
}

// WithIOBuckets sets the buckets for fetch and state commit latency.
func WithIOBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.ioBuckets = buckets
		}
	}
}

// WithPrometheusRegistry sets the registry metrics are registered on.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}
