package querycache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors updated by a Cache.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	lookups            *prometheus.CounterVec
	stores             *prometheus.CounterVec
	invalidations      prometheus.Counter
	invalidatedKeys    prometheus.Counter
	invalidationErrors prometheus.Counter
}

// NewMetrics creates the collectors under namespace (default "querycache")
// and registers them on reg. A nil reg leaves them unregistered.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	if namespace == "" {
		namespace = "querycache"
	}

	m := &Metrics{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lookups_total",
				Help:      "Cache lookups by result (hit, miss, error)",
			},
			[]string{"result"},
		),
		stores: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stores_total",
				Help:      "Cache stores by result (ok, error)",
			},
			[]string{"result"},
		),
		invalidations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invalidations_total",
				Help:      "Invalidate calls that touched the store",
			},
		),
		invalidatedKeys: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invalidated_keys_total",
				Help:      "Keys deleted by invalidation, tag keys included",
			},
		),
		invalidationErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invalidation_errors_total",
				Help:      "Key deletions that failed during invalidation",
			},
		),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.lookups, m.stores, m.invalidations, m.invalidatedKeys, m.invalidationErrors} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

func (m *Metrics) lookup(result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(result).Inc()
}

func (m *Metrics) store(result string) {
	if m == nil {
		return
	}
	m.stores.WithLabelValues(result).Inc()
}

func (m *Metrics) invalidation(deleted, failed int) {
	if m == nil {
		return
	}
	m.invalidations.Inc()
	m.invalidatedKeys.Add(float64(deleted))
	m.invalidationErrors.Add(float64(failed))
}
