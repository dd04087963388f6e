package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// TokenMetrics exposes Prometheus collectors for the token pipeline.
type TokenMetrics struct {
	Generated        prometheus.Counter
	Validated        prometheus.Counter
	ValidationFailed *prometheus.CounterVec
	Blacklisted      prometheus.Counter
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	ValidateDuration prometheus.Histogram
}

// NewTokenMetrics constructs and registers the token pipeline collectors.
func NewTokenMetrics(reg prometheus.Registerer) (*TokenMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &TokenMetrics{
		Generated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "escuela",
			Subsystem: "token",
			Name:      "generated_total",
			Help:      "Number of tokens issued.",
		}),
		Validated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "escuela",
			Subsystem: "token",
			Name:      "validated_total",
			Help:      "Number of token verifications attempted.",
		}),
		ValidationFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "escuela",
			Subsystem: "token",
			Name:      "validation_failed_total",
			Help:      "Number of failed token verifications partitioned by reason.",
		}, []string{"reason"}),
		Blacklisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "escuela",
			Subsystem: "token",
			Name:      "blacklisted_total",
			Help:      "Number of tokens added to the blacklist.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "escuela",
			Subsystem: "token",
			Name:      "cache_hits_total",
			Help:      "Number of verifications served from the token cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "escuela",
			Subsystem: "token",
			Name:      "cache_misses_total",
			Help:      "Number of verifications that required cryptographic work.",
		}),
		ValidateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "escuela",
			Subsystem: "token",
			Name:      "validation_duration_seconds",
			Help:      "Histogram of token verification latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	collectors := []prometheus.Collector{
		m.Generated, m.Validated, m.ValidationFailed, m.Blacklisted,
		m.CacheHits, m.CacheMisses, m.ValidateDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, fmt.Errorf("register token collector: %w", err)
		}
	}

	return m, nil
}

// NopTokenMetrics returns collectors that are valid but unregistered,
// convenient for tests and optional wiring.
func NopTokenMetrics() *TokenMetrics {
	m, _ := NewTokenMetrics(prometheus.NewRegistry())
	return m
}
