// Package metrics provides Prometheus metrics collection for scoped secret
// sessions: session counts and latencies, secrets resolved per backend, and
// artifact lifecycle counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "secretscope"
)

// LatencyBuckets defines histogram buckets for latency metrics (in seconds).
var LatencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5,
	1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 300.0,
}

// =============================================================================
// Session Metrics
// =============================================================================

var (
	// SessionsTotal counts sessions by outcome.
	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of scoped secret sessions",
		},
		[]string{"outcome"},
	)

	// SessionDuration tracks wall-clock session duration.
	SessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall-clock duration of scoped secret sessions",
			Buckets:   LatencyBuckets,
		},
	)

	// ActiveSessions tracks sessions currently holding materialized secrets.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of sessions currently holding materialized secrets",
		},
	)
)

// Session outcome label values.
const (
	OutcomeSuccess    = "success"
	OutcomeActionErr  = "action_error"
	OutcomeResolution = "resolution_error"
	OutcomeEmpty      = "empty_secret"
	OutcomeWrite      = "write_error"
	OutcomeInvalid    = "invalid_request"
)

// =============================================================================
// Secret and Artifact Metrics
// =============================================================================

var (
	// SecretsResolvedTotal counts resolved secrets by backend scheme.
	SecretsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "secrets_resolved_total",
			Help:      "Total number of secrets resolved, by backend scheme",
		},
		[]string{"scheme"},
	)

	// FetchDuration tracks per-secret fetch latency by backend scheme.
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Latency of individual secret fetches",
			Buckets:   LatencyBuckets,
		},
		[]string{"scheme"},
	)

	// ArtifactsCreatedTotal counts materialized artifacts.
	ArtifactsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_created_total",
			Help:      "Total number of ephemeral secret artifacts materialized",
		},
	)

	// CleanupFailuresTotal counts artifact deletions that failed at teardown.
	CleanupFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Total number of artifact deletions that failed during session teardown",
		},
	)
)
