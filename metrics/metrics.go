// Package metrics provides Prometheus metrics for auth-bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "authbridge"

// Cache lookup results.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

var (
	// CacheLookupsTotal counts session cache reads by result.
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of session cache lookups",
		},
		[]string{"result"},
	)

	// CacheWriteErrorsTotal counts failed write-through fills.
	CacheWriteErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_write_errors_total",
			Help:      "Total number of failed session cache writes",
		},
	)

	// CacheInvalidationsTotal counts invalidations by status.
	CacheInvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Total number of session cache invalidations",
		},
		[]string{"status"},
	)

	// SessionsRevokedTotal counts removed sessions by reason.
	SessionsRevokedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_revoked_total",
			Help:      "Total number of revoked sessions",
		},
		[]string{"reason"},
	)

	// CleanupFailuresTotal counts single-session cleanup failures by stage.
	CleanupFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Total number of failed prior-session cleanups",
		},
		[]string{"stage"},
	)

	// ServiceTokensIssuedTotal counts minted downstream credentials.
	ServiceTokensIssuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_tokens_issued_total",
			Help:      "Total number of issued service tokens",
		},
	)

	// SyncTotal counts bridge sync requests by outcome.
	SyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_total",
			Help:      "Total number of credential sync requests",
		},
		[]string{"outcome"},
	)

	// StaleFillsDiscardedTotal counts cache fills removed because the session
	// was revoked while the fill was in flight.
	StaleFillsDiscardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_fills_discarded_total",
			Help:      "Total number of cache fills discarded for revoked sessions",
		},
	)

	// InternalAuthRejectsTotal counts rejected internal requests by reason.
	InternalAuthRejectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "internal_auth_rejects_total",
			Help:      "Total number of rejected internal requests",
		},
		[]string{"reason"},
	)
)
