// Package metrics defines and registers all custom Prometheus metrics for the
// QWallet web front end. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto and exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "qwallet"

// ── Identity service metrics ──────────────────────────────────────────────────

// IdentityRequestsTotal counts calls to the remote identity service.
// Labels:
//   - operation: "login", "fetch_profile", "update_profile" or "create_user"
//   - result: "success" or "error"
var IdentityRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "identity_requests_total",
		Help:      "Total number of identity service calls, by operation and result.",
	},
	[]string{"operation", "result"},
)

// IdentityRequestDuration measures the round trip of a single identity call.
var IdentityRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "identity_request_duration_seconds",
		Help:      "Duration of identity service calls.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// OperationsRejectedTotal counts submissions refused because the same
// operation was still pending for that session.
var OperationsRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_rejected_total",
		Help:      "Submissions rejected while the same operation was in flight.",
	},
	[]string{"operation"},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// GuardDecisionsTotal counts route guard outcomes.
// Label:
//   - decision: "allow", "redirect_login" or "redirect_landing"
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of route guard decisions, by outcome.",
	},
	[]string{"decision"},
)

// SessionConflictsTotal counts compare-and-swap writes that lost to a
// concurrent writer and had to re-read the session.
var SessionConflictsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_conflicts_total",
		Help:      "Session writes rejected because the stored version had moved on.",
	},
)

// SessionDesyncTotal counts requests where the accessToken cookie was present
// but the session store held nothing for the browser.
var SessionDesyncTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_desync_total",
		Help:      "Requests whose accessToken cookie had no matching stored session.",
	},
)
