// Package metrics holds the prometheus collectors. Domain counters are
// incremented when the operation executes, which for ledger appends,
// badge unlocks and rank changes is inside the surrounding database
// transaction; a rollback does not decrement them, so these are trend
// counters, not exact business totals.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Counter: ledger appends by source type
	XpTransactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "progression_xp_transactions_total", Help: "Total XP ledger appends"},
		[]string{"source_type"},
	)

	// Counter: badge unlocks
	BadgesUnlocked = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "progression_badges_unlocked_total", Help: "Total badges unlocked"},
	)

	// Counter: rank transitions, split by direction
	RankChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "progression_rank_changes_total", Help: "Total rank reassignments"},
		[]string{"direction"}, // "up" or "down"
	)

	// Counter: ledger/cache mismatches found by the audit job
	AuditMismatches = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "progression_ledger_audit_mismatches_total", Help: "Members whose cached total diverged from the ledger sum"},
	)

	// Histogram: HTTP request durations
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "progression_request_duration_seconds", Help: "Request duration seconds"},
		[]string{"method", "path", "status"},
	)
)

func Register() {
	prometheus.MustRegister(XpTransactions, BadgesUnlocked, RankChanges, AuditMismatches, RequestDuration)
}
