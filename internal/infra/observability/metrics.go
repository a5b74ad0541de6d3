// Package observability registers the Prometheus metrics for voting,
// reputation recompute, the decay sweep and notifications.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Votes ──────────────────────────────────────────────────────────────────

// VotesTotal counts ledger mutations by op (cast, retract) and result
// (created, changed, unchanged, retracted, error).
var VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "reelrank",
	Subsystem: "votes",
	Name:      "total",
	Help:      "Vote ledger operations by op and result.",
}, []string{"op", "result"})

// ─── Recompute ──────────────────────────────────────────────────────────────

// RecomputeTotal counts reputation recomputes by result (updated, missing, error).
var RecomputeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "reelrank",
	Subsystem: "recompute",
	Name:      "total",
	Help:      "Reputation recomputes by result.",
}, []string{"result"})

// RecomputeDuration tracks read-compute-persist latency.
var RecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "reelrank",
	Subsystem: "recompute",
	Name:      "duration_seconds",
	Help:      "Time to recompute one creator.",
	Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
})

// QueueDepth is the number of creators waiting for a recompute.
var QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "reelrank",
	Subsystem: "recompute",
	Name:      "queue_depth",
	Help:      "Creators pending in the recompute queue.",
})

// QueueDropped counts enqueue attempts rejected because the buffer was full.
var QueueDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "reelrank",
	Subsystem: "recompute",
	Name:      "dropped_total",
	Help:      "Recompute requests dropped on a full queue.",
})

// ─── Sweep ──────────────────────────────────────────────────────────────────

// SweepRuns counts sweeps by trigger (schedule, http, cli) and result.
var SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "reelrank",
	Subsystem: "sweep",
	Name:      "runs_total",
	Help:      "Decay sweeps by trigger and result.",
}, []string{"trigger", "result"})

// SweepCreators counts creators processed by a sweep by result.
var SweepCreators = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "reelrank",
	Subsystem: "sweep",
	Name:      "creators_total",
	Help:      "Creators processed by the decay sweep.",
}, []string{"result"})

// SweepDuration tracks wall time of a full sweep.
var SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "reelrank",
	Subsystem: "sweep",
	Name:      "duration_seconds",
	Help:      "Wall time of a decay sweep.",
	Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
})

// ─── Notifications ──────────────────────────────────────────────────────────

// NotificationsTotal counts notify attempts by result (sent, self, debounced, error).
var NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "reelrank",
	Subsystem: "notifications",
	Name:      "total",
	Help:      "Notification attempts by result.",
}, []string{"result"})
