// Package metrics exposes Prometheus counters for the duel engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	MatchesStarted  *prometheus.CounterVec
	MatchesSettled  *prometheus.CounterVec
	RoundsEvaluated *prometheus.CounterVec
	RejectedActions *prometheus.CounterVec
	EscrowedTotal   prometheus.Counter
	PaidOutTotal    prometheus.Counter
	ActiveSessions  prometheus.Gauge
}

// New registers the engine collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MatchesStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "duelbot_matches_started_total",
			Help: "Matches started, by game and opponent kind.",
		}, []string{"game", "opponent"}),
		MatchesSettled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "duelbot_matches_settled_total",
			Help: "Matches settled, by game and winning side.",
		}, []string{"game", "winner"}),
		RoundsEvaluated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "duelbot_rounds_evaluated_total",
			Help: "Round evaluations, by game and verdict.",
		}, []string{"game", "verdict"}),
		RejectedActions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "duelbot_rejected_actions_total",
			Help: "Rejected player actions, by reason.",
		}, []string{"reason"}),
		EscrowedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "duelbot_escrowed_minor_units_total",
			Help: "Total wager amount debited into escrow, in minor units.",
		}),
		PaidOutTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "duelbot_paid_out_minor_units_total",
			Help: "Total amount credited to match winners, in minor units.",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "duelbot_active_sessions",
			Help: "Number of currently registered sessions.",
		}),
	}
}
