package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Seal application outcomes recorded by LedgerMetrics.
const (
	OutcomeApplied         = "applied"
	OutcomeInvalidDelta    = "invalid_delta"
	OutcomeExceedsCapacity = "exceeds_capacity"
	OutcomeExceedsRemoval  = "exceeds_removal"
	OutcomeConflict        = "conflict"
	OutcomeError           = "error"
)

// LedgerMetrics tracks the seal ledger write path.
type LedgerMetrics struct {
	sealApplications *prometheus.CounterVec
	rewardsEarned    prometheus.Counter
	rewardsRedeemed  prometheus.Counter
	joins            prometheus.Counter
	casRetries       prometheus.Counter
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	m := &LedgerMetrics{
		sealApplications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seal_applications_total",
			Help:      "Seal delta applications by outcome.",
		}, []string{"outcome"}),
		rewardsEarned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewards_earned_total",
			Help:      "Rewards earned through completed cards.",
		}),
		rewardsRedeemed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewards_redeemed_total",
			Help:      "Rewards finalized at the counter.",
		}),
		joins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "program_joins_total",
			Help:      "Customers that joined a loyalty program.",
		}),
		casRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_cas_retries_total",
			Help:      "Ledger writes retried after a version conflict.",
		}),
	}
	reg.MustRegister(m.sealApplications, m.rewardsEarned, m.rewardsRedeemed, m.joins, m.casRetries)
	return m
}

// ObserveSealApplication counts one ApplySeals call by outcome.
func (m *LedgerMetrics) ObserveSealApplication(outcome string) {
	if m == nil || m.sealApplications == nil {
		return
	}
	if outcome == "" {
		outcome = OutcomeError
	}
	m.sealApplications.WithLabelValues(outcome).Inc()
}

func (m *LedgerMetrics) AddRewardsEarned(n int) {
	if m == nil || m.rewardsEarned == nil || n <= 0 {
		return
	}
	m.rewardsEarned.Add(float64(n))
}

func (m *LedgerMetrics) IncRewardRedeemed() {
	if m == nil || m.rewardsRedeemed == nil {
		return
	}
	m.rewardsRedeemed.Inc()
}

func (m *LedgerMetrics) IncJoin() {
	if m == nil || m.joins == nil {
		return
	}
	m.joins.Inc()
}

func (m *LedgerMetrics) IncCASRetry() {
	if m == nil || m.casRetries == nil {
		return
	}
	m.casRetries.Inc()
}
