package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/herovault-backend/pkg/enums"
)

const (
	OpenTriggerUser   = "user"
	OpenTriggerRetire = "retire"

	TradeProposed  = "proposed"
	TradeAccepted  = "accepted"
	TradeWithdrawn = "withdrawn"
)

// EconomyMetrics counts package, trade and unit-of-work activity.
// A nil receiver or one built without a registerer is a no-op.
type EconomyMetrics struct {
	packagesOpened   *prometheus.CounterVec
	trades           *prometheus.CounterVec
	conflicts        *prometheus.CounterVec
	retriesExhausted *prometheus.CounterVec
	rewardsDrawn     *prometheus.CounterVec
}

func NewEconomyMetrics(reg prometheus.Registerer) *EconomyMetrics {
	if reg == nil {
		return &EconomyMetrics{}
	}
	m := &EconomyMetrics{
		packagesOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "herovault_packages_opened_total",
			Help: "Package instances opened, by trigger.",
		}, []string{"trigger"}),
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "herovault_trades_total",
			Help: "Trade transitions, by outcome.",
		}, []string{"outcome"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "herovault_uow_conflicts_total",
			Help: "Stale writes that restarted a unit of work.",
		}, []string{"operation"}),
		retriesExhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "herovault_uow_retries_exhausted_total",
			Help: "Units of work that gave up after the retry budget.",
		}, []string{"operation"}),
		rewardsDrawn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "herovault_rewards_drawn_total",
			Help: "Reward cards drawn, by rarity.",
		}, []string{"rarity"}),
	}
	reg.MustRegister(m.packagesOpened, m.trades, m.conflicts, m.retriesExhausted, m.rewardsDrawn)
	return m
}

func (m *EconomyMetrics) IncPackagesOpened(trigger string) {
	if m == nil || m.packagesOpened == nil {
		return
	}
	m.packagesOpened.WithLabelValues(normalizeLabel(trigger)).Inc()
}

func (m *EconomyMetrics) IncTrade(outcome string) {
	if m == nil || m.trades == nil {
		return
	}
	m.trades.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveConflict implements db.RetryObserver.
func (m *EconomyMetrics) ObserveConflict(operation string) {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.WithLabelValues(normalizeLabel(operation)).Inc()
}

// ObserveRetriesExhausted implements db.RetryObserver.
func (m *EconomyMetrics) ObserveRetriesExhausted(operation string) {
	if m == nil || m.retriesExhausted == nil {
		return
	}
	m.retriesExhausted.WithLabelValues(normalizeLabel(operation)).Inc()
}

// ObserveDraw implements rewards.DrawObserver.
func (m *EconomyMetrics) ObserveDraw(rarity enums.Rarity) {
	if m == nil || m.rewardsDrawn == nil {
		return
	}
	m.rewardsDrawn.WithLabelValues(normalizeLabel(string(rarity))).Inc()
}
