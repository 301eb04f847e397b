package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the ledger's Prometheus collectors
type Metrics struct {
	AdCompletions   *prometheus.CounterVec
	EarningsTotal   *prometheus.CounterVec
	Withdrawals     *prometheus.CounterVec
	AdminOperations *prometheus.CounterVec
	OperationErrors *prometheus.CounterVec
	DailyResets     prometheus.Counter
	AdCacheLookups  *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AdCompletions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "adrewards_ad_completions_total",
			Help: "Credited ad completions by earning mode.",
		}, []string{"mode"}),
		EarningsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "adrewards_earnings_credited_total",
			Help: "Sum of commissions credited by earning mode.",
		}, []string{"mode"}),
		Withdrawals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "adrewards_withdrawals_total",
			Help: "Withdrawal requests by resulting status.",
		}, []string{"status"}),
		AdminOperations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "adrewards_admin_operations_total",
			Help: "Admin override operations applied.",
		}, []string{"operation"}),
		OperationErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "adrewards_operation_errors_total",
			Help: "Rejected or failed ledger operations by kind.",
		}, []string{"operation", "kind"}),
		DailyResets: f.NewCounter(prometheus.CounterOpts{
			Name: "adrewards_daily_resets_total",
			Help: "Completed daily reward resets.",
		}),
		AdCacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "adrewards_ad_cache_lookups_total",
			Help: "Ad catalog cache lookups by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) observeError(operation string, err error) {
	m.OperationErrors.WithLabelValues(operation, KindOf(err).String()).Inc()
}
