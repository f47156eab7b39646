// Package hsmetrics exposes Hardstop's run-status and source-health
// results as Prometheus gauges on a dedicated registry, so cmd/hardstop
// can serve them at /metrics without pulling the default global
// registerer into a single-binary CLI.
package hsmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
)

// Registry wraps a dedicated prometheus.Registry and the gauges Hardstop
// publishes on it.
type Registry struct {
	reg *prometheus.Registry

	runExitCode    prometheus.Gauge
	sourceHealth   *prometheus.GaugeVec
	sourceBudget   *prometheus.GaugeVec
	itemsProcessed *prometheus.CounterVec
	alertsTouched  *prometheus.CounterVec
}

// New builds a fresh registry with every Hardstop gauge/counter
// registered under it.
func New() *Registry {
	reg := prometheus.NewRegistry()
	return &Registry{
		reg: reg,
		runExitCode: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "hardstop",
			Name:      "run_exit_code",
			Help:      "Exit code of the most recent pipeline run (0 healthy, 1 warning, 2 broken).",
		}),
		sourceHealth: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hardstop",
			Name:      "source_health_score",
			Help:      "Source health score in [0,100] from the most recent evaluation window.",
		}, []string{"source_id"}),
		sourceBudget: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hardstop",
			Name:      "source_budget_state",
			Help:      "Source budget state as an ordinal (0 HEALTHY, 1 WATCH, 2 BLOCKED).",
		}, []string{"source_id"}),
		itemsProcessed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "hardstop",
			Name:      "items_processed_total",
			Help:      "Raw items processed per source per run.",
		}, []string{"source_id"}),
		alertsTouched: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "hardstop",
			Name:      "alerts_touched_total",
			Help:      "Alerts created or updated per source per run.",
		}, []string{"source_id"}),
	}
}

// Registerer exposes the underlying registry for the /metrics handler.
func (r *Registry) Registerer() *prometheus.Registry {
	return r.reg
}

// ObserveRunStatus records the exit code of a completed pipeline run.
func (r *Registry) ObserveRunStatus(code hstypes.ExitCode) {
	r.runExitCode.Set(exitCodeOrdinal(code))
}

// ObserveSourceHealth records one source's health score and budget state.
func (r *Registry) ObserveSourceHealth(sourceID string, score int, state hstypes.BudgetState) {
	r.sourceHealth.WithLabelValues(sourceID).Set(float64(score))
	r.sourceBudget.WithLabelValues(sourceID).Set(budgetStateOrdinal(state))
}

// ObserveSourceRun records one source's per-run item/alert counters.
func (r *Registry) ObserveSourceRun(sourceID string, itemsProcessed, alertsTouched int) {
	r.itemsProcessed.WithLabelValues(sourceID).Add(float64(itemsProcessed))
	r.alertsTouched.WithLabelValues(sourceID).Add(float64(alertsTouched))
}

func exitCodeOrdinal(code hstypes.ExitCode) float64 {
	switch code {
	case hstypes.ExitHealthy:
		return 0
	case hstypes.ExitWarning:
		return 1
	case hstypes.ExitBroken:
		return 2
	default:
		return -1
	}
}

func budgetStateOrdinal(state hstypes.BudgetState) float64 {
	switch state {
	case hstypes.BudgetHealthy:
		return 0
	case hstypes.BudgetWatch:
		return 1
	case hstypes.BudgetBlocked:
		return 2
	default:
		return -1
	}
}
