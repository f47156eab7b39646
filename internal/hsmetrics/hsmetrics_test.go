package hsmetrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
)

func findFamily(t *testing.T, families []*dto.MetricFamily, name string) *dto.MetricFamily {
	t.Helper()
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric family %s not found", name)
	return nil
}

func TestObserveRunStatusSetsExitCodeGauge(t *testing.T) {
	reg := New()
	reg.ObserveRunStatus(hstypes.ExitWarning)

	families, err := reg.Registerer().Gather()
	require.NoError(t, err)

	family := findFamily(t, families, "hardstop_run_exit_code")
	require.Equal(t, float64(1), family.Metric[0].GetGauge().GetValue())
}

func TestObserveSourceHealthSetsLabeledGauges(t *testing.T) {
	reg := New()
	reg.ObserveSourceHealth("nws_active_us", 82, hstypes.BudgetWatch)

	families, err := reg.Registerer().Gather()
	require.NoError(t, err)

	health := findFamily(t, families, "hardstop_source_health_score")
	require.Equal(t, float64(82), health.Metric[0].GetGauge().GetValue())

	budget := findFamily(t, families, "hardstop_source_budget_state")
	require.Equal(t, float64(1), budget.Metric[0].GetGauge().GetValue())
}

func TestObserveSourceRunAccumulatesCounters(t *testing.T) {
	reg := New()
	reg.ObserveSourceRun("nws_active_us", 3, 1)
	reg.ObserveSourceRun("nws_active_us", 2, 0)

	families, err := reg.Registerer().Gather()
	require.NoError(t, err)

	processed := findFamily(t, families, "hardstop_items_processed_total")
	require.Equal(t, float64(5), processed.Metric[0].GetCounter().GetValue())
}
