package runstatus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
)

func TestEvaluateHealthyWhenNothingMatches(t *testing.T) {
	code, messages := Evaluate(Input{EnabledSourceCount: 2})
	require.Equal(t, hstypes.ExitHealthy, code)
	require.Empty(t, messages)
}

func TestEvaluateConfigParseErrorIsBroken(t *testing.T) {
	code, messages := Evaluate(Input{ConfigParseError: true})
	require.Equal(t, hstypes.ExitBroken, code)
	require.Contains(t, messages, "config parse error")
}

func TestEvaluateZeroEnabledSourcesIsBroken(t *testing.T) {
	code, _ := Evaluate(Input{EnabledSourceCount: 0})
	require.Equal(t, hstypes.ExitBroken, code)
}

func TestEvaluateAllSourcesFailedUncleanlyIsBroken(t *testing.T) {
	code, _ := Evaluate(Input{
		EnabledSourceCount: 2,
		FetchResults: []FetchOutcome{
			{SourceID: "s1", Failed: true},
			{SourceID: "s2", Failed: true},
		},
	})
	require.Equal(t, hstypes.ExitBroken, code)
}

func TestEvaluateAllSourcesFailedButOneCleanZeroIsNotBroken(t *testing.T) {
	code, _ := Evaluate(Input{
		EnabledSourceCount: 2,
		FetchResults: []FetchOutcome{
			{SourceID: "s1", Failed: true},
			{SourceID: "s2", Failed: true, ZeroItemsClean: true},
		},
	})
	require.NotEqual(t, hstypes.ExitBroken, code)
}

func TestEvaluateBlockedSourceIsBroken(t *testing.T) {
	code, messages := Evaluate(Input{
		EnabledSourceCount: 1,
		SourceBudgetStates: map[string]hstypes.BudgetState{"s1": hstypes.BudgetBlocked},
	})
	require.Equal(t, hstypes.ExitBroken, code)
	require.Contains(t, messages, "source s1 is BLOCKED")
}

func TestEvaluatePartialFetchFailureIsWarning(t *testing.T) {
	code, messages := Evaluate(Input{
		EnabledSourceCount: 2,
		FetchResults: []FetchOutcome{
			{SourceID: "s1", Failed: true},
			{SourceID: "s2", Failed: false},
		},
	})
	require.Equal(t, hstypes.ExitWarning, code)
	require.Contains(t, messages, "source s1 failed fetch")
}

func TestEvaluateStrictPromotesWarningToBroken(t *testing.T) {
	code, _ := Evaluate(Input{
		EnabledSourceCount: 2,
		FetchResults: []FetchOutcome{
			{SourceID: "s1", Failed: true},
			{SourceID: "s2", Failed: false},
		},
		Strict: true,
	})
	require.Equal(t, hstypes.ExitBroken, code)
}

func TestEvaluateMessagesAreOrderedByPrecedenceThenSourceID(t *testing.T) {
	code, messages := Evaluate(Input{
		EnabledSourceCount: 1,
		ConfigParseError:   true,
		StaleSources:       []string{"z-source", "a-source"},
	})
	require.Equal(t, hstypes.ExitBroken, code)
	require.Equal(t, "config parse error", messages[0])
	require.Equal(t, "source a-source is stale beyond threshold", messages[1])
	require.Equal(t, "source z-source is stale beyond threshold", messages[2])
}

func TestEvaluateWatchStateIsWarningNotBroken(t *testing.T) {
	code, _ := Evaluate(Input{
		EnabledSourceCount: 1,
		SourceBudgetStates: map[string]hstypes.BudgetState{"s1": hstypes.BudgetWatch},
	})
	require.Equal(t, hstypes.ExitWarning, code)
}
