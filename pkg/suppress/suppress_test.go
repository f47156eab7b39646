package suppress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/WhatsYourWhy/hardstop/pkg/clock"
	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
)

func fixedClock() clock.Clock {
	return clock.NewFixed(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
}

func TestNewRejectsDuplicateRuleIDsAcrossGlobalAndSource(t *testing.T) {
	global := []hstypes.SuppressionRuleConfig{
		{ID: "r1", Kind: hstypes.RuleKeyword, Field: hstypes.FieldTitle, Pattern: "drill"},
	}
	sources := []hstypes.SourceConfig{
		{ID: "s1", SuppressRules: []hstypes.SuppressionRuleConfig{
			{ID: "r1", Kind: hstypes.RuleKeyword, Field: hstypes.FieldTitle, Pattern: "test"},
		}},
	}
	_, err := New(fixedClock(), global, sources, false)
	require.Error(t, err)
}

func TestNewRejectsUncompilableRegex(t *testing.T) {
	global := []hstypes.SuppressionRuleConfig{
		{ID: "r1", Kind: hstypes.RuleRegex, Field: hstypes.FieldTitle, Pattern: "(unclosed"},
	}
	_, err := New(fixedClock(), global, nil, false)
	require.Error(t, err)
}

func TestEvaluateGlobalThenPerSourceInDeclaredOrder(t *testing.T) {
	global := []hstypes.SuppressionRuleConfig{
		{ID: "g1", Kind: hstypes.RuleKeyword, Field: hstypes.FieldTitle, Pattern: "drill", ReasonCode: "TRAINING_DRILL"},
	}
	sources := []hstypes.SourceConfig{
		{ID: "s1", SuppressRules: []hstypes.SuppressionRuleConfig{
			{ID: "s1r1", Kind: hstypes.RuleKeyword, Field: hstypes.FieldTitle, Pattern: "test", ReasonCode: "TEST_EVENT"},
		}},
	}
	eng, err := New(fixedClock(), global, sources, false)
	require.NoError(t, err)

	event := hstypes.Event{SourceID: "s1", Title: "Annual test drill at warehouse"}
	result := eng.Evaluate(event)
	require.True(t, result.Matched)
	require.Equal(t, "g1", result.PrimaryRuleID)
	require.Equal(t, "TRAINING_DRILL", result.ReasonCode)
	require.ElementsMatch(t, []string{"g1", "s1r1"}, result.RuleIDs)
}

func TestEvaluateAnyFieldTestsTitleSummaryRawTextInOrder(t *testing.T) {
	global := []hstypes.SuppressionRuleConfig{
		{ID: "g1", Kind: hstypes.RuleKeyword, Field: hstypes.FieldAny, Pattern: "recall", ReasonCode: "RECALL_KEYWORD"},
	}
	eng, err := New(fixedClock(), global, nil, false)
	require.NoError(t, err)

	titleMatch := eng.Evaluate(hstypes.Event{Title: "Voluntary recall issued"})
	require.True(t, titleMatch.Matched)

	summaryMatch := eng.Evaluate(hstypes.Event{Title: "Plant update", Summary: "Recall scope expanded"})
	require.True(t, summaryMatch.Matched)

	rawTextMatch := eng.Evaluate(hstypes.Event{Title: "Plant update", RawText: "recall process began"})
	require.True(t, rawTextMatch.Matched)

	noMatch := eng.Evaluate(hstypes.Event{Title: "Plant update"})
	require.False(t, noMatch.Matched)
}

func TestApplyStampsSuppressionWhenMatched(t *testing.T) {
	global := []hstypes.SuppressionRuleConfig{
		{ID: "g1", Kind: hstypes.RuleExact, Field: hstypes.FieldEventType, Pattern: "OTHER", ReasonCode: "NOISE"},
	}
	eng, err := New(fixedClock(), global, nil, false)
	require.NoError(t, err)

	event := hstypes.Event{EventType: hstypes.EventOther}
	stamped, result := eng.Apply(event)
	require.True(t, result.Matched)
	require.True(t, stamped.Suppression.Suppressed())
	require.Equal(t, "g1", stamped.Suppression.PrimaryRuleID)
	require.Equal(t, "NOISE", stamped.Suppression.ReasonCode)
}

func TestApplyUnderNoSuppressEvaluatesButDoesNotStamp(t *testing.T) {
	global := []hstypes.SuppressionRuleConfig{
		{ID: "g1", Kind: hstypes.RuleExact, Field: hstypes.FieldEventType, Pattern: "OTHER", ReasonCode: "NOISE"},
	}
	eng, err := New(fixedClock(), global, nil, true)
	require.NoError(t, err)

	event := hstypes.Event{EventType: hstypes.EventOther}
	unstamped, result := eng.Apply(event)
	require.True(t, result.Matched, "diagnostics still evaluate under --no-suppress")
	require.False(t, unstamped.Suppression.Suppressed())
}

func TestEvaluateRegexCaseInsensitiveByDefault(t *testing.T) {
	global := []hstypes.SuppressionRuleConfig{
		{ID: "g1", Kind: hstypes.RuleRegex, Field: hstypes.FieldTitle, Pattern: "^drill.*", ReasonCode: "DRILL"},
	}
	eng, err := New(fixedClock(), global, nil, false)
	require.NoError(t, err)

	result := eng.Evaluate(hstypes.Event{Title: "DRILL exercise scheduled"})
	require.True(t, result.Matched)
}

func TestEvaluateExactCaseSensitive(t *testing.T) {
	global := []hstypes.SuppressionRuleConfig{
		{ID: "g1", Kind: hstypes.RuleExact, Field: hstypes.FieldTier, Pattern: "tier3", CaseSensitive: true, ReasonCode: "LOW_TIER"},
	}
	eng, err := New(fixedClock(), global, nil, false)
	require.NoError(t, err)

	require.True(t, eng.Evaluate(hstypes.Event{Tier: "tier3"}).Matched)
	require.False(t, eng.Evaluate(hstypes.Event{Tier: "Tier3"}).Matched)
}
