package brief

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
)

func now() time.Time { return time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC) }

func alert(id string, classification hstypes.Classification, impact, updateCount int, action hstypes.CorrelationAction, tier string, lastSeen time.Time) hstypes.Alert {
	return hstypes.Alert{
		AlertID: id, Classification: classification, ImpactScore: impact,
		UpdateCount: updateCount, CorrelationAction: action, Tier: tier,
		FirstSeenUTC: lastSeen, LastSeenUTC: lastSeen,
	}
}

func TestBuildFiltersByWindow(t *testing.T) {
	in := Input{
		Alerts: []hstypes.Alert{
			alert("A1", hstypes.ClassificationRelevant, 5, 1, hstypes.CorrelationCreated, "global", now().Add(-1*time.Hour)),
			alert("A2", hstypes.ClassificationRelevant, 5, 1, hstypes.CorrelationCreated, "global", now().Add(-200*time.Hour)),
		},
		Window: 24 * time.Hour, Now: now(), Limit: 10,
	}
	env := Build(in)
	require.Len(t, env.Created, 1)
	require.Equal(t, "A1", env.Created[0].AlertID)
}

func TestBuildSortsByClassificationThenImpactThenUpdateCountThenLastSeenThenID(t *testing.T) {
	in := Input{
		Alerts: []hstypes.Alert{
			alert("B", hstypes.ClassificationRelevant, 5, 1, hstypes.CorrelationCreated, "global", now()),
			alert("A", hstypes.ClassificationImpactful, 8, 1, hstypes.CorrelationCreated, "global", now()),
			alert("C", hstypes.ClassificationImpactful, 8, 1, hstypes.CorrelationCreated, "global", now()),
		},
		Window: 24 * time.Hour, Now: now(), Limit: 10,
	}
	env := Build(in)
	require.Equal(t, []string{"A", "C", "B"}, []string{env.Created[0].AlertID, env.Created[1].AlertID, env.Created[2].AlertID})
}

func TestBuildPartitionsCreatedAndUpdatedAndCapsByLimit(t *testing.T) {
	in := Input{
		Alerts: []hstypes.Alert{
			alert("A1", hstypes.ClassificationRelevant, 5, 1, hstypes.CorrelationCreated, "global", now()),
			alert("A2", hstypes.ClassificationRelevant, 5, 1, hstypes.CorrelationCreated, "global", now()),
			alert("A3", hstypes.ClassificationRelevant, 4, 2, hstypes.CorrelationUpdated, "global", now()),
		},
		Window: 24 * time.Hour, Now: now(), Limit: 1,
	}
	env := Build(in)
	require.Len(t, env.Created, 1)
	require.Len(t, env.Updated, 1)
	require.Equal(t, 2, env.Counts.New)
	require.Equal(t, 1, env.Counts.Updated)
}

func TestBuildTopIsUpToTwoImpactfulAlerts(t *testing.T) {
	in := Input{
		Alerts: []hstypes.Alert{
			alert("A1", hstypes.ClassificationImpactful, 9, 1, hstypes.CorrelationCreated, "global", now()),
			alert("A2", hstypes.ClassificationImpactful, 8, 1, hstypes.CorrelationCreated, "global", now()),
			alert("A3", hstypes.ClassificationImpactful, 7, 1, hstypes.CorrelationCreated, "global", now()),
		},
		Window: 24 * time.Hour, Now: now(), Limit: 10,
	}
	env := Build(in)
	require.Len(t, env.Top, 2)
	require.Equal(t, "A1", env.Top[0].AlertID)
	require.Equal(t, "A2", env.Top[1].AlertID)
}

func TestBuildTierCountsBucketUnknownTier(t *testing.T) {
	in := Input{
		Alerts: []hstypes.Alert{
			alert("A1", hstypes.ClassificationRelevant, 5, 1, hstypes.CorrelationCreated, "global", now()),
			alert("A2", hstypes.ClassificationRelevant, 5, 1, hstypes.CorrelationCreated, "", now()),
			alert("A3", hstypes.ClassificationRelevant, 5, 1, hstypes.CorrelationCreated, "regional", now()),
		},
		Window: 24 * time.Hour, Now: now(), Limit: 10,
	}
	env := Build(in)
	require.Equal(t, TierCounts{Global: 1, Regional: 1, Local: 0, Unknown: 1}, env.TierCounts)
}

func TestBuildSuppressedSummaryTopFiveByRuleAndSource(t *testing.T) {
	events := []hstypes.Event{
		{SourceID: "s1", Suppression: hstypes.SuppressionStamp{PrimaryRuleID: "r1", SuppressedAt: now()}},
		{SourceID: "s1", Suppression: hstypes.SuppressionStamp{PrimaryRuleID: "r1", SuppressedAt: now()}},
		{SourceID: "s2", Suppression: hstypes.SuppressionStamp{PrimaryRuleID: "r2", SuppressedAt: now()}},
	}
	env := Build(Input{SuppressedEvents: events, Window: 24 * time.Hour, Now: now(), Limit: 10})
	require.Equal(t, 3, env.Suppressed.Count)
	require.Equal(t, "r1", env.Suppressed.ByRule[0].RuleID)
	require.Equal(t, 2, env.Suppressed.ByRule[0].Count)
	require.Equal(t, "s1", env.Suppressed.BySource[0].SourceID)
}

func TestBuildExcludeClassificationZero(t *testing.T) {
	in := Input{
		Alerts: []hstypes.Alert{
			alert("A1", hstypes.ClassificationInteresting, 2, 1, hstypes.CorrelationCreated, "global", now()),
		},
		Window: 24 * time.Hour, Now: now(), Limit: 10, ExcludeClassificationZero: true,
	}
	env := Build(in)
	require.Empty(t, env.Created)
}

func TestBuildSetsReadModelVersion(t *testing.T) {
	env := Build(Input{Window: 24 * time.Hour, Now: now()})
	require.Equal(t, "brief.v1", env.ReadModelVersion)
}
