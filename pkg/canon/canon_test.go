package canon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
)

func TestNormalizeInfersEventTypeByFirstKeywordMatch(t *testing.T) {
	item := hstypes.RawItem{
		RawItemID: "r1", SourceID: "s1",
		Title:   "Warehouse fire forces evacuation",
		RawText: "A strike was also planned but the fire came first",
	}
	e := Normalize(item)
	require.Equal(t, hstypes.EventSafetyAndOperations, e.EventType)
}

func TestNormalizeDefaultsToOtherWhenNoKeywordMatches(t *testing.T) {
	item := hstypes.RawItem{RawItemID: "r1", SourceID: "s1", Title: "Quarterly results released"}
	e := Normalize(item)
	require.Equal(t, hstypes.EventOther, e.EventType)
}

func TestNormalizeExtractsLeftmostLocation(t *testing.T) {
	item := hstypes.RawItem{
		RawItemID: "r1", SourceID: "s1",
		Title: "Flooding reported near Austin, Texas and also Denver, CO",
	}
	e := Normalize(item)
	require.Equal(t, "Austin", e.City)
	require.Equal(t, "TX", e.State)
}

func TestNormalizeWarnsWhenNoLocationFound(t *testing.T) {
	item := hstypes.RawItem{RawItemID: "r1", SourceID: "s1", Title: "No location mentioned here"}
	e := Normalize(item)
	require.Empty(t, e.City)
	require.NotEmpty(t, e.CanonicalizationWarnings)
}

func TestNormalizeIsDeterministic(t *testing.T) {
	item := hstypes.RawItem{
		RawItemID: "r1", SourceID: "s1", CanonicalID: "src-canon-id",
		Title: "Storm near Miami, Florida", FetchedAtUTC: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	e1 := Normalize(item)
	e2 := Normalize(item)
	require.Equal(t, e1.EventID, e2.EventID)
	require.Equal(t, "EVT-", e1.EventID[:4])
}

func TestNormalizeCopiesSummaryForward(t *testing.T) {
	item := hstypes.RawItem{RawItemID: "r1", SourceID: "s1", Summary: "Plant closed after inspection"}
	e := Normalize(item)
	require.Equal(t, "Plant closed after inspection", e.Summary)
}

func TestNormalizeCopiesSourceMetadataVerbatim(t *testing.T) {
	item := hstypes.RawItem{
		RawItemID: "r1", SourceID: "s1", Tier: "tier1", URL: "https://example.com/a",
		PublishedAtUTC: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	e := Normalize(item)
	require.Equal(t, "s1", e.SourceMetadata["source_id"])
	require.Equal(t, "tier1", e.SourceMetadata["tier"])
	require.Equal(t, "https://example.com/a", e.SourceMetadata["url"])
}
