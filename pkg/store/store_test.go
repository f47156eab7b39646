package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/WhatsYourWhy/hardstop/pkg/clock"
	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
	"github.com/WhatsYourWhy/hardstop/pkg/storelog"
)

func fixedClock() clock.Clock {
	return clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestRawItemRepositorySaveDeduplicatesByContentHash(t *testing.T) {
	repo, err := NewRawItemRepository(storelog.NewInMemoryLog(), fixedClock())
	require.NoError(t, err)

	item := hstypes.RawItem{RawItemID: "r1", SourceID: "s1", ContentHash: "h1", Status: hstypes.RawItemNew,
		FetchedAtUTC: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}

	outcome, err := repo.Save(item)
	require.NoError(t, err)
	require.Equal(t, hstypes.SaveCreated, outcome)

	dup := item
	dup.RawItemID = "r2"
	outcome, err = repo.Save(dup)
	require.NoError(t, err)
	require.Equal(t, hstypes.SaveDuplicate, outcome)
	require.Equal(t, 1, repo.Count())
}

func TestRawItemRepositorySaveDeduplicatesBySourceAndCanonicalIDAheadOfContentHash(t *testing.T) {
	repo, err := NewRawItemRepository(storelog.NewInMemoryLog(), fixedClock())
	require.NoError(t, err)

	item := hstypes.RawItem{RawItemID: "r1", SourceID: "s1", CanonicalID: "NWS-2026-01-01-001",
		ContentHash: "h1", Status: hstypes.RawItemNew, FetchedAtUTC: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}

	outcome, err := repo.Save(item)
	require.NoError(t, err)
	require.Equal(t, hstypes.SaveCreated, outcome)

	// Same source_id + canonical_id, but a corrected payload under a
	// different content_hash: still a duplicate ingest, not a new item.
	refetch := item
	refetch.RawItemID = "r2"
	refetch.ContentHash = "h2"
	outcome, err = repo.Save(refetch)
	require.NoError(t, err)
	require.Equal(t, hstypes.SaveDuplicate, outcome)
	require.Equal(t, 1, repo.Count())

	// Same canonical_id under a different source_id is not a duplicate.
	otherSource := item
	otherSource.RawItemID = "r3"
	otherSource.SourceID = "s2"
	outcome, err = repo.Save(otherSource)
	require.NoError(t, err)
	require.Equal(t, hstypes.SaveCreated, outcome)
	require.Equal(t, 2, repo.Count())
}

func TestRawItemRepositoryListForIngestOrdersByFetchedAtThenID(t *testing.T) {
	repo, err := NewRawItemRepository(storelog.NewInMemoryLog(), fixedClock())
	require.NoError(t, err)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []hstypes.RawItem{
		{RawItemID: "b", SourceID: "s1", ContentHash: "h2", Status: hstypes.RawItemNew, FetchedAtUTC: base},
		{RawItemID: "a", SourceID: "s1", ContentHash: "h1", Status: hstypes.RawItemNew, FetchedAtUTC: base},
		{RawItemID: "z", SourceID: "s1", ContentHash: "h3", Status: hstypes.RawItemNew, FetchedAtUTC: base.Add(time.Hour)},
		{RawItemID: "skip", SourceID: "s1", ContentHash: "h4", Status: hstypes.RawItemSuppressed, FetchedAtUTC: base},
	}
	for _, item := range items {
		_, err := repo.Save(item)
		require.NoError(t, err)
	}

	ordered := repo.ListForIngest()
	require.Len(t, ordered, 3)
	require.Equal(t, []string{"a", "b", "z"}, []string{ordered[0].RawItemID, ordered[1].RawItemID, ordered[2].RawItemID})
}

func TestRawItemRepositoryReplaysFromFileLog(t *testing.T) {
	dir := t.TempDir()
	log, err := storelog.NewFileLog(dir + "/raw_items.jsonl")
	require.NoError(t, err)

	repo, err := NewRawItemRepository(log, fixedClock())
	require.NoError(t, err)
	_, err = repo.Save(hstypes.RawItem{RawItemID: "r1", SourceID: "s1", ContentHash: "h1", Status: hstypes.RawItemNew})
	require.NoError(t, err)
	require.NoError(t, log.Flush())

	log2, err := storelog.NewFileLog(dir + "/raw_items.jsonl")
	require.NoError(t, err)
	repo2, err := NewRawItemRepository(log2, fixedClock())
	require.NoError(t, err)
	require.Equal(t, 1, repo2.Count())
	require.True(t, repo2.HasContentHash("h1"))
}

func TestAlertRepositoryUpsertIndexesByCorrelationKey(t *testing.T) {
	repo, err := NewAlertRepository(storelog.NewInMemoryLog(), fixedClock())
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := hstypes.Alert{
		AlertID: "alert-1", CorrelationKey: "WEATHER|FAC1|*",
		FirstSeenUTC: now, LastSeenUTC: now,
		UpdateCount: 1, RootEventIDs: []string{"e1"}, ImpactScore: 5,
	}
	require.NoError(t, repo.Upsert(a))

	got, ok := repo.ByCorrelationKey("WEATHER|FAC1|*")
	require.True(t, ok)
	require.Equal(t, "alert-1", got.AlertID)

	a.UpdateCount = 2
	a.RootEventIDs = []string{"e1", "e2"}
	a.LastSeenUTC = now.Add(time.Hour)
	require.NoError(t, repo.Upsert(a))

	got, err = repo.Get("alert-1")
	require.NoError(t, err)
	require.Equal(t, 2, got.UpdateCount)
}

func TestAlertRepositoryUpsertRejectsInvalidAlert(t *testing.T) {
	repo, err := NewAlertRepository(storelog.NewInMemoryLog(), fixedClock())
	require.NoError(t, err)

	a := hstypes.Alert{AlertID: "bad", UpdateCount: 2, RootEventIDs: []string{"only-one"}}
	require.Error(t, repo.Upsert(a))
}

func TestSourceRunRepositoryRecentOrdersNewestFirstAndCaps(t *testing.T) {
	repo, err := NewSourceRunRepository(storelog.NewInMemoryLog(), fixedClock())
	require.NoError(t, err)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := hstypes.SourceRun{
			SourceID: "s1", Phase: hstypes.PhaseFetch, Status: hstypes.RunSuccess,
			RunAtUTC: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, repo.Record(run))
	}

	recent := repo.Recent("s1", hstypes.PhaseFetch, 2)
	require.Len(t, recent, 2)
	require.True(t, recent[0].RunAtUTC.After(recent[1].RunAtUTC))
}
