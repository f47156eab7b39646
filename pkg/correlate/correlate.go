// Package correlate implements Hardstop's alert correlator: deduplicating
// events against a sliding window via a stable correlation key, and
// creating or updating the materialized Alert (spec §4.G).
package correlate

import (
	"sort"
	"sync"
	"time"

	"github.com/WhatsYourWhy/hardstop/pkg/clock"
	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
	"github.com/WhatsYourWhy/hardstop/pkg/linker"
	"github.com/WhatsYourWhy/hardstop/pkg/score"
)

// DefaultCorrelationWindowDays is the sliding window the correlator
// searches for an existing alert to update when the caller has no
// resolved runtime config to pass (spec §4.G "last_seen_utc >= now - 7
// days").
const DefaultCorrelationWindowDays = 7

// bucketByEventType is the pinned event_type -> correlation bucket mapping
// (spec §4.G "BUCKET is derived from event_type via a pinned mapping").
var bucketByEventType = map[hstypes.EventType]string{
	hstypes.EventSafetyAndOperations: "SAFETY",
	hstypes.EventWeather:              "WEATHER",
	hstypes.EventRecall:               "RECALL",
	hstypes.EventLabor:                "LABOR",
	hstypes.EventInfrastructure:       "INFRASTRUCTURE",
	hstypes.EventSecurity:             "SECURITY",
	hstypes.EventOther:                "OTHER",
}

// Lookup resolves an existing alert for a correlation key within the
// sliding window, scoped to the caller so pkg/correlate stays storage
// agnostic.
type Lookup interface {
	// ByCorrelationKey returns the alert for key and whether it was found.
	ByCorrelationKey(key string) (hstypes.Alert, bool)
}

// KeyLock serializes CREATE/UPDATE flows per correlation key so two events
// landing on the same key within one run never race (spec §5 "single-
// threaded... synchronous" discipline is upheld by construction within a
// run, but the lock also protects callers that fan correlation out).
// Grounded on OpenClause's per-tenant advisory-lock-around-hash-chain
// pattern, adapted to an in-process mutex map since there is no SQL
// engine in core scope.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyLock returns an empty KeyLock.
func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the per-key mutex, creating it on first use.
func (k *KeyLock) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// CorrelationKey computes the stable key an event upserts against (spec
// §4.G): bucket, lexicographically-smallest linked facility or `*`,
// lexicographically-smallest linked lane or `*`.
func CorrelationKey(event hstypes.Event, linked linker.Result) string {
	bucket, ok := bucketByEventType[event.EventType]
	if !ok {
		bucket = "OTHER"
	}
	facility := smallestOrStar(linked.FacilityIDs)
	lane := smallestOrStar(linked.LaneIDs)
	return bucket + "|" + facility + "|" + lane
}

func smallestOrStar(ids []string) string {
	if len(ids) == 0 {
		return "*"
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return sorted[0]
}

// Result is the outcome of Upsert.
type Result struct {
	Alert  hstypes.Alert
	Action hstypes.CorrelationAction
}

// Upsert applies event to lookup's alert store per the CREATE/UPDATE flow
// (spec §4.G steps 2-3). SUPPRESSED events must never reach Upsert — the
// caller is responsible for routing them to audit-only handling (spec §4.G
// step 4); Upsert assumes event is not suppressed. windowDays is the
// configurable sliding window (HARDSTOP_CORRELATION_WINDOW_DAYS); pass
// DefaultCorrelationWindowDays when the caller has no resolved config.
func Upsert(clk clock.Clock, lookup Lookup, event hstypes.Event, linked linker.Result, scored score.Result, windowDays int, idGen func() string) Result {
	key := CorrelationKey(event, linked)
	observedAt := event.ObservedAt()
	window := time.Duration(windowDays) * 24 * time.Hour

	existing, found := lookup.ByCorrelationKey(key)
	if !found || existing.LastSeenUTC.Before(clk.Now().Add(-window)) {
		alert := hstypes.Alert{
			AlertID:           idGen(),
			RiskType:          bucketByEventType[event.EventType],
			Classification:    scored.Classification,
			Status:            hstypes.AlertStatusOpen,
			RootEventID:       event.EventID,
			Scope:             scopeFromLinked(linked),
			ImpactScore:       scored.Score,
			CorrelationKey:    key,
			CorrelationAction: hstypes.CorrelationCreated,
			FirstSeenUTC:      observedAt,
			LastSeenUTC:       observedAt,
			UpdateCount:       1,
			RootEventIDs:      []string{event.EventID},
			Tier:              event.Tier,
			SourceID:          event.SourceID,
			TrustTier:         event.TrustTier,
			Evidence:          evidenceFromScore(scored),
		}
		return Result{Alert: alert, Action: hstypes.CorrelationCreated}
	}

	alert := existing
	alert.RootEventIDs = append(append([]string(nil), alert.RootEventIDs...), event.EventID)
	alert.UpdateCount = len(alert.RootEventIDs)
	if observedAt.After(alert.LastSeenUTC) {
		alert.LastSeenUTC = observedAt
	}
	alert.Scope = unionScope(alert.Scope, scopeFromLinked(linked))
	alert.Tier = event.Tier
	alert.SourceID = event.SourceID
	alert.TrustTier = event.TrustTier
	if scored.Score > alert.ImpactScore {
		alert.ImpactScore = scored.Score
	}
	alert.Classification = reclassify(alert.Classification, scored.Classification)
	alert.CorrelationAction = hstypes.CorrelationUpdated
	alert.Evidence = evidenceFromScore(scored)

	return Result{Alert: alert, Action: hstypes.CorrelationUpdated}
}

// reclassify keeps the correlator's "monotonic" impact score contract
// consistent at the classification level: the alert never regresses to a
// lower classification band than it previously held.
func reclassify(previous, next hstypes.Classification) hstypes.Classification {
	if next > previous {
		return next
	}
	return previous
}

func scopeFromLinked(linked linker.Result) hstypes.Scope {
	return hstypes.Scope{
		FacilityIDs:          sortedUnique(linked.FacilityIDs),
		LaneIDs:              sortedUnique(linked.LaneIDs),
		ShipmentIDs:          sortedUnique(linked.ShipmentIDs),
		ShipmentsTotalLinked: linked.ShipmentsTotalLinked,
		ShipmentsTruncated:   linked.ShipmentsTruncated,
	}
}

// unionScope merges previous and next linkage as sets (spec §4.G "refresh
// scope as the union of previous scope and new event linkages"), with
// shipments re-taken from next since truncation rules must be re-evaluated
// against the new event's linkage, not merged with stale ones.
func unionScope(previous, next hstypes.Scope) hstypes.Scope {
	return hstypes.Scope{
		FacilityIDs:          sortedUnique(append(append([]string(nil), previous.FacilityIDs...), next.FacilityIDs...)),
		LaneIDs:              sortedUnique(append(append([]string(nil), previous.LaneIDs...), next.LaneIDs...)),
		ShipmentIDs:          next.ShipmentIDs,
		ShipmentsTotalLinked: next.ShipmentsTotalLinked,
		ShipmentsTruncated:   next.ShipmentsTruncated,
	}
}

func sortedUnique(ids []string) []string {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = true
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func evidenceFromScore(scored score.Result) hstypes.AlertEvidence {
	return hstypes.AlertEvidence{
		Diagnostics: map[string]any{"impact_score_rationale": scored.Rationale},
	}
}
