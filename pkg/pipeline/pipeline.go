// Package pipeline wires the operator chain together: canonicalization,
// suppression, network linkage, impact scoring, alert correlation, and
// incident evidence, run sequentially over one run_group_id's raw items
// (spec §2, §5).
//
// GUARDRAIL: no goroutines. All operators run synchronously, one raw item
// at a time, consulting ctx between sources and between items (never in
// the middle of an item's operator chain) so a cancelled run stops cleanly
// without leaving a half-written item behind.
package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/WhatsYourWhy/hardstop/pkg/canon"
	"github.com/WhatsYourWhy/hardstop/pkg/clock"
	"github.com/WhatsYourWhy/hardstop/pkg/correlate"
	"github.com/WhatsYourWhy/hardstop/pkg/evidence"
	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
	"github.com/WhatsYourWhy/hardstop/pkg/linker"
	"github.com/WhatsYourWhy/hardstop/pkg/provenance"
	"github.com/WhatsYourWhy/hardstop/pkg/score"
	"github.com/WhatsYourWhy/hardstop/pkg/store"
	"github.com/WhatsYourWhy/hardstop/pkg/suppress"
)

// operatorVersion is appended to every operator_id this pipeline stamps
// onto a RunRecord (spec §3 "operator_id (name@version)").
const operatorVersion = "1"

// Dependencies bundles everything one pipeline run needs. Repositories are
// the concrete file/in-memory-backed implementations from pkg/store; the
// pipeline owns no storage of its own.
type Dependencies struct {
	Clock       clock.Clock
	Config      hstypes.ResolvedConfig
	RawItems    *store.RawItemRepository
	Events      *store.EventRepository
	Alerts      *store.AlertRepository
	Evidence    *store.IncidentEvidenceRepository
	SourceRuns  *store.SourceRunRepository
	Suppression *suppress.Engine
	Snapshot    hstypes.NetworkSnapshot
	KeyLock     *correlate.KeyLock
	RunGroupID  string
	Mode        hstypes.ExecutionMode

	// DeterminismContext is non-nil only for pinned (non-live) runs; it is
	// threaded into every IncidentEvidence this run produces (spec §4.H).
	DeterminismContext *hstypes.DeterminismContext
}

// Result is everything a caller (cmd/hardstop) needs after a run: the
// RunRecords of all six operators (one each, even for an operator that
// touched no item), and the
// SourceRun telemetry rows for the INGEST phase, one per enabled source
// regardless of whether it had any NEW items this run group.
type Result struct {
	RunRecords []hstypes.RunRecord
	SourceRuns []hstypes.SourceRun
}

// Run processes every NEW raw item belonging to an enabled source through
// the full operator chain, in (fetched_at_utc, raw_item_id) order (spec
// §4.B "list_for_ingest" order), stopping early if ctx is cancelled
// between items.
func Run(ctx context.Context, deps Dependencies) (Result, error) {
	enabled := enabledSourcesByID(deps.Config.Sources)

	items := deps.RawItems.ListForIngest()
	bySource := partitionBySource(items, enabled)

	canonTracker, err := beginTracker(deps, "canon.Normalize")
	if err != nil {
		return Result{}, err
	}
	suppressTracker, err := beginTracker(deps, "suppress.Evaluate")
	if err != nil {
		return Result{}, err
	}
	linkTracker, err := beginTracker(deps, "linker.Link")
	if err != nil {
		return Result{}, err
	}
	scoreTracker, err := beginTracker(deps, "score.Score")
	if err != nil {
		return Result{}, err
	}
	correlateTracker, err := beginTracker(deps, "correlate.Upsert")
	if err != nil {
		return Result{}, err
	}
	evidenceTracker, err := beginTracker(deps, "evidence.Build")
	if err != nil {
		return Result{}, err
	}

	var sourceRuns []hstypes.SourceRun
	for _, sourceID := range sortedEnabledSourceIDs(enabled) {
		if ctx.Err() != nil {
			break
		}
		sourceCfg := enabled[sourceID]
		run, err := ingestSource(ctx, deps, sourceCfg, bySource[sourceID], operators{
			canon:     canonTracker,
			suppress:  suppressTracker,
			link:      linkTracker,
			score:     scoreTracker,
			correlate: correlateTracker,
			evidence:  evidenceTracker,
		})
		if err != nil {
			return Result{}, err
		}
		sourceRuns = append(sourceRuns, run)
		if err := deps.SourceRuns.Record(run); err != nil {
			return Result{}, err
		}
	}

	records, err := finalizeTrackers(canonTracker, suppressTracker, linkTracker, scoreTracker, correlateTracker, evidenceTracker)
	if err != nil {
		return Result{}, err
	}

	return Result{RunRecords: records, SourceRuns: sourceRuns}, nil
}

// operators bundles the one Tracker-per-operator this run group shares,
// so ingestSource can attach input/output refs without re-opening a
// RunRecord per source (spec §2 "emits exactly one RunRecord per
// execution" — one execution is this whole run, not one per source).
type operators struct {
	canon     *provenance.Tracker
	suppress  *provenance.Tracker
	link      *provenance.Tracker
	score     *provenance.Tracker
	correlate *provenance.Tracker
	evidence  *provenance.Tracker
}

// ingestSource runs every item belonging to one source through the full
// chain and returns its INGEST-phase SourceRun telemetry row.
func ingestSource(ctx context.Context, deps Dependencies, sourceCfg hstypes.SourceConfig, items []hstypes.RawItem, ops operators) (hstypes.SourceRun, error) {
	startedAt := deps.Clock.Now()
	counters := hstypes.RunCounters{ItemsFetched: len(items)}

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		if err := processItem(deps, sourceCfg, item, ops, &counters); err != nil {
			return hstypes.SourceRun{}, fmt.Errorf("pipeline: ingest source %s: %w", sourceCfg.ID, err)
		}
	}

	endedAt := deps.Clock.Now()
	return hstypes.SourceRun{
		RunGroupID:      deps.RunGroupID,
		Phase:           hstypes.PhaseIngest,
		SourceID:        sourceCfg.ID,
		Status:          hstypes.RunSuccess,
		DurationSeconds: endedAt.Sub(startedAt).Seconds(),
		Counters:        counters,
		RunAtUTC:        startedAt,
	}, nil
}

// processItem runs one raw item through canon -> suppress -> link -> score
// -> correlate/evidence, mutating counters and stamping the raw item and
// any produced Event/Alert/IncidentEvidence into their repositories.
func processItem(deps Dependencies, sourceCfg hstypes.SourceConfig, item hstypes.RawItem, ops operators, counters *hstypes.RunCounters) error {
	inputRef := hstypes.ArtifactRef{ID: item.RawItemID, Kind: "raw_item", Hash: item.ContentHash}
	ops.canon.RecordInput(inputRef)

	event := canon.Normalize(item)
	eventRef := hstypes.ArtifactRef{ID: event.EventID, Kind: "event"}
	ops.canon.RecordOutput(eventRef)
	for _, w := range event.CanonicalizationWarnings {
		ops.canon.RecordWarning(w)
	}

	ops.suppress.RecordInput(eventRef)
	event, suppressResult := deps.Suppression.Apply(event)
	ops.suppress.RecordOutput(eventRef)

	if err := deps.Events.Save(event); err != nil {
		return err
	}
	counters.ItemsProcessed++

	processed := item
	if suppressResult.Matched && event.Suppression.Suppressed() {
		processed.Status = hstypes.RawItemSuppressed
		processed.Suppression = event.Suppression
		counters.ItemsSuppressed++
	} else {
		processed.Status = hstypes.RawItemNormalized
	}
	if err := deps.RawItems.MarkProcessed(processed); err != nil {
		return err
	}

	ops.link.RecordInput(eventRef)
	linked := linker.Link(event, deps.Snapshot, deps.Clock.Now(), deps.Config.Runtime.MaxShipments)
	for _, w := range linked.Warnings {
		ops.link.RecordWarning(w)
	}

	ops.score.RecordInput(eventRef)
	scored := score.Score(score.Input{
		Event:               event,
		Snapshot:            deps.Snapshot,
		Linked:              linked,
		TrustTier:           sourceCfg.TrustTier,
		WeightingBias:       sourceCfg.WeightingBias,
		ClassificationFloor: sourceCfg.ClassificationFloor,
		Now:                 deps.Clock.Now(),
	})
	for _, w := range scored.Warnings {
		ops.score.RecordWarning(w)
	}

	counters.ItemsEventsCreated++

	if event.Suppression.Suppressed() {
		// Suppressed events are audit-only: they skip both CREATE and
		// UPDATE (spec §4.G step 4).
		return nil
	}

	key := correlate.CorrelationKey(event, linked)
	unlock := deps.KeyLock.Lock(key)
	defer unlock()

	priorAlert, hadPrior := deps.Alerts.ByCorrelationKey(key)

	ops.correlate.RecordInput(eventRef)
	result := correlate.Upsert(deps.Clock, deps.Alerts, event, linked, scored, deps.Config.Runtime.CorrelationWindowDays, alertIDGen(deps.Clock, key, event))
	alertRef := hstypes.ArtifactRef{ID: result.Alert.AlertID, Kind: "alert"}
	ops.correlate.RecordOutput(alertRef)

	if err := deps.Alerts.Upsert(result.Alert); err != nil {
		return err
	}
	counters.ItemsAlertsTouched++

	var priorPtr *hstypes.Alert
	if result.Action == hstypes.CorrelationUpdated && hadPrior {
		priorPtr = &priorAlert
	}

	artifactID, err := provenance.ComputeID("EVID", map[string]any{
		"alert_id": result.Alert.AlertID,
		"event_id": event.EventID,
		"action":   string(result.Action),
	}, 16)
	if err != nil {
		return err
	}

	ops.evidence.RecordInput(alertRef)
	artifact, err := evidence.Build(deps.Clock, artifactID, evidence.Input{
		Alert:              result.Alert,
		NewPublishedAtUTC:  event.ObservedAt(),
		PriorAlert:         priorPtr,
		NewFacilityIDs:     linked.FacilityIDs,
		NewLaneIDs:         linked.LaneIDs,
		DeterminismContext: deps.DeterminismContext,
	})
	if err != nil {
		return err
	}
	ops.evidence.RecordOutput(hstypes.ArtifactRef{ID: artifact.ArtifactID, Kind: "incident_evidence", Hash: artifact.ArtifactHash})

	return deps.Evidence.Save(artifact)
}

// alertIDGen returns the deterministic alert_id generator correlate.Upsert
// calls exactly once, only on the CREATE path (spec §3 "alert_id" has no
// externally observable nondeterminism: it is derived from the
// correlation key and the triggering event, never from a random source,
// so replays with identical inputs produce identical ids).
func alertIDGen(clk clock.Clock, correlationKey string, event hstypes.Event) func() string {
	return func() string {
		digest, err := provenance.ComputeID("", map[string]any{
			"correlation_key": correlationKey,
			"event_id":        event.EventID,
		}, 8)
		if err != nil {
			digest = event.EventID
		}
		return "ALERT-" + clk.Now().Format("20060102") + "-" + digest
	}
}

func beginTracker(deps Dependencies, operatorName string) (*provenance.Tracker, error) {
	operatorID := operatorName + "@" + operatorVersion
	runID := deps.RunGroupID + "-" + operatorName
	return provenance.Begin(deps.Clock, deps.Config, operatorID, runID, deps.RunGroupID, deps.Mode)
}

func finalizeTrackers(trackers ...*provenance.Tracker) ([]hstypes.RunRecord, error) {
	records := make([]hstypes.RunRecord, 0, len(trackers))
	for _, t := range trackers {
		record, err := t.Finalize()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func enabledSourcesByID(sources []hstypes.SourceConfig) map[string]hstypes.SourceConfig {
	out := make(map[string]hstypes.SourceConfig, len(sources))
	for _, s := range sources {
		if s.Enabled {
			out[s.ID] = s
		}
	}
	return out
}

// partitionBySource groups items (already ordered by ListForIngest) by
// source_id, preserving the global order within each bucket, and skipping
// items whose source is not enabled (or not configured at all).
func partitionBySource(items []hstypes.RawItem, enabled map[string]hstypes.SourceConfig) map[string][]hstypes.RawItem {
	out := make(map[string][]hstypes.RawItem)
	for _, item := range items {
		if _, ok := enabled[item.SourceID]; !ok {
			continue
		}
		out[item.SourceID] = append(out[item.SourceID], item)
	}
	return out
}

// sortedEnabledSourceIDs returns every enabled source's id, sorted. Every
// enabled source gets an INGEST-phase SourceRun this run, even one with
// zero NEW items this round, so source-health aggregation never sees a
// gap in an enabled source's run history (spec §8 "clean re-ingest still
// records items_processed=0").
func sortedEnabledSourceIDs(enabled map[string]hstypes.SourceConfig) []string {
	ids := make([]string, 0, len(enabled))
	for id := range enabled {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
