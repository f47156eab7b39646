// Package evidence implements Hardstop's incident evidence builder: on
// every alert CREATE or UPDATE it produces a hashed IncidentEvidence
// artifact explaining the merge (spec §4.H).
package evidence

import (
	"fmt"
	"sort"
	"time"

	"github.com/WhatsYourWhy/hardstop/pkg/clock"
	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
	"github.com/WhatsYourWhy/hardstop/pkg/provenance"
)

// temporalOverlapWindow and correlationWindowHours are the thresholds spec
// §4.H and §4.G name respectively; the builder only cites the window in
// its merge_summary string, the correlator owns enforcing it.
const (
	temporalOverlapWindow = 24 * time.Hour
	correlationWindowHours = 7 * 24
)

// Input bundles what Build needs to describe one CREATE or UPDATE.
type Input struct {
	Alert              hstypes.Alert
	NewPublishedAtUTC  time.Time
	PriorAlert         *hstypes.Alert // nil on CREATE
	NewFacilityIDs     []string
	NewLaneIDs         []string
	DeterminismContext *hstypes.DeterminismContext // non-nil only in pinned mode
}

// Build assembles and hashes the IncidentEvidence artifact for one
// CREATE/UPDATE (spec §4.H). artifactID is caller-supplied (deterministic
// ids are the caller's concern, matching every other repository in this
// codebase). clk is accepted for symmetry with every other builder in
// this codebase even though no wall-clock read happens here directly —
// all instants come from the Alert/Event already passed in.
func Build(clk clock.Clock, artifactID string, in Input) (hstypes.IncidentEvidence, error) {
	_ = clk

	reasons := []hstypes.MergeReason{hstypes.ReasonSameCorrelationKey}
	var overlap hstypes.Overlap
	summary := []string{fmt.Sprintf("Existing alert seen within %dh", correlationWindowHours)}

	if in.PriorAlert != nil {
		overlap.FacilityIDs = intersect(in.PriorAlert.Scope.FacilityIDs, in.NewFacilityIDs)
		overlap.LaneIDs = intersect(in.PriorAlert.Scope.LaneIDs, in.NewLaneIDs)

		if len(overlap.FacilityIDs) > 0 {
			reasons = append(reasons, hstypes.ReasonSharedFacilities)
			summary = append(summary, "Shared facilities: "+joinIDs(overlap.FacilityIDs))
		}
		if len(overlap.LaneIDs) > 0 {
			reasons = append(reasons, hstypes.ReasonSharedLanes)
			summary = append(summary, "Shared lanes: "+joinIDs(overlap.LaneIDs))
		}
		if temporalOverlap(in.PriorAlert.LastSeenUTC, in.NewPublishedAtUTC) {
			reasons = append(reasons, hstypes.ReasonTemporalOverlap)
			summary = append(summary, "Temporal overlap within 24h")
		}
	}

	mode := hstypes.DeterminismPinned
	detCtx := in.DeterminismContext
	if detCtx == nil {
		mode = hstypes.DeterminismLive
	}

	artifact := hstypes.IncidentEvidence{
		ArtifactID:         artifactID,
		AlertID:            in.Alert.AlertID,
		RootEventIDs:       append([]string(nil), in.Alert.RootEventIDs...),
		MergeReasons:       reasons,
		Overlap:            overlap,
		MergeSummary:       summary,
		DeterminismMode:    mode,
		DeterminismContext: detCtx,
	}

	hash, err := provenance.HashPayload(artifact)
	if err != nil {
		return hstypes.IncidentEvidence{}, err
	}
	artifact.ArtifactHash = hash
	return artifact, nil
}

// temporalOverlap reports whether prior and next are within
// temporalOverlapWindow of each other, in either direction (spec §4.H
// "|new.published_at - prior.last_seen| <= 24h").
func temporalOverlap(prior, next time.Time) bool {
	diff := next.Sub(prior)
	if diff < 0 {
		diff = -diff
	}
	return diff <= temporalOverlapWindow
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	var out []string
	for _, id := range b {
		if set[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func joinIDs(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ", "
		}
		out += id
	}
	return out
}
