package hstypes

// Overlap is the sorted facility/lane id sets an IncidentEvidence artifact
// reports as shared between the existing alert and the new event.
type Overlap struct {
	FacilityIDs []string `json:"facility_ids,omitempty"`
	LaneIDs     []string `json:"lane_ids,omitempty"`
}

// DeterminismContext is present only in pinned mode (spec §3/§9).
type DeterminismContext struct {
	Seed             string `json:"seed,omitempty"`
	PinnedTimestamp  string `json:"pinned_timestamp,omitempty"`
	PinnedRunID      string `json:"pinned_run_id,omitempty"`
}

// IncidentEvidence is the artifact explaining an alert CREATE or UPDATE
// (spec §3/§4.H). It is a sibling of Alert, referenced by artifact_hash,
// never owned by it.
type IncidentEvidence struct {
	ArtifactID          string               `json:"artifact_id"`
	AlertID             string               `json:"alert_id"`
	RootEventIDs        []string             `json:"root_event_ids"`
	MergeReasons        []MergeReason        `json:"merge_reasons"`
	Overlap             Overlap              `json:"overlap"`
	MergeSummary        []string             `json:"merge_summary"`
	DeterminismMode     DeterminismMode      `json:"determinism_mode"`
	DeterminismContext  *DeterminismContext  `json:"determinism_context,omitempty"`
	ArtifactHash        string               `json:"artifact_hash"`
}

// CanonicalPayload returns the payload that gets hashed into ArtifactHash.
// In live mode, wall-clock fields are absent entirely (there are none in
// this artifact besides the optional DeterminismContext, which is nil in
// live mode by construction — see pkg/evidence).
func (ie IncidentEvidence) CanonicalPayload() map[string]any {
	m := map[string]any{
		"alert_id":         ie.AlertID,
		"determinism_mode": string(ie.DeterminismMode),
		"merge_reasons":    mergeReasonStrings(ie.MergeReasons),
		"merge_summary":    ie.MergeSummary,
		"overlap": map[string]any{
			"facility_ids": sortedCopy(ie.Overlap.FacilityIDs),
			"lane_ids":     sortedCopy(ie.Overlap.LaneIDs),
		},
		"root_event_ids": ie.RootEventIDs,
	}
	if ie.DeterminismContext != nil {
		m["determinism_context"] = map[string]any{
			"pinned_run_id":    ie.DeterminismContext.PinnedRunID,
			"pinned_timestamp": ie.DeterminismContext.PinnedTimestamp,
			"seed":             ie.DeterminismContext.Seed,
		}
	}
	return m
}

func mergeReasonStrings(reasons []MergeReason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}
