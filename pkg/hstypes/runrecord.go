package hstypes

import "time"

// ArtifactRef is a weak, hash-only reference to an artifact. RunRecord
// references artifacts this way exclusively; it never owns them (spec §3
// Ownership).
type ArtifactRef struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Hash string `json:"hash"`
}

// Cost is the resource accounting attached to a finalized RunRecord.
type Cost struct {
	DurationSeconds float64 `json:"duration_seconds"`
	BytesIn         int64   `json:"bytes_in"`
	BytesOut        int64   `json:"bytes_out"`
}

// BestEffort carries the seed/model metadata an operator declared when it
// used unpinned nondeterminism under best-effort mode. It is always empty
// in strict mode (spec §4.A).
type BestEffort struct {
	Seed   string         `json:"seed,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Empty reports whether no best-effort metadata was recorded.
func (b BestEffort) Empty() bool {
	return b.Seed == "" && len(b.Fields) == 0
}

// RunRecord is the append-only provenance unit emitted exactly once per
// operator invocation, on every execution path (spec §3/§4.A).
type RunRecord struct {
	RunID       string         `json:"run_id"`
	OperatorID  string         `json:"operator_id"`
	StartedAt   time.Time      `json:"started_at"`
	EndedAt     time.Time      `json:"ended_at"`
	Mode        ExecutionMode  `json:"mode"`
	ConfigHash  string         `json:"config_hash"`
	InputRefs   []ArtifactRef  `json:"input_refs"`
	OutputRefs  []ArtifactRef  `json:"output_refs"`
	Warnings    []string       `json:"warnings"`
	Errors      []string       `json:"errors"`
	Cost        Cost           `json:"cost"`
	BestEffort  BestEffort     `json:"best_effort"`
	RunGroupID  string         `json:"run_group_id"`
}

// CanonicalPayload returns the sorted-key map used for hashing/serializing
// a RunRecord. started_at/ended_at are caller-pinned timestamps already, so
// they are safe to hash directly (spec §4.A.2 "caller-pinned or replaced
// with sentinels before hashing").
func (r RunRecord) CanonicalPayload() map[string]any {
	m := map[string]any{
		"config_hash":  r.ConfigHash,
		"ended_at":     r.EndedAt,
		"errors":       r.Errors,
		"mode":         string(r.Mode),
		"operator_id":  r.OperatorID,
		"run_group_id": r.RunGroupID,
		"run_id":       r.RunID,
		"started_at":   r.StartedAt,
		"warnings":     r.Warnings,
		"cost": map[string]any{
			"bytes_in":         r.Cost.BytesIn,
			"bytes_out":        r.Cost.BytesOut,
			"duration_seconds": r.Cost.DurationSeconds,
		},
		"input_refs":  refList(r.InputRefs),
		"output_refs": refList(r.OutputRefs),
	}
	if !r.BestEffort.Empty() {
		m["best_effort"] = map[string]any{
			"fields": r.BestEffort.Fields,
			"seed":   r.BestEffort.Seed,
		}
	} else {
		m["best_effort"] = map[string]any{}
	}
	return m
}

func refList(refs []ArtifactRef) []map[string]any {
	out := make([]map[string]any, len(refs))
	for i, r := range refs {
		out[i] = map[string]any{"hash": r.Hash, "id": r.ID, "kind": r.Kind}
	}
	return out
}
