package provenance

import (
	"fmt"
	"sync"

	"github.com/WhatsYourWhy/hardstop/internal/hserrors"
	"github.com/WhatsYourWhy/hardstop/pkg/clock"
	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
)

// Tracker builds one RunRecord across an operator's lifetime: Begin opens
// it, RecordInput/RecordOutput/RecordWarning/RecordError accumulate as the operator
// runs, and Finalize closes it exactly once. Every operator entry point is
// expected to defer Finalize so a RunRecord is emitted on every exit path,
// including panics recovered upstream (spec §4.A "guaranteed on every exit
// path").
//
// Every Tracker method holds an internal mutex, so calls from several
// goroutines are serialized; each operator invocation owns its own Tracker.
type Tracker struct {
	mu sync.Mutex

	clock   clock.Clock
	mode    hstypes.ExecutionMode
	record  hstypes.RunRecord
	started bool
	done    bool
}

// Begin opens a new RunRecord for operatorID, stamping StartedAt from clk
// and ConfigHash from cfg.
func Begin(clk clock.Clock, cfg hstypes.ResolvedConfig, operatorID, runID, runGroupID string, mode hstypes.ExecutionMode) (*Tracker, error) {
	hash, err := Fingerprint(cfg)
	if err != nil {
		return nil, fmt.Errorf("provenance: begin run record: %w", err)
	}
	t := &Tracker{
		clock: clk,
		mode:  mode,
		record: hstypes.RunRecord{
			RunID:      runID,
			OperatorID: operatorID,
			StartedAt:  clk.Now(),
			Mode:       mode,
			ConfigHash: hash,
			RunGroupID: runGroupID,
		},
		started: true,
	}
	return t, nil
}

// RecordInput appends an input artifact reference.
func (t *Tracker) RecordInput(ref hstypes.ArtifactRef) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record.InputRefs = append(t.record.InputRefs, ref)
}

// RecordOutput appends an output artifact reference.
func (t *Tracker) RecordOutput(ref hstypes.ArtifactRef) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record.OutputRefs = append(t.record.OutputRefs, ref)
}

// RecordWarning appends a non-fatal warning message.
func (t *Tracker) RecordWarning(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record.Warnings = append(t.record.Warnings, msg)
}

// RecordError appends a fatal error message. The operator should still call
// Finalize afterward — RunRecords are emitted on failure paths too.
func (t *Tracker) RecordError(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record.Errors = append(t.record.Errors, msg)
}

// RecordBestEffort stamps the best-effort seed/field metadata an operator
// used under unpinned nondeterminism. Calling this while the tracker's mode
// is strict is a programmer error the caller should have prevented upstream
// by consulting Mode() first; Finalize raises ErrDeterminismViolation in
// that case.
func (t *Tracker) RecordBestEffort(seed string, fields map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record.BestEffort = hstypes.BestEffort{Seed: seed, Fields: fields}
}

// Mode reports the execution mode this tracker was opened with.
func (t *Tracker) Mode() hstypes.ExecutionMode {
	return t.mode
}

// AddBytes accumulates resource-cost counters.
func (t *Tracker) AddBytes(in, out int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record.Cost.BytesIn += in
	t.record.Cost.BytesOut += out
}

// Finalize stamps EndedAt and DurationSeconds, validates strict-mode
// determinism, and returns the completed RunRecord. It is safe to call
// more than once; subsequent calls return the same completed record.
func (t *Tracker) Finalize() (hstypes.RunRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return t.record, nil
	}
	ended := t.clock.Now()
	t.record.EndedAt = ended
	t.record.Cost.DurationSeconds = ended.Sub(t.record.StartedAt).Seconds()
	t.done = true

	if t.mode == hstypes.ModeStrict && !t.record.BestEffort.Empty() {
		return t.record, fmt.Errorf("%w: operator %s recorded best-effort metadata under strict mode",
			hserrors.ErrDeterminismViolation, t.record.OperatorID)
	}
	return t.record, nil
}
