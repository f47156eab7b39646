package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/WhatsYourWhy/hardstop/pkg/clock"
	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
	"github.com/WhatsYourWhy/hardstop/pkg/storelog"
)

// SourceRunRepository stores the (phase, source, run_group) telemetry rows
// the health scorer and run-status evaluator read (spec §4.I/§4.J).
type SourceRunRepository struct {
	mu sync.RWMutex

	log   storelog.AppendOnlyLog
	clock clock.Clock

	bySource map[string][]hstypes.SourceRun
}

// NewSourceRunRepository opens a repository atop log, replaying stored runs.
func NewSourceRunRepository(log storelog.AppendOnlyLog, clk clock.Clock) (*SourceRunRepository, error) {
	repo := &SourceRunRepository{
		log:      log,
		clock:    clk,
		bySource: make(map[string][]hstypes.SourceRun),
	}
	err := replay(log, storelog.RecordTypeSourceRun, func(payload string) error {
		var run hstypes.SourceRun
		if err := json.Unmarshal([]byte(payload), &run); err != nil {
			return err
		}
		repo.index(run)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *SourceRunRepository) index(run hstypes.SourceRun) {
	r.bySource[run.SourceID] = append(r.bySource[run.SourceID], run)
}

// Record appends a new SourceRun row. Rows are append-only; one row exists
// per (phase, source, run_group) tuple by construction of the caller.
func (r *SourceRunRepository) Record(run hstypes.SourceRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	payload, err := marshalPayload(run)
	if err != nil {
		return err
	}
	record := storelog.NewRecord(storelog.RecordTypeSourceRun, r.clock.Now(), run.SourceID, payload)
	if err := r.log.Append(record); err != nil && err != storelog.ErrRecordExists {
		return fmt.Errorf("store: record source run: %w", err)
	}
	r.index(run)
	return nil
}

// Recent returns up to limit of the most recent runs for (sourceID, phase),
// newest first — the window pkg/health aggregates over.
func (r *SourceRunRepository) Recent(sourceID string, phase hstypes.Phase, limit int) []hstypes.SourceRun {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matching []hstypes.SourceRun
	for _, run := range r.bySource[sourceID] {
		if run.Phase == phase {
			matching = append(matching, run)
		}
	}
	sort.Slice(matching, func(i, j int) bool {
		return matching[i].RunAtUTC.After(matching[j].RunAtUTC)
	})
	if limit > 0 && len(matching) > limit {
		matching = matching[:limit]
	}
	return matching
}

// SourceIDs returns every distinct source_id with at least one recorded run.
func (r *SourceRunRepository) SourceIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.bySource))
	for id := range r.bySource {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
