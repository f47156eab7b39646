package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/WhatsYourWhy/hardstop/internal/hserrors"
	"github.com/WhatsYourWhy/hardstop/pkg/clock"
	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
	"github.com/WhatsYourWhy/hardstop/pkg/storelog"
)

// RunRecordRepository stores the provenance record emitted once per
// operator invocation on every execution path (spec §4.A).
type RunRecordRepository struct {
	mu sync.RWMutex

	log   storelog.AppendOnlyLog
	clock clock.Clock

	byID      map[string]hstypes.RunRecord
	byGroup   map[string][]string // run_group_id -> run_ids, in append order
}

// NewRunRecordRepository opens a repository atop log, replaying stored
// records.
func NewRunRecordRepository(log storelog.AppendOnlyLog, clk clock.Clock) (*RunRecordRepository, error) {
	repo := &RunRecordRepository{
		log:     log,
		clock:   clk,
		byID:    make(map[string]hstypes.RunRecord),
		byGroup: make(map[string][]string),
	}
	err := replay(log, storelog.RecordTypeRunRecord, func(payload string) error {
		var rr hstypes.RunRecord
		if err := json.Unmarshal([]byte(payload), &rr); err != nil {
			return err
		}
		repo.index(rr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *RunRecordRepository) index(rr hstypes.RunRecord) {
	r.byID[rr.RunID] = rr
	r.byGroup[rr.RunGroupID] = append(r.byGroup[rr.RunGroupID], rr.RunID)
}

// Save appends a completed RunRecord. Called exactly once per operator
// invocation via a deferred Tracker.Finalize, regardless of whether the
// invocation succeeded or failed.
func (r *RunRecordRepository) Save(rr hstypes.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	payload, err := marshalPayload(rr)
	if err != nil {
		return err
	}
	record := storelog.NewRecord(storelog.RecordTypeRunRecord, r.clock.Now(), rr.OperatorID, payload)
	if err := r.log.Append(record); err != nil && err != storelog.ErrRecordExists {
		return fmt.Errorf("store: save run record: %w", err)
	}
	r.index(rr)
	return nil
}

// Get returns the run record with the given id.
func (r *RunRecordRepository) Get(runID string) (hstypes.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rr, ok := r.byID[runID]
	if !ok {
		return hstypes.RunRecord{}, hserrors.ErrNotFound
	}
	return rr, nil
}

// ByRunGroup returns every run record stamped with runGroupID, ordered by
// StartedAt ascending.
func (r *RunRecordRepository) ByRunGroup(runGroupID string) []hstypes.RunRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byGroup[runGroupID]
	out := make([]hstypes.RunRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}
