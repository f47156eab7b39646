package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/WhatsYourWhy/hardstop/internal/hserrors"
	"github.com/WhatsYourWhy/hardstop/pkg/clock"
	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
	"github.com/WhatsYourWhy/hardstop/pkg/storelog"
)

// EventRepository stores canonicalized events (spec §4.C).
type EventRepository struct {
	mu sync.RWMutex

	log   storelog.AppendOnlyLog
	clock clock.Clock

	byID      map[string]hstypes.Event
	byRawItem map[string]string // raw_item_id -> event_id
}

// NewEventRepository opens a repository atop log, replaying stored events.
func NewEventRepository(log storelog.AppendOnlyLog, clk clock.Clock) (*EventRepository, error) {
	repo := &EventRepository{
		log:       log,
		clock:     clk,
		byID:      make(map[string]hstypes.Event),
		byRawItem: make(map[string]string),
	}
	err := replay(log, storelog.RecordTypeEvent, func(payload string) error {
		var e hstypes.Event
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return err
		}
		repo.index(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *EventRepository) index(e hstypes.Event) {
	r.byID[e.EventID] = e
	if e.RawItemID != "" {
		r.byRawItem[e.RawItemID] = e.EventID
	}
}

// Save appends e. Canonicalization is expected to have already produced a
// deterministic EventID, so repeated saves of the same event are
// idempotent upserts keyed on EventID.
func (r *EventRepository) Save(e hstypes.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	payload, err := marshalPayload(e)
	if err != nil {
		return err
	}
	record := storelog.NewRecord(storelog.RecordTypeEvent, r.clock.Now(), e.SourceID, payload)
	if err := r.log.Append(record); err != nil && err != storelog.ErrRecordExists {
		return fmt.Errorf("store: save event: %w", err)
	}
	r.index(e)
	return nil
}

// Get returns the event with the given id.
func (r *EventRepository) Get(eventID string) (hstypes.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[eventID]
	if !ok {
		return hstypes.Event{}, hserrors.ErrNotFound
	}
	return e, nil
}

// ByRawItem returns the event produced from rawItemID, if any.
func (r *EventRepository) ByRawItem(rawItemID string) (hstypes.Event, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byRawItem[rawItemID]
	if !ok {
		return hstypes.Event{}, false
	}
	return r.byID[id], true
}

// List returns every stored event in no particular order; callers that
// need a deterministic order (e.g. the correlator scanning a time window)
// sort the result themselves.
func (r *EventRepository) List() []hstypes.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]hstypes.Event, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, e)
	}
	return out
}
