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

// AlertRepository stores alerts keyed by correlation_key (spec §4.G). A
// correlation_key maps to at most one OPEN alert at a time; the correlator
// is the only writer that decides CREATE vs UPDATE.
type AlertRepository struct {
	mu sync.RWMutex

	log   storelog.AppendOnlyLog
	clock clock.Clock

	byID            map[string]hstypes.Alert
	byCorrelationKey map[string]string // correlation_key -> alert_id
}

// NewAlertRepository opens a repository atop log, replaying stored alerts.
func NewAlertRepository(log storelog.AppendOnlyLog, clk clock.Clock) (*AlertRepository, error) {
	repo := &AlertRepository{
		log:              log,
		clock:            clk,
		byID:             make(map[string]hstypes.Alert),
		byCorrelationKey: make(map[string]string),
	}
	err := replay(log, storelog.RecordTypeAlert, func(payload string) error {
		var a hstypes.Alert
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return err
		}
		repo.index(a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *AlertRepository) index(a hstypes.Alert) {
	r.byID[a.AlertID] = a
	r.byCorrelationKey[a.CorrelationKey] = a.AlertID
}

// Upsert persists a (possibly already-existing) alert's latest state. The
// append-only log records every version of an alert across its lifetime;
// byID/byCorrelationKey always reflect the most recently saved version.
func (r *AlertRepository) Upsert(a hstypes.Alert) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("store: save alert: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	payload, err := marshalPayload(a)
	if err != nil {
		return err
	}
	record := storelog.NewRecord(storelog.RecordTypeAlert, r.clock.Now(), a.SourceID, payload)
	if err := r.log.Append(record); err != nil && err != storelog.ErrRecordExists {
		return fmt.Errorf("store: save alert: %w", err)
	}
	r.index(a)
	return nil
}

// Get returns the alert with the given id.
func (r *AlertRepository) Get(alertID string) (hstypes.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[alertID]
	if !ok {
		return hstypes.Alert{}, hserrors.ErrNotFound
	}
	return a, nil
}

// ByCorrelationKey returns the current alert for key, if one is open.
func (r *AlertRepository) ByCorrelationKey(key string) (hstypes.Alert, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byCorrelationKey[key]
	if !ok {
		return hstypes.Alert{}, false
	}
	return r.byID[id], true
}

// List returns every alert's latest state.
func (r *AlertRepository) List() []hstypes.Alert {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]hstypes.Alert, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	return out
}
