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

// IncidentEvidenceRepository stores the hashed, append-only evidence
// artifacts the correlator produces on every CREATE/UPDATE (spec §4.H).
// Artifacts are siblings of Alert, referenced by artifact_hash — this
// repository never mutates a stored artifact.
type IncidentEvidenceRepository struct {
	mu sync.RWMutex

	log   storelog.AppendOnlyLog
	clock clock.Clock

	byID     map[string]hstypes.IncidentEvidence
	byAlert  map[string][]string // alert_id -> artifact_ids, in append order
}

// NewIncidentEvidenceRepository opens a repository atop log, replaying
// stored artifacts.
func NewIncidentEvidenceRepository(log storelog.AppendOnlyLog, clk clock.Clock) (*IncidentEvidenceRepository, error) {
	repo := &IncidentEvidenceRepository{
		log:     log,
		clock:   clk,
		byID:    make(map[string]hstypes.IncidentEvidence),
		byAlert: make(map[string][]string),
	}
	err := replay(log, storelog.RecordTypeIncidentEvidence, func(payload string) error {
		var ie hstypes.IncidentEvidence
		if err := json.Unmarshal([]byte(payload), &ie); err != nil {
			return err
		}
		repo.index(ie)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *IncidentEvidenceRepository) index(ie hstypes.IncidentEvidence) {
	r.byID[ie.ArtifactID] = ie
	r.byAlert[ie.AlertID] = append(r.byAlert[ie.AlertID], ie.ArtifactID)
}

// Save appends a new evidence artifact. Artifacts are immutable once
// written; a caller never saves the same artifact_id twice.
func (r *IncidentEvidenceRepository) Save(ie hstypes.IncidentEvidence) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	payload, err := marshalPayload(ie)
	if err != nil {
		return err
	}
	record := storelog.NewRecord(storelog.RecordTypeIncidentEvidence, r.clock.Now(), ie.AlertID, payload)
	if err := r.log.Append(record); err != nil && err != storelog.ErrRecordExists {
		return fmt.Errorf("store: save incident evidence: %w", err)
	}
	r.index(ie)
	return nil
}

// Get returns the artifact with the given id.
func (r *IncidentEvidenceRepository) Get(artifactID string) (hstypes.IncidentEvidence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ie, ok := r.byID[artifactID]
	if !ok {
		return hstypes.IncidentEvidence{}, hserrors.ErrNotFound
	}
	return ie, nil
}

// ByAlert returns every artifact recorded for alertID, in the order they
// were appended.
func (r *IncidentEvidenceRepository) ByAlert(alertID string) []hstypes.IncidentEvidence {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byAlert[alertID]
	out := make([]hstypes.IncidentEvidence, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id])
	}
	return out
}
