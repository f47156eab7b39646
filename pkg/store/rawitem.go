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

// RawItemRepository stores ingested raw items and deduplicates by
// content_hash (spec §4.B "Save returns CREATED or DUPLICATE").
type RawItemRepository struct {
	mu sync.RWMutex

	log   storelog.AppendOnlyLog
	clock clock.Clock

	byID              map[string]hstypes.RawItem
	byHash            map[string]string // content_hash -> raw_item_id
	bySourceCanonical map[string]string // (source_id, canonical_id) -> raw_item_id
}

func sourceCanonicalKey(sourceID, canonicalID string) string {
	return sourceID + "\x00" + canonicalID
}

// NewRawItemRepository opens a repository atop log, replaying any
// previously stored items.
func NewRawItemRepository(log storelog.AppendOnlyLog, clk clock.Clock) (*RawItemRepository, error) {
	repo := &RawItemRepository{
		log:               log,
		clock:             clk,
		byID:              make(map[string]hstypes.RawItem),
		byHash:            make(map[string]string),
		bySourceCanonical: make(map[string]string),
	}
	err := replay(log, storelog.RecordTypeRawItem, func(payload string) error {
		var item hstypes.RawItem
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return err
		}
		repo.index(item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *RawItemRepository) index(item hstypes.RawItem) {
	r.byID[item.RawItemID] = item
	r.byHash[item.ContentHash] = item.RawItemID
	if item.CanonicalID != "" {
		r.bySourceCanonical[sourceCanonicalKey(item.SourceID, item.CanonicalID)] = item.RawItemID
	}
}

// Save looks up item by (source_id, canonical_id) first and by
// content_hash second (spec §4.B), reporting SaveDuplicate on either hit
// without writing a second record. canonical_id is unique per source_id,
// so a re-fetch under the same (source_id, canonical_id) is a duplicate
// even when its content_hash has changed (e.g. a corrected payload).
func (r *RawItemRepository) Save(item hstypes.RawItem) (hstypes.SaveOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item.CanonicalID != "" {
		if _, exists := r.bySourceCanonical[sourceCanonicalKey(item.SourceID, item.CanonicalID)]; exists {
			return hstypes.SaveDuplicate, nil
		}
	}
	if _, exists := r.byHash[item.ContentHash]; exists {
		return hstypes.SaveDuplicate, nil
	}

	payload, err := marshalPayload(item)
	if err != nil {
		return "", err
	}
	record := storelog.NewRecord(storelog.RecordTypeRawItem, r.clock.Now(), item.SourceID, payload)
	if err := r.log.Append(record); err != nil {
		return "", fmt.Errorf("store: save raw item: %w", err)
	}
	r.index(item)
	return hstypes.SaveCreated, nil
}

// MarkProcessed appends the post-canonicalization state of a raw item
// (status transition plus, if matched, a SuppressionStamp) as a new log
// record. A RawItem is mutated exactly once, by canonicalization (spec
// §3); the append-only log keeps both the NEW and the processed record,
// and replay's last-write-wins-by-id indexing means Get/ListForIngest
// always see the processed state afterward.
func (r *RawItemRepository) MarkProcessed(item hstypes.RawItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	payload, err := marshalPayload(item)
	if err != nil {
		return err
	}
	record := storelog.NewRecord(storelog.RecordTypeRawItem, r.clock.Now(), item.SourceID, payload)
	if err := r.log.Append(record); err != nil {
		return fmt.Errorf("store: mark raw item processed: %w", err)
	}
	r.index(item)
	return nil
}

// Get returns the raw item with the given id.
func (r *RawItemRepository) Get(rawItemID string) (hstypes.RawItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.byID[rawItemID]
	if !ok {
		return hstypes.RawItem{}, hserrors.ErrNotFound
	}
	return item, nil
}

// HasContentHash reports whether an item with this content hash has
// already been stored.
func (r *RawItemRepository) HasContentHash(hash string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.byHash[hash]
	return exists
}

// ListForIngest returns every NEW raw item ordered by (fetched_at_utc,
// raw_item_id) ascending — the stable tie-break order canonicalization
// processes items in (spec §4.B/§4.C).
func (r *RawItemRepository) ListForIngest() []hstypes.RawItem {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]hstypes.RawItem, 0, len(r.byID))
	for _, item := range r.byID {
		if item.Status == hstypes.RawItemNew {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FetchedAtUTC.Equal(out[j].FetchedAtUTC) {
			return out[i].FetchedAtUTC.Before(out[j].FetchedAtUTC)
		}
		return out[i].RawItemID < out[j].RawItemID
	})
	return out
}

// Count returns the number of raw items stored.
func (r *RawItemRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
