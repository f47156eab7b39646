// Package store implements Hardstop's repositories: one per data model
// entity (RawItem, Event, Alert, SourceRun, IncidentEvidence, RunRecord),
// each backed by a pkg/storelog.AppendOnlyLog. Passing a *storelog.FileLog
// persists to disk; passing a *storelog.InMemoryLog gives an ephemeral
// store for tests or runs opened without a data directory — the repository code is identical
// either way.
//
// Reference: SPEC_FULL.md §6.B Raw Item Store & §4.B/§4.C/§4.G/§4.H/§4.A.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/WhatsYourWhy/hardstop/pkg/storelog"
)

// replay reads every record of recordType from log and hands its payload
// to decode, which is expected to unmarshal it and index it into the
// repository's in-memory maps.
func replay(log storelog.AppendOnlyLog, recordType string, decode func(payload string) error) error {
	records, err := log.ListByType(recordType)
	if err != nil {
		return fmt.Errorf("store: replay %s: %w", recordType, err)
	}
	for _, r := range records {
		if err := decode(r.Payload); err != nil {
			return fmt.Errorf("store: replay %s: corrupt record %s: %w", recordType, r.Hash, err)
		}
	}
	return nil
}

func marshalPayload(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("store: marshal payload: %w", err)
	}
	return string(b), nil
}
