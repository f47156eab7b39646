// Package storelog provides append-only log storage shared by every
// Hardstop repository (pkg/store). Records are stored one per canonical
// line: TYPE|VERSION|TS|HASH|SOURCE_ID|PAYLOAD.
//
// CRITICAL: append-only. Records are NEVER modified or deleted once
// written; corrections are new records, not edits.
//
// GUARDRAIL: this package does not spawn goroutines and never calls
// time.Now() — callers stamp every record with an already-resolved
// time.Time from an injected clock.Clock.
package storelog

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// SchemaVersion is the canonical-line format version.
const SchemaVersion = "v1"

// Record types, one per Hardstop data model entity (spec §3).
const (
	RecordTypeRawItem         = "RAW_ITEM"
	RecordTypeEvent           = "EVENT"
	RecordTypeAlert           = "ALERT"
	RecordTypeSourceRun       = "SOURCE_RUN"
	RecordTypeIncidentEvidence = "INCIDENT_EVIDENCE"
	RecordTypeRunRecord       = "RUN_RECORD"
)

var (
	ErrRecordExists  = errors.New("storelog: record already exists")
	ErrRecordNotFound = errors.New("storelog: record not found")
	ErrInvalidRecord = errors.New("storelog: invalid record format")
	ErrHashMismatch  = errors.New("storelog: hash mismatch")
	ErrLogCorrupted  = errors.New("storelog: log corrupted")
)

// LogRecord is a single append-only log entry.
type LogRecord struct {
	Type      string
	Version   string
	Timestamp time.Time
	Hash      string
	SourceID  string
	Payload   string
}

// ComputeHash returns the SHA-256 of the record's payload.
func (r *LogRecord) ComputeHash() string {
	h := sha256.Sum256([]byte(r.Payload))
	return hex.EncodeToString(h[:])
}

// Validate checks the record is well-formed and its hash matches its
// payload.
func (r *LogRecord) Validate() error {
	if r.Type == "" {
		return errors.New("storelog: record type is required")
	}
	if r.Version == "" {
		return errors.New("storelog: record version is required")
	}
	if r.Payload == "" {
		return errors.New("storelog: record payload is required")
	}
	if r.Hash == "" {
		return errors.New("storelog: record hash is required")
	}
	if r.ComputeHash() != r.Hash {
		return ErrHashMismatch
	}
	return nil
}

// ToCanonicalLine renders the record as TYPE|VERSION|TS|HASH|SOURCE_ID|PAYLOAD.
func (r *LogRecord) ToCanonicalLine() string {
	var b strings.Builder
	b.WriteString(r.Type)
	b.WriteByte('|')
	b.WriteString(r.Version)
	b.WriteByte('|')
	b.WriteString(r.Timestamp.UTC().Format(time.RFC3339Nano))
	b.WriteByte('|')
	b.WriteString(r.Hash)
	b.WriteByte('|')
	b.WriteString(r.SourceID)
	b.WriteByte('|')
	b.WriteString(r.Payload)
	return b.String()
}

// ParseCanonicalLine parses and validates a canonical line.
func ParseCanonicalLine(line string) (*LogRecord, error) {
	parts := splitN(line, "|", 6)
	if len(parts) < 6 {
		return nil, ErrInvalidRecord
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[2])
	if err != nil {
		return nil, ErrInvalidRecord
	}
	record := &LogRecord{
		Type:      parts[0],
		Version:   parts[1],
		Timestamp: ts,
		Hash:      parts[3],
		SourceID:  parts[4],
		Payload:   parts[5],
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

// splitN splits s by sep into at most n parts; the last part holds the
// remainder verbatim so a payload containing the separator is preserved.
func splitN(s, sep string, n int) []string {
	if n <= 0 {
		return nil
	}
	result := make([]string, 0, n)
	remaining := s
	for i := 0; i < n-1; i++ {
		idx := strings.Index(remaining, sep)
		if idx < 0 {
			result = append(result, remaining)
			return result
		}
		result = append(result, remaining[:idx])
		remaining = remaining[idx+len(sep):]
	}
	result = append(result, remaining)
	return result
}

// AppendOnlyLog is the storage interface every Hardstop repository
// composes on top of.
type AppendOnlyLog interface {
	Append(record *LogRecord) error
	Contains(hash string) bool
	Get(hash string) (*LogRecord, error)
	List() ([]*LogRecord, error)
	ListByType(recordType string) ([]*LogRecord, error)
	ListBySource(sourceID string) ([]*LogRecord, error)
	Count() int
	Verify() error
	Flush() error
}

// NewRecord builds a LogRecord with its hash computed from payload.
func NewRecord(recordType string, ts time.Time, sourceID, payload string) *LogRecord {
	r := &LogRecord{
		Type:      recordType,
		Version:   SchemaVersion,
		Timestamp: ts,
		SourceID:  sourceID,
		Payload:   payload,
	}
	r.Hash = r.ComputeHash()
	return r
}
