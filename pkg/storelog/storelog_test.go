package storelog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewRecordComputesHash(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRecord(RecordTypeRawItem, ts, "src-1", "payload-body")
	require.NoError(t, r.Validate())
	require.Equal(t, r.ComputeHash(), r.Hash)
}

func TestCanonicalLineRoundTrip(t *testing.T) {
	ts := time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC)
	r := NewRecord(RecordTypeEvent, ts, "src-2", "a|b|c")

	line := r.ToCanonicalLine()
	parsed, err := ParseCanonicalLine(line)
	require.NoError(t, err)
	require.Equal(t, r.Type, parsed.Type)
	require.Equal(t, r.Hash, parsed.Hash)
	require.Equal(t, r.SourceID, parsed.SourceID)
	require.Equal(t, "a|b|c", parsed.Payload)
	require.True(t, r.Timestamp.Equal(parsed.Timestamp))
}

func testLogImplementations(t *testing.T, newLog func() AppendOnlyLog) {
	t.Helper()
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	log := newLog()
	r1 := NewRecord(RecordTypeRawItem, ts, "src-a", "payload-1")
	r2 := NewRecord(RecordTypeEvent, ts, "src-b", "payload-2")

	require.NoError(t, log.Append(r1))
	require.NoError(t, log.Append(r2))
	require.ErrorIs(t, log.Append(r1), ErrRecordExists)

	require.True(t, log.Contains(r1.Hash))
	got, err := log.Get(r2.Hash)
	require.NoError(t, err)
	require.Equal(t, r2.Payload, got.Payload)

	_, err = log.Get("does-not-exist")
	require.ErrorIs(t, err, ErrRecordNotFound)

	all, err := log.List()
	require.NoError(t, err)
	require.Len(t, all, 2)

	byType, err := log.ListByType(RecordTypeRawItem)
	require.NoError(t, err)
	require.Len(t, byType, 1)

	bySource, err := log.ListBySource("src-b")
	require.NoError(t, err)
	require.Len(t, bySource, 1)

	require.Equal(t, 2, log.Count())
	require.NoError(t, log.Verify())
	require.NoError(t, log.Flush())
}

func TestInMemoryLog(t *testing.T) {
	testLogImplementations(t, func() AppendOnlyLog { return NewInMemoryLog() })
}

func TestFileLog(t *testing.T) {
	dir := t.TempDir()
	testLogImplementations(t, func() AppendOnlyLog {
		fl, err := NewFileLog(filepath.Join(dir, "log.jsonl"))
		require.NoError(t, err)
		return fl
	})
}

func TestFileLogReplaysOnReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.jsonl")
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	fl1, err := NewFileLog(path)
	require.NoError(t, err)
	r := NewRecord(RecordTypeAlert, ts, "src-1", "payload")
	require.NoError(t, fl1.Append(r))
	require.NoError(t, fl1.Flush())

	fl2, err := NewFileLog(path)
	require.NoError(t, err)
	require.Equal(t, 1, fl2.Count())
	require.True(t, fl2.Contains(r.Hash))
}
