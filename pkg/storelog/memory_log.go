package storelog

import "sync"

// InMemoryLog implements AppendOnlyLog without touching disk. Used in unit
// tests and by hsapp when it is opened without a data directory.
type InMemoryLog struct {
	mu sync.RWMutex

	records   []*LogRecord
	hashIndex map[string]*LogRecord
	typeIndex map[string][]*LogRecord
	srcIndex  map[string][]*LogRecord
}

// NewInMemoryLog returns an empty InMemoryLog.
func NewInMemoryLog() *InMemoryLog {
	return &InMemoryLog{
		hashIndex: make(map[string]*LogRecord),
		typeIndex: make(map[string][]*LogRecord),
		srcIndex:  make(map[string][]*LogRecord),
	}
}

func (l *InMemoryLog) Append(record *LogRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.hashIndex[record.Hash]; exists {
		return ErrRecordExists
	}

	l.records = append(l.records, record)
	l.hashIndex[record.Hash] = record
	l.typeIndex[record.Type] = append(l.typeIndex[record.Type], record)
	if record.SourceID != "" {
		l.srcIndex[record.SourceID] = append(l.srcIndex[record.SourceID], record)
	}
	return nil
}

func (l *InMemoryLog) Contains(hash string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, exists := l.hashIndex[hash]
	return exists
}

func (l *InMemoryLog) Get(hash string) (*LogRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	record, exists := l.hashIndex[hash]
	if !exists {
		return nil, ErrRecordNotFound
	}
	return record, nil
}

func (l *InMemoryLog) List() ([]*LogRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*LogRecord, len(l.records))
	copy(out, l.records)
	return out, nil
}

func (l *InMemoryLog) ListByType(recordType string) ([]*LogRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	records := l.typeIndex[recordType]
	out := make([]*LogRecord, len(records))
	copy(out, records)
	return out, nil
}

func (l *InMemoryLog) ListBySource(sourceID string) ([]*LogRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	records := l.srcIndex[sourceID]
	out := make([]*LogRecord, len(records))
	copy(out, records)
	return out, nil
}

func (l *InMemoryLog) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

func (l *InMemoryLog) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, record := range l.records {
		if record.ComputeHash() != record.Hash {
			return ErrLogCorrupted
		}
	}
	return nil
}

// Flush is a no-op: InMemoryLog has nothing to persist.
func (l *InMemoryLog) Flush() error { return nil }

var _ AppendOnlyLog = (*InMemoryLog)(nil)
