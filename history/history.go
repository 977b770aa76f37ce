// Package history keeps a bounded, persisted log of past transfers so
// a user can find a message id again after the session that produced
// it is gone.
package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/crosslane/crosslane/logger"
	"github.com/crosslane/crosslane/types"
)

// Log is the in-memory view over the persisted history. All methods
// are safe for concurrent use; every mutation is written through to
// the store before it returns.
type Log struct {
	mu      sync.Mutex
	store   Store
	log     logger.Logger
	limit   int
	records []types.HistoryRecord
}

// NewLog loads existing history from store. A corrupt or
// version-mismatched blob starts the log empty instead of failing;
// only a store read error is surfaced.
func NewLog(store Store, limit int, log logger.Logger) (*Log, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	data, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return &Log{store: store, log: log, limit: limit, records: decode(data)}, nil
}

// List returns a copy of all records, oldest first.
func (l *Log) List() []types.HistoryRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.HistoryRecord, len(l.records))
	copy(out, l.records)
	return out
}

// ListPending returns copies of the records still awaiting a terminal
// status.
func (l *Log) ListPending() []types.HistoryRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []types.HistoryRecord
	for _, r := range l.records {
		if r.Status == types.HistoryPending {
			out = append(out, r)
		}
	}
	return out
}

// AddOrUpdate inserts rec or replaces the record with the same message
// id. Re-adding a known message is idempotent, so reconnecting wallets
// and replayed submissions do not duplicate entries. When the log is
// full the oldest records are evicted.
func (l *Log) AddOrUpdate(rec types.HistoryRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	replaced := false
	for i := range l.records {
		if l.records[i].MessageID == rec.MessageID {
			l.records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		l.records = append(l.records, rec)
		if over := len(l.records) - l.limit; over > 0 {
			l.records = append([]types.HistoryRecord(nil), l.records[over:]...)
		}
	}
	return l.persist()
}

// UpdateStatus advances one record's status and checkpoint fields. A
// miss is not an error; the record may have been evicted.
func (l *Log) UpdateStatus(messageID string, status types.HistoryStatus, destTxHash string, checkedAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.records {
		if l.records[i].MessageID != messageID {
			continue
		}
		l.records[i].Status = status
		if destTxHash != "" {
			l.records[i].DestTxHash = destTxHash
		}
		l.records[i].LastCheckedAt = checkedAt
		return l.persist()
	}
	return nil
}

// Remove deletes one record by message id.
func (l *Log) Remove(messageID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.records {
		if l.records[i].MessageID == messageID {
			l.records = append(l.records[:i], l.records[i+1:]...)
			return l.persist()
		}
	}
	return nil
}

// Clear drops every record.
func (l *Log) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
	return l.persist()
}

func (l *Log) persist() error {
	data, err := encode(l.records)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := l.store.Save(data); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}
