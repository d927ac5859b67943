package biz

import (
	"sync"

	"github.com/kart-io/nlquery/internal/model"
)

// DefaultHistorySize is the maximum number of retained history records.
const DefaultHistorySize = 200

// HistoryLog is a bounded, newest-first log of processed queries.
type HistoryLog struct {
	mu      sync.RWMutex
	cap     int
	records []model.HistoryRecord
}

// NewHistoryLog creates a log retaining at most capacity records. A
// non-positive capacity falls back to DefaultHistorySize.
func NewHistoryLog(capacity int) *HistoryLog {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &HistoryLog{cap: capacity}
}

// Append records a processed query at the front of the log, dropping the
// oldest record once the capacity is reached.
func (h *HistoryLog) Append(rec model.HistoryRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append([]model.HistoryRecord{rec}, h.records...)
	if len(h.records) > h.cap {
		h.records = h.records[:h.cap]
	}
}

// Recent returns up to limit records, newest first. A non-positive limit
// returns everything retained.
func (h *HistoryLog) Recent(limit int) []model.HistoryRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := len(h.records)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.HistoryRecord, n)
	copy(out, h.records[:n])
	return out
}

// Len returns the number of retained records.
func (h *HistoryLog) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}
