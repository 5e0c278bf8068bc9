package trace

import (
	"context"
	"sync"

	"github.com/mikey/mail-triage/internal/core"
	"go.uber.org/zap"
)

// MemoryTrace is an in-memory implementation of the TraceStore interface.
// It keeps the most recent entries up to a fixed cap.
type MemoryTrace struct {
	entries    []*core.TraceEntry
	maxEntries int
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewMemoryTrace creates a new in-memory trace store
func NewMemoryTrace(maxEntries int, logger *zap.Logger) *MemoryTrace {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &MemoryTrace{
		entries:    make([]*core.TraceEntry, 0, maxEntries),
		maxEntries: maxEntries,
		logger:     logger,
	}
}

// Append stores one classification record, evicting the oldest beyond the cap
func (t *MemoryTrace) Append(ctx context.Context, entry *core.TraceEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append(t.entries, entry)
	if over := len(t.entries) - t.maxEntries; over > 0 {
		t.entries = t.entries[over:]
	}
	return nil
}

// Entries returns a snapshot of the stored records, oldest first
func (t *MemoryTrace) Entries() []*core.TraceEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*core.TraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Close releases nothing for the in-memory store
func (t *MemoryTrace) Close() error {
	return nil
}
