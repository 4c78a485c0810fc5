package journal

import (
	"context"
	"sort"
	"sync"
)

// MemoryJournal keeps entries for the life of the process. RWMutex lets
// concurrent export workers record while history reads.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryJournal constructs an empty journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{entries: make(map[string]Entry)}
}

// Record stores e, assigning an ID and timestamp when missing.
func (m *MemoryJournal) Record(_ context.Context, e Entry) (Entry, error) {
	e = stamp(e)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return e, nil
}

// Get returns a copy of an entry.
func (m *MemoryJournal) Get(_ context.Context, id string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// List returns the newest matching entries first.
func (m *MemoryJournal) List(_ context.Context, f Filter) ([]Entry, error) {
	m.mu.RLock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if f.match(e) {
			out = append(out, e)
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].At.Equal(out[j].At) {
			return out[i].ID > out[j].ID
		}
		return out[i].At.After(out[j].At)
	})
	if n := f.limit(); len(out) > n {
		out = out[:n]
	}
	return out, nil
}
