package storage

import (
	"context"
	"sync"

	"github.com/fyrsmithlabs/rotguard/pkg/critical"
	"github.com/fyrsmithlabs/rotguard/pkg/health"
)

// MemoryStore is an in-memory Store. It is thread-safe and suitable for
// sessions that do not need to survive the process.
type MemoryStore struct {
	mu       sync.RWMutex
	critical []critical.Item
	history  []health.Snapshot
}

var (
	_ Store              = (*MemoryStore)(nil)
	_ critical.Persister = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SaveCritical inserts item, or replaces the stored item with the same ID.
func (s *MemoryStore) SaveCritical(ctx context.Context, item critical.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.critical {
		if existing.ID == item.ID {
			s.critical[i] = item
			return nil
		}
	}
	s.critical = append(s.critical, item)
	return nil
}

// DeleteCritical removes the item with the given ID.
func (s *MemoryStore) DeleteCritical(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.critical {
		if existing.ID == id {
			s.critical = append(s.critical[:i], s.critical[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// ListCritical returns a copy of all pinned items in insertion order.
func (s *MemoryStore) ListCritical(ctx context.Context) ([]critical.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]critical.Item, len(s.critical))
	copy(out, s.critical)
	return out, nil
}

// AppendHealth records one snapshot.
func (s *MemoryStore) AppendHealth(ctx context.Context, snap health.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, snap)
	return nil
}

// ListHealth returns a copy of the most recent snapshots in chronological
// order.
func (s *MemoryStore) ListHealth(ctx context.Context, limit int) ([]health.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if limit > 0 && limit < len(s.history) {
		start = len(s.history) - limit
	}
	out := make([]health.Snapshot, len(s.history)-start)
	copy(out, s.history[start:])
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
