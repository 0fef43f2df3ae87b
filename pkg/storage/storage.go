package storage

import (
	"context"

	"github.com/fyrsmithlabs/rotguard/pkg/critical"
	"github.com/fyrsmithlabs/rotguard/pkg/health"
)

// Store persists pinned critical context and health history.
type Store interface {
	// SaveCritical inserts or replaces a pinned item by ID.
	SaveCritical(ctx context.Context, item critical.Item) error
	// DeleteCritical removes a pinned item. Missing IDs return ErrNotFound.
	DeleteCritical(ctx context.Context, id string) error
	// ListCritical returns all pinned items in insertion order.
	ListCritical(ctx context.Context) ([]critical.Item, error)
	// AppendHealth records one health snapshot.
	AppendHealth(ctx context.Context, snap health.Snapshot) error
	// ListHealth returns the most recent snapshots in chronological
	// order. A non-positive limit returns everything.
	ListHealth(ctx context.Context, limit int) ([]health.Snapshot, error)
	// Close releases underlying resources.
	Close() error
}
