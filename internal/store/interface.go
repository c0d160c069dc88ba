package store

import (
	"context"

	"github.com/SteelMorgan/log-viewer/internal/domain"
)

// IndexStore persists line indexes keyed by absolute file path.
// Implementations: BoltDB (primary), ClickHouse (optional mirror).
//
// Save for the same path must be linearized (last write wins) and Get must
// never observe a partially written record.
type IndexStore interface {
	// Save upserts idx under idx.Path, tagged with the file mtime (seconds)
	Save(ctx context.Context, idx *domain.LineIndex, mtime int64) error

	// Get returns the stored index, or nil without error if none exists
	Get(ctx context.Context, path string) (*domain.LineIndex, error)

	// GetSummary is Get without LineStartOffsets, for callers that only
	// need metadata. Returns nil without error if no index exists.
	GetSummary(ctx context.Context, path string) (*domain.LineIndex, error)

	// GetStatus projects the stored index for path
	GetStatus(ctx context.Context, path string) (domain.IndexStatus, error)

	// Delete removes the index for path. Missing paths are not an error.
	Delete(ctx context.Context, path string) error

	// List returns the status of every stored index ordered by path
	List(ctx context.Context) ([]domain.IndexStatusEntry, error)

	// Close closes the index store
	Close() error
}
