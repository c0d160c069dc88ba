package store

import (
	"context"
	"errors"

	"github.com/SteelMorgan/log-viewer/internal/domain"
	"github.com/rs/zerolog/log"
)

// MirroredStore reads from primary and copies every write to mirror.
// Mirror failures are logged and never surface to the caller.
type MirroredStore struct {
	primary IndexStore
	mirror  IndexStore
}

// NewMirroredStore wraps primary with a best-effort mirror
func NewMirroredStore(primary, mirror IndexStore) *MirroredStore {
	return &MirroredStore{primary: primary, mirror: mirror}
}

// Save writes to primary, then to the mirror
func (s *MirroredStore) Save(ctx context.Context, idx *domain.LineIndex, mtime int64) error {
	if err := s.primary.Save(ctx, idx, mtime); err != nil {
		return err
	}
	if err := s.mirror.Save(ctx, idx, mtime); err != nil {
		log.Warn().
			Err(err).
			Str("file_path", idx.Path).
			Msg("Failed to mirror index")
	}
	return nil
}

// Get reads from primary
func (s *MirroredStore) Get(ctx context.Context, path string) (*domain.LineIndex, error) {
	return s.primary.Get(ctx, path)
}

// GetStatus reads from primary
func (s *MirroredStore) GetSummary(ctx context.Context, path string) (*domain.LineIndex, error) {
	return s.primary.GetSummary(ctx, path)
}

func (s *MirroredStore) GetStatus(ctx context.Context, path string) (domain.IndexStatus, error) {
	return s.primary.GetStatus(ctx, path)
}

// Delete removes from primary, then from the mirror
func (s *MirroredStore) Delete(ctx context.Context, path string) error {
	if err := s.primary.Delete(ctx, path); err != nil {
		return err
	}
	if err := s.mirror.Delete(ctx, path); err != nil {
		log.Warn().
			Err(err).
			Str("file_path", path).
			Msg("Failed to delete mirrored index")
	}
	return nil
}

// List reads from primary
func (s *MirroredStore) List(ctx context.Context) ([]domain.IndexStatusEntry, error) {
	return s.primary.List(ctx)
}

// Close closes both stores
func (s *MirroredStore) Close() error {
	return errors.Join(s.primary.Close(), s.mirror.Close())
}
