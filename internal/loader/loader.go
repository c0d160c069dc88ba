// Package loader is the single entry point for file lifecycle operations:
// describe, index, status, read and search. It composes the indexer, the
// index store, the line reader and the search engine.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/SteelMorgan/log-viewer/internal/domain"
	"github.com/SteelMorgan/log-viewer/internal/filemap"
	"github.com/SteelMorgan/log-viewer/internal/indexer"
	"github.com/SteelMorgan/log-viewer/internal/linereader"
	"github.com/SteelMorgan/log-viewer/internal/search"
	"github.com/SteelMorgan/log-viewer/internal/store"
	"github.com/rs/zerolog/log"
)

// Options configures a FileLoader
type Options struct {
	Mode             filemap.Mode
	SearchMaxResults int
}

// FileLoader implements the file access facade.
// All operations are independent and safe to call concurrently; the store
// is the only shared state.
type FileLoader struct {
	store   store.IndexStore
	indexer *indexer.Indexer
	reader  *linereader.Reader
	engine  *search.Engine
}

// New creates a FileLoader sharing st across all operations
func New(st store.IndexStore, opts Options) *FileLoader {
	return &FileLoader{
		store:   st,
		indexer: indexer.New(opts.Mode),
		reader:  linereader.New(st, opts.Mode),
		engine:  search.New(search.Options{Mode: opts.Mode, MaxResults: opts.SearchMaxResults}),
	}
}

// Describe combines filesystem metadata with the stored index status.
// It never indexes the file.
func (l *FileLoader) Describe(ctx context.Context, path string) (*domain.FileDescriptor, error) {
	path, err := normalize(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: stat %s: %w", domain.ErrIO, path, err)
	}

	status, err := l.store.GetStatus(ctx, path)
	if err != nil {
		return nil, err
	}

	desc := &domain.FileDescriptor{
		Path:        path,
		DisplayName: filepath.Base(path),
		SizeBytes:   uint64(info.Size()),
		IsIndexed:   status.Indexed,
	}
	if status.Indexed {
		total := status.TotalLines
		desc.TotalLines = &total
	}
	return desc, nil
}

// BuildIndex scans path and stores its index, replacing any previous one
func (l *FileLoader) BuildIndex(ctx context.Context, path string) (*domain.LineIndex, error) {
	path, err := normalize(path)
	if err != nil {
		return nil, err
	}

	idx, err := l.indexer.Build(path)
	if err != nil {
		return nil, err
	}

	if err := l.store.Save(ctx, idx, idx.FileMtime); err != nil {
		return nil, err
	}

	log.Info().
		Str("path", path).
		Uint64("total_lines", idx.TotalLines).
		Uint64("file_size", idx.FileSize).
		Str("encoding", string(idx.Encoding)).
		Msg("File indexed")

	return idx, nil
}

// GetIndexStatus reports whether path is indexed and whether that index is stale
func (l *FileLoader) GetIndexStatus(ctx context.Context, path string) (domain.IndexStatus, error) {
	path, err := normalize(path)
	if err != nil {
		return domain.IndexStatus{}, err
	}

	idx, err := l.store.GetSummary(ctx, path)
	if err != nil {
		return domain.IndexStatus{}, err
	}

	status := domain.StatusOf(idx)
	if idx != nil {
		status.Stale = l.isStale(idx)
	}
	return status, nil
}

// ReadLines returns decoded lines [start, start+count) of an indexed file
func (l *FileLoader) ReadLines(ctx context.Context, path string, start, count uint64) ([]string, error) {
	path, err := normalize(path)
	if err != nil {
		return nil, err
	}
	return l.reader.ReadLines(ctx, path, start, count)
}

// Search scans path for spec. Indexing is not required.
func (l *FileLoader) Search(ctx context.Context, path string, spec domain.SearchSpec) (*search.Result, error) {
	path, err := normalize(path)
	if err != nil {
		return nil, err
	}
	return l.engine.Search(path, spec)
}

// ForgetIndex removes the stored index for path
func (l *FileLoader) ForgetIndex(ctx context.Context, path string) error {
	path, err := normalize(path)
	if err != nil {
		return err
	}
	if err := l.store.Delete(ctx, path); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("Index removed")
	return nil
}

// ListIndices returns every stored index status
func (l *FileLoader) ListIndices(ctx context.Context) ([]domain.IndexStatusEntry, error) {
	return l.store.List(ctx)
}

// isStale compares the stored size, mtime and head fingerprint with the file on disk.
// A file that can no longer be read counts as stale.
func (l *FileLoader) isStale(idx *domain.LineIndex) bool {
	info, err := os.Stat(idx.Path)
	if err != nil {
		return true
	}
	if uint64(info.Size()) != idx.FileSize || info.ModTime().Unix() != idx.FileMtime {
		return true
	}
	sum, err := indexer.Fingerprint(idx.Path)
	if err != nil {
		return true
	}
	return sum != idx.Fingerprint
}

// normalize turns path into the absolute, cleaned form used as the store key
func normalize(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", domain.ErrNotFound)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: resolve %s: %w", domain.ErrIO, path, err)
	}
	return abs, nil
}
