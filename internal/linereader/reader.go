package linereader

import (
	"context"
	"fmt"

	"github.com/SteelMorgan/log-viewer/internal/domain"
	"github.com/SteelMorgan/log-viewer/internal/encoding"
	"github.com/SteelMorgan/log-viewer/internal/filemap"
	"github.com/SteelMorgan/log-viewer/internal/indexer"
	"github.com/SteelMorgan/log-viewer/internal/store"
	"github.com/rs/zerolog/log"
)

// Reader serves line ranges from a persisted index without rescanning the file
type Reader struct {
	store store.IndexStore
	mode  filemap.Mode
}

// New creates a Reader backed by st
func New(st store.IndexStore, mode filemap.Mode) *Reader {
	return &Reader{store: st, mode: mode}
}

// ReadLines returns lines [start, start+count) clamped to the index, decoded
// with the index encoding and stripped of their terminator.
// A start at or past the last line yields an empty slice. Without a stored
// index it fails with domain.ErrIndexMissing.
func (r *Reader) ReadLines(ctx context.Context, path string, start, count uint64) ([]string, error) {
	idx, err := r.store.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrIndexMissing, path)
	}

	end := clampEnd(start, count, idx.TotalLines)
	if start >= end {
		return []string{}, nil
	}

	region, err := indexer.Open(path, r.mode)
	if err != nil {
		return nil, err
	}
	defer region.Close()

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lo, hi := idx.LineSpan(i)
		raw, err := region.Slice(int64(lo), int64(hi))
		if err != nil {
			return nil, fmt.Errorf("%w: read line %d of %s: %w", domain.ErrIO, i, path, err)
		}
		lines = append(lines, encoding.Decode(encoding.TrimTerminator(raw), idx.Encoding))
	}

	log.Debug().
		Str("path", path).
		Uint64("start", start).
		Int("lines", len(lines)).
		Msg("Lines read")

	return lines, nil
}

// clampEnd returns min(start+count, total) without overflowing
func clampEnd(start, count, total uint64) uint64 {
	if start >= total {
		return start
	}
	if count > total-start {
		return total
	}
	return start + count
}
