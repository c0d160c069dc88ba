package indexer

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/SteelMorgan/log-viewer/internal/domain"
	"github.com/SteelMorgan/log-viewer/internal/encoding"
	"github.com/SteelMorgan/log-viewer/internal/filemap"
	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog/log"
)

// FingerprintSize is the number of leading bytes hashed into LineIndex.Fingerprint
const FingerprintSize = 4096

// Indexer scans files and builds their line index
type Indexer struct {
	mode filemap.Mode
	now  func() time.Time
}

// New creates an indexer that opens files with the given mode
func New(mode filemap.Mode) *Indexer {
	return &Indexer{
		mode: mode,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Build maps path, scans it once and returns its line index.
// It fails with domain.ErrNotFound if path does not exist and domain.ErrIO on
// any other filesystem or mapping error.
func (ix *Indexer) Build(path string) (*domain.LineIndex, error) {
	region, err := Open(path, ix.mode)
	if err != nil {
		return nil, err
	}
	defer region.Close()

	info, err := region.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", domain.ErrIO, path, err)
	}

	started := time.Now()
	size := region.Size()
	offsets := make([]uint64, 0, estimateLines(size))

	var sniffer *encoding.Sniffer
	if !region.Mapped() {
		sniffer = &encoding.Sniffer{}
	}

	err = region.EachLine(func(start int64, line []byte) error {
		offsets = append(offsets, uint64(start))
		if sniffer != nil {
			sniffer.Write(line)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: scan %s: %w", domain.ErrIO, path, err)
	}

	var enc domain.Encoding
	if sniffer != nil {
		enc = sniffer.Result()
	} else {
		enc = encoding.Detect(region.Bytes())
	}

	fingerprint, err := fingerprintRegion(region)
	if err != nil {
		return nil, fmt.Errorf("%w: fingerprint %s: %w", domain.ErrIO, path, err)
	}

	idx := &domain.LineIndex{
		Path:             path,
		TotalLines:       uint64(len(offsets)),
		LineStartOffsets: offsets,
		FileSize:         uint64(size),
		Encoding:         enc,
		IndexedAt:        ix.now(),
		FileMtime:        info.ModTime().Unix(),
		Fingerprint:      fingerprint,
	}

	log.Debug().
		Str("path", path).
		Uint64("total_lines", idx.TotalLines).
		Uint64("file_size", idx.FileSize).
		Str("encoding", string(enc)).
		Bool("mapped", region.Mapped()).
		Dur("elapsed", time.Since(started)).
		Msg("Line index built")

	return idx, nil
}

// Open opens path through filemap and classifies failures into the domain taxonomy
func Open(path string, mode filemap.Mode) (*filemap.Region, error) {
	region, err := filemap.Open(path, mode)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrIO, path, err)
	}
	return region, nil
}

// Fingerprint hashes the head of the file at path
func Fingerprint(path string) (uint64, error) {
	region, err := Open(path, filemap.ModeRead)
	if err != nil {
		return 0, err
	}
	defer region.Close()

	sum, err := fingerprintRegion(region)
	if err != nil {
		return 0, fmt.Errorf("%w: fingerprint %s: %w", domain.ErrIO, path, err)
	}
	return sum, nil
}

func fingerprintRegion(region *filemap.Region) (uint64, error) {
	n := region.Size()
	if n > FingerprintSize {
		n = FingerprintSize
	}
	head, err := region.Slice(0, n)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(head), nil
}

// estimateLines guesses the offsets capacity, assuming ~128 byte lines
func estimateLines(size int64) int {
	const maxPrealloc = 1 << 20
	n := size / 128
	if n > maxPrealloc {
		n = maxPrealloc
	}
	return int(n)
}
