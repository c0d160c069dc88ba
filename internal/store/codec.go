package store

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Column names of a persisted index record
const (
	colPath        = "path"
	colTotalLines  = "total_lines"
	colOffsets     = "line_offsets"
	colFileSize    = "file_size"
	colEncoding    = "encoding"
	colFileMtime   = "file_mtime"
	colIndexedAt   = "indexed_at"
	colFingerprint = "fingerprint"
)

// EncodeOffsets serializes offsets as a flat block of little-endian uint64
func EncodeOffsets(offsets []uint64) []byte {
	buf := make([]byte, 8*len(offsets))
	for i, off := range offsets {
		binary.LittleEndian.PutUint64(buf[i*8:], off)
	}
	return buf
}

// DecodeOffsets is the inverse of EncodeOffsets.
// The blob must hold exactly want entries.
func DecodeOffsets(blob []byte, want uint64) ([]uint64, error) {
	if uint64(len(blob)) != want*8 {
		return nil, fmt.Errorf("offsets blob has %d bytes, expected %d", len(blob), want*8)
	}
	offsets := make([]uint64, want)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint64(blob[i*8:])
	}
	return offsets, nil
}

func encodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

func decodeUint64(val []byte) (uint64, error) {
	if len(val) != 8 {
		return 0, fmt.Errorf("invalid integer value of %d bytes", len(val))
	}
	return binary.LittleEndian.Uint64(val), nil
}

func formatIndexedAt(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseIndexedAt(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid indexed_at %q: %w", s, err)
	}
	return t.UTC(), nil
}
