package domain

import "time"

// Encoding is the character encoding detected for a log file.
// The string value is also the tag persisted by the index store.
type Encoding string

const (
	EncodingUTF8    Encoding = "utf8"
	EncodingGBK     Encoding = "gbk"
	EncodingLatin1  Encoding = "latin1"
	EncodingUnknown Encoding = "unknown"
)

// ParseEncoding converts a persisted tag back to an Encoding.
// Unrecognized tags map to EncodingUnknown.
func ParseEncoding(tag string) Encoding {
	switch Encoding(tag) {
	case EncodingUTF8, EncodingGBK, EncodingLatin1:
		return Encoding(tag)
	default:
		return EncodingUnknown
	}
}

// LineIndex maps a file to the byte offset of every line start.
// It is built once per index build and never mutated afterwards.
type LineIndex struct {
	Path             string    `json:"path"`
	TotalLines       uint64    `json:"total_lines"`
	LineStartOffsets []uint64  `json:"line_start_offsets,omitempty"`
	FileSize         uint64    `json:"file_size"`
	Encoding         Encoding  `json:"encoding"`
	IndexedAt        time.Time `json:"indexed_at"`
	FileMtime        int64     `json:"file_mtime"`  // seconds since epoch at scan time
	Fingerprint      uint64    `json:"fingerprint"` // xxhash64 of the file head
}

// LineSpan returns the [start, end) byte range of line i, terminator included.
// The caller must ensure i < TotalLines.
func (idx *LineIndex) LineSpan(i uint64) (start, end uint64) {
	start = idx.LineStartOffsets[i]
	if i+1 < idx.TotalLines {
		return start, idx.LineStartOffsets[i+1]
	}
	return start, idx.FileSize
}

// Summary returns a copy of the index without the offsets array.
func (idx *LineIndex) Summary() LineIndex {
	s := *idx
	s.LineStartOffsets = nil
	return s
}
