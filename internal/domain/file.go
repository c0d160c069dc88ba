package domain

import "time"

// FileDescriptor describes a file on disk together with its index state.
// It is derived on every request and never stored.
type FileDescriptor struct {
	Path        string  `json:"path"`
	DisplayName string  `json:"display_name"`
	SizeBytes   uint64  `json:"size_bytes"`
	TotalLines  *uint64 `json:"total_lines,omitempty"`
	IsIndexed   bool    `json:"is_indexed"`
}

// IndexStatus is a read-only projection of a stored LineIndex
type IndexStatus struct {
	Indexed    bool       `json:"indexed"`
	TotalLines uint64     `json:"total_lines"`
	IndexedAt  *time.Time `json:"indexed_at,omitempty"`
	Stale      bool       `json:"stale"` // file size, mtime or head changed since indexing
}

// IndexStatusEntry pairs a stored path with its status
type IndexStatusEntry struct {
	Path string `json:"path"`
	IndexStatus
}

// StatusOf projects a LineIndex (or its absence) to an IndexStatus
func StatusOf(idx *LineIndex) IndexStatus {
	if idx == nil {
		return IndexStatus{}
	}
	indexedAt := idx.IndexedAt
	return IndexStatus{
		Indexed:    true,
		TotalLines: idx.TotalLines,
		IndexedAt:  &indexedAt,
	}
}
