// Package filemap exposes a file as an addressable byte range.
//
// Files are memory-mapped read-only when possible so multi-gigabyte logs never
// have to be copied onto the heap. When mapping is unavailable the same API is
// served by positional reads on the open file.
package filemap

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/blevesearch/mmap-go"
	"github.com/rs/zerolog/log"
)

// Mode selects how a Region accesses file bytes
type Mode int

const (
	// ModeAuto maps the file and falls back to ReadAt if mapping fails
	ModeAuto Mode = iota
	// ModeRead always uses ReadAt
	ModeRead
)

// Region is a read-only view of a whole file
type Region struct {
	file *os.File
	data mmap.MMap // nil when not mapped
	size int64
}

// Open opens path and, depending on mode, maps it into memory.
// Errors from os.Open and Stat are returned unwrapped so callers can test
// them with os.IsNotExist.
func Open(path string, mode Mode) (*Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}

	r := &Region{file: f, size: info.Size()}

	// Zero-length files cannot be mapped
	if mode == ModeRead || r.size == 0 {
		return r, nil
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		log.Debug().
			Err(err).
			Str("path", path).
			Msg("mmap unavailable, falling back to buffered reads")
		return r, nil
	}
	r.data = data
	return r, nil
}

// Size returns the file size captured at open time
func (r *Region) Size() int64 {
	return r.size
}

// Mapped reports whether the region is backed by a memory mapping
func (r *Region) Mapped() bool {
	return r.data != nil
}

// Bytes returns the whole mapping, or nil when the region is not mapped.
// The slice is only valid until Close.
func (r *Region) Bytes() []byte {
	return r.data
}

// Stat returns the file info of the underlying file
func (r *Region) Stat() (os.FileInfo, error) {
	return r.file.Stat()
}

// Slice returns bytes [start, end). For mapped regions the result aliases the
// mapping and is only valid until Close; otherwise it is a fresh buffer.
func (r *Region) Slice(start, end int64) ([]byte, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("invalid range [%d, %d)", start, end)
	}
	if end > r.size {
		return nil, fmt.Errorf("range [%d, %d) beyond file size %d: %w", start, end, r.size, io.ErrUnexpectedEOF)
	}
	if r.data != nil {
		return r.data[start:end], nil
	}

	buf := make([]byte, end-start)
	n, err := r.file.ReadAt(buf, start)
	if err != nil && !(errors.Is(err, io.EOF) && n == len(buf)) {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("failed to read [%d, %d): %w", start, end, err)
	}
	return buf, nil
}

// ReadAt implements io.ReaderAt
func (r *Region) ReadAt(p []byte, off int64) (int, error) {
	if r.data == nil {
		return r.file.ReadAt(p, off)
	}
	if off >= int64(len(r.data)) {
		return 0, io.EOF
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps the region and closes the file
func (r *Region) Close() error {
	var unmapErr error
	if r.data != nil {
		unmapErr = r.data.Unmap()
		r.data = nil
	}
	closeErr := r.file.Close()
	return errors.Join(unmapErr, closeErr)
}
