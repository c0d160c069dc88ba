package domain

import "errors"

// ErrorKind classifies failures returned by the core
type ErrorKind string

const (
	KindNotFound       ErrorKind = "not_found"
	KindIndexMissing   ErrorKind = "index_missing"
	KindIO             ErrorKind = "io_failure"
	KindInvalidPattern ErrorKind = "invalid_pattern"
	KindStorage        ErrorKind = "storage_failure"
	KindInternal       ErrorKind = "internal"
)

// Sentinel errors. Components join them with the underlying cause:
//
//	fmt.Errorf("%w: open %s: %w", domain.ErrIO, path, err)
var (
	ErrNotFound       = errors.New("file not found")
	ErrIndexMissing   = errors.New("index not found")
	ErrIO             = errors.New("io failure")
	ErrInvalidPattern = errors.New("invalid pattern")
	ErrStorage        = errors.New("storage failure")
)

// KindOf returns the most specific kind of err.
// Errors outside the taxonomy are reported as KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrIndexMissing):
		return KindIndexMissing
	case errors.Is(err, ErrInvalidPattern):
		return KindInvalidPattern
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, ErrIO):
		return KindIO
	default:
		return KindInternal
	}
}
