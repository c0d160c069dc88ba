package handlers

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// ValidationError represents a validation error with instructions
type ValidationError struct {
	Field        string   `json:"field"`
	Message      string   `json:"message"`
	Instructions []string `json:"instructions"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidatePath checks that path is absolute and, when allowed is not empty,
// matches at least one of the allowed doublestar patterns
func ValidatePath(path string, allowed []string) error {
	if path == "" {
		return &ValidationError{
			Field:   "path",
			Message: "path is required",
			Instructions: []string{
				"Provide the absolute path of the log file",
				"Example: '/var/log/app/server.log'",
			},
		}
	}

	if !filepath.IsAbs(path) {
		return &ValidationError{
			Field:   "path",
			Message: fmt.Sprintf("path must be absolute, got %q", path),
			Instructions: []string{
				"Resolve the path against the working directory before calling the tool",
				"Relative paths are ambiguous between clients and the server",
			},
		}
	}

	if len(allowed) == 0 {
		return nil
	}

	clean := filepath.ToSlash(filepath.Clean(path))
	for _, pattern := range allowed {
		if ok, err := doublestar.Match(filepath.ToSlash(pattern), clean); err == nil && ok {
			return nil
		}
	}

	instructions := []string{"Only files matching these patterns can be opened:"}
	instructions = append(instructions, allowed...)
	return &ValidationError{
		Field:        "path",
		Message:      fmt.Sprintf("path %q is outside the allowed locations", path),
		Instructions: instructions,
	}
}

// ClampCount limits a read_lines count to the configured maximum.
// A zero maximum disables the limit.
func ClampCount(count uint64, limit int) uint64 {
	if limit > 0 && count > uint64(limit) {
		return uint64(limit)
	}
	return count
}
