package handlers

import (
	"errors"

	"github.com/SteelMorgan/log-viewer/internal/domain"
)

// KindValidation marks requests rejected before reaching the loader
const KindValidation domain.ErrorKind = "validation"

// ToolError is the error shape returned to tool callers.
// Kind is stable for programmatic handling; Message is for humans.
type ToolError struct {
	Kind         domain.ErrorKind `json:"kind"`
	Message      string           `json:"message"`
	Instructions []string         `json:"instructions,omitempty"`
}

func (e *ToolError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// toToolError converts any handler failure to a ToolError
func toToolError(err error) *ToolError {
	if err == nil {
		return nil
	}

	var te *ToolError
	if errors.As(err, &te) {
		return te
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return &ToolError{
			Kind:         KindValidation,
			Message:      ve.Error(),
			Instructions: ve.Instructions,
		}
	}

	return &ToolError{
		Kind:    domain.KindOf(err),
		Message: err.Error(),
	}
}
