package domain

import "errors"

// Domain errors
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrPageOutOfRange   = errors.New("page out of range")
	ErrInvalidFile      = errors.New("invalid file")
	ErrFileTooLarge     = errors.New("file exceeds maximum size")
	// ErrSuperseded is returned by a load or layout whose result was
	// discarded because a newer one started.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// ValidationError represents a validation error with field and message information.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}
