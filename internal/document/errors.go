package document

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrLocked          = errors.New("document is locked")
	ErrDeleteForbidden = errors.New("document cannot be deleted")
	ErrConflict        = errors.New("document was modified concurrently")
)

// ValidationError reports a malformed draft or patch.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidTransitionError reports a status change the state machine refuses,
// or one whose guard or re-validation failed.
type InvalidTransitionError struct {
	Current   Status
	Requested Status
	Reason    string
	Err       error
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("invalid transition %s -> %s", e.Current, e.Requested)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *InvalidTransitionError) Unwrap() error { return e.Err }

// ConversionError reports why an estimate could not become an invoice.
type ConversionError struct {
	EstimateID uuid.UUID
	Reason     string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert estimate %s: %s", e.EstimateID, e.Reason)
}
