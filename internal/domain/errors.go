package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                 = errors.New("not found")
	ErrAlreadySignedOrCancelled = errors.New("already signed or cancelled")
	ErrInvalidStep              = errors.New("invalid signing step")
	ErrDocumentLoad             = errors.New("document load failed")
	ErrMediaProcessing          = errors.New("media processing failed")
	ErrRequestNotPending        = errors.New("request not pending")
)

// ValidationError carries a field-level reason for a rejected input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
