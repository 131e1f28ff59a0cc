package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrBusinessValidation matches every *ValidationError.
	ErrBusinessValidation = errors.New("business validation failed")
	ErrReaderNil          = errors.New("reader is nil")
)

// Reason identifies which business rule rejected an operation.
type Reason string

const (
	ReasonCivilIDExpired          Reason = "CIVIL_ID_EXPIRED"
	ReasonInsufficientAttachments Reason = "INSUFFICIENT_ATTACHMENTS"
	ReasonUnresolvedAttachments   Reason = "UNRESOLVED_ATTACHMENTS"
	ReasonAttachmentInUse         Reason = "ATTACHMENT_IN_USE"
	ReasonDuplicateCivilID        Reason = "DUPLICATE_CIVIL_ID"
	ReasonUnknownAttachmentType   Reason = "UNKNOWN_ATTACHMENT_TYPE"
	ReasonInvalidFileName         Reason = "INVALID_FILE_NAME"
)

// NotFoundError reports a referenced entity that does not resolve.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found with ID: %v", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError is a definitive business rule failure. It is never retried.
type ValidationError struct {
	Reason  Reason
	Message string
	Details map[string]any
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrBusinessValidation }

func notFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func invalid(reason Reason, details map[string]any, format string, args ...any) error {
	return &ValidationError{Reason: reason, Message: fmt.Sprintf(format, args...), Details: details}
}

// ReasonOf returns the rule behind err, or "" when err is not a business validation failure.
func ReasonOf(err error) Reason {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return ""
}
