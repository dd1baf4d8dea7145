package models

import (
	"errors"
	"fmt"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrGeneration       = errors.New("generation failed")
	ErrPermissionDenied = errors.New("permission denied")
)

// ValidationError is malformed caller input. Never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Collection string
	ID         uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Collection, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// GenerationError carries the provider's own message.
type GenerationError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: provider returned %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

func (e *GenerationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrGeneration, e.Err}
	}
	return []error{ErrGeneration}
}

// PermissionError is a billing-read denial. The cost cache absorbs it.
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string {
	return "billing access denied: " + e.Message
}

func (e *PermissionError) Unwrap() error { return ErrPermissionDenied }
