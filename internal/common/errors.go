// Package common defines shared constants and the error taxonomy used across
// the registry. Callers should use errors.Is / errors.As to match these values.
package common

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal      = errors.New("internal error")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrVersionConflict = errors.New("version conflict")

	// Workflow errors.
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrValidation         = errors.New("validation failed")
	ErrResourceContention = errors.New("resource contention")
	ErrPersistence        = errors.New("persistence failure")
	ErrSync               = errors.New("sync failure")

	// Auth errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// ValidationError carries every violation found by a rule set.
type ValidationError struct {
	Messages []string
}

func NewValidationError(messages []string) *ValidationError {
	return &ValidationError{Messages: messages}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Messages, " "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ResourceContentionError is returned when a shared lock could not be taken in
// time. Nothing was changed; the caller may retry.
type ResourceContentionError struct {
	Resource string
	Err      error
}

func (e *ResourceContentionError) Error() string {
	return fmt.Sprintf("%s is busy: %v", e.Resource, e.Err)
}

func (e *ResourceContentionError) Is(target error) bool {
	return target == ErrResourceContention
}

func (e *ResourceContentionError) Unwrap() error { return e.Err }

// PersistenceError reports a storage failure. The surrounding transaction has
// been rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SyncError reports a failed post-commit call to an external system. The
// transition that triggered it is already durable.
type SyncError struct {
	Target string
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s sync failed: %v", e.Target, e.Err)
}

func (e *SyncError) Is(target error) bool {
	return target == ErrSync
}

func (e *SyncError) Unwrap() error { return e.Err }
