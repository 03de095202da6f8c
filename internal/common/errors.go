// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Label store errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Taxonomy errors.
	ErrUnknownCategory = errors.New("unknown category")

	// Classification errors.
	ErrNoActiveModel  = errors.New("no active model")
	ErrSchemaMismatch = errors.New("feature schema mismatch")

	// Retraining errors.
	ErrInsufficientData = errors.New("insufficient training data")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// RetryableSyncError marks a sync failure worth retrying with backoff.
type RetryableSyncError struct {
	Err error
}

func (e *RetryableSyncError) Error() string {
	return fmt.Sprintf("retryable sync error: %v", e.Err)
}

func (e *RetryableSyncError) Unwrap() error {
	return e.Err
}

// PermanentSyncError marks a sync failure that will not succeed on retry.
// The batch records it and moves on to the next transaction.
type PermanentSyncError struct {
	Err error
}

func (e *PermanentSyncError) Error() string {
	return fmt.Sprintf("permanent sync error: %v", e.Err)
}

func (e *PermanentSyncError) Unwrap() error {
	return e.Err
}

// NewRetryableSyncError wraps err as a transient sync failure.
func NewRetryableSyncError(err error) error {
	return &RetryableSyncError{Err: err}
}

// NewPermanentSyncError wraps err as a non-retryable sync failure.
func NewPermanentSyncError(err error) error {
	return &PermanentSyncError{Err: err}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var permanent *PermanentSyncError
	if errors.As(err, &permanent) {
		return false
	}

	var retryable *RetryableSyncError
	return errors.As(err, &retryable)
}
