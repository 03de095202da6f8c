package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pennyworth-dev/pennyworth/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidModel       = errors.New("invalid model record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i, txn := range transactions {
		if err := validateTransaction(&txn); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if txn.Description == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidTransaction)
	}
	if txn.Account == "" {
		return fmt.Errorf("%w: missing account", ErrInvalidTransaction)
	}
	return nil
}

// validateModelInfo validates a model record before it enters the registry.
func validateModelInfo(info *model.ModelInfo) error {
	if info == nil {
		return fmt.Errorf("%w: model info", ErrNilParameter)
	}
	if info.TrainedAt.IsZero() {
		return fmt.Errorf("%w: missing trained_at", ErrInvalidModel)
	}
	if info.FeatureSchemaVersion <= 0 {
		return fmt.Errorf("%w: missing feature schema version", ErrInvalidModel)
	}
	if info.HoldoutAccuracy < 0 || info.HoldoutAccuracy > 1 {
		return fmt.Errorf("%w: holdout accuracy must be between 0 and 1", ErrInvalidModel)
	}
	if info.TrainingSetSize <= 0 {
		return fmt.Errorf("%w: training set size must be positive", ErrInvalidModel)
	}
	return nil
}
