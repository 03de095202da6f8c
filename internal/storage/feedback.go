package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pennyworth-dev/pennyworth/internal/common"
	"github.com/pennyworth-dev/pennyworth/internal/model"
)

// RecordVerification sets the authoritative human-confirmed category for a
// transaction and appends a feedback event to the audit log. A verification
// after sync moves the transaction back to verified so it gets re-synced.
func (s *SQLiteStorage) RecordVerification(ctx context.Context, transactionID, category string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var categoryExists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM categories WHERE name = ? AND is_active = 1)
	`, category).Scan(&categoryExists)
	if err != nil {
		return fmt.Errorf("failed to check category existence: %w", err)
	}
	if !categoryExists {
		return fmt.Errorf("%w: %q", common.ErrUnknownCategory, category)
	}

	var verified, predicted sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT verified_category, predicted_category FROM transactions WHERE id = ?
	`, transactionID).Scan(&verified, &predicted)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: transaction %s", common.ErrNotFound, transactionID)
	}
	if err != nil {
		return fmt.Errorf("failed to load transaction: %w", err)
	}

	// Latest known category before this verification, for the audit trail.
	previous := verified.String
	if previous == "" {
		previous = predicted.String
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO feedback_events (transaction_id, previous_category, new_category)
		VALUES (?, ?, ?)
	`, transactionID, nullable(previous), category); err != nil {
		return fmt.Errorf("failed to append feedback event: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE transactions SET verified_category = ?, status = 'verified', needs_review = 0
		WHERE id = ?
	`, category, transactionID); err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit verification: %w", err)
	}

	slog.Info("recorded verification",
		"transaction_id", transactionID,
		"previous", previous,
		"category", category)
	return nil
}

// Unverify removes a verification via an explicit, audited event. The
// transaction returns to pending; the audit log keeps the prior label.
func (s *SQLiteStorage) Unverify(ctx context.Context, transactionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var verified sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT verified_category FROM transactions WHERE id = ?
	`, transactionID).Scan(&verified)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: transaction %s", common.ErrNotFound, transactionID)
	}
	if err != nil {
		return fmt.Errorf("failed to load transaction: %w", err)
	}
	if verified.String == "" {
		return fmt.Errorf("transaction %s is not verified", transactionID)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO feedback_events (transaction_id, previous_category, new_category)
		VALUES (?, ?, NULL)
	`, transactionID, verified.String); err != nil {
		return fmt.Errorf("failed to append feedback event: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE transactions SET verified_category = NULL, status = 'pending' WHERE id = ?
	`, transactionID); err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit unverify: %w", err)
	}

	slog.Info("unverified transaction",
		"transaction_id", transactionID,
		"previous", verified.String)
	return nil
}

// GetFeedbackEvents returns the full audit trail for a transaction, oldest
// first.
func (s *SQLiteStorage) GetFeedbackEvents(ctx context.Context, transactionID string) ([]model.FeedbackEvent, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, previous_category, new_category, created_at
		FROM feedback_events
		WHERE transaction_id = ?
		ORDER BY id
	`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.FeedbackEvent
	for rows.Next() {
		var event model.FeedbackEvent
		var previous, next sql.NullString
		if err := rows.Scan(&event.ID, &event.TransactionID, &previous, &next, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan feedback event: %w", err)
		}
		event.PreviousCategory = previous.String
		event.NewCategory = next.String
		events = append(events, event)
	}
	return events, rows.Err()
}
