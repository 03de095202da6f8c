package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/pennyworth-dev/pennyworth/internal/common"
	"github.com/pennyworth-dev/pennyworth/internal/model"
	"github.com/pennyworth-dev/pennyworth/internal/service"
)

const transactionColumns = `id, date, description, amount, account, bank_category,
	predicted_category, predicted_confidence, model_version, needs_review,
	verified_category, status, sync_ref, created_at`

// SaveTransactions persists a batch of transaction drafts. Rows whose
// content-hash ID already exists are reported as duplicates, not re-inserted,
// which makes repeated uploads of overlapping statements idempotent.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) (*service.SaveResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateTransactions(transactions); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			id, date, description, amount, account, bank_category,
			predicted_category, predicted_confidence, model_version,
			needs_review, verified_category, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	result := &service.SaveResult{}
	for _, txn := range transactions {
		if txn.ID == "" {
			txn.ID = txn.GenerateID()
		}
		if txn.Status == "" {
			txn.Status = model.StatusPending
		}

		res, execErr := stmt.ExecContext(ctx,
			txn.ID,
			txn.Date,
			txn.Description,
			txn.Amount.String(),
			txn.Account,
			nullable(txn.BankCategory),
			nullable(txn.PredictedCategory),
			txn.PredictedConfidence,
			txn.ModelVersion,
			txn.NeedsReview,
			nullable(txn.VerifiedCategory),
			string(txn.Status),
		)
		if execErr != nil {
			return nil, fmt.Errorf("failed to insert transaction %s: %w", txn.ID, execErr)
		}

		rows, raErr := res.RowsAffected()
		if raErr != nil {
			return nil, fmt.Errorf("failed to read rows affected: %w", raErr)
		}
		if rows == 0 {
			result.Duplicates = append(result.Duplicates, txn.ID)
		} else {
			result.Inserted = append(result.Inserted, txn.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	slog.Debug("saved transactions",
		"inserted", len(result.Inserted),
		"duplicates", len(result.Duplicates))
	return result, nil
}

// GetTransactionByID retrieves a single transaction.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions WHERE id = ?
	`, id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// GetTransactions returns transactions matching the filter, newest first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	args := []any{}
	if filter.Status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*filter.Status))
	}
	query += ` ORDER BY date DESC, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	return s.queryTransactions(ctx, query, args...)
}

// GetTransactionsToPredict returns pending transactions with no prediction yet.
func (s *SQLiteStorage) GetTransactionsToPredict(ctx context.Context) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	return s.queryTransactions(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE status = 'pending' AND (predicted_category IS NULL OR predicted_category = '')
		ORDER BY date
	`)
}

// SavePrediction records a model prediction. Verified categories are never
// touched here; a prediction only updates the predicted_* columns.
func (s *SQLiteStorage) SavePrediction(ctx context.Context, id, category string, confidence float64, modelVersion int, needsReview bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET predicted_category = ?, predicted_confidence = ?, model_version = ?, needs_review = ?
		WHERE id = ?
	`, category, confidence, modelVersion, needsReview, id)
	if err != nil {
		return fmt.Errorf("failed to save prediction: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	return nil
}

// GetVerifiedTransactions returns every transaction with a verified category.
func (s *SQLiteStorage) GetVerifiedTransactions(ctx context.Context) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	return s.queryTransactions(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE verified_category IS NOT NULL AND verified_category != ''
		ORDER BY date
	`)
}

// GetTransactionCount returns the total number of stored transactions.
func (s *SQLiteStorage) GetTransactionCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// MarkSynced records the external reference and advances status to synced.
// Marking an already-synced transaction with the same ref is a no-op.
func (s *SQLiteStorage) MarkSynced(ctx context.Context, transactionID, syncRef string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}
	if err := validateString(syncRef, "syncRef"); err != nil {
		return err
	}

	txn, err := s.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return err
	}
	if txn.Status == model.StatusSynced && txn.SyncRef == syncRef {
		return nil
	}
	if txn.Status != model.StatusVerified {
		return fmt.Errorf("cannot sync transaction %s in status %s", transactionID, txn.Status)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE transactions SET sync_ref = ?, status = 'synced' WHERE id = ?
	`, syncRef, transactionID)
	if err != nil {
		return fmt.Errorf("failed to mark synced: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) queryTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", scanErr)
		}
		transactions = append(transactions, *txn)
	}
	return transactions, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*model.Transaction, error) {
	var txn model.Transaction
	var amount string
	var bankCategory, predictedCategory, verifiedCategory, syncRef sql.NullString
	var status string

	err := row.Scan(
		&txn.ID,
		&txn.Date,
		&txn.Description,
		&amount,
		&txn.Account,
		&bankCategory,
		&predictedCategory,
		&txn.PredictedConfidence,
		&txn.ModelVersion,
		&txn.NeedsReview,
		&verifiedCategory,
		&status,
		&syncRef,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
	}
	txn.BankCategory = bankCategory.String
	txn.PredictedCategory = predictedCategory.String
	txn.VerifiedCategory = verifiedCategory.String
	txn.SyncRef = syncRef.String
	txn.Status = model.TransactionStatus(status)
	return &txn, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
