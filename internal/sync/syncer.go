// Package sync pushes finalized transactions to an external record store.
// The store itself is an external collaborator; this package defines the
// Pusher contract and the batch semantics around it.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pennyworth-dev/pennyworth/internal/common"
	"github.com/pennyworth-dev/pennyworth/internal/model"
	"github.com/pennyworth-dev/pennyworth/internal/service"
)

// Pusher is implemented by external record-store adapters. Push must be
// idempotent per transaction and should wrap failures with
// common.NewRetryableSyncError or common.NewPermanentSyncError.
type Pusher interface {
	Push(ctx context.Context, txn *model.Transaction) (externalRef string, err error)
}

// FailedItem records one transaction the batch could not sync.
type FailedItem struct {
	TransactionID string
	Reason        string
}

// Report aggregates the outcome of one sync batch.
type Report struct {
	Failed    []FailedItem
	Succeeded int
	Skipped   int
}

// Syncer drives batch synchronization of verified transactions.
type Syncer struct {
	storage service.Storage
	pusher  Pusher
	retry   service.RetryOptions
}

// NewSyncer creates a batch syncer with the given retry policy.
func NewSyncer(storage service.Storage, pusher Pusher, retry service.RetryOptions) *Syncer {
	if retry.MaxAttempts <= 0 {
		retry = service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		}
	}
	return &Syncer{storage: storage, pusher: pusher, retry: retry}
}

// SyncAll pushes every verified transaction. Transient failures are retried
// with backoff; permanent failures are recorded and the batch continues.
// Re-verified transactions that were previously synced show up here again
// because verification moved them back to verified status.
func (s *Syncer) SyncAll(ctx context.Context) (*Report, error) {
	verified := model.StatusVerified
	pending, err := s.storage.GetTransactions(ctx, service.TransactionFilter{Status: &verified})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions for sync: %w", err)
	}

	report := &Report{}
	for i := range pending {
		txn := &pending[i]

		if err := ctx.Err(); err != nil {
			return report, err
		}

		ref, pushErr := s.pushWithRetry(ctx, txn)
		if pushErr != nil {
			report.Failed = append(report.Failed, FailedItem{
				TransactionID: txn.ID,
				Reason:        pushErr.Error(),
			})
			slog.Warn("failed to sync transaction",
				"transaction_id", txn.ID,
				"error", pushErr)
			continue
		}

		if err := s.storage.MarkSynced(ctx, txn.ID, ref); err != nil {
			report.Failed = append(report.Failed, FailedItem{
				TransactionID: txn.ID,
				Reason:        fmt.Sprintf("pushed as %s but failed to record: %v", ref, err),
			})
			continue
		}
		report.Succeeded++
	}

	slog.Info("sync batch complete",
		"succeeded", report.Succeeded,
		"failed", len(report.Failed))
	return report, nil
}

// SyncOne pushes a single transaction by ID. Already-synced transactions are
// a no-op.
func (s *Syncer) SyncOne(ctx context.Context, transactionID string) (*Report, error) {
	txn, err := s.storage.GetTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	switch txn.Status {
	case model.StatusSynced:
		report.Skipped = 1
		return report, nil
	case model.StatusVerified:
	default:
		return nil, fmt.Errorf("transaction %s is %s, only verified transactions sync", txn.ID, txn.Status)
	}

	ref, err := s.pushWithRetry(ctx, txn)
	if err != nil {
		report.Failed = append(report.Failed, FailedItem{TransactionID: txn.ID, Reason: err.Error()})
		return report, nil
	}
	if err := s.storage.MarkSynced(ctx, txn.ID, ref); err != nil {
		return nil, err
	}
	report.Succeeded = 1
	return report, nil
}

func (s *Syncer) pushWithRetry(ctx context.Context, txn *model.Transaction) (string, error) {
	var ref string
	err := common.WithRetry(ctx, func() error {
		var pushErr error
		ref, pushErr = s.pusher.Push(ctx, txn)
		return pushErr
	}, s.retry)
	if err != nil {
		return "", err
	}
	if ref == "" {
		// The contract never fabricates a sync reference on failure, and a
		// success without one is unusable.
		return "", errors.New("pusher returned empty external ref")
	}
	return ref, nil
}
