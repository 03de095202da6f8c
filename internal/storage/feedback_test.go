package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennyworth-dev/pennyworth/internal/common"
	"github.com/pennyworth-dev/pennyworth/internal/model"
)

func TestRecordVerification(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.CreateCategory(ctx, "Dining", "")
	require.NoError(t, err)
	_, err = store.CreateCategory(ctx, "Groceries", "")
	require.NoError(t, err)

	txn := testTransaction("2024-01-05", "COFFEE SHOP", "-4.50", "chk")
	_, err = store.SaveTransactions(ctx, []model.Transaction{txn})
	require.NoError(t, err)
	require.NoError(t, store.SavePrediction(ctx, txn.ID, "Groceries", 0.55, 1, true))

	require.NoError(t, store.RecordVerification(ctx, txn.ID, "Dining"))

	got, err := store.GetTransactionByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dining", got.VerifiedCategory)
	assert.Equal(t, model.StatusVerified, got.Status)
	assert.False(t, got.NeedsReview)

	events, err := store.GetFeedbackEvents(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Groceries", events[0].PreviousCategory)
	assert.Equal(t, "Dining", events[0].NewCategory)
}

func TestRecordVerificationErrors(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.CreateCategory(ctx, "Dining", "")
	require.NoError(t, err)

	txn := testTransaction("2024-01-05", "COFFEE SHOP", "-4.50", "chk")
	_, err = store.SaveTransactions(ctx, []model.Transaction{txn})
	require.NoError(t, err)

	err = store.RecordVerification(ctx, txn.ID, "Spelunking")
	assert.ErrorIs(t, err, common.ErrUnknownCategory)

	err = store.RecordVerification(ctx, "missing", "Dining")
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Failed verifications must not dirty the transaction.
	got, err := store.GetTransactionByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Empty(t, got.VerifiedCategory)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestReverifyAfterSyncForcesResync(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.CreateCategory(ctx, "Dining", "")
	require.NoError(t, err)
	_, err = store.CreateCategory(ctx, "Entertainment", "")
	require.NoError(t, err)

	txn := testTransaction("2024-01-05", "COFFEE SHOP", "-4.50", "chk")
	_, err = store.SaveTransactions(ctx, []model.Transaction{txn})
	require.NoError(t, err)

	require.NoError(t, store.RecordVerification(ctx, txn.ID, "Dining"))
	require.NoError(t, store.MarkSynced(ctx, txn.ID, "ext-9"))

	// Verified truth takes precedence over synced state.
	require.NoError(t, store.RecordVerification(ctx, txn.ID, "Entertainment"))

	got, err := store.GetTransactionByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusVerified, got.Status)
	assert.Equal(t, "Entertainment", got.VerifiedCategory)

	events, err := store.GetFeedbackEvents(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Dining", events[1].PreviousCategory)
	assert.Equal(t, "Entertainment", events[1].NewCategory)
}

func TestUnverify(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.CreateCategory(ctx, "Dining", "")
	require.NoError(t, err)

	txn := testTransaction("2024-01-05", "COFFEE SHOP", "-4.50", "chk")
	_, err = store.SaveTransactions(ctx, []model.Transaction{txn})
	require.NoError(t, err)

	// Unverifying an unverified transaction is an error.
	require.Error(t, store.Unverify(ctx, txn.ID))

	require.NoError(t, store.RecordVerification(ctx, txn.ID, "Dining"))
	require.NoError(t, store.Unverify(ctx, txn.ID))

	got, err := store.GetTransactionByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Empty(t, got.VerifiedCategory)
	assert.Equal(t, model.StatusPending, got.Status)

	// History is never destroyed: verify then unverify leaves two events.
	events, err := store.GetFeedbackEvents(ctx, txn.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, events[1].IsUnverify())
	assert.Equal(t, "Dining", events[1].PreviousCategory)
}
