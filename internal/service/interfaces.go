// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/pennyworth-dev/pennyworth/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	Status *model.TransactionStatus
	Limit  int
	Offset int
}

// SaveResult reports the outcome of persisting a batch of transaction drafts.
type SaveResult struct {
	Inserted   []string
	Duplicates []string
}

// Storage defines the contract for the label store.
type Storage interface {
	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) (*SaveResult, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	GetTransactionsToPredict(ctx context.Context) ([]model.Transaction, error)
	SavePrediction(ctx context.Context, id, category string, confidence float64, modelVersion int, needsReview bool) error
	GetVerifiedTransactions(ctx context.Context) ([]model.Transaction, error)
	GetTransactionCount(ctx context.Context) (int, error)

	// Verification operations
	RecordVerification(ctx context.Context, transactionID, category string) error
	Unverify(ctx context.Context, transactionID string) error
	GetFeedbackEvents(ctx context.Context, transactionID string) ([]model.FeedbackEvent, error)

	// Sync bookkeeping
	MarkSynced(ctx context.Context, transactionID, syncRef string) error

	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	CreateCategory(ctx context.Context, name, description string) (*model.Category, error)
	RetireCategory(ctx context.Context, name string) error

	// Model registry
	SaveModel(ctx context.Context, info *model.ModelInfo, artifact []byte) (*model.ModelInfo, error)
	GetActiveModel(ctx context.Context) (*model.ModelInfo, []byte, error)
	ListModels(ctx context.Context) ([]model.ModelInfo, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
