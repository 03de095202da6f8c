// Package model defines the core domain models used throughout the application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus tracks a transaction through the verification lifecycle.
type TransactionStatus string

// Transaction status constants. Status only advances pending -> verified ->
// synced; the only regression is an explicit, audited unverify.
const (
	StatusPending  TransactionStatus = "pending"
	StatusVerified TransactionStatus = "verified"
	StatusSynced   TransactionStatus = "synced"
)

// Transaction represents a single canonical bank transaction from any source.
type Transaction struct {
	Date                time.Time
	CreatedAt           time.Time
	ID                  string
	Description         string // Raw transaction description
	Account             string // Source account identifier
	BankCategory        string // Category hint from the bank, informational only
	PredictedCategory   string
	VerifiedCategory    string
	SyncRef             string // External store reference, set once sync succeeds
	Status              TransactionStatus
	Amount              decimal.Decimal // Negative = money out, positive = money in
	PredictedConfidence float64
	ModelVersion        int // Model that produced the prediction
	NeedsReview         bool
}

// GenerateID derives the stable content-hash identifier used for duplicate
// detection. Re-imports of the same statement row produce the same ID.
func (t *Transaction) GenerateID() string {
	data := fmt.Sprintf("%s:%s:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Description,
		t.Amount.StringFixed(2),
		t.Account)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// Verified reports whether a human has confirmed this transaction's category.
func (t *Transaction) Verified() bool {
	return t.VerifiedCategory != ""
}
