package engine

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/pennyworth-dev/pennyworth/internal/model"
	"github.com/pennyworth-dev/pennyworth/internal/service"
)

// ExportCSV writes transactions as CSV. With a nil status filter every
// transaction is exported; passing a status narrows to that lifecycle stage.
func (e *Engine) ExportCSV(ctx context.Context, w io.Writer, status *model.TransactionStatus) (int, error) {
	txns, err := e.storage.GetTransactions(ctx, service.TransactionFilter{Status: status})
	if err != nil {
		return 0, fmt.Errorf("failed to load transactions for export: %w", err)
	}

	writer := csv.NewWriter(w)
	header := []string{
		"date", "description", "amount", "account",
		"category", "predicted_category", "confidence", "status", "id",
	}
	if err := writer.Write(header); err != nil {
		return 0, fmt.Errorf("failed to write export header: %w", err)
	}

	for i := range txns {
		txn := &txns[i]
		record := []string{
			txn.Date.Format("2006-01-02"),
			txn.Description,
			txn.Amount.StringFixed(2),
			txn.Account,
			txn.VerifiedCategory,
			txn.PredictedCategory,
			fmt.Sprintf("%.4f", txn.PredictedConfidence),
			string(txn.Status),
			txn.ID,
		}
		if err := writer.Write(record); err != nil {
			return 0, fmt.Errorf("failed to write export row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush export: %w", err)
	}
	return len(txns), nil
}
