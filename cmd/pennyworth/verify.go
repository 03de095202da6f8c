package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pennyworth-dev/pennyworth/internal/common"
	"github.com/pennyworth-dev/pennyworth/internal/model"
	"github.com/pennyworth-dev/pennyworth/internal/service"
)

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [transaction-id] [category]",
		Short: "Confirm or correct a transaction's category",
		Long: `Record the final category for a transaction. Verifying a transaction that
was already synced moves it back to verified so the correction is pushed on
the next sync. Use --list to see transactions waiting for review.`,
		RunE: runVerify,
	}

	cmd.Flags().Bool("list", false, "list pending transactions instead of verifying")
	cmd.Flags().Int("limit", 25, "maximum rows to list")
	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if list, _ := cmd.Flags().GetBool("list"); list {
		limit, _ := cmd.Flags().GetInt("limit")
		return listPending(cmd, store, limit)
	}

	if len(args) != 2 {
		return fmt.Errorf("expected <transaction-id> <category>, got %d arguments", len(args))
	}

	id, err := resolveTransactionID(ctx, store, args[0])
	if err != nil {
		return err
	}
	if err := store.RecordVerification(ctx, id, args[1]); err != nil {
		return err
	}
	fmt.Printf("verified %s as %q\n", id[:12], args[1])
	return nil
}

// resolveTransactionID accepts a full content-hash ID or a unique prefix, the
// way the list output shows them.
func resolveTransactionID(ctx context.Context, store service.Storage, id string) (string, error) {
	if _, err := store.GetTransactionByID(ctx, id); err == nil {
		return id, nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return "", err
	}

	txns, err := store.GetTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return "", err
	}

	var match string
	for i := range txns {
		if strings.HasPrefix(txns[i].ID, id) {
			if match != "" {
				return "", fmt.Errorf("transaction ID prefix %q is ambiguous", id)
			}
			match = txns[i].ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	return match, nil
}

func listPending(cmd *cobra.Command, store service.Storage, limit int) error {
	pending := model.StatusPending
	txns, err := store.GetTransactions(cmd.Context(), service.TransactionFilter{Status: &pending, Limit: limit})
	if err != nil {
		return err
	}
	if len(txns) == 0 {
		fmt.Println("nothing waiting for review")
		return nil
	}

	for i := range txns {
		txn := &txns[i]
		marker := " "
		if txn.NeedsReview {
			marker = "!"
		}
		predicted := txn.PredictedCategory
		if predicted == "" {
			predicted = "(unpredicted)"
		}
		fmt.Printf("%s %s  %s  %10s  %-24s  %s (%.2f)\n",
			marker,
			txn.ID[:12],
			txn.Date.Format("2006-01-02"),
			txn.Amount.StringFixed(2),
			truncate(txn.Description, 24),
			predicted,
			txn.PredictedConfidence)
	}
	return nil
}

func unverifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unverify <transaction-id>",
		Short: "Revert a verification, keeping the audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			id, err := resolveTransactionID(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			if err := store.Unverify(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Printf("unverified %s\n", id[:12])
			return nil
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
