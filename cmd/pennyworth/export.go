package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pennyworth-dev/pennyworth/internal/model"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions as CSV",
		Long: `Write transactions as CSV to stdout or a file. By default every transaction
is exported; --status narrows to one lifecycle stage (pending, verified,
synced).`,
		RunE: runExport,
	}

	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	cmd.Flags().String("status", "", "filter by status: pending, verified, or synced")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var status *model.TransactionStatus
	if s, _ := cmd.Flags().GetString("status"); s != "" {
		switch parsed := model.TransactionStatus(s); parsed {
		case model.StatusPending, model.StatusVerified, model.StatusSynced:
			status = &parsed
		default:
			return fmt.Errorf("invalid status %q", s)
		}
	}

	out := os.Stdout
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer func() { _ = file.Close() }()
		out = file
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	eng, err := newEngine(ctx, store)
	if err != nil {
		return err
	}

	count, err := eng.ExportCSV(ctx, out, status)
	if err != nil {
		return err
	}
	if out != os.Stdout {
		fmt.Printf("exported %d transactions\n", count)
	}
	return nil
}
