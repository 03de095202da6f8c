package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pennyworth-dev/pennyworth/internal/ofx"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx <file.ofx>",
		Short: "Import transactions from an OFX/QFX statement",
		Long: `Import an OFX or QFX statement downloaded from your bank. Bank and credit
card statements are both supported. Duplicates are skipped the same way as
CSV imports.`,
		Args: cobra.ExactArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().String("account", "", "override the account ID embedded in the statement")
	cmd.Flags().Bool("list-accounts", false, "list accounts in the statement without importing")
	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	account, _ := cmd.Flags().GetString("account")
	listAccounts, _ := cmd.Flags().GetBool("list-accounts")

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = file.Close() }()

	if listAccounts {
		return printStatementAccounts(ctx, file)
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

	report, err := eng.IngestOFX(ctx, file, account)
	if err != nil {
		return err
	}

	printIngestReport(report)
	return nil
}

func printStatementAccounts(ctx context.Context, file *os.File) error {
	accounts, err := ofx.NewParser().GetAccounts(ctx, file)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	if len(accounts) == 0 {
		fmt.Println("no accounts found in statement")
		return nil
	}

	fmt.Printf("found %d account(s):\n", len(accounts))
	for i, id := range accounts {
		fmt.Printf("  %d. %s\n", i+1, id)
	}
	return nil
}
