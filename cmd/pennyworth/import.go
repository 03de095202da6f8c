package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pennyworth-dev/pennyworth/internal/engine"
	"github.com/pennyworth-dev/pennyworth/internal/ingest"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import transactions from a CSV export",
		Long: `Import a bank CSV export. Column names are given explicitly; there is no
guessing. Rows that fail to parse are reported individually and never abort
the batch. Duplicate rows, in the file or across imports, are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().String("date-col", "Date", "name of the date column")
	cmd.Flags().String("description-col", "Description", "name of the description column")
	cmd.Flags().String("amount-col", "Amount", "name of the amount column")
	cmd.Flags().String("account", "", "account label for every row (required)")
	cmd.Flags().String("category-col", "", "optional bank category column (informational)")
	cmd.Flags().String("type-col", "", "optional debit/credit type column")
	_ = cmd.MarkFlagRequired("account")

	_ = viper.BindPFlag("import.date_col", cmd.Flags().Lookup("date-col"))
	_ = viper.BindPFlag("import.description_col", cmd.Flags().Lookup("description-col"))
	_ = viper.BindPFlag("import.amount_col", cmd.Flags().Lookup("amount-col"))
	_ = viper.BindPFlag("import.category_col", cmd.Flags().Lookup("category-col"))
	_ = viper.BindPFlag("import.type_col", cmd.Flags().Lookup("type-col"))

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	account, _ := cmd.Flags().GetString("account")
	mapping := ingest.ColumnMapping{
		DateCol:        viper.GetString("import.date_col"),
		DescriptionCol: viper.GetString("import.description_col"),
		AmountCol:      viper.GetString("import.amount_col"),
		AccountLabel:   account,
		CategoryCol:    viper.GetString("import.category_col"),
		TypeCol:        viper.GetString("import.type_col"),
	}

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", args[0], err)
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

	bar := progressbar.DefaultBytes(info.Size(), "importing")
	reader := progressbar.NewReader(file, bar)

	report, err := eng.Ingest(ctx, &reader, mapping)
	if err != nil {
		return err
	}
	_ = bar.Finish()

	printIngestReport(report)
	return nil
}

func printIngestReport(report *engine.IngestReport) {
	fmt.Printf("\nImported %d new, %d duplicates skipped, %d rows failed",
		report.Inserted, report.Duplicates, report.Failed)
	if report.Predicted > 0 {
		fmt.Printf(", %d predicted", report.Predicted)
	}
	fmt.Println()

	for _, outcome := range report.Outcomes {
		if outcome.Status == engine.RowParseError {
			fmt.Printf("  row %d: %s\n", outcome.Row+1, outcome.Reason)
		}
	}
}
