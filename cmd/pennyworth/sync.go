package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pennyworth-dev/pennyworth/internal/service"
	"github.com/pennyworth-dev/pennyworth/internal/sheets"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push verified transactions to Google Sheets",
		Long: `Push every verified transaction to the configured Google Sheet. Transient
API failures are retried; rows the sheet permanently rejects are reported and
the rest of the batch continues. Re-running sync only pushes what changed.`,
		RunE: runSync,
	}

	cmd.Flags().String("spreadsheet-id", "", "target spreadsheet ID")
	cmd.Flags().String("sheet", "Transactions", "sheet (tab) name")
	cmd.Flags().String("service-account", "", "path to a service account key file")

	_ = viper.BindPFlag("sheets.spreadsheet_id", cmd.Flags().Lookup("spreadsheet-id"))
	_ = viper.BindPFlag("sheets.sheet_name", cmd.Flags().Lookup("sheet"))
	_ = viper.BindPFlag("sheets.service_account_path", cmd.Flags().Lookup("service-account"))

	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	config := sheets.Config{
		ClientID:           viper.GetString("sheets.client_id"),
		ClientSecret:       viper.GetString("sheets.client_secret"),
		RefreshToken:       viper.GetString("sheets.refresh_token"),
		ServiceAccountPath: viper.GetString("sheets.service_account_path"),
		SpreadsheetID:      viper.GetString("sheets.spreadsheet_id"),
		SheetName:          viper.GetString("sheets.sheet_name"),
	}
	// Anything not set via flags or the config file can still come from
	// GOOGLE_SHEETS_* environment variables.
	config.LoadFromEnv()
	if config.SheetName == "" {
		config.SheetName = sheets.DefaultConfig().SheetName
	}

	pusher, err := sheets.NewPusher(ctx, config, slog.Default())
	if err != nil {
		return err
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

	report, err := eng.Sync(ctx, pusher, service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	})
	if err != nil {
		return err
	}

	fmt.Printf("synced %d transactions", report.Succeeded)
	if len(report.Failed) > 0 {
		fmt.Printf(", %d failed", len(report.Failed))
	}
	fmt.Println()
	for _, item := range report.Failed {
		fmt.Printf("  %s: %s\n", item.TransactionID[:12], item.Reason)
	}
	return nil
}
