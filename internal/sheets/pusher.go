package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/pennyworth-dev/pennyworth/internal/common"
	"github.com/pennyworth-dev/pennyworth/internal/model"
)

// rowAppender is the slice of the Sheets API the pusher needs. The real
// implementation appends one row and returns the updated A1 range.
type rowAppender interface {
	Append(ctx context.Context, spreadsheetID, sheetName string, row []any) (updatedRange string, err error)
}

// Pusher appends one ledger row per transaction to a Google Sheet.
type Pusher struct {
	appender rowAppender
	logger   *slog.Logger
	config   Config
}

// NewPusher creates a Google Sheets pusher.
func NewPusher(ctx context.Context, config Config, logger *slog.Logger) (*Pusher, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Pusher{
		config:   config,
		appender: &apiAppender{service: service},
		logger:   logger,
	}, nil
}

// Push appends the transaction as a single row and returns
// "spreadsheetID!range" as the external reference. Failures are classified so
// the batch syncer knows whether retrying is worthwhile.
func (p *Pusher) Push(ctx context.Context, txn *model.Transaction) (string, error) {
	// The sheet is the ledger of record: only rows a human has verified
	// may land there. Retrying cannot fix an unverified row.
	if !txn.Verified() {
		return "", common.NewPermanentSyncError(fmt.Errorf("transaction %s has no verified category", txn.ID))
	}

	updatedRange, err := p.appender.Append(ctx, p.config.SpreadsheetID, p.config.SheetName, transactionRow(txn))
	if err != nil {
		return "", classifyAPIError(err)
	}

	ref := fmt.Sprintf("%s!%s", p.config.SpreadsheetID, updatedRange)
	p.logger.Debug("appended transaction row",
		"transaction_id", txn.ID,
		"range", updatedRange)
	return ref, nil
}

// transactionRow builds the ledger row for one transaction. Column order is
// part of the sheet's contract; appending new columns is fine, reordering is
// not.
func transactionRow(txn *model.Transaction) []any {
	return []any{
		txn.Date.Format("2006-01-02"),
		txn.Description,
		txn.Amount.StringFixed(2),
		txn.VerifiedCategory,
		txn.Account,
		fmt.Sprintf("%.2f", txn.PredictedConfidence),
		txn.ID,
	}
}

// classifyAPIError wraps Sheets API failures as retryable or permanent.
// Rate limits and server errors are worth retrying; everything else is a
// configuration or data problem that retrying cannot fix.
func classifyAPIError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
			return common.NewRetryableSyncError(err)
		}
		return common.NewPermanentSyncError(err)
	}
	// Network-level failures come through as plain errors.
	return common.NewRetryableSyncError(err)
}

type apiAppender struct {
	service *sheetsapi.Service
}

func (a *apiAppender) Append(ctx context.Context, spreadsheetID, sheetName string, row []any) (string, error) {
	resp, err := a.service.Spreadsheets.Values.
		Append(spreadsheetID, sheetName, &sheetsapi.ValueRange{Values: [][]any{row}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if resp.Updates == nil || resp.Updates.UpdatedRange == "" {
		return "", fmt.Errorf("append response missing updated range")
	}
	return resp.Updates.UpdatedRange, nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheetsapi.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheetsapi.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oauthConfig := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheetsapi.SpreadsheetsScope},
		}
		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		tokenSource = oauthConfig.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheetsapi.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}
