package sheets

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/pennyworth-dev/pennyworth/internal/common"
	"github.com/pennyworth-dev/pennyworth/internal/model"
)

type stubAppender struct {
	err          error
	updatedRange string
	gotRow       []any
}

func (s *stubAppender) Append(_ context.Context, _, _ string, row []any) (string, error) {
	s.gotRow = row
	if s.err != nil {
		return "", s.err
	}
	return s.updatedRange, nil
}

func testPusher(appender rowAppender) *Pusher {
	return &Pusher{
		config: Config{
			ServiceAccountPath: "/tmp/key.json",
			SpreadsheetID:      "sheet-123",
			SheetName:          "Transactions",
		},
		appender: appender,
		logger:   slog.Default(),
	}
}

func TestPushReturnsQualifiedRef(t *testing.T) {
	appender := &stubAppender{updatedRange: "Transactions!A42:G42"}
	pusher := testPusher(appender)

	txn := &model.Transaction{
		ID:                  "abc123",
		Date:                time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Description:         "CASH CAFE",
		Amount:              decimal.RequireFromString("-4.5"),
		Account:             "checking",
		VerifiedCategory:    "Dining",
		PredictedConfidence: 0.91,
	}

	ref, err := pusher.Push(context.Background(), txn)
	require.NoError(t, err)
	assert.Equal(t, "sheet-123!Transactions!A42:G42", ref)

	require.Len(t, appender.gotRow, 7)
	assert.Equal(t, "2024-03-15", appender.gotRow[0])
	assert.Equal(t, "CASH CAFE", appender.gotRow[1])
	assert.Equal(t, "-4.50", appender.gotRow[2])
	assert.Equal(t, "Dining", appender.gotRow[3])
	assert.Equal(t, "abc123", appender.gotRow[6])
}

func TestPushErrorClassification(t *testing.T) {
	tests := []struct {
		err       error
		name      string
		retryable bool
	}{
		{name: "rate limit", err: &googleapi.Error{Code: http.StatusTooManyRequests}, retryable: true},
		{name: "server error", err: &googleapi.Error{Code: http.StatusBadGateway}, retryable: true},
		{name: "bad request", err: &googleapi.Error{Code: http.StatusBadRequest}, retryable: false},
		{name: "forbidden", err: &googleapi.Error{Code: http.StatusForbidden}, retryable: false},
		{name: "network failure", err: errors.New("connection reset"), retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pusher := testPusher(&stubAppender{err: tt.err})
			_, err := pusher.Push(context.Background(), &model.Transaction{ID: "x", VerifiedCategory: "Dining"})
			require.Error(t, err)
			assert.Equal(t, tt.retryable, common.IsRetryable(err))
		})
	}
}

func TestPushRejectsUnverifiedTransaction(t *testing.T) {
	appender := &stubAppender{updatedRange: "Transactions!A1:G1"}
	pusher := testPusher(appender)

	_, err := pusher.Push(context.Background(), &model.Transaction{ID: "abc123"})
	require.Error(t, err)
	assert.False(t, common.IsRetryable(err))
	assert.Contains(t, err.Error(), "no verified category")
	assert.Nil(t, appender.gotRow)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name: "service account",
			config: Config{
				ServiceAccountPath: "/tmp/key.json",
				SpreadsheetID:      "id",
				SheetName:          "Transactions",
			},
		},
		{
			name: "oauth",
			config: Config{
				ClientID:      "id",
				ClientSecret:  "secret",
				RefreshToken:  "token",
				SpreadsheetID: "sheet",
				SheetName:     "Transactions",
			},
		},
		{
			name:    "no auth",
			config:  Config{SpreadsheetID: "sheet", SheetName: "Transactions"},
			wantErr: "no authentication method",
		},
		{
			name: "both auth methods",
			config: Config{
				ClientID:           "id",
				ClientSecret:       "secret",
				RefreshToken:       "token",
				ServiceAccountPath: "/tmp/key.json",
				SpreadsheetID:      "sheet",
				SheetName:          "Transactions",
			},
			wantErr: "multiple authentication methods",
		},
		{
			name: "missing spreadsheet",
			config: Config{
				ServiceAccountPath: "/tmp/key.json",
				SheetName:          "Transactions",
			},
			wantErr: "spreadsheet ID is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromEnvFillsUnsetFields(t *testing.T) {
	t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "env-id")
	t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "env-secret")
	t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "env-token")
	t.Setenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "env-sheet")
	t.Setenv("GOOGLE_SHEETS_SHEET_NAME", "Ledger")

	// Pre-set fields win over the environment.
	config := Config{ClientID: "flag-id"}
	config.LoadFromEnv()

	assert.Equal(t, "flag-id", config.ClientID)
	assert.Equal(t, "env-secret", config.ClientSecret)
	assert.Equal(t, "env-token", config.RefreshToken)
	assert.Equal(t, "env-sheet", config.SpreadsheetID)
	assert.Equal(t, "Ledger", config.SheetName)
	assert.NoError(t, config.Validate())
}
