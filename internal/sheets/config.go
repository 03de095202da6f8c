// Package sheets pushes finalized transactions to a Google Sheets ledger.
package sheets

import (
	"fmt"
	"os"

	"github.com/pennyworth-dev/pennyworth/internal/common"
)

// Config holds the configuration for the Google Sheets pusher.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	SpreadsheetID      string
	SheetName          string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SheetName: "Transactions",
	}
}

// LoadFromEnv fills any unset fields from GOOGLE_SHEETS_* environment
// variables. Values already present (from flags or the config file) win.
func (c *Config) LoadFromEnv() {
	fillFromEnv(&c.ClientID, "GOOGLE_SHEETS_CLIENT_ID")
	fillFromEnv(&c.ClientSecret, "GOOGLE_SHEETS_CLIENT_SECRET")
	fillFromEnv(&c.RefreshToken, "GOOGLE_SHEETS_REFRESH_TOKEN")
	fillFromEnv(&c.ServiceAccountPath, "GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")
	fillFromEnv(&c.SpreadsheetID, "GOOGLE_SHEETS_SPREADSHEET_ID")
	fillFromEnv(&c.SheetName, "GOOGLE_SHEETS_SHEET_NAME")
}

func fillFromEnv(field *string, key string) {
	if *field == "" {
		*field = os.Getenv(key)
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	hasServiceAccount := c.ServiceAccountPath != ""

	if !hasOAuth && !hasServiceAccount {
		return fmt.Errorf("%w: no authentication method configured, provide either service account path or OAuth2 credentials", common.ErrMissingConfig)
	}
	if hasOAuth && hasServiceAccount {
		return fmt.Errorf("%w: multiple authentication methods configured, use either OAuth2 or service account", common.ErrInvalidConfig)
	}
	if c.SpreadsheetID == "" {
		return fmt.Errorf("%w: spreadsheet ID is required", common.ErrMissingConfig)
	}
	if c.SheetName == "" {
		return fmt.Errorf("%w: sheet name is required", common.ErrMissingConfig)
	}
	return nil
}
