// Package ingest normalizes raw bank CSV exports into canonical transaction
// drafts. Column layout is always declared explicitly; there is no reflective
// auto-detection to guess wrong silently.
package ingest

import (
	"fmt"

	"github.com/pennyworth-dev/pennyworth/internal/common"
)

// ColumnMapping declares which CSV columns hold the required fields.
// CategoryCol and TypeCol are optional: a bank-supplied category is stored as
// informational context only, and a type column adjusts the sign convention
// for banks that report debits as positive numbers.
type ColumnMapping struct {
	DateCol        string
	DescriptionCol string
	AmountCol      string
	AccountLabel   string
	CategoryCol    string
	TypeCol        string
}

// Validate checks the mapping before any row is parsed.
func (m *ColumnMapping) Validate() error {
	if m.DateCol == "" {
		return fmt.Errorf("%w: date column", common.ErrMissingConfig)
	}
	if m.DescriptionCol == "" {
		return fmt.Errorf("%w: description column", common.ErrMissingConfig)
	}
	if m.AmountCol == "" {
		return fmt.Errorf("%w: amount column", common.ErrMissingConfig)
	}
	if m.AccountLabel == "" {
		return fmt.Errorf("%w: account label", common.ErrMissingConfig)
	}
	return nil
}
