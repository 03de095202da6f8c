package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pennyworth-dev/pennyworth/internal/model"
)

// dateFormats are tried in order when parsing the date column.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
	"02 Jan 2006",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
}

// Draft is a parsed canonical transaction together with its source row.
type Draft struct {
	Transaction model.Transaction
	Row         int
}

// RowError reports a single row that failed to parse. The batch continues;
// partial success is the norm for bank exports.
type RowError struct {
	Reason string
	Row    int
}

// ParseResult holds the per-row outcome of normalizing one CSV upload.
type ParseResult struct {
	Drafts []Draft
	Errors []RowError
}

// Normalizer parses raw CSV bytes into canonical transaction drafts.
type Normalizer struct {
	mapping ColumnMapping
}

// NewNormalizer validates the column mapping and returns a normalizer.
func NewNormalizer(mapping ColumnMapping) (*Normalizer, error) {
	if err := mapping.Validate(); err != nil {
		return nil, err
	}
	return &Normalizer{mapping: mapping}, nil
}

// Parse reads CSV content and produces drafts plus per-row errors. A missing
// required column is structural and fails the whole batch; a bad field in one
// row only fails that row.
func (n *Normalizer) Parse(r io.Reader) (*ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols, err := n.resolveColumns(header)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{}
	for row := 0; ; row++ {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			result.Errors = append(result.Errors, RowError{Row: row, Reason: readErr.Error()})
			continue
		}

		draft, rowErr := n.parseRow(record, cols)
		if rowErr != "" {
			result.Errors = append(result.Errors, RowError{Row: row, Reason: rowErr})
			continue
		}
		result.Drafts = append(result.Drafts, Draft{Row: row, Transaction: *draft})
	}

	return result, nil
}

// columnIndexes holds resolved header positions; -1 means absent optional.
type columnIndexes struct {
	date        int
	description int
	amount      int
	category    int
	txnType     int
}

func (n *Normalizer) resolveColumns(header []string) (*columnIndexes, error) {
	find := func(name string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}

	cols := &columnIndexes{
		date:        find(n.mapping.DateCol),
		description: find(n.mapping.DescriptionCol),
		amount:      find(n.mapping.AmountCol),
		category:    -1,
		txnType:     -1,
	}
	if cols.date < 0 {
		return nil, fmt.Errorf("missing required column %q", n.mapping.DateCol)
	}
	if cols.description < 0 {
		return nil, fmt.Errorf("missing required column %q", n.mapping.DescriptionCol)
	}
	if cols.amount < 0 {
		return nil, fmt.Errorf("missing required column %q", n.mapping.AmountCol)
	}
	if n.mapping.CategoryCol != "" {
		cols.category = find(n.mapping.CategoryCol)
	}
	if n.mapping.TypeCol != "" {
		cols.txnType = find(n.mapping.TypeCol)
	}
	return cols, nil
}

func (n *Normalizer) parseRow(record []string, cols *columnIndexes) (*model.Transaction, string) {
	get := func(idx int) string {
		if idx < 0 || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	dateStr := get(cols.date)
	date, err := parseDate(dateStr)
	if err != nil {
		return nil, fmt.Sprintf("unparseable date %q", dateStr)
	}

	description := get(cols.description)
	if description == "" {
		return nil, "missing description"
	}

	amountStr := get(cols.amount)
	amount, err := parseAmount(amountStr)
	if err != nil {
		return nil, fmt.Sprintf("unparseable amount %q", amountStr)
	}

	// Some banks report debits as positive numbers with a separate type
	// column; normalize to negative = money out.
	if txnType := get(cols.txnType); txnType != "" {
		amount = applySignConvention(amount, txnType)
	}

	txn := model.Transaction{
		Date:         date,
		Description:  description,
		Amount:       amount,
		Account:      n.mapping.AccountLabel,
		BankCategory: get(cols.category),
		Status:       model.StatusPending,
	}
	txn.ID = txn.GenerateID()
	return &txn, ""
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}

// parseAmount tolerates currency symbols, thousands separators in both US and
// European notation, and accountant-style parenthesized negatives.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	var cleaned strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '-', r == '+', r == '.', r == ',':
			cleaned.WriteRune(r)
		}
	}
	s = cleaned.String()

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		// European notation: 1.234,56
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastComma >= 0 && lastDot < 0 && len(s)-lastComma-1 != 3:
		// Lone comma not grouping thousands: decimal comma.
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = strings.ReplaceAll(s, ",", "")
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

func applySignConvention(amount decimal.Decimal, txnType string) decimal.Decimal {
	switch strings.ToLower(txnType) {
	case "debit", "dr", "expense", "withdrawal", "out":
		return amount.Abs().Neg()
	case "credit", "cr", "income", "deposit", "in":
		return amount.Abs()
	default:
		return amount
	}
}
