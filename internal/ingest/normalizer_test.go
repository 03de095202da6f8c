package ingest

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultMapping() ColumnMapping {
	return ColumnMapping{
		DateCol:        "Date",
		DescriptionCol: "Description",
		AmountCol:      "Amount",
		AccountLabel:   "chk",
	}
}

func TestNewNormalizerValidatesMapping(t *testing.T) {
	_, err := NewNormalizer(ColumnMapping{DateCol: "Date"})
	require.Error(t, err)

	_, err = NewNormalizer(defaultMapping())
	require.NoError(t, err)
}

func TestParseCanonicalizesRows(t *testing.T) {
	n, err := NewNormalizer(defaultMapping())
	require.NoError(t, err)

	csv := `Date,Description,Amount
2024-01-05,COFFEE SHOP,-4.50
2024-01-06,PAYCHECK,"2,500.00"
`
	result, err := n.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, result.Drafts, 2)
	assert.Empty(t, result.Errors)

	coffee := result.Drafts[0].Transaction
	assert.Equal(t, "COFFEE SHOP", coffee.Description)
	assert.True(t, coffee.Amount.Equal(decimal.RequireFromString("-4.50")))
	assert.Equal(t, "chk", coffee.Account)
	assert.NotEmpty(t, coffee.ID)

	paycheck := result.Drafts[1].Transaction
	assert.True(t, paycheck.Amount.Equal(decimal.RequireFromString("2500.00")))
}

func TestParseStableIDs(t *testing.T) {
	n, err := NewNormalizer(defaultMapping())
	require.NoError(t, err)

	csv := `Date,Description,Amount
2024-01-05,COFFEE SHOP,-4.50
2024-01-06,PAYCHECK,2500.00
2024-01-05,COFFEE SHOP,-4.50
`
	result, err := n.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, result.Drafts, 3)

	// The repeated statement row computes the same content hash.
	assert.Equal(t, result.Drafts[0].Transaction.ID, result.Drafts[2].Transaction.ID)
	assert.NotEqual(t, result.Drafts[0].Transaction.ID, result.Drafts[1].Transaction.ID)
}

func TestParseDateFormats(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2024-01-05", "2024-01-05"},
		{"01/05/2024", "2024-01-05"},
		{"2024/01/05", "2024-01-05"},
		{"05 Jan 2024", "2024-01-05"},
		{"Jan 5, 2024", "2024-01-05"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format("2006-01-02"))
		})
	}
}

func TestParseAmountNotations(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"-4.50", "-4.50"},
		{"$1,234.56", "1234.56"},
		{"€1.234,56", "1234.56"},
		{"(42.00)", "-42.00"},
		{"12,34", "12.34"},
		{"2,500", "2500"},
		{"+17.80", "17.80"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"got %s want %s", got, tt.want)
		})
	}
}

func TestParseTypeColumnSignConvention(t *testing.T) {
	mapping := defaultMapping()
	mapping.TypeCol = "Type"
	n, err := NewNormalizer(mapping)
	require.NoError(t, err)

	// Debits reported positive with a separate type column.
	csv := `Date,Description,Amount,Type
2024-01-05,COFFEE SHOP,4.50,DEBIT
2024-01-06,PAYCHECK,2500.00,CREDIT
`
	result, err := n.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, result.Drafts, 2)

	assert.True(t, result.Drafts[0].Transaction.Amount.IsNegative())
	assert.True(t, result.Drafts[1].Transaction.Amount.IsPositive())
}

func TestParseBankCategoryIsInformationalOnly(t *testing.T) {
	mapping := defaultMapping()
	mapping.CategoryCol = "Category"
	n, err := NewNormalizer(mapping)
	require.NoError(t, err)

	csv := `Date,Description,Amount,Category
2024-01-05,COFFEE SHOP,-4.50,Eating Out
`
	result, err := n.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, result.Drafts, 1)

	txn := result.Drafts[0].Transaction
	assert.Equal(t, "Eating Out", txn.BankCategory)
	assert.Empty(t, txn.VerifiedCategory)
	assert.Empty(t, txn.PredictedCategory)
}

func TestParseReportsBadRowsAndContinues(t *testing.T) {
	n, err := NewNormalizer(defaultMapping())
	require.NoError(t, err)

	csv := `Date,Description,Amount
not-a-date,COFFEE SHOP,-4.50
2024-01-06,PAYCHECK,2500.00
2024-01-07,,12.00
2024-01-08,SNACKS,abc
`
	result, err := n.Parse(strings.NewReader(csv))
	require.NoError(t, err)

	require.Len(t, result.Drafts, 1)
	assert.Equal(t, "PAYCHECK", result.Drafts[0].Transaction.Description)

	require.Len(t, result.Errors, 3)
	assert.Equal(t, 0, result.Errors[0].Row)
	assert.Contains(t, result.Errors[0].Reason, "date")
	assert.Equal(t, 2, result.Errors[1].Row)
	assert.Contains(t, result.Errors[1].Reason, "description")
	assert.Equal(t, 3, result.Errors[2].Row)
	assert.Contains(t, result.Errors[2].Reason, "amount")
}

func TestParseMissingRequiredColumnFailsBatch(t *testing.T) {
	n, err := NewNormalizer(defaultMapping())
	require.NoError(t, err)

	csv := `Date,Memo,Amount
2024-01-05,COFFEE SHOP,-4.50
`
	_, err = n.Parse(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Description")
}
