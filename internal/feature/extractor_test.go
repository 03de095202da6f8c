package feature

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennyworth-dev/pennyworth/internal/model"
)

func makeTxn(description, amount string) *model.Transaction {
	date, _ := time.Parse("2006-01-02", "2024-01-05")
	return &model.Transaction{
		Date:        date,
		Description: description,
		Amount:      decimal.RequireFromString(amount),
		Account:     "chk",
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	e := NewExtractor()
	txn := makeTxn("COFFEE SHOP DOWNTOWN", "-4.50")

	a := e.Extract(txn)
	b := e.Extract(txn)
	assert.Equal(t, a.Weights, b.Weights)
	assert.Equal(t, SchemaVersion, a.SchemaVersion)
}

func TestExtractSignConvention(t *testing.T) {
	e := NewExtractor()

	out := e.Extract(makeTxn("COFFEE SHOP", "-4.50"))
	assert.Equal(t, 1.0, out.Weights[bucketOutflow])
	assert.Zero(t, out.Weights[bucketInflow])

	in := e.Extract(makeTxn("PAYCHECK", "2500.00"))
	assert.Equal(t, 1.0, in.Weights[bucketInflow])
	assert.Zero(t, in.Weights[bucketOutflow])
	assert.Greater(t, in.Weights[bucketMagnitude], out.Weights[bucketMagnitude])
}

func TestExtractEmptyDescriptionUsesReservedBucket(t *testing.T) {
	e := NewExtractor()
	vec := e.Extract(makeTxn("***", "-1.00"))
	assert.Equal(t, 1.0, vec.Weights[unseenBucket])
}

func TestExtractCountsRepeatedTokens(t *testing.T) {
	e := NewExtractor()
	vec := e.Extract(makeTxn("uber uber", "-10.00"))

	bucket := hashBucket("uber")
	assert.Equal(t, 2.0, vec.Weights[bucket])
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"mixed case and punctuation", "COFFEE-SHOP #42", []string{"coffee", "shop", "42"}},
		{"collapses whitespace", "  two   words ", []string{"two", "words"}},
		{"symbols only", "***", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if tt.want == nil {
				require.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBucketsStayInRange(t *testing.T) {
	e := NewExtractor()
	vec := e.Extract(makeTxn("SOME VERY LONG MERCHANT DESCRIPTION WITH MANY WORDS", "-99.99"))
	for bucket := range vec.Weights {
		assert.GreaterOrEqual(t, bucket, 0)
		assert.Less(t, bucket, VectorSize)
	}
}
