package classify

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennyworth-dev/pennyworth/internal/common"
	"github.com/pennyworth-dev/pennyworth/internal/feature"
	"github.com/pennyworth-dev/pennyworth/internal/model"
)

func trainingExamples(t *testing.T) []Example {
	t.Helper()
	e := feature.NewExtractor()

	rows := []struct {
		description string
		amount      string
		label       string
	}{
		{"COFFEE SHOP DOWNTOWN", "-4.50", "Dining"},
		{"COFFEE ROASTERS", "-6.25", "Dining"},
		{"BURGER PALACE", "-12.80", "Dining"},
		{"PIZZA EXPRESS", "-18.00", "Dining"},
		{"ACME CORP PAYROLL", "2500.00", "Income"},
		{"ACME CORP PAYROLL", "2500.00", "Income"},
		{"TAX REFUND TREASURY", "740.00", "Income"},
		{"GROCERY MART", "-85.12", "Groceries"},
		{"GROCERY MART WEEKLY", "-92.30", "Groceries"},
		{"FARMERS MARKET", "-31.00", "Groceries"},
	}

	examples := make([]Example, 0, len(rows))
	for i, row := range rows {
		txn := &model.Transaction{
			Date:        time.Date(2024, 1, 1+i%28, 0, 0, 0, 0, time.UTC),
			Description: row.description,
			Amount:      decimal.RequireFromString(row.amount),
			Account:     "chk",
		}
		examples = append(examples, Example{Label: row.label, Vector: e.Extract(txn)})
	}
	return examples
}

func TestFitAndPredict(t *testing.T) {
	nb, err := Fit(trainingExamples(t))
	require.NoError(t, err)

	e := feature.NewExtractor()
	coffee := e.Extract(&model.Transaction{
		Date:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Description: "COFFEE SHOP",
		Amount:      decimal.RequireFromString("-5.00"),
		Account:     "chk",
	})

	category, confidence := nb.Predict(coffee)
	assert.Equal(t, "Dining", category)
	assert.Greater(t, confidence, 0.0)
	assert.LessOrEqual(t, confidence, 1.0)
}

func TestFitRequiresTwoCategories(t *testing.T) {
	e := feature.NewExtractor()
	txn := &model.Transaction{
		Date:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Description: "COFFEE",
		Amount:      decimal.RequireFromString("-1.00"),
		Account:     "chk",
	}

	_, err := Fit([]Example{{Label: "Dining", Vector: e.Extract(txn)}})
	require.Error(t, err)
}

func TestPredictionsStayInTrainedTaxonomy(t *testing.T) {
	examples := trainingExamples(t)
	nb, err := Fit(examples)
	require.NoError(t, err)

	trained := map[string]bool{}
	for _, ex := range examples {
		trained[ex.Label] = true
	}

	e := feature.NewExtractor()
	unseen := []string{"QUANTUM WIDGETS LLC", "ZZZ UNKNOWN VENDOR", "A1B2C3"}
	for _, desc := range unseen {
		vec := e.Extract(&model.Transaction{
			Date:        time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
			Description: desc,
			Amount:      decimal.RequireFromString("-10.00"),
			Account:     "chk",
		})
		category, _ := nb.Predict(vec)
		assert.True(t, trained[category], "predicted %q outside trained taxonomy", category)
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	nb, err := Fit(trainingExamples(t))
	require.NoError(t, err)

	data, err := nb.Marshal()
	require.NoError(t, err)

	loaded, err := UnmarshalArtifact(data)
	require.NoError(t, err)

	e := feature.NewExtractor()
	vec := e.Extract(&model.Transaction{
		Date:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Description: "GROCERY MART",
		Amount:      decimal.RequireFromString("-70.00"),
		Account:     "chk",
	})

	wantCat, wantConf := nb.Predict(vec)
	gotCat, gotConf := loaded.Predict(vec)
	assert.Equal(t, wantCat, gotCat)
	assert.InDelta(t, wantConf, gotConf, 1e-9)
}

func TestClassifierWithoutActiveModel(t *testing.T) {
	c := New(0.7)
	assert.Nil(t, c.Active())

	e := feature.NewExtractor()
	vec := e.Extract(&model.Transaction{
		Date:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Description: "COFFEE",
		Amount:      decimal.RequireFromString("-1.00"),
		Account:     "chk",
	})

	_, err := c.Predict(vec)
	assert.ErrorIs(t, err, common.ErrNoActiveModel)
}

func TestClassifierSchemaMismatch(t *testing.T) {
	nb, err := Fit(trainingExamples(t))
	require.NoError(t, err)

	c := New(0.7)
	c.Promote(model.ModelInfo{Version: 1, FeatureSchemaVersion: feature.SchemaVersion}, nb)

	stale := feature.Vector{Weights: map[int]float64{0: 1}, SchemaVersion: feature.SchemaVersion + 1}
	_, err = c.Predict(stale)
	assert.ErrorIs(t, err, common.ErrSchemaMismatch)
}

func TestClassifierPromoteSwapsAtomically(t *testing.T) {
	nb, err := Fit(trainingExamples(t))
	require.NoError(t, err)

	c := New(0.7)
	c.Promote(model.ModelInfo{Version: 1, FeatureSchemaVersion: feature.SchemaVersion}, nb)
	require.Equal(t, 1, c.Active().Version)

	c.Promote(model.ModelInfo{Version: 2, FeatureSchemaVersion: feature.SchemaVersion}, nb)
	assert.Equal(t, 2, c.Active().Version)

	e := feature.NewExtractor()
	vec := e.Extract(&model.Transaction{
		Date:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Description: "COFFEE SHOP",
		Amount:      decimal.RequireFromString("-3.00"),
		Account:     "chk",
	})

	pred, err := c.Predict(vec)
	require.NoError(t, err)
	assert.Equal(t, 2, pred.ModelVersion)
}

func TestLowConfidenceFlagsReview(t *testing.T) {
	nb, err := Fit(trainingExamples(t))
	require.NoError(t, err)

	// A threshold of 1.0 forces every prediction into review.
	c := New(1.0)
	c.Promote(model.ModelInfo{Version: 1, FeatureSchemaVersion: feature.SchemaVersion}, nb)

	e := feature.NewExtractor()
	vec := e.Extract(&model.Transaction{
		Date:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Description: "AMBIGUOUS VENDOR",
		Amount:      decimal.RequireFromString("-3.00"),
		Account:     "chk",
	})

	pred, err := c.Predict(vec)
	require.NoError(t, err)
	assert.NotEmpty(t, pred.Category)
	assert.True(t, pred.NeedsReview)
}
