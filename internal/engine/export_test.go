package engine

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennyworth-dev/pennyworth/internal/model"
)

func TestExportCSV(t *testing.T) {
	eng, store := setupEngineTest(t)
	ctx := context.Background()

	_, err := eng.Ingest(ctx, strings.NewReader(threeRowCSV), testMapping())
	require.NoError(t, err)

	_, err = store.CreateCategory(ctx, "Dining", "")
	require.NoError(t, err)

	txns, err := store.GetTransactionsToPredict(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, txns)
	require.NoError(t, store.RecordVerification(ctx, txns[0].ID, "Dining"))

	var buf bytes.Buffer
	count, err := eng.ExportCSV(ctx, &buf, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // header plus two rows
	assert.Equal(t, "date", records[0][0])

	// Filtering by status narrows the export.
	buf.Reset()
	verified := model.StatusVerified
	count, err = eng.ExportCSV(ctx, &buf, &verified)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	records, err = csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Dining", records[1][4])
	assert.Equal(t, "verified", records[1][7])
}
