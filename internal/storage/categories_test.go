package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennyworth-dev/pennyworth/internal/common"
)

func TestMigrateSeedsDefaultTaxonomy(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	cats, err := store.GetCategories(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, cats)

	names := make(map[string]bool, len(cats))
	for _, cat := range cats {
		names[cat.Name] = true
		assert.True(t, cat.IsActive)
	}
	for _, want := range []string{"Income", "Groceries", "Dining", "Transportation", "Miscellaneous"} {
		assert.True(t, names[want], "missing seeded category %q", want)
	}

	// Seeded labels behave like user-created ones: creating one again is a
	// no-op and re-running migrations does not resurrect a retired label.
	dining, err := store.CreateCategory(ctx, "Dining", "")
	require.NoError(t, err)
	require.NoError(t, store.RetireCategory(ctx, dining.Name))
	require.NoError(t, store.Migrate(ctx))
	_, err = store.GetCategoryByName(ctx, "Dining")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreateAndRetireCategory(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	cat, err := store.CreateCategory(ctx, "Subscriptions", "Recurring services")
	require.NoError(t, err)
	assert.Equal(t, "Subscriptions", cat.Name)
	assert.True(t, cat.IsActive)

	require.NoError(t, store.RetireCategory(ctx, "Subscriptions"))

	// Retired categories leave the active taxonomy.
	_, err = store.GetCategoryByName(ctx, "Subscriptions")
	assert.ErrorIs(t, err, common.ErrNotFound)

	cats, err := store.GetCategories(ctx)
	require.NoError(t, err)
	for _, c := range cats {
		assert.NotEqual(t, "Subscriptions", c.Name)
	}
}

func TestCreateCategoryReactivatesRetired(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	first, err := store.CreateCategory(ctx, "Travel", "")
	require.NoError(t, err)
	require.NoError(t, store.RetireCategory(ctx, "Travel"))

	second, err := store.CreateCategory(ctx, "Travel", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.IsActive)
}

func TestRetireUnknownCategory(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	err := store.RetireCategory(context.Background(), "Nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
