package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/backend/internal/domain"
)

func strPtr(s string) *string { return &s }

func fixture(id, name, normalized string, category *string, updated time.Time) domain.CanonicalProduct {
	return domain.CanonicalProduct{
		ID:             id,
		Name:           name,
		NormalizedName: normalized,
		Category:       category,
		CreatedAt:      updated,
		UpdatedAt:      updated,
	}
}

func TestTextSearch(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	store := NewStore()
	store.Seed(
		fixture("1", "Grace Macaroni", "grace macaroni", strPtr("Pasta"), base),
		fixture("2", "Macaroni Cheese Sauce", "macaroni cheese sauce", strPtr("Sauce"), base.Add(time.Hour)),
		fixture("3", "Grace Ketchup", "grace ketchup", strPtr("Condiments"), base),
	)

	t.Run("whole word matches are scored", func(t *testing.T) {
		got, err := store.TextSearch(ctx, "macaroni", domain.CatalogFilter{}, 10)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("prefixes do not match", func(t *testing.T) {
		got, err := store.TextSearch(ctx, "maca", domain.CatalogFilter{}, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("more matching fields rank higher", func(t *testing.T) {
		got, err := store.TextSearch(ctx, "grace ketchup", domain.CatalogFilter{}, 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "3", got[0].ID)
	})

	t.Run("stop words alone match nothing", func(t *testing.T) {
		got, err := store.TextSearch(ctx, "the and of", domain.CatalogFilter{}, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("filters combine with the text match", func(t *testing.T) {
		got, err := store.TextSearch(ctx, "macaroni", domain.CatalogFilter{Category: "sauce"}, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "2", got[0].ID)
	})
}

func TestRegexSearchAndList(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	store := NewStore()
	old := fixture("old", "Grace Macaroni", "grace macaroni", nil, base)
	recent := fixture("new", "Macaroni Cheese", "macaroni cheese", nil, base.Add(time.Hour))
	recent.Tags = []string{"pasta"}
	recent.LocationPrices = []domain.PriceObservation{{LocationID: "store-a", Amount: domain.NewAmount(100)}}
	legacy := fixture("legacy", "Rice", "rice", nil, base.Add(2*time.Hour))
	legacy.Legacy = &domain.LegacyListing{StoreID: "store-a", StoreName: "A", Price: domain.NewAmount(50)}
	store.Seed(old, recent, legacy)

	t.Run("substring match ordered by most recent update", func(t *testing.T) {
		got, err := store.RegexSearch(ctx, "MACA", domain.CatalogFilter{}, 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "new", got[0].ID)
		assert.Equal(t, "old", got[1].ID)
	})

	t.Run("regex metacharacters are literal", func(t *testing.T) {
		got, err := store.RegexSearch(ctx, "maca.*", domain.CatalogFilter{}, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("tag filter", func(t *testing.T) {
		got, err := store.List(ctx, domain.CatalogFilter{Tag: "pasta"}, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "new", got[0].ID)
	})

	t.Run("store filter covers legacy products", func(t *testing.T) {
		got, err := store.List(ctx, domain.CatalogFilter{StoreID: "store-a"}, 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "legacy", got[0].ID)
	})

	t.Run("limit", func(t *testing.T) {
		got, err := store.List(ctx, domain.CatalogFilter{}, 1)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestInsertAndUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	id, err := store.Insert(ctx, &domain.CanonicalProduct{Name: "Rice", NormalizedName: "rice", MatchKey: "k1"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	t.Run("duplicate match key is rejected", func(t *testing.T) {
		_, err := store.Insert(ctx, &domain.CanonicalProduct{Name: "Rice", NormalizedName: "rice", MatchKey: "k1"})
		assert.ErrorIs(t, err, domain.ErrDuplicateMatchKey)
	})

	t.Run("update writes only the given fields", func(t *testing.T) {
		now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
		err := store.Update(ctx, id, domain.ProductUpdate{Brand: strPtr("Grace"), UpdatedAt: now})
		require.NoError(t, err)

		got, err := store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Grace", *got.Brand)
		assert.Equal(t, "k1", got.MatchKey)
		assert.Equal(t, now, got.UpdatedAt)
	})

	t.Run("returned products are copies", func(t *testing.T) {
		got, err := store.FindByID(ctx, id)
		require.NoError(t, err)
		*got.Brand = "Changed"

		again, err := store.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Grace", *again.Brand)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := store.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
		assert.ErrorIs(t, store.Update(ctx, "missing", domain.ProductUpdate{}), domain.ErrProductNotFound)
	})
}

func TestInsert_KeepsEmptySlices(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	id, err := store.Insert(ctx, &domain.CanonicalProduct{
		Name:           "Rice",
		NormalizedName: "rice",
		Tags:           []string{},
		Aliases:        []string{},
		LocationPrices: []domain.PriceObservation{},
	})
	require.NoError(t, err)

	got, err := store.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{}, got.Aliases)
	assert.Equal(t, []string{}, got.Tags)
	assert.Equal(t, []domain.PriceObservation{}, got.LocationPrices)
	assert.Nil(t, got.Embedding)
}

func TestFindByNormalizedName(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	branded := fixture("branded", "Rice", "rice", nil, time.Now())
	branded.Brand = strPtr("Grace")
	store.Seed(branded)

	t.Run("matches same brand", func(t *testing.T) {
		got, err := store.FindByNormalizedName(ctx, "rice", strPtr("Grace"))
		require.NoError(t, err)
		assert.Equal(t, "branded", got.ID)
	})

	t.Run("different brand does not match", func(t *testing.T) {
		_, err := store.FindByNormalizedName(ctx, "rice", strPtr("Lasco"))
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})

	t.Run("no brand constraint", func(t *testing.T) {
		got, err := store.FindByNormalizedName(ctx, "rice", nil)
		require.NoError(t, err)
		assert.Equal(t, "branded", got.ID)
	})

	t.Run("unbranded record matches any brand", func(t *testing.T) {
		store.Seed(fixture("plain", "Flour", "flour", nil, time.Now()))
		got, err := store.FindByNormalizedName(ctx, "flour", strPtr("Lasco"))
		require.NoError(t, err)
		assert.Equal(t, "plain", got.ID)
	})
}

func TestAggregations(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	a := fixture("a", "Panadol Baby", "panadol baby", strPtr("Baby & Infant,Medicine"), time.Now())
	a.LocationPrices = []domain.PriceObservation{
		{LocationID: "x", StoreName: "Store X"},
		{LocationID: "y", StoreName: "Store Y"},
	}
	b := fixture("b", "Cough Syrup", "cough syrup", strPtr(" Medicine "), time.Now())
	b.Legacy = &domain.LegacyListing{StoreID: "x", StoreName: "Store X"}
	store.Seed(a, b)

	t.Run("categories are split and counted", func(t *testing.T) {
		got, err := store.CategoryCounts(ctx, 20)
		require.NoError(t, err)
		assert.Equal(t, []domain.CategoryCount{
			{Category: "Medicine", Count: 2},
			{Category: "Baby & Infant", Count: 1},
		}, got)
	})

	t.Run("store summaries include legacy listings", func(t *testing.T) {
		got, err := store.StoreSummaries(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.StoreSummary{
			{StoreID: "x", StoreName: "Store X", ProductCount: 2},
			{StoreID: "y", StoreName: "Store Y", ProductCount: 1},
		}, got)
	})
}

func TestVisibilityAndBarcodes(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	store.SetStoreVisibility("x", false)
	hidden, err := store.HiddenStoreIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, hidden, "x")

	store.SetStoreVisibility("x", true)
	hidden, err = store.HiddenStoreIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, hidden)

	require.NoError(t, store.LinkBarcode(ctx, domain.BarcodeMapping{Barcode: "123", ProductID: "p1"}))
	m, err := store.FindBarcode(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, "p1", m.ProductID)

	removed, err := store.UnlinkBarcode(ctx, "123")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.UnlinkBarcode(ctx, "123")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = store.FindBarcode(ctx, "123")
	assert.ErrorIs(t, err, domain.ErrBarcodeNotFound)
}
