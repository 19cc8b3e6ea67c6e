package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/memory"
	"github.com/pricelens/backend/internal/matchkey"
	"github.com/pricelens/backend/internal/normalize"
)

func entry(name, storeID string, price float64) domain.ManualEntry {
	return domain.ManualEntry{Name: name, StoreID: storeID, StoreName: "Store " + storeID, Price: &price}
}

func TestUpsertManualEntry_MergeVersusCreate(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	s := newResolver(store, ResolutionServiceConfig{})

	first, err := s.UpsertManualEntry(ctx, entry("Grace Ketchup", "A", 350))
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := s.UpsertManualEntry(ctx, entry("Grace Ketchup", "A", 360))
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.ProductID, second.ProductID)

	assert.Equal(t, 1, store.Len())
	p, err := store.FindByID(ctx, first.ProductID)
	require.NoError(t, err)
	require.Len(t, p.LocationPrices, 1)
	amount, ok := p.LocationPrices[0].Amount.Float64()
	assert.True(t, ok)
	assert.Equal(t, 360.0, amount)
	assert.Equal(t, 360.0, *p.EstimatedPrice)
	assert.True(t, p.UpdatedAt.After(p.CreatedAt))
}

func TestUpsertManualEntry_UnicodeSpacesMerge(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	s := newResolver(store, ResolutionServiceConfig{})

	first, err := s.UpsertManualEntry(ctx, entry("Grace Ketchup", "A", 350))
	require.NoError(t, err)
	second, err := s.UpsertManualEntry(ctx, entry("Grace\u00a0Ketchup", "B", 370))
	require.NoError(t, err)

	assert.False(t, second.Created)
	assert.Equal(t, first.ProductID, second.ProductID)
	assert.Equal(t, 1, store.Len())
}

func TestUpsertManualEntry_MultiStoreAggregation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	s := newResolver(store, ResolutionServiceConfig{})

	a, err := s.UpsertManualEntry(ctx, entry("Grace Ketchup", "A", 100))
	require.NoError(t, err)
	b, err := s.UpsertManualEntry(ctx, entry("Grace Ketchup", "B", 200))
	require.NoError(t, err)
	assert.Equal(t, a.ProductID, b.ProductID)

	p, err := store.FindByID(ctx, a.ProductID)
	require.NoError(t, err)
	assert.Len(t, p.LocationPrices, 2)
	assert.Equal(t, 150.0, *p.EstimatedPrice)

	t.Run("estimate is rounded to two decimals", func(t *testing.T) {
		_, err := s.UpsertManualEntry(ctx, entry("Grace Ketchup", "C", 100.01))
		require.NoError(t, err)
		p, err := store.FindByID(ctx, a.ProductID)
		require.NoError(t, err)
		assert.Equal(t, 133.34, *p.EstimatedPrice)
	})
}

func TestUpsertManualEntry_CreatedProduct(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	s := newResolver(store, ResolutionServiceConfig{})

	e := entry("  Grace Ketchup 6x330ml ", "A", 350)
	e.Brand = " Grace "
	e.Category = "Condiments"
	e.Currency = "usd"
	res, err := s.UpsertManualEntry(ctx, e)
	require.NoError(t, err)

	p, err := store.FindByID(ctx, res.ProductID)
	require.NoError(t, err)
	assert.Equal(t, "Grace Ketchup 6x330ml", p.Name)
	assert.Equal(t, "grace ketchup 6x330ml", p.NormalizedName)
	assert.Equal(t, "Grace", *p.Brand)
	assert.Equal(t, []string{"condiments"}, p.Tags)
	assert.Equal(t, []string{}, p.Aliases)
	assert.Equal(t, 330.0, *p.Size.Value)
	assert.Equal(t, 6, *p.Size.PackCount)
	assert.Equal(t, matchkey.Build("grace ketchup 6x330ml", ptr("Grace"), p.Size), p.MatchKey)
	assert.Equal(t, matchkey.Checksum("A", "grace ketchup 6x330ml", ptr("Grace"), p.Size), p.Checksum)
	assert.Equal(t, "USD", p.LocationPrices[0].Currency)
	assert.Equal(t, "Store A", p.LocationPrices[0].StoreName)
	assert.Equal(t, 350.0, *p.EstimatedPrice)
	assert.Nil(t, p.Embedding)
}

func TestUpsertManualEntry_Validation(t *testing.T) {
	s := newResolver(untouchedStore{}, ResolutionServiceConfig{})

	testCases := []struct {
		name  string
		entry domain.ManualEntry
		field string
	}{
		{name: "missing name", entry: entry("   ", "A", 100), field: "name"},
		{name: "missing price with store", entry: domain.ManualEntry{Name: "Rice", StoreID: "A"}, field: "price"},
		{name: "zero price", entry: entry("Rice", "A", 0), field: "price"},
		{name: "negative price", entry: entry("Rice", "A", -5), field: "price"},
		{name: "malformed currency", entry: domain.ManualEntry{Name: "Rice", StoreID: "A", Price: ptr(10.0), Currency: "JMDX"}, field: "currency"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.UpsertManualEntry(context.Background(), tc.entry)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)

			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestUpsertManualEntry_FallbackMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("legacy record is merged and repaired", func(t *testing.T) {
		store := memory.NewStore()
		store.Seed(domain.CanonicalProduct{
			ID:             "legacy",
			Name:           "Grace Ketchup",
			NormalizedName: "grace ketchup",
			URL:            ptr("manual://grace-ketchup"),
			Legacy:         &domain.LegacyListing{StoreID: "L", StoreName: "Legacy Store", Price: domain.NewAmount(90)},
		})
		s := newResolver(store, ResolutionServiceConfig{})

		e := entry("Grace Ketchup", "A", 110)
		e.Brand = "Grace"
		e.Category = "Condiments"
		e.URL = "https://shop.example/grace-ketchup"
		res, err := s.UpsertManualEntry(ctx, e)
		require.NoError(t, err)
		assert.Equal(t, domain.Resolution{ProductID: "legacy", Created: false}, res)

		p, err := store.FindByID(ctx, "legacy")
		require.NoError(t, err)
		assert.Nil(t, p.Legacy)
		require.Len(t, p.LocationPrices, 2)
		assert.Equal(t, "L", p.LocationPrices[0].LocationID)
		assert.Equal(t, domain.DefaultCurrency, p.LocationPrices[0].Currency)
		assert.Equal(t, "A", p.LocationPrices[1].LocationID)
		assert.Equal(t, 100.0, *p.EstimatedPrice)
		assert.Equal(t, "Grace", *p.Brand)
		assert.Equal(t, "Condiments", *p.Category)
		assert.Equal(t, []string{"condiments"}, p.Tags)
		assert.Equal(t, "https://shop.example/grace-ketchup", *p.URL)
		assert.NotEmpty(t, p.MatchKey)
		assert.NotEmpty(t, p.Checksum)

		// The repaired record is now found by match key.
		again, err := s.UpsertManualEntry(ctx, func() domain.ManualEntry {
			e := entry("Grace Ketchup", "B", 120)
			e.Brand = "Grace"
			return e
		}())
		require.NoError(t, err)
		assert.Equal(t, "legacy", again.ProductID)
	})

	t.Run("conflicting brand creates a new product", func(t *testing.T) {
		store := memory.NewStore()
		store.Seed(domain.CanonicalProduct{ID: "heinz", Name: "Ketchup", NormalizedName: "ketchup", Brand: ptr("Heinz")})
		s := newResolver(store, ResolutionServiceConfig{})

		e := entry("Ketchup", "A", 100)
		e.Brand = "Grace"
		res, err := s.UpsertManualEntry(ctx, e)
		require.NoError(t, err)
		assert.True(t, res.Created)
		assert.NotEqual(t, "heinz", res.ProductID)
		assert.Equal(t, 2, store.Len())
	})

	t.Run("unbranded listing merges into a branded product", func(t *testing.T) {
		store := memory.NewStore()
		store.Seed(domain.CanonicalProduct{ID: "heinz", Name: "Ketchup", NormalizedName: "ketchup", Brand: ptr("Heinz"), MatchKey: "other"})
		s := newResolver(store, ResolutionServiceConfig{})

		res, err := s.UpsertManualEntry(ctx, entry("Ketchup", "A", 100))
		require.NoError(t, err)
		assert.Equal(t, "heinz", res.ProductID)
	})
}

func TestUpsertManualEntry_MetadataBackfill(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.Seed(domain.CanonicalProduct{
		ID:             "p1",
		Name:           "Rice",
		NormalizedName: "rice",
		Brand:          ptr("Lasco"),
		Category:       ptr("Grains"),
		Tags:           []string{"grains"},
		URL:            ptr("https://first.example/rice"),
		ImageURL:       ptr("https://first.example/rice.png"),
		LocationPrices: []domain.PriceObservation{{LocationID: "A", Amount: domain.NewAmount(100), Currency: "JMD"}},
	})
	s := newResolver(store, ResolutionServiceConfig{})

	e := entry("Rice", "B", 120)
	e.Brand = "Lasco"
	e.Category = "Pantry"
	e.URL = "https://second.example/rice"
	e.ImageURL = "https://second.example/rice.png"
	_, err := s.UpsertManualEntry(ctx, e)
	require.NoError(t, err)

	p, err := store.FindByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Grains", *p.Category)
	assert.Equal(t, []string{"grains"}, p.Tags)
	assert.Equal(t, "https://first.example/rice", *p.URL)
	assert.Equal(t, "https://first.example/rice.png", *p.ImageURL)
	assert.Equal(t, 110.0, *p.EstimatedPrice)
}

func TestUpsertManualEntry_SizeHint(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	s := newResolver(store, ResolutionServiceConfig{})

	e := entry("Malta 500g", "A", 100)
	e.SizeHint = "6x330ml"
	res, err := s.UpsertManualEntry(ctx, e)
	require.NoError(t, err)

	p, err := store.FindByID(ctx, res.ProductID)
	require.NoError(t, err)
	assert.Equal(t, normalize.ParseSize("6x330ml"), p.Size)

	t.Run("different size creates a separate product", func(t *testing.T) {
		other := entry("Malta", "A", 100)
		other.SizeHint = "12x330ml"
		res2, err := s.UpsertManualEntry(ctx, other)
		require.NoError(t, err)
		// "malta" differs from "malta 500g" so the name fallback does not apply either.
		assert.True(t, res2.Created)
	})
}

func TestUpsertManualEntry_DuplicateKeyRetriesAsMerge(t *testing.T) {
	ctx := context.Background()
	backing := memory.NewStore()
	s := newResolver(backing, ResolutionServiceConfig{})
	first, err := s.UpsertManualEntry(ctx, entry("Grace Ketchup", "A", 100))
	require.NoError(t, err)

	racing := newResolver(&racingStore{Store: backing}, ResolutionServiceConfig{})
	res, err := racing.UpsertManualEntry(ctx, entry("Grace Ketchup", "B", 200))
	require.NoError(t, err)
	assert.Equal(t, domain.Resolution{ProductID: first.ProductID, Created: false}, res)

	p, err := backing.FindByID(ctx, first.ProductID)
	require.NoError(t, err)
	assert.Len(t, p.LocationPrices, 2)
	assert.Equal(t, 1, backing.Len())
}

func TestUpsertManualEntry_StoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()

	t.Run("lookup failure", func(t *testing.T) {
		s := newResolver(&faultyStore{Store: memory.NewStore(), matchKeyErr: errBackend}, ResolutionServiceConfig{})
		_, err := s.UpsertManualEntry(ctx, entry("Rice", "A", 100))
		assert.ErrorIs(t, err, errBackend)
	})

	t.Run("insert failure", func(t *testing.T) {
		s := newResolver(&faultyStore{Store: memory.NewStore(), insertErr: errBackend}, ResolutionServiceConfig{})
		_, err := s.UpsertManualEntry(ctx, entry("Rice", "A", 100))
		assert.ErrorIs(t, err, errBackend)
	})

	t.Run("update failure", func(t *testing.T) {
		backing := memory.NewStore()
		_, err := newResolver(backing, ResolutionServiceConfig{}).UpsertManualEntry(ctx, entry("Rice", "A", 100))
		require.NoError(t, err)

		s := newResolver(&faultyStore{Store: backing, updateErr: errBackend}, ResolutionServiceConfig{})
		_, err = s.UpsertManualEntry(ctx, entry("Rice", "B", 100))
		assert.ErrorIs(t, err, errBackend)
	})
}

func TestCreateProduct(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	s := newResolver(store, ResolutionServiceConfig{})

	first, err := s.UpsertManualEntry(ctx, domain.ManualEntry{Name: "Bulla Cake", Category: "Bakery", ImageURL: "https://img.example/bulla.png"})
	require.NoError(t, err)
	assert.True(t, first.Created)

	p, err := store.FindByID(ctx, first.ProductID)
	require.NoError(t, err)
	assert.Empty(t, p.LocationPrices)
	assert.Nil(t, p.EstimatedPrice)
	assert.Empty(t, p.MatchKey)
	assert.Equal(t, []string{"bakery"}, p.Tags)

	t.Run("deduplicated by normalized name", func(t *testing.T) {
		again, err := s.CreateProduct(ctx, domain.ProductDraft{Name: "  BULLA   Cake "})
		require.NoError(t, err)
		assert.Equal(t, domain.Resolution{ProductID: first.ProductID, Created: false}, again)
	})

	t.Run("later observation merges into it", func(t *testing.T) {
		res, err := s.UpsertManualEntry(ctx, entry("Bulla Cake", "A", 250))
		require.NoError(t, err)
		assert.Equal(t, first.ProductID, res.ProductID)

		p, err := store.FindByID(ctx, first.ProductID)
		require.NoError(t, err)
		assert.Len(t, p.LocationPrices, 1)
		assert.NotEmpty(t, p.MatchKey)
	})

	t.Run("name is required", func(t *testing.T) {
		_, err := s.CreateProduct(ctx, domain.ProductDraft{Name: " "})
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})
}

func TestUpsertManualEntry_Geocoding(t *testing.T) {
	ctx := context.Background()

	t.Run("fills coordinates from the address", func(t *testing.T) {
		store := memory.NewStore()
		geo := &mockGeo{location: &domain.StoreLocation{PlaceID: "place-1", Latitude: 18.01, Longitude: -76.79}}
		s := newResolver(store, ResolutionServiceConfig{Geo: geo})

		e := entry("Rice", "A", 100)
		e.Address = "1 Hope Rd, Kingston"
		res, err := s.UpsertManualEntry(ctx, e)
		require.NoError(t, err)

		p, err := store.FindByID(ctx, res.ProductID)
		require.NoError(t, err)
		obs := p.LocationPrices[0]
		assert.Equal(t, 18.01, *obs.Latitude)
		assert.Equal(t, -76.79, *obs.Longitude)
		assert.Equal(t, "place-1", obs.PlaceID)
	})

	t.Run("skips lookup when coordinates are given", func(t *testing.T) {
		geo := &mockGeo{location: &domain.StoreLocation{}}
		s := newResolver(memory.NewStore(), ResolutionServiceConfig{Geo: geo})

		e := entry("Rice", "A", 100)
		e.Address = "1 Hope Rd"
		e.Latitude = ptr(1.0)
		e.Longitude = ptr(2.0)
		_, err := s.UpsertManualEntry(ctx, e)
		require.NoError(t, err)
		assert.Equal(t, 0, geo.calls)
	})

	t.Run("lookup failure is not fatal", func(t *testing.T) {
		store := memory.NewStore()
		s := newResolver(store, ResolutionServiceConfig{Geo: &mockGeo{err: domain.ErrStoreNotFound}})

		e := entry("Rice", "A", 100)
		e.Address = "nowhere"
		res, err := s.UpsertManualEntry(ctx, e)
		require.NoError(t, err)

		p, err := store.FindByID(ctx, res.ProductID)
		require.NoError(t, err)
		assert.Nil(t, p.LocationPrices[0].Latitude)
	})
}

func TestUpsertManualEntry_Enrichment(t *testing.T) {
	ctx := context.Background()

	t.Run("new products are embedded and mirrored", func(t *testing.T) {
		store := memory.NewStore()
		embedder := &mockEmbedder{vector: []float64{0.1, 0.2}}
		vectors := &mockVectors{}
		mirror := &mockMirror{}
		s := newResolver(store, ResolutionServiceConfig{Embedder: embedder, Vectors: vectors, Mirror: mirror})

		e := entry("Rice", "A", 100)
		e.Brand = "Lasco"
		res, err := s.UpsertManualEntry(ctx, e)
		require.NoError(t, err)
		_, err = s.UpsertManualEntry(ctx, entry("Rice", "B", 120))
		require.NoError(t, err)

		assert.Equal(t, []string{"Rice Lasco"}, embedder.inputs)
		assert.Equal(t, []float64{0.1, 0.2}, vectors.added[res.ProductID])
		stored, err := store.ListEmbeddings(ctx)
		require.NoError(t, err)
		require.Len(t, stored, 1)

		require.Len(t, mirror.upserted, 2)
		assert.Len(t, mirror.upserted[1].LocationPrices, 2)
	})

	t.Run("enrichment failures are not fatal", func(t *testing.T) {
		s := newResolver(memory.NewStore(), ResolutionServiceConfig{
			Embedder: &mockEmbedder{err: errBackend},
			Vectors:  &mockVectors{},
			Mirror:   &mockMirror{err: errBackend},
		})

		res, err := s.UpsertManualEntry(ctx, entry("Rice", "A", 100))
		require.NoError(t, err)
		assert.True(t, res.Created)
	})
}

func TestPlanMerge_NonNumericAmounts(t *testing.T) {
	existing := &domain.CanonicalProduct{
		ID: "p1",
		LocationPrices: []domain.PriceObservation{
			{LocationID: "A", Amount: domain.ParseAmount("call for price")},
			{LocationID: "B", Amount: domain.ParseAmount("1,200")},
		},
	}
	l := prepareListing(entry("Rice", "C", 300), fixedClock()())

	update := planMerge(existing, l, fixedClock()())
	require.Len(t, update.LocationPrices, 3)
	assert.Equal(t, 750.0, *update.EstimatedPrice)
	assert.False(t, update.ClearLegacy)
	assert.Equal(t, l.matchKey, *update.MatchKey)
}

func TestEstimatePrice_NoNumericAmounts(t *testing.T) {
	assert.Nil(t, estimatePrice([]domain.PriceObservation{{Amount: domain.ParseAmount("n/a")}}))
	assert.Nil(t, estimatePrice(nil))
}
