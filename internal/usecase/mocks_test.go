package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/memory"
)

var errBackend = errors.New("connection refused")

func ptr[T any](v T) *T { return &v }

// fixedClock returns a time source that advances one second per call.
func fixedClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newResolver(store domain.ProductStore, config ResolutionServiceConfig) *ResolutionService {
	s := NewResolutionService(store, config, zerolog.Nop())
	s.now = fixedClock()
	return s
}

func newSearcher(store *memory.Store, config SearchServiceConfig) *SearchService {
	return newSearcherWith(store, store, config)
}

func newSearcherWith(products domain.ProductStore, visibility domain.VisibilityStore, config SearchServiceConfig) *SearchService {
	return NewSearchService(products, NewVisibilityProvider(visibility, nil, 0, zerolog.Nop()), config, zerolog.Nop())
}

// untouchedStore panics on any call; it proves an operation never reached the store.
type untouchedStore struct {
	domain.ProductStore
}

// faultyStore wraps a memory store and fails the operations given an error.
type faultyStore struct {
	*memory.Store

	findErr       error
	matchKeyErr   error
	insertErr     error
	updateErr     error
	textErr       error
	regexErr      error
	listErr       error
	categoriesErr error
	summariesErr  error
	ensureErr     error

	ensureCalls int
	textCalls   int
}

func (f *faultyStore) FindByID(ctx context.Context, id string) (*domain.CanonicalProduct, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.Store.FindByID(ctx, id)
}

func (f *faultyStore) FindByMatchKey(ctx context.Context, key string) (*domain.CanonicalProduct, error) {
	if f.matchKeyErr != nil {
		return nil, f.matchKeyErr
	}
	return f.Store.FindByMatchKey(ctx, key)
}

func (f *faultyStore) Insert(ctx context.Context, p *domain.CanonicalProduct) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	return f.Store.Insert(ctx, p)
}

func (f *faultyStore) Update(ctx context.Context, id string, update domain.ProductUpdate) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	return f.Store.Update(ctx, id, update)
}

func (f *faultyStore) TextSearch(ctx context.Context, q string, filter domain.CatalogFilter, limit int) ([]domain.CanonicalProduct, error) {
	f.textCalls++
	if f.textErr != nil {
		return nil, f.textErr
	}
	return f.Store.TextSearch(ctx, q, filter, limit)
}

func (f *faultyStore) RegexSearch(ctx context.Context, q string, filter domain.CatalogFilter, limit int) ([]domain.CanonicalProduct, error) {
	if f.regexErr != nil {
		return nil, f.regexErr
	}
	return f.Store.RegexSearch(ctx, q, filter, limit)
}

func (f *faultyStore) List(ctx context.Context, filter domain.CatalogFilter, limit int) ([]domain.CanonicalProduct, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Store.List(ctx, filter, limit)
}

func (f *faultyStore) CategoryCounts(ctx context.Context, limit int) ([]domain.CategoryCount, error) {
	if f.categoriesErr != nil {
		return nil, f.categoriesErr
	}
	return f.Store.CategoryCounts(ctx, limit)
}

func (f *faultyStore) StoreSummaries(ctx context.Context) ([]domain.StoreSummary, error) {
	if f.summariesErr != nil {
		return nil, f.summariesErr
	}
	return f.Store.StoreSummaries(ctx)
}

func (f *faultyStore) EnsureIndexes(ctx context.Context) error {
	f.ensureCalls++
	return f.ensureErr
}

// racingStore hides the first match key lookup, as if another writer inserted the
// product between the lookup and the insert.
type racingStore struct {
	*memory.Store
	hidden bool
}

func (r *racingStore) FindByMatchKey(ctx context.Context, key string) (*domain.CanonicalProduct, error) {
	if !r.hidden {
		r.hidden = true
		return nil, domain.ErrProductNotFound
	}
	return r.Store.FindByMatchKey(ctx, key)
}

func (r *racingStore) FindByNormalizedName(ctx context.Context, name string, brand *string) (*domain.CanonicalProduct, error) {
	return nil, domain.ErrProductNotFound
}

// failingVisibility always fails to load hidden stores.
type failingVisibility struct{}

func (failingVisibility) HiddenStoreIDs(ctx context.Context) (map[string]struct{}, error) {
	return nil, errBackend
}

// countingVisibility counts store reads.
type countingVisibility struct {
	hidden map[string]struct{}
	calls  int
}

func (c *countingVisibility) HiddenStoreIDs(ctx context.Context) (map[string]struct{}, error) {
	c.calls++
	return c.hidden, nil
}

type mockGeo struct {
	location *domain.StoreLocation
	stores   []domain.StoreLocation
	err      error
	calls    int
}

func (m *mockGeo) FindStoreByAddress(ctx context.Context, address string) (*domain.StoreLocation, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.location, nil
}

func (m *mockGeo) FindStoresByName(ctx context.Context, name string) ([]domain.StoreLocation, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.stores, nil
}

type mockEmbedder struct {
	vector []float64
	err    error
	inputs []string
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	m.inputs = append(m.inputs, text)
	if m.err != nil {
		return nil, m.err
	}
	return m.vector, nil
}

type mockVectors struct {
	added   map[string][]float64
	nearest []string
	err     error
}

func (m *mockVectors) Add(id string, vector []float64) {
	if m.added == nil {
		m.added = make(map[string][]float64)
	}
	m.added[id] = vector
}

func (m *mockVectors) Nearest(ctx context.Context, vector []float64, k int) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.nearest) > k {
		return m.nearest[:k], nil
	}
	return m.nearest, nil
}

func (m *mockVectors) Len() int { return len(m.added) }

type mockMirror struct {
	mu       sync.Mutex
	upserted []domain.ProductView
	ids      []string
	err      error
}

func (m *mockMirror) Upsert(ctx context.Context, product domain.ProductView) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, product)
	return m.err
}

func (m *mockMirror) Search(ctx context.Context, query string, filter domain.CatalogFilter, limit int) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.ids, nil
}

type mockCategorizer struct {
	mu         sync.Mutex
	categories []string
	err        error
	calls      int
	lastName   string
	lastBrand  string
}

func (m *mockCategorizer) Categorize(ctx context.Context, name, brand string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastName, m.lastBrand = name, brand
	return m.categories, m.err
}
