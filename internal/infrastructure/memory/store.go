// Package memory is an in-process catalog store with the same contract as the MongoDB
// adapter. It backs development mode and the use-case tests.
package memory

import (
	"context"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pricelens/backend/internal/domain"
)

// Store is a thread-safe in-memory catalog of canonical products, store visibility
// settings and barcode mappings.
type Store struct {
	mu       sync.RWMutex
	products map[string]*domain.CanonicalProduct
	order    []string
	hidden   map[string]struct{}
	barcodes map[string]domain.BarcodeMapping
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		products: make(map[string]*domain.CanonicalProduct),
		hidden:   make(map[string]struct{}),
		barcodes: make(map[string]domain.BarcodeMapping),
	}
}

// Seed stores products as given, keeping their ids. Products without an id get one.
func (s *Store) Seed(products ...domain.CanonicalProduct) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range products {
		p := clone(&products[i])
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if _, exists := s.products[p.ID]; !exists {
			s.order = append(s.order, p.ID)
		}
		s.products[p.ID] = p
	}
}

// SetStoreVisibility marks a store as visible or hidden in public results.
func (s *Store) SetStoreVisibility(storeID string, visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if visible {
		delete(s.hidden, storeID)
		return
	}
	s.hidden[storeID] = struct{}{}
}

// Len returns the number of stored products.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.CanonicalProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return clone(p), nil
}

func (s *Store) FindByIDs(ctx context.Context, ids []string) ([]domain.CanonicalProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make([]domain.CanonicalProduct, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			found = append(found, *clone(p))
		}
	}
	return found, nil
}

func (s *Store) FindByMatchKey(ctx context.Context, matchKey string) (*domain.CanonicalProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		if p := s.products[id]; p.MatchKey != "" && p.MatchKey == matchKey {
			return clone(p), nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (s *Store) FindByNormalizedName(ctx context.Context, normalizedName string, brand *string) (*domain.CanonicalProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		p := s.products[id]
		if p.NormalizedName != normalizedName {
			continue
		}
		if brand == nil || p.Brand == nil || *p.Brand == "" || *p.Brand == *brand {
			return clone(p), nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (s *Store) Insert(ctx context.Context, product *domain.CanonicalProduct) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.matchKeyTaken(product.MatchKey, "") {
		return "", domain.ErrDuplicateMatchKey
	}
	p := clone(product)
	p.ID = uuid.NewString()
	s.products[p.ID] = p
	s.order = append(s.order, p.ID)
	return p.ID, nil
}

func (s *Store) Update(ctx context.Context, id string, update domain.ProductUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	if update.MatchKey != nil && s.matchKeyTaken(*update.MatchKey, id) {
		return domain.ErrDuplicateMatchKey
	}

	if update.LocationPrices != nil {
		p.LocationPrices = slices.Clone(update.LocationPrices)
	}
	if update.EstimatedPrice != nil {
		p.EstimatedPrice = copyPtr(update.EstimatedPrice)
	}
	if update.Brand != nil {
		p.Brand = copyPtr(update.Brand)
	}
	if update.Category != nil {
		p.Category = copyPtr(update.Category)
	}
	if update.Tags != nil {
		p.Tags = slices.Clone(update.Tags)
	}
	if update.URL != nil {
		p.URL = copyPtr(update.URL)
	}
	if update.ImageURL != nil {
		p.ImageURL = copyPtr(update.ImageURL)
	}
	if update.MatchKey != nil {
		p.MatchKey = *update.MatchKey
	}
	if update.Checksum != nil {
		p.Checksum = *update.Checksum
	}
	if update.ClearLegacy {
		p.Legacy = nil
	}
	p.UpdatedAt = update.UpdatedAt
	return nil
}

func (s *Store) SetEmbedding(ctx context.Context, id string, embedding []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Embedding = slices.Clone(embedding)
	return nil
}

func (s *Store) ListEmbeddings(ctx context.Context) ([]domain.StoredEmbedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.StoredEmbedding
	for _, id := range s.order {
		if p := s.products[id]; len(p.Embedding) > 0 {
			out = append(out, domain.StoredEmbedding{ProductID: id, Vector: slices.Clone(p.Embedding)})
		}
	}
	return out, nil
}

// EnsureIndexes is a no-op; match key uniqueness is always enforced.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	return nil
}

// TextSearch scores whole-word matches with the catalog's field weights. Like a
// MongoDB text index it never matches word prefixes.
func (s *Store) TextSearch(ctx context.Context, query string, filter domain.CatalogFilter, limit int) ([]domain.CanonicalProduct, error) {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return []domain.CanonicalProduct{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		product *domain.CanonicalProduct
		score   float64
	}
	var hits []scored
	for _, id := range s.order {
		p := s.products[id]
		if !filter.Matches(p) {
			continue
		}
		if score := textScore(p, terms); score > 0 {
			hits = append(hits, scored{product: p, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	out := make([]domain.CanonicalProduct, 0, len(hits))
	for _, h := range hits {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, *clone(h.product))
	}
	return out, nil
}

// RegexSearch matches query as a case-insensitive substring of any searchable field.
func (s *Store) RegexSearch(ctx context.Context, query string, filter domain.CatalogFilter, limit int) ([]domain.CanonicalProduct, error) {
	pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(query))
	return s.collect(limit, func(p *domain.CanonicalProduct) bool {
		return filter.Matches(p) && matchesPattern(p, pattern)
	}), nil
}

func (s *Store) List(ctx context.Context, filter domain.CatalogFilter, limit int) ([]domain.CanonicalProduct, error) {
	return s.collect(limit, func(p *domain.CanonicalProduct) bool {
		return filter.Matches(p)
	}), nil
}

func (s *Store) CategoryCounts(ctx context.Context, limit int) ([]domain.CategoryCount, error) {
	s.mu.RLock()
	counts := make(map[string]int)
	for _, p := range s.products {
		if p.Category == nil {
			continue
		}
		for _, part := range strings.Split(*p.Category, ",") {
			if c := strings.TrimSpace(part); c != "" {
				counts[c]++
			}
		}
	}
	s.mu.RUnlock()

	out := make([]domain.CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, domain.CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) StoreSummaries(ctx context.Context) ([]domain.StoreSummary, error) {
	s.mu.RLock()
	byStore := make(map[string]*domain.StoreSummary)
	for _, id := range s.order {
		p := s.products[id]
		for _, obs := range p.Observations() {
			if obs.LocationID == "" {
				continue
			}
			summary, ok := byStore[obs.LocationID]
			if !ok {
				summary = &domain.StoreSummary{StoreID: obs.LocationID, StoreName: obs.StoreName}
				byStore[obs.LocationID] = summary
			}
			summary.ProductCount++
		}
	}
	s.mu.RUnlock()

	out := make([]domain.StoreSummary, 0, len(byStore))
	for _, summary := range byStore {
		out = append(out, *summary)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductCount != out[j].ProductCount {
			return out[i].ProductCount > out[j].ProductCount
		}
		return out[i].StoreID < out[j].StoreID
	})
	return out, nil
}

func (s *Store) HiddenStoreIDs(ctx context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hidden := make(map[string]struct{}, len(s.hidden))
	for id := range s.hidden {
		hidden[id] = struct{}{}
	}
	return hidden, nil
}

func (s *Store) FindBarcode(ctx context.Context, barcode string) (*domain.BarcodeMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.barcodes[barcode]
	if !ok {
		return nil, domain.ErrBarcodeNotFound
	}
	return &m, nil
}

func (s *Store) LinkBarcode(ctx context.Context, mapping domain.BarcodeMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.barcodes[mapping.Barcode] = mapping
	return nil
}

func (s *Store) UnlinkBarcode(ctx context.Context, barcode string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.barcodes[barcode]; !ok {
		return false, nil
	}
	delete(s.barcodes, barcode)
	return true, nil
}

// collect returns matching products, most recently updated first.
func (s *Store) collect(limit int, match func(*domain.CanonicalProduct) bool) []domain.CanonicalProduct {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.CanonicalProduct
	for _, id := range s.order {
		if p := s.products[id]; match(p) {
			matched = append(matched, p)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	out := make([]domain.CanonicalProduct, 0, len(matched))
	for _, p := range matched {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, *clone(p))
	}
	return out
}

func (s *Store) matchKeyTaken(matchKey, exceptID string) bool {
	if matchKey == "" {
		return false
	}
	for id, p := range s.products {
		if id != exceptID && p.MatchKey == matchKey {
			return true
		}
	}
	return false
}

func clone(p *domain.CanonicalProduct) *domain.CanonicalProduct {
	c := *p
	c.Brand = copyPtr(p.Brand)
	c.Category = copyPtr(p.Category)
	c.URL = copyPtr(p.URL)
	c.ImageURL = copyPtr(p.ImageURL)
	c.EstimatedPrice = copyPtr(p.EstimatedPrice)
	c.Size = domain.Size{
		Value:     copyPtr(p.Size.Value),
		Unit:      copyPtr(p.Size.Unit),
		PackCount: copyPtr(p.Size.PackCount),
	}
	c.Tags = slices.Clone(p.Tags)
	c.Aliases = slices.Clone(p.Aliases)
	c.LocationPrices = slices.Clone(p.LocationPrices)
	c.Embedding = slices.Clone(p.Embedding)
	if p.Legacy != nil {
		legacy := *p.Legacy
		c.Legacy = &legacy
	}
	c.CreatedAt = p.CreatedAt.UTC()
	c.UpdatedAt = p.UpdatedAt.UTC()
	return &c
}

func copyPtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

var _ interface {
	domain.ProductStore
	domain.VisibilityStore
	domain.BarcodeStore
} = (*Store)(nil)
