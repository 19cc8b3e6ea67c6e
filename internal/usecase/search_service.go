package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
)

// Search defaults
const (
	DefaultSearchLimit     = 50
	DefaultCategoriesLimit = 20

	// semanticOverfetch widens the nearest-neighbour query so filters still leave enough results.
	semanticOverfetch = 3

	// indexRetryInterval is the wait after a failed text index build before searches try again.
	indexRetryInterval = time.Minute
)

// SearchServiceConfig holds configuration and optional ranking collaborators for the search service.
type SearchServiceConfig struct {
	DefaultLimit    int
	CategoriesLimit int
	Embedder        domain.Embedder
	Vectors         domain.VectorIndex
	External        domain.ExternalIndex
}

// SearchService answers catalog reads. Reads are best effort: backend failures come
// back as a degraded outcome instead of an error.
type SearchService struct {
	products        domain.ProductStore
	visibility      *VisibilityProvider
	embedder        domain.Embedder
	vectors         domain.VectorIndex
	external        domain.ExternalIndex
	preprocessor    *QueryPreprocessor
	defaultLimit    int
	categoriesLimit int
	logger          zerolog.Logger
	now             func() time.Time

	indexMu      sync.Mutex
	indexReady   bool
	indexErr     error
	indexRetryAt time.Time
}

// NewSearchService creates a new search service
func NewSearchService(products domain.ProductStore, visibility *VisibilityProvider, config SearchServiceConfig, logger zerolog.Logger) *SearchService {
	defaultLimit := config.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = DefaultSearchLimit
	}
	categoriesLimit := config.CategoriesLimit
	if categoriesLimit <= 0 {
		categoriesLimit = DefaultCategoriesLimit
	}
	logger = logger.With().Str("component", "search").Logger()
	return &SearchService{
		products:        products,
		visibility:      visibility,
		embedder:        config.Embedder,
		vectors:         config.Vectors,
		external:        config.External,
		preprocessor:    NewQueryPreprocessor(logger),
		defaultLimit:    defaultLimit,
		categoriesLimit: categoriesLimit,
		logger:          logger,
		now:             time.Now,
	}
}

// EnsureIndex makes sure the catalog indexes exist. Once the text index is in place
// it is not checked again; a failed text index build is retried after
// indexRetryInterval, and calls before that return the last error.
func (s *SearchService) EnsureIndex(ctx context.Context) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	if s.indexReady {
		return nil
	}
	now := s.now()
	if now.Before(s.indexRetryAt) {
		return s.indexErr
	}

	err := s.products.EnsureIndexes(ctx)
	switch {
	case err == nil:
		s.indexReady = true
	case errors.Is(err, domain.ErrSupportingIndex):
		s.logger.Warn().Err(err).Msg("text index ready, supporting indexes missing")
		s.indexReady = true
	default:
		s.logger.Warn().Err(err).Dur("retry_in", indexRetryInterval).Msg("ensuring text index failed, regex fallback stays available")
		s.indexErr = err
		s.indexRetryAt = now.Add(indexRetryInterval)
	}
	return err
}

// WarmVectors loads stored embeddings into the vector index and returns how many were loaded.
func (s *SearchService) WarmVectors(ctx context.Context) (int, error) {
	if s.vectors == nil {
		return 0, nil
	}
	stored, err := s.products.ListEmbeddings(ctx)
	if err != nil {
		return 0, fmt.Errorf("list embeddings: %w", err)
	}
	for _, e := range stored {
		s.vectors.Add(e.ProductID, e.Vector)
	}
	return len(stored), nil
}

// GetOne returns the product with hidden-store prices removed, or nil when no product has id.
func (s *SearchService) GetOne(ctx context.Context, id string) (*domain.ProductView, error) {
	p, err := s.products.FindByID(ctx, id)
	if errors.Is(err, domain.ErrProductNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
	}
	view := domain.NewProductView(p, s.visibility.HiddenStores(ctx))
	return &view, nil
}

// Search runs a catalog search. Text mode ranks by weighted text relevance and falls
// back to substring matching when that finds nothing or fails; without a query only
// the filters apply, newest first.
func (s *SearchService) Search(ctx context.Context, q domain.SearchQuery) domain.SearchOutcome {
	limit := q.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	query := strings.TrimSpace(q.Query)
	filter := q.Filter()

	if query == "" {
		products, err := s.products.List(ctx, filter, limit)
		if err != nil {
			return s.degraded(domain.PassFilter, err)
		}
		return s.outcome(ctx, products, domain.PassFilter)
	}

	switch q.Mode {
	case domain.SearchModeSemantic:
		return s.semanticSearch(ctx, query, filter, limit)
	case domain.SearchModeExternal:
		return s.externalSearch(ctx, query, filter, limit)
	default:
		return s.textSearch(ctx, query, filter, limit)
	}
}

func (s *SearchService) textSearch(ctx context.Context, query string, filter domain.CatalogFilter, limit int) domain.SearchOutcome {
	_ = s.EnsureIndex(ctx)

	products, err := s.products.TextSearch(ctx, query, filter, limit)
	if err == nil && len(products) > 0 {
		return s.outcome(ctx, products, domain.PassRelevance)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("query", query).Msg("text search failed, using regex fallback")
	}

	products, err = s.products.RegexSearch(ctx, query, filter, limit)
	if err != nil {
		return s.degraded(domain.PassFallback, err)
	}
	return s.outcome(ctx, products, domain.PassFallback)
}

func (s *SearchService) semanticSearch(ctx context.Context, query string, filter domain.CatalogFilter, limit int) domain.SearchOutcome {
	if s.embedder == nil || s.vectors == nil {
		return s.degraded(domain.PassSemantic, domain.ErrEnrichmentUnavailable)
	}

	vector, err := s.embedder.Embed(ctx, s.preprocessor.PreprocessQuery(query, ""))
	if err != nil {
		return s.degraded(domain.PassSemantic, err)
	}
	ids, err := s.vectors.Nearest(ctx, vector, limit*semanticOverfetch)
	if err != nil {
		return s.degraded(domain.PassSemantic, err)
	}
	return s.loadRanked(ctx, ids, filter, limit, domain.PassSemantic)
}

func (s *SearchService) externalSearch(ctx context.Context, query string, filter domain.CatalogFilter, limit int) domain.SearchOutcome {
	if s.external == nil {
		return s.degraded(domain.PassExternal, domain.ErrEnrichmentUnavailable)
	}

	ids, err := s.external.Search(ctx, query, filter, limit)
	if err != nil {
		return s.degraded(domain.PassExternal, err)
	}
	return s.loadRanked(ctx, ids, filter, limit, domain.PassExternal)
}

// loadRanked loads products in the order of ids, keeping those matching filter.
func (s *SearchService) loadRanked(ctx context.Context, ids []string, filter domain.CatalogFilter, limit int, pass domain.SearchPass) domain.SearchOutcome {
	if len(ids) == 0 {
		return s.outcome(ctx, nil, pass)
	}
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return s.degraded(pass, err)
	}

	kept := products[:0]
	for i := range products {
		if len(kept) == limit {
			break
		}
		if filter.Matches(&products[i]) {
			kept = append(kept, products[i])
		}
	}
	return s.outcome(ctx, kept, pass)
}

// GetCategories returns the most frequent individual categories, splitting
// comma-joined category values.
func (s *SearchService) GetCategories(ctx context.Context, limit int) domain.CategoryOutcome {
	if limit <= 0 {
		limit = s.categoriesLimit
	}
	counts, err := s.products.CategoryCounts(ctx, limit)
	if err != nil {
		s.logger.Warn().Err(err).Msg("category aggregation failed")
		return domain.CategoryOutcome{
			Categories: []string{},
			Status:     domain.StatusDegraded,
			Err:        fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err),
		}
	}

	categories := make([]string, 0, len(counts))
	for _, c := range counts {
		categories = append(categories, c.Category)
	}
	status := domain.StatusOK
	if len(categories) == 0 {
		status = domain.StatusNoMatches
	}
	return domain.CategoryOutcome{Categories: categories, Status: status}
}

func (s *SearchService) outcome(ctx context.Context, products []domain.CanonicalProduct, pass domain.SearchPass) domain.SearchOutcome {
	views := make([]domain.ProductView, 0, len(products))
	if len(products) > 0 {
		hidden := s.visibility.HiddenStores(ctx)
		for i := range products {
			views = append(views, domain.NewProductView(&products[i], hidden))
		}
	}

	status := domain.StatusOK
	if len(views) == 0 {
		status = domain.StatusNoMatches
	}
	return domain.SearchOutcome{Products: views, Pass: pass, Status: status}
}

func (s *SearchService) degraded(pass domain.SearchPass, err error) domain.SearchOutcome {
	s.logger.Warn().Err(err).Str("pass", string(pass)).Msg("search degraded")
	if !errors.Is(err, domain.ErrEnrichmentUnavailable) {
		err = fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
	}
	return domain.SearchOutcome{
		Products: []domain.ProductView{},
		Pass:     pass,
		Status:   domain.StatusDegraded,
		Err:      err,
	}
}
