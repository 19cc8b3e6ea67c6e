package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/normalize"
)

// ResolutionServiceConfig holds configuration and optional collaborators for the resolution service.
// Nil collaborators disable the matching enrichment.
type ResolutionServiceConfig struct {
	DefaultCurrency string
	Geo             domain.GeoClient
	Embedder        domain.Embedder
	Vectors         domain.VectorIndex
	Mirror          domain.ExternalIndex
}

// ResolutionService resolves incoming listings into canonical products: it merges
// an observation into the matching product or creates a new one.
type ResolutionService struct {
	products        domain.ProductStore
	geo             domain.GeoClient
	embedder        domain.Embedder
	vectors         domain.VectorIndex
	mirror          domain.ExternalIndex
	defaultCurrency string
	logger          zerolog.Logger
	now             func() time.Time
}

// NewResolutionService creates a new resolution service
func NewResolutionService(products domain.ProductStore, config ResolutionServiceConfig, logger zerolog.Logger) *ResolutionService {
	currency := config.DefaultCurrency
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return &ResolutionService{
		products:        products,
		geo:             config.Geo,
		embedder:        config.Embedder,
		vectors:         config.Vectors,
		mirror:          config.Mirror,
		defaultCurrency: currency,
		logger:          logger.With().Str("component", "resolution").Logger(),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// UpsertManualEntry records one listing. With a store id the observation is merged
// into the matching canonical product (exact match key, then normalized name and
// compatible brand) or a new product is created. Without a store id only the product
// is recorded. Validation happens before any store access; store failures are returned.
func (s *ResolutionService) UpsertManualEntry(ctx context.Context, entry domain.ManualEntry) (domain.Resolution, error) {
	if strings.TrimSpace(entry.Currency) == "" {
		entry.Currency = s.defaultCurrency
	}
	if err := entry.Validate(); err != nil {
		return domain.Resolution{}, err
	}
	if !entry.HasStore() {
		return s.CreateProduct(ctx, entry.Draft())
	}

	l := prepareListing(entry, s.now())
	s.locate(ctx, &l.observation)

	existing, err := s.findExisting(ctx, l)
	if err != nil {
		return domain.Resolution{}, err
	}
	if existing != nil {
		return s.merge(ctx, existing, l)
	}

	product := newProduct(l, s.now())
	id, err := s.products.Insert(ctx, product)
	if errors.Is(err, domain.ErrDuplicateMatchKey) {
		// A concurrent writer created the product first.
		s.logger.Info().Str("match_key", l.matchKey).Msg("duplicate match key on insert, merging instead")
		existing, findErr := s.products.FindByMatchKey(ctx, l.matchKey)
		if findErr != nil {
			return domain.Resolution{}, fmt.Errorf("find product after duplicate match key: %w", findErr)
		}
		return s.merge(ctx, existing, l)
	}
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("insert product: %w", err)
	}

	product.ID = id
	s.logger.Debug().Str("product_id", id).Str("store_id", l.observation.LocationID).Msg("created canonical product")
	s.afterWrite(ctx, product, true)
	return domain.Resolution{ProductID: id, Created: true}, nil
}

// CreateProduct records a product without a price observation, deduplicated by
// normalized name only.
func (s *ResolutionService) CreateProduct(ctx context.Context, draft domain.ProductDraft) (domain.Resolution, error) {
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return domain.Resolution{}, domain.NewValidationError("name", "product name is required")
	}
	normalizedName := normalize.Name(name)

	existing, err := s.products.FindByNormalizedName(ctx, normalizedName, nil)
	switch {
	case err == nil:
		return domain.Resolution{ProductID: existing.ID, Created: false}, nil
	case !errors.Is(err, domain.ErrProductNotFound):
		return domain.Resolution{}, fmt.Errorf("find product by name: %w", err)
	}

	now := s.now()
	category := normalize.CleanOptionalText(draft.Category)
	product := &domain.CanonicalProduct{
		Name:           name,
		NormalizedName: normalizedName,
		Brand:          normalize.CleanOptionalText(draft.Brand),
		Category:       category,
		Size:           normalize.ParseSize(name),
		Tags:           categoryTags(category),
		LocationPrices: []domain.PriceObservation{},
		URL:            normalize.CleanOptionalText(draft.URL),
		ImageURL:       normalize.CleanOptionalText(draft.ImageURL),
		Aliases:        []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	id, err := s.products.Insert(ctx, product)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("insert product: %w", err)
	}
	product.ID = id
	s.afterWrite(ctx, product, true)
	return domain.Resolution{ProductID: id, Created: true}, nil
}

// findExisting looks up by exact match key, then by normalized name with a compatible brand.
// It returns nil when neither lookup matches.
func (s *ResolutionService) findExisting(ctx context.Context, l listing) (*domain.CanonicalProduct, error) {
	p, err := s.products.FindByMatchKey(ctx, l.matchKey)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrProductNotFound) {
		return nil, fmt.Errorf("find product by match key: %w", err)
	}

	p, err = s.products.FindByNormalizedName(ctx, l.normalizedName, l.brand)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrProductNotFound) {
		return nil, fmt.Errorf("find product by name: %w", err)
	}
	return nil, nil
}

func (s *ResolutionService) merge(ctx context.Context, existing *domain.CanonicalProduct, l listing) (domain.Resolution, error) {
	update := planMerge(existing, l, s.now())
	if err := s.products.Update(ctx, existing.ID, update); err != nil {
		return domain.Resolution{}, fmt.Errorf("update product %s: %w", existing.ID, err)
	}

	merged := applyUpdate(*existing, update)
	s.logger.Debug().
		Str("product_id", existing.ID).
		Str("store_id", l.observation.LocationID).
		Int("observations", len(merged.LocationPrices)).
		Msg("merged observation into canonical product")
	s.afterWrite(ctx, &merged, false)
	return domain.Resolution{ProductID: existing.ID, Created: false}, nil
}

// locate fills missing coordinates from the observation's address. Lookup failures
// leave the observation without coordinates.
func (s *ResolutionService) locate(ctx context.Context, obs *domain.PriceObservation) {
	if s.geo == nil || obs.Address == "" || (obs.Latitude != nil && obs.Longitude != nil) {
		return
	}
	loc, err := s.geo.FindStoreByAddress(ctx, obs.Address)
	if err != nil {
		s.logger.Warn().Err(err).Str("address", obs.Address).Msg("geocoding store address failed")
		return
	}
	obs.Latitude = &loc.Latitude
	obs.Longitude = &loc.Longitude
	if obs.PlaceID == "" {
		obs.PlaceID = loc.PlaceID
	}
}

// afterWrite runs the optional enrichments. Their failures are logged, never returned.
func (s *ResolutionService) afterWrite(ctx context.Context, product *domain.CanonicalProduct, created bool) {
	if created && s.embedder != nil {
		s.embed(ctx, product)
	}
	if s.mirror != nil {
		if err := s.mirror.Upsert(ctx, domain.NewProductView(product, nil)); err != nil {
			s.logger.Warn().Err(err).Str("product_id", product.ID).Msg("mirroring product failed")
		}
	}
}

func (s *ResolutionService) embed(ctx context.Context, product *domain.CanonicalProduct) {
	vector, err := s.embedder.Embed(ctx, embeddingText(product))
	if err != nil {
		s.logger.Warn().Err(err).Str("product_id", product.ID).Msg("embedding product failed")
		return
	}
	if err := s.products.SetEmbedding(ctx, product.ID, vector); err != nil {
		s.logger.Warn().Err(err).Str("product_id", product.ID).Msg("storing embedding failed")
		return
	}
	if s.vectors != nil {
		s.vectors.Add(product.ID, vector)
	}
}

// embeddingText is the text a product is embedded from: its name, brand and category.
func embeddingText(p *domain.CanonicalProduct) string {
	parts := []string{p.Name}
	if p.Brand != nil {
		parts = append(parts, *p.Brand)
	}
	if p.Category != nil {
		parts = append(parts, *p.Category)
	}
	return strings.Join(parts, " ")
}
