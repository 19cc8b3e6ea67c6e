package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
)

// StoreService serves the store directory and store location lookups.
type StoreService struct {
	products   domain.ProductStore
	visibility *VisibilityProvider
	geo        domain.GeoClient
	logger     zerolog.Logger
}

// NewStoreService creates a new store service. geo may be nil when no geolocation API is configured.
func NewStoreService(products domain.ProductStore, visibility *VisibilityProvider, geo domain.GeoClient, logger zerolog.Logger) *StoreService {
	return &StoreService{
		products:   products,
		visibility: visibility,
		geo:        geo,
		logger:     logger.With().Str("component", "stores").Logger(),
	}
}

// ListProductStores returns every visible store with at least one product, most products first.
func (s *StoreService) ListProductStores(ctx context.Context) ([]domain.StoreSummary, error) {
	summaries, err := s.products.StoreSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCatalogUnavailable, err)
	}

	hidden := s.visibility.HiddenStores(ctx)
	visible := make([]domain.StoreSummary, 0, len(summaries))
	for _, summary := range summaries {
		if _, isHidden := hidden[summary.StoreID]; isHidden {
			continue
		}
		visible = append(visible, summary)
	}
	return visible, nil
}

// SearchStores finds stores by name, or geocodes an address when no name is given.
func (s *StoreService) SearchStores(ctx context.Context, name, address string) ([]domain.StoreLocation, error) {
	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)
	if name == "" && address == "" {
		return nil, domain.NewValidationError("name", "a 'name' or 'address' query parameter is required")
	}
	if s.geo == nil {
		return nil, domain.ErrEnrichmentUnavailable
	}

	if name != "" {
		return s.geo.FindStoresByName(ctx, name)
	}

	location, err := s.geo.FindStoreByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	return []domain.StoreLocation{*location}, nil
}
