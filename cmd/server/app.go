package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/cache"
	"github.com/pricelens/backend/internal/infrastructure/geo"
	"github.com/pricelens/backend/internal/infrastructure/meili"
	"github.com/pricelens/backend/internal/infrastructure/memory"
	"github.com/pricelens/backend/internal/infrastructure/mongo"
	"github.com/pricelens/backend/internal/infrastructure/openai"
	"github.com/pricelens/backend/internal/infrastructure/vector"
	"github.com/pricelens/backend/internal/usecase"
)

// catalogStore is a backend serving products, store settings and barcode mappings.
type catalogStore interface {
	domain.ProductStore
	domain.VisibilityStore
	domain.BarcodeStore
}

// app holds the wired services and the resources to release on shutdown.
type app struct {
	store    catalogStore
	mirror   *meili.Mirror
	ingest   *usecase.IngestService
	search   *usecase.SearchService
	stores   *usecase.StoreService
	barcodes *usecase.BarcodeService
	closers  []func(context.Context) error
}

// newApp connects the catalog store and wires every configured collaborator.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{}

	switch cfg.Database.Type {
	case config.DatabaseMongo:
		store, err := mongo.Connect(ctx, mongo.Config{
			URI:           cfg.Database.URI,
			Database:      cfg.Database.Name,
			Timeout:       cfg.Database.Timeout,
			TextIndexName: cfg.Search.TextIndexName,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to catalog store: %w", err)
		}
		a.store = store
		a.closers = append(a.closers, store.Close)
	default:
		a.store = memory.NewStore()
		logger.Warn().Msg("using in-memory catalog store, data is lost on exit")
	}

	visibilityCache := cache.NewMemoryCache(cache.DefaultCleanupInterval)
	a.closers = append(a.closers, func(context.Context) error {
		visibilityCache.Close()
		return nil
	})
	visibility := usecase.NewVisibilityProvider(a.store, visibilityCache, cfg.Search.VisibilityTTL, logger)

	var geoClient domain.GeoClient
	if cfg.Geo.Enabled() {
		geoClient = geo.NewClient(cfg.Geo.APIKey, cfg.Geo.BaseURL, cfg.Geo.RequestsPerSecond, cfg.Geo.Burst, logger)
	}

	aiConfig := openai.Config{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
		ChatModel:      cfg.OpenAI.ChatModel,
	}
	var (
		embedder    domain.Embedder
		vectors     domain.VectorIndex
		categorizer domain.Categorizer
	)
	if cfg.OpenAI.EnableEmbeddings {
		embedder = openai.NewEmbedder(aiConfig, logger)
		vectors = vector.NewIndex()
	}
	if cfg.OpenAI.EnableCategorization {
		categorizer = openai.NewCategorizer(aiConfig, logger)
	}

	var external domain.ExternalIndex
	if cfg.Meili.Enabled() {
		a.mirror = meili.NewMirror(cfg.Meili.URL, cfg.Meili.APIKey, cfg.Meili.Index, logger)
		external = a.mirror
	}

	resolver := usecase.NewResolutionService(a.store, usecase.ResolutionServiceConfig{
		DefaultCurrency: cfg.Ingest.DefaultCurrency,
		Geo:             geoClient,
		Embedder:        embedder,
		Vectors:         vectors,
		Mirror:          external,
	}, logger)

	a.ingest = usecase.NewIngestService(resolver, usecase.IngestServiceConfig{
		Workers:     cfg.Ingest.Workers,
		Categorizer: categorizer,
	}, logger)
	a.search = usecase.NewSearchService(a.store, visibility, usecase.SearchServiceConfig{
		DefaultLimit:    cfg.Search.DefaultLimit,
		CategoriesLimit: cfg.Search.CategoriesLimit,
		Embedder:        embedder,
		Vectors:         vectors,
		External:        external,
	}, logger)
	a.stores = usecase.NewStoreService(a.store, visibility, geoClient, logger)
	a.barcodes = usecase.NewBarcodeService(a.store, a.store, visibility, logger)

	return a, nil
}

// prepare runs index maintenance on the catalog and the mirror. Failures are
// logged; the server keeps working without the indexes.
func (a *app) prepare(ctx context.Context, logger zerolog.Logger) {
	if err := a.search.EnsureIndex(ctx); err != nil {
		logger.Warn().Err(err).Msg("catalog index maintenance failed")
	}
	if a.mirror != nil {
		if err := a.mirror.EnsureIndex(ctx); err != nil {
			logger.Warn().Err(err).Msg("search mirror index setup failed")
		}
	}
}

func (a *app) Close(ctx context.Context) error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
