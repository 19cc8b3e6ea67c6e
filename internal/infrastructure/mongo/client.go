// Package mongo is the catalog store adapter on MongoDB. Products live in the
// products collection, store visibility in store_settings and barcode links in
// barcode_mappings.
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/pricelens/backend/internal/domain"
)

// Collection names
const (
	ProductsCollection      = "products"
	StoreSettingsCollection = "store_settings"
	BarcodesCollection      = "barcode_mappings"
)

// DefaultTextIndexName names the weighted text index when none is configured.
const DefaultTextIndexName = "product_text_search"

// Config holds the connection settings for the store.
type Config struct {
	URI           string
	Database      string
	Timeout       time.Duration
	TextIndexName string
}

// Store implements the product, visibility and barcode stores on one database.
type Store struct {
	client        *mongo.Client
	products      *mongo.Collection
	storeSettings *mongo.Collection
	barcodes      *mongo.Collection
	timeout       time.Duration
	textIndexName string
	logger        zerolog.Logger
}

// Connect opens a client for cfg and verifies the primary is reachable.
func Connect(ctx context.Context, cfg Config, logger zerolog.Logger) (*Store, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.Timeout).
		SetAppName("pricelens")

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	store := NewStore(client.Database(cfg.Database), cfg, logger)
	store.client = client
	store.logger.Info().Str("database", cfg.Database).Msg("connected to mongodb")
	return store, nil
}

// NewStore wraps an existing database handle.
func NewStore(db *mongo.Database, cfg Config, logger zerolog.Logger) *Store {
	textIndexName := cfg.TextIndexName
	if textIndexName == "" {
		textIndexName = DefaultTextIndexName
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Store{
		products:      db.Collection(ProductsCollection),
		storeSettings: db.Collection(StoreSettingsCollection),
		barcodes:      db.Collection(BarcodesCollection),
		timeout:       timeout,
		textIndexName: textIndexName,
		logger:        logger.With().Str("component", "mongo").Logger(),
	}
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// opContext bounds one store operation by the configured timeout.
func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

var _ interface {
	domain.ProductStore
	domain.VisibilityStore
	domain.BarcodeStore
} = (*Store)(nil)
