package domain

import (
	"context"
	"time"
)

// ProductStore is the catalog collection the resolution and search engines run against.
// Lookups return ErrProductNotFound when nothing matches.
type ProductStore interface {
	FindByID(ctx context.Context, id string) (*CanonicalProduct, error)
	FindByIDs(ctx context.Context, ids []string) ([]CanonicalProduct, error)
	FindByMatchKey(ctx context.Context, matchKey string) (*CanonicalProduct, error)
	// FindByNormalizedName matches brand ∈ {brand, null, ""} when brand is non-nil.
	FindByNormalizedName(ctx context.Context, normalizedName string, brand *string) (*CanonicalProduct, error)

	Insert(ctx context.Context, product *CanonicalProduct) (string, error)
	Update(ctx context.Context, id string, update ProductUpdate) error
	SetEmbedding(ctx context.Context, id string, embedding []float64) error
	ListEmbeddings(ctx context.Context) ([]StoredEmbedding, error)

	EnsureIndexes(ctx context.Context) error
	TextSearch(ctx context.Context, query string, filter CatalogFilter, limit int) ([]CanonicalProduct, error)
	RegexSearch(ctx context.Context, query string, filter CatalogFilter, limit int) ([]CanonicalProduct, error)
	List(ctx context.Context, filter CatalogFilter, limit int) ([]CanonicalProduct, error)
	CategoryCounts(ctx context.Context, limit int) ([]CategoryCount, error)
	StoreSummaries(ctx context.Context) ([]StoreSummary, error)
}

// VisibilityStore reports the stores currently excluded from public results.
type VisibilityStore interface {
	HiddenStoreIDs(ctx context.Context) (map[string]struct{}, error)
}

// BarcodeStore persists barcode to product links.
type BarcodeStore interface {
	FindBarcode(ctx context.Context, barcode string) (*BarcodeMapping, error)
	LinkBarcode(ctx context.Context, mapping BarcodeMapping) error
	UnlinkBarcode(ctx context.Context, barcode string) (bool, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// GeoClient looks up store locations with a third-party geolocation API.
type GeoClient interface {
	FindStoreByAddress(ctx context.Context, address string) (*StoreLocation, error)
	FindStoresByName(ctx context.Context, name string) ([]StoreLocation, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// VectorIndex answers nearest-neighbour queries over product embeddings.
type VectorIndex interface {
	Add(productID string, vector []float64)
	Nearest(ctx context.Context, vector []float64, k int) ([]string, error)
	Len() int
}

// Categorizer suggests grocery categories for a product.
type Categorizer interface {
	Categorize(ctx context.Context, name, brand string) ([]string, error)
}

// ExternalIndex mirrors the catalog into an external search engine.
type ExternalIndex interface {
	Upsert(ctx context.Context, product ProductView) error
	Search(ctx context.Context, query string, filter CatalogFilter, limit int) ([]string, error)
}
