package domain

import (
	"strings"
	"time"
)

// ManualURLPrefix marks a placeholder url recorded for manually entered products.
const ManualURLPrefix = "manual://"

// Size is the structured size parsed from a listing name or size hint.
// A nil field means the component was not present or could not be parsed.
type Size struct {
	Value     *float64 `json:"value"`
	Unit      *string  `json:"unit"`
	PackCount *int     `json:"pack_count"`
}

// IsZero reports whether no size component was detected.
func (s Size) IsZero() bool {
	return s.Value == nil && s.Unit == nil && s.PackCount == nil
}

// PriceObservation is one store's most recent price for a canonical product.
type PriceObservation struct {
	LocationID string    `json:"location_id"`
	StoreName  string    `json:"store_name,omitempty"`
	Amount     Amount    `json:"amount"`
	Currency   string    `json:"currency"`
	LastSeenAt time.Time `json:"last_seen_at"`

	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	PlaceID   string   `json:"place_id,omitempty"`
}

// CanonicalProduct is the deduplicated record of a real-world product across every store selling it.
type CanonicalProduct struct {
	ID             string             `json:"_id"`
	Name           string             `json:"name"`
	NormalizedName string             `json:"normalized_name"`
	Brand          *string            `json:"brand"`
	Category       *string            `json:"category"`
	Size           Size               `json:"size"`
	Tags           []string           `json:"tags"`
	MatchKey       string             `json:"match_key,omitempty"`
	Checksum       string             `json:"-"`
	LocationPrices []PriceObservation `json:"location_prices"`
	EstimatedPrice *float64           `json:"estimated_price"`
	URL            *string            `json:"url"`
	ImageURL       *string            `json:"image_url"`
	Embedding      []float64          `json:"-"`
	Aliases        []string           `json:"-"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`

	// Legacy holds the pre multi-store single observation, when present.
	Legacy *LegacyListing `json:"-"`
}

// LegacyListing is the single manual observation stored on rows created before location_prices existed.
type LegacyListing struct {
	StoreID   string
	StoreName string
	Price     Amount
	Currency  string
}

// IsLegacy reports whether the product still uses the single-observation shape.
func (p *CanonicalProduct) IsLegacy() bool {
	return p.Legacy != nil && p.Legacy.StoreID != "" && len(p.LocationPrices) == 0
}

// Observations returns the product's price observations, synthesising one from the
// legacy top-level store fields when the product predates location_prices.
func (p *CanonicalProduct) Observations() []PriceObservation {
	if !p.IsLegacy() {
		return p.LocationPrices
	}
	currency := p.Legacy.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	return []PriceObservation{{
		LocationID: p.Legacy.StoreID,
		StoreName:  p.Legacy.StoreName,
		Amount:     p.Legacy.Price,
		Currency:   currency,
		LastSeenAt: p.UpdatedAt,
	}}
}

// HasTag reports whether tag is already present.
func (p *CanonicalProduct) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// SoldAt reports whether storeID has a price observation for the product.
func (p *CanonicalProduct) SoldAt(storeID string) bool {
	for _, obs := range p.Observations() {
		if obs.LocationID == storeID {
			return true
		}
	}
	return false
}

// IsPlaceholderURL reports whether url is unset or a manual:// placeholder.
func IsPlaceholderURL(url *string) bool {
	return url == nil || *url == "" || strings.HasPrefix(*url, ManualURLPrefix)
}

// ProductUpdate is the set of fields one merge writes in a single update.
// Nil pointer and nil slice fields are left untouched.
type ProductUpdate struct {
	LocationPrices []PriceObservation
	EstimatedPrice *float64
	Brand          *string
	Category       *string
	Tags           []string
	URL            *string
	ImageURL       *string
	MatchKey       *string
	Checksum       *string
	ClearLegacy    bool
	UpdatedAt      time.Time
}

// CategoryCount is one row of the category frequency aggregation.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// StoreSummary is one store that has at least one product in the catalog.
type StoreSummary struct {
	StoreID      string `json:"store_id"`
	StoreName    string `json:"store_name"`
	ProductCount int    `json:"product_count"`
}

// StoredEmbedding is a product id and its stored embedding.
type StoredEmbedding struct {
	ProductID string
	Vector    []float64
}
