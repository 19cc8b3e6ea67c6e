package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pricelens/backend/internal/domain"
)

// productDocument is the stored shape of a canonical product. The store_id,
// store_name, price and currency fields only exist on rows written before
// location_prices; merges unset them.
type productDocument struct {
	ID             primitive.ObjectID    `bson:"_id,omitempty"`
	Name           string                `bson:"name"`
	NormalizedName string                `bson:"normalized_name"`
	Brand          *string               `bson:"brand"`
	Category       *string               `bson:"category"`
	Size           sizeDocument          `bson:"size"`
	Tags           []string              `bson:"tags"`
	MatchKey       string                `bson:"match_key,omitempty"`
	Checksum       string                `bson:"checksum,omitempty"`
	LocationPrices []observationDocument `bson:"location_prices"`
	EstimatedPrice *float64              `bson:"estimated_price"`
	URL            *string               `bson:"url"`
	ImageURL       *string               `bson:"image_url"`
	Embedding      []float64             `bson:"embedding,omitempty"`
	Aliases        []string              `bson:"aliases"`
	CreatedAt      time.Time             `bson:"created_at"`
	UpdatedAt      time.Time             `bson:"updated_at"`

	StoreID   string       `bson:"store_id,omitempty"`
	StoreName string       `bson:"store_name,omitempty"`
	Price     *amountValue `bson:"price,omitempty"`
	Currency  string       `bson:"currency,omitempty"`
}

// sizeDocument is the stored shape of a parsed size.
type sizeDocument struct {
	Value     *float64 `bson:"value"`
	Unit      *string  `bson:"unit"`
	PackCount *int     `bson:"pack_count"`
}

func toDocument(p *domain.CanonicalProduct) productDocument {
	doc := productDocument{
		Name:           p.Name,
		NormalizedName: p.NormalizedName,
		Brand:          p.Brand,
		Category:       p.Category,
		Size:           sizeDocument(p.Size),
		Tags:           p.Tags,
		MatchKey:       p.MatchKey,
		Checksum:       p.Checksum,
		LocationPrices: toObservationDocuments(p.LocationPrices),
		EstimatedPrice: p.EstimatedPrice,
		URL:            p.URL,
		ImageURL:       p.ImageURL,
		Embedding:      p.Embedding,
		Aliases:        p.Aliases,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	if doc.Aliases == nil {
		doc.Aliases = []string{}
	}
	if p.ID != "" {
		if oid, err := primitive.ObjectIDFromHex(p.ID); err == nil {
			doc.ID = oid
		}
	}
	return doc
}

func (d productDocument) toDomain() domain.CanonicalProduct {
	p := domain.CanonicalProduct{
		ID:             d.ID.Hex(),
		Name:           d.Name,
		NormalizedName: d.NormalizedName,
		Brand:          d.Brand,
		Category:       d.Category,
		Size:           domain.Size(d.Size),
		Tags:           d.Tags,
		MatchKey:       d.MatchKey,
		Checksum:       d.Checksum,
		LocationPrices: toObservations(d.LocationPrices),
		EstimatedPrice: d.EstimatedPrice,
		URL:            d.URL,
		ImageURL:       d.ImageURL,
		Embedding:      d.Embedding,
		Aliases:        d.Aliases,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if d.StoreID != "" {
		legacy := &domain.LegacyListing{
			StoreID:   d.StoreID,
			StoreName: d.StoreName,
			Currency:  d.Currency,
		}
		if d.Price != nil {
			legacy.Price = d.Price.Amount
		}
		p.Legacy = legacy
	}
	return p
}

// barcodeDocument is the stored shape of a barcode mapping.
type barcodeDocument struct {
	Barcode     string    `bson:"barcode"`
	ProductID   string    `bson:"product_id"`
	ProductName string    `bson:"product_name,omitempty"`
	Source      string    `bson:"source"`
	CreatedAt   time.Time `bson:"created_at"`
}

func (d barcodeDocument) toDomain() domain.BarcodeMapping {
	return domain.BarcodeMapping{
		Barcode:     d.Barcode,
		ProductID:   d.ProductID,
		ProductName: d.ProductName,
		Source:      d.Source,
		CreatedAt:   d.CreatedAt,
	}
}

type storeSettingDocument struct {
	StoreID string `bson:"store_id"`
	Visible bool   `bson:"visible"`
}
