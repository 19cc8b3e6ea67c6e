// Package meili mirrors catalog products into a Meilisearch index for the external
// search ranking mode.
package meili

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meilisearch/meilisearch-go"
	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
)

// DefaultIndex is the index uid used when none is configured.
const DefaultIndex = "products"

var (
	searchableAttributes = []string{"name", "normalized_name", "brand", "category", "tags"}
	filterableAttributes = []string{"tags", "store_ids", "category"}
	sortableAttributes   = []string{"estimated_price", "updated_at"}
)

// document is the mirrored shape of a product.
type document struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	NormalizedName string   `json:"normalized_name"`
	Brand          string   `json:"brand,omitempty"`
	Category       string   `json:"category,omitempty"`
	Tags           []string `json:"tags"`
	StoreIDs       []string `json:"store_ids"`
	EstimatedPrice *float64 `json:"estimated_price,omitempty"`
	UpdatedAt      int64    `json:"updated_at"`
}

// Mirror writes products to Meilisearch and queries them back.
type Mirror struct {
	index  meilisearch.IndexManager
	client meilisearch.ServiceManager
	uid    string
	logger zerolog.Logger
}

// NewMirror connects to the Meilisearch server at url.
func NewMirror(url, apiKey, index string, logger zerolog.Logger) *Mirror {
	if index == "" {
		index = DefaultIndex
	}
	client := meilisearch.New(url, meilisearch.WithAPIKey(apiKey))
	return &Mirror{
		index:  client.Index(index),
		client: client,
		uid:    index,
		logger: logger.With().Str("component", "meili").Str("index", index).Logger(),
	}
}

// EnsureIndex creates the index and applies its attribute settings. Creating an
// existing index is harmless; Meilisearch fails that task asynchronously.
func (m *Mirror) EnsureIndex(ctx context.Context) error {
	if _, err := m.client.CreateIndex(&meilisearch.IndexConfig{Uid: m.uid, PrimaryKey: "id"}); err != nil {
		return fmt.Errorf("create index %s: %w", m.uid, err)
	}

	searchable := append([]string(nil), searchableAttributes...)
	if _, err := m.index.UpdateSearchableAttributes(&searchable); err != nil {
		return fmt.Errorf("update searchable attributes: %w", err)
	}

	filterable := make([]interface{}, len(filterableAttributes))
	for i, v := range filterableAttributes {
		filterable[i] = v
	}
	if _, err := m.index.UpdateFilterableAttributes(&filterable); err != nil {
		return fmt.Errorf("update filterable attributes: %w", err)
	}

	sortable := append([]string(nil), sortableAttributes...)
	if _, err := m.index.UpdateSortableAttributes(&sortable); err != nil {
		return fmt.Errorf("update sortable attributes: %w", err)
	}

	m.logger.Info().Msg("search mirror index configured")
	return nil
}

// Upsert adds or replaces the product's document.
func (m *Mirror) Upsert(ctx context.Context, product domain.ProductView) error {
	docs := []document{toDocument(product)}
	if _, err := m.index.AddDocuments(docs, nil); err != nil {
		return fmt.Errorf("mirror product %s: %w", product.ID, err)
	}
	return nil
}

// Search returns product ids in Meilisearch relevance order. The tag and store
// filters are applied by Meilisearch; the category substring filter is left to the caller.
func (m *Mirror) Search(ctx context.Context, query string, filter domain.CatalogFilter, limit int) ([]string, error) {
	req := &meilisearch.SearchRequest{
		Limit:                int64(limit),
		AttributesToRetrieve: []string{"id"},
	}
	if expr := filterExpression(filter); expr != "" {
		req.Filter = expr
	}

	res, err := m.index.Search(query, req)
	if err != nil {
		return nil, fmt.Errorf("search mirror: %w", err)
	}

	raw, err := json.Marshal(res.Hits)
	if err != nil {
		return nil, fmt.Errorf("decode hits: %w", err)
	}
	var hits []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &hits); err != nil {
		return nil, fmt.Errorf("decode hits: %w", err)
	}

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.ID != "" {
			ids = append(ids, h.ID)
		}
	}
	return ids, nil
}

func toDocument(p domain.ProductView) document {
	doc := document{
		ID:             p.ID,
		Name:           p.Name,
		NormalizedName: p.NormalizedName,
		Tags:           p.Tags,
		StoreIDs:       []string{},
		EstimatedPrice: p.EstimatedPrice,
		UpdatedAt:      p.UpdatedAt.Unix(),
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	if p.Brand != nil {
		doc.Brand = *p.Brand
	}
	if p.Category != nil {
		doc.Category = *p.Category
	}
	for _, obs := range p.LocationPrices {
		doc.StoreIDs = append(doc.StoreIDs, obs.LocationID)
	}
	if p.StoreID != "" {
		doc.StoreIDs = append(doc.StoreIDs, p.StoreID)
	}
	return doc
}

func filterExpression(f domain.CatalogFilter) string {
	var parts []string
	if f.Tag != "" {
		parts = append(parts, "tags = "+quote(f.Tag))
	}
	if f.StoreID != "" {
		parts = append(parts, "store_ids = "+quote(f.StoreID))
	}
	return strings.Join(parts, " AND ")
}

func quote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
}

var _ domain.ExternalIndex = (*Mirror)(nil)
