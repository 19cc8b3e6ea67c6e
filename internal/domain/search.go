package domain

import (
	"strings"
	"time"
)

// Search ranking modes.
const (
	SearchModeText     = "text"
	SearchModeSemantic = "semantic"
	SearchModeExternal = "external"
)

// SearchPass names the strategy that produced a result set.
type SearchPass string

const (
	PassRelevance SearchPass = "relevance"
	PassFallback  SearchPass = "fallback"
	PassFilter    SearchPass = "filter"
	PassSemantic  SearchPass = "semantic"
	PassExternal  SearchPass = "external"
)

// SearchStatus distinguishes an empty result from an unavailable backend.
type SearchStatus string

const (
	StatusOK        SearchStatus = "ok"
	StatusNoMatches SearchStatus = "no_matches"
	StatusDegraded  SearchStatus = "degraded"
)

// CatalogFilter restricts a catalog query. Empty fields do not filter.
type CatalogFilter struct {
	Category string
	Tag      string
	StoreID  string
}

// IsEmpty reports whether no filter is set.
func (f CatalogFilter) IsEmpty() bool {
	return f.Category == "" && f.Tag == "" && f.StoreID == ""
}

// Matches applies the filter to p: category as a case-insensitive substring, tag by
// equality, store by any price observation or the legacy store field.
func (f CatalogFilter) Matches(p *CanonicalProduct) bool {
	if f.Category != "" {
		if p.Category == nil || !strings.Contains(strings.ToLower(*p.Category), strings.ToLower(f.Category)) {
			return false
		}
	}
	if f.Tag != "" && !p.HasTag(f.Tag) {
		return false
	}
	if f.StoreID != "" && !p.SoldAt(f.StoreID) {
		return false
	}
	return true
}

// SearchQuery holds the parameters of a catalog search.
type SearchQuery struct {
	Query    string
	Category string
	Tag      string
	StoreID  string
	Limit    int
	Mode     string
}

// Filter returns the query's catalog filter with trimmed values.
func (q SearchQuery) Filter() CatalogFilter {
	return CatalogFilter{
		Category: strings.TrimSpace(q.Category),
		Tag:      strings.ToLower(strings.TrimSpace(q.Tag)),
		StoreID:  strings.TrimSpace(q.StoreID),
	}
}

// SearchOutcome is a best-effort read result tagged with how it was produced.
type SearchOutcome struct {
	Products []ProductView
	Pass     SearchPass
	Status   SearchStatus
	Err      error
}

// CategoryOutcome is the tagged result of the category aggregation.
type CategoryOutcome struct {
	Categories []string
	Status     SearchStatus
	Err        error
}

// ProductView is the client-facing projection of a canonical product. Internal-only
// fields are absent and price observations from hidden stores are removed.
type ProductView struct {
	ID             string             `json:"_id"`
	Name           string             `json:"name"`
	NormalizedName string             `json:"normalized_name"`
	Brand          *string            `json:"brand"`
	Category       *string            `json:"category"`
	Size           Size               `json:"size"`
	Tags           []string           `json:"tags"`
	MatchKey       string             `json:"match_key,omitempty"`
	LocationPrices []PriceObservation `json:"location_prices"`
	EstimatedPrice *float64           `json:"estimated_price"`
	StoreID        string             `json:"store_id,omitempty"`
	StoreName      string             `json:"store_name,omitempty"`
	URL            *string            `json:"url,omitempty"`
	ImageURL       *string            `json:"image_url,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// NewProductView projects p for clients, dropping observations from hidden stores.
func NewProductView(p *CanonicalProduct, hidden map[string]struct{}) ProductView {
	view := ProductView{
		ID:             p.ID,
		Name:           p.Name,
		NormalizedName: p.NormalizedName,
		Brand:          p.Brand,
		Category:       p.Category,
		Size:           p.Size,
		Tags:           p.Tags,
		MatchKey:       p.MatchKey,
		EstimatedPrice: p.EstimatedPrice,
		URL:            p.URL,
		ImageURL:       p.ImageURL,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if view.Tags == nil {
		view.Tags = []string{}
	}

	if p.IsLegacy() {
		if _, isHidden := hidden[p.Legacy.StoreID]; !isHidden {
			view.StoreID = p.Legacy.StoreID
			view.StoreName = p.Legacy.StoreName
		}
		return view
	}

	view.LocationPrices = make([]PriceObservation, 0, len(p.LocationPrices))
	for _, obs := range p.LocationPrices {
		if _, isHidden := hidden[obs.LocationID]; isHidden {
			continue
		}
		view.LocationPrices = append(view.LocationPrices, obs)
	}
	return view
}
