package domain

import "strings"

// DefaultCurrency is recorded when an observation arrives without a currency.
const DefaultCurrency = "JMD"

// ManualEntry is one raw listing observed at a store, as entered manually or scraped.
type ManualEntry struct {
	Name      string   `json:"name"`
	StoreID   string   `json:"store_id,omitempty"`
	StoreName string   `json:"store_name,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	Currency  string   `json:"currency,omitempty"`
	Brand     string   `json:"brand,omitempty"`
	Category  string   `json:"category,omitempty"`
	URL       string   `json:"url,omitempty"`
	ImageURL  string   `json:"image_url,omitempty"`
	SizeHint  string   `json:"size_hint,omitempty"`
	Address   string   `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	PlaceID   string   `json:"place_id,omitempty"`
}

// HasStore reports whether the entry records a price observation.
func (e ManualEntry) HasStore() bool {
	return strings.TrimSpace(e.StoreID) != ""
}

// Validate checks the entry before any store interaction and fills the currency default.
func (e *ManualEntry) Validate() error {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return NewValidationError("name", "product name is required")
	}

	e.Currency = strings.ToUpper(strings.TrimSpace(e.Currency))
	if e.Currency == "" {
		e.Currency = DefaultCurrency
	}
	if len(e.Currency) != 3 {
		return NewValidationError("currency", "currency must be a 3-letter code")
	}

	if !e.HasStore() {
		return nil
	}
	e.StoreID = strings.TrimSpace(e.StoreID)
	if e.Price == nil {
		return NewValidationError("price", "price is required when store_id is given")
	}
	if *e.Price <= 0 {
		return NewValidationError("price", "price must be greater than zero")
	}
	return nil
}

// ProductDraft is a product created without any price observation.
type ProductDraft struct {
	Name     string `json:"name"`
	Brand    string `json:"brand,omitempty"`
	Category string `json:"category,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Draft returns the product-only part of the entry.
func (e ManualEntry) Draft() ProductDraft {
	return ProductDraft{
		Name:     e.Name,
		Brand:    e.Brand,
		Category: e.Category,
		ImageURL: e.ImageURL,
		URL:      e.URL,
	}
}

// Resolution is the outcome of resolving one listing against the catalog.
type Resolution struct {
	ProductID string `json:"product_id"`
	Created   bool   `json:"created"`
}
