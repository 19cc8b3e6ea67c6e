package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound is returned when no canonical product matches a lookup
	ErrProductNotFound = errors.New("product not found")

	// ErrStoreNotFound is returned when a store lookup yields no location
	ErrStoreNotFound = errors.New("store not found")

	// ErrBarcodeNotFound is returned when a barcode has no product mapping
	ErrBarcodeNotFound = errors.New("barcode mapping not found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrDuplicateMatchKey is returned when an insert collides with an existing match key
	ErrDuplicateMatchKey = errors.New("duplicate match key")

	// ErrSupportingIndex is returned when the text index is ready but a supporting index could not be built
	ErrSupportingIndex = errors.New("supporting index unavailable")

	// ErrCatalogUnavailable is returned when the catalog store cannot serve a read
	ErrCatalogUnavailable = errors.New("catalog store unavailable")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrGeoAPIFailure is returned when the geolocation API request fails
	ErrGeoAPIFailure = errors.New("geolocation API request failed")

	// ErrEnrichmentUnavailable is returned when an optional enrichment provider is not configured
	ErrEnrichmentUnavailable = errors.New("enrichment provider unavailable")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap makes errors.Is(err, ErrInvalidRequest) hold for validation failures.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}
