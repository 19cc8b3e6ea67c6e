// Package importer reads store listings from files for bulk ingestion.
package importer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pricelens/backend/internal/domain"
)

var (
	// ErrUnsupportedFormat is returned for file extensions no reader handles.
	ErrUnsupportedFormat = errors.New("unsupported listing file format")
	// ErrNoListings is returned when a source holds nothing that looks like a product.
	ErrNoListings = errors.New("no listings found")
)

// Defaults fill store fields a source does not carry itself.
type Defaults struct {
	StoreID   string
	StoreName string
	Currency  string
}

func (d Defaults) apply(e *domain.ManualEntry) {
	if strings.TrimSpace(e.StoreID) == "" {
		e.StoreID = d.StoreID
		if e.StoreName == "" {
			e.StoreName = d.StoreName
		}
	}
	if strings.TrimSpace(e.Currency) == "" {
		e.Currency = d.Currency
	}
}

// ReadFile reads listings from path, choosing the reader by extension.
func ReadFile(path string, d Defaults) ([]domain.ManualEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson", ".json":
		return ReadJSON(f, d)
	case ".xlsx":
		return ReadXLSX(f, d)
	case ".html", ".htm":
		return ReadHTML(f, "", d)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// parsePrice reads a price cell such as "J$1,250.00" or "350". It returns nil when
// the text holds no number.
func parsePrice(s string) *float64 {
	s = strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	})
	v, ok := domain.ParseAmount(s).Float64()
	if !ok {
		return nil
	}
	return &v
}
