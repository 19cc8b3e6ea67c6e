package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
)

// BarcodeService manages crowdsourced barcode to product links.
type BarcodeService struct {
	barcodes   domain.BarcodeStore
	products   domain.ProductStore
	visibility *VisibilityProvider
	logger     zerolog.Logger
	now        func() time.Time
}

// NewBarcodeService creates a new barcode service
func NewBarcodeService(barcodes domain.BarcodeStore, products domain.ProductStore, visibility *VisibilityProvider, logger zerolog.Logger) *BarcodeService {
	return &BarcodeService{
		barcodes:   barcodes,
		products:   products,
		visibility: visibility,
		logger:     logger.With().Str("component", "barcodes").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Lookup returns the product linked to barcode, with hidden-store prices removed.
func (s *BarcodeService) Lookup(ctx context.Context, barcode string) (*domain.ProductView, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, domain.NewValidationError("barcode", "barcode is required")
	}

	mapping, err := s.barcodes.FindBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, mapping.ProductID)
	if err != nil {
		return nil, err
	}
	view := domain.NewProductView(product, s.visibility.HiddenStores(ctx))
	return &view, nil
}

// Link maps barcode to an existing product, replacing any earlier mapping.
func (s *BarcodeService) Link(ctx context.Context, barcode, productID string) (domain.BarcodeMapping, error) {
	barcode = strings.TrimSpace(barcode)
	productID = strings.TrimSpace(productID)
	if barcode == "" {
		return domain.BarcodeMapping{}, domain.NewValidationError("barcode", "barcode is required")
	}
	if productID == "" {
		return domain.BarcodeMapping{}, domain.NewValidationError("product_id", "product_id is required")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return domain.BarcodeMapping{}, err
	}

	mapping := domain.BarcodeMapping{
		Barcode:     barcode,
		ProductID:   product.ID,
		ProductName: product.Name,
		Source:      domain.BarcodeSourceUserScan,
		CreatedAt:   s.now(),
	}
	if err := s.barcodes.LinkBarcode(ctx, mapping); err != nil {
		return domain.BarcodeMapping{}, fmt.Errorf("link barcode %s: %w", barcode, err)
	}
	s.logger.Info().Str("barcode", barcode).Str("product_id", product.ID).Msg("barcode linked")
	return mapping, nil
}

// Unlink removes the mapping for barcode.
func (s *BarcodeService) Unlink(ctx context.Context, barcode string) error {
	barcode = strings.TrimSpace(barcode)
	removed, err := s.barcodes.UnlinkBarcode(ctx, barcode)
	if err != nil {
		return fmt.Errorf("unlink barcode %s: %w", barcode, err)
	}
	if !removed {
		return domain.ErrBarcodeNotFound
	}
	return nil
}
