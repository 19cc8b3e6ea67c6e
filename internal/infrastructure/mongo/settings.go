package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pricelens/backend/internal/domain"
)

// HiddenStoreIDs returns the stores whose settings mark them not visible.
func (s *Store) HiddenStoreIDs(ctx context.Context) (map[string]struct{}, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"store_id": 1, "visible": 1})
	cursor, err := s.storeSettings.Find(ctx, bson.M{"visible": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("find store settings: %w", err)
	}
	var settings []storeSettingDocument
	if err := cursor.All(ctx, &settings); err != nil {
		return nil, fmt.Errorf("decode store settings: %w", err)
	}

	hidden := make(map[string]struct{}, len(settings))
	for _, setting := range settings {
		if setting.StoreID != "" {
			hidden[setting.StoreID] = struct{}{}
		}
	}
	return hidden, nil
}

func (s *Store) FindBarcode(ctx context.Context, barcode string) (*domain.BarcodeMapping, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var doc barcodeDocument
	err := s.barcodes.FindOne(ctx, bson.M{"barcode": barcode}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrBarcodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find barcode: %w", err)
	}
	m := doc.toDomain()
	return &m, nil
}

// LinkBarcode upserts the mapping for mapping.Barcode.
func (s *Store) LinkBarcode(ctx context.Context, mapping domain.BarcodeMapping) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	doc := barcodeDocument{
		Barcode:     mapping.Barcode,
		ProductID:   mapping.ProductID,
		ProductName: mapping.ProductName,
		Source:      mapping.Source,
		CreatedAt:   mapping.CreatedAt,
	}
	_, err := s.barcodes.UpdateOne(ctx,
		bson.M{"barcode": mapping.Barcode},
		bson.M{"$set": doc},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("link barcode: %w", err)
	}
	return nil
}

func (s *Store) UnlinkBarcode(ctx context.Context, barcode string) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	res, err := s.barcodes.DeleteOne(ctx, bson.M{"barcode": barcode})
	if err != nil {
		return false, fmt.Errorf("unlink barcode: %w", err)
	}
	return res.DeletedCount > 0, nil
}
