package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/pricelens/backend/internal/domain"
)

// amountValue stores a domain.Amount: numbers as doubles, free text as strings.
type amountValue struct {
	domain.Amount
}

// MarshalBSONValue stores numeric amounts as doubles.
func (a amountValue) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if v, ok := a.Float64(); ok {
		return bson.MarshalValue(v)
	}
	if raw := a.String(); raw != "" {
		return bson.MarshalValue(raw)
	}
	return bson.TypeNull, nil, nil
}

// UnmarshalBSONValue reads doubles, integers, decimals and strings.
func (a *amountValue) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	rv := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeDouble:
		a.Amount = domain.NewAmount(rv.Double())
	case bson.TypeInt32:
		a.Amount = domain.NewAmount(float64(rv.Int32()))
	case bson.TypeInt64:
		a.Amount = domain.NewAmount(float64(rv.Int64()))
	case bson.TypeDecimal128:
		a.Amount = domain.ParseAmount(rv.Decimal128().String())
	case bson.TypeString:
		a.Amount = domain.ParseAmount(rv.StringValue())
	default:
		a.Amount = domain.Amount{}
	}
	return nil
}

// observationDocument is the stored shape of one location_prices entry.
type observationDocument struct {
	LocationID string      `bson:"location_id"`
	StoreName  string      `bson:"store_name,omitempty"`
	Amount     amountValue `bson:"amount"`
	Currency   string      `bson:"currency"`
	LastSeenAt time.Time   `bson:"last_seen_at"`

	Address   string   `bson:"address,omitempty"`
	Latitude  *float64 `bson:"latitude,omitempty"`
	Longitude *float64 `bson:"longitude,omitempty"`
	PlaceID   string   `bson:"place_id,omitempty"`
}

func toObservationDocuments(prices []domain.PriceObservation) []observationDocument {
	docs := make([]observationDocument, 0, len(prices))
	for _, p := range prices {
		docs = append(docs, observationDocument{
			LocationID: p.LocationID,
			StoreName:  p.StoreName,
			Amount:     amountValue{p.Amount},
			Currency:   p.Currency,
			LastSeenAt: p.LastSeenAt,
			Address:    p.Address,
			Latitude:   p.Latitude,
			Longitude:  p.Longitude,
			PlaceID:    p.PlaceID,
		})
	}
	return docs
}

func toObservations(docs []observationDocument) []domain.PriceObservation {
	if docs == nil {
		return nil
	}
	prices := make([]domain.PriceObservation, 0, len(docs))
	for _, d := range docs {
		prices = append(prices, domain.PriceObservation{
			LocationID: d.LocationID,
			StoreName:  d.StoreName,
			Amount:     d.Amount.Amount,
			Currency:   d.Currency,
			LastSeenAt: d.LastSeenAt,
			Address:    d.Address,
			Latitude:   d.Latitude,
			Longitude:  d.Longitude,
			PlaceID:    d.PlaceID,
		})
	}
	return prices
}
