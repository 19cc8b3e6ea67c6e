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

// textWeights are the relevance weights of the catalog text index.
var textWeights = bson.D{
	{Key: "name", Value: int32(10)},
	{Key: "normalized_name", Value: int32(8)},
	{Key: "brand", Value: int32(5)},
	{Key: "category", Value: int32(4)},
	{Key: "tags", Value: int32(3)},
}

// indexSpec is one entry of listIndexes.
type indexSpec struct {
	Name    string                 `bson:"name"`
	Key     bson.D                 `bson:"key"`
	Weights map[string]interface{} `bson:"weights,omitempty"`
}

func (s indexSpec) isText() bool {
	for _, e := range s.Key {
		if e.Key == "_fts" && e.Value == "text" {
			return true
		}
	}
	return false
}

// weightsMatch reports whether an existing text index carries exactly the expected weights.
func weightsMatch(existing map[string]interface{}, expected bson.D) bool {
	if len(existing) != len(expected) {
		return false
	}
	for _, e := range expected {
		got, ok := existing[e.Key]
		if !ok {
			return false
		}
		want, _ := asInt64(e.Value)
		n, ok := asInt64(got)
		if !ok || n != want {
			return false
		}
	}
	return true
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), n == float64(int64(n))
	default:
		return 0, false
	}
}

func textIndexModel(name string) mongo.IndexModel {
	keys := make(bson.D, 0, len(textWeights))
	for _, w := range textWeights {
		keys = append(keys, bson.E{Key: w.Key, Value: "text"})
	}
	return mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetName(name).SetWeights(textWeights),
	}
}

func supportingIndexModels() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "match_key", Value: 1}},
			Options: options.Index().
				SetName("match_key_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"match_key": bson.M{"$type": "string"}}),
		},
		{
			Keys:    bson.D{{Key: "normalized_name", Value: 1}},
			Options: options.Index().SetName("normalized_name_1"),
		},
		{
			Keys:    bson.D{{Key: "location_prices.location_id", Value: 1}},
			Options: options.Index().SetName("location_prices_location_id_1"),
		},
	}
}

// EnsureIndexes creates the weighted text index unless an identical one exists,
// replacing a text index with different weights, then the supporting indexes.
// Pre-existing duplicate match keys make the unique index fail until they are merged;
// supporting index failures come back wrapped in domain.ErrSupportingIndex.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 4*s.timeout)
	defer cancel()

	if err := s.ensureTextIndex(ctx); err != nil {
		return err
	}

	var errs []error
	if _, err := s.products.Indexes().CreateMany(ctx, supportingIndexModels()); err != nil {
		errs = append(errs, fmt.Errorf("create product indexes: %w", err))
	}
	_, err := s.barcodes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "barcode", Value: 1}},
		Options: options.Index().SetName("barcode_unique").SetUnique(true),
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("create barcode index: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrSupportingIndex, errors.Join(errs...))
	}
	return nil
}

func (s *Store) ensureTextIndex(ctx context.Context) error {
	cursor, err := s.products.Indexes().List(ctx)
	if err != nil {
		return fmt.Errorf("list product indexes: %w", err)
	}
	var specs []indexSpec
	if err := cursor.All(ctx, &specs); err != nil {
		return fmt.Errorf("decode product indexes: %w", err)
	}

	for _, spec := range specs {
		if !spec.isText() {
			continue
		}
		if weightsMatch(spec.Weights, textWeights) {
			s.logger.Debug().Str("index", spec.Name).Msg("text index is current")
			return nil
		}
		s.logger.Info().Str("index", spec.Name).Msg("dropping stale text index")
		if _, err := s.products.Indexes().DropOne(ctx, spec.Name); err != nil {
			return fmt.Errorf("drop text index %s: %w", spec.Name, err)
		}
	}

	if _, err := s.products.Indexes().CreateOne(ctx, textIndexModel(s.textIndexName)); err != nil {
		return fmt.Errorf("create text index %s: %w", s.textIndexName, err)
	}
	s.logger.Info().Str("index", s.textIndexName).Msg("created text index")
	return nil
}
