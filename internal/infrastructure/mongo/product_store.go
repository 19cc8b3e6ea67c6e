package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pricelens/backend/internal/domain"
)

var newestFirst = bson.D{{Key: "updated_at", Value: -1}}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.CanonicalProduct, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrProductNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

// FindByIDs returns the products found for ids, in the order of ids.
func (s *Store) FindByIDs(ctx context.Context, ids []string) ([]domain.CanonicalProduct, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []domain.CanonicalProduct{}, nil
	}

	found, err := s.find(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find())
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.CanonicalProduct, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	ordered := make([]domain.CanonicalProduct, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
			delete(byID, id)
		}
	}
	return ordered, nil
}

func (s *Store) FindByMatchKey(ctx context.Context, matchKey string) (*domain.CanonicalProduct, error) {
	if matchKey == "" {
		return nil, domain.ErrProductNotFound
	}
	return s.findOne(ctx, bson.M{"match_key": matchKey})
}

func (s *Store) FindByNormalizedName(ctx context.Context, normalizedName string, brand *string) (*domain.CanonicalProduct, error) {
	return s.findOne(ctx, nameQuery(normalizedName, brand))
}

// Insert stores a new product and returns its id. A match key collision returns
// domain.ErrDuplicateMatchKey.
func (s *Store) Insert(ctx context.Context, product *domain.CanonicalProduct) (string, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	doc := toDocument(product)
	doc.ID = primitive.NilObjectID
	res, err := s.products.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return "", domain.ErrDuplicateMatchKey
	}
	if err != nil {
		return "", fmt.Errorf("insert product: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("insert product: unexpected id type %T", res.InsertedID)
	}
	return oid.Hex(), nil
}

func (s *Store) Update(ctx context.Context, id string, update domain.ProductUpdate) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrProductNotFound
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	res, err := s.products.UpdateByID(ctx, oid, updateDocument(update))
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateMatchKey
	}
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (s *Store) SetEmbedding(ctx context.Context, id string, embedding []float64) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrProductNotFound
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	if _, err := s.products.UpdateByID(ctx, oid, bson.M{"$set": bson.M{"embedding": embedding}}); err != nil {
		return fmt.Errorf("set embedding: %w", err)
	}
	return nil
}

func (s *Store) ListEmbeddings(ctx context.Context) ([]domain.StoredEmbedding, error) {
	ctx, cancel := context.WithTimeout(ctx, 6*s.timeout)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"embedding": 1})
	cursor, err := s.products.Find(ctx, bson.M{"embedding.0": bson.M{"$exists": true}}, opts)
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	defer cursor.Close(ctx)

	var out []domain.StoredEmbedding
	for cursor.Next(ctx) {
		var doc struct {
			ID        primitive.ObjectID `bson:"_id"`
			Embedding []float64          `bson:"embedding"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode embedding: %w", err)
		}
		out = append(out, domain.StoredEmbedding{ProductID: doc.ID.Hex(), Vector: doc.Embedding})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	return out, nil
}

// TextSearch orders matches by text relevance score.
func (s *Store) TextSearch(ctx context.Context, query string, filter domain.CatalogFilter, limit int) ([]domain.CanonicalProduct, error) {
	score := bson.M{"$meta": "textScore"}
	opts := options.Find().
		SetProjection(bson.M{"score": score, "embedding": 0}).
		SetSort(bson.D{{Key: "score", Value: score}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.find(ctx, textQuery(query, filter), opts)
}

func (s *Store) RegexSearch(ctx context.Context, query string, filter domain.CatalogFilter, limit int) ([]domain.CanonicalProduct, error) {
	return s.find(ctx, regexQuery(query, filter), listOptions(limit))
}

func (s *Store) List(ctx context.Context, filter domain.CatalogFilter, limit int) ([]domain.CanonicalProduct, error) {
	return s.find(ctx, listQuery(filter), listOptions(limit))
}

func (s *Store) CategoryCounts(ctx context.Context, limit int) ([]domain.CategoryCount, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	cursor, err := s.products.Aggregate(ctx, categoryPipeline(limit))
	if err != nil {
		return nil, fmt.Errorf("aggregate categories: %w", err)
	}
	var rows []struct {
		Category string `bson:"_id"`
		Count    int    `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}

	counts := make([]domain.CategoryCount, 0, len(rows))
	for _, r := range rows {
		counts = append(counts, domain.CategoryCount{Category: r.Category, Count: r.Count})
	}
	return counts, nil
}

func (s *Store) StoreSummaries(ctx context.Context) ([]domain.StoreSummary, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	cursor, err := s.products.Aggregate(ctx, storeSummaryPipeline())
	if err != nil {
		return nil, fmt.Errorf("aggregate stores: %w", err)
	}
	var rows []struct {
		StoreID   string `bson:"_id"`
		StoreName string `bson:"store_name"`
		Count     int    `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode stores: %w", err)
	}

	summaries := make([]domain.StoreSummary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, domain.StoreSummary{StoreID: r.StoreID, StoreName: r.StoreName, ProductCount: r.Count})
	}
	return summaries, nil
}

func listOptions(limit int) *options.FindOptions {
	opts := options.Find().
		SetSort(newestFirst).
		SetProjection(bson.M{"embedding": 0})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*domain.CanonicalProduct, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var doc productDocument
	err := s.products.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	p := doc.toDomain()
	return &p, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.CanonicalProduct, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	cursor, err := s.products.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}

	products := make([]domain.CanonicalProduct, 0, len(docs))
	for _, d := range docs {
		products = append(products, d.toDomain())
	}
	return products, nil
}
