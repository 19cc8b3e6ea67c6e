package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pricelens/backend/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestFilterConditions(t *testing.T) {
	t.Run("empty filter matches everything", func(t *testing.T) {
		assert.Equal(t, bson.M{}, listQuery(domain.CatalogFilter{}))
	})

	t.Run("single condition is not wrapped", func(t *testing.T) {
		assert.Equal(t, bson.M{"tags": "pasta"}, listQuery(domain.CatalogFilter{Tag: "pasta"}))
	})

	t.Run("category is an escaped case-insensitive substring", func(t *testing.T) {
		q := listQuery(domain.CatalogFilter{Category: "Baby & Infant (0+)"})
		assert.Equal(t, primitive.Regex{Pattern: `Baby & Infant \(0\+\)`, Options: "i"}, q["category"])
	})

	t.Run("store matches observations or legacy field", func(t *testing.T) {
		q := listQuery(domain.CatalogFilter{StoreID: "A"})
		assert.Equal(t, bson.A{
			bson.M{"location_prices.location_id": "A"},
			bson.M{"store_id": "A"},
		}, q["$or"])
	})

	t.Run("conditions are combined with and", func(t *testing.T) {
		q := listQuery(domain.CatalogFilter{Category: "pasta", Tag: "pasta", StoreID: "A"})
		all, ok := q["$and"].(bson.A)
		require.True(t, ok)
		assert.Len(t, all, 3)
	})
}

func TestTextQuery(t *testing.T) {
	q := textQuery("grace ketchup", domain.CatalogFilter{})
	assert.Equal(t, bson.M{"$text": bson.M{"$search": "grace ketchup"}}, q)

	q = textQuery("ketchup", domain.CatalogFilter{Tag: "condiments"})
	all, ok := q["$and"].(bson.A)
	require.True(t, ok)
	assert.Equal(t, bson.M{"$text": bson.M{"$search": "ketchup"}}, all[0])
	assert.Equal(t, bson.M{"tags": "condiments"}, all[1])
}

func TestRegexQuery(t *testing.T) {
	q := regexQuery("maca", domain.CatalogFilter{})
	or, ok := q["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, len(searchableFields))
	assert.Equal(t, bson.M{"name": primitive.Regex{Pattern: "maca", Options: "i"}}, or[0])

	t.Run("metacharacters are literal", func(t *testing.T) {
		q := regexQuery("c++", domain.CatalogFilter{})
		or := q["$or"].(bson.A)
		assert.Equal(t, bson.M{"name": primitive.Regex{Pattern: `c\+\+`, Options: "i"}}, or[0])
	})
}

func TestNameQuery(t *testing.T) {
	assert.Equal(t, bson.M{"normalized_name": "ketchup"}, nameQuery("ketchup", nil))

	q := nameQuery("ketchup", strPtr("Grace"))
	assert.Equal(t, "ketchup", q["normalized_name"])
	assert.Equal(t, bson.A{
		bson.M{"brand": "Grace"},
		bson.M{"brand": nil},
		bson.M{"brand": ""},
	}, q["$or"])
}

func TestUpdateDocument(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	price := 150.0
	key := "ketchup|grace|||"

	t.Run("only given fields are set", func(t *testing.T) {
		u := updateDocument(domain.ProductUpdate{
			LocationPrices: []domain.PriceObservation{{LocationID: "A"}},
			EstimatedPrice: &price,
			MatchKey:       &key,
			UpdatedAt:      now,
		})
		set := u["$set"].(bson.M)
		assert.Len(t, set, 4)
		assert.Equal(t, now, set["updated_at"])
		assert.Equal(t, 150.0, set["estimated_price"])
		assert.Equal(t, key, set["match_key"])
		assert.Equal(t, []observationDocument{{LocationID: "A"}}, set["location_prices"])
		assert.NotContains(t, u, "$unset")
	})

	t.Run("legacy fields are unset", func(t *testing.T) {
		u := updateDocument(domain.ProductUpdate{ClearLegacy: true, UpdatedAt: now})
		assert.Equal(t, bson.M{"store_id": "", "store_name": "", "price": "", "currency": ""}, u["$unset"])
	})

	t.Run("metadata backfill", func(t *testing.T) {
		u := updateDocument(domain.ProductUpdate{
			Brand:    strPtr("Grace"),
			Category: strPtr("Condiments"),
			Tags:     []string{"condiments"},
			URL:      strPtr("https://shop.example/k"),
			ImageURL: strPtr("https://shop.example/k.png"),
			Checksum: strPtr("abc"),
		})
		set := u["$set"].(bson.M)
		assert.Equal(t, "Grace", set["brand"])
		assert.Equal(t, []string{"condiments"}, set["tags"])
		assert.Equal(t, "abc", set["checksum"])
	})
}

func TestPipelines(t *testing.T) {
	t.Run("categories are split, grouped and limited", func(t *testing.T) {
		p := categoryPipeline(20)
		require.Len(t, p, 8)
		assert.Equal(t, "$match", p[0][0].Key)
		assert.Equal(t, bson.M{"parts": bson.M{"$split": bson.A{"$category", ","}}}, p[1][0].Value)
		assert.Equal(t, "$unwind", p[2][0].Key)
		assert.Equal(t, bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}, p[6][0].Value)
		assert.Equal(t, 20, p[7][0].Value)
	})

	t.Run("stores group by location", func(t *testing.T) {
		p := storeSummaryPipeline()
		require.Len(t, p, 5)
		group := p[3][0].Value.(bson.M)
		assert.Equal(t, "$stores.location_id", group["_id"])
	})

	t.Run("pipelines marshal", func(t *testing.T) {
		for _, stage := range append(categoryPipeline(5), storeSummaryPipeline()...) {
			_, err := bson.Marshal(stage)
			assert.NoError(t, err)
		}
	})
}

func TestObjectIDs(t *testing.T) {
	valid := primitive.NewObjectID()
	oids := objectIDs([]string{valid.Hex(), "not-an-id", ""})
	assert.Equal(t, []primitive.ObjectID{valid}, oids)
}
