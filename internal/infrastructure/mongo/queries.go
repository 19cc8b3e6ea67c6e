package mongo

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/pricelens/backend/internal/domain"
)

// searchableFields are matched by the regex fallback.
var searchableFields = []string{"name", "normalized_name", "brand", "category", "tags"}

func containsInsensitive(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// filterConditions translates a catalog filter into query conditions.
func filterConditions(f domain.CatalogFilter) []bson.M {
	var conds []bson.M
	if f.Category != "" {
		conds = append(conds, bson.M{"category": containsInsensitive(f.Category)})
	}
	if f.Tag != "" {
		conds = append(conds, bson.M{"tags": f.Tag})
	}
	if f.StoreID != "" {
		conds = append(conds, bson.M{"$or": bson.A{
			bson.M{"location_prices.location_id": f.StoreID},
			bson.M{"store_id": f.StoreID},
		}})
	}
	return conds
}

func and(conds []bson.M) bson.M {
	switch len(conds) {
	case 0:
		return bson.M{}
	case 1:
		return conds[0]
	default:
		all := make(bson.A, len(conds))
		for i, c := range conds {
			all[i] = c
		}
		return bson.M{"$and": all}
	}
}

// listQuery selects the products matching f.
func listQuery(f domain.CatalogFilter) bson.M {
	return and(filterConditions(f))
}

// textQuery runs query against the weighted text index, combined with f.
func textQuery(query string, f domain.CatalogFilter) bson.M {
	conds := append([]bson.M{{"$text": bson.M{"$search": query}}}, filterConditions(f)...)
	return and(conds)
}

// regexQuery matches query as a case-insensitive substring of any searchable field.
func regexQuery(query string, f domain.CatalogFilter) bson.M {
	pattern := containsInsensitive(query)
	or := make(bson.A, 0, len(searchableFields))
	for _, field := range searchableFields {
		or = append(or, bson.M{field: pattern})
	}
	conds := append([]bson.M{{"$or": or}}, filterConditions(f)...)
	return and(conds)
}

// nameQuery matches a normalized name; a non-nil brand also admits products with
// no brand recorded.
func nameQuery(normalizedName string, brand *string) bson.M {
	q := bson.M{"normalized_name": normalizedName}
	if brand != nil {
		q["$or"] = bson.A{
			bson.M{"brand": *brand},
			bson.M{"brand": nil},
			bson.M{"brand": ""},
		}
	}
	return q
}

// updateDocument builds the single update one merge writes.
func updateDocument(u domain.ProductUpdate) bson.M {
	set := bson.M{"updated_at": u.UpdatedAt}
	if u.LocationPrices != nil {
		set["location_prices"] = toObservationDocuments(u.LocationPrices)
	}
	if u.EstimatedPrice != nil {
		set["estimated_price"] = *u.EstimatedPrice
	}
	if u.Brand != nil {
		set["brand"] = *u.Brand
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Tags != nil {
		set["tags"] = u.Tags
	}
	if u.URL != nil {
		set["url"] = *u.URL
	}
	if u.ImageURL != nil {
		set["image_url"] = *u.ImageURL
	}
	if u.MatchKey != nil {
		set["match_key"] = *u.MatchKey
	}
	if u.Checksum != nil {
		set["checksum"] = *u.Checksum
	}

	update := bson.M{"$set": set}
	if u.ClearLegacy {
		update["$unset"] = bson.M{"store_id": "", "store_name": "", "price": "", "currency": ""}
	}
	return update
}

// categoryPipeline counts individual categories, splitting comma-joined values.
func categoryPipeline(limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"category": bson.M{"$type": "string", "$ne": ""}}}},
		{{Key: "$project", Value: bson.M{"parts": bson.M{"$split": bson.A{"$category", ","}}}}},
		{{Key: "$unwind", Value: "$parts"}},
		{{Key: "$project", Value: bson.M{"category": bson.M{"$trim": bson.M{"input": "$parts"}}}}},
		{{Key: "$match", Value: bson.M{"category": bson.M{"$ne": ""}}}},
		{{Key: "$group", Value: bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}
}

// storeSummaryPipeline counts products per store across location_prices and the
// legacy store fields.
func storeSummaryPipeline() mongo.Pipeline {
	legacy := bson.A{bson.M{"location_id": "$store_id", "store_name": "$store_name"}}
	observations := bson.M{"$cond": bson.A{
		bson.M{"$gt": bson.A{bson.M{"$size": bson.M{"$ifNull": bson.A{"$location_prices", bson.A{}}}}, 0}},
		"$location_prices",
		bson.M{"$cond": bson.A{bson.M{"$ifNull": bson.A{"$store_id", false}}, legacy, bson.A{}}},
	}}

	return mongo.Pipeline{
		{{Key: "$project", Value: bson.M{"stores": observations}}},
		{{Key: "$unwind", Value: "$stores"}},
		{{Key: "$match", Value: bson.M{"stores.location_id": bson.M{"$nin": bson.A{nil, ""}}}}},
		{{Key: "$group", Value: bson.M{
			"_id":        "$stores.location_id",
			"store_name": bson.M{"$first": "$stores.store_name"},
			"count":      bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
}

// objectIDs converts hex ids, skipping malformed ones.
func objectIDs(ids []string) []primitive.ObjectID {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id)); err == nil {
			oids = append(oids, oid)
		}
	}
	return oids
}
