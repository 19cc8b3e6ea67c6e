package usecase

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/matchkey"
	"github.com/pricelens/backend/internal/normalize"
)

// listing is a validated manual entry in canonical form.
type listing struct {
	name           string
	normalizedName string
	brand          *string
	category       *string
	url            *string
	imageURL       *string
	size           domain.Size
	matchKey       string
	checksum       string
	observation    domain.PriceObservation
}

// prepareListing normalizes a validated entry and computes its fingerprints.
// The size is parsed from the size hint when given, else from the name.
func prepareListing(entry domain.ManualEntry, now time.Time) listing {
	l := listing{
		name:           entry.Name,
		normalizedName: normalize.Name(entry.Name),
		brand:          normalize.CleanOptionalText(entry.Brand),
		category:       normalize.CleanOptionalText(entry.Category),
		url:            normalize.CleanOptionalText(entry.URL),
		imageURL:       normalize.CleanOptionalText(entry.ImageURL),
	}

	sizeSource := entry.Name
	if hint := strings.TrimSpace(entry.SizeHint); hint != "" {
		sizeSource = hint
	}
	l.size = normalize.ParseSize(sizeSource)

	l.matchKey = matchkey.Build(l.normalizedName, l.brand, l.size)
	l.checksum = matchkey.Checksum(entry.StoreID, l.normalizedName, l.brand, l.size)

	var amount domain.Amount
	if entry.Price != nil {
		amount = domain.NewAmount(*entry.Price)
	}
	l.observation = domain.PriceObservation{
		LocationID: entry.StoreID,
		StoreName:  strings.TrimSpace(entry.StoreName),
		Amount:     amount,
		Currency:   entry.Currency,
		LastSeenAt: now,
		Address:    strings.TrimSpace(entry.Address),
		Latitude:   entry.Latitude,
		Longitude:  entry.Longitude,
		PlaceID:    strings.TrimSpace(entry.PlaceID),
	}
	return l
}

// newProduct builds the canonical product created for a listing with no match.
func newProduct(l listing, now time.Time) *domain.CanonicalProduct {
	var estimate *float64
	if v, ok := l.observation.Amount.Float64(); ok {
		estimate = &v
	}
	return &domain.CanonicalProduct{
		Name:           l.name,
		NormalizedName: l.normalizedName,
		Brand:          l.brand,
		Category:       l.category,
		Size:           l.size,
		Tags:           categoryTags(l.category),
		MatchKey:       l.matchKey,
		Checksum:       l.checksum,
		LocationPrices: []domain.PriceObservation{l.observation},
		EstimatedPrice: estimate,
		URL:            l.url,
		ImageURL:       l.imageURL,
		Aliases:        []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// planMerge computes the single update that folds l into p. Metadata only fills
// gaps; the store's observation replaces any earlier one from the same store.
func planMerge(p *domain.CanonicalProduct, l listing, now time.Time) domain.ProductUpdate {
	prices := upsertObservation(p.Observations(), l.observation)
	update := domain.ProductUpdate{
		LocationPrices: prices,
		EstimatedPrice: estimatePrice(prices),
		ClearLegacy:    p.Legacy != nil,
		UpdatedAt:      now,
	}

	if isBlank(p.Brand) && l.brand != nil {
		update.Brand = l.brand
	}
	if isBlank(p.Category) && l.category != nil {
		update.Category = l.category
		if tag := strings.ToLower(*l.category); !p.HasTag(tag) {
			update.Tags = append(append([]string{}, p.Tags...), tag)
		}
	}
	if isBlank(p.ImageURL) && l.imageURL != nil {
		update.ImageURL = l.imageURL
	}
	if l.url != nil && (isBlank(p.URL) || (domain.IsPlaceholderURL(p.URL) && !domain.IsPlaceholderURL(l.url))) {
		update.URL = l.url
	}
	if p.MatchKey == "" {
		update.MatchKey = &l.matchKey
	}
	if p.Checksum == "" {
		update.Checksum = &l.checksum
	}
	return update
}

// applyUpdate returns a copy of p with update applied, mirroring what the store persists.
func applyUpdate(p domain.CanonicalProduct, update domain.ProductUpdate) domain.CanonicalProduct {
	if update.LocationPrices != nil {
		p.LocationPrices = update.LocationPrices
	}
	if update.EstimatedPrice != nil {
		p.EstimatedPrice = update.EstimatedPrice
	}
	if update.Brand != nil {
		p.Brand = update.Brand
	}
	if update.Category != nil {
		p.Category = update.Category
	}
	if update.Tags != nil {
		p.Tags = update.Tags
	}
	if update.URL != nil {
		p.URL = update.URL
	}
	if update.ImageURL != nil {
		p.ImageURL = update.ImageURL
	}
	if update.MatchKey != nil {
		p.MatchKey = *update.MatchKey
	}
	if update.Checksum != nil {
		p.Checksum = *update.Checksum
	}
	if update.ClearLegacy {
		p.Legacy = nil
	}
	p.UpdatedAt = update.UpdatedAt
	return p
}

// upsertObservation replaces the observation for obs.LocationID, or appends it.
func upsertObservation(existing []domain.PriceObservation, obs domain.PriceObservation) []domain.PriceObservation {
	prices := make([]domain.PriceObservation, 0, len(existing)+1)
	replaced := false
	for _, current := range existing {
		if current.LocationID == obs.LocationID {
			prices = append(prices, obs)
			replaced = true
			continue
		}
		prices = append(prices, current)
	}
	if !replaced {
		prices = append(prices, obs)
	}
	return prices
}

// estimatePrice is the mean of the numeric amounts rounded to 2 decimals, or nil
// when no amount is numeric.
func estimatePrice(prices []domain.PriceObservation) *float64 {
	sum := decimal.Zero
	var n int64
	for _, obs := range prices {
		v, ok := obs.Amount.Float64()
		if !ok {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(v))
		n++
	}
	if n == 0 {
		return nil
	}
	mean, _ := sum.Div(decimal.NewFromInt(n)).Round(2).Float64()
	return &mean
}

func categoryTags(category *string) []string {
	if category == nil {
		return []string{}
	}
	return []string{strings.ToLower(*category)}
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
