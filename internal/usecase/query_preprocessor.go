package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// QueryPreprocessor reduces a noisy listing name to the words that identify the
// product. Its output feeds the embedding and categorization providers.
type QueryPreprocessor struct {
	logger zerolog.Logger
}

var (
	// Size/quantity phrases like "128 fl oz", "1.5 liter", "2 lb", "500g"
	sizeQuantityPattern = regexp.MustCompile(`(?i)\b\d+[.,]?\d*\s*(fl\.?\s*)?(oz|ounces?|lbs?|pounds?|ml|cl|l|litres?|liters?|gallons?|gal|quarts?|qt|pints?|pt|kg|grams?|g|mg)\b`)

	// Pack/count phrases like "12 pack", "pack of 6", "6-pack", "24 ct", "6x330ml"
	packCountPattern = regexp.MustCompile(`(?i)\b\d+\s*x\s*|\b\d+[-\s]*(packs?|pk|count|ct)\b|\bpack\s*of\s*\d+\b|\b\d+\s*(cans?|bottles?|pouches?|bars?|pieces?)\b`)

	// Lone punctuation left behind once sizes are removed
	orphanPunctuationPattern = regexp.MustCompile(`\s+[,\-;:]+\s+|[,\-;:]+\s*$|^\s*[,\-;:]+`)

	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// queryNoiseWords are marketing and packaging terms that do not identify a product.
var queryNoiseWords = map[string]bool{
	// Marketing terms
	"value": true, "family": true, "bonus": true, "new": true, "improved": true,
	"premium": true, "select": true, "choice": true, "quality": true, "best": true,
	"special": true, "offer": true, "promo": true, "sale": true,

	// Size descriptors
	"size": true, "large": true, "medium": true, "small": true, "mini": true,
	"jumbo": true, "giant": true, "big": true, "single": true, "double": true,

	// Packaging terms
	"package": true, "box": true, "bag": true, "bottle": true, "can": true,
	"jar": true, "tub": true, "carton": true, "sachet": true, "pouch": true,
	"tin": true, "tube": true,

	// Generic terms
	"item": true, "product": true, "brand": true, "each": true, "ea": true,
}

// maxQueryLength caps preprocessed queries, cut at a word boundary when possible.
const maxQueryLength = 100

// NewQueryPreprocessor creates a new query preprocessor
func NewQueryPreprocessor(logger zerolog.Logger) *QueryPreprocessor {
	return &QueryPreprocessor{logger: logger}
}

// PreprocessQuery removes sizes, pack counts and noise words from name and prefixes
// brand when the name does not already mention it.
func (p *QueryPreprocessor) PreprocessQuery(name, brand string) string {
	if strings.TrimSpace(name) == "" {
		return strings.TrimSpace(brand)
	}

	cleaned := packCountPattern.ReplaceAllString(name, " ")
	cleaned = sizeQuantityPattern.ReplaceAllString(cleaned, " ")
	cleaned = removeNoiseWords(cleaned)
	cleaned = orphanPunctuationPattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(multiSpacePattern.ReplaceAllString(cleaned, " "))

	brand = strings.TrimSpace(brand)
	if brand != "" && !strings.Contains(strings.ToLower(cleaned), strings.ToLower(brand)) {
		cleaned = strings.TrimSpace(brand + " " + cleaned)
	}

	if len(cleaned) > maxQueryLength {
		cut := maxQueryLength
		for cut > 0 && !utf8.RuneStart(cleaned[cut]) {
			cut--
		}
		cleaned = cleaned[:cut]
		if lastSpace := strings.LastIndex(cleaned, " "); lastSpace > maxQueryLength/2 {
			cleaned = cleaned[:lastSpace]
		}
	}

	p.logger.Debug().Str("input", name).Str("output", cleaned).Msg("preprocessed query")
	return cleaned
}

// removeNoiseWords drops noise words, lowercasing what remains.
func removeNoiseWords(s string) string {
	words := strings.Fields(strings.ToLower(s))
	kept := words[:0]
	for _, word := range words {
		if !queryNoiseWords[strings.Trim(word, ",.!?;:-'\"()")] {
			kept = append(kept, word)
		}
	}
	return strings.Join(kept, " ")
}
