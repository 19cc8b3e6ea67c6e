package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// Unit alternations are ordered longest first so "gallons" is never read as "g".
const (
	measureUnits = `fl\.?\s*oz|litres?|liters?|gallons?|gal|pints?|pt|quarts?|qt|lbs?|kg|mg|ml|cl|oz|g|l`
	packUnits    = `packs?|pk|ct|count`
	allUnits     = measureUnits + `|` + packUnits
	number       = `(\d[\d.,]*)`
)

var (
	multipackRegex    = regexp.MustCompile(`(?i)\b(\d+)\s*x\s*` + number + `\s*(` + allUnits + `)\b`)
	packOfRegex       = regexp.MustCompile(`(?i)\bpack\s+of\s+(\d+)\b`)
	packSuffixRegex   = regexp.MustCompile(`(?i)\b(\d+)\s*-?\s*(?:` + packUnits + `)\b`)
	measureRegex      = regexp.MustCompile(`(?i)` + number + `\s*(` + measureUnits + `)\b`)
	standaloneRegex   = regexp.MustCompile(`(?i)` + number + `\s*(` + allUnits + `)\b`)
	unitNoiseReplacer = strings.NewReplacer(" ", "", "\t", "", ".", "")
)

var unitSynonyms = map[string]string{
	"litre":   "l",
	"litres":  "l",
	"liter":   "l",
	"liters":  "l",
	"floz":    "oz",
	"lbs":     "lb",
	"packs":   "pack",
	"pk":      "pack",
	"count":   "ct",
	"gallon":  "gal",
	"gallons": "gal",
	"pint":    "pt",
	"pints":   "pt",
	"quart":   "qt",
	"quarts":  "qt",
}

// Unit folds a raw unit spelling into its canonical form ("Litres" -> "l", "fl oz" -> "oz").
func Unit(raw string) string {
	u := unitNoiseReplacer.Replace(strings.ToLower(strings.TrimSpace(raw)))
	if canonical, ok := unitSynonyms[u]; ok {
		return canonical
	}
	return u
}

// ParseSize extracts {value, unit, pack_count} from a size hint or product name.
// The first matching rule wins: multipack ("6x330ml"), pack-count phrase
// ("pack of 4", "12 pk") merged with any measure in the same text, then a
// standalone "<value><unit>". A malformed number leaves value nil and keeps the unit.
func ParseSize(text string) domain.Size {
	if m := multipackRegex.FindStringSubmatch(text); m != nil {
		size := measure(m[2], m[3])
		size.PackCount = parseCount(m[1])
		return size
	}

	if count := packCount(text); count != nil {
		size := domain.Size{PackCount: count}
		if m := measureRegex.FindStringSubmatch(text); m != nil {
			measured := measure(m[1], m[2])
			size.Value = measured.Value
			size.Unit = measured.Unit
		}
		return size
	}

	if m := standaloneRegex.FindStringSubmatch(text); m != nil {
		return measure(m[1], m[2])
	}
	return domain.Size{}
}

func packCount(text string) *int {
	if m := packOfRegex.FindStringSubmatch(text); m != nil {
		return parseCount(m[1])
	}
	if m := packSuffixRegex.FindStringSubmatch(text); m != nil {
		return parseCount(m[1])
	}
	return nil
}

func measure(rawValue, rawUnit string) domain.Size {
	unit := Unit(rawUnit)
	return domain.Size{
		Value: parseValue(rawValue),
		Unit:  &unit,
	}
}

// parseValue reads commas as thousands separators: "1,000" is 1000.
func parseValue(raw string) *float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseCount(raw string) *int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}
