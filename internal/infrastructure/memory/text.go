package memory

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/pricelens/backend/internal/domain"
)

// Text weights of the catalog's searchable fields.
const (
	weightName           = 10.0
	weightNormalizedName = 8.0
	weightBrand          = 5.0
	weightCategory       = 4.0
	weightTags           = 3.0
)

// stopWords are dropped from text queries the way a text index drops them.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "in": true, "is": true,
	"it": true, "of": true, "on": true, "or": true, "the": true, "to": true,
	"with": true,
}

// words splits s into lowercase letter/digit runs.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func queryTerms(query string) []string {
	var terms []string
	seen := make(map[string]bool)
	for _, w := range words(query) {
		if stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, w)
	}
	return terms
}

func textScore(p *domain.CanonicalProduct, terms []string) float64 {
	score := fieldScore(p.Name, terms, weightName) +
		fieldScore(p.NormalizedName, terms, weightNormalizedName) +
		fieldScore(deref(p.Brand), terms, weightBrand) +
		fieldScore(deref(p.Category), terms, weightCategory)
	for _, tag := range p.Tags {
		score += fieldScore(tag, terms, weightTags)
	}
	return score
}

func fieldScore(field string, terms []string, weight float64) float64 {
	if field == "" {
		return 0
	}
	var hits int
	for _, w := range words(field) {
		for _, term := range terms {
			if w == term {
				hits++
			}
		}
	}
	return float64(hits) * weight
}

func matchesPattern(p *domain.CanonicalProduct, pattern *regexp.Regexp) bool {
	if pattern.MatchString(p.Name) ||
		pattern.MatchString(p.NormalizedName) ||
		pattern.MatchString(deref(p.Brand)) ||
		pattern.MatchString(deref(p.Category)) {
		return true
	}
	for _, tag := range p.Tags {
		if pattern.MatchString(tag) {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
