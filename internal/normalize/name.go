// Package normalize turns free-text product fields into comparable canonical forms.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespaceRegex      = regexp.MustCompile(`\s+`)
)

// foldAccents maps "é" to "e" so accented and plain spellings normalize alike.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// spacesToASCII maps every Unicode space (no-break, thin, ideographic) to ' '.
func spacesToASCII(r rune) rune {
	if unicode.IsSpace(r) {
		return ' '
	}
	return r
}

// Name lowercases text, removes every character outside [a-z0-9] and whitespace,
// collapses whitespace runs and trims. Punctuation is removed, not replaced:
// "Coca-Cola" becomes "cocacola".
func Name(text string) string {
	if text == "" {
		return ""
	}
	s := strings.Map(spacesToASCII, strings.ToLower(foldAccents(text)))
	s = nonAlphanumericRegex.ReplaceAllString(s, "")
	s = whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CleanOptionalText trims value; an empty or whitespace-only value becomes nil.
func CleanOptionalText(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Currency upper-cases and trims a currency code, defaulting to fallback when empty.
func Currency(code, fallback string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return fallback
	}
	return c
}
