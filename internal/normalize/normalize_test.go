package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercases and trims", input: "  Grace Ketchup  ", want: "grace ketchup"},
		{name: "removes punctuation without replacing it", input: "Coca-Cola, Original!", want: "cocacola original"},
		{name: "collapses whitespace", input: "Whole \t Milk\n 1L", want: "whole milk 1l"},
		{name: "folds accents", input: "Café Crème", want: "cafe creme"},
		{name: "folds tildes", input: "Jalapeño Peppers", want: "jalapeno peppers"},
		{name: "no-break space separates words", input: "Grace\u00a0Ketchup", want: "grace ketchup"},
		{name: "thin space separates words", input: "Grace\u2009Ketchup", want: "grace ketchup"},
		{name: "ideographic space separates words", input: "Grace\u3000 Ketchup", want: "grace ketchup"},
		{name: "empty input", input: "", want: ""},
		{name: "punctuation only", input: "!!! ---", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Name(tc.input))
		})
	}
}

func TestNameIsIdempotent(t *testing.T) {
	inputs := []string{
		"Grace Ketchup 6x330ml",
		"  Baby & Infant, Medicine ",
		"Ñandú Crème brûlée!!",
		"Pack of 4 -- Juice Boxes",
		"Grace\u00a0Ketchup\u2009500ml",
		"",
	}

	for _, input := range inputs {
		once := Name(input)
		assert.Equal(t, once, Name(once), "input %q", input)
	}
}

func TestCleanOptionalText(t *testing.T) {
	t.Run("whitespace becomes nil", func(t *testing.T) {
		assert.Nil(t, CleanOptionalText("   "))
		assert.Nil(t, CleanOptionalText(""))
	})

	t.Run("value is trimmed", func(t *testing.T) {
		got := CleanOptionalText("  Grace ")
		require.NotNil(t, got)
		assert.Equal(t, "Grace", *got)
	})
}

func TestCurrency(t *testing.T) {
	assert.Equal(t, "USD", Currency(" usd ", "JMD"))
	assert.Equal(t, "JMD", Currency("", "JMD"))
}

func TestParseSize(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		wantValue *float64
		wantUnit  *string
		wantPack  *int
	}{
		{name: "multipack", input: "6x330ml", wantValue: f(330), wantUnit: s("ml"), wantPack: i(6)},
		{name: "multipack with spaces", input: "Juice 10 X 20g", wantValue: f(20), wantUnit: s("g"), wantPack: i(10)},
		{name: "pack of without size", input: "Pack of 4", wantPack: i(4)},
		{name: "standalone grams", input: "500g", wantValue: f(500), wantUnit: s("g")},
		{name: "no size", input: "no size info"},
		{name: "pack suffix merged with measure", input: "Malta 12 pack 330ml", wantValue: f(330), wantUnit: s("ml"), wantPack: i(12)},
		{name: "hyphenated pack", input: "Soda 6-pack", wantPack: i(6)},
		{name: "count suffix", input: "Eggs 24 ct", wantPack: i(24)},
		{name: "litre synonym", input: "Milk 1.5 Litres", wantValue: f(1.5), wantUnit: s("l")},
		{name: "fluid ounces", input: "Cola 12 fl oz", wantValue: f(12), wantUnit: s("oz")},
		{name: "fluid ounces with dot", input: "Cola 12 fl. oz", wantValue: f(12), wantUnit: s("oz")},
		{name: "pounds", input: "Chicken 2 lbs", wantValue: f(2), wantUnit: s("lb")},
		{name: "gallon", input: "Water 1 Gallon", wantValue: f(1), wantUnit: s("gal")},
		{name: "quart", input: "Oil 2 quarts", wantValue: f(2), wantUnit: s("qt")},
		{name: "thousands separator", input: "Rice 1,000g", wantValue: f(1000), wantUnit: s("g")},
		{name: "malformed number keeps unit", input: "Syrup 1.2.3ml", wantUnit: s("ml")},
		{name: "unit must end a word", input: "500grams of nothing"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseSize(tc.input)
			assert.Equal(t, tc.wantValue, got.Value)
			assert.Equal(t, tc.wantUnit, got.Unit)
			assert.Equal(t, tc.wantPack, got.PackCount)
		})
	}
}

func TestUnit(t *testing.T) {
	testCases := map[string]string{
		"Litre":  "l",
		"liters": "l",
		"fl oz":  "oz",
		"LBS":    "lb",
		"packs":  "pack",
		"pk":     "pack",
		"count":  "ct",
		"pints":  "pt",
		"ml":     "ml",
	}

	for raw, want := range testCases {
		t.Run(raw, func(t *testing.T) {
			assert.Equal(t, want, Unit(raw))
		})
	}
}

func f(v float64) *float64 { return &v }
func s(v string) *string   { return &v }
func i(v int) *int         { return &v }
