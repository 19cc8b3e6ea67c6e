package domain

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a price as it was stored. Older documents may carry prices as free text,
// so an Amount remembers whether it parsed as a number.
type Amount struct {
	value   float64
	raw     string
	numeric bool
}

// NewAmount returns a numeric amount.
func NewAmount(v float64) Amount {
	return Amount{value: v, numeric: true}
}

// ParseAmount parses s as a number; a non-numeric s is kept as raw text.
func ParseAmount(s string) Amount {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return Amount{raw: s}
	}
	v, _ := d.Float64()
	return Amount{value: v, numeric: true}
}

// Float64 returns the numeric value and whether the amount is numeric.
func (a Amount) Float64() (float64, bool) {
	return a.value, a.numeric
}

// String renders the amount as stored.
func (a Amount) String() string {
	if a.numeric {
		return strconv.FormatFloat(a.value, 'f', -1, 64)
	}
	return a.raw
}

// MarshalJSON renders numeric amounts as numbers, others as their raw text or null.
func (a Amount) MarshalJSON() ([]byte, error) {
	switch {
	case a.numeric:
		return json.Marshal(a.value)
	case a.raw != "":
		return json.Marshal(a.raw)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a number, a numeric string or any other string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*a = ParseAmount(n.String())
		return nil
	}
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*a = Amount{}
		return nil
	}
	*a = ParseAmount(*s)
	return nil
}
