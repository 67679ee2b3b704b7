package curve

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// OptionalNumber is a parsed cell value. Valid is false when the cell was
// empty or held anything other than a finite number.
type OptionalNumber struct {
	Value decimal.Decimal
	Valid bool
}

// Some wraps a present value.
func Some(d decimal.Decimal) OptionalNumber {
	return OptionalNumber{Value: d, Valid: true}
}

// None is the missing value.
func None() OptionalNumber {
	return OptionalNumber{}
}

// ParseOptionalNumber coerces a raw cell into a number, mapping anything
// unparseable (text, blanks, NaN, infinities) to None.
func ParseOptionalNumber(raw string) OptionalNumber {
	s := strings.TrimSpace(raw)
	if s == "" {
		return None()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return None()
	}
	// Keep the textual value exact when decimal can read it; floats only for
	// notations decimal rejects.
	if d, err := decimal.NewFromString(s); err == nil {
		return Some(d)
	}
	return Some(decimal.NewFromFloat(f))
}

// String renders the value with FormatNumber.
func (n OptionalNumber) String() string {
	return FormatNumber(n)
}
