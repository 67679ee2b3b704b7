package curve

import "github.com/shopspring/decimal"

// MissingSentinel is shown wherever a value is absent.
const MissingSentinel = "N/A"

var thousand = decimal.NewFromInt(1000)

// FormatNumber renders a table value: "N/A" when missing, thousands with one
// decimal and a K suffix when |n| >= 1000, two decimals otherwise.
func FormatNumber(n OptionalNumber) string {
	if !n.Valid {
		return MissingSentinel
	}
	return FormatDecimal(n.Value)
}

// FormatDecimal is FormatNumber for a value known to be present.
func FormatDecimal(d decimal.Decimal) string {
	if d.Abs().GreaterThanOrEqual(thousand) {
		return d.Div(thousand).StringFixed(1) + "K"
	}
	return d.StringFixed(2)
}
