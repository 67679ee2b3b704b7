package curve

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultStaticHeadlines always follow the extremum headline.
var DefaultStaticHeadlines = []string{
	"Oil Freight Market Shows Mixed Trends as Q325 Forward Curves Adjust",
	"TD20 Maintains Stability While TC14 Sees Notable Changes in November",
}

// NoChangeFact is used when no route moved at all.
const NoChangeFact = "No significant WS change was recorded between the two snapshots."

// Extremum is the route/period with the largest absolute WS move.
type Extremum struct {
	Route     string          `json:"route"`
	Period    string          `json:"period"`
	RateDelta decimal.Decimal `json:"rate_delta"`
}

// Direction is "Rises" or "Drops".
func (e Extremum) Direction() string {
	if e.RateDelta.IsPositive() {
		return "Rises"
	}
	return "Drops"
}

// FindExtremum scans periods in order, then routes in order, and keeps the
// first delta with the strictly largest magnitude. It returns false when
// every delta is zero.
func FindExtremum(entries []DifferenceEntry) (Extremum, bool) {
	var best Extremum
	for _, e := range entries {
		for _, d := range e.Deltas {
			if d.RateDelta.Abs().GreaterThan(best.RateDelta.Abs()) {
				best = Extremum{Route: d.Route, Period: e.Period, RateDelta: d.RateDelta}
			}
		}
	}
	return best, !best.RateDelta.IsZero()
}

// Headline renders the extremum as a market headline.
func (e Extremum) Headline() string {
	return fmt.Sprintf("%s Forward Curve %s by %s WS in %s Amid Market Shifts",
		e.Route, e.Direction(), e.RateDelta.Abs().StringFixed(2), e.Period)
}

// Fact renders the extremum as a one-sentence fact.
func (e Extremum) Fact() string {
	return fmt.Sprintf("The most significant change occurred in %s for %s, with a WS change of %s.",
		e.Route, e.Period, e.RateDelta.StringFixed(2))
}

// Summary is the headline and fact text for a set of differences.
type Summary struct {
	Headlines []string  `json:"headlines"`
	Fact      string    `json:"fact"`
	Extremum  *Extremum `json:"extremum,omitempty"`
}

// Summarize builds the headlines and the fact from one extremum scan.
// A nil static slice selects DefaultStaticHeadlines.
func Summarize(entries []DifferenceEntry, static []string) Summary {
	if static == nil {
		static = DefaultStaticHeadlines
	}
	s := Summary{Fact: NoChangeFact}
	if ext, ok := FindExtremum(entries); ok {
		s.Extremum = &ext
		s.Headlines = append(s.Headlines, ext.Headline())
		s.Fact = ext.Fact()
	}
	s.Headlines = append(s.Headlines, static...)
	return s
}
