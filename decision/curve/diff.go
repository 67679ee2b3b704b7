package curve

import (
	"github.com/shopspring/decimal"
)

// Delta is the compare-minus-base move of one route in one period.
type Delta struct {
	Route      string          `json:"route"`
	RateDelta  decimal.Decimal `json:"rate_delta"`
	PriceDelta decimal.Decimal `json:"price_delta"`
}

// DifferenceEntry holds the deltas of every route quoted in both snapshots for a period.
type DifferenceEntry struct {
	Period string  `json:"period"`
	Deltas []Delta `json:"deltas"`
}

// Lookup returns the delta for a route.
func (e DifferenceEntry) Lookup(route string) (Delta, bool) {
	for _, d := range e.Deltas {
		if d.Route == route {
			return d, true
		}
	}
	return Delta{}, false
}

// Side names which snapshot a period was found in.
type Side string

const (
	SideBase    Side = "base"
	SideCompare Side = "compare"
)

// UnmatchedPeriod is a period populated in only one snapshot.
type UnmatchedPeriod struct {
	Period    string `json:"period"`
	PresentIn Side   `json:"present_in"`
}

// DiffResult is the output of Diff.
type DiffResult struct {
	Entries   []DifferenceEntry `json:"entries"`
	Unmatched []UnmatchedPeriod `json:"unmatched,omitempty"`
}

// Diff joins base and compare entries by period label and subtracts them.
// Output follows base order; periods missing from either side are listed in
// Unmatched instead of being paired with a neighbour.
func Diff(base, compare []PeriodEntry) DiffResult {
	byPeriod := make(map[string]PeriodEntry, len(compare))
	for _, e := range compare {
		byPeriod[e.Period] = e
	}

	result := DiffResult{Entries: make([]DifferenceEntry, 0, len(base))}
	matched := make(map[string]bool, len(base))
	for _, b := range base {
		c, ok := byPeriod[b.Period]
		if !ok {
			result.Unmatched = append(result.Unmatched, UnmatchedPeriod{Period: b.Period, PresentIn: SideBase})
			continue
		}
		matched[b.Period] = true

		entry := DifferenceEntry{Period: b.Period}
		for _, bq := range b.Quotes {
			cq, ok := c.Lookup(bq.Route)
			if !ok {
				continue
			}
			entry.Deltas = append(entry.Deltas, Delta{
				Route:      bq.Route,
				RateDelta:  cq.Rate.Sub(bq.Rate),
				PriceDelta: cq.Price.Sub(bq.Price),
			})
		}
		result.Entries = append(result.Entries, entry)
	}

	for _, c := range compare {
		if !matched[c.Period] {
			result.Unmatched = append(result.Unmatched, UnmatchedPeriod{Period: c.Period, PresentIn: SideCompare})
		}
	}
	return result
}
