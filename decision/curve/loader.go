package curve

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	cerrors "freight-curve/pkg/errors"
)

// Quote is one route's WS rate and $/MT price for a period.
type Quote struct {
	Rate  decimal.Decimal `json:"rate"`
	Price decimal.Decimal `json:"price"`
}

// RouteQuote is a Quote tagged with its route.
type RouteQuote struct {
	Route string `json:"route"`
	Quote
}

// PeriodEntry holds the fully populated routes of one period in one snapshot,
// in route declaration order.
type PeriodEntry struct {
	Period string       `json:"period"`
	Quotes []RouteQuote `json:"quotes"`
}

// Lookup returns the quote for a route, if the route was populated.
func (e PeriodEntry) Lookup(route string) (Quote, bool) {
	for _, q := range e.Quotes {
		if q.Route == route {
			return q.Quote, true
		}
	}
	return Quote{}, false
}

// Loader extracts period entries from snapshot tables.
type Loader struct {
	cfg    Config
	logger zerolog.Logger
}

// NewLoader creates a loader for the given period and route set.
func NewLoader(cfg Config) *Loader {
	return &Loader{cfg: cfg, logger: zerolog.Nop()}
}

// WithLogger attaches a logger.
func (l *Loader) WithLogger(logger zerolog.Logger) *Loader {
	l.logger = logger
	return l
}

// Config returns the loader's configuration.
func (l *Loader) Config() Config {
	return l.cfg
}

// Load extracts both snapshots over the routes whose columns exist in both
// schemas. A route missing a column on either side is absent from both.
func (l *Loader) Load(base, compare *Table) ([]PeriodEntry, []PeriodEntry) {
	inCompare := make(map[string]bool, len(l.cfg.Routes))
	for _, route := range l.availableRoutes(compare) {
		inCompare[route] = true
	}
	var routes []string
	for _, route := range l.availableRoutes(base) {
		if inCompare[route] {
			routes = append(routes, route)
		}
	}
	return l.extract(base, routes), l.extract(compare, routes)
}

// Extract walks the canonical periods and the routes present in t's schema.
func (l *Loader) Extract(t *Table) []PeriodEntry {
	return l.extract(t, l.availableRoutes(t))
}

// extract keeps a route only when both its cells parse, and a period only
// when at least one route is kept.
func (l *Loader) extract(t *Table, routes []string) []PeriodEntry {
	entries := make([]PeriodEntry, 0, len(l.cfg.Periods))
	for _, period := range l.cfg.Periods {
		if !t.HasPeriod(period) {
			continue
		}
		entry := PeriodEntry{Period: period}
		for _, route := range routes {
			rateCell, _ := t.Cell(period, l.cfg.RateColumn(route))
			priceCell, _ := t.Cell(period, l.cfg.PriceColumn(route))
			rate := ParseOptionalNumber(rateCell)
			price := ParseOptionalNumber(priceCell)
			if !rate.Valid || !price.Valid {
				continue
			}
			entry.Quotes = append(entry.Quotes, RouteQuote{
				Route: route,
				Quote: Quote{Rate: rate.Value, Price: price.Value},
			})
		}
		if len(entry.Quotes) > 0 {
			entries = append(entries, entry)
		}
	}

	l.logger.Debug().
		Str("table", t.Name).
		Int("periods", len(entries)).
		Int("routes", len(routes)).
		Msg("Snapshot extracted")
	return entries
}

// availableRoutes drops routes whose rate or price column is missing from this table's schema.
func (l *Loader) availableRoutes(t *Table) []string {
	routes := make([]string, 0, len(l.cfg.Routes))
	for _, route := range l.cfg.Routes {
		missing := ""
		if !t.HasColumn(l.cfg.RateColumn(route)) {
			missing = l.cfg.RateColumn(route)
		} else if !t.HasColumn(l.cfg.PriceColumn(route)) {
			missing = l.cfg.PriceColumn(route)
		}
		if missing != "" {
			l.logger.Warn().
				Err(cerrors.NewMissingColumnError(missing, t.Name)).
				Str("route", route).
				Msg("Route skipped")
			continue
		}
		routes = append(routes, route)
	}
	return routes
}
