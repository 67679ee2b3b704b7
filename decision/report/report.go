// Package report assembles the forward-curve comparison report.
// Differences are computed once per build and shared by every section.
package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"freight-curve/decision/alert"
	"freight-curve/decision/curve"
	cerrors "freight-curve/pkg/errors"
)

// Row is one period/route line of the data table, preformatted for display.
type Row struct {
	Period       string `json:"period"`
	Route        string `json:"route"`
	BaseRate     string `json:"base_rate"`
	CompareRate  string `json:"compare_rate"`
	RateChange   string `json:"rate_change"`
	BasePrice    string `json:"base_price"`
	ComparePrice string `json:"compare_price"`
	PriceChange  string `json:"price_change"`
}

// Point is one route's values in one period, for chart series.
type Point struct {
	Route       string           `json:"route"`
	BaseRate    *decimal.Decimal `json:"base_rate,omitempty"`
	CompareRate *decimal.Decimal `json:"compare_rate,omitempty"`
	RateDelta   *decimal.Decimal `json:"rate_delta,omitempty"`
}

// SeriesPeriod groups the points of one period.
type SeriesPeriod struct {
	Period string  `json:"period"`
	Points []Point `json:"points"`
}

// Report is the complete output of one comparison.
type Report struct {
	RunID       uuid.UUID               `json:"run_id"`
	GeneratedAt time.Time               `json:"generated_at"`
	Base        curve.SnapshotMeta      `json:"base"`
	Compare     curve.SnapshotMeta      `json:"compare"`
	Routes      []string                `json:"routes"`
	Headlines   []string                `json:"headlines"`
	Fact        string                  `json:"fact"`
	Extremum    *curve.Extremum         `json:"extremum,omitempty"`
	Rows        []Row                   `json:"rows"`
	Series      []SeriesPeriod          `json:"series"`
	Differences []curve.DifferenceEntry `json:"differences"`
	Unmatched   []curve.UnmatchedPeriod `json:"unmatched,omitempty"`
	Alerts      *alert.EvaluationResult `json:"alerts,omitempty"`
}

// Builder builds reports from snapshot pairs.
type Builder struct {
	loader    *curve.CachedLoader
	alerts    *alert.Engine
	headlines []string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewBuilder creates a builder over a memoising loader.
func NewBuilder(loader *curve.CachedLoader) *Builder {
	return &Builder{
		loader: loader,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
}

// Loader returns the memoising loader.
func (b *Builder) Loader() *curve.CachedLoader {
	return b.loader
}

// WithAlerts evaluates the given rules on every build.
func (b *Builder) WithAlerts(engine *alert.Engine) *Builder {
	b.alerts = engine
	return b
}

// WithStaticHeadlines replaces the default static headlines.
func (b *Builder) WithStaticHeadlines(headlines []string) *Builder {
	b.headlines = headlines
	return b
}

// WithLogger attaches a logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build loads both snapshots, diffs them once and derives every section from that diff.
func (b *Builder) Build(base, compare *curve.Snapshot) *Report {
	baseEntries, compareEntries := b.loader.Load(base, compare)
	diff := curve.Diff(baseEntries, compareEntries)
	summary := curve.Summarize(diff.Entries, b.headlines)
	routes := b.loader.Config().Routes

	for _, u := range diff.Unmatched {
		b.logger.Warn().
			Err(cerrors.NewPeriodUnmatchedWarning(u.Period, string(u.PresentIn))).
			Msg("Period excluded from differences")
	}

	r := &Report{
		RunID:       uuid.New(),
		GeneratedAt: b.now(),
		Base:        base.Meta,
		Compare:     compare.Meta,
		Routes:      routes,
		Headlines:   summary.Headlines,
		Fact:        summary.Fact,
		Extremum:    summary.Extremum,
		Rows:        buildRows(diff, baseEntries, compareEntries, routes),
		Series:      buildSeries(diff, baseEntries, compareEntries, routes),
		Differences: diff.Entries,
		Unmatched:   diff.Unmatched,
	}
	if b.alerts != nil {
		r.Alerts = b.alerts.Evaluate(diff)
	}

	b.logger.Info().
		Str("run_id", r.RunID.String()).
		Int("periods", len(diff.Entries)).
		Int("rows", len(r.Rows)).
		Int("unmatched", len(diff.Unmatched)).
		Msg("Report built")
	return r
}

func index(entries []curve.PeriodEntry) map[string]curve.PeriodEntry {
	m := make(map[string]curve.PeriodEntry, len(entries))
	for _, e := range entries {
		m[e.Period] = e
	}
	return m
}

func buildRows(diff curve.DiffResult, base, compare []curve.PeriodEntry, routes []string) []Row {
	baseBy, compareBy := index(base), index(compare)

	rows := make([]Row, 0)
	for _, entry := range diff.Entries {
		for _, route := range routes {
			d, ok := entry.Lookup(route)
			if !ok {
				continue
			}
			bq, _ := baseBy[entry.Period].Lookup(route)
			cq, _ := compareBy[entry.Period].Lookup(route)
			rows = append(rows, Row{
				Period:       entry.Period,
				Route:        route,
				BaseRate:     curve.FormatDecimal(bq.Rate),
				CompareRate:  curve.FormatDecimal(cq.Rate),
				RateChange:   curve.FormatDecimal(d.RateDelta),
				BasePrice:    curve.FormatDecimal(bq.Price),
				ComparePrice: curve.FormatDecimal(cq.Price),
				PriceChange:  curve.FormatDecimal(d.PriceDelta),
			})
		}
	}
	return rows
}

// buildSeries emits one entry per matched period with every configured route;
// values a snapshot did not quote are left nil.
func buildSeries(diff curve.DiffResult, base, compare []curve.PeriodEntry, routes []string) []SeriesPeriod {
	baseBy, compareBy := index(base), index(compare)

	series := make([]SeriesPeriod, 0, len(diff.Entries))
	for _, entry := range diff.Entries {
		sp := SeriesPeriod{Period: entry.Period}
		for _, route := range routes {
			p := Point{Route: route}
			if q, ok := baseBy[entry.Period].Lookup(route); ok {
				p.BaseRate = ptr(q.Rate)
			}
			if q, ok := compareBy[entry.Period].Lookup(route); ok {
				p.CompareRate = ptr(q.Rate)
			}
			if d, ok := entry.Lookup(route); ok {
				p.RateDelta = ptr(d.RateDelta)
			}
			sp.Points = append(sp.Points, p)
		}
		series = append(series, sp)
	}
	return series
}

func ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
