// Package curve reconciles two dated forward-curve snapshots.
// It loads per-period route quotes, joins them by period label and summarises the moves.
package curve

import (
	"fmt"
	"strings"

	cerrors "freight-curve/pkg/errors"
)

// DefaultPriceSuffix pairs a route's WS column with its $/MT column.
const DefaultPriceSuffix = "__1"

// Config names the canonical periods and routes a report covers.
type Config struct {
	Periods     []string `json:"periods" yaml:"periods"`
	Routes      []string `json:"routes" yaml:"routes"`
	PriceSuffix string   `json:"price_suffix" yaml:"price_suffix"`
}

// DefaultConfig returns the period and route set of the monthly freight report.
func DefaultConfig() Config {
	return Config{
		Periods: []string{
			"JUN25", "JUL25", "AUG25", "SEP25", "OCT25", "NOV25",
			"Q325", "Q425", "Q126", "Q226", "Q326",
			"CAL26", "CAL27",
		},
		Routes:      []string{"TD3C", "TD20", "TC2", "TC14"},
		PriceSuffix: DefaultPriceSuffix,
	}
}

// RateColumn returns the WS column name for a route.
func (c Config) RateColumn(route string) string {
	return route
}

// PriceColumn returns the $/MT column name for a route.
func (c Config) PriceColumn(route string) string {
	return route + c.PriceSuffix
}

// Validate rejects configurations that cannot produce a report.
func (c Config) Validate() error {
	if len(c.Periods) == 0 {
		return cerrors.NewInvalidConfigError("no periods configured")
	}
	if len(c.Routes) == 0 {
		return cerrors.NewInvalidConfigError("no routes configured")
	}
	if c.PriceSuffix == "" {
		return cerrors.NewInvalidConfigError("price column suffix must not be empty")
	}
	if err := checkLabels("period", c.Periods); err != nil {
		return err
	}
	return checkLabels("route", c.Routes)
}

func checkLabels(kind string, labels []string) error {
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if strings.TrimSpace(l) == "" {
			return cerrors.NewInvalidConfigError(fmt.Sprintf("empty %s label", kind))
		}
		if seen[l] {
			return cerrors.NewInvalidConfigError(fmt.Sprintf("duplicate %s label: %s", kind, l))
		}
		seen[l] = true
	}
	return nil
}

// key returns a stable identity for cache lookups.
func (c Config) key() string {
	return strings.Join(c.Periods, ",") + "|" + strings.Join(c.Routes, ",") + "|" + c.PriceSuffix
}
