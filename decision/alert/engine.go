// Package alert flags forward-curve moves that cross configured thresholds.
package alert

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"freight-curve/decision/curve"
)

// RuleType defines what a rule inspects.
type RuleType string

const (
	RuleTypeRateMove        RuleType = "rate_move"
	RuleTypePriceMove       RuleType = "price_move"
	RuleTypeUnmatchedPeriod RuleType = "unmatched_period"
)

// Severity defines alert severity.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Decision is the evaluation outcome.
type Decision string

const (
	DecisionPass Decision = "pass"
	DecisionWarn Decision = "warn"
	DecisionDeny Decision = "deny"
)

// Rule is one threshold check. An empty Route matches every route.
type Rule struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Type      RuleType `json:"type" yaml:"type"`
	Route     string   `json:"route,omitempty" yaml:"route,omitempty"`
	Severity  Severity `json:"severity" yaml:"severity"`
	Threshold float64  `json:"threshold" yaml:"threshold"`
	Enabled   bool     `json:"enabled" yaml:"enabled"`
}

// Violation is a fired error-severity rule.
type Violation struct {
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Period   string `json:"period,omitempty"`
	Route    string `json:"route,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Warning is a fired non-blocking rule.
type Warning struct {
	RuleID  string `json:"rule_id"`
	Period  string `json:"period,omitempty"`
	Route   string `json:"route,omitempty"`
	Message string `json:"message"`
}

// EvaluationResult contains the outcome of all rules.
type EvaluationResult struct {
	Decision    Decision    `json:"decision"`
	Violations  []Violation `json:"violations"`
	Warnings    []Warning   `json:"warnings"`
	RulesRan    int         `json:"rules_ran"`
	EvaluatedAt time.Time   `json:"evaluated_at"`
}

// Engine evaluates rules against a diff.
type Engine struct {
	rules []Rule
	now   func() time.Time
}

// NewEngine creates an engine with the default rules.
func NewEngine() *Engine {
	return &Engine{rules: DefaultRules(), now: time.Now}
}

// NewEngineWithRules creates an engine with an explicit rule set.
func NewEngineWithRules(rules []Rule) *Engine {
	return &Engine{rules: append([]Rule(nil), rules...), now: time.Now}
}

// AddRule appends a rule.
func (e *Engine) AddRule(r Rule) {
	e.rules = append(e.rules, r)
}

// Rules returns the configured rules.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// Evaluate runs every enabled rule against the diff.
func (e *Engine) Evaluate(diff curve.DiffResult) *EvaluationResult {
	result := &EvaluationResult{
		Decision:    DecisionPass,
		Violations:  make([]Violation, 0),
		Warnings:    make([]Warning, 0),
		EvaluatedAt: e.now(),
	}

	for _, rule := range e.rules {
		if !rule.Enabled {
			continue
		}
		result.RulesRan++

		for _, h := range e.evaluateRule(rule, diff) {
			if rule.Severity == SeverityError {
				result.Violations = append(result.Violations, Violation{
					RuleID:   rule.ID,
					RuleName: rule.Name,
					Period:   h.period,
					Route:    h.route,
					Message:  h.message,
					Severity: string(rule.Severity),
				})
				result.Decision = DecisionDeny
				continue
			}
			result.Warnings = append(result.Warnings, Warning{
				RuleID:  rule.ID,
				Period:  h.period,
				Route:   h.route,
				Message: h.message,
			})
			if result.Decision == DecisionPass {
				result.Decision = DecisionWarn
			}
		}
	}
	return result
}

type hit struct {
	period  string
	route   string
	message string
}

func (e *Engine) evaluateRule(r Rule, diff curve.DiffResult) []hit {
	var hits []hit
	switch r.Type {
	case RuleTypeRateMove, RuleTypePriceMove:
		threshold := decimal.NewFromFloat(r.Threshold)
		for _, entry := range diff.Entries {
			for _, d := range entry.Deltas {
				if r.Route != "" && r.Route != d.Route {
					continue
				}
				move, unit := d.RateDelta, "WS"
				if r.Type == RuleTypePriceMove {
					move, unit = d.PriceDelta, "$/MT"
				}
				if move.Abs().LessThan(threshold) {
					continue
				}
				msg := fmt.Sprintf("%s %s moved %s %s (limit %s)",
					d.Route, entry.Period, move.StringFixed(2), unit, threshold.StringFixed(2))
				hits = append(hits, hit{period: entry.Period, route: d.Route, message: msg})
			}
		}

	case RuleTypeUnmatchedPeriod:
		for _, u := range diff.Unmatched {
			hits = append(hits, hit{
				period:  u.Period,
				message: fmt.Sprintf("Period %s only quoted in %s snapshot", u.Period, u.PresentIn),
			})
		}
	}
	return hits
}

// DefaultRules warns on unmatched periods and on WS moves of 25 points or more.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:       "default-unmatched",
			Name:     "Unmatched Periods",
			Type:     RuleTypeUnmatchedPeriod,
			Severity: SeverityWarning,
			Enabled:  true,
		},
		{
			ID:        "default-large-ws-move",
			Name:      "Large WS Move",
			Type:      RuleTypeRateMove,
			Severity:  SeverityWarning,
			Threshold: 25,
			Enabled:   true,
		},
	}
}
