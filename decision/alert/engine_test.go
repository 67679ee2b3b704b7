package alert

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight-curve/decision/curve"
)

func sampleDiff() curve.DiffResult {
	return curve.DiffResult{
		Entries: []curve.DifferenceEntry{
			{Period: "JUN25", Deltas: []curve.Delta{
				{Route: "TD3C", RateDelta: decimal.NewFromInt(30), PriceDelta: decimal.NewFromInt(4)},
				{Route: "TC14", RateDelta: decimal.NewFromInt(-5), PriceDelta: decimal.NewFromInt(-60)},
			}},
			{Period: "Q325", Deltas: []curve.Delta{
				{Route: "TD3C", RateDelta: decimal.NewFromInt(-25), PriceDelta: decimal.Zero},
			}},
		},
		Unmatched: []curve.UnmatchedPeriod{{Period: "CAL27", PresentIn: curve.SideCompare}},
	}
}

func TestDefaultRulesWarn(t *testing.T) {
	e := NewEngine()
	fixed := time.Date(2025, 11, 6, 0, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	res := e.Evaluate(sampleDiff())
	assert.Equal(t, DecisionWarn, res.Decision)
	assert.Equal(t, 2, res.RulesRan)
	assert.Empty(t, res.Violations)
	require.Len(t, res.Warnings, 3)
	assert.Equal(t, "CAL27", res.Warnings[0].Period)
	assert.Equal(t, "Period CAL27 only quoted in compare snapshot", res.Warnings[0].Message)
	assert.Equal(t, "TD3C JUN25 moved 30.00 WS (limit 25.00)", res.Warnings[1].Message)
	assert.Equal(t, "Q325", res.Warnings[2].Period, "threshold is inclusive")
	assert.Equal(t, fixed, res.EvaluatedAt)
}

func TestErrorRuleDenies(t *testing.T) {
	e := NewEngineWithRules(nil)
	e.AddRule(Rule{
		ID:        "tc14-price",
		Name:      "TC14 Price Move",
		Type:      RuleTypePriceMove,
		Route:     "TC14",
		Severity:  SeverityError,
		Threshold: 50,
		Enabled:   true,
	})
	e.AddRule(Rule{ID: "off", Type: RuleTypeRateMove, Severity: SeverityError, Enabled: false})

	res := e.Evaluate(sampleDiff())
	assert.Equal(t, DecisionDeny, res.Decision)
	assert.Equal(t, 1, res.RulesRan)
	require.Len(t, res.Violations, 1)
	v := res.Violations[0]
	assert.Equal(t, "TC14", v.Route)
	assert.Equal(t, "TC14 JUN25 moved -60.00 $/MT (limit 50.00)", v.Message)
}

func TestPassWhenQuiet(t *testing.T) {
	res := NewEngine().Evaluate(curve.DiffResult{})
	assert.Equal(t, DecisionPass, res.Decision)
	assert.NotNil(t, res.Violations)
	assert.NotNil(t, res.Warnings)
}
