package errors

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurveErrorMatching(t *testing.T) {
	err := fmt.Errorf("loading base: %w", NewSourceNotFoundError("oct.csv", os.ErrNotExist))

	assert.True(t, errors.Is(err, ErrSourceNotFound))
	assert.False(t, errors.Is(err, ErrEmptySnapshot))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	var ce *CurveError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, "oct.csv", ce.Source)
	assert.Equal(t, SeverityFatal, ce.Severity)
}

func TestCurveErrorMessage(t *testing.T) {
	err := NewMissingColumnError("TD3C__1", "nov.csv")
	assert.Equal(t, "[error] MISSING_COLUMN: missing required column: TD3C__1 (source: nov.csv)", err.Error())

	warn := NewPeriodUnmatchedWarning("CAL26", "base")
	assert.Equal(t, "[warning] PERIOD_UNMATCHED: period CAL26 only present in base snapshot", warn.Error())

	// two concrete errors with the same code are not interchangeable
	assert.False(t, errors.Is(NewInvalidConfigError("a"), NewInvalidConfigError("b")))
	assert.True(t, errors.Is(NewInvalidConfigError("a"), ErrInvalidConfig))
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "info", SeverityInfo.String())
	assert.Equal(t, "unknown", Severity(42).String())
}
