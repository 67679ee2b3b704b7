// Package errors provides severity-aware error types.
package errors

import "fmt"

// Severity indicates error impact level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// CurveError is a structured error with context.
type CurveError struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Source   string   `json:"source,omitempty"`
	Column   string   `json:"column,omitempty"`
	Err      error    `json:"-"`
}

func (e *CurveError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
	if e.Source != "" {
		msg += fmt.Sprintf(" (source: %s)", e.Source)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CurveError) Unwrap() error {
	return e.Err
}

// Is matches any *CurveError carrying the same code, so callers can test
// against the sentinel values below with errors.Is.
func (e *CurveError) Is(target error) bool {
	t, ok := target.(*CurveError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

// Error codes
const (
	ErrCodeSourceNotFound   = "SOURCE_NOT_FOUND"
	ErrCodeSourceUnreadable = "SOURCE_UNREADABLE"
	ErrCodeMissingIndex     = "MISSING_INDEX"
	ErrCodeMissingColumn    = "MISSING_COLUMN"
	ErrCodeEmptySnapshot    = "EMPTY_SNAPSHOT"
	ErrCodeInvalidConfig    = "INVALID_CONFIG"
	ErrCodePeriodUnmatched  = "PERIOD_UNMATCHED"
)

// Sentinels for errors.Is comparisons.
var (
	ErrSourceNotFound   = &CurveError{Code: ErrCodeSourceNotFound}
	ErrSourceUnreadable = &CurveError{Code: ErrCodeSourceUnreadable}
	ErrMissingIndex     = &CurveError{Code: ErrCodeMissingIndex}
	ErrMissingColumn    = &CurveError{Code: ErrCodeMissingColumn}
	ErrEmptySnapshot    = &CurveError{Code: ErrCodeEmptySnapshot}
	ErrInvalidConfig    = &CurveError{Code: ErrCodeInvalidConfig}
)

// NewSourceNotFoundError creates an error for a snapshot file that does not exist.
func NewSourceNotFoundError(source string, err error) *CurveError {
	return &CurveError{
		Code:     ErrCodeSourceNotFound,
		Message:  "snapshot source not found",
		Severity: SeverityFatal,
		Source:   source,
		Err:      err,
	}
}

// NewSourceUnreadableError creates an error for a snapshot that exists but cannot be read or parsed.
func NewSourceUnreadableError(source string, err error) *CurveError {
	return &CurveError{
		Code:     ErrCodeSourceUnreadable,
		Message:  "snapshot source could not be read",
		Severity: SeverityFatal,
		Source:   source,
		Err:      err,
	}
}

// NewMissingIndexError creates an error for a table without a period index column.
func NewMissingIndexError(source string) *CurveError {
	return &CurveError{
		Code:     ErrCodeMissingIndex,
		Message:  "header row has no period index column",
		Severity: SeverityFatal,
		Source:   source,
	}
}

// NewMissingColumnError creates an error for a required column absent from a table.
func NewMissingColumnError(column, source string) *CurveError {
	return &CurveError{
		Code:     ErrCodeMissingColumn,
		Message:  fmt.Sprintf("missing required column: %s", column),
		Severity: SeverityError,
		Source:   source,
		Column:   column,
	}
}

// NewEmptySnapshotError creates an error for a snapshot with no header or no rows.
func NewEmptySnapshotError(source string) *CurveError {
	return &CurveError{
		Code:     ErrCodeEmptySnapshot,
		Message:  "snapshot contains no data",
		Severity: SeverityFatal,
		Source:   source,
	}
}

// NewInvalidConfigError creates an error for an unusable curve configuration.
func NewInvalidConfigError(msg string) *CurveError {
	return &CurveError{
		Code:     ErrCodeInvalidConfig,
		Message:  msg,
		Severity: SeverityFatal,
	}
}

// NewPeriodUnmatchedWarning describes a period present in only one snapshot.
func NewPeriodUnmatchedWarning(period, presentIn string) *CurveError {
	return &CurveError{
		Code:     ErrCodePeriodUnmatched,
		Message:  fmt.Sprintf("period %s only present in %s snapshot", period, presentIn),
		Severity: SeverityWarning,
	}
}
