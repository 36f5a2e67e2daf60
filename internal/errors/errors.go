package errors

import (
	"errors"
	"fmt"
)

// Reason classifies why an input line was rejected by the parser.
type Reason string

const (
	ReasonMalformedLine Reason = "MALFORMED_LINE"
	ReasonInvalidDate   Reason = "INVALID_DATE"
	ReasonInvalidValue  Reason = "INVALID_VALUE"
	ReasonFutureDate    Reason = "FUTURE_DATE"
)

// ParseError reports a rejected input line. Parse errors are recovered
// locally: the offending line is skipped and counted, processing continues.
type ParseError struct {
	Reason Reason
	Line   int
	Input  string
	Cause  error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] line %d %q: %v", e.Reason, e.Line, e.Input, e.Cause)
	}
	return fmt.Sprintf("[%s] line %d %q", e.Reason, e.Line, e.Input)
}

// Unwrap allows errors.Is and errors.As to work with ParseError
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a new ParseError for the given line.
func NewParseError(reason Reason, line int, input string, cause error) *ParseError {
	return &ParseError{
		Reason: reason,
		Line:   line,
		Input:  input,
		Cause:  cause,
	}
}

// IsParseError reports whether err is (or wraps) a ParseError and, if so,
// returns its reason.
func IsParseError(err error) (Reason, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Reason, true
	}
	return "", false
}

// Sentinel errors surfaced by the aggregation engine.
var (
	// ErrNoData is returned when a strategy is evaluated against an
	// instrument with zero accepted observations. It is a per-instrument
	// outcome, never fatal to the run.
	ErrNoData = errors.New("no data")

	// ErrAlreadyFinalized is returned when the engine is fed or finalized
	// again after its one-shot finalize transition.
	ErrAlreadyFinalized = errors.New("engine already finalized")
)
