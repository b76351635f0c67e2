// Package errors defines the structured errors reported by mod loading and
// pipeline analysis.
//
// Configuration-shape problems (an unrecognized document body, an expression
// with an unknown __type__) end the analysis pass and surface to the caller as
// an *AnalysisError. Callers branch on the Code rather than on message text.
package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Code identifies a category of failure.
type Code string

const (
	// Configuration shape
	ErrInvalidDocument   Code = "INVALID_DOCUMENT"
	ErrInvalidExpression Code = "INVALID_EXPRESSION"
	ErrInvalidPipeline   Code = "INVALID_PIPELINE"

	// Input files
	ErrModParse     Code = "MOD_PARSE"
	ErrModVersion   Code = "MOD_VERSION"
	ErrCatalogParse Code = "CATALOG_PARSE"
	ErrTraceParse   Code = "TRACE_PARSE"
	ErrConfigLoad   Code = "CONFIG_LOAD"

	// Schemas
	ErrSchemaCompile Code = "SCHEMA_COMPILE"

	// Lookups
	ErrPositionNotFound Code = "POSITION_NOT_FOUND"
)

// AnalysisError is a structured error with a code and context.
type AnalysisError struct {
	Code    Code
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface
func (e *AnalysisError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(parts, " "))
	}

	if e.Cause != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Cause)
	}
	return b.String()
}

// Unwrap allows error unwrapping
func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// Is matches another *AnalysisError with the same code, so
// errors.Is(err, &AnalysisError{Code: ErrInvalidDocument}) works.
func (e *AnalysisError) Is(target error) bool {
	t, ok := target.(*AnalysisError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a new AnalysisError
func New(code Code, message string) *AnalysisError {
	return &AnalysisError{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// Newf creates a new AnalysisError with a formatted message
func Newf(code Code, format string, args ...any) *AnalysisError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates a new AnalysisError wrapping an existing error
func Wrap(code Code, message string, cause error) *AnalysisError {
	return &AnalysisError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error
func (e *AnalysisError) WithContext(key string, value any) *AnalysisError {
	e.Context[key] = value
	return e
}

// HasCode reports whether any error in err's chain is an AnalysisError with code.
func HasCode(err error, code Code) bool {
	var ae *AnalysisError
	for err != nil {
		if !stderrors.As(err, &ae) {
			return false
		}
		if ae.Code == code {
			return true
		}
		err = ae.Cause
	}
	return false
}

// CodeOf returns the code of the outermost AnalysisError in err's chain.
func CodeOf(err error) (Code, bool) {
	var ae *AnalysisError
	if stderrors.As(err, &ae) {
		return ae.Code, true
	}
	return "", false
}

// NewInvalidDocumentError reports a document renderer body the walker cannot interpret.
func NewInvalidDocumentError(position, reason string) *AnalysisError {
	return New(ErrInvalidDocument, reason).WithContext("position", position)
}

// NewInvalidExpressionError reports a malformed {__type__, __value__} object.
func NewInvalidExpressionError(path, reason string) *AnalysisError {
	return New(ErrInvalidExpression, reason).WithContext("path", path)
}

// NewPositionNotFoundError reports a position with no recorded snapshot.
func NewPositionNotFoundError(position string, available int) *AnalysisError {
	return Newf(ErrPositionNotFound, "no brick at position %q", position).
		WithContext("known_positions", available)
}
