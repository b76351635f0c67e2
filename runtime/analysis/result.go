package analysis

import (
	"slices"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/errors"
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/existence"
)

// Level is the severity of an annotation.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Annotation flags a variable reference that may not resolve.
type Annotation struct {
	Position string
	// Path is the expression's accessor relative to its brick.
	Path     string
	Variable string
	Message  string
	Level    Level
}

// Warning reports a problem with a brick that does not stop the analysis.
type Warning struct {
	Position string
	BrickID  string
	Message  string
	// Suggestion is a registered brick id close to an unknown BrickID.
	Suggestion string
}

// Result holds the variables in scope at every brick position.
type Result struct {
	positions   []string
	snapshots   map[string]*existence.VarMap
	traces      map[string]TraceRecord
	Annotations []Annotation
	Warnings    []Warning
}

func newResult() *Result {
	return &Result{
		snapshots: make(map[string]*existence.VarMap),
		traces:    make(map[string]TraceRecord),
	}
}

// Positions returns every visited brick position in walk order.
func (r *Result) Positions() []string {
	return slices.Clone(r.positions)
}

// VarsAt returns the variables available to the brick at position: outputs
// of earlier bricks in the same and enclosing pipelines, inputs, options,
// mod variables, integrations and sub-pipeline locals. The trace context
// recorded for the position, if any, is added under TraceSource.
//
// The returned map is a copy the caller may modify.
func (r *Result) VarsAt(position string) (*existence.VarMap, error) {
	snap, ok := r.snapshots[position]
	if !ok {
		return nil, errors.NewPositionNotFoundError(position, len(r.positions))
	}
	vars := snap.Clone()
	if record, ok := r.traces[position]; ok {
		vars.SetExistenceFromValues(TraceSource, map[string]any(record))
	}
	return vars, nil
}

// TraceAt returns the trace context recorded for position.
func (r *Result) TraceAt(position string) (TraceRecord, bool) {
	record, ok := r.traces[position]
	return record, ok
}

// HasErrors reports whether any annotation is an error.
func (r *Result) HasErrors() bool {
	return slices.ContainsFunc(r.Annotations, func(a Annotation) bool {
		return a.Level == LevelError
	})
}
