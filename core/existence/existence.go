// Package existence records which variables are known to exist at a point in
// a brick pipeline, and how confidently.
//
// # Architecture
//
// A VarMap maps a source (the brick or reader that produced the variables) to
// a tree of path segments. Every node carries:
//
//	Existence      NotExists < Maybe < Exists
//	AllowAnyChild  children beyond the enumerated ones may exist
//	IsArray        the node is a sequence; its children describe one element
//
// Nodes live in an arena owned by the VarMap and are addressed by
// (source, path). Writers only ever strengthen a node: existence takes the
// maximum and the flags are OR-combined, so declaring the same path twice in
// any order converges on the same tree. Readers receive materialized *Tree
// copies and never alias arena storage.
package existence

// Existence is the confidence that a variable exists.
type Existence int

const (
	NotExists Existence = iota
	Maybe
	Exists
)

func (e Existence) String() string {
	switch e {
	case NotExists:
		return "NOT_EXISTS"
	case Maybe:
		return "MAYBE"
	case Exists:
		return "EXISTS"
	default:
		return "UNKNOWN"
	}
}

// Max returns the stronger of two existence levels.
func Max(a, b Existence) Existence {
	if a > b {
		return a
	}
	return b
}

// Min returns the weaker of two existence levels.
func Min(a, b Existence) Existence {
	if a < b {
		return a
	}
	return b
}

// Option adjusts a SetExistence or SetVariableExistence declaration.
type Option func(*flags)

type flags struct {
	isArray       bool
	allowAnyChild bool
}

// WithArray marks the declared node as an array.
func WithArray() Option {
	return func(f *flags) { f.isArray = true }
}

// WithAllowAnyChild marks the declared node as accepting children that are
// not enumerated, e.g. the output of a brick with no output schema.
func WithAllowAnyChild() Option {
	return func(f *flags) { f.allowAnyChild = true }
}
