package pipeline

import (
	"strconv"
	"strings"
)

const rootPath = "modComponent.brickPipeline"

// Position addresses a location in a (possibly nested) pipeline. The path is
// a dot-joined accessor into the mod component form state, so it doubles as
// the source label of a brick's output variable.
//
//	modComponent.brickPipeline.0
//	modComponent.brickPipeline.2.config.body.__value__.0
//	modComponent.brickPipeline.1.config.body.0.children.0.config.onClick.__value__.0
type Position struct {
	path string
}

// RootPosition is the position of the root pipeline.
var RootPosition = Position{path: rootPath}

// PositionOf wraps a path string.
func PositionOf(path string) Position {
	return Position{path: path}
}

// Join returns the position nested under p by the given path parts. Empty
// parts are ignored.
func (p Position) Join(parts ...string) Position {
	var b strings.Builder
	b.WriteString(p.path)
	for _, part := range parts {
		if part == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return Position{path: b.String()}
}

// Index returns the position of the i-th brick of the pipeline at p.
func (p Position) Index(i int) Position {
	return p.Join(strconv.Itoa(i))
}

// String returns the dot-joined path.
func (p Position) String() string {
	return p.path
}

// IsZero reports whether p is the empty position.
func (p Position) IsZero() bool {
	return p.path == ""
}

// HasPrefix reports whether q is p or nested under p.
func (p Position) HasPrefix(q Position) bool {
	if p.path == q.path {
		return true
	}
	return strings.HasPrefix(p.path, q.path+".")
}
