package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/existence"
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/pipeline"
)

func TestScopeStackRestoresEnclosingScope(t *testing.T) {
	root := existence.New()
	root.SetVariableExistence("input", "@input", existence.Exists)
	s := newScopeStack(root)

	body := pipeline.RootPosition.Index(0).Join("config", "body", "__value__")
	inner := s.enter(body)
	inner.SetVariableExistence("loop", "@element", existence.Exists)
	assert.Equal(t, 1, s.depth())
	assert.Equal(t, existence.Exists, s.current().Lookup("@element"))
	assert.Equal(t, existence.Exists, s.current().Lookup("@input"))

	s.exit(body)
	assert.Equal(t, 0, s.depth())
	assert.Equal(t, existence.NotExists, s.current().Lookup("@element"))
	assert.Same(t, root, s.current())
}

func TestScopeStackExitRootPanics(t *testing.T) {
	s := newScopeStack(existence.New())
	assert.Panics(t, func() { s.exit(pipeline.RootPosition) })
}

func TestScopeStackMismatchedExitPanics(t *testing.T) {
	s := newScopeStack(existence.New())
	s.enter(pipeline.PositionOf("a"))
	assert.Panics(t, func() { s.exit(pipeline.PositionOf("b")) })
}
