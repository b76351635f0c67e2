package analysis

import (
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/existence"
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/invariant"
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/pipeline"
)

// scopeStack tracks the variables in scope while descending into nested
// pipelines. Entering a sub-pipeline pushes a copy of the enclosing scope, so
// locals declared inside never leak out; leaving restores the enclosing
// scope unchanged apart from what was added to it directly.
type scopeStack struct {
	frames []*scope
}

type scope struct {
	vars *existence.VarMap
	// Position of the pipeline the scope belongs to.
	pos   pipeline.Position
	depth int
}

func newScopeStack(root *existence.VarMap) *scopeStack {
	invariant.NotNil(root, "root scope")
	return &scopeStack{
		frames: []*scope{{vars: root, pos: pipeline.RootPosition}},
	}
}

// current returns the innermost scope's variables.
func (s *scopeStack) current() *existence.VarMap {
	return s.frames[len(s.frames)-1].vars
}

// enter pushes a copy of the current scope for the pipeline at pos.
func (s *scopeStack) enter(pos pipeline.Position) *existence.VarMap {
	parent := s.frames[len(s.frames)-1]
	child := &scope{
		vars:  parent.vars.Clone(),
		pos:   pos,
		depth: parent.depth + 1,
	}
	s.frames = append(s.frames, child)
	return child.vars
}

// exit pops the scope of the pipeline at pos.
func (s *scopeStack) exit(pos pipeline.Position) {
	invariant.Invariant(len(s.frames) > 1, "cannot exit root scope")
	top := s.frames[len(s.frames)-1]
	invariant.Invariant(top.pos == pos, "exiting scope %s but innermost is %s", pos, top.pos)
	s.frames = s.frames[:len(s.frames)-1]
}

// depth returns the nesting depth of the current scope; the root is 0.
func (s *scopeStack) depth() int {
	return s.frames[len(s.frames)-1].depth
}
