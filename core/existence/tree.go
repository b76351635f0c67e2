package existence

import (
	"slices"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/pipeline"
)

// Tree is a materialized existence node with its subtree.
type Tree struct {
	Existence     Existence
	AllowAnyChild bool
	IsArray       bool
	// Keys lists Children in insertion order.
	Keys     []string
	Children map[string]*Tree
}

// Child returns the child stored under key.
func (t *Tree) Child(key string) (*Tree, bool) {
	if t == nil {
		return nil, false
	}
	c, ok := t.Children[key]
	return c, ok
}

// At returns the subtree addressed by path segments. A numeric segment under
// an array node addresses the node itself.
func (t *Tree) At(path ...string) (*Tree, bool) {
	cur := t
	for _, seg := range path {
		if next, ok := cur.Child(seg); ok {
			cur = next
			continue
		}
		if cur != nil && cur.IsArray && pipeline.IsIndex(seg) {
			continue
		}
		return nil, false
	}
	return cur, cur != nil
}

// Clone returns a deep copy.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return nil
	}
	out := &Tree{
		Existence:     t.Existence,
		AllowAnyChild: t.AllowAnyChild,
		IsArray:       t.IsArray,
	}
	if len(t.Keys) > 0 {
		out.Keys = slices.Clone(t.Keys)
		out.Children = make(map[string]*Tree, len(t.Keys))
		for _, k := range t.Keys {
			out.Children[k] = t.Children[k].Clone()
		}
	}
	return out
}

// Paths lists every node below t as a formatted variable path, depth first in
// key order. Array element shapes are written with index 0.
//
//	@input
//	@input.items
//	@input.items[0].title
func (t *Tree) Paths() []string {
	var out []string
	var walk func(n *Tree, prefix []string)
	walk = func(n *Tree, prefix []string) {
		for _, k := range n.Keys {
			p := append(slices.Clone(prefix), k)
			out = append(out, pipeline.FormatVariablePath(p))
			c := n.Children[k]
			if c.IsArray {
				p = append(p, "0")
			}
			walk(c, p)
		}
	}
	if t != nil {
		walk(t, nil)
	}
	return out
}
