// Package menu turns the variables in scope at a brick into the entries of a
// variable-autocomplete menu, and narrows them as the user types.
package menu

import (
	"slices"
	"strconv"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/existence"
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/pipeline"
)

// representativeKey is the single child of a converted array.
const representativeKey = "0"

// Node is a menu tree node: existence metadata plus, when a trace supplied
// one, the concrete value observed at runtime.
type Node struct {
	Existence     existence.Existence
	AllowAnyChild bool
	// Sequence marks a converted array. Its children are keyed by index.
	Sequence bool
	Keys     []string
	Children map[string]*Node

	Value    any
	HasValue bool
}

// Child returns the child stored under key.
func (n *Node) Child(key string) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	c, ok := n.Children[key]
	return c, ok
}

// child resolves key, falling back to the representative element of a
// sequence for any index.
func (n *Node) child(key string) (*Node, bool) {
	if c, ok := n.Child(key); ok {
		return c, true
	}
	if n != nil && n.Sequence && pipeline.IsIndex(key) {
		return n.Child(representativeKey)
	}
	return nil, false
}

// At returns the node addressed by a forward key path. Any index of a
// sequence resolves to its representative element when not present itself.
func (n *Node) At(path ...string) (*Node, bool) {
	cur := n
	for _, key := range path {
		next, ok := cur.child(key)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, cur != nil
}

func (n *Node) add(key string, c *Node) {
	if n.Children == nil {
		n.Children = make(map[string]*Node)
	}
	if _, ok := n.Children[key]; !ok {
		n.Keys = append(n.Keys, key)
	}
	n.Children[key] = c
}

// shallow copies n without its children.
func (n *Node) shallow() *Node {
	return &Node{
		Existence:     n.Existence,
		AllowAnyChild: n.AllowAnyChild,
		Sequence:      n.Sequence,
		Value:         n.Value,
		HasValue:      n.HasValue,
	}
}

// Clone returns a deep copy. Trace values are shared.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := n.shallow()
	if len(n.Keys) > 0 {
		out.Keys = slices.Clone(n.Keys)
		out.Children = make(map[string]*Node, len(n.Keys))
		for _, k := range n.Keys {
			out.Children[k] = n.Children[k].Clone()
		}
	}
	return out
}

// ConvertArrays converts an existence tree into a menu tree, wrapping every
// array node as a sequence with one representative element "0" carrying
// the array node's children.
func ConvertArrays(t *existence.Tree) *Node {
	if t == nil {
		return nil
	}
	n := &Node{
		Existence:     t.Existence,
		AllowAnyChild: t.AllowAnyChild,
	}
	for _, k := range t.Keys {
		n.add(k, ConvertArrays(t.Children[k]))
	}
	if !t.IsArray {
		return n
	}
	seq := &Node{Existence: t.Existence, Sequence: true}
	seq.add(representativeKey, n)
	return seq
}

// overlay merges a concrete trace value into n. Existing nodes keep their
// existence; nodes created only by the overlay are Maybe. Array values map
// onto sequence indexes, copying the representative element for indexes
// the sequence does not have yet.
func overlay(n *Node, v any) {
	n.Value = v
	n.HasValue = true

	switch v := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			c, ok := n.Child(k)
			if !ok {
				c = &Node{Existence: existence.Maybe}
				n.add(k, c)
			}
			overlay(c, v[k])
		}

	case []any:
		if len(n.Keys) == 0 {
			n.Sequence = true
		}
		var template *Node
		if rep, ok := n.Child(representativeKey); ok && n.Sequence {
			template = rep.Clone()
		}
		for i, item := range v {
			key := strconv.Itoa(i)
			c, ok := n.Child(key)
			if !ok {
				if template != nil {
					c = template.Clone()
				} else {
					c = &Node{Existence: existence.Maybe}
				}
				n.add(key, c)
			}
			overlay(c, item)
		}
	}
}
