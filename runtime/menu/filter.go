package menu

import (
	"slices"
	"strings"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/pipeline"
)

// likelyPath splits a partially typed variable reference. ok is false when
// the text is not a variable reference.
func likelyPath(likelyVariable string) ([]string, bool) {
	if !strings.HasPrefix(likelyVariable, "@") {
		return nil, false
	}
	return pipeline.ParseVariablePath(likelyVariable), true
}

// FilterVarMapByVariable returns the part of vars matching a partially typed
// variable reference. Every segment but the last must match a key exactly;
// the last matches as a prefix, so "@input.fo" keeps "foo" while
// "@input.fo." requires "fo" and keeps all of its children. A numeric
// segment under a sequence keeps exactly that index, taking the
// representative element when the index is not known.
//
// Text that is not a variable reference returns vars unchanged. No match
// returns a node without children.
func FilterVarMapByVariable(vars *Node, likelyVariable string) *Node {
	if vars == nil {
		return nil
	}
	parts, ok := likelyPath(likelyVariable)
	if !ok {
		return vars
	}
	return filterNode(vars, parts)
}

func filterNode(n *Node, parts []string) *Node {
	if len(parts) == 0 {
		return n.Clone()
	}
	seg, rest := parts[0], parts[1:]
	last := len(rest) == 0
	out := n.shallow()

	if n.Sequence && pipeline.IsIndex(seg) {
		if c, ok := n.child(seg); ok {
			out.add(seg, filterNode(c, rest))
		}
		return out
	}

	for _, key := range n.Keys {
		match := key == seg
		if last {
			match = strings.HasPrefix(key, seg)
		}
		if match {
			out.add(key, filterNode(n.Children[key], rest))
		}
	}
	return out
}

// FilterMenuOptions filters every option by a partially typed variable and
// drops options left without variables.
func FilterMenuOptions(options []Option, likelyVariable string) []Option {
	if _, ok := likelyPath(likelyVariable); !ok {
		return options
	}
	out := make([]Option, 0, len(options))
	for _, opt := range options {
		filtered := FilterVarMapByVariable(opt.Vars, likelyVariable)
		if filtered == nil || len(filtered.Keys) == 0 {
			continue
		}
		out = append(out, Option{Source: opt.Source, Vars: filtered})
	}
	return out
}

// ShouldExpandFunc decides whether a menu tree node starts expanded.
// keyPath runs leaf first and ends with the root label; level 0 is the root.
type ShouldExpandFunc func(keyPath []string, level int) bool

// ExpandCurrentVariableLevel expands the nodes along the variable being
// typed, as deep as its completed segments: "@input.items." expands @input
// and items but not their siblings.
func ExpandCurrentVariableLevel(vars *Node, likelyVariable string) ShouldExpandFunc {
	parts, ok := likelyPath(likelyVariable)
	completed := 0
	if ok && len(parts) > 0 {
		completed = len(parts) - 1
	}

	return func(keyPath []string, level int) bool {
		if level == 0 {
			return true
		}
		if level > completed || len(keyPath) < level+1 {
			return false
		}
		forward := slices.Clone(keyPath[:level])
		slices.Reverse(forward)
		for i, key := range forward {
			if key != parts[i] {
				return false
			}
		}
		_, exists := vars.At(forward...)
		return exists
	}
}
