package menu

import (
	"slices"
	"strings"
)

// Selection identifies a highlighted menu node: its source and the forward
// key path from the source root, e.g. ["@input", "items", "0"].
type Selection struct {
	Source  string
	KeyPath []string
}

// IsZero reports whether nothing is selected.
func (s Selection) IsZero() bool {
	return s.Source == "" && len(s.KeyPath) == 0
}

// DefaultMenuOption picks the node to highlight for a partially typed
// variable: an exact match, searching the latest source first; else the
// first node whose last key starts with the typed segment; else the first
// variable of the last source that has one.
func DefaultMenuOption(options []Option, likelyVariable string) (Selection, bool) {
	if len(options) == 0 {
		return Selection{}, false
	}

	if parts, ok := likelyPath(likelyVariable); ok && len(parts) > 0 {
		if parts[len(parts)-1] != "" {
			for i := len(options) - 1; i >= 0; i-- {
				if _, ok := options[i].Vars.At(parts...); ok {
					return Selection{Source: options[i].Source, KeyPath: slices.Clone(parts)}, true
				}
			}
		}
		for i := len(options) - 1; i >= 0; i-- {
			if path, ok := firstPrefixMatch(options[i].Vars, parts); ok {
				return Selection{Source: options[i].Source, KeyPath: path}, true
			}
		}
	}

	for i := len(options) - 1; i >= 0; i-- {
		if vars := options[i].Vars; vars != nil && len(vars.Keys) > 0 {
			return Selection{Source: options[i].Source, KeyPath: []string{vars.Keys[0]}}, true
		}
	}
	return Selection{}, false
}

// firstPrefixMatch resolves all but the last segment exactly, then returns
// the first child whose key starts with the last segment.
func firstPrefixMatch(vars *Node, parts []string) ([]string, bool) {
	head, last := parts[:len(parts)-1], parts[len(parts)-1]
	parent, ok := vars.At(head...)
	if !ok {
		return nil, false
	}
	for _, key := range parent.Keys {
		if strings.HasPrefix(key, last) {
			return append(slices.Clone(head), key), true
		}
	}
	return nil, false
}

// MoveMenuOption moves the selection by offset among its siblings in the
// filtered menu, wrapping around at either end. Moving is confined to the
// selected source.
func MoveMenuOption(options []Option, likelyVariable string, current Selection, offset int) (Selection, bool) {
	if len(current.KeyPath) == 0 {
		return current, false
	}
	idx := slices.IndexFunc(options, func(o Option) bool { return o.Source == current.Source })
	if idx < 0 {
		return current, false
	}

	vars := FilterVarMapByVariable(options[idx].Vars, likelyVariable)
	head := current.KeyPath[:len(current.KeyPath)-1]
	parent, ok := vars.At(head...)
	if !ok || len(parent.Keys) == 0 {
		return current, false
	}

	siblings := parent.Keys
	pos := slices.Index(siblings, current.KeyPath[len(current.KeyPath)-1])
	if pos < 0 {
		return Selection{Source: current.Source, KeyPath: append(slices.Clone(head), siblings[0])}, true
	}
	n := len(siblings)
	next := ((pos+offset)%n + n) % n
	return Selection{Source: current.Source, KeyPath: append(slices.Clone(head), siblings[next])}, true
}
