package existence

import (
	"slices"
	"sort"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/invariant"
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/pipeline"
)

type nodeID int32

type node struct {
	existence     Existence
	allowAnyChild bool
	isArray       bool
	keys          []string
	children      map[string]nodeID
}

// VarMap is an ordered mapping from source to existence tree.
// The zero value is not usable; call New.
type VarMap struct {
	nodes   []node
	sources []string
	roots   map[string]nodeID
}

// New returns an empty VarMap.
func New() *VarMap {
	return &VarMap{roots: make(map[string]nodeID)}
}

func (m *VarMap) alloc() nodeID {
	m.nodes = append(m.nodes, node{})
	return nodeID(len(m.nodes) - 1)
}

// root returns the root node of source, creating it and appending source to
// the source order when it is new.
func (m *VarMap) root(source string) nodeID {
	if id, ok := m.roots[source]; ok {
		return id
	}
	id := m.alloc()
	m.nodes[id].existence = Exists
	m.roots[source] = id
	m.sources = append(m.sources, source)
	return id
}

// child returns the child of parent under key, creating it when missing.
func (m *VarMap) child(parent nodeID, key string) nodeID {
	if id, ok := m.nodes[parent].children[key]; ok {
		return id
	}
	id := m.alloc()
	// alloc may have moved the slice; index again
	p := &m.nodes[parent]
	if p.children == nil {
		p.children = make(map[string]nodeID)
	}
	p.children[key] = id
	p.keys = append(p.keys, key)
	return id
}

// descend walks path from the source root, creating missing nodes and raising
// every node on the way to at least existence. A numeric segment under an
// array node addresses the array's element shape, which is the array node
// itself.
func (m *VarMap) descend(source string, path []string, existence Existence) nodeID {
	id := m.root(source)
	for _, seg := range path {
		if m.nodes[id].isArray && pipeline.IsIndex(seg) {
			continue
		}
		id = m.child(id, seg)
		m.raise(id, existence)
	}
	return id
}

func (m *VarMap) raise(id nodeID, existence Existence) {
	n := &m.nodes[id]
	n.existence = Max(n.existence, existence)
}

// SetExistence declares existence for a path under source, creating
// intermediate nodes as needed. The path uses variable path syntax, e.g.
// "@input.items[0].title".
func (m *VarMap) SetExistence(source, path string, existence Existence, opts ...Option) {
	m.setExistence(source, pipeline.ParseVariablePath(path), existence, opts...)
}

// SetVariableExistence declares a single top-level variable such as "@jq".
func (m *VarMap) SetVariableExistence(source, variable string, existence Existence, opts ...Option) {
	m.setExistence(source, []string{variable}, existence, opts...)
}

func (m *VarMap) setExistence(source string, path []string, existence Existence, opts ...Option) {
	var f flags
	for _, opt := range opts {
		opt(&f)
	}
	id := m.descend(source, path, existence)
	n := &m.nodes[id]
	n.isArray = n.isArray || f.isArray
	n.allowAnyChild = n.allowAnyChild || f.allowAnyChild
}

// SetExistenceFromValues marks every path reachable in a literal value as
// Exists. values is decoded JSON: map[string]any, []any or a scalar.
//
// Arrays set IsArray and merge every element into the array node, so the
// node's children describe the union of the element shapes. Nested arrays
// are flattened into the same element shape. Map keys are visited in sorted
// order.
func (m *VarMap) SetExistenceFromValues(source string, values any, parentPath ...string) {
	id := m.descend(source, parentPath, Exists)
	m.fromValue(id, values)
}

func (m *VarMap) fromValue(id nodeID, v any) {
	switch v := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := m.child(id, k)
			m.raise(child, Exists)
			m.fromValue(child, v[k])
		}
	case []any:
		m.nodes[id].isArray = true
		for _, item := range v {
			m.fromValue(id, item)
		}
	}
}

// Get returns a copy of the tree recorded for source.
func (m *VarMap) Get(source string) (*Tree, bool) {
	id, ok := m.roots[source]
	if !ok {
		return nil, false
	}
	return m.materialize(id), true
}

// Has reports whether source has been declared.
func (m *VarMap) Has(source string) bool {
	_, ok := m.roots[source]
	return ok
}

// Sources returns the sources in declaration order.
func (m *VarMap) Sources() []string {
	return slices.Clone(m.sources)
}

// Len returns the number of sources.
func (m *VarMap) Len() int {
	return len(m.sources)
}

// Entry is one source and its tree.
type Entry struct {
	Source string
	Tree   *Tree
}

// Entries returns every source with a copy of its tree, in declaration order.
func (m *VarMap) Entries() []Entry {
	out := make([]Entry, 0, len(m.sources))
	for _, s := range m.sources {
		out = append(out, Entry{Source: s, Tree: m.materialize(m.roots[s])})
	}
	return out
}

// Map returns every source's tree keyed by source. Use Entries when order
// matters.
func (m *VarMap) Map() map[string]*Tree {
	out := make(map[string]*Tree, len(m.sources))
	for _, s := range m.sources {
		out[s] = m.materialize(m.roots[s])
	}
	return out
}

// Delete removes source and its tree.
func (m *VarMap) Delete(source string) {
	if _, ok := m.roots[source]; !ok {
		return
	}
	delete(m.roots, source)
	m.sources = slices.DeleteFunc(m.sources, func(s string) bool { return s == source })
}

// Clone returns an independent copy holding only reachable nodes.
func (m *VarMap) Clone() *VarMap {
	out := New()
	out.Merge(m)
	return out
}

// Merge folds other into m. Sources new to m are appended in other's order;
// shared sources are merged node by node.
func (m *VarMap) Merge(other *VarMap) {
	if other == nil {
		return
	}
	for _, s := range other.sources {
		m.mergeNode(m.root(s), other, other.roots[s])
	}
}

// MergeTree folds a materialized tree into the node at path under source.
func (m *VarMap) MergeTree(source string, t *Tree, path ...string) {
	if t == nil {
		return
	}
	id := m.descend(source, path, t.Existence)
	m.mergeTree(id, t)
}

func (m *VarMap) mergeNode(dst nodeID, src *VarMap, srcID nodeID) {
	sn := src.nodes[srcID]
	d := &m.nodes[dst]
	d.existence = Max(d.existence, sn.existence)
	d.allowAnyChild = d.allowAnyChild || sn.allowAnyChild
	d.isArray = d.isArray || sn.isArray
	for _, k := range sn.keys {
		m.mergeNode(m.child(dst, k), src, sn.children[k])
	}
}

func (m *VarMap) mergeTree(dst nodeID, t *Tree) {
	d := &m.nodes[dst]
	d.existence = Max(d.existence, t.Existence)
	d.allowAnyChild = d.allowAnyChild || t.AllowAnyChild
	d.isArray = d.isArray || t.IsArray
	for _, k := range t.Keys {
		m.mergeTree(m.child(dst, k), t.Children[k])
	}
}

// Lookup returns the strongest existence of a variable path across all
// sources. A path that runs past an AllowAnyChild node is at most Maybe.
func (m *VarMap) Lookup(path string) Existence {
	parts := pipeline.ParseVariablePath(path)
	best := NotExists
	if len(parts) == 0 {
		return best
	}
	for _, s := range m.sources {
		best = Max(best, m.lookup(m.roots[s], parts))
		if best == Exists {
			break
		}
	}
	return best
}

func (m *VarMap) lookup(id nodeID, parts []string) Existence {
	result := Exists
	for _, seg := range parts {
		n := &m.nodes[id]
		if next, ok := n.children[seg]; ok {
			id = next
			result = Min(result, m.nodes[id].existence)
			continue
		}
		switch {
		case n.isArray && pipeline.IsIndex(seg):
			// element shape is the array node itself
		case n.allowAnyChild:
			return Min(result, Maybe)
		default:
			return NotExists
		}
	}
	return result
}

func (m *VarMap) materialize(id nodeID) *Tree {
	invariant.Precondition(int(id) < len(m.nodes), "node %d out of range", id)
	n := m.nodes[id]
	t := &Tree{
		Existence:     n.existence,
		AllowAnyChild: n.allowAnyChild,
		IsArray:       n.isArray,
	}
	if len(n.keys) > 0 {
		t.Keys = slices.Clone(n.keys)
		t.Children = make(map[string]*Tree, len(n.keys))
		for _, k := range n.keys {
			t.Children[k] = m.materialize(n.children[k])
		}
	}
	return t
}
