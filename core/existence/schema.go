package existence

import (
	"slices"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// maxSchemaDepth bounds recursion through self-referencing schemas.
const maxSchemaDepth = 16

// SetExistenceFromSchema declares the shape described by a compiled JSON
// schema at parentPath under source.
//
// Required properties take existence; optional properties are Maybe. An
// object without declared properties, or with additionalProperties allowed
// explicitly, accepts any child. Array schemas set IsArray and describe the
// element shape from items. allOf branches apply at the same existence;
// anyOf and oneOf branches are at most Maybe.
func (m *VarMap) SetExistenceFromSchema(source string, schema *jsonschema.Schema, existence Existence, parentPath ...string) {
	id := m.descend(source, parentPath, existence)
	if schema == nil {
		m.nodes[id].allowAnyChild = true
		return
	}
	m.fromSchema(id, schema, existence, nil)
}

func (m *VarMap) fromSchema(id nodeID, s *jsonschema.Schema, existence Existence, stack []*jsonschema.Schema) {
	s = deref(s)
	if s == nil {
		return
	}
	if len(stack) >= maxSchemaDepth || slices.Contains(stack, s) {
		m.nodes[id].allowAnyChild = true
		return
	}
	stack = append(stack, s)

	for _, sub := range s.AllOf {
		m.fromSchema(id, sub, existence, stack)
	}
	for _, sub := range slices.Concat(s.AnyOf, s.OneOf) {
		m.fromSchema(id, sub, Min(existence, Maybe), stack)
	}

	switch {
	case isType(s, "array") || s.Items != nil || s.Items2020 != nil || len(s.PrefixItems) > 0:
		m.nodes[id].isArray = true
		m.fromItems(id, s, existence, stack)

	case isType(s, "object") || len(s.Properties) > 0:
		m.fromProperties(id, s, existence, stack)

	case len(s.Types) == 0 && len(s.AllOf) == 0 && len(s.AnyOf) == 0 && len(s.OneOf) == 0 &&
		s.Constant == nil && len(s.Enum) == 0:
		// no constraint on the shape at all
		m.nodes[id].allowAnyChild = true
	}
}

func (m *VarMap) fromProperties(id nodeID, s *jsonschema.Schema, existence Existence, stack []*jsonschema.Schema) {
	if len(s.Properties) == 0 {
		m.nodes[id].allowAnyChild = true
	}
	switch ap := s.AdditionalProperties.(type) {
	case bool:
		if ap {
			m.nodes[id].allowAnyChild = true
		}
	case *jsonschema.Schema:
		m.nodes[id].allowAnyChild = true
	}
	if len(s.PatternProperties) > 0 {
		m.nodes[id].allowAnyChild = true
	}

	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		level := Min(existence, Maybe)
		if slices.Contains(s.Required, name) {
			level = existence
		}
		child := m.child(id, name)
		m.raise(child, level)
		m.fromSchema(child, s.Properties[name], level, stack)
	}
}

func (m *VarMap) fromItems(id nodeID, s *jsonschema.Schema, existence Existence, stack []*jsonschema.Schema) {
	// element shapes are never guaranteed: the array may be empty
	elem := Min(existence, Maybe)
	found := false
	for _, sub := range s.PrefixItems {
		m.fromSchema(id, sub, elem, stack)
		found = true
	}
	if s.Items2020 != nil {
		m.fromSchema(id, s.Items2020, elem, stack)
		found = true
	}
	switch items := s.Items.(type) {
	case *jsonschema.Schema:
		m.fromSchema(id, items, elem, stack)
		found = true
	case []*jsonschema.Schema:
		for _, sub := range items {
			m.fromSchema(id, sub, elem, stack)
		}
		found = found || len(items) > 0
	}
	if !found {
		m.nodes[id].allowAnyChild = true
	}
}

func deref(s *jsonschema.Schema) *jsonschema.Schema {
	for i := 0; s != nil && s.Ref != nil && i < maxSchemaDepth; i++ {
		if len(s.Types) > 0 || len(s.Properties) > 0 {
			break
		}
		s = s.Ref
	}
	return s
}

func isType(s *jsonschema.Schema, typ string) bool {
	return slices.Contains(s.Types, typ)
}
