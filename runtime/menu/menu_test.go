package menu

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/existence"
)

const (
	readerSource = "input:Array Composite Reader"
	jqSource     = "modComponent.brickPipeline.0"
)

// scenarioVars builds the reader + jq VarMap used across tests.
func scenarioVars() *existence.VarMap {
	vars := existence.New()
	vars.SetExistenceFromValues(readerSource, map[string]any{
		"@input": map[string]any{
			"description": "d",
			"icon":        "i",
			"image":       "img",
		},
	})
	vars.SetVariableExistence(jqSource, "@jq", existence.Exists, existence.WithAllowAnyChild())
	return vars
}

func sources(options []Option) []string {
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = o.Source
	}
	return out
}

func TestGetMenuOptionsOrder(t *testing.T) {
	vars := scenarioVars()
	vars.SetExistenceFromValues("trace", map[string]any{"@input": map[string]any{"x": 1.0}})

	options := GetMenuOptions(vars, nil)
	assert.Equal(t, []string{readerSource, jqSource}, sources(options))

	input, ok := options[0].Vars.At("@input")
	require.True(t, ok)
	assert.Equal(t, []string{"description", "icon", "image"}, input.Keys)

	jq, ok := options[1].Vars.At("@jq")
	require.True(t, ok)
	assert.True(t, jq.AllowAnyChild)
	assert.False(t, jq.HasValue)
}

func TestGetMenuOptionsOverlaysTrace(t *testing.T) {
	options := GetMenuOptions(scenarioVars(), map[string]any{
		"@input": map[string]any{"description": "Hello", "icon": "star", "image": "a.png"},
		"@jq":    map[string]any{"count": 2.0, "names": []any{"a", "b"}},
	})
	require.Equal(t, []string{readerSource, jqSource}, sources(options))

	desc, ok := options[0].Vars.At("@input", "description")
	require.True(t, ok)
	assert.Equal(t, "Hello", desc.Value)
	assert.Equal(t, existence.Exists, desc.Existence, "trace never lowers static existence")

	jq, _ := options[1].Vars.At("@jq")
	assert.Equal(t, existence.Exists, jq.Existence)
	assert.True(t, jq.AllowAnyChild)
	assert.Equal(t, []string{"count", "names"}, jq.Keys)

	count, _ := jq.Child("count")
	assert.Equal(t, existence.Maybe, count.Existence, "nodes created by the trace are Maybe")
	assert.Equal(t, 2.0, count.Value)

	names, _ := jq.Child("names")
	assert.True(t, names.Sequence)
	assert.Equal(t, []string{"0", "1"}, names.Keys)
	second, _ := names.Child("1")
	assert.Equal(t, "b", second.Value)
}

func TestGetMenuOptionsShadowedOutputKey(t *testing.T) {
	vars := existence.New()
	vars.SetVariableExistence("modComponent.brickPipeline.0", "@out", existence.Exists, existence.WithAllowAnyChild())
	vars.SetVariableExistence("modComponent.brickPipeline.1", "@out", existence.Exists, existence.WithAllowAnyChild())

	options := GetMenuOptions(vars, map[string]any{"@out": map[string]any{"v": 1.0}})
	require.Len(t, options, 2)

	earlier, _ := options[0].Vars.At("@out")
	assert.False(t, earlier.HasValue)
	assert.Empty(t, earlier.Keys)

	later, _ := options[1].Vars.At("@out")
	assert.True(t, later.HasValue)
	assert.Equal(t, []string{"v"}, later.Keys)
}

func TestGetMenuOptionsExcludesIntegrations(t *testing.T) {
	vars := scenarioVars()
	vars.SetVariableExistence("integration:@pixiebrix/google/sheets", "@sheets", existence.Exists)

	options := GetMenuOptions(vars, map[string]any{"@sheets": map[string]any{"token": "secret"}})
	assert.Equal(t, []string{readerSource, jqSource}, sources(options))
}

func TestGetMenuOptionsArrayOverlayUsesRepresentative(t *testing.T) {
	vars := existence.New()
	vars.SetExistenceFromValues("input:reader", map[string]any{
		"@input": map[string]any{"items": []any{map[string]any{"title": "a"}}},
	})

	options := GetMenuOptions(vars, map[string]any{
		"@input": map[string]any{"items": []any{
			map[string]any{"title": "first"},
			map[string]any{"title": "second"},
			map[string]any{"title": "third", "extra": true},
		}},
	})

	items, ok := options[0].Vars.At("@input", "items")
	require.True(t, ok)
	assert.True(t, items.Sequence)
	assert.Equal(t, []string{"0", "1", "2"}, items.Keys)

	third, _ := items.Child("2")
	title, _ := third.Child("title")
	assert.Equal(t, existence.Exists, title.Existence, "copied from the representative element")
	assert.Equal(t, "third", title.Value)
	extra, _ := third.Child("extra")
	assert.Equal(t, existence.Maybe, extra.Existence)
}

func TestConvertArraysRoundTrip(t *testing.T) {
	vars := existence.New()
	vars.SetExistence("s", "@list", existence.Exists, existence.WithArray(), existence.WithAllowAnyChild())
	vars.SetExistence("s", "@list[0].name", existence.Exists)
	vars.SetExistence("s", "@list[0].tags", existence.Maybe, existence.WithArray())

	tree, _ := vars.Get("s")
	original, _ := tree.Child("@list")

	converted := ConvertArrays(original)
	require.True(t, converted.Sequence)
	require.Equal(t, []string{"0"}, converted.Keys)

	element := converted.Children["0"]
	assert.Equal(t, original.Existence, element.Existence)
	assert.Equal(t, original.AllowAnyChild, element.AllowAnyChild)
	assert.False(t, element.Sequence)
	assert.Equal(t, original.Keys, element.Keys)

	tags, _ := element.Child("tags")
	assert.True(t, tags.Sequence, "nested arrays convert too")
}

func filterScenario() *Node {
	vars := existence.New()
	vars.SetExistenceFromValues("input:reader", map[string]any{
		"@input": map[string]any{
			"fo":    map[string]any{"a": 1.0, "b": 2.0},
			"foo":   1.0,
			"bar":   1.0,
			"items": []any{map[string]any{"f": 1.0, "g": 2.0}},
		},
	})
	tree, _ := vars.Get("input:reader")
	return ConvertArrays(tree)
}

func TestFilterVarMapByVariable(t *testing.T) {
	root := filterScenario()

	tests := []struct {
		likely string
		want   []string
	}{
		{"@input.fo", []string{"@input", "@input.fo", "@input.fo.a", "@input.fo.b", "@input.foo"}},
		{"@input.fo.", []string{"@input", "@input.fo", "@input.fo.a", "@input.fo.b"}},
		{"@input?.fo.", []string{"@input", "@input.fo", "@input.fo.a", "@input.fo.b"}},
		{"@input.fo.a", []string{"@input", "@input.fo", "@input.fo.a"}},
		{"@input.items[0].f", []string{"@input", "@input.items", "@input.items.0", "@input.items.0.f"}},
		{"@input.items[3]", []string{"@input", "@input.items", "@input.items.3", "@input.items.3.f", "@input.items.3.g"}},
		{"@input.zzz", []string{"@input"}},
		{"@nothing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.likely, func(t *testing.T) {
			got := paths(FilterVarMapByVariable(root, tt.likely))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FilterVarMapByVariable(%q) mismatch (-want +got):\n%s", tt.likely, diff)
			}
		})
	}

	assert.Same(t, root, FilterVarMapByVariable(root, "plain text"))
	assert.Nil(t, FilterVarMapByVariable(nil, "@input"))
}

func TestFilterArrayIndexKeepsMetadata(t *testing.T) {
	root := filterScenario()
	filtered := FilterVarMapByVariable(root, "@input.items[3]")

	items, ok := filtered.At("@input", "items")
	require.True(t, ok)
	assert.True(t, items.Sequence)
	assert.Equal(t, []string{"3"}, items.Keys)
	element, _ := items.Child("3")
	assert.Equal(t, existence.Exists, element.Existence)
}

func TestFilterMenuOptions(t *testing.T) {
	options := GetMenuOptions(scenarioVars(), nil)

	assert.Equal(t, []string{jqSource}, sources(FilterMenuOptions(options, "@j")))
	assert.Equal(t, []string{readerSource}, sources(FilterMenuOptions(options, "@input.ic")))
	assert.Empty(t, FilterMenuOptions(options, "@zzz"))
	assert.Len(t, FilterMenuOptions(options, "not a variable"), 2)

	icon := FilterMenuOptions(options, "@input.ic")[0].Vars
	assert.Equal(t, []string{"@input", "@input.icon"}, paths(icon))
}

func TestExpandCurrentVariableLevel(t *testing.T) {
	root := filterScenario()

	expand := ExpandCurrentVariableLevel(root, "@input.items[0].")
	assert.True(t, expand([]string{"root"}, 0))
	assert.True(t, expand([]string{"@input", "root"}, 1))
	assert.True(t, expand([]string{"items", "@input", "root"}, 2))
	assert.True(t, expand([]string{"0", "items", "@input", "root"}, 3))
	assert.False(t, expand([]string{"f", "0", "items", "@input", "root"}, 4))
	assert.False(t, expand([]string{"fo", "@input", "root"}, 2), "sibling of the typed path")

	partial := ExpandCurrentVariableLevel(root, "@input.fo")
	assert.True(t, partial([]string{"@input", "root"}, 1))
	assert.False(t, partial([]string{"fo", "@input", "root"}, 2), "last segment is not completed")

	none := ExpandCurrentVariableLevel(root, "")
	assert.True(t, none([]string{"root"}, 0))
	assert.False(t, none([]string{"@input", "root"}, 1))

	unknown := ExpandCurrentVariableLevel(root, "@input.missing.")
	assert.False(t, unknown([]string{"missing", "@input", "root"}, 2))
}

func TestDefaultMenuOption(t *testing.T) {
	vars := scenarioVars()
	vars.SetVariableExistence("modComponent.brickPipeline.1", "@jq", existence.Exists)
	vars.SetVariableExistence("modComponent.brickPipeline.1", "@jqOther", existence.Exists)
	options := GetMenuOptions(vars, nil)

	tests := []struct {
		likely string
		want   Selection
	}{
		{"@jq", Selection{Source: "modComponent.brickPipeline.1", KeyPath: []string{"@jq"}}},
		{"@input.ic", Selection{Source: readerSource, KeyPath: []string{"@input", "icon"}}},
		{"@input.", Selection{Source: readerSource, KeyPath: []string{"@input", "description"}}},
		{"@input.image", Selection{Source: readerSource, KeyPath: []string{"@input", "image"}}},
		{"@nothing", Selection{Source: "modComponent.brickPipeline.1", KeyPath: []string{"@jq"}}},
		{"", Selection{Source: "modComponent.brickPipeline.1", KeyPath: []string{"@jq"}}},
	}
	for _, tt := range tests {
		t.Run(tt.likely, func(t *testing.T) {
			got, ok := DefaultMenuOption(options, tt.likely)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := DefaultMenuOption(nil, "@jq")
	assert.False(t, ok)
}

func TestDefaultMenuOptionSkipsEmptySources(t *testing.T) {
	options := []Option{
		{Source: readerSource, Vars: &Node{Keys: []string{"@input"}, Children: map[string]*Node{"@input": {Existence: existence.Exists}}}},
		{Source: "modComponent.brickPipeline.1", Vars: &Node{}},
	}
	got, ok := DefaultMenuOption(options, "")
	require.True(t, ok)
	assert.Equal(t, Selection{Source: readerSource, KeyPath: []string{"@input"}}, got)

	_, ok = DefaultMenuOption(options[1:], "")
	assert.False(t, ok)
}

func TestMoveMenuOptionWraps(t *testing.T) {
	options := GetMenuOptions(scenarioVars(), nil)
	likely := "@input."

	first := Selection{Source: readerSource, KeyPath: []string{"@input", "description"}}
	last := Selection{Source: readerSource, KeyPath: []string{"@input", "image"}}

	next, ok := MoveMenuOption(options, likely, first, 1)
	require.True(t, ok)
	assert.Equal(t, []string{"@input", "icon"}, next.KeyPath)

	wrapped, ok := MoveMenuOption(options, likely, last, 1)
	require.True(t, ok)
	assert.Equal(t, first, wrapped)

	back, ok := MoveMenuOption(options, likely, first, -1)
	require.True(t, ok)
	assert.Equal(t, last, back)

	_, ok = MoveMenuOption(options, likely, Selection{Source: "nope", KeyPath: []string{"@x"}}, 1)
	assert.False(t, ok)
	_, ok = MoveMenuOption(options, likely, Selection{Source: readerSource}, 1)
	assert.False(t, ok)
}

func TestMoveMenuOptionStaysInFilteredSiblings(t *testing.T) {
	options := GetMenuOptions(scenarioVars(), nil)

	cur := Selection{Source: readerSource, KeyPath: []string{"@input", "icon"}}
	next, ok := MoveMenuOption(options, "@input.i", cur, 1)
	require.True(t, ok)
	assert.Equal(t, []string{"@input", "image"}, next.KeyPath)

	again, ok := MoveMenuOption(options, "@input.i", next, 1)
	require.True(t, ok)
	assert.Equal(t, cur, again)
}

func TestEndToEndScenario(t *testing.T) {
	vars := scenarioVars()

	empty := GetMenuOptions(vars, map[string]any{})
	require.Len(t, empty, 2)
	assert.Equal(t, []string{readerSource, jqSource}, sources(empty))

	traced := GetMenuOptions(vars, map[string]any{
		"@input": map[string]any{"description": "A page", "icon": "i.png", "image": "big.png"},
		"@jq":    map[string]any{"result": "ok"},
	})
	require.Len(t, traced, 2)
	assert.Equal(t, []string{readerSource, jqSource}, sources(traced))

	image, _ := traced[0].Vars.At("@input", "image")
	assert.Equal(t, "big.png", image.Value)
	result, _ := traced[1].Vars.At("@jq", "result")
	assert.Equal(t, "ok", result.Value)

	// building options leaves the VarMap untouched
	tree, _ := vars.Get(jqSource)
	jq, _ := tree.Child("@jq")
	assert.Empty(t, jq.Keys)
}

// paths lists node paths depth first, dot-joined without formatting.
func paths(n *Node) []string {
	var out []string
	var walk func(n *Node, prefix string)
	walk = func(n *Node, prefix string) {
		for _, k := range n.Keys {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			out = append(out, p)
			walk(n.Children[k], p)
		}
	}
	if n != nil {
		walk(n, "")
	}
	return out
}
