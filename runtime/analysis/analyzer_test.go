package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/errors"
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/existence"
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/pipeline"
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/registry"
)

func mustPipeline(t *testing.T, raw ...any) pipeline.Pipeline {
	t.Helper()
	p, err := pipeline.DecodePipeline(raw)
	require.NoError(t, err)
	return p
}

func brick(id, outputKey string, config map[string]any) map[string]any {
	if config == nil {
		config = map[string]any{}
	}
	b := map[string]any{"id": id, "config": config}
	if outputKey != "" {
		b["outputKey"] = outputKey
	}
	return b
}

func varRef(path string) map[string]any {
	return map[string]any{"__type__": "var", "__value__": path}
}

func sub(bricks ...any) map[string]any {
	return map[string]any{"__type__": "pipeline", "__value__": bricks}
}

func run(t *testing.T, in Input) *Result {
	t.Helper()
	res, err := New(registry.Builtin()).Run(context.Background(), in)
	require.NoError(t, err)
	return res
}

func varsAt(t *testing.T, res *Result, pos string) *existence.VarMap {
	t.Helper()
	vars, err := res.VarsAt(pos)
	require.NoError(t, err)
	return vars
}

func TestOutputVisibleFromNextSibling(t *testing.T) {
	res := run(t, Input{
		Pipeline: mustPipeline(t,
			brick("@pixiebrix/jq", "jq", nil),
			brick("@pixiebrix/identity", "same", map[string]any{"value": varRef("@jq")}),
			brick("@pixiebrix/browser/log", "", nil),
		),
		StarterBrick: StarterBrick{Type: pipeline.StarterTrigger},
	})

	assert.Equal(t, []string{
		"modComponent.brickPipeline.0",
		"modComponent.brickPipeline.1",
		"modComponent.brickPipeline.2",
	}, res.Positions())

	first := varsAt(t, res, "modComponent.brickPipeline.0")
	assert.Equal(t, existence.NotExists, first.Lookup("@jq"))

	second := varsAt(t, res, "modComponent.brickPipeline.1")
	assert.Equal(t, existence.Exists, second.Lookup("@jq"))
	assert.Equal(t, existence.Maybe, second.Lookup("@jq.anything"))
	assert.Equal(t, existence.NotExists, second.Lookup("@same"))

	third := varsAt(t, res, "modComponent.brickPipeline.2")
	assert.Equal(t, existence.Exists, third.Lookup("@same"))
	assert.Equal(t, []string{"input", "mod", "modComponent.brickPipeline.0", "modComponent.brickPipeline.1"}, third.Sources())

	assert.Empty(t, res.Annotations)
	assert.Empty(t, res.Warnings)
}

func TestConditionalOutputIsMaybe(t *testing.T) {
	guarded := brick("@pixiebrix/get", "response", nil)
	guarded["if"] = map[string]any{"__type__": "nunjucks", "__value__": "{{ @input.ok }}"}

	res := run(t, Input{Pipeline: mustPipeline(t, guarded, brick("@pixiebrix/browser/log", "", nil))})

	vars := varsAt(t, res, "modComponent.brickPipeline.1")
	assert.Equal(t, existence.Maybe, vars.Lookup("@response"))
	assert.Equal(t, existence.Maybe, vars.Lookup("@response.status"))
	assert.Equal(t, existence.NotExists, vars.Lookup("@response.nope"))
}

func TestOutputSchemaShape(t *testing.T) {
	res := run(t, Input{Pipeline: mustPipeline(t,
		brick("@pixiebrix/get", "response", nil),
		brick("@pixiebrix/browser/log", "", nil),
	)})

	vars := varsAt(t, res, "modComponent.brickPipeline.1")
	tree, ok := vars.Get("modComponent.brickPipeline.0")
	require.True(t, ok)
	response, ok := tree.Child("@response")
	require.True(t, ok)
	assert.Equal(t, []string{"data", "headers", "status", "statusText"}, response.Keys)
	assert.False(t, response.AllowAnyChild)
	assert.Equal(t, existence.Exists, vars.Lookup("@response.status"))
	assert.Equal(t, existence.Maybe, vars.Lookup("@response.statusText"))
}

func TestSubPipelineScopes(t *testing.T) {
	res := run(t, Input{Pipeline: mustPipeline(t,
		brick("@pixiebrix/jq", "items", nil),
		brick("@pixiebrix/for-each", "loop", map[string]any{
			"elements":   varRef("@items"),
			"elementKey": "row",
			"body": sub(
				brick("@pixiebrix/identity", "inner", map[string]any{"value": varRef("@row.name")}),
				brick("@pixiebrix/browser/log", "", map[string]any{"message": varRef("@inner")}),
			),
		}),
		brick("@pixiebrix/browser/log", "", nil),
	)})

	body0 := varsAt(t, res, "modComponent.brickPipeline.1.config.body.__value__.0")
	assert.Equal(t, existence.Exists, body0.Lookup("@items"))
	assert.Equal(t, existence.Exists, body0.Lookup("@row"))
	assert.Equal(t, existence.NotExists, body0.Lookup("@loop"), "owner output is not visible inside its own body")
	assert.Equal(t, existence.NotExists, body0.Lookup("@inner"))

	body1 := varsAt(t, res, "modComponent.brickPipeline.1.config.body.__value__.1")
	assert.Equal(t, existence.Exists, body1.Lookup("@inner"))

	after := varsAt(t, res, "modComponent.brickPipeline.2")
	assert.Equal(t, existence.Exists, after.Lookup("@loop"))
	assert.Equal(t, existence.NotExists, after.Lookup("@row"), "locals do not leak")
	assert.Equal(t, existence.NotExists, after.Lookup("@inner"), "nested outputs do not leak")

	assert.Empty(t, res.Annotations)
}

func TestTryExceptErrorLocal(t *testing.T) {
	res := run(t, Input{Pipeline: mustPipeline(t,
		brick("@pixiebrix/try-except", "", map[string]any{
			"try":    sub(brick("@pixiebrix/get", "response", nil)),
			"except": sub(brick("@pixiebrix/browser/log", "", map[string]any{"message": varRef("@error.message")})),
		}),
	)})

	handler := varsAt(t, res, "modComponent.brickPipeline.0.config.except.__value__.0")
	assert.Equal(t, existence.Exists, handler.Lookup("@error.message"))
	assert.Equal(t, existence.Maybe, handler.Lookup("@error.stack"))
	assert.Equal(t, existence.NotExists, handler.Lookup("@response"), "sibling branch outputs are not visible")

	try := varsAt(t, res, "modComponent.brickPipeline.0.config.try.__value__.0")
	assert.Equal(t, existence.NotExists, try.Lookup("@error"))
}

func TestDocumentListElementKeys(t *testing.T) {
	res := run(t, Input{
		StarterBrick: StarterBrick{Type: pipeline.StarterPanel},
		Pipeline: mustPipeline(t, brick(pipeline.DocumentRendererID, "", map[string]any{
			"body": []any{map[string]any{
				"type": "list",
				"config": map[string]any{
					"array":      varRef("@input.items"),
					"elementKey": "card",
					"element": map[string]any{"__type__": "defer", "__value__": map[string]any{
						"type": "button",
						"config": map[string]any{"onClick": sub(
							brick("@pixiebrix/clipboard/copy", "", map[string]any{"text": varRef("@card.title")}),
						)},
					}},
				},
			}},
		})),
	})

	pos := "modComponent.brickPipeline.0.config.body.0.config.element.__value__.config.onClick.__value__.0"
	vars := varsAt(t, res, pos)
	assert.Equal(t, existence.Exists, vars.Lookup("@card"))
	assert.Empty(t, res.Annotations)
	assert.Empty(t, res.Warnings, "effects are allowed in button handlers")
}

func TestDocumentListElementTemplates(t *testing.T) {
	res := run(t, Input{
		StarterBrick: StarterBrick{Type: pipeline.StarterPanel},
		Pipeline: mustPipeline(t, brick(pipeline.DocumentRendererID, "", map[string]any{
			"body": []any{map[string]any{
				"type": "list",
				"config": map[string]any{
					"array":      varRef("@input.items"),
					"elementKey": "card",
					"element": map[string]any{"__type__": "defer", "__value__": map[string]any{
						"type": "text",
						"config": map[string]any{
							"text":   varRef("@card.title"),
							"footer": varRef("@missing"),
						},
					}},
				},
			}},
		})),
	})

	require.Len(t, res.Annotations, 1)
	a := res.Annotations[0]
	assert.Equal(t, "@missing", a.Variable)
	assert.Equal(t, "config.body.0.config.element.__value__.config.footer", a.Path)

	vars := varsAt(t, res, "modComponent.brickPipeline.0")
	assert.Equal(t, existence.NotExists, vars.Lookup("@card"), "list locals stay out of the brick snapshot")
}

func TestUnknownBrick(t *testing.T) {
	res := run(t, Input{Pipeline: mustPipeline(t,
		brick("@pixiebrix/jqq", "out", nil),
		brick("@pixiebrix/browser/log", "", nil),
	)})

	require.Len(t, res.Warnings, 1)
	w := res.Warnings[0]
	assert.Equal(t, "modComponent.brickPipeline.0", w.Position)
	assert.Equal(t, "@pixiebrix/jq", w.Suggestion)
	assert.Contains(t, w.Message, `did you mean "@pixiebrix/jq"?`)

	vars := varsAt(t, res, "modComponent.brickPipeline.1")
	assert.Equal(t, existence.NotExists, vars.Lookup("@out"))
	assert.Len(t, res.Positions(), 2)
}

func TestFlavorWarnings(t *testing.T) {
	res := run(t, Input{
		StarterBrick: StarterBrick{Type: pipeline.StarterPanel},
		Pipeline: mustPipeline(t,
			brick("@pixiebrix/browser/log", "", nil),
			brick("@pixiebrix/display", "", map[string]any{"body": sub(brick("@pixiebrix/clipboard/copy", "", nil))}),
		),
	})
	positions := make([]string, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		positions = append(positions, w.Position)
	}
	assert.Equal(t, []string{
		"modComponent.brickPipeline.0",
		"modComponent.brickPipeline.1",
		"modComponent.brickPipeline.1.config.body.__value__.0",
	}, positions)
}

func TestAnnotations(t *testing.T) {
	res := run(t, Input{Pipeline: mustPipeline(t,
		brick("@pixiebrix/get", "response", nil),
		brick("@pixiebrix/browser/log", "", map[string]any{
			"message": map[string]any{"__type__": "nunjucks", "__value__": "{{ @response.status }} {{ @missing.x }} {{ @response.bogus }}"},
			"other":   varRef("@input.anything"),
		}),
	)})

	require.Len(t, res.Annotations, 2)
	assert.Equal(t, Annotation{
		Position: "modComponent.brickPipeline.1",
		Path:     "config.message",
		Variable: "@missing.x",
		Message:  `variable "@missing" might not be defined`,
		Level:    LevelError,
	}, res.Annotations[0])
	assert.Equal(t, LevelWarning, res.Annotations[1].Level)
	assert.Equal(t, "@response.bogus", res.Annotations[1].Variable)
	assert.True(t, res.HasErrors())
}

func TestBaseScope(t *testing.T) {
	res := run(t, Input{
		Pipeline: mustPipeline(t,
			brick("@pixiebrix/state/assign", "", map[string]any{"variableName": "counter"}),
			brick("@pixiebrix/browser/log", "", nil),
		),
		StarterBrick: StarterBrick{
			Type:    pipeline.StarterMenuItem,
			Readers: []string{"@pixiebrix/document-metadata", "@acme/custom-reader"},
		},
		ModOptionsSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"apiKey": map[string]any{"type": "string"}},
			"required":   []any{"apiKey"},
		},
		ModVariablesSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"theme": map[string]any{"type": "string"}},
		},
		Integrations: []IntegrationDependency{{IntegrationID: "@pixiebrix/google/sheets", OutputKey: "sheets"}},
	})

	vars := varsAt(t, res, "modComponent.brickPipeline.0")
	assert.Equal(t, []string{
		"input:Page metadata reader",
		"input:@acme/custom-reader",
		"options",
		"mod",
		"integration:@pixiebrix/google/sheets",
	}, vars.Sources())

	assert.Equal(t, existence.Exists, vars.Lookup("@input.title"))
	assert.Equal(t, existence.Maybe, vars.Lookup("@input.unknownField"), "unknown reader allows any child")
	assert.Equal(t, existence.Exists, vars.Lookup("@options.apiKey"))
	assert.Equal(t, existence.Maybe, vars.Lookup("@mod.theme"))
	assert.Equal(t, existence.Maybe, vars.Lookup("@mod.counter"))
	assert.Equal(t, existence.Exists, vars.Lookup("@sheets"))
}

func TestTraceAtPosition(t *testing.T) {
	res := run(t, Input{
		Pipeline: mustPipeline(t, brick("@pixiebrix/jq", "jq", nil), brick("@pixiebrix/browser/log", "", nil)),
		Traces: map[string]TraceRecord{
			"modComponent.brickPipeline.1": {"@jq": map[string]any{"count": 3.0}},
		},
	})

	vars := varsAt(t, res, "modComponent.brickPipeline.1")
	assert.True(t, vars.Has(TraceSource))
	record, ok := res.TraceAt("modComponent.brickPipeline.1")
	require.True(t, ok)
	assert.Equal(t, 3.0, record["@jq"].(map[string]any)["count"])

	first := varsAt(t, res, "modComponent.brickPipeline.0")
	assert.False(t, first.Has(TraceSource))
}

func TestVarsAtIsACopy(t *testing.T) {
	res := run(t, Input{Pipeline: mustPipeline(t, brick("@pixiebrix/jq", "jq", nil))})

	vars := varsAt(t, res, "modComponent.brickPipeline.0")
	vars.SetVariableExistence("x", "@x", existence.Exists)

	again := varsAt(t, res, "modComponent.brickPipeline.0")
	assert.False(t, again.Has("x"))
}

func TestPositionNotFound(t *testing.T) {
	res := run(t, Input{Pipeline: mustPipeline(t, brick("@pixiebrix/jq", "jq", nil))})

	_, err := res.VarsAt("modComponent.brickPipeline.9")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrPositionNotFound))
}

func TestInvalidDocumentPropagates(t *testing.T) {
	_, err := New(registry.Builtin()).Run(context.Background(), Input{
		Pipeline: mustPipeline(t, brick(pipeline.DocumentRendererID, "", map[string]any{"body": "nope"})),
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidDocument))
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(registry.Builtin()).Run(ctx, Input{Pipeline: mustPipeline(t, brick("@pixiebrix/jq", "jq", nil))})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNilRegistryPanics(t *testing.T) {
	assert.Panics(t, func() { New(nil) })
}
