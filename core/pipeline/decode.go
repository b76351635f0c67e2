package pipeline

import (
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/errors"
)

const (
	typeKey  = "__type__"
	valueKey = "__value__"
)

// DecodeYAML converts a YAML node into a Value, preserving mapping key order
// and turning {__type__, __value__} mappings into expressions.
func DecodeYAML(node *yaml.Node) (Value, error) {
	v, err := fromYAML(node)
	if err != nil {
		return nil, err
	}
	return resolveExpressions(v, "")
}

// DecodePipelineYAML converts a YAML sequence of bricks into a Pipeline.
func DecodePipelineYAML(node *yaml.Node) (Pipeline, error) {
	v, err := DecodeYAML(node)
	if err != nil {
		return nil, err
	}
	return PipelineFromValue(v, "pipeline")
}

// DecodeValue converts decoded JSON (map[string]any, []any, scalars) into a
// Value. Go maps carry no order, so object keys are sorted.
func DecodeValue(raw any) (Value, error) {
	v, err := fromRaw(raw, "")
	if err != nil {
		return nil, err
	}
	return resolveExpressions(v, "")
}

// DecodePipeline converts a decoded JSON list of bricks into a Pipeline.
func DecodePipeline(raw any) (Pipeline, error) {
	v, err := DecodeValue(raw)
	if err != nil {
		return nil, err
	}
	return PipelineFromValue(v, "pipeline")
}

func fromYAML(node *yaml.Node) (Value, error) {
	if node == nil {
		return &Literal{}, nil
	}

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return &Literal{}, nil
		}
		return fromYAML(node.Content[0])

	case yaml.AliasNode:
		return fromYAML(node.Alias)

	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, errors.Wrap(errors.ErrModParse,
				fmt.Sprintf("line %d: invalid scalar", node.Line), err)
		}
		return &Literal{Value: v}, nil

	case yaml.SequenceNode:
		arr := &Array{Items: make([]Value, 0, len(node.Content))}
		for _, item := range node.Content {
			v, err := fromYAML(item)
			if err != nil {
				return nil, err
			}
			arr.Items = append(arr.Items, v)
		}
		return arr, nil

	case yaml.MappingNode:
		obj := NewObject()
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			v, err := fromYAML(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj.Set(key, v)
		}
		return obj, nil

	default:
		return nil, errors.Newf(errors.ErrModParse, "line %d: unsupported YAML node kind %d", node.Line, node.Kind)
	}
}

func fromRaw(raw any, path string) (Value, error) {
	switch r := raw.(type) {
	case Value:
		return CloneValue(r), nil
	case nil, string, bool, float64, float32, int, int64, int32, uint, uint64:
		return &Literal{Value: r}, nil
	case []any:
		arr := &Array{Items: make([]Value, 0, len(r))}
		for i, item := range r {
			v, err := fromRaw(item, joinPath(path, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			arr.Items = append(arr.Items, v)
		}
		return arr, nil
	case map[string]any:
		keys := make([]string, 0, len(r))
		for k := range r {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		for _, k := range keys {
			v, err := fromRaw(r[k], joinPath(path, k))
			if err != nil {
				return nil, err
			}
			obj.Set(k, v)
		}
		return obj, nil
	default:
		return nil, errors.NewInvalidExpressionError(path, fmt.Sprintf("unsupported value of type %T", raw))
	}
}

// resolveExpressions replaces {__type__, __value__} objects with expression
// variants, recursively.
func resolveExpressions(v Value, path string) (Value, error) {
	switch v := v.(type) {
	case *Object:
		if _, ok := v.Get(typeKey); ok {
			return expressionFromObject(v, path)
		}
		for _, k := range v.Keys {
			resolved, err := resolveExpressions(v.Fields[k], joinPath(path, k))
			if err != nil {
				return nil, err
			}
			v.Fields[k] = resolved
		}
		return v, nil

	case *Array:
		for i, item := range v.Items {
			resolved, err := resolveExpressions(item, joinPath(path, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			v.Items[i] = resolved
		}
		return v, nil

	default:
		return v, nil
	}
}

func expressionFromObject(o *Object, path string) (Value, error) {
	typ, ok := o.StringField(typeKey)
	if !ok {
		return nil, errors.NewInvalidExpressionError(path, "__type__ must be a string")
	}
	raw, hasValue := o.Get(valueKey)

	switch typ {
	case "var":
		s, ok := literalString(raw)
		if !ok {
			return nil, errors.NewInvalidExpressionError(path, "var expression requires a string __value__")
		}
		return &VarRef{Path: s}, nil

	case string(EngineNunjucks), string(EngineMustache), string(EngineHandlebars):
		s, ok := literalString(raw)
		if !ok {
			return nil, errors.NewInvalidExpressionError(path, typ+" expression requires a string __value__")
		}
		return &Template{Engine: TemplateEngine(typ), Source: s}, nil

	case "pipeline":
		if !hasValue {
			return &PipelineExpr{}, nil
		}
		bricks, err := PipelineFromValue(raw, joinPath(path, valueKey))
		if err != nil {
			return nil, err
		}
		return &PipelineExpr{Bricks: bricks}, nil

	case "defer":
		if !hasValue {
			return nil, errors.NewInvalidExpressionError(path, "defer expression requires a __value__")
		}
		inner, err := resolveExpressions(raw, joinPath(path, valueKey))
		if err != nil {
			return nil, err
		}
		return &Deferred{Value: inner}, nil

	default:
		return nil, errors.NewInvalidExpressionError(path, fmt.Sprintf("unknown expression type %q", typ))
	}
}

func literalString(v Value) (string, bool) {
	lit, ok := v.(*Literal)
	if !ok {
		return "", false
	}
	s, ok := lit.Value.(string)
	return s, ok
}

// PipelineFromValue converts an already-decoded array of brick objects into a
// Pipeline. A null value is an empty pipeline.
func PipelineFromValue(v Value, path string) (Pipeline, error) {
	switch v := v.(type) {
	case *Literal:
		if v.Value == nil {
			return Pipeline{}, nil
		}
	case *Array:
		bricks := make(Pipeline, 0, len(v.Items))
		for i, item := range v.Items {
			itemPath := joinPath(path, strconv.Itoa(i))
			resolved, err := resolveExpressions(item, itemPath)
			if err != nil {
				return nil, err
			}
			obj, ok := resolved.(*Object)
			if !ok {
				return nil, errors.Newf(errors.ErrInvalidPipeline, "brick must be an object, got %s", resolved.Kind()).
					WithContext("path", itemPath)
			}
			brick, err := brickFromObject(obj, itemPath)
			if err != nil {
				return nil, err
			}
			bricks = append(bricks, brick)
		}
		return bricks, nil
	}
	return nil, errors.Newf(errors.ErrInvalidPipeline, "pipeline must be a list of bricks, got %s", v.Kind()).
		WithContext("path", path)
}

func brickFromObject(o *Object, path string) (*BrickConfig, error) {
	id, ok := o.StringField("id")
	if !ok || id == "" {
		return nil, errors.New(errors.ErrInvalidPipeline, "brick requires a string id").
			WithContext("path", path)
	}

	brick := &BrickConfig{ID: id, Config: NewObject()}
	brick.OutputKey, _ = o.StringField("outputKey")
	brick.Label, _ = o.StringField("label")
	brick.InstanceID, _ = o.StringField("instanceId")

	if cond, ok := o.Get("if"); ok {
		if lit, isLit := cond.(*Literal); !isLit || lit.Value != nil {
			brick.If = cond
		}
	}

	if cfg, ok := o.Get("config"); ok {
		switch c := cfg.(type) {
		case *Object:
			brick.Config = c
		case *Literal:
			if c.Value != nil {
				return nil, errors.New(errors.ErrInvalidPipeline, "brick config must be an object").
					WithContext("path", path).WithContext("brick", id)
			}
		default:
			return nil, errors.New(errors.ErrInvalidPipeline, "brick config must be an object").
				WithContext("path", path).WithContext("brick", id)
		}
	}

	return brick, nil
}

// ToRaw converts a Value back into plain JSON-compatible data, re-encoding
// expressions as {__type__, __value__} maps.
func ToRaw(v Value) any {
	switch v := v.(type) {
	case nil:
		return nil
	case *Literal:
		return v.Value
	case *Object:
		if v == nil {
			return map[string]any{}
		}
		out := make(map[string]any, len(v.Keys))
		for _, k := range v.Keys {
			out[k] = ToRaw(v.Fields[k])
		}
		return out
	case *Array:
		out := make([]any, len(v.Items))
		for i, item := range v.Items {
			out[i] = ToRaw(item)
		}
		return out
	case *Template:
		return map[string]any{typeKey: string(v.Engine), valueKey: v.Source}
	case *VarRef:
		return map[string]any{typeKey: "var", valueKey: v.Path}
	case *PipelineExpr:
		bricks := make([]any, len(v.Bricks))
		for i, b := range v.Bricks {
			bricks[i] = BrickToRaw(b)
		}
		return map[string]any{typeKey: "pipeline", valueKey: bricks}
	case *Deferred:
		return map[string]any{typeKey: "defer", valueKey: ToRaw(v.Value)}
	default:
		return nil
	}
}

// BrickToRaw converts a brick back into plain JSON-compatible data.
func BrickToRaw(b *BrickConfig) map[string]any {
	out := map[string]any{
		"id":     b.ID,
		"config": ToRaw(b.Config),
	}
	if b.OutputKey != "" {
		out["outputKey"] = b.OutputKey
	}
	if b.Label != "" {
		out["label"] = b.Label
	}
	if b.InstanceID != "" {
		out["instanceId"] = b.InstanceID
	}
	if b.If != nil {
		out["if"] = ToRaw(b.If)
	}
	return out
}

func joinPath(base, part string) string {
	if base == "" {
		return part
	}
	return base + "." + part
}
