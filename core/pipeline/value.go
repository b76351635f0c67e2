package pipeline

import (
	"slices"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/invariant"
)

// Kind discriminates the Value variants.
type Kind int

const (
	KindLiteral Kind = iota
	KindObject
	KindArray
	KindTemplate
	KindVar
	KindPipeline
	KindDeferred
)

var kindNames = [...]string{
	KindLiteral:  "literal",
	KindObject:   "object",
	KindArray:    "array",
	KindTemplate: "template",
	KindVar:      "var",
	KindPipeline: "pipeline",
	KindDeferred: "defer",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a brick configuration value. The set of implementations is closed;
// consumers switch over the concrete types:
//
//	switch v := value.(type) {
//	case *Literal, *Object, *Array:     // plain data
//	case *Template, *VarRef:            // expressions rendered at runtime
//	case *PipelineExpr:                 // nested sub-pipeline
//	case *Deferred:                     // value rendered later by its brick
//	}
type Value interface {
	Kind() Kind
	value()
}

// Literal is a JSON scalar: string, float64, int, bool or nil.
type Literal struct {
	Value any
}

// Object is a JSON object with its key order preserved.
type Object struct {
	Keys   []string
	Fields map[string]Value
}

// Array is a JSON array.
type Array struct {
	Items []Value
}

// TemplateEngine names the renderer of a template expression.
type TemplateEngine string

const (
	EngineNunjucks   TemplateEngine = "nunjucks"
	EngineMustache   TemplateEngine = "mustache"
	EngineHandlebars TemplateEngine = "handlebars"
)

// Template is a string rendered against the variable context.
type Template struct {
	Engine TemplateEngine
	Source string
}

// VarRef is a direct variable reference such as "@input.items[0].title".
type VarRef struct {
	Path string
}

// PipelineExpr is a nested sub-pipeline (loop body, branch, handler).
type PipelineExpr struct {
	Bricks Pipeline
}

// Deferred wraps a value that its owning brick renders on demand, such as the
// element template of a document list.
type Deferred struct {
	Value Value
}

func (*Literal) Kind() Kind      { return KindLiteral }
func (*Object) Kind() Kind       { return KindObject }
func (*Array) Kind() Kind        { return KindArray }
func (*Template) Kind() Kind     { return KindTemplate }
func (*VarRef) Kind() Kind       { return KindVar }
func (*PipelineExpr) Kind() Kind { return KindPipeline }
func (*Deferred) Kind() Kind     { return KindDeferred }

func (*Literal) value()      {}
func (*Object) value()       {}
func (*Array) value()        {}
func (*Template) value()     {}
func (*VarRef) value()       {}
func (*PipelineExpr) value() {}
func (*Deferred) value()     {}

// IsExpression reports whether v is rendered at runtime rather than being
// plain data.
func IsExpression(v Value) bool {
	switch v.(type) {
	case *Template, *VarRef, *PipelineExpr, *Deferred:
		return true
	default:
		return false
	}
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{Fields: make(map[string]Value)}
}

// Get returns the field stored under key.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.Fields[key]
	return v, ok
}

// Set stores a field, appending key when it is new.
func (o *Object) Set(key string, v Value) *Object {
	if o.Fields == nil {
		o.Fields = make(map[string]Value)
	}
	if _, ok := o.Fields[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.Fields[key] = v
	return o
}

// Len returns the number of fields.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.Keys)
}

// StringField returns the literal string stored under key, if any.
func (o *Object) StringField(key string) (string, bool) {
	v, ok := o.Get(key)
	if !ok {
		return "", false
	}
	lit, ok := v.(*Literal)
	if !ok {
		return "", false
	}
	s, ok := lit.Value.(string)
	return s, ok
}

// Clone returns a deep copy of the object's structure. Scalar payloads are
// shared; they are immutable.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	out := &Object{
		Keys:   slices.Clone(o.Keys),
		Fields: make(map[string]Value, len(o.Fields)),
	}
	for k, v := range o.Fields {
		out.Fields[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies a configuration value.
func CloneValue(v Value) Value {
	switch v := v.(type) {
	case nil:
		return nil
	case *Literal:
		return &Literal{Value: v.Value}
	case *Object:
		return v.Clone()
	case *Array:
		items := make([]Value, len(v.Items))
		for i, item := range v.Items {
			items[i] = CloneValue(item)
		}
		return &Array{Items: items}
	case *Template:
		return &Template{Engine: v.Engine, Source: v.Source}
	case *VarRef:
		return &VarRef{Path: v.Path}
	case *PipelineExpr:
		return &PipelineExpr{Bricks: v.Bricks.Clone()}
	case *Deferred:
		return &Deferred{Value: CloneValue(v.Value)}
	default:
		invariant.Unreachable("unknown value variant %T", v)
		return nil
	}
}

// Lit is shorthand for a literal value.
func Lit(v any) *Literal { return &Literal{Value: v} }

// Var is shorthand for a variable reference expression.
func Var(path string) *VarRef { return &VarRef{Path: path} }

// Nunjucks is shorthand for a nunjucks template expression.
func Nunjucks(source string) *Template {
	return &Template{Engine: EngineNunjucks, Source: source}
}

// Sub is shorthand for a sub-pipeline expression.
func Sub(bricks ...*BrickConfig) *PipelineExpr {
	return &PipelineExpr{Bricks: Pipeline(bricks)}
}
