// Package analysis computes, for every brick of a mod component, which
// variables the brick may reference.
//
// # Scoping
//
// A brick sees the outputs of the bricks before it in its own pipeline and
// in every enclosing pipeline, never its own output. Sub-pipelines inherit
// the enclosing scope and add their locals (a loop's @element, a
// try-except's @error). Leaving a sub-pipeline discards its locals and the
// outputs of its bricks.
//
// The base scope, in source order:
//
//	input:<reader>      @input from each reader's output schema
//	options             @options from the mod options schema
//	mod                 @mod from the mod variables schema and assignments
//	integration:<id>    @<outputKey> for each integration dependency
package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/existence"
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/invariant"
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/pipeline"
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/registry"
	"github.com/pixiebrix/pixiebrix-extension-sub012/runtime/visitor"
)

// Analyzer runs variable analysis against a registry snapshot. It is safe
// for concurrent use; each Run owns its state.
type Analyzer struct {
	reg     registry.Registry
	schemas *registry.SchemaCache
	walker  *visitor.Walker
	cache   *Cache
	logger  zerolog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// WithSchemaCache shares a compiled-schema cache between analyzers.
func WithSchemaCache(c *registry.SchemaCache) Option {
	return func(a *Analyzer) { a.schemas = c }
}

// WithResultCache memoizes results by input fingerprint.
func WithResultCache(c *Cache) Option {
	return func(a *Analyzer) { a.cache = c }
}

// New creates an Analyzer resolving bricks from reg.
func New(reg registry.Registry, opts ...Option) *Analyzer {
	invariant.NotNil(reg, "registry")
	a := &Analyzer{
		reg:    reg,
		walker: visitor.NewWalker(reg),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.schemas == nil {
		a.schemas = registry.NewSchemaCache(0)
	}
	return a
}

// Run analyzes one mod component. Configuration-shape errors, such as a
// malformed document body, end the run. Unknown bricks do not.
func (a *Analyzer) Run(ctx context.Context, in Input) (*Result, error) {
	var key string
	if a.cache != nil {
		fp, err := Fingerprint(in)
		if err != nil {
			return nil, err
		}
		if res, ok := a.cache.Get(fp); ok {
			a.logger.Debug().Str("fingerprint", fp).Msg("analysis cache hit")
			return res, nil
		}
		key = fp
	}

	base, err := a.baseScope(in)
	if err != nil {
		return nil, err
	}

	v := &analysisVisitor{
		ctx:    ctx,
		a:      a,
		scopes: newScopeStack(base),
		result: newResult(),
		traces: in.Traces,
	}
	if err := a.walker.WalkRoot(v, in.Pipeline, in.StarterBrick.Type); err != nil {
		return nil, err
	}
	invariant.Postcondition(v.scopes.depth() == 0, "scope stack not balanced after walk")

	a.logger.Debug().
		Int("positions", len(v.result.positions)).
		Int("annotations", len(v.result.Annotations)).
		Int("warnings", len(v.result.Warnings)).
		Msg("analysis complete")

	if a.cache != nil {
		a.cache.Add(key, v.result)
	}
	return v.result, nil
}

func (a *Analyzer) baseScope(in Input) (*existence.VarMap, error) {
	vars := existence.New()

	if len(in.StarterBrick.Readers) == 0 {
		vars.SetVariableExistence(InputSource, "@input", existence.Exists, existence.WithAllowAnyChild())
	}
	for _, id := range in.StarterBrick.Readers {
		reader, ok := a.reg.Lookup(id)
		if !ok {
			a.logger.Debug().Str("reader", id).Msg("unknown reader")
			vars.SetVariableExistence(InputSourceFor(id), "@input", existence.Exists, existence.WithAllowAnyChild())
			continue
		}
		name := reader.Name
		if name == "" {
			name = reader.ID
		}
		if err := a.declareSchema(vars, InputSourceFor(name), reader.OutputSchema, existence.Exists, "@input"); err != nil {
			return nil, err
		}
	}

	if in.ModOptionsSchema != nil {
		if err := a.declareSchema(vars, OptionsSource, in.ModOptionsSchema, existence.Exists, "@options"); err != nil {
			return nil, err
		}
	}

	if in.ModVariablesSchema != nil {
		if err := a.declareSchema(vars, ModSource, in.ModVariablesSchema, existence.Exists, "@mod"); err != nil {
			return nil, err
		}
	} else {
		vars.SetVariableExistence(ModSource, "@mod", existence.Exists, existence.WithAllowAnyChild())
	}
	names, err := a.assignedModVariables(in.Pipeline)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		vars.SetExistence(ModSource, "@mod."+name, existence.Maybe)
	}

	for _, dep := range in.Integrations {
		if dep.OutputKey == "" {
			continue
		}
		vars.SetVariableExistence(IntegrationSourceFor(dep.IntegrationID), "@"+dep.OutputKey,
			existence.Exists, existence.WithAllowAnyChild())
	}

	return vars, nil
}

// declareSchema declares a variable from a raw schema. A nil schema declares
// a variable of unknown shape.
func (a *Analyzer) declareSchema(vars *existence.VarMap, source string, raw map[string]any, level existence.Existence, variable string) error {
	var schema *jsonschema.Schema
	if raw != nil {
		compiled, err := a.schemas.Compile(raw)
		if err != nil {
			return err
		}
		schema = compiled
	}
	vars.SetExistenceFromSchema(source, schema, level, variable)
	return nil
}

// modVariableCollector gathers the names assigned by mod-variable bricks
// anywhere in the pipeline.
type modVariableCollector struct {
	visitor.BaseVisitor
	reg   registry.Registry
	names []string
	seen  map[string]bool
}

func (c *modVariableCollector) VisitBrick(_ pipeline.Position, brick *pipeline.BrickConfig, _ visitor.BrickExtra) error {
	def, ok := c.reg.Lookup(brick.ID)
	if !ok || def.ModVariable == nil {
		return nil
	}
	name, ok := brick.Config.StringField(def.ModVariable.NameProperty)
	if !ok || name == "" || c.seen[name] {
		return nil
	}
	c.seen[name] = true
	c.names = append(c.names, name)
	return nil
}

func (a *Analyzer) assignedModVariables(p pipeline.Pipeline) ([]string, error) {
	c := &modVariableCollector{reg: a.reg, seen: make(map[string]bool)}
	if err := a.walker.WalkRoot(c, p, ""); err != nil {
		return nil, err
	}
	return c.names, nil
}

// analysisVisitor records a snapshot of the scope at every brick.
type analysisVisitor struct {
	ctx    context.Context
	a      *Analyzer
	scopes *scopeStack
	result *Result
	traces map[string]TraceRecord
}

func (v *analysisVisitor) VisitBrick(pos pipeline.Position, brick *pipeline.BrickConfig, extra visitor.BrickExtra) error {
	if err := v.ctx.Err(); err != nil {
		return err
	}

	key := pos.String()
	v.result.positions = append(v.result.positions, key)
	v.result.snapshots[key] = v.scopes.current().Clone()
	if record, ok := v.traces[key]; ok {
		v.result.traces[key] = record
	}

	def, ok := v.a.reg.Lookup(brick.ID)
	if !ok {
		suggestion := registry.Suggest(v.a.reg, brick.ID)
		msg := fmt.Sprintf("unknown brick %q", brick.ID)
		if suggestion != "" {
			msg += fmt.Sprintf("; did you mean %q?", suggestion)
		}
		v.a.logger.Debug().Str("position", key).Str("brick", brick.ID).Msg("unknown brick")
		v.result.Warnings = append(v.result.Warnings, Warning{
			Position:   key,
			BrickID:    brick.ID,
			Message:    msg,
			Suggestion: suggestion,
		})
		return nil
	}

	if reason := flavorViolation(def.Type, extra.Flavor); reason != "" {
		v.result.Warnings = append(v.result.Warnings, Warning{
			Position: key,
			BrickID:  brick.ID,
			Message:  reason,
		})
	}
	return nil
}

func flavorViolation(t registry.BrickType, flavor pipeline.Flavor) string {
	switch {
	case flavor == pipeline.FlavorNoEffect && t == registry.TypeEffect:
		return "effect bricks are not allowed in this pipeline"
	case flavor == pipeline.FlavorNoRenderer && t == registry.TypeRenderer:
		return "renderer bricks are not allowed in this pipeline"
	}
	return ""
}

// LeaveBrick makes the brick's output visible to the bricks after it.
func (v *analysisVisitor) LeaveBrick(pos pipeline.Position, brick *pipeline.BrickConfig, _ visitor.BrickExtra) error {
	if brick.OutputKey == "" {
		return nil
	}
	def, ok := v.a.reg.Lookup(brick.ID)
	if !ok {
		return nil
	}

	level := existence.Exists
	if brick.If != nil {
		level = existence.Maybe
	}
	variable := "@" + brick.OutputKey
	if err := v.a.declareSchema(v.scopes.current(), pos.String(), def.OutputSchema, level, variable); err != nil {
		v.a.logger.Warn().Err(err).Str("brick", brick.ID).Msg("invalid output schema")
		v.result.Warnings = append(v.result.Warnings, Warning{
			Position: pos.String(),
			BrickID:  brick.ID,
			Message:  "invalid output schema: " + err.Error(),
		})
		v.scopes.current().SetVariableExistence(pos.String(), variable, level, existence.WithAllowAnyChild())
	}
	return nil
}

func (v *analysisVisitor) EnterPipeline(pos pipeline.Position, _ pipeline.Pipeline, extra visitor.PipelineExtra) error {
	vars := v.scopes.enter(pos)
	source := extra.ParentPosition.String()

	v.a.logger.Trace().Str("pipeline", pos.String()).Int("depth", v.scopes.depth()).Msg("enter scope")

	for _, key := range extra.ListElementKeys {
		vars.SetVariableExistence(source, "@"+strings.TrimPrefix(key, "@"), existence.Exists, existence.WithAllowAnyChild())
	}

	if extra.Element != nil || extra.Parent == nil {
		return nil
	}
	def, ok := v.a.reg.Lookup(extra.ParentID)
	if !ok {
		return nil
	}
	prop, ok := def.Pipeline(extra.Property)
	if !ok {
		return nil
	}
	for _, local := range prop.Locals {
		name := local.VariableName(extra.Parent.Config)
		if name == "" {
			continue
		}
		if err := v.a.declareSchema(vars, source, local.Schema, existence.Exists, name); err != nil {
			return err
		}
	}
	return nil
}

func (v *analysisVisitor) LeavePipeline(pos pipeline.Position, _ pipeline.Pipeline, _ visitor.PipelineExtra) error {
	v.scopes.exit(pos)
	v.a.logger.Trace().Str("pipeline", pos.String()).Int("depth", v.scopes.depth()).Msg("exit scope")
	return nil
}

// VisitExpression annotates variable references that do not resolve in the
// brick's snapshot. Expressions inside document list elements also see the
// loop variables of the enclosing lists.
func (v *analysisVisitor) VisitExpression(pos pipeline.Position, expr pipeline.Value, path string, extra visitor.ExpressionExtra) error {
	var refs []string
	switch e := expr.(type) {
	case *pipeline.VarRef:
		refs = []string{e.Path}
	case *pipeline.Template:
		refs = pipeline.TemplateVariables(e.Source)
	}

	key := pos.String()
	snap := v.result.snapshots[key]
	invariant.NotNil(snap, "snapshot for "+key)
	if len(refs) > 0 && len(extra.ListElementKeys) > 0 {
		snap = snap.Clone()
		for _, name := range extra.ListElementKeys {
			snap.SetVariableExistence(key, "@"+strings.TrimPrefix(name, "@"), existence.Exists, existence.WithAllowAnyChild())
		}
	}

	for _, ref := range refs {
		parts := pipeline.ParseVariablePath(ref)
		if len(parts) == 0 || !strings.HasPrefix(parts[0], "@") {
			continue
		}
		root := parts[0]
		if snap.Lookup(root) == existence.NotExists {
			v.result.Annotations = append(v.result.Annotations, Annotation{
				Position: key,
				Path:     path,
				Variable: ref,
				Message:  fmt.Sprintf("variable %q might not be defined", root),
				Level:    LevelError,
			})
			continue
		}
		if len(parts) > 1 && snap.Lookup(ref) == existence.NotExists {
			v.result.Annotations = append(v.result.Annotations, Annotation{
				Position: key,
				Path:     path,
				Variable: ref,
				Message:  fmt.Sprintf("property %q is not known to exist", ref),
				Level:    LevelWarning,
			})
		}
	}
	return nil
}
