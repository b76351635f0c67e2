package visitor

import (
	"errors"
	"slices"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/pipeline"
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/registry"
)

// FlavorLookup returns the flavor of the sub-pipeline stored under property
// of brick id.
type FlavorLookup func(brickID, property string) pipeline.Flavor

// Walker drives a Visitor over a pipeline.
type Walker struct {
	Flavors FlavorLookup
}

// NewWalker returns a walker resolving sub-pipeline flavors from reg.
func NewWalker(reg registry.Registry) *Walker {
	return &Walker{
		Flavors: func(brickID, property string) pipeline.Flavor {
			return registry.FlavorOf(reg, brickID, property)
		},
	}
}

func (w *Walker) flavor(brickID, property string) pipeline.Flavor {
	if w.Flavors == nil {
		return pipeline.FlavorAllBricks
	}
	return w.Flavors(brickID, property)
}

// WalkRoot walks a mod component's root pipeline under the flavor implied by
// its starter brick.
func (w *Walker) WalkRoot(v Visitor, p pipeline.Pipeline, starter pipeline.StarterBrickType) error {
	return w.WalkPipeline(v, pipeline.RootPosition, p, PipelineExtra{
		Flavor: pipeline.RootFlavor(starter),
	})
}

// WalkPipeline walks the bricks of p in order. Brick i is at pos.i.
func (w *Walker) WalkPipeline(v Visitor, pos pipeline.Position, p pipeline.Pipeline, extra PipelineExtra) error {
	for i, brick := range p {
		err := w.WalkBrick(v, pos.Index(i), brick, BrickExtra{
			Index:    i,
			ParentID: extra.ParentID,
			Pipeline: p,
			Flavor:   extra.Flavor,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// WalkBrick visits one brick, its expressions and its sub-pipelines.
func (w *Walker) WalkBrick(v Visitor, pos pipeline.Position, brick *pipeline.BrickConfig, extra BrickExtra) error {
	skip := false
	if err := v.VisitBrick(pos, brick, extra); err != nil {
		if !errors.Is(err, SkipChildren) {
			return err
		}
		skip = true
	}

	isDocument := brick.ID == pipeline.DocumentRendererID
	config := brick.Config
	if config == nil {
		config = pipeline.NewObject()
	}

	if ev, ok := v.(ExpressionVisitor); ok {
		if brick.If != nil {
			if err := visitExpressions(ev, pos, brick.If, "if", ExpressionExtra{}); err != nil {
				return err
			}
		}
		for _, key := range config.Keys {
			if isDocument && key == "body" {
				continue
			}
			if err := visitExpressions(ev, pos, config.Fields[key], "config."+key, ExpressionExtra{}); err != nil {
				return err
			}
		}
	}

	switch {
	case isDocument:
		// document expressions are visited element by element, even when
		// sub-pipelines are skipped
		if err := w.walkDocument(v, pos, brick, skip); err != nil {
			return err
		}
	case !skip:
		for _, key := range config.Keys {
			sub, ok := config.Fields[key].(*pipeline.PipelineExpr)
			if !ok {
				continue
			}
			err := w.walkSubPipeline(v, pos.Join("config", key, "__value__"), sub.Bricks, PipelineExtra{
				ParentID:       brick.ID,
				ParentPosition: pos,
				Parent:         brick,
				Property:       key,
				Flavor:         w.flavor(brick.ID, key),
			})
			if err != nil {
				return err
			}
		}
	}

	return v.LeaveBrick(pos, brick, extra)
}

// WalkDocument walks the element tree of a document renderer brick.
// A malformed body is an INVALID_DOCUMENT error.
func (w *Walker) WalkDocument(v Visitor, pos pipeline.Position, brick *pipeline.BrickConfig) error {
	return w.walkDocument(v, pos, brick, false)
}

func (w *Walker) walkDocument(v Visitor, pos pipeline.Position, brick *pipeline.BrickConfig, skipPipelines bool) error {
	elements, err := pipeline.ParseDocument(brick, pos)
	if err != nil {
		return err
	}
	d := documentWalk{w: w, v: v, pos: pos, brick: brick, skipPipelines: skipPipelines}
	return d.elements(elements, nil)
}

type documentWalk struct {
	w             *Walker
	v             Visitor
	pos           pipeline.Position
	brick         *pipeline.BrickConfig
	skipPipelines bool
}

func (d *documentWalk) elements(els []*pipeline.DocumentElement, listKeys []string) error {
	for _, el := range els {
		if err := d.element(el, listKeys); err != nil {
			return err
		}
	}
	return nil
}

func (d *documentWalk) element(el *pipeline.DocumentElement, listKeys []string) error {
	if dv, ok := d.v.(DocumentVisitor); ok {
		if err := dv.VisitDocumentElement(d.pos, el); err != nil {
			return err
		}
	}

	if ev, ok := d.v.(ExpressionVisitor); ok {
		extra := ExpressionExtra{ListElementKeys: slices.Clone(listKeys)}
		for _, key := range el.Config.Keys {
			if key == el.PipelineProperty && el.Pipeline != nil {
				continue
			}
			if el.Type == pipeline.ElementList && key == "element" {
				continue
			}
			if err := visitExpressions(ev, d.pos, el.Config.Fields[key], el.Accessor+".config."+key, extra); err != nil {
				return err
			}
		}
	}

	if el.Pipeline != nil && !d.skipPipelines {
		flavor := pipeline.FlavorNoEffect
		if el.Type == pipeline.ElementButton {
			flavor = pipeline.FlavorNoRenderer
		}
		err := d.w.walkSubPipeline(d.v, d.pos.Join(el.PipelineAccessor(), "__value__"), el.Pipeline.Bricks, PipelineExtra{
			ParentID:        d.brick.ID,
			ParentPosition:  d.pos,
			Parent:          d.brick,
			Property:        el.PipelineAccessor(),
			Flavor:          flavor,
			Element:         el,
			ListElementKeys: slices.Clone(listKeys),
		})
		if err != nil {
			return err
		}
	}

	if el.ListElement != nil {
		inner := append(slices.Clone(listKeys), el.ElementKey)
		if err := d.element(el.ListElement, inner); err != nil {
			return err
		}
	}

	return d.elements(el.Children, listKeys)
}

func (w *Walker) walkSubPipeline(v Visitor, pos pipeline.Position, p pipeline.Pipeline, extra PipelineExtra) error {
	if err := v.EnterPipeline(pos, p, extra); err != nil {
		return err
	}
	if err := w.WalkPipeline(v, pos, p, extra); err != nil {
		return err
	}
	return v.LeavePipeline(pos, p, extra)
}

// visitExpressions reports every template and variable expression in v,
// descending into plain objects, arrays and deferred values. Sub-pipelines
// are walked separately and skipped here.
func visitExpressions(ev ExpressionVisitor, pos pipeline.Position, v pipeline.Value, path string, extra ExpressionExtra) error {
	switch v := v.(type) {
	case *pipeline.Template, *pipeline.VarRef:
		return ev.VisitExpression(pos, v, path, extra)
	case *pipeline.Object:
		for _, key := range v.Keys {
			if err := visitExpressions(ev, pos, v.Fields[key], path+"."+key, extra); err != nil {
				return err
			}
		}
	case *pipeline.Array:
		for i, item := range v.Items {
			if err := visitExpressions(ev, pos, item, pipeline.PositionOf(path).Index(i).String(), extra); err != nil {
				return err
			}
		}
	case *pipeline.Deferred:
		return visitExpressions(ev, pos, v.Value, path+".__value__", extra)
	}
	return nil
}
