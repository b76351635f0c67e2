// Package visitor walks brick pipelines depth first, handing every brick,
// sub-pipeline and expression to a Visitor along with its position.
//
// # Traversal order
//
// For each brick, in pipeline order:
//
//	VisitBrick
//	VisitExpression     (ExpressionVisitor only: "if", then config in key order)
//	EnterPipeline       for each sub-pipeline, in config key order
//	  ...bricks of the sub-pipeline...
//	LeavePipeline
//	LeaveBrick
//
// Sub-pipelines are walked inside their owning brick's visit, so every brick
// of a nested pipeline is seen before the owner's next sibling.
//
// The document renderer's body is an element tree rather than plain config.
// Its element expressions, pipeline elements (config.pipeline), button
// handlers (config.onClick) and list element templates (config.element) are
// walked in document order.
package visitor

import (
	"errors"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/pipeline"
)

// SkipChildren is returned by VisitBrick to skip the brick's sub-pipelines.
// The brick's expressions and LeaveBrick are still visited.
var SkipChildren = errors.New("skip sub-pipelines")

// BrickExtra is the context of a brick within its pipeline.
type BrickExtra struct {
	Index int
	// ParentID is the id of the brick owning the pipeline; empty at the root.
	ParentID string
	Pipeline pipeline.Pipeline
	Flavor   pipeline.Flavor
}

// PipelineExtra is the context of a sub-pipeline.
type PipelineExtra struct {
	ParentID       string
	ParentPosition pipeline.Position
	Parent         *pipeline.BrickConfig
	// Property is the config property holding the pipeline, or the document
	// accessor for document pipelines ("config.body.0.config.onClick").
	Property string
	Flavor   pipeline.Flavor

	// Element is the document element owning the pipeline, if any.
	Element *pipeline.DocumentElement
	// ListElementKeys names the loop variables of the document list
	// elements enclosing Element, outermost first.
	ListElementKeys []string
}

// Visitor receives bricks and pipelines. Returning a non-nil error other
// than SkipChildren aborts the walk.
type Visitor interface {
	VisitBrick(pos pipeline.Position, brick *pipeline.BrickConfig, extra BrickExtra) error
	LeaveBrick(pos pipeline.Position, brick *pipeline.BrickConfig, extra BrickExtra) error
	EnterPipeline(pos pipeline.Position, p pipeline.Pipeline, extra PipelineExtra) error
	LeavePipeline(pos pipeline.Position, p pipeline.Pipeline, extra PipelineExtra) error
}

// ExpressionExtra is the context of an expression within its brick.
type ExpressionExtra struct {
	// ListElementKeys names the loop variables of the document list
	// elements enclosing the expression, outermost first.
	ListElementKeys []string
}

// ExpressionVisitor additionally receives every template and variable
// expression. path is the expression's accessor relative to its brick, such
// as "if", "config.url" or "config.body.0.config.text".
type ExpressionVisitor interface {
	Visitor
	VisitExpression(pos pipeline.Position, expr pipeline.Value, path string, extra ExpressionExtra) error
}

// DocumentVisitor additionally receives every document element.
type DocumentVisitor interface {
	VisitDocumentElement(pos pipeline.Position, el *pipeline.DocumentElement) error
}

// BaseVisitor implements Visitor with no-ops. Embed it to override only
// the hooks you need.
type BaseVisitor struct{}

func (BaseVisitor) VisitBrick(pipeline.Position, *pipeline.BrickConfig, BrickExtra) error {
	return nil
}

func (BaseVisitor) LeaveBrick(pipeline.Position, *pipeline.BrickConfig, BrickExtra) error {
	return nil
}

func (BaseVisitor) EnterPipeline(pipeline.Position, pipeline.Pipeline, PipelineExtra) error {
	return nil
}

func (BaseVisitor) LeavePipeline(pipeline.Position, pipeline.Pipeline, PipelineExtra) error {
	return nil
}
