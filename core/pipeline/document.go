package pipeline

import (
	"fmt"
	"strconv"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/errors"
)

// ElementType is the type of a document builder element.
type ElementType string

const (
	ElementContainer ElementType = "container"
	ElementRow       ElementType = "row"
	ElementColumn    ElementType = "column"
	ElementHeader    ElementType = "header"
	ElementText      ElementType = "text"
	ElementImage     ElementType = "image"
	ElementCard      ElementType = "card"
	ElementPipeline  ElementType = "pipeline"
	ElementButton    ElementType = "button"
	ElementList      ElementType = "list"
	ElementForm      ElementType = "form"
)

var knownElements = map[ElementType]bool{
	ElementContainer: true, ElementRow: true, ElementColumn: true,
	ElementHeader: true, ElementText: true, ElementImage: true, ElementCard: true,
	ElementPipeline: true, ElementButton: true, ElementList: true, ElementForm: true,
}

// DefaultListElementKey names the loop variable of a list element when its
// config does not set elementKey.
const DefaultListElementKey = "element"

// DocumentElement is one node of a document renderer's body.
type DocumentElement struct {
	Type   ElementType
	Config *Object
	// Children in document order.
	Children []*DocumentElement
	// Accessor is the element's path relative to its brick,
	// e.g. "config.body.0.children.1".
	Accessor string

	// Pipeline is the element's sub-pipeline: config.pipeline for pipeline
	// elements, config.onClick for buttons. Nil otherwise.
	Pipeline *PipelineExpr
	// PipelineProperty is the config property holding Pipeline.
	PipelineProperty string

	// ListElement is the deferred element template of a list element.
	ListElement *DocumentElement
	// ElementKey is the loop variable name of a list element.
	ElementKey string
}

// PipelineAccessor returns the accessor of the element's sub-pipeline,
// e.g. "config.body.0.config.onClick".
func (e *DocumentElement) PipelineAccessor() string {
	if e.Pipeline == nil {
		return ""
	}
	return e.Accessor + ".config." + e.PipelineProperty
}

// ParseDocument parses the body of a document renderer brick. A body that is
// not a list of well-formed elements is an INVALID_DOCUMENT error.
func ParseDocument(brick *BrickConfig, position Position) ([]*DocumentElement, error) {
	body, ok := brick.ConfigValue("body")
	if !ok {
		return nil, errors.NewInvalidDocumentError(position.String(), "document body is missing")
	}
	arr, ok := body.(*Array)
	if !ok {
		return nil, errors.NewInvalidDocumentError(position.String(),
			fmt.Sprintf("document body must be a list of elements, got %s", body.Kind()))
	}
	return parseElements(arr, "config.body", position)
}

func parseElements(arr *Array, accessor string, position Position) ([]*DocumentElement, error) {
	elements := make([]*DocumentElement, 0, len(arr.Items))
	for i, item := range arr.Items {
		el, err := parseElement(item, accessor+"."+strconv.Itoa(i), position)
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
	}
	return elements, nil
}

func parseElement(v Value, accessor string, position Position) (*DocumentElement, error) {
	invalid := func(format string, args ...any) error {
		return errors.NewInvalidDocumentError(position.String(), fmt.Sprintf(format, args...)).
			WithContext("element", accessor)
	}

	obj, ok := v.(*Object)
	if !ok {
		return nil, invalid("document element must be an object, got %s", v.Kind())
	}
	typ, ok := obj.StringField("type")
	if !ok {
		return nil, invalid("document element requires a string type")
	}
	el := &DocumentElement{Type: ElementType(typ), Accessor: accessor, Config: NewObject()}
	if !knownElements[el.Type] {
		return nil, invalid("unknown document element type %q", typ)
	}

	if cfg, ok := obj.Get("config"); ok {
		c, isObj := cfg.(*Object)
		if !isObj {
			return nil, invalid("document element config must be an object, got %s", cfg.Kind())
		}
		el.Config = c
	}

	switch el.Type {
	case ElementPipeline:
		if err := attachPipeline(el, "pipeline", invalid); err != nil {
			return nil, err
		}
	case ElementButton:
		if err := attachPipeline(el, "onClick", invalid); err != nil {
			return nil, err
		}
	case ElementList:
		el.ElementKey = DefaultListElementKey
		if key, ok := el.Config.StringField("elementKey"); ok && key != "" {
			el.ElementKey = key
		}
		if tmpl, ok := el.Config.Get("element"); ok {
			deferred, isDeferred := tmpl.(*Deferred)
			if !isDeferred {
				return nil, invalid("list element template must be a deferred expression, got %s", tmpl.Kind())
			}
			child, err := parseElement(deferred.Value, accessor+".config.element.__value__", position)
			if err != nil {
				return nil, err
			}
			el.ListElement = child
		}
	}

	if children, ok := obj.Get("children"); ok {
		switch c := children.(type) {
		case *Array:
			parsed, err := parseElements(c, accessor+".children", position)
			if err != nil {
				return nil, err
			}
			el.Children = parsed
		case *Literal:
			if c.Value != nil {
				return nil, invalid("document element children must be a list")
			}
		default:
			return nil, invalid("document element children must be a list, got %s", c.Kind())
		}
	}

	return el, nil
}

func attachPipeline(el *DocumentElement, property string, invalid func(string, ...any) error) error {
	v, ok := el.Config.Get(property)
	if !ok {
		return nil
	}
	if lit, isLit := v.(*Literal); isLit && lit.Value == nil {
		return nil
	}
	p, ok := v.(*PipelineExpr)
	if !ok {
		return invalid("%s element %s must be a pipeline expression, got %s", el.Type, property, v.Kind())
	}
	el.Pipeline = p
	el.PipelineProperty = property
	return nil
}

// DocumentPipelinePaths returns the accessor of every sub-pipeline in a
// document renderer's body, in document order.
//
//	config.body.0.children.1.config.onClick
//	config.body.2.config.element.__value__.config.pipeline
func DocumentPipelinePaths(brick *BrickConfig, position Position) ([]string, error) {
	elements, err := ParseDocument(brick, position)
	if err != nil {
		return nil, err
	}
	var paths []string
	var walk func(els []*DocumentElement)
	walk = func(els []*DocumentElement) {
		for _, el := range els {
			if el.Pipeline != nil {
				paths = append(paths, el.PipelineAccessor())
			}
			if el.ListElement != nil {
				walk([]*DocumentElement{el.ListElement})
			}
			walk(el.Children)
		}
	}
	walk(elements)
	return paths, nil
}
