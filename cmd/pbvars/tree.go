package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/existence"
	"github.com/pixiebrix/pixiebrix-extension-sub012/runtime/menu"
)

const maxValueWidth = 48

// renderOption prints one menu option as a tree under its source label.
func renderOption(w io.Writer, opt menu.Option, expand menu.ShouldExpandFunc, sel menu.Selection, s styles) {
	_, _ = fmt.Fprintln(w, s.source.Render(opt.Source))
	r := &treeRenderer{w: w, expand: expand, sel: sel, source: opt.Source, s: s}
	r.children(opt.Vars, []string{opt.Source}, nil, 0, "")
}

type treeRenderer struct {
	w      io.Writer
	expand menu.ShouldExpandFunc
	sel    menu.Selection
	source string
	s      styles
}

// children prints the children of n. keyPath runs leaf first and ends with
// the source label; forward is the same path from the source root.
func (r *treeRenderer) children(n *menu.Node, keyPath, forward []string, level int, indent string) {
	for i, key := range n.Keys {
		branch, next := "├─ ", "│  "
		if i == len(n.Keys)-1 {
			branch, next = "└─ ", "   "
		}
		child := n.Children[key]
		path := append(slices.Clone(forward), key)
		childKeyPath := append([]string{key}, keyPath...)
		expanded := len(child.Keys) > 0 && r.expand(childKeyPath, level+1)

		_, _ = fmt.Fprintf(r.w, "%s%s%s\n", indent, branch, r.label(key, n.Sequence, child, path, expanded))
		if expanded {
			r.children(child, childKeyPath, path, level+1, indent+next)
		}
	}
}

func (r *treeRenderer) label(key string, inSequence bool, n *menu.Node, path []string, expanded bool) string {
	s := r.s
	text := key
	if inSequence {
		text = "[" + key + "]"
	}
	text = s.key.Render(text)

	if n.Sequence {
		text += s.dim.Render("[]")
	}
	if n.Existence == existence.Maybe {
		text += s.maybe.Render("?")
	}
	if n.AllowAnyChild {
		text += s.dim.Render(" {any}")
	}
	if n.HasValue {
		if v, ok := scalarText(n.Value); ok {
			text += " = " + s.value.Render(v)
		}
	}
	if len(n.Keys) > 0 && !expanded {
		text += s.dim.Render(" …")
	}
	if r.sel.Source == r.source && slices.Equal(r.sel.KeyPath, path) {
		text = s.selected.Render("> ") + text
	}
	return text
}

// scalarText renders a trace value that is not an object or array.
func scalarText(v any) (string, bool) {
	switch v.(type) {
	case map[string]any, []any:
		return "", false
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	text := string(data)
	if runes := []rune(text); len(runes) > maxValueWidth {
		text = string(runes[:maxValueWidth-1]) + "…"
	}
	return text, true
}

type jsonNode struct {
	Key           string     `json:"key"`
	Existence     string     `json:"existence"`
	AllowAnyChild bool       `json:"allowAnyChild,omitempty"`
	Sequence      bool       `json:"sequence,omitempty"`
	Value         any        `json:"value,omitempty"`
	Children      []jsonNode `json:"children,omitempty"`
}

type jsonOption struct {
	Source string     `json:"source"`
	Vars   []jsonNode `json:"vars"`
}

type jsonSelection struct {
	Source  string   `json:"source"`
	KeyPath []string `json:"keyPath"`
}

type jsonVars struct {
	Position  string         `json:"position"`
	Options   []jsonOption   `json:"options"`
	Selection *jsonSelection `json:"selection,omitempty"`
}

func toJSON(position string, options []menu.Option, sel menu.Selection) jsonVars {
	out := jsonVars{Position: position, Options: make([]jsonOption, 0, len(options))}
	for _, opt := range options {
		out.Options = append(out.Options, jsonOption{Source: opt.Source, Vars: jsonChildren(opt.Vars)})
	}
	if !sel.IsZero() {
		out.Selection = &jsonSelection{Source: sel.Source, KeyPath: sel.KeyPath}
	}
	return out
}

func jsonChildren(n *menu.Node) []jsonNode {
	if n == nil || len(n.Keys) == 0 {
		return nil
	}
	out := make([]jsonNode, 0, len(n.Keys))
	for _, key := range n.Keys {
		c := n.Children[key]
		jn := jsonNode{
			Key:           key,
			Existence:     c.Existence.String(),
			AllowAnyChild: c.AllowAnyChild,
			Sequence:      c.Sequence,
			Children:      jsonChildren(c),
		}
		if c.HasValue {
			if _, ok := scalarText(c.Value); ok {
				jn.Value = c.Value
			}
		}
		out = append(out, jn)
	}
	return out
}
