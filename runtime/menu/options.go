package menu

import (
	"strings"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/existence"
)

// Sources the menu never lists on their own.
const (
	traceSource             = "trace"
	integrationSourcePrefix = "integration:"
)

// Option is one menu entry: a source and the variables it provides.
type Option struct {
	Source string
	Vars   *Node
}

// GetMenuOptions builds the menu entries for a VarMap, in source order.
//
// The trace source is dropped and arrays become sequences. When context
// values are given (a trace's template context, keyed by variable name),
// each top-level variable's value is merged into the latest source declaring
// that variable, so a reused output key shows the value of the brick that ran
// last. Integration sources are excluded from the result.
func GetMenuOptions(vars *existence.VarMap, contextValues map[string]any) []Option {
	if vars == nil {
		return nil
	}
	entries := vars.Entries()
	options := make([]Option, 0, len(entries))
	for _, e := range entries {
		if e.Source == traceSource {
			continue
		}
		options = append(options, Option{Source: e.Source, Vars: ConvertArrays(e.Tree)})
	}

	if len(contextValues) > 0 {
		claimed := make(map[string]bool)
		for i := len(options) - 1; i >= 0; i-- {
			root := options[i].Vars
			for _, key := range root.Keys {
				if claimed[key] {
					continue
				}
				value, ok := contextValues[key]
				if !ok {
					continue
				}
				overlay(root.Children[key], value)
				claimed[key] = true
			}
		}
	}

	out := options[:0]
	for _, opt := range options {
		if strings.HasPrefix(opt.Source, integrationSourcePrefix) {
			continue
		}
		out = append(out, opt)
	}
	return out
}
