package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pixiebrix/pixiebrix-extension-sub012/runtime/menu"
)

type varsFlags struct {
	at       string
	trace    string
	variable string
	move     int
	all      bool
	json     bool
}

func (a *app) varsCmd() *cobra.Command {
	var f varsFlags
	cmd := &cobra.Command{
		Use:   "vars MOD",
		Short: "Show the variables available to the brick at a position",
		Example: "  pbvars vars mod.yaml --at modComponent.brickPipeline.1\n" +
			"  pbvars vars mod.yaml --at modComponent.brickPipeline.1 --trace trace.json --var @input.ti",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.vars(cmd, args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.at, "at", "", "Brick position, e.g. modComponent.brickPipeline.0")
	cmd.Flags().StringVar(&f.trace, "trace", "", "Trace file with the context each brick ran with")
	cmd.Flags().StringVar(&f.variable, "var", "", "Partially typed variable to filter by, e.g. @input.ti")
	cmd.Flags().IntVar(&f.move, "move", 0, "Move the default selection by N siblings")
	cmd.Flags().BoolVar(&f.all, "all", false, "Expand every variable")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print JSON")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func (a *app) vars(cmd *cobra.Command, modPath string, f varsFlags) error {
	_, res, err := a.analyze(cmd.Context(), modPath, f.trace)
	if err != nil {
		return err
	}
	vars, err := res.VarsAt(f.at)
	if err != nil {
		return err
	}
	trace, _ := res.TraceAt(f.at)

	options := menu.FilterMenuOptions(menu.GetMenuOptions(vars, trace), f.variable)
	selection, ok := menu.DefaultMenuOption(options, f.variable)
	if ok && f.move != 0 {
		if moved, ok := menu.MoveMenuOption(options, f.variable, selection, f.move); ok {
			selection = moved
		}
	}

	if f.json {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(toJSON(f.at, options, selection))
	}

	if len(options) == 0 {
		_, _ = fmt.Fprintln(a.stdout, a.styles.dim.Render("(no matching variables)"))
		return nil
	}
	for _, opt := range options {
		expand := menu.ExpandCurrentVariableLevel(opt.Vars, f.variable)
		if f.all {
			expand = func([]string, int) bool { return true }
		}
		renderOption(a.stdout, opt, expand, selection, a.styles)
	}
	return nil
}
