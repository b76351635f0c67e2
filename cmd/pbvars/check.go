package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pixiebrix/pixiebrix-extension-sub012/runtime/analysis"
)

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check MOD",
		Short: "Report unknown bricks, flavor violations and undefined variables",
		Long: "Report unknown bricks, flavor violations and variable references that may\n" +
			"not be defined. Exits 1 when any reference is to a variable that is never defined.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.check(cmd.Context(), a.stdout, args[0])
		},
	}
}

func (a *app) check(ctx context.Context, w io.Writer, modPath string) error {
	_, res, err := a.analyze(ctx, modPath, "")
	if err != nil {
		return err
	}
	a.printReport(w, res)
	if res.HasErrors() {
		return errCheckFailed
	}
	return nil
}

func (a *app) printReport(w io.Writer, res *analysis.Result) {
	s := a.styles
	errorCount := 0
	for _, warn := range res.Warnings {
		msg := warn.Message
		if warn.BrickID != "" {
			msg = warn.BrickID + ": " + msg
		}
		_, _ = fmt.Fprintf(w, "%s %s %s\n", s.warn.Render("warning"), s.dim.Render(warn.Position), msg)
	}
	for _, ann := range res.Annotations {
		level := s.warn.Render(string(ann.Level))
		if ann.Level == analysis.LevelError {
			level = s.errLevel.Render(string(ann.Level))
			errorCount++
		}
		_, _ = fmt.Fprintf(w, "%s %s %s\n", level, s.dim.Render(ann.Position+" "+ann.Path), ann.Message)
	}

	warnings := len(res.Warnings) + len(res.Annotations) - errorCount
	summary := fmt.Sprintf("%d bricks, %d errors, %d warnings", len(res.Positions()), errorCount, warnings)
	if errorCount == 0 && warnings == 0 {
		summary = s.value.Render("ok") + " " + summary
	}
	_, _ = fmt.Fprintln(w, summary)
}
