package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/pipeline"
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/registry"
	"github.com/pixiebrix/pixiebrix-extension-sub012/runtime/mod"
	"github.com/pixiebrix/pixiebrix-extension-sub012/runtime/visitor"
)

func (a *app) positionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "positions MOD",
		Short: "List every brick position with its brick and pipeline flavor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := mod.LoadFile(args[0])
			if err != nil {
				return err
			}
			rows, err := listPositions(a.reg, comp)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(a.stdout, a.positionsTable(rows))
			return nil
		},
	}
}

type positionRow struct {
	Position string
	BrickID  string
	Name     string
	Flavor   pipeline.Flavor
}

// positionLister records bricks in walk order.
type positionLister struct {
	visitor.BaseVisitor
	reg  registry.Registry
	rows []positionRow
}

func (l *positionLister) VisitBrick(pos pipeline.Position, brick *pipeline.BrickConfig, extra visitor.BrickExtra) error {
	name := "unknown brick"
	if def, ok := l.reg.Lookup(brick.ID); ok {
		name = def.Name
	}
	if brick.Label != "" {
		name = brick.Label
	}
	l.rows = append(l.rows, positionRow{
		Position: pos.String(),
		BrickID:  brick.ID,
		Name:     name,
		Flavor:   extra.Flavor,
	})
	return nil
}

func listPositions(reg registry.Registry, comp *mod.Component) ([]positionRow, error) {
	l := &positionLister{reg: reg}
	if err := visitor.NewWalker(reg).WalkRoot(l, comp.Pipeline, comp.StarterBrick.Type); err != nil {
		return nil, err
	}
	return l.rows, nil
}

func (a *app) positionsTable(rows []positionRow) string {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).BorderBottom(false).BorderLeft(false).BorderRight(false).
		BorderHeader(false).BorderColumn(false).
		Headers("POSITION", "BRICK", "NAME", "FLAVOR").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return a.styles.header.PaddingRight(2)
			}
			return a.styles.key.PaddingRight(2)
		})
	for _, r := range rows {
		t.Row(r.Position, r.BrickID, r.Name, string(r.Flavor))
	}
	return t.String()
}
