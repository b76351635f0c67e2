package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/pixiebrix/pixiebrix-extension-sub012/runtime/mod"
)

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch MOD",
		Short: "Re-run check whenever the mod component file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.watch(cmd.Context(), args[0])
		},
	}
}

func (a *app) watch(ctx context.Context, modPath string) error {
	if modPath == mod.Stdin {
		return fmt.Errorf("watch needs a file, not stdin")
	}
	target, err := filepath.Abs(modPath)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	// Editors replace files on save, so watch the directory.
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	run := func() {
		_, _ = fmt.Fprintln(a.stdout, a.styles.header.Render("pbvars check "+modPath))
		if err := a.check(ctx, a.stdout, modPath); err != nil && !stderrors.Is(err, errCheckFailed) {
			FormatError(a.stdout, err, a.styles)
		}
	}
	run()

	a.logger.Info().Str("path", target).Dur("debounce", a.cfg.Watch.Debounce).Msg("watching")
	return debounce(ctx, w.Events, w.Errors, func(ev fsnotify.Event) bool {
		return filepath.Clean(ev.Name) == target && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
	}, a.cfg.Watch.Debounce, run, func(err error) {
		a.logger.Warn().Err(err).Msg("watch error")
	})
}

// debounce calls fn once matching events have been quiet for delay. It
// returns when ctx is done or events is closed.
func debounce(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error,
	match func(fsnotify.Event) bool, delay time.Duration, fn func(), onError func(error)) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !match(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(delay)
			} else {
				timer.Reset(delay)
			}
			fire = timer.C

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			onError(err)

		case <-fire:
			fire = nil
			fn()
		}
	}
}
