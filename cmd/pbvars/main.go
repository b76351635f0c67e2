// Command pbvars analyzes which variables a mod component's bricks may
// reference.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/registry"
	"github.com/pixiebrix/pixiebrix-extension-sub012/internal/config"
	"github.com/pixiebrix/pixiebrix-extension-sub012/internal/logging"
	"github.com/pixiebrix/pixiebrix-extension-sub012/runtime/analysis"
	"github.com/pixiebrix/pixiebrix-extension-sub012/runtime/mod"
)

// errCheckFailed exits 1 without printing another error.
var errCheckFailed = stderrors.New("check failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := newApp(os.Stdout, os.Stderr)
	if err := a.run(ctx); err != nil {
		if !stderrors.Is(err, errCheckFailed) {
			FormatError(os.Stderr, err, a.styles)
		}
		stop()
		os.Exit(1)
	}
}

type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	verbosity  int
	catalogs   []string
	noColor    bool

	cfg      *config.Config
	logger   zerolog.Logger
	reg      *registry.MemoryRegistry
	analyzer *analysis.Analyzer
	styles   styles

	setupLogging func(verbosity int, noColor bool) (zerolog.Logger, func() error)
	closeLog     func() error
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:       stdout,
		stderr:       stderr,
		logger:       zerolog.Nop(),
		styles:       newStyles(false),
		setupLogging: logging.Setup,
	}
}

// run executes the command tree and closes the log file once it returns.
func (a *app) run(ctx context.Context, args ...string) error {
	cmd := a.rootCmd()
	if args != nil {
		cmd.SetArgs(args)
	}
	err := cmd.ExecuteContext(ctx)
	if a.closeLog != nil {
		if cerr := a.closeLog(); cerr != nil {
			a.logger.Debug().Err(cerr).Msg("failed to close log file")
		}
		a.closeLog = nil
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pbvars",
		Short:         "Variable analysis for mod component brick pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default "+config.DefaultPath()+")")
	root.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", "Increase log verbosity (repeatable)")
	root.PersistentFlags().StringArrayVar(&a.catalogs, "registry", nil, "Additional brick catalog file (repeatable)")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(a.positionsCmd(), a.varsCmd(), a.checkCmd(), a.watchCmd())
	return root
}

// init loads configuration, logging and the brick registry.
func (a *app) init() error {
	cfg, err := config.Load(config.Options{Path: a.configPath})
	if err != nil {
		return err
	}
	a.cfg = cfg

	verbosity := max(a.verbosity, cfg.Log.Verbosity)
	useColor := cfg.Output.Color && ShouldUseColor(a.stdout, a.noColor)
	a.styles = newStyles(useColor)
	a.logger, a.closeLog = a.setupLogging(verbosity, !useColor)

	a.reg = registry.Builtin()
	for _, path := range append(cfg.Registry.Catalogs, a.catalogs...) {
		if err := a.reg.LoadCatalogFile(path); err != nil {
			return err
		}
		a.logger.Debug().Str("path", path).Int("bricks", a.reg.Len()).Msg("loaded brick catalog")
	}

	a.analyzer = analysis.New(a.reg,
		analysis.WithLogger(logging.Component(a.logger, "analysis")),
		analysis.WithSchemaCache(registry.NewSchemaCache(registry.DefaultSchemaCacheSize)),
		analysis.WithResultCache(analysis.NewCache(cfg.Cache.Size)),
	)
	return nil
}

// analyze loads a mod component and optional trace file and runs the
// analysis.
func (a *app) analyze(ctx context.Context, modPath, tracePath string) (*mod.Component, *analysis.Result, error) {
	comp, err := mod.LoadFile(modPath)
	if err != nil {
		return nil, nil, err
	}

	var traces map[string]analysis.TraceRecord
	if tracePath != "" {
		if tracePath == mod.Stdin && modPath == mod.Stdin {
			return nil, nil, fmt.Errorf("mod component and trace cannot both be read from stdin")
		}
		traces, err = mod.LoadTraceFile(tracePath)
		if err != nil {
			return nil, nil, err
		}
	}

	res, err := a.analyzer.Run(ctx, comp.Input(traces))
	if err != nil {
		return nil, nil, err
	}
	return comp, res, nil
}
