// Package logging configures zerolog for the pbvars command.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LevelFor maps a -v count to a log level.
func LevelFor(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.WarnLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	case verbosity == 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// New builds a logger writing to w at the level for verbosity. Debug and
// trace loggers carry the caller.
func New(w io.Writer, verbosity int) zerolog.Logger {
	logger := zerolog.New(w).Level(LevelFor(verbosity)).With().Timestamp().Logger()
	if verbosity >= 2 {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

// Setup configures the global logger with console output on stderr and a
// log file under the xdg state directory. It returns the logger and a func
// closing the log file. A log file that cannot be opened is reported and
// skipped.
func Setup(verbosity int, noColor bool) (zerolog.Logger, func() error) {
	zerolog.SetGlobalLevel(LevelFor(verbosity))
	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}

	writers := []io.Writer{console}
	path := FilePath()
	f, err := openLogFile(path)
	if err == nil {
		writers = append(writers, f)
	}

	log.Logger = New(io.MultiWriter(writers...), verbosity)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to create log file, logging to console only")
	}
	log.Debug().Int("verbosity", verbosity).Str("logFile", path).Msg("Logger initialized")
	if f == nil {
		return log.Logger, func() error { return nil }
	}
	return log.Logger, func() error {
		log.Logger = New(console, verbosity)
		return f.Close()
	}
}

// FilePath returns the log file location.
func FilePath() string {
	return filepath.Join(xdg.StateHome, "pbvars", "pbvars.log")
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// Component returns a logger tagged with a component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}
