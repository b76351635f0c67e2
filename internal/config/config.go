// Package config loads pbvars settings.
//
// Layers, lowest precedence first: built-in defaults, the YAML config file
// (xdg config home or --config), a .env file in the working directory, and
// PBVARS_* environment variables. PBVARS_WATCH_DEBOUNCE maps to
// watch.debounce.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/errors"
)

const (
	// AppName names the config and state directories.
	AppName = "pbvars"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "PBVARS_"
)

// Config is the resolved configuration.
type Config struct {
	Log struct {
		Verbosity int `koanf:"verbosity"`
	} `koanf:"log"`
	Registry struct {
		// Catalogs are brick catalog files loaded on top of the builtin one.
		Catalogs []string `koanf:"catalogs"`
	} `koanf:"registry"`
	Cache struct {
		Size int `koanf:"size"`
	} `koanf:"cache"`
	Output struct {
		Color bool `koanf:"color"`
	} `koanf:"output"`
	Watch struct {
		Debounce time.Duration `koanf:"debounce"`
	} `koanf:"watch"`
}

// Options locate the config sources. Empty fields use the defaults.
type Options struct {
	// Path is an explicit config file, which must exist.
	Path string
	// DotEnv is the .env file to read. Missing is fine.
	DotEnv string
}

func defaults() map[string]any {
	return map[string]any{
		"log.verbosity":     0,
		"registry.catalogs": []string{},
		"cache.size":        64,
		"output.color":      true,
		"watch.debounce":    "200ms",
	}
}

// DefaultPath returns the config file looked up when no path is given.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Load resolves the configuration.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(errors.ErrConfigLoad, "failed to load defaults", err)
	}

	path := opts.Path
	if path == "" {
		path = DefaultPath()
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrap(errors.ErrConfigLoad, "failed to load config file", err).
				WithContext("path", path)
		}
	}

	dotenv := opts.DotEnv
	if dotenv == "" {
		dotenv = ".env"
	}
	if _, err := os.Stat(dotenv); err == nil {
		if err := godotenv.Load(dotenv); err != nil {
			return nil, errors.Wrap(errors.ErrConfigLoad, "failed to load .env", err).
				WithContext("path", dotenv)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfigLoad, "failed to load environment", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrConfigLoad, "invalid configuration", err)
	}
	if cfg.Cache.Size < 0 {
		return nil, errors.Newf(errors.ErrConfigLoad, "cache.size must not be negative, got %d", cfg.Cache.Size)
	}
	if cfg.Watch.Debounce < 0 {
		return nil, errors.Newf(errors.ErrConfigLoad, "watch.debounce must not be negative, got %s", cfg.Watch.Debounce)
	}
	return &cfg, nil
}
