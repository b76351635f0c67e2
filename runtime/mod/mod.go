// Package mod loads mod component files and runtime trace files into the
// input of a variable analysis.
package mod

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/errors"
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/pipeline"
	"github.com/pixiebrix/pixiebrix-extension-sub012/runtime/analysis"
)

const (
	// APIVersion is the only mod component file version understood.
	APIVersion = "v3"
	// Kind is the required kind of a mod component file.
	Kind = "modComponent"

	// Stdin is the path that reads from standard input.
	Stdin = "-"
)

// Metadata identifies a mod.
type Metadata struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// Component is a decoded mod component.
type Component struct {
	Metadata        Metadata
	StarterBrick    analysis.StarterBrick
	OptionsSchema   map[string]any
	VariablesSchema map[string]any
	Integrations    []analysis.IntegrationDependency
	Pipeline        pipeline.Pipeline
}

type componentFile struct {
	APIVersion   string   `yaml:"apiVersion"`
	Kind         string   `yaml:"kind"`
	Metadata     Metadata `yaml:"metadata"`
	StarterBrick struct {
		Type    string   `yaml:"type"`
		Readers []string `yaml:"readers"`
	} `yaml:"starterBrick"`
	Options struct {
		Schema map[string]any `yaml:"schema"`
	} `yaml:"options"`
	Variables struct {
		Schema map[string]any `yaml:"schema"`
	} `yaml:"variables"`
	Integrations []struct {
		OutputKey     string `yaml:"outputKey"`
		IntegrationID string `yaml:"integrationId"`
	} `yaml:"integrations"`
	Pipeline yaml.Node `yaml:"pipeline"`
}

var starterTypes = map[pipeline.StarterBrickType]bool{
	pipeline.StarterTrigger:          true,
	pipeline.StarterMenuItem:         true,
	pipeline.StarterContextMenu:      true,
	pipeline.StarterQuickBar:         true,
	pipeline.StarterQuickBarProvider: true,
	pipeline.StarterButton:           true,
	pipeline.StarterPanel:            true,
	pipeline.StarterActionPanel:      true,
}

// Parse decodes a mod component file.
func Parse(data []byte) (*Component, error) {
	var file componentFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.ErrModParse, "invalid mod component YAML", err)
	}

	if file.APIVersion != APIVersion {
		return nil, errors.Newf(errors.ErrModVersion, "unsupported apiVersion %q, expected %q", file.APIVersion, APIVersion)
	}
	if file.Kind != Kind {
		return nil, errors.Newf(errors.ErrModParse, "unsupported kind %q, expected %q", file.Kind, Kind)
	}
	if v := file.Metadata.Version; v != "" && !semver.IsValid("v"+strings.TrimPrefix(v, "v")) {
		return nil, errors.Newf(errors.ErrModVersion, "metadata.version %q is not a semantic version", v)
	}

	starter := pipeline.StarterBrickType(file.StarterBrick.Type)
	if starter == "" {
		return nil, errors.New(errors.ErrModParse, "starterBrick.type is required")
	}
	if !starterTypes[starter] {
		return nil, errors.Newf(errors.ErrModParse, "unknown starterBrick.type %q", starter)
	}

	c := &Component{
		Metadata:        file.Metadata,
		StarterBrick:    analysis.StarterBrick{Type: starter, Readers: file.StarterBrick.Readers},
		OptionsSchema:   normalizeMap(file.Options.Schema),
		VariablesSchema: normalizeMap(file.Variables.Schema),
	}

	for i, dep := range file.Integrations {
		key := strings.TrimPrefix(dep.OutputKey, "@")
		if key == "" || dep.IntegrationID == "" {
			return nil, errors.Newf(errors.ErrModParse, "integrations[%d] requires outputKey and integrationId", i)
		}
		c.Integrations = append(c.Integrations, analysis.IntegrationDependency{
			IntegrationID: dep.IntegrationID,
			OutputKey:     key,
		})
	}

	if file.Pipeline.Kind != 0 {
		p, err := pipeline.DecodePipelineYAML(&file.Pipeline)
		if err != nil {
			return nil, err
		}
		c.Pipeline = p
	}
	return c, nil
}

// Load reads a mod component from r.
func Load(r io.Reader) (*Component, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrModParse, "failed to read mod component", err)
	}
	return Parse(data)
}

// LoadFile reads a mod component file, or standard input for "-".
func LoadFile(path string) (*Component, error) {
	data, err := readPath(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrModParse, "failed to read mod component", err).
			WithContext("path", path)
	}
	c, err := Parse(data)
	if err != nil {
		if ae, ok := err.(*errors.AnalysisError); ok {
			return nil, ae.WithContext("path", path)
		}
		return nil, err
	}
	return c, nil
}

// Input builds the analysis input for the component with optional traces.
func (c *Component) Input(traces map[string]analysis.TraceRecord) analysis.Input {
	return analysis.Input{
		Pipeline:           c.Pipeline,
		StarterBrick:       c.StarterBrick,
		ModOptionsSchema:   c.OptionsSchema,
		ModVariablesSchema: c.VariablesSchema,
		Integrations:       c.Integrations,
		Traces:             traces,
	}
}

func readPath(path string) ([]byte, error) {
	if path == Stdin {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// normalizeMap converts YAML mappings with non-string keys into
// map[string]any so values match decoded JSON.
func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

func normalize(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return normalizeMap(v)
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}
		return out
	default:
		return v
	}
}
