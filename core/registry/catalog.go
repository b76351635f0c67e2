package registry

import (
	_ "embed"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/errors"
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/invariant"
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/pipeline"
)

//go:embed catalog.yaml
var builtinCatalog []byte

const catalogAPIVersion = "v1"

type catalogFile struct {
	APIVersion string   `yaml:"apiVersion"`
	Kind       string   `yaml:"kind"`
	Bricks     []*Brick `yaml:"bricks"`
}

// Builtin returns a registry holding the embedded catalog of common bricks.
func Builtin() *MemoryRegistry {
	bricks, err := ParseCatalog(builtinCatalog)
	invariant.ExpectNoError(err, "parsing the builtin brick catalog")
	r := NewMemoryRegistry()
	r.Register(bricks...)
	return r
}

// LoadCatalog reads a catalog from r.
func LoadCatalog(r io.Reader) ([]*Brick, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCatalogParse, "failed to read catalog", err)
	}
	return ParseCatalog(data)
}

// LoadCatalogFile reads a catalog file and registers its bricks.
func (r *MemoryRegistry) LoadCatalogFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(errors.ErrCatalogParse, "failed to open catalog", err).
			WithContext("path", path)
	}
	defer func() { _ = f.Close() }()

	bricks, err := LoadCatalog(f)
	if err != nil {
		if ae, ok := err.(*errors.AnalysisError); ok {
			return ae.WithContext("path", path)
		}
		return err
	}
	r.Register(bricks...)
	return nil
}

// ParseCatalog decodes and validates catalog YAML.
func ParseCatalog(data []byte) ([]*Brick, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.ErrCatalogParse, "invalid catalog YAML", err)
	}
	if file.APIVersion != catalogAPIVersion {
		return nil, errors.Newf(errors.ErrCatalogParse, "unsupported catalog apiVersion %q", file.APIVersion)
	}

	seen := make(map[string]bool, len(file.Bricks))
	for i, b := range file.Bricks {
		if b == nil || b.ID == "" {
			return nil, errors.Newf(errors.ErrCatalogParse, "brick %d has no id", i)
		}
		if seen[b.ID] {
			return nil, errors.Newf(errors.ErrCatalogParse, "duplicate brick id %q", b.ID)
		}
		seen[b.ID] = true

		switch b.Type {
		case TypeReader, TypeEffect, TypeTransform, TypeRenderer:
		default:
			return nil, errors.Newf(errors.ErrCatalogParse, "brick %q has unknown type %q", b.ID, b.Type)
		}
		for _, p := range b.Pipelines {
			if p.Name == "" {
				return nil, errors.Newf(errors.ErrCatalogParse, "brick %q declares a pipeline without a property", b.ID)
			}
			switch p.Flavor {
			case "", pipeline.FlavorAllBricks, pipeline.FlavorNoEffect, pipeline.FlavorNoRenderer:
			default:
				return nil, errors.Newf(errors.ErrCatalogParse, "brick %q pipeline %q has unknown flavor %q", b.ID, p.Name, p.Flavor)
			}
		}
		if b.ModVariable != nil && b.ModVariable.NameProperty == "" {
			return nil, errors.Newf(errors.ErrCatalogParse, "brick %q modVariable requires nameProperty", b.ID)
		}
	}
	return file.Bricks, nil
}
