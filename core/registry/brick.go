package registry

import (
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/pipeline"
)

// BrickType is the category of a brick. Flavors restrict categories.
type BrickType string

const (
	TypeReader    BrickType = "reader"
	TypeEffect    BrickType = "effect"
	TypeTransform BrickType = "transform"
	TypeRenderer  BrickType = "renderer"
)

// Brick describes a registered brick: what it outputs and which of its
// config properties hold sub-pipelines.
type Brick struct {
	ID   string    `yaml:"id"`
	Name string    `yaml:"name"`
	Type BrickType `yaml:"type"`

	// OutputSchema is the JSON schema of the brick's output. Nil when the
	// output shape is not known statically.
	OutputSchema map[string]any `yaml:"outputSchema"`

	Pipelines []PipelineProperty `yaml:"pipelines"`

	// ModVariable is set for bricks that assign a mod variable.
	ModVariable *ModVariableAssignment `yaml:"modVariable"`
}

// PipelineProperty is a config property holding a sub-pipeline.
type PipelineProperty struct {
	Name   string          `yaml:"property"`
	Flavor pipeline.Flavor `yaml:"flavor"`
	Locals []Local         `yaml:"locals"`
}

// Local is a variable visible only inside a sub-pipeline, such as the current
// element of a loop body.
//
// The variable is named by the config property KeyProperty when it holds a
// literal string, else DefaultKey. An "@" prefix is added when missing.
type Local struct {
	KeyProperty string         `yaml:"keyProperty"`
	DefaultKey  string         `yaml:"defaultKey"`
	Schema      map[string]any `yaml:"schema"`
}

// ModVariableAssignment identifies the config property naming the assigned
// mod variable.
type ModVariableAssignment struct {
	NameProperty string `yaml:"nameProperty"`
}

// Pipeline returns the pipeline property named name.
func (b *Brick) Pipeline(name string) (PipelineProperty, bool) {
	for _, p := range b.Pipelines {
		if p.Name == name {
			return p, true
		}
	}
	return PipelineProperty{}, false
}

// VariableName resolves the local's variable name against a brick's config.
func (l Local) VariableName(config *pipeline.Object) string {
	name := l.DefaultKey
	if l.KeyProperty != "" {
		if key, ok := config.StringField(l.KeyProperty); ok && key != "" {
			name = key
		}
	}
	if name == "" {
		return ""
	}
	if name[0] != '@' {
		name = "@" + name
	}
	return name
}
