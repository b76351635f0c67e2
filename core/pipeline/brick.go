package pipeline

// DocumentRendererID is the brick whose config.body is a document element tree
// rather than plain configuration.
const DocumentRendererID = "@pixiebrix/document"

// BrickConfig is one configured brick in a pipeline.
type BrickConfig struct {
	ID         string
	InstanceID string
	Label      string
	OutputKey  string
	// If guards execution. Nil when the brick always runs.
	If     Value
	Config *Object
}

// Pipeline is an ordered list of bricks.
type Pipeline []*BrickConfig

// Clone deep-copies the pipeline.
func (p Pipeline) Clone() Pipeline {
	if p == nil {
		return nil
	}
	out := make(Pipeline, len(p))
	for i, b := range p {
		out[i] = b.Clone()
	}
	return out
}

// Clone deep-copies the brick configuration.
func (b *BrickConfig) Clone() *BrickConfig {
	if b == nil {
		return nil
	}
	out := *b
	out.If = CloneValue(b.If)
	out.Config = b.Config.Clone()
	return &out
}

// ConfigValue returns the config property named key.
func (b *BrickConfig) ConfigValue(key string) (Value, bool) {
	return b.Config.Get(key)
}

// Flavor restricts which brick categories a pipeline may contain.
type Flavor string

const (
	FlavorAllBricks  Flavor = "allBricks"
	FlavorNoEffect   Flavor = "noEffect"
	FlavorNoRenderer Flavor = "noRenderer"
)

// StarterBrickType is the kind of starter brick that runs a mod component.
type StarterBrickType string

const (
	StarterTrigger          StarterBrickType = "trigger"
	StarterMenuItem         StarterBrickType = "menuItem"
	StarterContextMenu      StarterBrickType = "contextMenu"
	StarterQuickBar         StarterBrickType = "quickBar"
	StarterQuickBarProvider StarterBrickType = "quickBarProvider"
	StarterButton           StarterBrickType = "button"
	StarterPanel            StarterBrickType = "panel"
	StarterActionPanel      StarterBrickType = "actionPanel"
)

// RootFlavor returns the flavor of the root pipeline for a starter brick type.
// Panels render their pipeline, so side effects are excluded; every other
// starter runs effects and may not render. An unknown type permits all bricks.
func RootFlavor(t StarterBrickType) Flavor {
	switch t {
	case StarterPanel, StarterActionPanel:
		return FlavorNoEffect
	case StarterTrigger, StarterMenuItem, StarterContextMenu, StarterQuickBar,
		StarterQuickBarProvider, StarterButton:
		return FlavorNoRenderer
	default:
		return FlavorAllBricks
	}
}
