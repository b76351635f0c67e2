package analysis

import (
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/pipeline"
)

// Well-known sources of a VarMap besides brick positions.
const (
	// TraceSource holds the trace template context recorded at a position.
	TraceSource = "trace"
	// OptionsSource holds @options, declared by the mod options schema.
	OptionsSource = "options"
	// ModSource holds @mod, the mod variables.
	ModSource = "mod"
	// InputSource holds @input when the starter brick declares no readers.
	InputSource = "input"

	inputSourcePrefix       = "input:"
	IntegrationSourcePrefix = "integration:"
)

// InputSourceFor returns the source label of a reader's @input.
func InputSourceFor(readerName string) string {
	return inputSourcePrefix + readerName
}

// IntegrationSourceFor returns the source label of an integration dependency.
func IntegrationSourceFor(integrationID string) string {
	return IntegrationSourcePrefix + integrationID
}

// StarterBrick is the part of the starter brick the analysis depends on.
type StarterBrick struct {
	Type pipeline.StarterBrickType
	// Readers are the ids of the readers providing @input.
	Readers []string
}

// IntegrationDependency binds an integration configuration to a variable.
type IntegrationDependency struct {
	IntegrationID string
	// OutputKey names the variable, without the "@" prefix.
	OutputKey string
}

// TraceRecord is the template context captured when a brick ran, keyed by
// variable name ("@input", "@jq").
type TraceRecord map[string]any

// Input is everything a single analysis run reads.
type Input struct {
	Pipeline           pipeline.Pipeline
	StarterBrick       StarterBrick
	ModOptionsSchema   map[string]any
	ModVariablesSchema map[string]any
	Integrations       []IntegrationDependency
	// Traces maps a brick position to the context it ran with.
	Traces map[string]TraceRecord
}
