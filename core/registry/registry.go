// Package registry resolves brick ids to their metadata: output schema,
// sub-pipeline properties and the flavor each sub-pipeline runs under.
package registry

import (
	"sort"
	"sync"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/pipeline"
)

// Registry is a read-only snapshot of known bricks.
type Registry interface {
	Lookup(id string) (*Brick, bool)
	// IDs returns every registered id in sorted order.
	IDs() []string
}

// MemoryRegistry is an in-memory Registry safe for concurrent use.
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]*Brick // id -> definition
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		entries: make(map[string]*Brick),
	}
}

// Register adds bricks, replacing earlier definitions with the same id.
func (r *MemoryRegistry) Register(bricks ...*Brick) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range bricks {
		r.entries[b.ID] = b
	}
}

// Lookup retrieves a brick by id.
func (r *MemoryRegistry) Lookup(id string) (*Brick, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.entries[id]
	return b, ok
}

// IDs returns all registered ids, sorted.
func (r *MemoryRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered bricks.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// FlavorOf returns the flavor of the sub-pipeline stored under property of
// brick id. Sub-pipelines of unknown bricks, and properties that declare no
// flavor, permit all bricks.
func FlavorOf(reg Registry, id, property string) pipeline.Flavor {
	if reg == nil {
		return pipeline.FlavorAllBricks
	}
	b, ok := reg.Lookup(id)
	if !ok {
		return pipeline.FlavorAllBricks
	}
	p, ok := b.Pipeline(property)
	if !ok || p.Flavor == "" {
		return pipeline.FlavorAllBricks
	}
	return p.Flavor
}
