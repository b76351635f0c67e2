package analysis

import (
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/invariant"
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/pipeline"
)

// canonicalInput is the deterministic form of an Input. Objects are encoded
// as ordered key/value pairs, since key order drives walk order.
type canonicalInput struct {
	Version      uint8
	Starter      string
	Readers      []string
	Options      any
	Variables    any
	Integrations [][2]string
	Pipeline     []any
	Traces       []canonicalTrace
}

type canonicalTrace struct {
	Position string
	Context  any
}

type canonicalPair struct {
	Key   string
	Value any
}

const canonicalVersion = 1

// Fingerprint returns a stable digest of an input: "blake2b:<hex>". Inputs
// with equal fingerprints produce equal results against the same registry.
func Fingerprint(in Input) (string, error) {
	ci := canonicalInput{
		Version:   canonicalVersion,
		Starter:   string(in.StarterBrick.Type),
		Readers:   in.StarterBrick.Readers,
		Options:   in.ModOptionsSchema,
		Variables: in.ModVariablesSchema,
		Pipeline:  canonicalPipeline(in.Pipeline),
	}
	for _, dep := range in.Integrations {
		ci.Integrations = append(ci.Integrations, [2]string{dep.IntegrationID, dep.OutputKey})
	}
	positions := make([]string, 0, len(in.Traces))
	for pos := range in.Traces {
		positions = append(positions, pos)
	}
	sort.Strings(positions)
	for _, pos := range positions {
		ci.Traces = append(ci.Traces, canonicalTrace{Position: pos, Context: map[string]any(in.Traces[pos])})
	}

	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return "", fmt.Errorf("failed to create CBOR encoder: %w", err)
	}
	data, err := encMode.Marshal(ci)
	if err != nil {
		return "", fmt.Errorf("CBOR encoding failed: %w", err)
	}
	sum := blake2b.Sum256(data)
	return fmt.Sprintf("blake2b:%x", sum), nil
}

func canonicalPipeline(p pipeline.Pipeline) []any {
	out := make([]any, len(p))
	for i, b := range p {
		out[i] = []any{b.ID, b.InstanceID, b.Label, b.OutputKey, canonicalValue(b.If), canonicalValue(b.Config)}
	}
	return out
}

func canonicalValue(v pipeline.Value) any {
	switch v := v.(type) {
	case nil:
		return nil
	case *pipeline.Literal:
		return v.Value
	case *pipeline.Object:
		if v == nil {
			return nil
		}
		pairs := make([]canonicalPair, len(v.Keys))
		for i, k := range v.Keys {
			pairs[i] = canonicalPair{Key: k, Value: canonicalValue(v.Fields[k])}
		}
		return pairs
	case *pipeline.Array:
		items := make([]any, len(v.Items))
		for i, item := range v.Items {
			items[i] = canonicalValue(item)
		}
		return items
	case *pipeline.Template:
		return []any{"template", string(v.Engine), v.Source}
	case *pipeline.VarRef:
		return []any{"var", v.Path}
	case *pipeline.PipelineExpr:
		return []any{"pipeline", canonicalPipeline(v.Bricks)}
	case *pipeline.Deferred:
		return []any{"defer", canonicalValue(v.Value)}
	default:
		return nil
	}
}

// DefaultCacheSize is used when a non-positive size is requested.
const DefaultCacheSize = 64

// Cache memoizes analysis results by input fingerprint. Safe for concurrent
// use. Results are shared between callers and must be treated as read-only.
type Cache struct {
	lru *lru.Cache[string, *Result]
}

// NewCache creates a cache holding up to size results.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *Result](size)
	invariant.ExpectNoError(err, "result cache allocation")
	return &Cache{lru: c}
}

// Get returns the result cached under fingerprint.
func (c *Cache) Get(fingerprint string) (*Result, bool) {
	return c.lru.Get(fingerprint)
}

// Add caches a result.
func (c *Cache) Add(fingerprint string, r *Result) {
	c.lru.Add(fingerprint, r)
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	return c.lru.Len()
}
