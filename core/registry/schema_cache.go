package registry

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/pixiebrix/pixiebrix-extension-sub012/core/errors"
	"github.com/pixiebrix/pixiebrix-extension-sub012/core/invariant"
)

// DefaultSchemaCacheSize is used when a non-positive size is requested.
const DefaultSchemaCacheSize = 256

// SchemaCache compiles raw JSON schemas and memoizes the result by content
// hash. Safe for concurrent use.
type SchemaCache struct {
	cache *lru.Cache[string, *jsonschema.Schema]
}

// NewSchemaCache creates a cache holding up to size compiled schemas.
func NewSchemaCache(size int) *SchemaCache {
	if size <= 0 {
		size = DefaultSchemaCacheSize
	}
	c, err := lru.New[string, *jsonschema.Schema](size)
	invariant.ExpectNoError(err, "schema cache allocation")
	return &SchemaCache{cache: c}
}

// Compile returns the compiled form of a raw schema. A nil schema compiles
// to nil.
func (c *SchemaCache) Compile(raw map[string]any) (*jsonschema.Schema, error) {
	if raw == nil {
		return nil, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrSchemaCompile, "schema is not JSON-encodable", err)
	}
	sum := sha256.Sum256(b)
	key := hex.EncodeToString(sum[:])

	if s, ok := c.cache.Get(key); ok {
		return s, nil
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	url := key + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, errors.Wrap(errors.ErrSchemaCompile, "invalid schema", err)
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, errors.Wrap(errors.ErrSchemaCompile, "invalid schema", err)
	}
	c.cache.Add(key, s)
	return s, nil
}

// Len returns the number of cached schemas.
func (c *SchemaCache) Len() int {
	return c.cache.Len()
}
