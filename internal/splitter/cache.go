package splitter

import "github.com/bundlecore/bundlecore/internal/graph"

// Cache holds the persisted, opaque-to-callers state spec.md §6
// "Persisted cache layout" names: `cache_chunk_desc` (keyed by
// create-chunk-root, i.e. our ChunkRoot.Key) and `cache_chunks` (keyed by
// a stable chunk identity — a name, for named chunks, since unnamed
// chunks aren't cacheable across input changes until Stage 7 assigns
// them an id). Invalidation is driven solely by the set of changed
// modules (spec.md §6).
type Cache struct {
	descsByRoot  map[string]*ChunkDesc
	chunksByName map[string]*Chunk
}

func NewCache() *Cache {
	return &Cache{
		descsByRoot:  map[string]*ChunkDesc{},
		chunksByName: map[string]*Chunk{},
	}
}

func (c *Cache) LookupChunkDesc(rootKey string) (*ChunkDesc, bool) {
	if c == nil {
		return nil, false
	}
	d, ok := c.descsByRoot[rootKey]
	return d, ok
}

func (c *Cache) StoreChunkDesc(d *ChunkDesc) {
	if c == nil {
		return
	}
	c.descsByRoot[d.Root.Key] = d
}

func (c *Cache) LookupChunkByName(name string) (*Chunk, bool) {
	if c == nil {
		return nil, false
	}
	chunk, ok := c.chunksByName[name]
	return chunk, ok
}

func (c *Cache) StoreChunk(chunk *Chunk) {
	if c == nil || chunk.Name == "" {
		return
	}
	c.chunksByName[chunk.Name] = chunk
}

// InvalidateRoots drops every cached ChunkDesc that contains one of the
// changed modules, per spec.md §4.6 "Incremental mode": "Drop every
// cached chunk-desc whose chunk_modules contains a changed module; mark
// every module in those chunks as outgoing-cache-invalid." It returns the
// keys of the dropped descs' roots and the set of modules that were members
// of any dropped desc, for the caller to pass to
// OutgoingCache.InvalidateModule.
func (c *Cache) InvalidateRoots(changed map[graph.ModuleIdentifier]bool) (invalidatedRootKeys []string, touchedModules map[graph.ModuleIdentifier]bool) {
	touchedModules = map[graph.ModuleIdentifier]bool{}
	for key, desc := range c.descsByRoot {
		hit := false
		for m := range desc.ChunkModules {
			if changed[m] {
				hit = true
				break
			}
		}
		if !hit {
			continue
		}
		invalidatedRootKeys = append(invalidatedRootKeys, key)
		for m := range desc.ChunkModules {
			touchedModules[m] = true
		}
		delete(c.descsByRoot, key)
	}
	return invalidatedRootKeys, touchedModules
}
