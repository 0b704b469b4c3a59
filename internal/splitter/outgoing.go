package splitter

import (
	"sync"

	"github.com/bundlecore/bundlecore/internal/graph"
)

// outgoingEntry is one cached (modules, blocks) pair spec.md §4.6 Stage 3
// describes for a (module, runtime) outgoing-edges query.
type outgoingEntry struct {
	modules []graph.ModuleIdentifier
	blocks  []graph.BlockID
}

// OutgoingCache caches per-(module, runtime) outgoing module/block sets,
// partitioned by runtime key so readers for distinct runtimes never
// contend (spec.md §5 "The outgoing-modules cache is partitioned by
// runtime-key"). It is invalidated per-module on graph changes (Resplit
// in splitter.go).
type OutgoingCache struct {
	shards sync.Map // runtimeKey string -> *sync.Map (module -> outgoingEntry)
}

func NewOutgoingCache() *OutgoingCache {
	return &OutgoingCache{}
}

func (c *OutgoingCache) shard(runtimeKey string) *sync.Map {
	v, _ := c.shards.LoadOrStore(runtimeKey, &sync.Map{})
	return v.(*sync.Map)
}

func (c *OutgoingCache) Get(runtimeKey string, module graph.ModuleIdentifier) (outgoingEntry, bool) {
	v, ok := c.shard(runtimeKey).Load(module)
	if !ok {
		return outgoingEntry{}, false
	}
	return v.(outgoingEntry), true
}

func (c *OutgoingCache) Put(runtimeKey string, module graph.ModuleIdentifier, entry outgoingEntry) {
	c.shard(runtimeKey).Store(module, entry)
}

// InvalidateModule evicts module's cached outgoings across every runtime
// shard (spec.md §4.6 "Evict outgoing-caches for each invalidated module
// across all runtimes").
func (c *OutgoingCache) InvalidateModule(module graph.ModuleIdentifier) {
	c.shards.Range(func(_, v interface{}) bool {
		v.(*sync.Map).Delete(module)
		return true
	})
}

// computeOutgoing resolves a module's direct static outgoing modules and
// async blocks, honoring the TransitiveOnly see-through rule: a
// connection whose dependency is an ESM star-reexport is modeled as
// "transitive only" (spec.md §4.6: "this models re-export-only modules
// that should see through for code-splitting purposes"), so its own
// outgoings are merged into the result set in place of the target module
// itself.
func computeOutgoing(g *graph.Graph, module graph.ModuleIdentifier, cache *OutgoingCache, runtimeKey string) outgoingEntry {
	if cached, ok := cache.Get(runtimeKey, module); ok {
		return cached
	}

	mgm, ok := g.GetMGM(module)
	if !ok {
		return outgoingEntry{}
	}
	seenModules := map[graph.ModuleIdentifier]bool{}
	var modules []graph.ModuleIdentifier
	var blocks []graph.BlockID

	addModule := func(m graph.ModuleIdentifier) {
		if !seenModules[m] {
			seenModules[m] = true
			modules = append(modules, m)
		}
	}

	mod, hasMod := g.GetModule(module)
outgoing:
	for depID := range mgm.Outgoing {
		if hasMod {
			// A dependency of one of this module's async blocks is reached
			// through that block's own chunk root, not as a static edge.
			for _, blockID := range mod.BlockIDs {
				if block, ok := g.GetBlock(blockID); ok {
					for _, blockDep := range block.DependencyIDs {
						if blockDep == depID {
							continue outgoing
						}
					}
				}
			}
		}
		if conn, ok := g.ConnectionForDependency(depID); ok && !conn.Active {
			continue
		}
		target, ok := g.ResolvedModuleFor(depID)
		if !ok {
			continue
		}
		dep, _ := g.GetDependency(depID)
		if dep != nil && isTransitiveOnly(dep) {
			inner := computeOutgoing(g, target, cache, runtimeKey)
			for _, m := range inner.modules {
				addModule(m)
			}
			blocks = append(blocks, inner.blocks...)
			continue
		}
		addModule(target)
	}

	if hasMod {
		blocks = append(blocks, mod.BlockIDs...)
	}

	entry := outgoingEntry{modules: modules, blocks: blocks}
	cache.Put(runtimeKey, module, entry)
	return entry
}

// isTransitiveOnly reports whether dep should be "seen through" by the
// splitter's chunk-module closure instead of pulling its own target
// module in directly (spec.md §4.6: "When a connection's active_state is
// TransitiveOnly"). Grounded on the only dependency shape spec.md
// identifies as purely re-export-only: `export * from "..."`.
func isTransitiveOnly(dep *graph.Dependency) bool {
	return dep.ESM != nil && dep.ESM.IsExportStar
}
