package splitter

import (
	"fmt"
	"sort"

	"github.com/bundlecore/bundlecore/internal/diag"
	"github.com/bundlecore/bundlecore/internal/graph"
	"github.com/bundlecore/bundlecore/internal/runtimeset"
)

// RootKind tags whether a ChunkRoot originates from an entry point or an
// async dependencies block.
type RootKind uint8

const (
	RootEntry RootKind = iota
	RootBlock
)

// ChunkRoot is one independently-expandable unit of Stage 3's per-root
// fill, discovered by Stage 2's breadth-first traversal (spec.md §4.6
// "Stage 2 — module-graph traversal for chunk roots"). A block root's
// Key is either the block's declared group name (so that two blocks
// sharing a `webpackChunkName` collapse into one root) or, absent a name,
// the block's own identity.
type ChunkRoot struct {
	Key  string
	Kind RootKind

	EntryName string
	EntryData EntryData

	BlockIDs          []graph.BlockID
	Runtime           runtimeset.Set
	IsAsyncEntrypoint bool
	EntryOptions      *graph.EntryOptions
}

// DiscoverChunkRoots implements spec.md §4.6 Stage 2: breadth-first from
// each entry's dependencies, registering a chunk root on entering every
// async block. Blocks sharing a name produce a single root whose block-id
// list is their union and whose runtime is the union of incoming
// runtimes, except a block carrying its own EntryOptions (an async
// entrypoint) which keeps its own runtime distinct. A block name
// colliding with an entry name is reported and the block is still
// registered as its own root (spec.md: "emit a diagnostic and fall
// through").
func DiscoverChunkRoots(g *graph.Graph, entries map[string]EntryData, entryRuntimes map[string]runtimeset.Set, log *diag.Log) []*ChunkRoot {
	roots := map[string]*ChunkRoot{}
	var order []string

	ensureBlockRoot := func(key string, blockID graph.BlockID, runtime runtimeset.Set, opts graph.GroupOptions) *ChunkRoot {
		if _, collide := entries[key]; collide && key != "" {
			log.Warnf(diag.CodeSplitNameCollision, "", "chunk name %q collides with an entrypoint name", key)
		}
		root, ok := roots[key]
		if !ok {
			root = &ChunkRoot{Key: key, Kind: RootBlock}
			if opts.EntryOptions != nil {
				root.IsAsyncEntrypoint = true
				root.EntryOptions = &graph.EntryOptions{}
				root.Runtime = runtimeset.Of(opts.EntryOptions.Name)
			}
			roots[key] = root
			order = append(order, key)
		}
		root.BlockIDs = append(root.BlockIDs, blockID)
		if !root.IsAsyncEntrypoint {
			root.Runtime = root.Runtime.Union(runtime)
		}
		return root
	}

	for _, name := range sortedEntryNames(entries) {
		entry := entries[name]
		root := &ChunkRoot{Key: "entry:" + name, Kind: RootEntry, EntryName: name, EntryData: entry, Runtime: entryRuntimes[name]}
		roots[root.Key] = root
		order = append(order, root.Key)

		seen := map[graph.ModuleIdentifier]bool{}
		depth := map[graph.ModuleIdentifier]uint32{}
		var queue []graph.ModuleIdentifier
		queue = append(queue, entry.Dependencies...)
		queue = append(queue, entry.IncludeDependencies...)
		for _, m := range queue {
			seen[m] = true
		}

		for len(queue) > 0 {
			moduleID := queue[0]
			queue = queue[1:]

			mgm, ok := g.GetMGM(moduleID)
			if !ok {
				continue
			}
			g.SetDepthIfLower(moduleID, depth[moduleID])

			mod, ok := g.GetModule(moduleID)
			if ok {
				for _, blockID := range mod.BlockIDs {
					block, ok := g.GetBlock(blockID)
					if !ok {
						continue
					}
					key := block.Options.Name
					if key == "" {
						key = fmt.Sprintf("block:%s#%d", blockID.Owner, blockID.Index)
					}
					ensureBlockRoot(key, blockID, entryRuntimes[name], block.Options)
				}
			}

			for depID := range mgm.Outgoing {
				target, ok := g.ResolvedModuleFor(depID)
				if !ok || seen[target] {
					continue
				}
				if conn, hasConn := g.ConnectionForDependency(depID); hasConn && !conn.Active {
					continue
				}
				seen[target] = true
				depth[target] = depth[moduleID] + 1
				queue = append(queue, target)
			}
		}
	}

	out := make([]*ChunkRoot, 0, len(order))
	for _, key := range order {
		out = append(out, roots[key])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

