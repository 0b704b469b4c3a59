package splitter

import (
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/bundlecore/bundlecore/internal/graph"
)

// ChunkDesc is the per-root output of Stage 3: the transitive-closure
// module set plus DFS pre/post-order numbering and the async blocks
// encountered but not descended into (spec.md §4.6 "Stage 3 — per-root
// module fill").
type ChunkDesc struct {
	Root *ChunkRoot

	ChunkModules   map[graph.ModuleIdentifier]bool
	ModulesOrdinal *Bitmap
	// ModuleOrdinals mirrors ModulesOrdinal as a module->ordinal map so
	// Stage 5 can translate a bitmap-test back into which module to drop
	// from ChunkModules without needing the shared Ordinals allocator
	// threaded through every call site.
	ModuleOrdinals map[graph.ModuleIdentifier]uint64

	PreOrderIndices  map[graph.ModuleIdentifier]int32
	PostOrderIndices map[graph.ModuleIdentifier]int32

	// OutgoingBlocks is every async block reachable from this root's
	// modules without descending into it — the seam Stage 4 uses to
	// compute chunk-parent/child relations.
	OutgoingBlocks []graph.BlockID

	EntryModules []graph.ModuleIdentifier
}

// FillChunkDescs implements Stage 3 for every discovered root, run
// data-parallel (one task per root, read-only access to the module
// graph) per spec.md §5 "Stage 3 chunk-desc fill: one task per chunk
// root, read-only access to module graph".
func FillChunkDescs(g *graph.Graph, roots []*ChunkRoot, ordinals *Ordinals, cache *OutgoingCache) ([]*ChunkDesc, error) {
	descs := make([]*ChunkDesc, len(roots))
	eg := new(errgroup.Group)
	for i, root := range roots {
		i, root := i, root
		eg.Go(func() error {
			descs[i] = fillOne(g, root, ordinals, cache)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return descs, nil
}

func fillOne(g *graph.Graph, root *ChunkRoot, ordinals *Ordinals, cache *OutgoingCache) *ChunkDesc {
	desc := &ChunkDesc{
		Root:             root,
		ChunkModules:     map[graph.ModuleIdentifier]bool{},
		ModulesOrdinal:   NewBitmap(),
		ModuleOrdinals:   map[graph.ModuleIdentifier]uint64{},
		PreOrderIndices:  map[graph.ModuleIdentifier]int32{},
		PostOrderIndices: map[graph.ModuleIdentifier]int32{},
	}
	addOrdinal := func(m graph.ModuleIdentifier) {
		ord := ordinals.For(m)
		desc.ModulesOrdinal.Set(ord)
		desc.ModuleOrdinals[m] = ord
	}

	var seeds []graph.ModuleIdentifier
	switch root.Kind {
	case RootEntry:
		seeds = append(seeds, root.EntryData.Dependencies...)
		seeds = append(seeds, root.EntryData.IncludeDependencies...)
		desc.EntryModules = append([]graph.ModuleIdentifier(nil), root.EntryData.Dependencies...)
	case RootBlock:
		for _, blockID := range root.BlockIDs {
			block, ok := g.GetBlock(blockID)
			if !ok {
				continue
			}
			for _, depID := range block.DependencyIDs {
				if conn, ok := g.ConnectionForDependency(depID); ok && !conn.Active {
					continue
				}
				if target, ok := g.ResolvedModuleFor(depID); ok {
					seeds = append(seeds, target)
				}
			}
		}
	}

	runtimeKey := root.Runtime.ToKey()

	var preCounter, postCounter int32
	// Explicit worklist DFS (no recursion on user data, per design notes):
	// a stack of (module, child-index-into-its-outgoings) frames.
	type frame struct {
		module   graph.ModuleIdentifier
		outgoing []graph.ModuleIdentifier
		next     int
	}

	seedOutgoings := outgoingEntry{modules: dedupeSeeds(seeds)}
	var stack []frame
	visited := map[graph.ModuleIdentifier]bool{}

	visitRoot := func(m graph.ModuleIdentifier) {
		if visited[m] {
			return
		}
		visited[m] = true
		desc.ChunkModules[m] = true
		addOrdinal(m)
		desc.PreOrderIndices[m] = preCounter
		preCounter++
		out := computeOutgoing(g, m, cache, runtimeKey)
		desc.OutgoingBlocks = append(desc.OutgoingBlocks, out.blocks...)
		stack = append(stack, frame{module: m, outgoing: out.modules})
	}

	for _, seed := range seedOutgoings.modules {
		visitRoot(seed)
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next >= len(top.outgoing) {
				desc.PostOrderIndices[top.module] = postCounter
				postCounter++
				stack = stack[:len(stack)-1]
				continue
			}
			next := top.outgoing[top.next]
			top.next++
			if visited[next] {
				continue
			}
			visited[next] = true
			desc.ChunkModules[next] = true
			addOrdinal(next)
			desc.PreOrderIndices[next] = preCounter
			preCounter++
			out := computeOutgoing(g, next, cache, runtimeKey)
			desc.OutgoingBlocks = append(desc.OutgoingBlocks, out.blocks...)
			stack = append(stack, frame{module: next, outgoing: out.modules})
		}
	}

	desc.OutgoingBlocks = dedupeBlocks(desc.OutgoingBlocks)
	return desc
}

func dedupeSeeds(seeds []graph.ModuleIdentifier) []graph.ModuleIdentifier {
	seen := map[graph.ModuleIdentifier]bool{}
	var out []graph.ModuleIdentifier
	for _, s := range seeds {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func dedupeBlocks(blocks []graph.BlockID) []graph.BlockID {
	seen := map[graph.BlockID]bool{}
	var out []graph.BlockID
	for _, b := range blocks {
		if !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner != out[j].Owner {
			return out[i].Owner < out[j].Owner
		}
		return out[i].Index < out[j].Index
	})
	return out
}
