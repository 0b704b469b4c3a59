package splitter

import (
	"github.com/bundlecore/bundlecore/internal/config"
	"github.com/bundlecore/bundlecore/internal/diag"
	"github.com/bundlecore/bundlecore/internal/graph"
)

// State is everything a compilation's splitter carries between Split
// calls: the module-ordinal allocator, the outgoing-edges cache, and the
// persisted chunk-desc/chunk cache (spec.md §6 "Persisted cache layout").
// Construct with NewState for a from-scratch build; incremental rebuilds
// reuse the same State across calls to Split.
type State struct {
	Ordinals *Ordinals
	Outgoing *OutgoingCache
	Cache    *Cache

	lastDescs []*ChunkDesc
	lastRel   Relations
}

func NewState() *State {
	return &State{
		Ordinals: NewOrdinals(),
		Outgoing: NewOutgoingCache(),
		Cache:    NewCache(),
	}
}

// Split runs Stages 1–7 of spec.md §4.6 from scratch against the given
// entries and module graph, returning the materialized ChunkGraph.
func Split(g *graph.Graph, entries map[string]EntryData, opts config.Options, log *diag.Log) (*ChunkGraph, *State) {
	state := NewState()
	cg := splitWithState(g, entries, opts, log, state)
	return cg, state
}

// Resplit implements spec.md §4.6 "Incremental mode": given the set of
// modules that changed since the last Split/Resplit call, evicts the
// cached chunk descs and outgoing-caches they touched and reruns Stages
// 2–7; roots whose desc wasn't invalidated are recovered from state.Cache
// unchanged, and reused chunks keep their previous ukey so downstream
// chunk-render caching stays warm.
func Resplit(g *graph.Graph, entries map[string]EntryData, opts config.Options, log *diag.Log, state *State, changed map[graph.ModuleIdentifier]bool) *ChunkGraph {
	invalidatedRoots, touchedModules := state.Cache.InvalidateRoots(changed)
	_ = invalidatedRoots
	for m := range changed {
		touchedModules[m] = true
	}
	for m := range touchedModules {
		state.Outgoing.InvalidateModule(m)
	}
	return splitWithState(g, entries, opts, log, state)
}

func splitWithState(g *graph.Graph, entries map[string]EntryData, opts config.Options, log *diag.Log, state *State) *ChunkGraph {
	entryRuntimes := DetermineEntryRuntimes(entries, log)
	roots := DiscoverChunkRoots(g, entries, entryRuntimes, log)

	descs := make([]*ChunkDesc, len(roots))
	var toFill []*ChunkRoot
	var toFillIdx []int
	for i, root := range roots {
		if cached, ok := state.Cache.LookupChunkDesc(root.Key); ok {
			descs[i] = cached
			continue
		}
		toFill = append(toFill, root)
		toFillIdx = append(toFillIdx, i)
	}
	filled, _ := FillChunkDescs(g, toFill, state.Ordinals, state.Outgoing)
	for j, idx := range toFillIdx {
		descs[idx] = filled[j]
		state.Cache.StoreChunkDesc(filled[j])
	}

	rel := ComputeRelations(descs)
	if opts.CodeSplitting && opts.Optimization.RemoveAvailableModules {
		RemoveAvailableModules(descs, rel)
	}

	cg := NewChunkGraph(log)
	Materialize(cg, descs, rel, state.Cache)
	AssignGroupIndices(cg)
	AssignChunkIDs(cg)

	for _, c := range cg.Chunks() {
		state.Cache.StoreChunk(c)
	}
	state.lastDescs = descs
	state.lastRel = rel
	return cg
}
