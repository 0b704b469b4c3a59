package splitter

import (
	"sort"

	"github.com/bundlecore/bundlecore/internal/diag"
	"github.com/bundlecore/bundlecore/internal/graph"
	"github.com/bundlecore/bundlecore/internal/ukey"
)

// Materialize implements spec.md §4.6 "Stage 6 — materialization": for
// each chunk desc (skipping normal chunks that became empty after Stage
// 5), picks or reuses a chunk ukey, constructs its chunk group, wires
// dedicated runtime chunks for named-runtime entrypoints, connects
// depend_on parents, links chunk-group children (async entrypoints via a
// distinct edge so they don't inherit their parent's runtime), and
// assigns module→chunk edges.
func Materialize(cg *ChunkGraph, descs []*ChunkDesc, rel Relations, cache *Cache) {
	byKey := make(map[string]*ChunkDesc, len(descs))
	keyOrder := make([]string, 0, len(descs))
	for _, d := range descs {
		if d.Root.Kind != RootEntry && len(d.ChunkModules) == 0 {
			continue // empty normal chunks are elided (spec.md §3 invariant)
		}
		byKey[d.Root.Key] = d
		keyOrder = append(keyOrder, d.Root.Key)
	}
	sort.Strings(keyOrder)

	groupByRootKey := map[string]ukey.ChunkGroup{}
	chunkByRootKey := map[string]ukey.Chunk{}

	// Step 1/2: pick-or-create chunk + construct its chunk group.
	for _, key := range keyOrder {
		d := byKey[key]
		chunkKey, chunk := pickOrCreateChunk(cg, cache, d.Root)
		chunk.Runtime = d.Root.Runtime
		chunkByRootKey[key] = chunkKey

		var groupKind GroupKind
		if d.Root.Kind == RootEntry {
			groupKind = GroupEntrypoint
		} else {
			groupKind = GroupNormal
		}
		name := chunkNameFor(d.Root)
		groupKey := cg.groupCounter.Next()
		group := newChunkGroup(groupKey, name, groupKind)
		group.Initial = d.Root.Kind == RootEntry
		if d.Root.Kind == RootEntry {
			group.Options = d.Root.EntryData.Options
		}
		group.Chunks = append(group.Chunks, chunkKey)
		group.PreOrderIndex = copyIndex(d.PreOrderIndices)
		group.PostOrderIndex = copyIndex(d.PostOrderIndices)
		cg.groups[groupKey] = group
		if name != "" {
			cg.namedGroups[name] = groupKey
		}
		groupByRootKey[key] = groupKey

		for _, blockID := range d.Root.BlockIDs {
			cg.blockGroup[blockID] = groupKey
		}
	}

	// Step 3: dedicated runtime chunk for entrypoints declaring a named
	// runtime not already an existing entry.
	for _, key := range keyOrder {
		d := byKey[key]
		if d.Root.Kind != RootEntry {
			continue
		}
		group := cg.groups[groupByRootKey[key]]
		runtimeName := d.Root.EntryData.Options.Runtime
		if runtimeName == "" {
			continue
		}
		if _, isEntry := byKey["entry:"+runtimeName]; isEntry {
			cg.Diagnostics.Errorf(diag.CodeSplitBadCombo, "", "entry %q uses runtime %q which is itself an existing entry", d.Root.EntryName, runtimeName)
			continue
		}
		rtChunkKey, rtChunk := pickOrCreateChunk(cg, cache, &ChunkRoot{Key: "runtime:" + runtimeName})
		rtChunk.Name = runtimeName
		rtChunk.PreventIntegration = true
		rtChunk.Runtime = d.Root.Runtime
		group.Chunks = append([]ukey.Chunk{rtChunkKey}, group.Chunks...)
	}

	// Step 4: wire depend_on parents now that every entrypoint group
	// exists, self-assigning a runtime chunk on a depend_on cycle.
	for _, key := range keyOrder {
		d := byKey[key]
		if d.Root.Kind != RootEntry {
			continue
		}
		group := cg.groups[groupByRootKey[key]]
		for _, depName := range d.Root.EntryData.Options.DependOn {
			parentKey, ok := groupByRootKey["entry:"+depName]
			if !ok {
				continue
			}
			if dependOnCycleBack(byKey, groupByRootKey, cg, depName, d.Root.EntryName) {
				rtChunkKey, rtChunk := pickOrCreateChunk(cg, cache, &ChunkRoot{Key: "runtime:" + d.Root.EntryName})
				rtChunk.Name = d.Root.EntryName
				rtChunk.PreventIntegration = true
				group.Chunks = append([]ukey.Chunk{rtChunkKey}, group.Chunks...)
				continue
			}
			group.Parents = append(group.Parents, parentKey)
			parentGroup := cg.groups[parentKey]
			parentGroup.Children = append(parentGroup.Children, group.Key)
		}
	}

	// Step 5: connect block-derived parent/child relations; async
	// entrypoints link via AsyncEntrypointChildren instead of
	// Parents/Children so they keep their own runtime.
	for parentKey, children := range rel.Children {
		parentGroupKey, ok := groupByRootKey[parentKey]
		if !ok {
			continue
		}
		parentGroup := cg.groups[parentGroupKey]
		for _, childKey := range children {
			childGroupKey, ok := groupByRootKey[childKey]
			if !ok {
				continue
			}
			childDesc := byKey[childKey]
			if childDesc.Root.IsAsyncEntrypoint {
				parentGroup.AsyncEntrypointChildren = append(parentGroup.AsyncEntrypointChildren, childGroupKey)
				continue
			}
			childGroup := cg.groups[childGroupKey]
			parentGroup.Children = append(parentGroup.Children, childGroupKey)
			childGroup.Parents = append(childGroup.Parents, parentGroupKey)
		}
	}

	// Step 6: module→chunk edges.
	for _, key := range keyOrder {
		d := byKey[key]
		chunkKey := chunkByRootKey[key]
		for m := range d.ChunkModules {
			cg.ConnectChunkAndModule(chunkKey, m)
		}
		for _, m := range d.EntryModules {
			cg.markEntryModule(chunkKey, m)
		}
	}
}

func dependOnCycleBack(byKey map[string]*ChunkDesc, groupByRootKey map[string]ukey.ChunkGroup, cg *ChunkGraph, depName, childName string) bool {
	d, ok := byKey["entry:"+depName]
	if !ok {
		return false
	}
	for _, grandDep := range d.Root.EntryData.Options.DependOn {
		if grandDep == childName {
			return true
		}
	}
	return false
}

func pickOrCreateChunk(cg *ChunkGraph, cache *Cache, root *ChunkRoot) (ukey.Chunk, *Chunk) {
	name := chunkNameFor(root)
	if name != "" {
		if existing, ok := cg.namedChunks[name]; ok {
			c := cg.chunks[existing]
			c.PreventIntegration = false
			return existing, c
		}
		if cache != nil {
			if cached, ok := cache.LookupChunkByName(name); ok {
				cg.chunks[cached.Key] = cached
				cg.namedChunks[name] = cached.Key
				cached.PreventIntegration = false
				return cached.Key, cached
			}
		}
	}
	key := cg.chunkCounter.Next()
	chunk := newChunk(key, name)
	cg.chunks[key] = chunk
	if name != "" {
		cg.namedChunks[name] = key
	}
	return key, chunk
}

func chunkNameFor(root *ChunkRoot) string {
	if root.Kind == RootEntry {
		return root.EntryName
	}
	if len(root.Key) > 6 && root.Key[:6] != "block:" {
		return root.Key
	}
	return ""
}

func copyIndex(src map[graph.ModuleIdentifier]int32) map[graph.ModuleIdentifier]int32 {
	out := make(map[graph.ModuleIdentifier]int32, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
