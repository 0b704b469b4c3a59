package splitter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/config"
	"github.com/bundlecore/bundlecore/internal/diag"
	"github.com/bundlecore/bundlecore/internal/graph"
	"github.com/bundlecore/bundlecore/internal/ukey"
)

func newModule(id graph.ModuleIdentifier) *graph.Module {
	return &graph.Module{Identifier: id, Kind: graph.KindNormal}
}

// link adds a static ESM dependency from owner to target and wires the
// resulting connection, returning the allocated dependency id.
func link(t *testing.T, g *graph.Graph, depCounter *ukey.Counter[ukey.DependencyKind], owner, target graph.ModuleIdentifier, isStar bool) ukey.Dependency {
	t.Helper()
	depID := depCounter.Next()
	g.AddDependency(depID, &graph.Dependency{
		Category:    graph.CategoryESM,
		OwnerModule: owner,
		ESM:         &graph.ESMData{Request: string(target), IsExportStar: isStar},
	})
	_, ok := g.SetResolvedModule(depID, owner, target, nil, true)
	require.True(t, ok)
	return depID
}

// twoEntriesSharedModule builds entries "a" and "b" that both statically
// depend on a shared module "shared.js", per spec.md §8 scenario 1.
func twoEntriesSharedModule(t *testing.T) (*graph.Graph, map[string]EntryData) {
	t.Helper()
	g := graph.New()
	var depCounter ukey.Counter[ukey.DependencyKind]

	for _, id := range []graph.ModuleIdentifier{"a.js", "b.js", "shared.js"} {
		g.AddModule(newModule(id))
	}
	link(t, g, &depCounter, "a.js", "shared.js", false)
	link(t, g, &depCounter, "b.js", "shared.js", false)

	entries := map[string]EntryData{
		"a": {Name: "a", Dependencies: []graph.ModuleIdentifier{"a.js"}},
		"b": {Name: "b", Dependencies: []graph.ModuleIdentifier{"b.js"}},
	}
	return g, entries
}

func TestDiscoverChunkRoots_OneRootPerEntry(t *testing.T) {
	g, entries := twoEntriesSharedModule(t)
	log := diag.NewLog()
	rts := DetermineEntryRuntimes(entries, log)
	roots := DiscoverChunkRoots(g, entries, rts, log)
	require.Len(t, roots, 2)
	require.Equal(t, "entry:a", roots[0].Key)
	require.Equal(t, "entry:b", roots[1].Key)
}

func TestSplit_TwoEntriesShareModuleInBothChunks(t *testing.T) {
	g, entries := twoEntriesSharedModule(t)
	log := diag.NewLog()
	opts := config.Default()
	opts.Optimization.RemoveAvailableModules = false

	cg, _ := Split(g, entries, opts, log)
	require.Empty(t, log.Finish())

	aKey, ok := cg.ChunkByName("a")
	require.True(t, ok)
	bKey, ok := cg.ChunkByName("b")
	require.True(t, ok)

	require.True(t, cg.ModulesOf(aKey)["shared.js"])
	require.True(t, cg.ModulesOf(bKey)["shared.js"])
	require.True(t, cg.ModulesOf(aKey)["a.js"])
	require.True(t, cg.ModulesOf(bKey)["b.js"])
}

func TestDynamicImportCreatesSingleBlockChunk(t *testing.T) {
	g := graph.New()
	var depCounter ukey.Counter[ukey.DependencyKind]
	for _, id := range []graph.ModuleIdentifier{"main.js", "lazy.js"} {
		g.AddModule(newModule(id))
	}

	depID := depCounter.Next()
	g.AddDependency(depID, &graph.Dependency{Category: graph.CategoryESM, OwnerModule: "main.js", ESM: &graph.ESMData{Request: "lazy.js"}})
	_, ok := g.SetResolvedModule(depID, "main.js", "lazy.js", nil, true)
	require.True(t, ok)

	blockID := graph.BlockID{Owner: "main.js", Index: 0}
	g.AddBlock(&graph.AsyncDependenciesBlock{ID: blockID, DependencyIDs: []ukey.Dependency{depID}})
	main, ok := g.GetModuleMut("main.js")
	require.True(t, ok)
	main.BlockIDs = append(main.BlockIDs, blockID)

	entries := map[string]EntryData{
		"main": {Name: "main", Dependencies: []graph.ModuleIdentifier{"main.js"}},
	}
	log := diag.NewLog()
	opts := config.Default()

	cg, _ := Split(g, entries, opts, log)
	require.Empty(t, log.Finish())

	mainKey, ok := cg.ChunkByName("main")
	require.True(t, ok)
	require.True(t, cg.ModulesOf(mainKey)["main.js"])
	require.False(t, cg.ModulesOf(mainKey)["lazy.js"], "the async boundary must not pull lazy.js into the entry chunk")

	var blockGroupFound bool
	for _, group := range cg.Groups() {
		if group.Kind == GroupNormal {
			blockGroupFound = true
			require.Len(t, group.Chunks, 1)
			require.True(t, cg.ModulesOf(group.Chunks[0])["lazy.js"])
		}
	}
	require.True(t, blockGroupFound, "the dynamic import must materialize its own chunk group")
}

func TestDetermineEntryRuntimes_DependOnCycleFallsBackAndReportsDiagnostic(t *testing.T) {
	entries := map[string]EntryData{
		"a": {Name: "a", Options: EntryOptions{DependOn: []string{"b"}}},
		"b": {Name: "b", Options: EntryOptions{DependOn: []string{"a"}}},
	}
	log := diag.NewLog()
	rts := DetermineEntryRuntimes(entries, log)

	require.NotEmpty(t, log.Finish())
	require.True(t, rts["a"].Contains("a"))
	require.True(t, rts["b"].Contains("b"))
}

func TestDetermineEntryRuntimes_DependOnUnionsTransitively(t *testing.T) {
	entries := map[string]EntryData{
		"base":   {Name: "base"},
		"shared": {Name: "shared", Options: EntryOptions{DependOn: []string{"base"}}},
		"app":    {Name: "app", Options: EntryOptions{DependOn: []string{"shared"}}},
	}
	log := diag.NewLog()
	rts := DetermineEntryRuntimes(entries, log)

	require.Empty(t, log.Finish())
	require.True(t, rts["app"].Contains("base"))
}

func TestDetermineEntryRuntimes_DependOnWithRuntimeIsBadCombo(t *testing.T) {
	entries := map[string]EntryData{
		"a": {Name: "a", Options: EntryOptions{DependOn: []string{"b"}, Runtime: "shared"}},
		"b": {Name: "b"},
	}
	log := diag.NewLog()
	rts := DetermineEntryRuntimes(entries, log)

	msgs := log.Finish()
	require.Len(t, msgs, 1)
	require.Equal(t, diag.CodeSplitBadCombo, msgs[0].Code)
	require.True(t, rts["a"].Contains("a"))
}

func TestOutgoing_StarReexportIsTransitiveOnly(t *testing.T) {
	g := graph.New()
	var depCounter ukey.Counter[ukey.DependencyKind]
	for _, id := range []graph.ModuleIdentifier{"entry.js", "barrel.js", "impl.js"} {
		g.AddModule(newModule(id))
	}
	link(t, g, &depCounter, "entry.js", "barrel.js", false)
	link(t, g, &depCounter, "barrel.js", "impl.js", true)

	entries := map[string]EntryData{
		"main": {Name: "main", Dependencies: []graph.ModuleIdentifier{"entry.js"}},
	}
	log := diag.NewLog()
	opts := config.Default()
	cg, _ := Split(g, entries, opts, log)

	mainKey, ok := cg.ChunkByName("main")
	require.True(t, ok)
	mods := cg.ModulesOf(mainKey)
	require.True(t, mods["entry.js"])
	require.True(t, mods["barrel.js"])
	require.True(t, mods["impl.js"], "the star-reexport's own target must be reached through the see-through rule")
}

func TestRemoveAvailableModules_SubtractsParentIntersection(t *testing.T) {
	descA := &ChunkDesc{
		Root:           &ChunkRoot{Key: "entry:a"},
		ChunkModules:   map[graph.ModuleIdentifier]bool{"a.js": true, "shared.js": true},
		ModulesOrdinal: NewBitmap(),
		ModuleOrdinals: map[graph.ModuleIdentifier]uint64{"a.js": 0, "shared.js": 1},
		EntryModules:   []graph.ModuleIdentifier{"a.js"},
	}
	descA.ModulesOrdinal.Set(0)
	descA.ModulesOrdinal.Set(1)

	descB := &ChunkDesc{
		Root:           &ChunkRoot{Key: "entry:b"},
		ChunkModules:   map[graph.ModuleIdentifier]bool{"b.js": true, "shared.js": true},
		ModulesOrdinal: NewBitmap(),
		ModuleOrdinals: map[graph.ModuleIdentifier]uint64{"b.js": 2, "shared.js": 1},
		EntryModules:   []graph.ModuleIdentifier{"b.js"},
	}
	descB.ModulesOrdinal.Set(2)
	descB.ModulesOrdinal.Set(1)

	child := &ChunkDesc{
		Root:           &ChunkRoot{Key: "block:child"},
		ChunkModules:   map[graph.ModuleIdentifier]bool{"shared.js": true, "child.js": true},
		ModulesOrdinal: NewBitmap(),
		ModuleOrdinals: map[graph.ModuleIdentifier]uint64{"shared.js": 1, "child.js": 3},
	}
	child.ModulesOrdinal.Set(1)
	child.ModulesOrdinal.Set(3)

	rel := Relations{
		Parents: map[string][]string{"block:child": {"entry:a", "entry:b"}},
	}

	rounds := RemoveAvailableModules([]*ChunkDesc{descA, descB, child}, rel)
	require.GreaterOrEqual(t, rounds, 1)
	require.False(t, child.ChunkModules["shared.js"], "shared.js is available from every parent so it must be removed from the child")
	require.True(t, child.ChunkModules["child.js"])
}

func TestRemoveAvailableModules_KeepsEntryModuleEvenIfAvailable(t *testing.T) {
	parent := &ChunkDesc{
		Root:           &ChunkRoot{Key: "entry:a"},
		ChunkModules:   map[graph.ModuleIdentifier]bool{"a.js": true},
		ModulesOrdinal: NewBitmap(),
		ModuleOrdinals: map[graph.ModuleIdentifier]uint64{"a.js": 0},
		EntryModules:   []graph.ModuleIdentifier{"a.js"},
	}
	parent.ModulesOrdinal.Set(0)

	child := &ChunkDesc{
		Root:           &ChunkRoot{Key: "entry:child"},
		ChunkModules:   map[graph.ModuleIdentifier]bool{"a.js": true},
		ModulesOrdinal: NewBitmap(),
		ModuleOrdinals: map[graph.ModuleIdentifier]uint64{"a.js": 0},
		EntryModules:   []graph.ModuleIdentifier{"a.js"},
	}
	child.ModulesOrdinal.Set(0)

	rel := Relations{Parents: map[string][]string{"entry:child": {"entry:a"}}}
	RemoveAvailableModules([]*ChunkDesc{parent, child}, rel)

	require.True(t, child.ChunkModules["a.js"], "a chunk's own entry module is never removed even if a parent also carries it")
}

func TestBitmap_SetTestIntersectSubtractUnion(t *testing.T) {
	b1 := NewBitmap()
	b1.Set(0)
	b1.Set(65)

	b2 := NewBitmap()
	b2.Set(65)
	b2.Set(200)

	require.True(t, b1.Test(0))
	require.True(t, b1.Test(65))
	require.False(t, b1.Test(1))

	require.True(t, b1.IntersectNonEmpty(b2))
	inter := b1.Intersect(b2)
	require.True(t, inter.Test(65))
	require.False(t, inter.Test(0))
	require.False(t, inter.Test(200))

	union := b1.Union(b2)
	require.True(t, union.Test(0))
	require.True(t, union.Test(65))
	require.True(t, union.Test(200))

	b1.Subtract(b2)
	require.True(t, b1.Test(0))
	require.False(t, b1.Test(65))
	require.False(t, b1.IsEmpty())

	empty := NewBitmap()
	require.True(t, empty.IsEmpty())
}

func TestOrdinals_StableAcrossRepeatedLookups(t *testing.T) {
	ords := NewOrdinals()
	first := ords.For("a.js")
	second := ords.For("b.js")
	again := ords.For("a.js")
	require.Equal(t, first, again)
	require.NotEqual(t, first, second)
}

func TestAssignChunkIDs_NamedChunksKeepTheirName(t *testing.T) {
	cg := NewChunkGraph(diag.NewLog())
	_, named := pickOrCreateChunk(cg, nil, &ChunkRoot{Kind: RootEntry, EntryName: "main"})
	_, unnamed1 := pickOrCreateChunk(cg, nil, &ChunkRoot{Kind: RootBlock, Key: "block:x"})
	_, unnamed2 := pickOrCreateChunk(cg, nil, &ChunkRoot{Kind: RootBlock, Key: "block:y"})
	cg.ConnectChunkAndModule(unnamed1.Key, "x.js")
	cg.ConnectChunkAndModule(unnamed2.Key, "y.js")

	AssignChunkIDs(cg)
	require.Equal(t, "main", named.ID)
	require.NotEqual(t, unnamed1.ID, unnamed2.ID)
	require.NotEmpty(t, unnamed1.ID)
	require.NotEmpty(t, unnamed2.ID)
}

func TestResplit_IncrementalReusesUnaffectedChunkDescs(t *testing.T) {
	g, entries := twoEntriesSharedModule(t)
	log := diag.NewLog()
	opts := config.Default()
	opts.Optimization.RemoveAvailableModules = false

	state := NewState()
	cg1 := splitWithState(g, entries, opts, log, state)
	aKey1, _ := cg1.ChunkByName("a")
	require.True(t, cg1.ModulesOf(aKey1)["shared.js"])

	// Nothing actually changed in the graph; Resplit with an empty changed
	// set must still produce the same chunk membership, served from cache.
	cg2 := Resplit(g, entries, opts, log, state, map[graph.ModuleIdentifier]bool{})
	aKey2, ok := cg2.ChunkByName("a")
	require.True(t, ok)
	require.True(t, cg2.ModulesOf(aKey2)["shared.js"])
	require.True(t, cg2.ModulesOf(aKey2)["a.js"])
}

func TestSplit_DependOnWiresChunkGroupParent(t *testing.T) {
	g := graph.New()
	var depCounter ukey.Counter[ukey.DependencyKind]
	for _, id := range []graph.ModuleIdentifier{"base.js", "app.js"} {
		g.AddModule(newModule(id))
	}

	entries := map[string]EntryData{
		"base": {Name: "base", Dependencies: []graph.ModuleIdentifier{"base.js"}},
		"app":  {Name: "app", Dependencies: []graph.ModuleIdentifier{"app.js"}, Options: EntryOptions{DependOn: []string{"base"}}},
	}
	log := diag.NewLog()
	opts := config.Default()
	cg, _ := Split(g, entries, opts, log)
	require.Empty(t, log.Finish())

	baseGroupKey, ok := cg.GroupByName("base")
	require.True(t, ok)
	appGroupKey, ok := cg.GroupByName("app")
	require.True(t, ok)

	appGroup, ok := cg.ChunkGroup(appGroupKey)
	require.True(t, ok)
	require.Contains(t, appGroup.Parents, baseGroupKey)

	baseGroup, ok := cg.ChunkGroup(baseGroupKey)
	require.True(t, ok)
	require.Contains(t, baseGroup.Children, appGroupKey)

	AssignGroupIndices(cg)
	require.Less(t, baseGroup.Index, appGroup.Index, "a depend_on parent must be indexed before its child")
}

func TestComputeRelations_DependOnAddsEntryParent(t *testing.T) {
	descs := []*ChunkDesc{
		{Root: &ChunkRoot{Key: "entry:base", Kind: RootEntry, EntryData: EntryData{Name: "base"}}},
		{Root: &ChunkRoot{Key: "entry:app", Kind: RootEntry, EntryName: "app", EntryData: EntryData{Name: "app", Options: EntryOptions{DependOn: []string{"base"}}}}},
	}
	rel := ComputeRelations(descs)
	require.Equal(t, []string{"entry:base"}, rel.Parents["entry:app"])
}
