package usage

import (
	"golang.org/x/sync/errgroup"

	"github.com/bundlecore/bundlecore/internal/exports"
	"github.com/bundlecore/bundlecore/internal/graph"
	"github.com/bundlecore/bundlecore/internal/runtimeset"
)

// ReexportEdge is one import/reexport dependency the propagation driver
// walks: an importer referencing names on a target module's exports-info,
// at a given effective usage strength (spec.md §4.4 step 2/3).
type ReexportEdge struct {
	TargetModule string
	// Names is the specific referenced names (empty names list + Star
	// true means "star reexport" and marks Other instead).
	Names  []string
	Star   bool
	Effect exports.UsageState
}

// Edges is supplied by the caller (the render/link layer that knows which
// dependency touches which target) as a function from an importer module
// identifier to the edges it contributes this round. The driver doesn't
// know how to walk dependency records itself — spec.md places dependency
// interpretation in C5/C6's caller, not in the lattice itself.
type EdgeSource func(importer string) []ReexportEdge

// Propagate runs the fixed-point pass spec.md §4.4 "Usage propagation"
// describes: seed every entry module's Other slot to Used for its
// runtime, then iterate import/reexport edges until no ExportInfo field
// changes. Each round first propagates runtime reachability along the same
// edges (serially — a module's accumulated runtime-set feeds the per-edge
// join key below, so this can't race with it), then joins edge effects per
// module. The join phase is parallelized per module within a round (a
// module's own edge contributions don't depend on another module processed
// in the same round seeing this round's changes — that's exactly what
// makes it a fixed point rather than a single pass) with a serial barrier
// between rounds, per spec.md §5.
func Propagate(store *exports.Store, entries map[string]runtimeset.Set, modules []string, edgesFor EdgeSource) (rounds int, err error) {
	moduleRuntimes := make(map[string]runtimeset.Set, len(modules))
	for moduleID, rt := range entries {
		ei := store.ForModule(moduleID)
		rt.IterSorted(func(name string) {
			ei.Other.JoinUsed(rt.ToKey(), exports.Used)
		})
		moduleRuntimes[moduleID] = moduleRuntimes[moduleID].Union(rt)
	}

	for {
		rounds++

		// Runtime reachability is propagated serially, ahead of the
		// parallel join phase below: a module's accumulated runtime
		// membership must be known before any edge out of it can be
		// joined under the right key, and unioning into moduleRuntimes
		// from multiple goroutines at once would itself be a race.
		runtimeChanged := false
		for _, moduleID := range modules {
			rt := moduleRuntimes[moduleID]
			if rt.IsEmpty() {
				continue
			}
			for _, edge := range edgesFor(moduleID) {
				before := moduleRuntimes[edge.TargetModule]
				after := before.Union(rt)
				if !after.Equals(before) {
					moduleRuntimes[edge.TargetModule] = after
					runtimeChanged = true
				}
			}
		}

		changedFlags := make([]bool, len(modules))

		g := new(errgroup.Group)
		for i, moduleID := range modules {
			i, moduleID := i, moduleID
			importerRuntime := moduleRuntimes[moduleID]
			g.Go(func() error {
				changed := false
				for _, edge := range edgesFor(moduleID) {
					target := store.ForModule(edge.TargetModule)
					runtimeKey := runtimeKeyOf(edge, importerRuntime)
					if edge.Star {
						if target.Other.JoinUsed(runtimeKey, edge.Effect) {
							changed = true
						}
						continue
					}
					for _, name := range edge.Names {
						info, ok := target.Get(name)
						if !ok {
							info = store.Export(edge.TargetModule, name)
						}
						if info.JoinUsed(runtimeKey, edge.Effect) {
							changed = true
						}
					}
				}
				changedFlags[i] = changed
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return rounds, err
		}

		anyChanged := runtimeChanged
		for _, c := range changedFlags {
			if c {
				anyChanged = true
				break
			}
		}
		if !anyChanged {
			return rounds, nil
		}
	}
}

// runtimeKeyOf derives the per-runtime map key an edge's effect should be
// joined under: the importer's own accumulated runtime-set key, so usage
// crossing a reexport hop lands in the same per-runtime bucket the seed
// step uses (spec.md §4.4's per-runtime usage lattice). A module reached by
// no entry's runtime (importerRuntime empty — can happen transiently before
// its own reachability has propagated) falls back to a single implicit
// "default" bucket rather than losing the mark entirely.
func runtimeKeyOf(edge ReexportEdge, importerRuntime runtimeset.Set) string {
	if importerRuntime.IsEmpty() {
		return "default"
	}
	return importerRuntime.ToKey()
}

// SeedModuleGraphAsync propagates MGM.IsAsync from any module with a
// top-level await (reported by the caller) to every module that
// transitively reaches it via a static ESM connection, since an importer
// of an async module must itself become async (this is the
// "finish-modules — async-ness propagated" step of spec.md §3's
// lifecycle, folded in here because it's driven by the same graph walk
// shape as usage propagation: backward-from-seed, fixed point).
func SeedModuleGraphAsync(g *graph.Graph, initiallyAsync []string) {
	queue := append([]string(nil), initiallyAsync...)
	seen := map[string]bool{}
	for _, id := range initiallyAsync {
		seen[id] = true
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		mgm, ok := g.GetMGMMut(graph.ModuleIdentifier(id))
		if !ok {
			continue
		}
		mgm.IsAsync = true
		for depID := range mgm.Incoming {
			dep, ok := g.GetDependency(depID)
			if !ok {
				continue
			}
			owner := string(dep.OwnerModule)
			if !seen[owner] {
				seen[owner] = true
				queue = append(queue, owner)
			}
		}
	}
}
