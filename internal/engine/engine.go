// Package engine wires C1-C8 into the four-phase lifecycle spec.md §3
// describes (make, finish-modules, seal, code-generation), playing the
// role esbuild's internal/linker.Link plays against an already-built
// internal/bundler.Bundle: this package never resolves a request to a
// filesystem path or streams source text itself (spec.md §1, "the make
// phase... is an external collaborator"), it only consumes modules and
// dependencies a caller has already factorized.
package engine

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/bundlecore/bundlecore/internal/config"
	"github.com/bundlecore/bundlecore/internal/deptemplate"
	"github.com/bundlecore/bundlecore/internal/diag"
	"github.com/bundlecore/bundlecore/internal/exports"
	"github.com/bundlecore/bundlecore/internal/graph"
	"github.com/bundlecore/bundlecore/internal/rendercontext"
	"github.com/bundlecore/bundlecore/internal/runtimeset"
	"github.com/bundlecore/bundlecore/internal/splitter"
	"github.com/bundlecore/bundlecore/internal/telemetry"
	"github.com/bundlecore/bundlecore/internal/ukey"
	"github.com/bundlecore/bundlecore/internal/usage"
)

// ModuleInput is everything the make phase needs for one module, already
// resolved by the caller's factory/resolver: the module record itself, its
// own dependency and async-block records, and the (dependency → target)
// resolution map a bundler's factorize step would have produced.
type ModuleInput struct {
	Module       *graph.Module
	Dependencies map[ukey.Dependency]*graph.Dependency
	Resolved     map[ukey.Dependency]graph.ModuleIdentifier
	Blocks       []*graph.AsyncDependenciesBlock

	// ProvidedExportNames seeds provided-exports inference (spec.md §4.4)
	// for statically analyzable modules. Dynamic implies the module's
	// exports object has computed keys (CommonJS `module.exports = x`);
	// when true, ProvidedExportNames is ignored and the catch-all slot is
	// marked Unknown instead.
	ProvidedExportNames []string
	Dynamic             bool

	// HasTopLevelAwait seeds the async-ness propagation pass (spec.md §3
	// "finish-modules — async-ness propagated").
	HasTopLevelAwait bool
}

// Compilation is one build's worth of engine state, carried across
// Make/FinishModules/Seal/CodeGenerate and, for incremental rebuilds,
// across repeated calls via the same Compilation value (mirroring how a
// Graph's base-partial stack and a splitter.State both outlive one call).
type Compilation struct {
	Graph       *graph.Graph
	Exports     *exports.Store
	Config      config.Options
	Diagnostics *diag.Log
	Tracer      *telemetry.Tracer
	Templates   *deptemplate.Registry

	splitState *splitter.State

	// ownLocalNames snapshots each module's own locally-declared export
	// names as of the end of Make, before FinishModules' star-copy fixed
	// point folds in any star targets' names. Both the star-conflict
	// diagnostic and the star export-mode decision tree need "did this
	// module declare this name itself" rather than "does this module's
	// (post-copy) ExportsInfo know this name", so the snapshot has to
	// survive past FinishModules for BuildRenderContexts to reuse it.
	ownLocalNames map[graph.ModuleIdentifier]map[string]bool
}

// New starts a Compilation, optionally stacked on a previous compilation's
// committed graph partials for incremental carry-over (spec.md §4.3). A nil
// tracer disables phase tracing at negligible cost.
func New(cfg config.Options, tracer *telemetry.Tracer, base ...*graph.Partial) *Compilation {
	if tracer == nil {
		tracer = telemetry.New(zerolog.Nop())
	}
	return &Compilation{
		Graph:       graph.New(base...),
		Exports:     exports.NewStore(),
		Config:      cfg,
		Diagnostics: diag.NewLog(),
		Tracer:      tracer,
		Templates:   deptemplate.NewRegistry(),
		splitState:  splitter.NewState(),
	}
}

// Make implements spec.md §3 lifecycle phase (a): modules and their
// dependencies/blocks are added to the graph, then every dependency's
// already-known resolution is recorded (wiring connections via
// Graph.SetResolvedModule), then provided-exports inference runs per
// module. Split into three sub-passes so that a dependency whose owner or
// target module appears later in `inputs` still resolves correctly
// regardless of slice order.
func (c *Compilation) Make(inputs []ModuleInput) {
	c.Tracer.Phase("make", func() {
		for _, in := range inputs {
			c.Graph.AddModule(in.Module)
			for _, b := range in.Blocks {
				c.Graph.AddBlock(b)
			}
			for depID, dep := range in.Dependencies {
				c.Graph.AddDependency(depID, dep)
			}
		}
		for _, in := range inputs {
			for depID, target := range in.Resolved {
				dep, _ := c.Graph.GetDependency(depID)
				isModuleOrContext := dep == nil || !dep.Weak
				c.Graph.SetResolvedModule(depID, in.Module.Identifier, target, nil, isModuleOrContext)
			}
		}
		for _, in := range inputs {
			id := string(in.Module.Identifier)
			if in.Dynamic {
				c.Exports.MarkDynamic(id)
			} else {
				c.Exports.InferStatic(id, in.ProvidedExportNames)
			}
		}
	})
}

// FinishModules implements spec.md §3 lifecycle phase (b): propagates
// async-ness backward from modules with top-level await, then copies
// provided-export state across star-reexport edges to a fixed point (a
// barrel file's own provided-exports can only be known once its target is
// itself resolved, and barrels may chain).
func (c *Compilation) FinishModules(inputs []ModuleInput) {
	c.Tracer.Phase("finish-modules", func() {
		var asyncSeeds []string
		for _, in := range inputs {
			if in.HasTopLevelAwait {
				asyncSeeds = append(asyncSeeds, string(in.Module.Identifier))
			}
		}
		usage.SeedModuleGraphAsync(c.Graph, asyncSeeds)

		modules := c.Graph.AllModuleIdentifiers()

		// Snapshot each module's own locally-declared export names before
		// the star-copy fixed point below runs any CopyProvidedFromStarTarget:
		// at this point Exports has only what Make's InferStatic/MarkDynamic
		// seeded, so Names() is exactly the module's own declarations, the
		// ownLocalNames a star-reexport must not shadow (spec.md §4.4 rule 6).
		ownLocalNames := make(map[graph.ModuleIdentifier]map[string]bool, len(modules))
		for _, id := range modules {
			names := map[string]bool{}
			for _, n := range c.Exports.ForModule(string(id)).Names() {
				names[n] = true
			}
			ownLocalNames[id] = names
		}
		c.ownLocalNames = ownLocalNames

		for round := 0; round < len(modules)+1; round++ {
			changed := false
			for _, id := range modules {
				mgm, ok := c.Graph.GetMGM(id)
				if !ok {
					continue
				}
				for depID := range mgm.Outgoing {
					dep, ok := c.Graph.GetDependency(depID)
					if !ok || dep.ESM == nil || !dep.ESM.IsExportStar {
						continue
					}
					target, ok := c.Graph.ResolvedModuleFor(depID)
					if !ok {
						continue
					}
					before := c.Exports.ForModule(string(id)).ProvidedNames()
					c.Exports.CopyProvidedFromStarTarget(string(id), string(target))
					after := c.Exports.ForModule(string(id)).ProvidedNames()
					if len(after) != len(before) {
						changed = true
					}
				}
			}
			if !changed {
				break
			}
		}

		c.reportStarExportConflicts(modules, ownLocalNames)
	})
}

// reportStarExportConflicts implements spec.md §4.4 "Name collisions across
// star-exports produce a diagnostic" and §8 scenario 4 ("one warning per
// conflicting name"): for every module with two or more `export * from`
// dependencies, warns once per name that at least two of those star targets
// both provide and that the module doesn't shadow with its own declaration.
func (c *Compilation) reportStarExportConflicts(modules []graph.ModuleIdentifier, ownLocalNames map[graph.ModuleIdentifier]map[string]bool) {
	for _, id := range modules {
		mgm, ok := c.Graph.GetMGM(id)
		if !ok {
			continue
		}
		var targets []*exports.ExportsInfo
		for depID := range mgm.Outgoing {
			dep, ok := c.Graph.GetDependency(depID)
			if !ok || dep.ESM == nil || !dep.ESM.IsExportStar {
				continue
			}
			target, ok := c.Graph.ResolvedModuleFor(depID)
			if !ok {
				continue
			}
			targets = append(targets, c.Exports.ForModule(string(target)))
		}
		if len(targets) < 2 {
			continue
		}
		for _, name := range usage.ConflictingStarNames(targets, ownLocalNames[id]) {
			c.Diagnostics.Warnf(diag.CodeLinkStarConflict, string(id),
				"ambiguous re-export of %q: multiple star-exports provide this name", name)
		}
	}
}

// Seal implements spec.md §3 lifecycle phase (c): runs the usage analyzer
// (C6) to a fixed point, seeding every entry's runtime-set as Used on its
// catch-all slot and then following each module's static ESM edges.
func (c *Compilation) Seal(entries map[string]runtimeset.Set) error {
	var err error
	c.Tracer.Phase("seal", func() {
		modules := c.Graph.AllModuleIdentifiers()
		moduleStrs := make([]string, len(modules))
		for i, m := range modules {
			moduleStrs[i] = string(m)
		}
		start := time.Now()
		rounds, propagateErr := usage.Propagate(c.Exports, entries, moduleStrs, c.edgesForModule)
		c.Tracer.FixedPoint("usage-propagation", rounds, time.Since(start))
		err = propagateErr
	})
	return err
}

// edgesForModule implements usage.EdgeSource against this compilation's
// graph: a star-reexport always forwards Used to the target's catch-all
// slot (mirroring how CopyProvidedFromStarTarget treats it on the
// provided-exports side), and a named/default import forwards Used onto
// the specific name it binds. This deliberately doesn't try to distinguish
// OnlyPropertiesUsed from Used for a plain binding reference — that finer
// distinction belongs to whichever caller inspects individual property
// accesses at the reference-replacement step (spec.md §4.5), not to the
// propagation driver itself.
func (c *Compilation) edgesForModule(importer string) []usage.ReexportEdge {
	mgm, ok := c.Graph.GetMGM(graph.ModuleIdentifier(importer))
	if !ok {
		return nil
	}
	var edges []usage.ReexportEdge
	for depID := range mgm.Outgoing {
		dep, ok := c.Graph.GetDependency(depID)
		if !ok || dep.ESM == nil {
			continue
		}
		if conn, ok := c.Graph.ConnectionForDependency(depID); ok && !conn.Active {
			continue
		}
		target, ok := c.Graph.ResolvedModuleFor(depID)
		if !ok {
			continue
		}
		if dep.ESM.IsExportStar {
			edges = append(edges, usage.ReexportEdge{TargetModule: string(target), Star: true, Effect: exports.Used})
			continue
		}
		if len(dep.ESM.Ids) > 0 {
			edges = append(edges, usage.ReexportEdge{TargetModule: string(target), Names: []string{dep.ESM.Ids[0]}, Effect: exports.Used})
		}
	}
	return edges
}

// Split implements spec.md §3 lifecycle phase (d)'s structural half (C7):
// runs the code splitter against this compilation's graph, reusing the
// Compilation's own splitter.State so repeated calls across incremental
// rebuilds keep the module-ordinal allocator, outgoing-edges cache and
// persisted chunk-desc/chunk caches warm. A nil/empty changed set
// invalidates nothing: chunk descs cached by an earlier call are reused,
// and only on a first call, with nothing cached yet, is the split a full
// from-scratch one.
func (c *Compilation) Split(entries map[string]splitter.EntryData, changed map[graph.ModuleIdentifier]bool) *splitter.ChunkGraph {
	var cg *splitter.ChunkGraph
	c.Tracer.Phase("code-generation/split", func() {
		cg = splitter.Resplit(c.Graph, entries, c.Config, c.Diagnostics, c.splitState, changed)
		c.Tracer.ChunkCounts(len(cg.Chunks()), len(cg.Groups()), len(c.Graph.AllModuleIdentifiers()))
	})
	return cg
}

// BuildRenderContexts implements the rest of phase (d) (C8, with C5
// applying into it): for every (chunk, module) membership in the produced
// chunk graph, builds that module's rendercontext.Context on the first
// chunk visited that contains it, with that chunk's runtime key, and
// reuses the same Context for the module's other chunks. The result holds
// one Context per module; a module in chunks of several runtimes gets no
// separate per-runtime Context. For each membership it runs the
// dependency-template registry
// over the module's ESM dependencies so required helpers and import init
// fragments land in the context. A star-reexport or named-reexport
// dependency additionally runs the export-mode decision tree
// (usage.SelectMode → deptemplate.ExportFromFragment) per export name, now
// that Seal has finished the usage fixed point and every ExportInfo this
// decision reads is final.
func (c *Compilation) BuildRenderContexts(cg *splitter.ChunkGraph) map[graph.ModuleIdentifier]*rendercontext.Context {
	out := map[graph.ModuleIdentifier]*rendercontext.Context{}
	for _, chunk := range cg.Chunks() {
		for moduleID := range cg.ModulesOf(chunk.Key) {
			ctx, ok := out[moduleID]
			if !ok {
				ctx = rendercontext.New(string(moduleID), chunk.Runtime.ToKey())
				out[moduleID] = ctx
			}
			mgm, ok := c.Graph.GetMGM(moduleID)
			if !ok {
				continue
			}
			buf := &deptemplate.EditBuffer{}
			for depID := range mgm.Outgoing {
				dep, ok := c.Graph.GetDependency(depID)
				if !ok || dep.Category != graph.CategoryESM || dep.ESM == nil {
					continue
				}
				tag := deptemplate.Tag{Category: dep.Category, Subtype: deptemplate.SubtypeImport}
				c.Templates.Apply(tag, dep, buf, ctx)

				if dep.ESM.IsExportStar || dep.ESM.IsReexport {
					target, ok := c.Graph.ResolvedModuleFor(depID)
					if !ok {
						continue
					}
					c.applyExportFrom(moduleID, dep, target, ctx)
				}
			}
		}
	}
	return out
}

// applyExportFrom runs spec.md §4.4's export-mode decision tree for one
// star or named-reexport dependency and, when it resolves to a mode with
// getters to emit, hands it to deptemplate.ExportFromFragment. The
// ImportUnused input is read from the owner's own ExportInfo for the name
// this reexport provides further up the graph — Seal's usage fixed point
// is what would have joined that state to Used, so an export still sitting
// at Unused here really was never referenced by anything upstream.
func (c *Compilation) applyExportFrom(owner graph.ModuleIdentifier, dep *graph.Dependency, target graph.ModuleIdentifier, ctx *rendercontext.Context) {
	targetExports := c.Exports.ForModule(string(target))
	ownExports := c.Exports.ForModule(string(owner))

	var targetExportsType graph.ExportsType
	if targetModule, ok := c.Graph.GetModule(target); ok {
		targetExportsType = targetModule.ExportsType
	}

	opts := usage.SelectOptions{
		TargetFound:       true,
		TargetExportsType: targetExportsType,
	}

	if dep.ESM.IsExportStar {
		ownLocalNames := c.ownLocalNames[owner]
		star := usage.ComputeStarInfo(targetExports, ownLocalNames)
		opts.Star = &star
		opts.ImportUnused = !exportsInfoUsedAnywhere(ownExports)
	} else {
		name := dep.ESM.Name
		if name == "" && len(dep.ESM.Ids) > 0 {
			name = dep.ESM.Ids[0]
		}
		opts.Name = name
		opts.Ids = dep.ESM.Ids
		if len(dep.ESM.Ids) > 0 {
			if info, ok := targetExports.Get(dep.ESM.Ids[0]); ok {
				opts.TargetExportInfo = info
			}
		}
		if ownInfo, ok := ownExports.Get(name); ok {
			opts.ImportUnused = !ownInfo.UsedByAnyRuntime()
		}
	}

	mode := usage.SelectMode(opts)
	importVar := deptemplate.ImportVarName(dep.ESM.Request)
	deptemplate.ExportFromFragment(string(owner), mode, importVar, ctx)
}

// exportsInfoUsedAnywhere reports whether any export (named or the Other
// catch-all) of a module's exports-info has been marked used by some
// runtime, used to decide whether an entire `export * from` contributes
// nothing downstream and can collapse to ModeUnused.
func exportsInfoUsedAnywhere(ei *exports.ExportsInfo) bool {
	if ei.Other.UsedByAnyRuntime() {
		return true
	}
	for _, name := range ei.Names() {
		if info, ok := ei.Get(name); ok && info.UsedByAnyRuntime() {
			return true
		}
	}
	return false
}
