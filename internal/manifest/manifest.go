// Package manifest is cmd/bundlecore's input format: a YAML description of
// an already-factorized module graph (modules, their static imports, their
// dynamic-import blocks, and entry points), loaded via gopkg.in/yaml.v3 and
// converted into the engine.ModuleInput/splitter.EntryData values the
// compilation phases consume. The engine itself never parses this format —
// per spec.md §1 that job belongs to an external collaborator, and this
// package is that collaborator's CLI-facing stand-in, not part of the core.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bundlecore/bundlecore/internal/diag"
	"github.com/bundlecore/bundlecore/internal/engine"
	"github.com/bundlecore/bundlecore/internal/graph"
	"github.com/bundlecore/bundlecore/internal/runtimeset"
	"github.com/bundlecore/bundlecore/internal/splitter"
	"github.com/bundlecore/bundlecore/internal/ukey"
)

// Import is one static ESM reference from a module or block to another
// module.
type Import struct {
	Request    string   `yaml:"request"`
	Target     string   `yaml:"target"`
	Ids        []string `yaml:"ids"`
	ExportStar bool     `yaml:"exportStar"`

	// ExportName is set for a named "export { x as y } from" reference;
	// empty for a plain import. Drives ESMData.IsReexport below.
	ExportName string `yaml:"exportName"`
}

// Block is a dynamic-import boundary owned by a module, named so repeated
// dynamic imports of the same chunk merge into one chunk root (spec.md
// §4.6 Stage 2).
type Block struct {
	Name    string   `yaml:"name"`
	Imports []Import `yaml:"imports"`
}

// Module is one factorized module and everything it statically reaches.
type Module struct {
	ID               string   `yaml:"id"`
	ProvidedExports  []string `yaml:"providedExports"`
	Dynamic          bool     `yaml:"dynamic"`
	HasTopLevelAwait bool     `yaml:"hasTopLevelAwait"`
	Imports          []Import `yaml:"imports"`
	Blocks           []Block  `yaml:"blocks"`
}

// Entry is one named entry point (spec.md §4.6 Stage 1).
type Entry struct {
	Module   string   `yaml:"module"`
	Runtime  string   `yaml:"runtime"`
	DependOn []string `yaml:"dependOn"`
}

// Manifest is the top-level document shape.
type Manifest struct {
	Modules []Module         `yaml:"modules"`
	Entries map[string]Entry `yaml:"entries"`
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// depAllocator hands out dependency keys while building ModuleInputs. It is
// scoped to one ToEngineInputs call, never shared across manifests, so a
// fresh allocator per call is correct even though ukey.Counter itself has
// no recycling.
type depAllocator struct {
	counter ukey.Counter[ukey.DependencyKind]
}

func newImportDependency(owner graph.ModuleIdentifier, imp Import) (*graph.Dependency, graph.ModuleIdentifier) {
	return &graph.Dependency{
		Category:    graph.CategoryESM,
		OwnerModule: owner,
		ESM: &graph.ESMData{
			Request:      imp.Request,
			Ids:          imp.Ids,
			Name:         imp.ExportName,
			IsExportStar: imp.ExportStar,
			IsReexport:   imp.ExportStar || imp.ExportName != "",
		},
	}, graph.ModuleIdentifier(imp.Target)
}

// ToEngineInputs converts the manifest into the values Compilation.Make/
// FinishModules/Seal/Split consume: per-module engine.ModuleInput records,
// per-entry splitter.EntryData, and per-entry seed runtime sets for usage
// propagation (each entry module is seeded with its entry's runtime set from
// splitter.DetermineEntryRuntimes: its own name, or its runtime option, or
// the union across its depend_on ancestors per spec.md §4.2's merging rule.
// That call's diagnostics are dropped here; the CLI reports them from its
// own DetermineEntryRuntimes call.)
func (m *Manifest) ToEngineInputs() ([]engine.ModuleInput, map[string]splitter.EntryData, map[string]runtimeset.Set) {
	var alloc depAllocator

	inputs := make([]engine.ModuleInput, 0, len(m.Modules))
	for _, mod := range m.Modules {
		id := graph.ModuleIdentifier(mod.ID)
		in := engine.ModuleInput{
			Module: &graph.Module{
				Identifier:  id,
				Kind:        graph.KindNormal,
				ExportsType: graph.ExportsNamespace,
			},
			Dependencies:        map[ukey.Dependency]*graph.Dependency{},
			Resolved:            map[ukey.Dependency]graph.ModuleIdentifier{},
			ProvidedExportNames: mod.ProvidedExports,
			Dynamic:             mod.Dynamic,
			HasTopLevelAwait:    mod.HasTopLevelAwait,
		}

		for _, imp := range mod.Imports {
			depID := alloc.counter.Next()
			dep, target := newImportDependency(id, imp)
			in.Dependencies[depID] = dep
			in.Resolved[depID] = target
			in.Module.DependencyIDs = append(in.Module.DependencyIDs, depID)
		}

		for bi, blk := range mod.Blocks {
			blockID := graph.BlockID{Owner: id, Index: bi}
			b := &graph.AsyncDependenciesBlock{
				ID:      blockID,
				Options: graph.GroupOptions{Name: blk.Name},
			}
			for _, imp := range blk.Imports {
				depID := alloc.counter.Next()
				dep, target := newImportDependency(id, imp)
				in.Dependencies[depID] = dep
				in.Resolved[depID] = target
				b.DependencyIDs = append(b.DependencyIDs, depID)
			}
			in.Blocks = append(in.Blocks, b)
			in.Module.BlockIDs = append(in.Module.BlockIDs, blockID)
		}

		inputs = append(inputs, in)
	}

	entries := make(map[string]splitter.EntryData, len(m.Entries))
	seeds := make(map[string]runtimeset.Set, len(m.Entries))
	for name, e := range m.Entries {
		entries[name] = splitter.EntryData{
			Name:         name,
			Dependencies: []graph.ModuleIdentifier{graph.ModuleIdentifier(e.Module)},
			Options: splitter.EntryOptions{
				DependOn: e.DependOn,
				Runtime:  e.Runtime,
				Initial:  true,
			},
		}
	}
	entryLog := diag.NewLog()
	entryRuntimes := splitter.DetermineEntryRuntimes(entries, entryLog)
	entryLog.Finish()
	for name, e := range m.Entries {
		seeds[e.Module] = entryRuntimes[name]
	}

	return inputs, entries, seeds
}
