package engine

import (
	"encoding/json"
	"sort"

	"github.com/bundlecore/bundlecore/internal/diag"
	"github.com/bundlecore/bundlecore/internal/exports"
	"github.com/bundlecore/bundlecore/internal/splitter"
)

// Stats is the JSON-serializable compilation summary spec.md §6 names:
// assets/chunks/modules/errors+warnings/entrypoints. Marshaled with
// encoding/json rather than a third-party codec because no pack repo wires
// an alternate JSON library to a typed-struct serialization slot like this
// one (see DESIGN.md's standard-library justifications).
type Stats struct {
	Errors      []StatsMessage             `json:"errors"`
	Warnings    []StatsMessage             `json:"warnings"`
	Modules     []StatsModule              `json:"modules"`
	Chunks      []StatsChunk               `json:"chunks"`
	Entrypoints map[string]StatsEntrypoint `json:"entrypoints"`
}

// StatsMessage is one diag.Msg flattened to the stats-surface shape.
type StatsMessage struct {
	Message          string `json:"message"`
	ModuleIdentifier string `json:"moduleIdentifier,omitempty"`
}

// StatsModule carries a module's provided/used export summary. UsedExports
// mirrors webpack's stats shape: `true` (everything used, no per-name
// detail tracked), a `[]string` of specifically-used names, or `false`
// (confirmed unused everywhere).
type StatsModule struct {
	Identifier      string      `json:"identifier"`
	ProvidedExports []string    `json:"providedExports,omitempty"`
	UsedExports     interface{} `json:"usedExports"`
}

type StatsChunk struct {
	ID      string   `json:"id"`
	Names   []string `json:"names"`
	Modules []string `json:"modules"`
	Runtime []string `json:"runtime"`
	Initial bool     `json:"initial"`
}

type StatsEntrypoint struct {
	Chunks []string `json:"chunks"`
}

// BuildStats assembles the stats surface from the finished compilation:
// diagnostics (via diag.Log.Finish, which also sorts them), every module
// in the graph with its exports-info summary, and the materialized
// chunk graph's chunks/entrypoints.
func (c *Compilation) BuildStats(cg *splitter.ChunkGraph) Stats {
	msgs := c.Diagnostics.Finish()
	stats := Stats{Entrypoints: map[string]StatsEntrypoint{}}
	for _, m := range msgs {
		sm := StatsMessage{Message: m.Message, ModuleIdentifier: m.ModuleIdentifier}
		if m.Kind == diag.Warning {
			stats.Warnings = append(stats.Warnings, sm)
		} else {
			stats.Errors = append(stats.Errors, sm)
		}
	}

	for _, id := range c.Graph.AllModuleIdentifiers() {
		ei := c.Exports.ForModule(string(id))
		sm := StatsModule{Identifier: string(id), ProvidedExports: ei.ProvidedNames()}
		sm.UsedExports = usedExportsSummary(ei)
		stats.Modules = append(stats.Modules, sm)
	}

	for _, chunk := range cg.Chunks() {
		sc := StatsChunk{ID: chunk.ID, Runtime: chunk.Runtime.Names()}
		for m := range cg.ModulesOf(chunk.Key) {
			sc.Modules = append(sc.Modules, string(m))
		}
		sort.Strings(sc.Modules)
		stats.Chunks = append(stats.Chunks, sc)
	}
	sort.Slice(stats.Chunks, func(i, j int) bool { return stats.Chunks[i].ID < stats.Chunks[j].ID })

	for _, group := range cg.Groups() {
		if group.Kind != splitter.GroupEntrypoint {
			continue
		}
		var chunkIDs []string
		for _, ck := range group.Chunks {
			if c, ok := cg.Chunk(ck); ok {
				chunkIDs = append(chunkIDs, c.ID)
			}
		}
		stats.Entrypoints[group.Name] = StatsEntrypoint{Chunks: chunkIDs}
	}

	return stats
}

// usedExportsSummary reports which names in a module's exports-info usage
// propagation (internal/usage.Propagate) actually marked used, per
// ExportInfo.UsedByAnyRuntime rather than the merely-provided name set: an export
// that converged on Unused everywhere is reported as unused even though
// it's still a provided name (spec.md §6, §8 scenario 4's "used_exports
// … equals [\"a\"]" expectation).
func usedExportsSummary(ei *exports.ExportsInfo) interface{} {
	var used []string
	for _, name := range ei.Names() {
		info, ok := ei.Get(name)
		if !ok {
			continue
		}
		if info.UsedByAnyRuntime() {
			used = append(used, name)
		}
	}
	if len(used) == 0 {
		if ei.Other.UsedByAnyRuntime() {
			return true
		}
		return false
	}
	return used
}

// ToJSON marshals the stats surface with indentation suitable for a CLI's
// `--json` output mode.
func (s Stats) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
