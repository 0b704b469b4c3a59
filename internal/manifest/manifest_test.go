package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/config"
	"github.com/bundlecore/bundlecore/internal/diag"
	"github.com/bundlecore/bundlecore/internal/engine"
	"github.com/bundlecore/bundlecore/internal/runtimeset"
	"github.com/bundlecore/bundlecore/internal/splitter"
)

// TestEndToEndPipelineWiresUsageAndExportModes drives a manifest through the
// full Make/FinishModules/Seal/Split/BuildRenderContexts/BuildStats
// lifecycle exactly as cmd/bundlecore's build command does, checking that
// the usage analyzer and export-mode decision tree actually shape the
// compiled output rather than running only in their own unit tests:
//
//   - util.js provides "used" and "dead"; only "used" is ever referenced,
//     so stats must report used_exports == ["used"].
//   - x.js and y.js both provide "shared" and are both star-exported by
//     barrel.js, which declares no "shared" of its own: FinishModules must
//     emit one link-star-conflict warning for "shared".
//   - barrel.js's render context must carry an export-from getter fragment
//     (proof SelectMode/ExportFromFragment actually ran for its star deps).
func TestEndToEndPipelineWiresUsageAndExportModes(t *testing.T) {
	m := &Manifest{
		Modules: []Module{
			{ID: "util.js", ProvidedExports: []string{"used", "dead"}},
			{ID: "x.js", ProvidedExports: []string{"shared", "onlyX"}},
			{ID: "y.js", ProvidedExports: []string{"shared", "onlyY"}},
			{
				ID: "barrel.js",
				Imports: []Import{
					{Request: "./x.js", Target: "x.js", ExportStar: true},
					{Request: "./y.js", Target: "y.js", ExportStar: true},
				},
			},
			{
				ID: "main.js",
				Imports: []Import{
					{Request: "./util.js", Target: "util.js", Ids: []string{"used"}},
					{Request: "./barrel.js", Target: "barrel.js", ExportStar: true},
				},
			},
		},
		Entries: map[string]Entry{
			"main": {Module: "main.js", Runtime: "main"},
		},
	}

	inputs, entryData, seeds := m.ToEngineInputs()

	comp := engine.New(config.Default(), nil)
	comp.Make(inputs)
	comp.FinishModules(inputs)

	entryLog := diag.NewLog()
	byEntryName := splitter.DetermineEntryRuntimes(entryData, entryLog)
	require.False(t, diag.HasErrors(entryLog.Finish()))

	runtimes := make(map[string]runtimeset.Set, len(byEntryName))
	for name, rt := range byEntryName {
		entry, ok := entryData[name]
		if !ok || len(entry.Dependencies) == 0 {
			continue
		}
		runtimes[string(entry.Dependencies[0])] = rt
	}
	for moduleID, set := range seeds {
		runtimes[moduleID] = set
	}

	require.NoError(t, comp.Seal(runtimes))

	cg := comp.Split(entryData, nil)
	ctxs := comp.BuildRenderContexts(cg)

	stats := comp.BuildStats(cg)

	var util *engine.StatsModule
	for i := range stats.Modules {
		if stats.Modules[i].Identifier == "util.js" {
			util = &stats.Modules[i]
		}
	}
	require.NotNil(t, util, "util.js must appear in stats.modules")
	require.Equal(t, []string{"used"}, util.UsedExports, "only the referenced export should be reported used")

	var sawStarConflict bool
	for _, w := range stats.Warnings {
		if w.ModuleIdentifier == "barrel.js" && strings.Contains(w.Message, "shared") {
			sawStarConflict = true
		}
	}
	require.True(t, sawStarConflict, "x.js and y.js both provide \"shared\"; barrel.js must warn about the collision")

	barrelCtx, ok := ctxs["barrel.js"]
	require.True(t, ok, "barrel.js must have a render context")
	var sawExportFrom bool
	for _, frag := range barrelCtx.Finalize() {
		if strings.Contains(frag.Content, "__define_getters__") {
			sawExportFrom = true
		}
	}
	require.True(t, sawExportFrom, "barrel.js's star-reexports must produce an export-from getter fragment")
}
