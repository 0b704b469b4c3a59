package deptemplate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/graph"
	"github.com/bundlecore/bundlecore/internal/rendercontext"
)

func TestImportFragmentTemplateEmitsOncePerTarget(t *testing.T) {
	ctx := rendercontext.New("a.js", "main")
	dep := &graph.Dependency{Category: graph.CategoryESM, ESM: &graph.ESMData{Request: "./b.js"}}

	ImportFragmentTemplate(dep, &EditBuffer{}, ctx)
	ImportFragmentTemplate(dep, &EditBuffer{}, ctx)

	fragments := ctx.Finalize()
	require.Len(t, fragments, 1, "same (module, runtime) import must collapse to one fragment")
	require.Contains(t, fragments[0].Content, "__require__(\"./b.js\")")
	require.NotZero(t, ctx.Helpers()&rendercontext.HelperRequire)
}

func TestRegistryAppliesRegisteredTemplate(t *testing.T) {
	reg := NewRegistry()
	ctx := rendercontext.New("a.js", "main")
	buf := &EditBuffer{}
	dep := &graph.Dependency{Category: graph.CategoryESM, ESM: &graph.ESMData{Request: "./x.js"}}

	reg.Apply(Tag{Category: graph.CategoryESM, Subtype: SubtypeImport}, dep, buf, ctx)
	require.Len(t, ctx.Finalize(), 1)
}

func TestReferenceReplacementPrefersInlinedValue(t *testing.T) {
	buf := &EditBuffer{}
	dep := &graph.Dependency{Range: graph.Range{Start: 10, Len: 3}}
	ReferenceReplacement(dep, buf, "import_x", "foo", 42, false, false, false)
	require.Equal(t, "42", buf.Edits[0].Replacement)
}
