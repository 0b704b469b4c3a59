package deptemplate

import (
	"fmt"

	"github.com/bundlecore/bundlecore/internal/graph"
	"github.com/bundlecore/bundlecore/internal/rendercontext"
	"github.com/bundlecore/bundlecore/internal/usage"
)

// ImportFragmentTemplate implements the plain-require form of spec.md §4.5
// "Import fragment": it emits `var <v> = __require__(<id>)` once per
// (request, runtime key). It always emits that plain form: it adds no
// `__compat_default__` cache var for Dynamic-export targets and no
// async-module gate for async targets. Fragment merging happens inside
// rendercontext.Context.Finalize via the fragment Key this template
// assigns (`import:<request>:<runtime>`).
func ImportFragmentTemplate(dep *graph.Dependency, buf *EditBuffer, ctx *rendercontext.Context) {
	if dep.ESM == nil {
		return
	}
	importVar := ImportVarName(dep.ESM.Request)
	key := fmt.Sprintf("import:%s:%s", dep.ESM.Request, ctx.Runtime)

	content := fmt.Sprintf("var %s = __require__(%q);", importVar, dep.ESM.Request)
	ctx.RequireHelper(rendercontext.HelperRequire)
	ctx.AddFragment(rendercontext.InitFragment{
		Stage:   rendercontext.StageESMImports,
		Order:   dep.ESM.SourceOrder,
		Key:     key,
		Content: content,
	})
}

// DeferredImportFragmentTemplate implements the `import defer` branch of
// spec.md §4.5's import fragment: a getter-backed deferred-namespace
// object rather than an eager require, emitted once per target module
// (spec.md §8 scenario 5 "Deferred import").
func DeferredImportFragmentTemplate(dep *graph.Dependency, buf *EditBuffer, ctx *rendercontext.Context) {
	if dep.ESM == nil {
		return
	}
	cacheVar := ImportVarName(dep.ESM.Request) + "_deferred_namespace_cache"
	key := fmt.Sprintf("ESMDeferImportNamespaceObjectFragment(%s)", dep.ESM.Request)
	content := fmt.Sprintf("var %s = /* deferred */ { get a(){ return __require__(%q); } };", cacheVar, dep.ESM.Request)
	ctx.RequireHelper(rendercontext.HelperMakeDeferredNamespaceObject)
	ctx.AddFragment(rendercontext.InitFragment{
		Stage:   rendercontext.StageESMImports,
		Order:   dep.ESM.SourceOrder,
		Key:     key,
		Content: content,
	})
}

// ExportFromFragment implements spec.md §4.5 "Export-from fragment":
// emits `__define_getters__(exports, { <name>: () => <expr>, ... })`,
// following the decision tree in §4.4 for each item. Getters belonging to
// the same owner module are grouped into a single call (one fragment key
// per owner) for size, matching the teacher's
// `createExportsForFile`/`generateCodeForFileInChunkJS` grouping of
// `__export` calls.
func ExportFromFragment(ownerModule string, mode usage.Mode, importVar string, ctx *rendercontext.Context) {
	if len(mode.Items) == 0 {
		return
	}
	ctx.RequireHelper(rendercontext.HelperDefineGetters)
	key := "export-from:" + ownerModule
	getters := ""
	for _, item := range mode.Items {
		expr := referenceExpr(importVar, item.Ids, false)
		getters += fmt.Sprintf("%s: () => %s, ", item.Name, expr)
	}
	content := fmt.Sprintf("__define_getters__(exports, { %s});", getters)
	ctx.AddFragment(rendercontext.InitFragment{
		Stage:   rendercontext.StageESMExports,
		Key:     key,
		Content: content,
	})
}

// ReferenceReplacement implements spec.md §4.5 "Reference replacement": at
// an import-reference range, substitutes either an inlined constant, a
// plain property read, a call-site-safe `(0, ...)` wrapper, a default-
// import accessor, or a fake-namespace accessor, consulting the export's
// used_name at emission time so usage decisions made after parse still
// rename correctly.
func ReferenceReplacement(dep *graph.Dependency, buf *EditBuffer, importVar string, usedName string, inlinedValue interface{}, isDynamicDefault bool, isCallSite bool, isFakeNamespace bool) {
	if inlinedValue != nil {
		buf.Add(dep.Range, fmt.Sprintf("%v", inlinedValue))
		return
	}
	if isDynamicDefault {
		buf.Add(dep.Range, importVar+"_default.a")
		return
	}
	if isFakeNamespace {
		buf.Add(dep.Range, importVar+"_ns")
		return
	}
	access := fmt.Sprintf("%s[%q]", importVar, usedName)
	if isCallSite {
		access = "(0, " + access + ")"
	}
	buf.Add(dep.Range, access)
}

func referenceExpr(importVar string, ids []string, isCallSite bool) string {
	if len(ids) == 0 {
		return importVar
	}
	expr := fmt.Sprintf("%s[%q]", importVar, ids[0])
	for _, id := range ids[1:] {
		expr += fmt.Sprintf("[%q]", id)
	}
	if isCallSite {
		return "(0, " + expr + ")"
	}
	return expr
}

// ImportVarName derives a deterministic, source-stable local variable name
// from a module request, matching the teacher's convention of deriving
// import identifiers from the request string rather than allocating an
// opaque counter-based name (which would make render output order-
// sensitive across otherwise-identical rebuilds, violating spec.md §8 P6).
// Exported so callers outside this package (the engine's render-context
// builder) can derive the same variable name an ImportFragmentTemplate
// call already emitted, without re-deriving their own convention.
func ImportVarName(request string) string {
	out := make([]byte, 0, len(request)+6)
	out = append(out, "import_"...)
	for i := 0; i < len(request); i++ {
		c := request[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
