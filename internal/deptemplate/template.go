// Package deptemplate implements C5: an extensible registry from
// dependency-type tag to a code-transform that rewrites a module's source
// at render time. The core consumes templates and ships the ESM
// import/export family described in spec.md §4.5; it does not define
// concrete templates for other categories (CJS, AMD, URL) beyond the tag
// shape, exactly as spec.md §2 describes C5's scope. Grounded on esbuild's
// internal/linker.go:convertStmtsForChunk and generateCodeForFileInChunkJS
// (the teacher inlines this as one big switch over ast.ImportRecord/
// statement kind; here it's factored into an explicit registry because
// the spec calls for an *extensible* registry more literally than the
// teacher's monolithic switch).
package deptemplate

import (
	"github.com/bundlecore/bundlecore/internal/graph"
	"github.com/bundlecore/bundlecore/internal/rendercontext"
)

// Subtype distinguishes dependency shapes within one Category — spec.md
// §4.5 keys templates by "(category, subtype)".
type Subtype string

const (
	SubtypeImport          Subtype = "import"
	SubtypeExportFrom      Subtype = "export-from"
	SubtypeReference       Subtype = "reference"
	SubtypeDeferredImport  Subtype = "deferred-import"
)

// Tag is the registry key.
type Tag struct {
	Category graph.Category
	Subtype  Subtype
}

// SourceEdit is one rewrite of a byte range in the owning module's source,
// the unit the owning "source edit buffer" accumulates (spec.md §4.5
// Apply signature: "(dep, source_edit_buffer, render_ctx) → void").
type SourceEdit struct {
	Range       graph.Range
	Replacement string
}

// EditBuffer accumulates SourceEdits for one module's render pass. It's
// deliberately a flat accumulator rather than an in-place string editor:
// range-based edits must be applied back-to-front by an external printer
// once every dependency touching the module has contributed, so the core
// only needs to collect them in whatever order templates run.
type EditBuffer struct {
	Edits []SourceEdit
}

func (b *EditBuffer) Add(r graph.Range, replacement string) {
	b.Edits = append(b.Edits, SourceEdit{Range: r, Replacement: replacement})
}

// Template is a code-transform keyed by (category, subtype): it reads a
// dependency and writes into the edit buffer and render context.
type Template func(dep *graph.Dependency, buf *EditBuffer, ctx *rendercontext.Context)

// Registry is the extensible (category, subtype) → Template map spec.md
// §2 C5 describes.
type Registry struct {
	templates map[Tag]Template
}

// NewRegistry returns a Registry pre-populated with the two ESM import
// templates (SubtypeImport, SubtypeDeferredImport; spec.md §4.5).
// ExportFromFragment and ReferenceReplacement are called directly and are
// not registered. Callers may Register additional (category,
// subtype) templates for CJS/AMD/URL dependencies, which this core does
// not define itself.
func NewRegistry() *Registry {
	r := &Registry{templates: map[Tag]Template{}}
	r.Register(Tag{Category: graph.CategoryESM, Subtype: SubtypeImport}, ImportFragmentTemplate)
	r.Register(Tag{Category: graph.CategoryESM, Subtype: SubtypeDeferredImport}, DeferredImportFragmentTemplate)
	return r
}

func (r *Registry) Register(tag Tag, tmpl Template) {
	r.templates[tag] = tmpl
}

func (r *Registry) Lookup(tag Tag) (Template, bool) {
	t, ok := r.templates[tag]
	return t, ok
}

// Apply runs the template registered for dep's (category, subtype), doing
// nothing if none is registered (an unregistered tag is not an error —
// spec.md places no requirement that every category have a core-provided
// template).
func (r *Registry) Apply(tag Tag, dep *graph.Dependency, buf *EditBuffer, ctx *rendercontext.Context) {
	if tmpl, ok := r.templates[tag]; ok {
		tmpl(dep, buf, ctx)
	}
}
