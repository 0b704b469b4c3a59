package graph

import "github.com/bundlecore/bundlecore/internal/ukey"

// Kind tags a Module's variant. Per the design notes, deep trait/interface
// hierarchies are flattened to a single tag enum per family plus a small
// explicit capability struct resolved by dispatch on the tag, rather than
// modeled as an interface hierarchy.
type Kind uint8

const (
	KindNormal Kind = iota
	KindConcatenated
	KindExternal
	KindContext
	KindRuntime
	KindConsumeShared
	KindProvideShared
)

// ExportsType describes the shape of a module's exports for the purposes
// of the default-import/namespace-import decision tree in §4.4.
type ExportsType uint8

const (
	ExportsDynamic ExportsType = iota
	ExportsDefaultOnly
	ExportsDefaultWithNamed
	ExportsNamespace
)

// SideEffectsKind mirrors the teacher's graph.SideEffectsKind: the default
// is conservative (assume side effects), with successively more specific
// reasons a module was determined to have none.
type SideEffectsKind uint8

const (
	HasSideEffects SideEffectsKind = iota
	NoSideEffectsDeclared
	NoSideEffectsEmptySource
	NoSideEffectsPureData
	NoSideEffectsPureDataFromPlugin
)

// BuildInfo and BuildMeta are opaque, immutable-after-add payloads supplied
// by the external module factory. The core never interprets their
// contents, only stores and returns them.
type BuildInfo map[string]interface{}
type BuildMeta map[string]interface{}

// ConcatenatedInfo is present only on KindConcatenated modules: the set of
// inner modules that were merged into this one, in source order.
type ConcatenatedInfo struct {
	InnerModules []ModuleIdentifier
}

// Module is the polymorphic record spec.md §3 describes: capability set
// {source_types, size(type), build_info, build_meta, get_dependencies,
// get_blocks, readable_identifier, source, name_for_condition, module_type,
// layer, get_exports_type}. "code_generation(render_ctx)" is deliberately
// absent here: it's invoked by the external emitter against the render
// context this core's C8 produces (spec.md §2 data flow), not implemented
// by the core itself.
type Module struct {
	Identifier ModuleIdentifier
	Kind       Kind

	SourceTypes []string
	Sizes       map[string]float64

	BuildInfo BuildInfo
	BuildMeta BuildMeta

	ReadableIdentifier string
	NameForCondition   string
	ModuleType         string
	Layer              string

	ExportsType ExportsType
	SideEffects SideEffectsKind

	// Source is the module's rendered-ready source text, if it has one
	// (external/context modules typically don't).
	Source string

	// DependencyIDs/BlockIDs are this module's *own* static dependencies
	// and async blocks, as reported by the factory that produced it
	// (get_dependencies()/get_blocks()).
	DependencyIDs []ukey.Dependency
	BlockIDs      []BlockID

	// Concat is non-nil only for KindConcatenated modules.
	Concat *ConcatenatedInfo

	// PairedSourceIndex supplements the spec (SPEC_FULL.md §E.4): when a
	// CSS file is imported from JS, a synthetic JS stub module is created
	// for it and vice versa; this links the pair. Only callers set it:
	// neither the splitter nor the render-context builder reads it.
	PairedSourceIndex ModuleIdentifier
}

// Clone returns a deep-enough copy for copy-on-write promotion into an
// active partial: mutable slices/maps are copied, everything else (the
// scalar fields) copies by value already.
func (m *Module) Clone() *Module {
	if m == nil {
		return nil
	}
	cp := *m
	cp.SourceTypes = append([]string(nil), m.SourceTypes...)
	if m.Sizes != nil {
		cp.Sizes = make(map[string]float64, len(m.Sizes))
		for k, v := range m.Sizes {
			cp.Sizes[k] = v
		}
	}
	if m.BuildInfo != nil {
		cp.BuildInfo = make(BuildInfo, len(m.BuildInfo))
		for k, v := range m.BuildInfo {
			cp.BuildInfo[k] = v
		}
	}
	if m.BuildMeta != nil {
		cp.BuildMeta = make(BuildMeta, len(m.BuildMeta))
		for k, v := range m.BuildMeta {
			cp.BuildMeta[k] = v
		}
	}
	cp.DependencyIDs = append([]ukey.Dependency(nil), m.DependencyIDs...)
	cp.BlockIDs = append([]BlockID(nil), m.BlockIDs...)
	if m.Concat != nil {
		concat := *m.Concat
		concat.InnerModules = append([]ModuleIdentifier(nil), m.Concat.InnerModules...)
		cp.Concat = &concat
	}
	return &cp
}
