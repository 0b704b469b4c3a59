package graph

// Category tags the kind of reference a dependency represents.
type Category uint8

const (
	CategoryESM Category = iota
	CategoryCJS
	CategoryAMD
	CategoryURL
	CategoryContext
)

// ExportPresenceMode controls the severity of a linking error when a named
// import can't be matched to a provided export (spec.md §7.2).
type ExportPresenceMode uint8

const (
	PresenceAuto ExportPresenceMode = iota
	PresenceError
	PresenceWarn
	PresenceNone
)

// Range is a byte span in the owning module's source.
type Range struct {
	Start int32
	Len   int32
}

// FactorizeInfo records the outcome of resolving a dependency's request to
// a module, without invalidating the rest of the graph on failure
// (spec.md §7.1): a failed factorization just leaves Err set and the
// dependency's target slot empty.
type FactorizeInfo struct {
	Err string // "" means no error
}

// ESMData holds the fields spec.md §3 says are additional for ESM
// dependencies: request string, nested property path, local binding name,
// export-presence mode and source-order index.
type ESMData struct {
	Request            string
	Ids                []string
	Name               string
	ExportPresenceMode ExportPresenceMode
	SourceOrder        int

	// IsExportStar marks "export * from 'request'" dependencies, which
	// drive the star-reexport path of the usage analyzer (spec.md §4.4).
	IsExportStar bool

	// IsReexport marks a named "export { x as y } from 'request'"
	// dependency, distinguishing it from a plain `import` of the same
	// shape: both carry Ids, but only a reexport feeds the export-mode
	// decision tree (spec.md §4.4) and gets an ExportFromFragment.
	IsReexport bool

	// IsProbablyTypeScriptType supplements the spec (SPEC_FULL.md §E.2):
	// true when the parser couldn't prove this re-exported name denotes a
	// value rather than a type-only re-export.
	IsProbablyTypeScriptType bool
}

// Attributes models `import ... with { ... }` assertion entries as a
// simple ordered key/value list.
type Attributes []Attribute

type Attribute struct {
	Key   string
	Value string
}

// Dependency is the polymorphic record spec.md §3 describes. Dependencies
// describe *how* one module references another; they never hold the
// target module directly — that's the Connection's job.
type Dependency struct {
	Category    Category
	OwnerModule ModuleIdentifier
	Range       Range
	Attributes  Attributes
	Weak        bool
	Factorize   FactorizeInfo

	// ESM is non-nil only for Category == CategoryESM dependencies.
	ESM *ESMData
}

// Clone deep-copies the mutable parts of a Dependency for copy-on-write
// promotion.
func (d *Dependency) Clone() *Dependency {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Attributes = append(Attributes(nil), d.Attributes...)
	if d.ESM != nil {
		esm := *d.ESM
		esm.Ids = append([]string(nil), d.ESM.Ids...)
		cp.ESM = &esm
	}
	return &cp
}
