package exports

import "github.com/bundlecore/bundlecore/internal/ukey"

// UsedNameKind distinguishes the three states spec.md §3 describes for
// ExportInfo.used_name: same as the original name, renamed to something
// explicit by mangling, or elided entirely because nothing uses it.
type UsedNameKind uint8

const (
	UsedNameSameAsOriginal UsedNameKind = iota
	UsedNameExplicit
	UsedNameElided
)

type UsedName struct {
	Kind UsedNameKind
	Name string // only meaningful when Kind == UsedNameExplicit
}

// ExportInfo is one named export's tree-shaking and mangling metadata
// (spec.md §3 "ExportInfo").
type ExportInfo struct {
	Key  ukey.ExportInfo
	Name string

	UsedName UsedName
	Provided Provided

	// used is keyed by a runtime-set's ToKey() so that usage can differ
	// per runtime (e.g. an export used only on the server runtime).
	used map[string]UsageState

	CanMangleProvide bool
	CanMangleUse     bool

	Inlinable Inlinable

	// Nested is set when this export is itself a re-exported namespace
	// object, pointing at that namespace's own exports-info.
	Nested *ExportsInfo

	Terminal *TerminalBinding
}

func newExportInfo(key ukey.ExportInfo, name string) *ExportInfo {
	return &ExportInfo{
		Key:              key,
		Name:             name,
		Provided:         ProvidedUnknown,
		CanMangleProvide: true,
		CanMangleUse:     true,
		Inlinable:        Inlinable{Kind: NoByUse},
		used:             map[string]UsageState{},
	}
}

// UsedFor returns the export's usage state for the given runtime key,
// defaulting to NoInfo for a runtime never seen.
func (e *ExportInfo) UsedFor(runtimeKey string) UsageState {
	if e == nil {
		return Unused
	}
	if s, ok := e.used[runtimeKey]; ok {
		return s
	}
	return NoInfo
}

// JoinUsed raises this export's usage for runtimeKey to the join of its
// current value and incoming, reporting whether the value changed (used by
// the fixed-point driver to detect convergence).
func (e *ExportInfo) JoinUsed(runtimeKey string, incoming UsageState) bool {
	current := e.UsedFor(runtimeKey)
	joined := JoinUsage(current, incoming)
	if joined == current {
		return false
	}
	e.used[runtimeKey] = joined
	return true
}

// IsUnusedEverywhere reports whether no runtime has ever marked this
// export above Unused — P4 in spec.md §7.1's invariant list.
func (e *ExportInfo) IsUnusedEverywhere() bool {
	for _, s := range e.used {
		if s > Unused {
			return false
		}
	}
	return true
}

// UsedByAnyRuntime reports whether at least one runtime's usage state has
// reached OnlyPropertiesUsed or Used, the threshold the stats surface's
// used_exports field (spec.md §6, §8 scenario 4) reports as "used".
func (e *ExportInfo) UsedByAnyRuntime() bool {
	if e == nil {
		return false
	}
	for _, s := range e.used {
		if s >= OnlyPropertiesUsed {
			return true
		}
	}
	return false
}

func (e *ExportInfo) clone() *ExportInfo {
	cp := *e
	cp.used = make(map[string]UsageState, len(e.used))
	for k, v := range e.used {
		cp.used[k] = v
	}
	if e.Terminal != nil {
		t := *e.Terminal
		cp.Terminal = &t
	}
	// Nested is intentionally shared: a namespace's own exports-info is
	// identified by its module, not duplicated per reexporting module.
	return &cp
}

// ExportsInfo is the per-module store: an ordered mapping from export name
// to ExportInfo, plus the two catch-all slots spec.md §3 names.
type ExportsInfo struct {
	Key              ukey.ExportsInfo
	ModuleIdentifier string

	names   []string
	exports map[string]*ExportInfo

	Other           *ExportInfo
	SideEffectsOnly *ExportInfo
}

func newExportsInfo(key ukey.ExportsInfo, moduleID string, infoCounter *ukey.Counter[ukey.ExportInfoKind]) *ExportsInfo {
	return &ExportsInfo{
		Key:              key,
		ModuleIdentifier: moduleID,
		exports:          map[string]*ExportInfo{},
		Other:            newExportInfo(infoCounter.Next(), ""),
		SideEffectsOnly:  newExportInfo(infoCounter.Next(), ""),
	}
}

// Names returns export names in insertion order (spec.md §5 "Named-export
// iteration order is insertion order, preserved across partials").
func (ei *ExportsInfo) Names() []string {
	out := make([]string, len(ei.names))
	copy(out, ei.names)
	return out
}

func (ei *ExportsInfo) Get(name string) (*ExportInfo, bool) {
	info, ok := ei.exports[name]
	return info, ok
}

func (ei *ExportsInfo) getOrCreate(name string, infoCounter *ukey.Counter[ukey.ExportInfoKind]) *ExportInfo {
	if info, ok := ei.exports[name]; ok {
		return info
	}
	info := newExportInfo(infoCounter.Next(), name)
	ei.exports[name] = info
	ei.names = append(ei.names, name)
	return info
}

func (ei *ExportsInfo) clone() *ExportsInfo {
	cp := *ei
	cp.names = append([]string(nil), ei.names...)
	cp.exports = make(map[string]*ExportInfo, len(ei.exports))
	for k, v := range ei.exports {
		cp.exports[k] = v.clone()
	}
	cp.Other = ei.Other.clone()
	cp.SideEffectsOnly = ei.SideEffectsOnly.clone()
	return &cp
}

// Store owns the ukey allocation for exports-info and export-info records
// and the layered copy-on-write map over ExportsInfo, mirroring the graph
// package's partial scheme at a smaller scale (one record per module,
// mutated far less often than the module graph itself).
type Store struct {
	infoCounter   ukey.Counter[ukey.ExportsInfoKind]
	entryCounter  ukey.Counter[ukey.ExportInfoKind]
	byModule      map[string]*ExportsInfo
	byKey         map[ukey.ExportsInfo]*ExportsInfo
}

func NewStore() *Store {
	return &Store{
		byModule: map[string]*ExportsInfo{},
		byKey:    map[ukey.ExportsInfo]*ExportsInfo{},
	}
}

// ForModule returns the module's exports-info, creating it (with a freshly
// allocated ukey) on first access.
func (s *Store) ForModule(moduleID string) *ExportsInfo {
	if ei, ok := s.byModule[moduleID]; ok {
		return ei
	}
	ei := newExportsInfo(s.infoCounter.Next(), moduleID, &s.entryCounter)
	s.byModule[moduleID] = ei
	s.byKey[ei.Key] = ei
	return ei
}

func (s *Store) ByKey(key ukey.ExportsInfo) (*ExportsInfo, bool) {
	ei, ok := s.byKey[key]
	return ei, ok
}

// Export returns (creating if necessary) the ExportInfo for a name within
// a module's exports-info.
func (s *Store) Export(moduleID, name string) *ExportInfo {
	ei := s.ForModule(moduleID)
	return ei.getOrCreate(name, &s.entryCounter)
}
