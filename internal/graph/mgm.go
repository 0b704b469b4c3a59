package graph

import "github.com/bundlecore/bundlecore/internal/ukey"

// UnsetDepth is the sentinel depth a freshly-created MGM starts with,
// distinguishing "never reached by the breadth-first traversal" from a
// genuine depth of zero (an entry module).
const UnsetDepth = ^uint32(0)

// MGM is the per-module graph-side metadata spec.md §3 describes: owning
// module id, incoming/outgoing dependency-id sets, pre/post-order
// traversal indices, depth, async-ness, optimization bailouts, a pointer
// to this module's exports-info, its issuer, and the flattened legacy
// dependency ordering.
type MGM struct {
	Key              ukey.ModuleGraphModule
	ModuleIdentifier ModuleIdentifier

	Incoming map[ukey.Dependency]bool
	Outgoing map[ukey.Dependency]bool

	PreOrderIndex  int32
	PostOrderIndex int32
	Depth          uint32

	IsAsync              bool
	OptimizationBailout  []string
	ExportsInfo          ukey.ExportsInfo
	Issuer               ModuleIdentifier

	// DeprecatedAllDependencies is a flat, insertion-ordered list used only
	// for legacy ordering concerns (matching the teacher's
	// "__deprecated_all_dependencies"); new code should prefer Outgoing.
	DeprecatedAllDependencies []ukey.Dependency

	// WrapKind supplements the spec (SPEC_FULL.md §E.1): whether this
	// module's rendered body needs a CommonJS- or ESM-style lazy wrapper.
	WrapKind WrapKind
}

// WrapKind mirrors the teacher's graph.WrapKind.
type WrapKind uint8

const (
	WrapNone WrapKind = iota
	WrapCJS
	WrapESM
)

func newMGM(key ukey.ModuleGraphModule, id ModuleIdentifier) *MGM {
	return &MGM{
		Key:              key,
		ModuleIdentifier: id,
		Incoming:         map[ukey.Dependency]bool{},
		Outgoing:         map[ukey.Dependency]bool{},
		PreOrderIndex:    -1,
		PostOrderIndex:   -1,
		Depth:            UnsetDepth,
	}
}

func (m *MGM) Clone() *MGM {
	if m == nil {
		return nil
	}
	cp := *m
	cp.Incoming = make(map[ukey.Dependency]bool, len(m.Incoming))
	for k, v := range m.Incoming {
		cp.Incoming[k] = v
	}
	cp.Outgoing = make(map[ukey.Dependency]bool, len(m.Outgoing))
	for k, v := range m.Outgoing {
		cp.Outgoing[k] = v
	}
	cp.OptimizationBailout = append([]string(nil), m.OptimizationBailout...)
	cp.DeprecatedAllDependencies = append([]ukey.Dependency(nil), m.DeprecatedAllDependencies...)
	return &cp
}
