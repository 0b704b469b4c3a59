// Package graph is the central data structure of the compiler: the arena
// of modules, module-graph-modules, dependencies, blocks and connections,
// layered so an in-progress "partial" overlay can be committed atomically
// or discarded. See spec.md §3 "Data model" and §4.3.
package graph

// ModuleIdentifier is an interned string, typically
// "<loader-chain>!<resource-path>?<query>". Equality is string equality;
// callers that hash it frequently should precompute the hash themselves
// (e.g. via a map keyed on the string, which Go already does efficiently).
type ModuleIdentifier string

// BlockID identifies an AsyncDependenciesBlock. Unlike modules/chunks/
// connections, blocks are not part of the C1 ukey-counter family (spec.md
// §4.1 enumerates module-graph module, chunk, chunk-group, connection,
// exports-info, export-info and cache-root — blocks are absent from that
// list), so identity here is simply "the Nth block declared by this
// module or parent block", which is already stable and deterministic
// without needing a global counter.
type BlockID struct {
	Owner ModuleIdentifier
	Index int
}
