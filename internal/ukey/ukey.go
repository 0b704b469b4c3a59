// Package ukey hands out stable, densely-numbered opaque keys used as arena
// indices throughout the compiler: modules, chunks, chunk groups,
// dependencies, connections and exports-info records all live in flat
// slices/maps keyed by one of these.
package ukey

import "sync/atomic"

// Key is a 32-bit arena index tagged by the kind of entity it identifies.
// The tag is a phantom type parameter: it never appears in the in-memory
// representation, but it stops a ChunkGroup key from being accepted where a
// Chunk key is expected. The zero value is not a valid key; Counter never
// hands out zero.
type Key[Kind any] uint32

// Invalid reports whether k was never assigned by a Counter (the zero value).
func (k Key[Kind]) Invalid() bool { return k == 0 }

// Index returns a 0-based array index suitable for indexing into a
// pre-sized arena (e.g. make([]T, counter.Len())).
func (k Key[Kind]) Index() uint32 { return uint32(k) - 1 }

// Counter is a process-wide monotonic allocator for one entity kind. The
// zero value is ready to use. Counters offer no recycling: compilations are
// short-lived, and a stale key from a discarded compilation must never be
// mistaken for a live one in a later compilation, so counters are reset
// (via Reset) between top-level builds rather than having keys reused
// within a build.
type Counter[Kind any] struct {
	next uint32
}

// Next allocates and returns a new key, atomically.
func (c *Counter[Kind]) Next() Key[Kind] {
	return Key[Kind](atomic.AddUint32(&c.next, 1))
}

// Len returns the number of keys handed out so far, i.e. the size an arena
// indexed 0..Len()-1 by Key.Index() must have.
func (c *Counter[Kind]) Len() uint32 {
	return atomic.LoadUint32(&c.next)
}

// Reset confines the only process-wide mutable state in the allocator to
// this single call, so tests can start each case from a clean counter
// without the kind of global-state leakage that would make test order
// matter.
func (c *Counter[Kind]) Reset() {
	atomic.StoreUint32(&c.next, 0)
}

// Entity-kind phantom tags. These are never instantiated; they only exist
// to parameterize Key/Counter so the Go compiler rejects mixing them up.
type (
	ModuleGraphModuleKind struct{}
	ChunkKind              struct{}
	ChunkGroupKind         struct{}
	ConnectionKind         struct{}
	ExportsInfoKind        struct{}
	ExportInfoKind         struct{}
	DependencyKind         struct{}
	CacheRootKind          struct{}
)

type (
	ModuleGraphModule = Key[ModuleGraphModuleKind]
	Chunk              = Key[ChunkKind]
	ChunkGroup         = Key[ChunkGroupKind]
	Connection         = Key[ConnectionKind]
	ExportsInfo        = Key[ExportsInfoKind]
	ExportInfo         = Key[ExportInfoKind]
	Dependency         = Key[DependencyKind]
	CacheRoot          = Key[CacheRootKind]
)
