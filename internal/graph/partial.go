package graph

import "github.com/bundlecore/bundlecore/internal/ukey"

// entry wraps a stored value with an explicit tombstone bit. An entry
// simply absent from a layer's map means "defer to a lower layer"; an
// entry present with deleted=true means "this was removed in this layer,
// stop searching lower layers" — the distinction the spec calls out
// explicitly in §4.3 ("A `None` entry is a tombstone").
type entry[V any] struct {
	deleted bool
	value   V
}

// cloneable is the constraint every value type stored in a Partial must
// satisfy so that copy-on-write promotion can give the active layer a
// private copy instead of aliasing a lower layer's value.
type cloneable[V any] interface {
	Clone() V
}

// Partial is one immutable layer of the module graph (spec.md §3
// glossary: "Partial"). The active layer is just a Partial that happens to
// still be getting written to; nothing in this type enforces immutability
// — that discipline lives in Graph, which never writes to anything but its
// own active Partial.
type Partial struct {
	modules      map[ModuleIdentifier]entry[*Module]
	mgms         map[ModuleIdentifier]entry[*MGM]
	dependencies map[ukey.Dependency]entry[*Dependency]
	blocks       map[BlockID]entry[*AsyncDependenciesBlock]
	connections  map[ukey.Connection]entry[*Connection]

	depToModule map[ukey.Dependency]entry[ModuleIdentifier]
	depToConn   map[ukey.Dependency]entry[ukey.Connection]
	conditions  map[ukey.Connection]entry[ConditionFn]
}

// NewPartial returns an empty, ready-to-use Partial.
func NewPartial() *Partial {
	return &Partial{
		modules:      map[ModuleIdentifier]entry[*Module]{},
		mgms:         map[ModuleIdentifier]entry[*MGM]{},
		dependencies: map[ukey.Dependency]entry[*Dependency]{},
		blocks:       map[BlockID]entry[*AsyncDependenciesBlock]{},
		connections:  map[ukey.Connection]entry[*Connection]{},
		depToModule:  map[ukey.Dependency]entry[ModuleIdentifier]{},
		depToConn:    map[ukey.Dependency]entry[ukey.Connection]{},
		conditions:   map[ukey.Connection]entry[ConditionFn]{},
	}
}

// lookup searches active then the base stack newest-to-oldest, returning
// the first hit (or the zero value and false if every layer either lacks
// the key or has tombstoned it).
func lookup[K comparable, V any](active map[K]entry[V], bases []map[K]entry[V], key K) (V, bool) {
	if e, ok := active[key]; ok {
		if e.deleted {
			var zero V
			return zero, false
		}
		return e.value, true
	}
	for i := len(bases) - 1; i >= 0; i-- {
		if e, ok := bases[i][key]; ok {
			if e.deleted {
				var zero V
				return zero, false
			}
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

// promote returns a mutable borrow into active: if active already has a
// live value it's returned directly, otherwise the value is found in a
// lower partial, cloned, installed into active, and the clone is
// returned — the copy-on-write step spec.md §4.3 describes.
func promote[K comparable, V cloneable[V]](active map[K]entry[V], bases []map[K]entry[V], key K) (V, bool) {
	if e, ok := active[key]; ok {
		if e.deleted {
			var zero V
			return zero, false
		}
		return e.value, true
	}
	for i := len(bases) - 1; i >= 0; i-- {
		if e, ok := bases[i][key]; ok {
			if e.deleted {
				var zero V
				return zero, false
			}
			cloned := e.value.Clone()
			active[key] = entry[V]{value: cloned}
			return cloned, true
		}
	}
	var zero V
	return zero, false
}

func set[K comparable, V any](active map[K]entry[V], key K, value V) {
	active[key] = entry[V]{value: value}
}

func tombstone[K comparable, V any](active map[K]entry[V], key K) {
	var zero V
	active[key] = entry[V]{deleted: true, value: zero}
}
