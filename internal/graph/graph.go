package graph

import (
	"sort"

	"github.com/bundlecore/bundlecore/internal/ukey"
)

// Graph is the mutable view over a stack of read-only partials plus one
// active, writable partial on top. Reads search active then partials
// newest-to-oldest; the first hit wins. Writes always go to active. A
// compilation can swap in a previous compilation's partial as its base,
// giving O(1) carry-over of unchanged modules (spec.md §4.3).
type Graph struct {
	base   []*Partial // oldest first; searched newest-to-oldest (i.e. in reverse)
	active *Partial

	connCounter ukey.Counter[ukey.ConnectionKind]
	mgmCounter  ukey.Counter[ukey.ModuleGraphModuleKind]
}

// New starts a Graph with an empty active partial stacked on top of the
// given base layers (oldest first). Passing no base layers starts a fresh
// graph; passing a previous compilation's committed partials gives
// incremental carry-over.
func New(base ...*Partial) *Graph {
	return &Graph{base: base, active: NewPartial()}
}

// Commit freezes the active partial and returns it so a caller can stack
// it as a base layer for a future Graph, then resets Graph to a fresh
// empty active partial on top of the same base stack (so the Graph
// remains usable immediately after committing, mirroring "an in-progress
// partial overlay can be committed atomically").
func (g *Graph) Commit() *Partial {
	committed := g.active
	g.base = append(g.base, committed)
	g.active = NewPartial()
	return committed
}

// Discard drops the active partial's uncommitted mutations, leaving the
// base stack untouched. Used when a compilation is cancelled (spec.md §5
// "Cancellation").
func (g *Graph) Discard() {
	g.active = NewPartial()
}

// ---- Modules ----

func (g *Graph) AddModule(m *Module) {
	set(g.active.modules, m.Identifier, m)
	if _, ok := g.GetMGM(m.Identifier); !ok {
		g.setMGM(newMGM(g.mgmCounter.Next(), m.Identifier))
	}
}

func (g *Graph) GetModule(id ModuleIdentifier) (*Module, bool) {
	return lookup(g.active.modules, basesOf(g.base, func(p *Partial) map[ModuleIdentifier]entry[*Module] { return p.modules }), id)
}

func (g *Graph) GetModuleMut(id ModuleIdentifier) (*Module, bool) {
	return promote(g.active.modules, basesOf(g.base, func(p *Partial) map[ModuleIdentifier]entry[*Module] { return p.modules }), id)
}

// ---- Module graph modules ----

func (g *Graph) setMGM(m *MGM) {
	set(g.active.mgms, m.ModuleIdentifier, m)
}

func (g *Graph) GetMGM(id ModuleIdentifier) (*MGM, bool) {
	return lookup(g.active.mgms, basesOf(g.base, func(p *Partial) map[ModuleIdentifier]entry[*MGM] { return p.mgms }), id)
}

func (g *Graph) GetMGMMut(id ModuleIdentifier) (*MGM, bool) {
	return promote(g.active.mgms, basesOf(g.base, func(p *Partial) map[ModuleIdentifier]entry[*MGM] { return p.mgms }), id)
}

// SetDepthIfLower implements spec.md §4.3's `set_depth_if_lower`: updates
// the module's depth only when it decreases, used by the code splitter
// during its initial breadth-first traversal from entries.
func (g *Graph) SetDepthIfLower(id ModuleIdentifier, depth uint32) {
	mgm, ok := g.GetMGMMut(id)
	if !ok {
		return
	}
	if depth < mgm.Depth {
		mgm.Depth = depth
	}
}

// ---- Dependencies ----

func (g *Graph) AddDependency(id ukey.Dependency, dep *Dependency) {
	set(g.active.dependencies, id, dep)
}

func (g *Graph) GetDependency(id ukey.Dependency) (*Dependency, bool) {
	return lookup(g.active.dependencies, basesOf(g.base, func(p *Partial) map[ukey.Dependency]entry[*Dependency] { return p.dependencies }), id)
}

func (g *Graph) GetDependencyMut(id ukey.Dependency) (*Dependency, bool) {
	return promote(g.active.dependencies, basesOf(g.base, func(p *Partial) map[ukey.Dependency]entry[*Dependency] { return p.dependencies }), id)
}

// ---- Blocks ----

func (g *Graph) AddBlock(b *AsyncDependenciesBlock) {
	set(g.active.blocks, b.ID, b)
}

func (g *Graph) GetBlock(id BlockID) (*AsyncDependenciesBlock, bool) {
	return lookup(g.active.blocks, basesOf(g.base, func(p *Partial) map[BlockID]entry[*AsyncDependenciesBlock] { return p.blocks }), id)
}

// ---- Connections ----

func (g *Graph) GetConnection(id ukey.Connection) (*Connection, bool) {
	return lookup(g.active.connections, basesOf(g.base, func(p *Partial) map[ukey.Connection]entry[*Connection] { return p.connections }), id)
}

func (g *Graph) GetConnectionMut(id ukey.Connection) (*Connection, bool) {
	return promote(g.active.connections, basesOf(g.base, func(p *Partial) map[ukey.Connection]entry[*Connection] { return p.connections }), id)
}

func (g *Graph) connectionForDependency(depID ukey.Dependency) (ukey.Connection, bool) {
	return lookup(g.active.depToConn, basesOf(g.base, func(p *Partial) map[ukey.Dependency]entry[ukey.Connection] { return p.depToConn }), depID)
}

// ConnectionForDependency returns the Connection wired up for a
// dependency, if any (module-or-context dependencies get one via
// SetResolvedModule; weak dependencies may have none). Exported for
// callers outside this package (e.g. the code splitter) that need to
// check a connection's Active/Conditional flags during traversal without
// re-deriving the dep→connection mapping themselves.
func (g *Graph) ConnectionForDependency(depID ukey.Dependency) (*Connection, bool) {
	connID, ok := g.connectionForDependency(depID)
	if !ok {
		return nil, false
	}
	return g.GetConnection(connID)
}

// ResolvedModuleFor returns the module a dependency was resolved to, if
// any (set by SetResolvedModule, independent of whether a Connection
// exists — weak dependencies may have a resolved module but no
// connection).
func (g *Graph) ResolvedModuleFor(depID ukey.Dependency) (ModuleIdentifier, bool) {
	return lookup(g.active.depToModule, basesOf(g.base, func(p *Partial) map[ukey.Dependency]entry[ModuleIdentifier] { return p.depToModule }), depID)
}

// SetResolvedModule is the single entry point that records a dependency's
// resolved target (spec.md §4.3). It always records the dep→module
// mapping; for module-or-context dependencies it additionally constructs
// (or reuses) a Connection. Calling it twice with the same arguments is a
// no-op after the first (spec.md §8 idempotence property).
func (g *Graph) SetResolvedModule(
	depID ukey.Dependency,
	ownerModule ModuleIdentifier,
	resolvedModule ModuleIdentifier,
	condition ConditionFn,
	isModuleOrContextDependency bool,
) (ukey.Connection, bool) {
	set(g.active.depToModule, depID, resolvedModule)

	if connID, ok := g.connectionForDependency(depID); ok {
		return connID, true
	}
	if !isModuleOrContextDependency {
		return 0, false
	}

	active := true
	conditional := condition != nil
	if condition != nil && condition() == ConditionFalse {
		active = false
	}

	connID := g.connCounter.Next()
	conn := &Connection{
		ID:             connID,
		OriginalModule: ownerModule,
		DependencyID:   depID,
		ResolvedModule: resolvedModule,
		Active:         active,
		Conditional:    conditional,
	}
	set(g.active.connections, connID, conn)
	set(g.active.depToConn, depID, connID)
	if condition != nil {
		set(g.active.conditions, connID, condition)
	}

	if mgm, ok := g.GetMGMMut(ownerModule); ok {
		mgm.Outgoing[depID] = true
		mgm.DeprecatedAllDependencies = append(mgm.DeprecatedAllDependencies, depID)
	}
	if mgm, ok := g.GetMGMMut(resolvedModule); ok {
		mgm.Incoming[depID] = true
		if mgm.Issuer == "" {
			mgm.Issuer = ownerModule
		}
	}

	return connID, true
}

// RemoveModule deletes a module's MGM, tombstones its module record, and
// revokes every outgoing and incoming connection touching it. Incoming-
// side revocations are returned as (dependency-id, original-module-id)
// pairs so the make phase can re-queue those factorizations (spec.md
// §4.3 "Revocation").
func (g *Graph) RemoveModule(id ModuleIdentifier) []ReQueue {
	var requeue []ReQueue

	mgm, ok := g.GetMGMMut(id)
	if ok {
		for depID := range mgm.Outgoing {
			g.revokeConnectionForDep(depID)
		}
		for depID := range mgm.Incoming {
			if conn, ok := g.GetConnection(mustConnFor(g, depID)); ok {
				requeue = append(requeue, ReQueue{DependencyID: depID, OriginalModuleIdentifier: conn.OriginalModule})
			}
			g.revokeConnectionForDep(depID)
		}
	}
	tombstone(g.active.mgms, id)
	tombstone(g.active.modules, id)
	return requeue
}

// ReQueue is one (dependency, original owner) pair handed back to the
// caller after a revocation so the make phase can re-factorize it.
type ReQueue struct {
	DependencyID             ukey.Dependency
	OriginalModuleIdentifier ModuleIdentifier
}

func mustConnFor(g *Graph, depID ukey.Dependency) ukey.Connection {
	id, _ := g.connectionForDependency(depID)
	return id
}

func (g *Graph) revokeConnectionForDep(depID ukey.Dependency) {
	connID, ok := g.connectionForDependency(depID)
	if !ok {
		return
	}
	conn, ok := g.GetConnection(connID)
	if !ok {
		return
	}
	if mgm, ok := g.GetMGMMut(conn.OriginalModule); ok {
		delete(mgm.Outgoing, depID)
	}
	if mgm, ok := g.GetMGMMut(conn.ResolvedModule); ok {
		delete(mgm.Incoming, depID)
	}
	tombstone(g.active.connections, connID)
	tombstone(g.active.depToConn, depID)
}

// MoveConnections reparents connections from module `from` to module `to`
// subject to predicate: active and conditional connections are eligible;
// inactive ones are left untouched on `from` (spec.md §4.3 "Clone vs. move
// of connections").
func (g *Graph) MoveConnections(from, to ModuleIdentifier, predicate func(*Connection) bool) {
	fromMGM, ok := g.GetMGMMut(from)
	if !ok {
		return
	}
	toMGM, ok := g.GetMGMMut(to)
	if !ok {
		return
	}
	for depID := range fromMGM.Outgoing {
		connID, ok := g.connectionForDependency(depID)
		if !ok {
			continue
		}
		conn, ok := g.GetConnectionMut(connID)
		if !ok || !conn.Active {
			continue
		}
		if predicate != nil && !predicate(conn) {
			continue
		}
		delete(fromMGM.Outgoing, depID)
		toMGM.Outgoing[depID] = true
		conn.OriginalModule = to
	}
}

// CopyOutgoingConnections duplicates outgoing connections from `from` onto
// `to` with a fresh connection ukey each, used when a concatenated module
// adopts the outgoing edges of its inner modules.
func (g *Graph) CopyOutgoingConnections(from, to ModuleIdentifier) []ukey.Connection {
	fromMGM, ok := g.GetMGM(from)
	if !ok {
		return nil
	}
	toMGM, ok := g.GetMGMMut(to)
	if !ok {
		return nil
	}
	var created []ukey.Connection
	for depID := range fromMGM.Outgoing {
		connID, ok := g.connectionForDependency(depID)
		if !ok {
			continue
		}
		orig, ok := g.GetConnection(connID)
		if !ok {
			continue
		}
		newID := g.connCounter.Next()
		cp := *orig
		cp.ID = newID
		cp.OriginalModule = to
		set(g.active.connections, newID, &cp)
		toMGM.Outgoing[depID] = true
		created = append(created, newID)
	}
	return created
}

// AllModuleIdentifiers returns every live module identifier across the base
// stack and active layer, sorted for determinism. Used by whole-graph
// passes (usage propagation, the code splitter's incremental invalidation)
// that need to enumerate modules rather than reach them by traversal.
func (g *Graph) AllModuleIdentifiers() []ModuleIdentifier {
	seen := map[ModuleIdentifier]bool{}
	var out []ModuleIdentifier
	add := func(layer map[ModuleIdentifier]entry[*Module]) {
		for id, e := range layer {
			if seen[id] {
				continue
			}
			seen[id] = true
			if !e.deleted {
				out = append(out, id)
			}
		}
	}
	add(g.active.modules)
	for i := len(g.base) - 1; i >= 0; i-- {
		add(g.base[i].modules)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// basesOf adapts the base partial slice into the map-extraction shape
// lookup/promote expect, without allocating per call beyond the small
// slice of extracted maps.
func basesOf[K comparable, V any](base []*Partial, extract func(*Partial) map[K]entry[V]) []map[K]entry[V] {
	out := make([]map[K]entry[V], len(base))
	for i, p := range base {
		out[i] = extract(p)
	}
	return out
}
