package graph

import "github.com/bundlecore/bundlecore/internal/ukey"

// ConditionFn gates whether a connection is active, e.g. for conditional
// "export { x } from 'y'" dependencies created inside a tree-shaking-aware
// resolution step. Returning ConditionFalse deactivates the connection.
type ConditionResult uint8

const (
	ConditionTrue ConditionResult = iota
	ConditionFalse
	ConditionUnset // "condition is None" — the condition is simply absent
)

type ConditionFn func() ConditionResult

// Connection is the edge of the module graph: (original-module-or-null,
// dependency-id, resolved-module, active-flag, conditional-flag). One
// dependency has zero or one connection; an inactive connection still
// consumes a slot so that rebuilds can toggle it cheaply (spec.md §3).
type Connection struct {
	ID                      ukey.Connection
	OriginalModule          ModuleIdentifier // "" means null (e.g. an entry's synthetic root)
	DependencyID            ukey.Dependency
	ResolvedModule          ModuleIdentifier
	Active                  bool
	Conditional             bool
}

// Clone is a shallow copy: Connection has no reference fields that would
// alias between layers.
func (c *Connection) Clone() *Connection {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
