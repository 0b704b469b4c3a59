package graph

import "github.com/bundlecore/bundlecore/internal/ukey"

// EntryOptions is present on a block's GroupOptions only when that block
// is itself an async entrypoint (a dynamic import whose group declares its
// own `entryOptions`, e.g. `import(/* webpackEntry: true */ './x')`-style
// annotations) — such a block's chunk group keeps its own runtime distinct
// from whatever runtime(s) reach it (spec.md §4.2 "Merging rule").
type EntryOptions struct {
	Name    string
	Runtime string
}

// GroupOptions carries the annotations that travel with an async
// dependencies block: a name (used to merge same-named blocks into one
// chunk root), preload/prefetch ordering hints, fetch priority, and
// optionally EntryOptions marking this block as an async entrypoint.
type GroupOptions struct {
	Name          string
	PreloadOrder  int
	PrefetchOrder int
	FetchPriority string
	EntryOptions  *EntryOptions
}

// AsyncDependenciesBlock is a subtree of dependencies owned by either a
// module or another block, representing a dynamic-import boundary. Blocks
// are the seams at which the code splitter creates new chunks.
type AsyncDependenciesBlock struct {
	ID           BlockID
	ParentBlock  *BlockID // nil if owned directly by a module
	DependencyIDs []ukey.Dependency
	Options      GroupOptions
}

func (b *AsyncDependenciesBlock) Clone() *AsyncDependenciesBlock {
	if b == nil {
		return nil
	}
	cp := *b
	if b.ParentBlock != nil {
		parent := *b.ParentBlock
		cp.ParentBlock = &parent
	}
	cp.DependencyIDs = append([]ukey.Dependency(nil), b.DependencyIDs...)
	return &cp
}
