package usage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/exports"
	"github.com/bundlecore/bundlecore/internal/runtimeset"
)

func TestPropagateSeedsEntryAndJoinsReexportChain(t *testing.T) {
	store := exports.NewStore()
	store.InferStatic("a.js", []string{"foo"})
	store.InferStatic("b.js", []string{"foo"})

	// b.js is the entry; b.js re-exports foo from a.js.
	edges := map[string][]ReexportEdge{
		"b.js": {{TargetModule: "a.js", Names: []string{"foo"}, Effect: exports.Used}},
	}

	rounds, err := Propagate(
		store,
		map[string]runtimeset.Set{"b.js": runtimeset.Of("main")},
		[]string{"a.js", "b.js"},
		func(importer string) []ReexportEdge { return edges[importer] },
	)
	require.NoError(t, err)
	require.GreaterOrEqual(t, rounds, 1)

	aFoo, ok := store.ForModule("a.js").Get("foo")
	require.True(t, ok)
	require.Equal(t, exports.Used, aFoo.UsedFor(runtimeset.Of("main").ToKey()))

	bEntry := store.ForModule("b.js")
	require.Equal(t, exports.Used, bEntry.Other.UsedFor(runtimeset.Of("main").ToKey()))
}

func TestPropagateKeepsRuntimesDistinctAcrossReexport(t *testing.T) {
	store := exports.NewStore()
	store.InferStatic("shared.js", []string{"helper"})
	store.InferStatic("server-entry.js", []string{"helper"})
	store.InferStatic("worker-entry.js", []string{})

	// Both entries re-export "helper" from shared.js; only server-entry
	// actually references it, worker-entry merely imports the module
	// without naming it (no edge contributed).
	edges := map[string][]ReexportEdge{
		"server-entry.js": {{TargetModule: "shared.js", Names: []string{"helper"}, Effect: exports.Used}},
	}

	_, err := Propagate(
		store,
		map[string]runtimeset.Set{
			"server-entry.js": runtimeset.Of("server"),
			"worker-entry.js": runtimeset.Of("worker"),
		},
		[]string{"shared.js", "server-entry.js", "worker-entry.js"},
		func(importer string) []ReexportEdge { return edges[importer] },
	)
	require.NoError(t, err)

	helper, ok := store.ForModule("shared.js").Get("helper")
	require.True(t, ok)
	require.Equal(t, exports.Used, helper.UsedFor(runtimeset.Of("server").ToKey()),
		"server runtime reached helper via the reexport edge")
	require.Equal(t, exports.NoInfo, helper.UsedFor(runtimeset.Of("worker").ToKey()),
		"worker runtime never referenced helper and must not share server's bucket")
}

func TestPropagateStarReexportMarksOther(t *testing.T) {
	store := exports.NewStore()
	store.InferStatic("x.js", []string{"a", "b"})

	edges := map[string][]ReexportEdge{
		"m.js": {{TargetModule: "x.js", Star: true, Effect: exports.Used}},
	}
	_, err := Propagate(
		store,
		map[string]runtimeset.Set{"m.js": runtimeset.Of("main")},
		[]string{"x.js", "m.js"},
		func(importer string) []ReexportEdge { return edges[importer] },
	)
	require.NoError(t, err)
	require.Equal(t, exports.Used, store.ForModule("x.js").Other.UsedFor(runtimeset.Of("main").ToKey()))
}
