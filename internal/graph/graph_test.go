package graph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/bundlecore/bundlecore/internal/ukey"
)

func newTestModule(id ModuleIdentifier) *Module {
	return &Module{Identifier: id, Kind: KindNormal, ExportsType: ExportsDynamic}
}

func TestGraphSetResolvedModule_CreatesConnectionAndWiresMGMs(t *testing.T) {
	g := New()
	g.AddModule(newTestModule("a.js"))
	g.AddModule(newTestModule("b.js"))

	dep := ukey.Dependency(1)
	g.AddDependency(dep, &Dependency{Category: CategoryESM, OwnerModule: "a.js"})

	connID, created := g.SetResolvedModule(dep, "a.js", "b.js", nil, true)
	require.True(t, created)
	require.NotZero(t, connID)

	conn, ok := g.GetConnection(connID)
	require.True(t, ok)
	require.Equal(t, ModuleIdentifier("a.js"), conn.OriginalModule)
	require.Equal(t, ModuleIdentifier("b.js"), conn.ResolvedModule)
	require.True(t, conn.Active)
	require.False(t, conn.Conditional)

	aMGM, ok := g.GetMGM("a.js")
	require.True(t, ok)
	require.True(t, aMGM.Outgoing[dep])

	bMGM, ok := g.GetMGM("b.js")
	require.True(t, ok)
	require.True(t, bMGM.Incoming[dep])
	require.Equal(t, ModuleIdentifier("a.js"), bMGM.Issuer)

	resolved, ok := g.ResolvedModuleFor(dep)
	require.True(t, ok)
	require.Equal(t, ModuleIdentifier("b.js"), resolved)
}

func TestGraphSetResolvedModule_IsIdempotent(t *testing.T) {
	g := New()
	g.AddModule(newTestModule("a.js"))
	g.AddModule(newTestModule("b.js"))
	dep := ukey.Dependency(1)
	g.AddDependency(dep, &Dependency{Category: CategoryESM, OwnerModule: "a.js"})

	first, _ := g.SetResolvedModule(dep, "a.js", "b.js", nil, true)
	second, _ := g.SetResolvedModule(dep, "a.js", "b.js", nil, true)
	require.Equal(t, first, second)

	aMGM, _ := g.GetMGM("a.js")
	require.Len(t, aMGM.Outgoing, 1)
}

func TestGraphSetResolvedModule_ConditionalInactive(t *testing.T) {
	g := New()
	g.AddModule(newTestModule("a.js"))
	g.AddModule(newTestModule("b.js"))
	dep := ukey.Dependency(1)

	connID, _ := g.SetResolvedModule(dep, "a.js", "b.js", func() ConditionResult { return ConditionFalse }, true)
	conn, ok := g.GetConnection(connID)
	require.True(t, ok)
	require.False(t, conn.Active)
	require.True(t, conn.Conditional)
}

func TestGraphSetResolvedModule_NonModuleDependencySkipsConnection(t *testing.T) {
	g := New()
	g.AddModule(newTestModule("a.js"))
	dep := ukey.Dependency(7)

	_, created := g.SetResolvedModule(dep, "a.js", "b.js", nil, false)
	require.False(t, created)

	resolved, ok := g.ResolvedModuleFor(dep)
	require.True(t, ok)
	require.Equal(t, ModuleIdentifier("b.js"), resolved)
}

func TestGraphRemoveModule_RevokesConnectionsAndReturnsRequeue(t *testing.T) {
	g := New()
	g.AddModule(newTestModule("a.js"))
	g.AddModule(newTestModule("b.js"))
	dep := ukey.Dependency(1)
	g.SetResolvedModule(dep, "a.js", "b.js", nil, true)

	requeue := g.RemoveModule("b.js")
	require.Len(t, requeue, 1)
	require.Equal(t, dep, requeue[0].DependencyID)
	require.Equal(t, ModuleIdentifier("a.js"), requeue[0].OriginalModuleIdentifier)

	_, ok := g.GetMGM("b.js")
	require.False(t, ok)
	_, ok = g.GetModule("b.js")
	require.False(t, ok)

	aMGM, ok := g.GetMGM("a.js")
	require.True(t, ok)
	require.Empty(t, aMGM.Outgoing)

	_, ok = g.connectionForDependency(dep)
	require.False(t, ok)
}

func TestGraphCommit_PromotesViaCOWWithoutMutatingBase(t *testing.T) {
	g := New()
	g.AddModule(newTestModule("a.js"))
	base := g.Commit()

	g2 := New(base)
	mgm, ok := g2.GetMGMMut("a.js")
	require.True(t, ok)
	mgm.Depth = 3

	baseMGM, ok := base.mgms["a.js"]
	require.True(t, ok)
	require.Equal(t, UnsetDepth, baseMGM.value.Depth, "mutating the promoted copy must not affect the committed base layer")

	live, ok := g2.GetMGM("a.js")
	require.True(t, ok)
	require.Equal(t, uint32(3), live.Depth)
}

func TestGraphDiscard_DropsActiveMutations(t *testing.T) {
	g := New()
	g.AddModule(newTestModule("a.js"))
	base := g.Commit()

	g2 := New(base)
	g2.AddModule(newTestModule("b.js"))
	g2.Discard()

	_, ok := g2.GetModule("b.js")
	require.False(t, ok)
	_, ok = g2.GetModule("a.js")
	require.True(t, ok, "discard must only drop active, not the base stack")
}

func TestGraphTombstoneShadowsBaseLayer(t *testing.T) {
	g := New()
	g.AddModule(newTestModule("a.js"))
	base := g.Commit()

	g2 := New(base)
	g2.RemoveModule("a.js")

	_, ok := g2.GetModule("a.js")
	require.False(t, ok)

	_, ok = base.modules["a.js"]
	require.True(t, ok, "tombstoning in a higher layer must not touch the lower layer's entry")
}

func TestGraphMoveConnections_OnlyMovesActiveEligible(t *testing.T) {
	g := New()
	g.AddModule(newTestModule("a.js"))
	g.AddModule(newTestModule("concat.js"))
	g.AddModule(newTestModule("b.js"))

	active := ukey.Dependency(1)
	inactive := ukey.Dependency(2)
	g.SetResolvedModule(active, "a.js", "b.js", nil, true)
	g.SetResolvedModule(inactive, "a.js", "b.js", func() ConditionResult { return ConditionFalse }, true)

	g.MoveConnections("a.js", "concat.js", nil)

	aMGM, _ := g.GetMGM("a.js")
	concatMGM, _ := g.GetMGM("concat.js")

	require.False(t, aMGM.Outgoing[active])
	require.True(t, aMGM.Outgoing[inactive], "inactive connections stay on the source module")
	require.True(t, concatMGM.Outgoing[active])
	require.False(t, concatMGM.Outgoing[inactive])
}

func TestGraphCopyOutgoingConnections_DuplicatesWithFreshKeys(t *testing.T) {
	g := New()
	g.AddModule(newTestModule("inner.js"))
	g.AddModule(newTestModule("outer.js"))
	g.AddModule(newTestModule("target.js"))

	dep := ukey.Dependency(1)
	origConnID, _ := g.SetResolvedModule(dep, "inner.js", "target.js", nil, true)

	created := g.CopyOutgoingConnections("inner.js", "outer.js")
	require.Len(t, created, 1)
	require.NotEqual(t, origConnID, created[0])

	innerMGM, _ := g.GetMGM("inner.js")
	require.True(t, innerMGM.Outgoing[dep], "copy leaves the source module's edges intact")

	outerMGM, _ := g.GetMGM("outer.js")
	require.True(t, outerMGM.Outgoing[dep])

	newConn, ok := g.GetConnection(created[0])
	require.True(t, ok)
	require.Equal(t, ModuleIdentifier("outer.js"), newConn.OriginalModule)
	require.Equal(t, ModuleIdentifier("target.js"), newConn.ResolvedModule)
}

func TestModuleCloneIsDeep(t *testing.T) {
	m := &Module{
		Identifier:  "a.js",
		Sizes:       map[string]float64{"javascript": 100},
		DependencyIDs: []ukey.Dependency{1, 2},
	}
	cp := m.Clone()
	cp.Sizes["javascript"] = 200
	cp.DependencyIDs[0] = 99

	require.Equal(t, float64(100), m.Sizes["javascript"])
	require.Equal(t, ukey.Dependency(1), m.DependencyIDs[0])

	if diff := cmp.Diff(m, cp, cmpopts.IgnoreFields(Module{}, "Sizes", "DependencyIDs")); diff != "" {
		t.Errorf("clone diverged on fields expected to be shared after a targeted mutation (-orig +clone):\n%s", diff)
	}
}
