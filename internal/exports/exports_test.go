package exports

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinUsageIsLatticeOrdered(t *testing.T) {
	require.Equal(t, NoInfo, JoinUsage(Unused, NoInfo))
	require.Equal(t, Unknown, JoinUsage(NoInfo, Unknown))
	require.Equal(t, OnlyPropertiesUsed, JoinUsage(Unknown, OnlyPropertiesUsed))
	require.Equal(t, Used, JoinUsage(OnlyPropertiesUsed, Used))
	require.Equal(t, Used, JoinUsage(Used, Unused), "join must be monotone regardless of argument order")
}

func TestExportInfoJoinUsedReportsConvergence(t *testing.T) {
	s := NewStore()
	info := s.Export("a.js", "foo")

	changed := info.JoinUsed("main", Used)
	require.True(t, changed)
	require.Equal(t, Used, info.UsedFor("main"))

	changed = info.JoinUsed("main", OnlyPropertiesUsed)
	require.False(t, changed, "joining a lower state must not report a change")
	require.Equal(t, Used, info.UsedFor("main"))
}

func TestExportInfoUnusedEverywhere(t *testing.T) {
	s := NewStore()
	info := s.Export("a.js", "foo")
	require.True(t, info.IsUnusedEverywhere())

	info.JoinUsed("main", Unused)
	require.True(t, info.IsUnusedEverywhere())

	info.JoinUsed("worker", OnlyPropertiesUsed)
	require.False(t, info.IsUnusedEverywhere())
}

func TestStoreInferStaticMarksProvidedTrue(t *testing.T) {
	s := NewStore()
	s.InferStatic("a.js", []string{"foo", "bar"})

	ei := s.ForModule("a.js")
	require.ElementsMatch(t, []string{"foo", "bar"}, ei.ProvidedNames())
	require.Equal(t, []string{"foo", "bar"}, ei.Names(), "insertion order must be preserved")

	foo, ok := ei.Get("foo")
	require.True(t, ok)
	require.Equal(t, ProvidedTrue, foo.Provided)
	require.True(t, foo.CanMangleProvide)
}

func TestStoreMarkDynamicSetsUnknownUnmangleable(t *testing.T) {
	s := NewStore()
	s.MarkDynamic("a.js")

	ei := s.ForModule("a.js")
	require.Equal(t, ProvidedUnknown, ei.Other.Provided)
	require.False(t, ei.Other.CanMangleProvide)
}

func TestCopyProvidedFromStarTarget(t *testing.T) {
	s := NewStore()
	s.InferStatic("target.js", []string{"a", "b"})

	s.CopyProvidedFromStarTarget("reexport.js", "target.js")

	dest := s.ForModule("reexport.js")
	a, ok := dest.Get("a")
	require.True(t, ok)
	require.Equal(t, ProvidedTrue, a.Provided)
	b, ok := dest.Get("b")
	require.True(t, ok)
	require.Equal(t, ProvidedTrue, b.Provided)
}

func TestCopyProvidedFromStarTarget_DoesNotOverrideExistingKnowledge(t *testing.T) {
	s := NewStore()
	s.InferStatic("target.js", []string{"a"})

	dest := s.Export("reexport.js", "a")
	dest.Provided = ProvidedFalse

	s.CopyProvidedFromStarTarget("reexport.js", "target.js")

	a, _ := s.ForModule("reexport.js").Get("a")
	require.Equal(t, ProvidedFalse, a.Provided, "a name already resolved must not be clobbered by a later star-copy")
}

func TestTypoDetectorSuggestsOneCharEdits(t *testing.T) {
	d := NewTypoDetector([]string{"useCallback", "useEffect", "useMemo"})

	suggestion, ok := d.MaybeCorrect("useCallbak")
	require.True(t, ok)
	require.Equal(t, "useCallback", suggestion)

	_, ok = d.MaybeCorrect("totallyUnrelatedName")
	require.False(t, ok)
}

func TestExportsInfoSuggestForUsesProvidedNames(t *testing.T) {
	s := NewStore()
	s.InferStatic("a.js", []string{"useCallback"})
	ei := s.ForModule("a.js")

	suggestion, ok := ei.SuggestFor("useCallbak")
	require.True(t, ok)
	require.Equal(t, "useCallback", suggestion)
}
