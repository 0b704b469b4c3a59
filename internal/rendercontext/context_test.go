package rendercontext

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFinalizeOrdersByStageThenOrderThenInsertion(t *testing.T) {
	c := New("m.js", "main")
	c.AddFragment(InitFragment{Stage: StageESMExports, Order: 0, Key: "exports", Content: "a"})
	c.AddFragment(InitFragment{Stage: StageConstants, Order: 1, Key: "const-1", Content: "c1"})
	c.AddFragment(InitFragment{Stage: StageConstants, Order: 0, Key: "const-0", Content: "c0"})

	got := c.Finalize()
	require.Len(t, got, 3)
	require.Equal(t, "const-0", got[0].Key)
	require.Equal(t, "const-1", got[1].Key)
	require.Equal(t, "exports", got[2].Key)
}

func TestFinalizeMergesIdenticalKeys(t *testing.T) {
	c := New("m.js", "main")
	c.AddFragment(InitFragment{Stage: StageESMImports, Key: "import:./x", Content: "var x = __require__(0);"})
	c.AddFragment(InitFragment{Stage: StageESMImports, Key: "import:./x", Content: "var x = __require__(0);"})

	got := c.Finalize()
	require.Len(t, got, 1, "identical key+content must collapse to one fragment")
}

func TestHelpersAccumulateAndNameThemselves(t *testing.T) {
	c := New("m.js", "main")
	c.RequireHelper(HelperRequire)
	c.RequireHelper(HelperCompatDefault)
	c.RequireHelper(HelperRequire) // idempotent

	names := c.Helpers().Names()
	require.Equal(t, []string{"__compat_default__", "__require__"}, names)
}
