// Package rendercontext implements C8: for each module × runtime pair
// present in the final chunk graph, assembles the context an external
// code generator needs to render that module — required runtime helpers,
// ordered/deduplicated init fragments, and (for concatenated modules) a
// concatenation scope. Grounded on esbuild's
// internal/linker.go:generateCodeForFileInChunkJS/stmtList (the fragment
// ordering and helper-flag bookkeeping) and internal/runtime's helper
// snippet catalog (spec.md §4.7, §2 C8).
package rendercontext

import "sort"

// Stage orders init fragments within a rendered module, per spec.md §4.7:
// "Constants < AsyncESMImports < ESMImports < ESMExports < HMR < Unique".
type Stage uint8

const (
	StageConstants Stage = iota
	StageAsyncESMImports
	StageESMImports
	StageESMExports
	StageHMR
	StageUnique
)

// Helper is one bit of the required-runtime-helpers set: a runtime
// built-in referenced by code this module's render context will cause to
// be emitted.
type Helper uint32

const (
	HelperRequire Helper = 1 << iota
	HelperDefineGetters
	HelperCreateFakeNamespaceObject
	HelperMakeDeferredNamespaceObject
	HelperCompatDefault
	HelperHasOwnProperty
	HelperRuntimeID
)

var helperNames = map[Helper]string{
	HelperRequire:                     "__require__",
	HelperDefineGetters:               "__define_getters__",
	HelperCreateFakeNamespaceObject:   "__create_fake_namespace_object__",
	HelperMakeDeferredNamespaceObject: "__make_deferred_namespace_object__",
	HelperCompatDefault:               "__compat_default__",
	HelperHasOwnProperty:              "__has_own_property__",
	HelperRuntimeID:                   "__runtime_id__",
}

// Names returns the reference names of every helper bit set, sorted for
// determinism (used when a caller needs to emit the helper-import list).
func (h Helper) Names() []string {
	var out []string
	for bit, name := range helperNames {
		if h&bit != 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// InitFragment is a deduplicated code snippet spliced into a module's
// rendered output at a designated stage (spec.md GLOSSARY "Init
// fragment"). EndContent, when non-empty, closes a scope the fragment
// opened (e.g. an async-module gate's closing brace).
type InitFragment struct {
	Stage      Stage
	Order      int
	Key        string
	Content    string
	EndContent string
}

// ConcatenationScope maps an inner module's export name to the final outer
// symbol a concatenated module rewires re-export wiring to, for
// concatenated modules only (spec.md §4.7).
type ConcatenationScope map[string]string

// Context is the mutable aggregation point dependency templates (C5)
// write into and the external code generator reads from: required-helper
// flags, unsorted init fragments (sorted/merged by Finalize), and an
// optional concatenation scope.
type Context struct {
	Module  string
	Runtime string // runtimeset.Set.ToKey()

	helpers   Helper
	fragments []InitFragment

	Concat ConcatenationScope
}

// New starts an empty Context for one (module, runtime) pair.
func New(module, runtimeKey string) *Context {
	return &Context{Module: module, Runtime: runtimeKey}
}

// RequireHelper flags a runtime helper as needed by this module's rendered
// output.
func (c *Context) RequireHelper(h Helper) {
	c.helpers |= h
}

// Helpers returns the accumulated required-helpers bitmask.
func (c *Context) Helpers() Helper {
	return c.helpers
}

// AddFragment appends an init fragment. Fragments are not deduplicated
// until Finalize is called, so templates may add the same (stage, order,
// key) repeatedly without checking first — exactly how C5's per-
// (module-id, runtime-condition) import fragment emission is specified to
// work (spec.md §4.5 "Fragment merging key").
func (c *Context) AddFragment(f InitFragment) {
	c.fragments = append(c.fragments, f)
}

// Finalize returns the init fragments sorted by (stage, order) with ties
// broken by first-insertion order, and fragments sharing an identical key
// merged: the first occurrence's content is kept, and any later
// occurrence's content is appended only if it differs from what's already
// accumulated (spec.md §4.7 "Fragments with identical keys are merged
// (contents concatenated only if not equal-pointer)" — in a GC'd language
// without pointer identity for string content, "not equal-pointer" is
// realized as "not already present").
func (c *Context) Finalize() []InitFragment {
	type indexed struct {
		frag  InitFragment
		order int
	}
	byKey := map[string]*indexed{}
	var keyOrder []string
	for i, f := range c.fragments {
		if existing, ok := byKey[f.Key]; ok {
			if f.Content != "" && f.Content != existing.frag.Content &&
				!containsFragmentContent(existing.frag.Content, f.Content) {
				existing.frag.Content += f.Content
			}
			if f.EndContent != "" && existing.frag.EndContent == "" {
				existing.frag.EndContent = f.EndContent
			}
			continue
		}
		cp := f
		byKey[f.Key] = &indexed{frag: cp, order: i}
		keyOrder = append(keyOrder, f.Key)
	}

	out := make([]InitFragment, 0, len(keyOrder))
	for _, k := range keyOrder {
		out = append(out, byKey[k].frag)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Stage != out[j].Stage {
			return out[i].Stage < out[j].Stage
		}
		return out[i].Order < out[j].Order
	})
	return out
}

func containsFragmentContent(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	n, m := len(haystack), len(needle)
	if m > n {
		return -1
	}
	for i := 0; i+m <= n; i++ {
		if haystack[i:i+m] == needle {
			return i
		}
	}
	return -1
}
