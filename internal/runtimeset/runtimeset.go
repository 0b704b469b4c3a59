// Package runtimeset implements the canonical, interned, set-like value
// that identifies which runtime-entries an artifact (module, chunk, chunk
// group) belongs to. A runtime is a named entry whose bootstrap code will
// execute the artifact; a chunk's runtime is the union of the runtimes of
// its owning chunk groups.
package runtimeset

import (
	"sort"
	"strings"
)

// Set is a sorted, de-duplicated collection of runtime names. The zero
// value is the empty set. Set is a value type: all mutating operations
// return a new Set rather than mutating the receiver in place, mirroring
// the "runtime-spec" glossary entry's "canonical, interned" framing — two
// Sets with the same members are expected to compare equal and hash equal.
type Set struct {
	names []string
}

// Of builds a Set from the given runtime names, sorting and de-duplicating.
func Of(names ...string) Set {
	return Set{}.union(names)
}

func (s Set) union(extra []string) Set {
	if len(extra) == 0 {
		return s
	}
	merged := make([]string, 0, len(s.names)+len(extra))
	merged = append(merged, s.names...)
	merged = append(merged, extra...)
	sort.Strings(merged)
	out := merged[:0]
	for i, name := range merged {
		if i == 0 || merged[i-1] != name {
			out = append(out, name)
		}
	}
	return Set{names: out}
}

// Union returns the set union of s and other.
func (s Set) Union(other Set) Set {
	return s.union(other.names)
}

// Subtract returns s with every name present in other removed.
func (s Set) Subtract(other Set) Set {
	if len(s.names) == 0 || len(other.names) == 0 {
		return s
	}
	remove := make(map[string]bool, len(other.names))
	for _, n := range other.names {
		remove[n] = true
	}
	out := make([]string, 0, len(s.names))
	for _, n := range s.names {
		if !remove[n] {
			out = append(out, n)
		}
	}
	return Set{names: out}
}

// Contains reports whether name is a member of s.
func (s Set) Contains(name string) bool {
	i := sort.SearchStrings(s.names, name)
	return i < len(s.names) && s.names[i] == name
}

// IsEmpty reports whether s has no members.
func (s Set) IsEmpty() bool { return len(s.names) == 0 }

// Len returns the number of members.
func (s Set) Len() int { return len(s.names) }

// IterSorted calls fn once per member, in sorted order.
func (s Set) IterSorted(fn func(name string)) {
	for _, n := range s.names {
		fn(n)
	}
}

// ToKey returns a deterministic string form of s, suitable only for use as
// a map key (e.g. the outgoing-modules cache partitions on this). It is
// not meant to be user-visible.
func (s Set) ToKey() string {
	return strings.Join(s.names, "\x00")
}

// Equals reports whether s and other have identical membership.
func (s Set) Equals(other Set) bool {
	return s.ToKey() == other.ToKey()
}

// Hash returns an FNV-1a hash of ToKey(), cheap enough to use as a
// concurrent-map partition key without needing a full string compare in
// the common case.
func (s Set) Hash() uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for _, b := range []byte(s.ToKey()) {
		h ^= uint64(b)
		h *= prime64
	}
	return h
}

// Names returns the sorted member slice. Callers must not mutate it.
func (s Set) Names() []string { return s.names }

// MatcherFromLists compiles a boolean matcher expression string from two
// lists of positive/negative runtime names: the returned expression
// evaluates (conceptually, once injected into a helper's generated code)
// to true for every name in positives and false for every name in
// negatives, built from equality tests and short-circuit combinations.
// This mirrors how runtime-conditional helper code (e.g. a per-runtime
// import guard) is assembled once and shared across runtimes rather than
// duplicated per runtime.
func MatcherFromLists(runtimeVar string, positives, negatives []string) string {
	if len(positives) == 0 && len(negatives) == 0 {
		return "true"
	}
	var b strings.Builder
	first := true
	sep := " && "
	if len(positives) > 0 {
		sep = " || "
	}
	write := func(expr string) {
		if !first {
			b.WriteString(sep)
		}
		b.WriteString(expr)
		first = false
	}
	sortedPos := append([]string(nil), positives...)
	sortedNeg := append([]string(nil), negatives...)
	sort.Strings(sortedPos)
	sort.Strings(sortedNeg)
	for _, name := range sortedPos {
		write(runtimeVar + " === " + strconvQuote(name))
	}
	if len(sortedPos) == 0 {
		for _, name := range sortedNeg {
			write(runtimeVar + " !== " + strconvQuote(name))
		}
	}
	return b.String()
}

func strconvQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// MergeOnBlockEntry implements the runtime-set merging rule for a block
// reached from two different runtimes: the block's runtime becomes the
// union of the incoming runtimes, unless the block's group declares an
// entry (async entrypoint), in which case the block keeps its own
// declared runtime distinct from whatever reached it.
func MergeOnBlockEntry(existing Set, incoming Set, blockDeclaresOwnEntryRuntime bool) Set {
	if blockDeclaresOwnEntryRuntime {
		if existing.IsEmpty() {
			return incoming
		}
		return existing
	}
	return existing.Union(incoming)
}
