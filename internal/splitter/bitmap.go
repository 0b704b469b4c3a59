package splitter

import "github.com/bundlecore/bundlecore/internal/graph"

// Ordinals assigns a dense, stable uint64 ordinal to every module ever
// seen by the splitter, the "module_ordinal: IdentifierMap<u64>" persisted
// cache layout spec.md §6 names. Ordinals are monotonically growing; a
// module keeps its ordinal across incremental rebuilds (spec.md §4.6
// "Incremental mode": "For each changed module, update its bitmap
// ordinal (new modules get a fresh id)").
type Ordinals struct {
	next  uint64
	index map[graph.ModuleIdentifier]uint64
}

func NewOrdinals() *Ordinals {
	return &Ordinals{index: map[graph.ModuleIdentifier]uint64{}}
}

// For returns module's ordinal, assigning a fresh one if this is the
// first time it's been seen.
func (o *Ordinals) For(module graph.ModuleIdentifier) uint64 {
	if ord, ok := o.index[module]; ok {
		return ord
	}
	ord := o.next
	o.next++
	o.index[module] = ord
	return ord
}

// Bitmap is a dense bitset over module ordinals, used so set-containment
// checks in Stage 5 (remove-available-modules) are bitwise rather than
// hash-map lookups (spec.md §4.6 Stage 3: "a module-ordinal bitmap
// modules_ordinal so that set containment checks in Stage 5 are bitwise").
type Bitmap struct {
	words []uint64
}

func NewBitmap() *Bitmap {
	return &Bitmap{}
}

func (b *Bitmap) ensure(word int) {
	for len(b.words) <= word {
		b.words = append(b.words, 0)
	}
}

func (b *Bitmap) Set(ord uint64) {
	word, bit := int(ord/64), ord%64
	b.ensure(word)
	b.words[word] |= 1 << bit
}

func (b *Bitmap) Test(ord uint64) bool {
	word, bit := int(ord/64), ord%64
	if word >= len(b.words) {
		return false
	}
	return b.words[word]&(1<<bit) != 0
}

// IntersectNonEmpty reports whether b and other share any set bit.
func (b *Bitmap) IntersectNonEmpty(other *Bitmap) bool {
	n := len(b.words)
	if len(other.words) < n {
		n = len(other.words)
	}
	for i := 0; i < n; i++ {
		if b.words[i]&other.words[i] != 0 {
			return true
		}
	}
	return false
}

// Intersect returns a new Bitmap containing only bits set in both b and
// other.
func (b *Bitmap) Intersect(other *Bitmap) *Bitmap {
	n := len(b.words)
	if len(other.words) < n {
		n = len(other.words)
	}
	out := &Bitmap{words: make([]uint64, n)}
	for i := 0; i < n; i++ {
		out.words[i] = b.words[i] & other.words[i]
	}
	return out
}

// Subtract clears every bit set in other from b, in place.
func (b *Bitmap) Subtract(other *Bitmap) {
	n := len(b.words)
	if len(other.words) < n {
		n = len(other.words)
	}
	for i := 0; i < n; i++ {
		b.words[i] &^= other.words[i]
	}
}

// Union returns a new Bitmap with every bit set in either b or other.
func (b *Bitmap) Union(other *Bitmap) *Bitmap {
	n := len(b.words)
	if len(other.words) > n {
		n = len(other.words)
	}
	out := &Bitmap{words: make([]uint64, n)}
	copy(out.words, b.words)
	for i := 0; i < len(other.words); i++ {
		out.words[i] |= other.words[i]
	}
	return out
}

func (b *Bitmap) IsEmpty() bool {
	for _, w := range b.words {
		if w != 0 {
			return false
		}
	}
	return true
}

func (b *Bitmap) Clone() *Bitmap {
	out := &Bitmap{words: make([]uint64, len(b.words))}
	copy(out.words, b.words)
	return out
}
