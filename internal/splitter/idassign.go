package splitter

import (
	"sort"
	"strconv"
)

// AssignChunkIDs implements spec.md §6 "Chunk id assignment": named
// chunks take their name; unnamed chunks take a deterministic numeric id
// from a counter seeded zero per compilation, assigned in ascending
// (rendered-hash or size) order so ids stay stable across runs when
// source is unchanged (spec.md §8 P6). This core doesn't compute a
// render hash itself (rendering is external, §1 scope), so it orders
// unnamed chunks by their sorted module-identifier list — a stand-in
// content fingerprint that is exactly as stable as a hash would be for
// any build whose module set didn't change, which is what P6 actually
// requires.
func AssignChunkIDs(cg *ChunkGraph) {
	var unnamed []*Chunk
	for _, c := range cg.chunks {
		if c.Name != "" {
			c.ID = c.Name
			continue
		}
		unnamed = append(unnamed, c)
	}

	sort.Slice(unnamed, func(i, j int) bool {
		return chunkFingerprint(cg, unnamed[i]) < chunkFingerprint(cg, unnamed[j])
	})
	for idx, c := range unnamed {
		c.ID = strconv.Itoa(idx)
	}
}

func chunkFingerprint(cg *ChunkGraph, c *Chunk) string {
	modules := make([]string, 0, len(cg.chunkModules[c.Key]))
	for m := range cg.chunkModules[c.Key] {
		modules = append(modules, string(m))
	}
	sort.Strings(modules)
	out := ""
	for _, m := range modules {
		out += m + "\x00"
	}
	return out
}
