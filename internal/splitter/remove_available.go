package splitter

import "github.com/bundlecore/bundlecore/internal/graph"

// RemoveAvailableModules implements spec.md §4.6 "Stage 5 —
// remove-available-modules": for each chunk, if the intersection of
// modules_ordinal of all its parents is non-empty, subtract that
// intersection from the chunk's chunk_modules. Repeats to a fixed point,
// since removing modules from a chunk can itself shrink what's available
// to its own children. Cycles in the chunk-relation graph terminate
// naturally because a chunk's own bitmap only ever shrinks — the pass
// can run at most len(modules) rounds before nothing changes.
func RemoveAvailableModules(descs []*ChunkDesc, rel Relations) (rounds int) {
	byKey := make(map[string]*ChunkDesc, len(descs))
	for _, d := range descs {
		byKey[d.Root.Key] = d
	}

	for {
		rounds++
		changed := false
		for _, d := range descs {
			parents := rel.Parents[d.Root.Key]
			if len(parents) == 0 {
				continue
			}
			var intersection *Bitmap
			ok := true
			for _, pKey := range parents {
				p, found := byKey[pKey]
				if !found {
					ok = false
					break
				}
				if intersection == nil {
					intersection = p.ModulesOrdinal.Clone()
				} else {
					intersection = intersection.Intersect(p.ModulesOrdinal)
				}
			}
			if !ok || intersection == nil || intersection.IsEmpty() {
				continue
			}
			if subtractModules(d, intersection) {
				changed = true
			}
		}
		if !changed {
			return rounds
		}
	}
}

func subtractModules(d *ChunkDesc, available *Bitmap) bool {
	changed := false
	for m := range d.ChunkModules {
		if isEntryModule(d, m) {
			continue
		}
		if ord, ok := d.ModuleOrdinals[m]; ok && available.Test(ord) {
			delete(d.ChunkModules, m)
			delete(d.ModuleOrdinals, m)
			changed = true
		}
	}
	if changed {
		d.ModulesOrdinal.Subtract(available)
	}
	return changed
}

func isEntryModule(d *ChunkDesc, m graph.ModuleIdentifier) bool {
	for _, e := range d.EntryModules {
		if e == m {
			return true
		}
	}
	return false
}
