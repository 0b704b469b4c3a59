package splitter

import (
	"sort"

	"github.com/bundlecore/bundlecore/internal/diag"
	"github.com/bundlecore/bundlecore/internal/runtimeset"
)

// DetermineEntryRuntimes implements spec.md §4.6 Stage 1: for each entry,
// compute its runtime-spec. An entry declaring `runtime: "name"` gets that
// name as its sole runtime member. An entry declaring `depend_on` inherits
// the union of its dependencies' (already-resolved) runtimes, transitively
// — `depend_on` forms a DAG; a cycle is a fatal diagnostic (spec.md §7.3)
// and every entry on the cycle falls back to its own name as its runtime
// so the rest of the split can still proceed (spec.md §8 scenario 3).
// Combining `depend_on` with `runtime` is also a fatal diagnostic.
func DetermineEntryRuntimes(entries map[string]EntryData, log *diag.Log) map[string]runtimeset.Set {
	names := sortedEntryNames(entries)
	result := map[string]runtimeset.Set{}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := map[string]int{}
	cyclic := map[string]bool{}

	var resolve func(name string, path []string) runtimeset.Set
	resolve = func(name string, path []string) runtimeset.Set {
		if rt, ok := result[name]; ok {
			return rt
		}
		entry, ok := entries[name]
		if !ok {
			// A depend_on target that doesn't exist: recoverable, the
			// referencing entry just falls back to its own runtime
			// (spec.md §8 "A depend_on that lists a missing entry is a
			// recoverable error that still produces an entry chunk").
			return runtimeset.Of(name)
		}

		if len(entry.Options.DependOn) > 0 && entry.Options.Runtime != "" {
			log.Errorf(diag.CodeSplitBadCombo, "", "entry %q combines dependOn and runtime, which is not allowed", name)
			result[name] = runtimeset.Of(name)
			return result[name]
		}

		if entry.Options.Runtime != "" {
			result[name] = runtimeset.Of(entry.Options.Runtime)
			return result[name]
		}

		if len(entry.Options.DependOn) == 0 {
			result[name] = runtimeset.Of(name)
			return result[name]
		}

		if state[name] == visiting {
			log.Errorf(diag.CodeSplitDependOnCycle, "", "dependOn %v is circular (via %s)", append(path, name), name)
			result[name] = runtimeset.Of(name)
			return result[name]
		}
		state[name] = visiting
		defer func() { state[name] = done }()

		rt := runtimeset.Set{}
		for _, dep := range entry.Options.DependOn {
			if state[dep] == visiting {
				log.Errorf(diag.CodeSplitDependOnCycle, "", "dependOn %v is circular (via %s)", append(append([]string{}, path...), name), dep)
				onCycle := false
				for _, p := range path {
					onCycle = onCycle || p == dep
					if onCycle {
						cyclic[p] = true
					}
				}
				cyclic[name] = true
				continue
			}
			rt = rt.Union(resolve(dep, append(path, name)))
		}
		if cyclic[name] {
			rt = runtimeset.Of(name)
		}
		result[name] = rt
		return rt
	}

	for _, name := range names {
		resolve(name, nil)
	}
	return result
}

func sortedEntryNames(entries map[string]EntryData) []string {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
