package usage

import (
	"sort"

	"github.com/bundlecore/bundlecore/internal/exports"
)

// ComputeStarInfo decides star-export visibility between a reexporting
// module's own local names and a star target's exports-info (spec.md
// §4.4 rule 6). Full visibility lets the splitter/renderer enumerate every
// provided name up front as a NormalReexport; partial visibility (the
// target's catch-all is Unknown, e.g. a CommonJS module with computed
// keys) falls back to a DynamicReexport that defers name resolution to
// runtime, ignoring names the consumer shadows locally plus "default"
// (spec.md §7.1 invariant: "A star-reexport of a module with provided =
// Unknown yields DynamicReexport with ignored = active_exports ∪
// {\"default\"}").
func ComputeStarInfo(target *exports.ExportsInfo, ownLocalNames map[string]bool) StarInfo {
	if target.Other.Provided == exports.ProvidedUnknown {
		ignored := make([]string, 0, len(ownLocalNames)+1)
		for name := range ownLocalNames {
			ignored = append(ignored, name)
		}
		sort.Strings(ignored)
		ignored = append(ignored, "default")
		return StarInfo{FullVisibility: false, Ignored: ignored}
	}

	var items []NormalReexportItem
	for _, name := range target.Names() {
		if name == "default" || ownLocalNames[name] {
			continue
		}
		info, _ := target.Get(name)
		if info.Provided != exports.ProvidedTrue && info.Provided != exports.ProvidedUnknown {
			continue
		}
		items = append(items, NormalReexportItem{
			Name:       name,
			Ids:        []string{name},
			Checked:    info.Provided == exports.ProvidedUnknown,
			ExportInfo: info,
		})
	}
	return StarInfo{FullVisibility: true, Items: items}
}

// ConflictingStarNames returns the names provided (Provided == True or
// Unknown) by at least two of the given star targets and not shadowed by
// ownLocalNames, for the "one warning per conflicting name" diagnostic
// (spec.md §8 scenario 4).
func ConflictingStarNames(targets []*exports.ExportsInfo, ownLocalNames map[string]bool) []string {
	counts := map[string]int{}
	for _, target := range targets {
		seen := map[string]bool{}
		for _, name := range target.Names() {
			if name == "default" || ownLocalNames[name] || seen[name] {
				continue
			}
			info, _ := target.Get(name)
			if info.Provided != exports.ProvidedTrue && info.Provided != exports.ProvidedUnknown {
				continue
			}
			seen[name] = true
			counts[name]++
		}
	}
	var conflicts []string
	for name, count := range counts {
		if count >= 2 {
			conflicts = append(conflicts, name)
		}
	}
	sort.Strings(conflicts)
	return conflicts
}
