package splitter

import (
	"sort"

	"github.com/bundlecore/bundlecore/internal/graph"
)

// Relations holds the per-root parent/child index sets Stage 4 computes
// (spec.md §4.6 "Stage 4 — chunk-relation calculation"), keyed by
// ChunkRoot.Key.
type Relations struct {
	Parents  map[string][]string
	Children map[string][]string
}

// ComputeRelations builds parent/child relations from the block-ownership
// implied by each desc's OutgoingBlocks: a root R1 is a parent of root R2
// when some block owned by R2 (one of R2's BlockIDs) appears in R1's
// OutgoingBlocks. Children are deterministic by the order OutgoingBlocks
// were visited (spec.md: "children = dual relation, deterministic by the
// order outgoing_blocks were visited").
func ComputeRelations(descs []*ChunkDesc) Relations {
	blockOwner := map[graph.BlockID]string{}
	for _, d := range descs {
		for _, b := range d.Root.BlockIDs {
			blockOwner[b] = d.Root.Key
		}
	}

	rel := Relations{Parents: map[string][]string{}, Children: map[string][]string{}}
	childSeen := map[string]map[string]bool{}
	parentSeen := map[string]map[string]bool{}

	for _, d := range descs {
		parentKey := d.Root.Key
		for _, b := range d.OutgoingBlocks {
			childKey, ok := blockOwner[b]
			if !ok || childKey == parentKey {
				continue
			}
			if childSeen[parentKey] == nil {
				childSeen[parentKey] = map[string]bool{}
			}
			if !childSeen[parentKey][childKey] {
				childSeen[parentKey][childKey] = true
				rel.Children[parentKey] = append(rel.Children[parentKey], childKey)
			}
			if parentSeen[childKey] == nil {
				parentSeen[childKey] = map[string]bool{}
			}
			if !parentSeen[childKey][parentKey] {
				parentSeen[childKey][parentKey] = true
				rel.Parents[childKey] = append(rel.Parents[childKey], parentKey)
			}
		}
	}

	for _, d := range descs {
		if d.Root.Kind != RootEntry {
			continue
		}
		deps := append([]string(nil), d.Root.EntryData.Options.DependOn...)
		sort.Strings(deps)
		for _, dep := range deps {
			parentKey := "entry:" + dep
			if parentSeen[d.Root.Key] == nil {
				parentSeen[d.Root.Key] = map[string]bool{}
			}
			if !parentSeen[d.Root.Key][parentKey] {
				parentSeen[d.Root.Key][parentKey] = true
				rel.Parents[d.Root.Key] = append(rel.Parents[d.Root.Key], parentKey)
			}
		}
	}

	return rel
}
