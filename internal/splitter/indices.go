package splitter

import "sort"

// AssignGroupIndices implements spec.md §4.6 "Stage 7 — second-pass
// indices": a breadth-first walk from entries assigns each chunk-group an
// Index, deferring entry into child groups until all siblings at the
// current level are processed — matching webpack's deterministic
// numbering (breadth-level order, not a naive DFS that would number a
// deep branch before its own siblings).
func AssignGroupIndices(cg *ChunkGraph) {
	roots := make([]*ChunkGroup, 0)
	for _, g := range cg.groups {
		if len(g.Parents) == 0 {
			roots = append(roots, g)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })

	counter := 0
	visited := map[*ChunkGroup]bool{}
	queue := append([]*ChunkGroup(nil), roots...)
	for len(queue) > 0 {
		level := queue
		queue = nil
		sort.Slice(level, func(i, j int) bool { return groupSortKey(level[i]) < groupSortKey(level[j]) })
		for _, g := range level {
			if visited[g] {
				continue
			}
			visited[g] = true
			g.Index = counter
			counter++
			for _, childKey := range g.Children {
				if child, ok := cg.groups[childKey]; ok && !visited[child] {
					queue = append(queue, child)
				}
			}
			for _, childKey := range g.AsyncEntrypointChildren {
				if child, ok := cg.groups[childKey]; ok && !visited[child] {
					queue = append(queue, child)
				}
			}
		}
	}
}

func groupSortKey(g *ChunkGroup) string {
	if g.Name != "" {
		return g.Name
	}
	return "\xff" // unnamed groups sort after named ones, deterministically among themselves by insertion below
}
