package status

import (
	"github.com/debstat/debstat/pkg/archive"
	"github.com/debstat/debstat/pkg/depgraph"
)

// MissingOnly returns the set of nodes worth showing when the user asks
// for packaging work only: nodes whose own status needs an upload, plus
// every ancestor on a path to one.
//
// A node the archive already carries at a newer version prunes its whole
// subtree: its dependencies are vendored by the existing archive package,
// so their absence is not actionable.
func MissingOnly(g *depgraph.Graph, statuses Map) map[depgraph.PackageID]bool {
	keep := make(map[depgraph.PackageID]bool)
	memo := make(map[depgraph.PackageID]bool)
	visiting := make(map[depgraph.PackageID]bool)

	var relevant func(id depgraph.PackageID) bool
	relevant = func(id depgraph.PackageID) bool {
		if v, ok := memo[id]; ok {
			return v
		}
		if visiting[id] {
			return false
		}
		visiting[id] = true
		defer delete(visiting, id)

		st := statuses[id]
		if st.Archive.Kind == archive.Newer {
			memo[id] = false
			return false
		}

		v := needsWork(st.Archive.Kind)
		n, ok := g.Node(id)
		if ok {
			for _, e := range n.Out {
				if e.Cycle {
					continue
				}
				if relevant(e.To) {
					v = true
				}
			}
		}
		memo[id] = v
		if v {
			keep[id] = true
		}
		return v
	}

	for _, root := range g.Roots {
		if relevant(root) {
			keep[root] = true
		}
	}
	return keep
}

func needsWork(k archive.StatusKind) bool {
	switch k {
	case archive.Missing, archive.Outdated, archive.LookupFailed:
		return true
	default:
		return false
	}
}
