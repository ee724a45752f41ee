// Package status annotates a dependency graph with archive availability
// and propagates packaging readiness upward.
//
// A node is Blocking when its own archive status needs work or when any
// hard dependency below it is Blocking. Hard means the edge is required to
// build: normal or build kind, not optional, not a cycle back-edge.
package status

import (
	"context"
	"slices"

	"github.com/debstat/debstat/pkg/archive"
	"github.com/debstat/debstat/pkg/depgraph"
)

// NodeStatus is the computed state of one graph node.
type NodeStatus struct {
	Archive  archive.Status
	Blocking bool
	// BlockedBy lists the direct hard dependencies that are themselves
	// Blocking, sorted by name then version.
	BlockedBy []depgraph.PackageID
}

// Map holds the computed status per package.
type Map map[depgraph.PackageID]NodeStatus

// Compute walks the graph in post-order from its roots and fills in the
// status map. Dependencies are evaluated before dependents; a node on the
// current visiting path that is reached again through a cycle contributes
// nothing from that back-edge.
//
// Registry packages are looked up through the oracle; path and git sources
// are NotPackageable and never queried, but still propagate blocking from
// their hard dependencies. Lookup failures are conservatively Blocking.
//
// The walk order is the graph's discovery order, so repeated runs over the
// same graph and oracle produce identical maps.
func Compute(ctx context.Context, g *depgraph.Graph, oracle archive.Oracle) Map {
	c := &computer{
		g:        g,
		oracle:   oracle,
		ctx:      ctx,
		statuses: make(Map, g.Len()),
		visiting: make(map[depgraph.PackageID]bool),
	}
	for _, root := range g.Roots {
		c.visit(root)
	}
	// Unrooted remainder can occur when roots were filtered after the
	// graph was built; keep the map total.
	for _, n := range g.Nodes() {
		c.visit(n.ID)
	}
	return c.statuses
}

type computer struct {
	g        *depgraph.Graph
	oracle   archive.Oracle
	ctx      context.Context
	statuses Map
	visiting map[depgraph.PackageID]bool
}

func (c *computer) visit(id depgraph.PackageID) NodeStatus {
	if st, ok := c.statuses[id]; ok {
		return st
	}
	if c.visiting[id] {
		// Cycle back-edge: report non-blocking from this edge. The true
		// status lands in the map once the ancestor finishes.
		return NodeStatus{}
	}
	c.visiting[id] = true
	defer delete(c.visiting, id)

	n, ok := c.g.Node(id)
	if !ok {
		return NodeStatus{}
	}

	st := NodeStatus{Archive: c.own(id)}
	st.Blocking = id.Source == depgraph.SourceRegistry && !st.Archive.Satisfying()

	for _, e := range n.Out {
		child := c.visit(e.To)
		if !e.Hard() {
			continue
		}
		if child.Blocking {
			st.Blocking = true
			if !slices.Contains(st.BlockedBy, e.To) {
				st.BlockedBy = append(st.BlockedBy, e.To)
			}
		}
	}
	slices.SortFunc(st.BlockedBy, func(a, b depgraph.PackageID) int {
		if a.Name != b.Name {
			if a.Name < b.Name {
				return -1
			}
			return 1
		}
		if a.Version < b.Version {
			return -1
		}
		if a.Version > b.Version {
			return 1
		}
		return 0
	})

	c.statuses[id] = st
	return st
}

func (c *computer) own(id depgraph.PackageID) archive.Status {
	if id.Source != depgraph.SourceRegistry {
		return archive.Status{Kind: archive.NotPackageable}
	}
	return c.oracle.Lookup(c.ctx, id.Name, id.Version)
}
