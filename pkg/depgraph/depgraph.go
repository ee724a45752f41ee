// Package depgraph builds the in-memory dependency graph that the rest of
// the tool annotates and renders.
//
// The builder consumes a resolver snapshot and produces a deduplicated
// directed graph: one node per resolved package instance, one edge per
// (dependency kind, platform conditional) pair between two instances.
// Parallel edges between the same nodes are preserved because their kinds
// affect status aggregation differently. The graph is mostly a tree but may
// contain cycles through dev-dependency edges; such back-edges are detected
// during construction and tagged so traversals can short-circuit them.
//
// Graphs are built once per invocation and are read-only afterwards.
package depgraph

import (
	"fmt"
	"strings"
)

// Source classifies where a resolved package instance comes from.
type Source int

const (
	// SourceRegistry is a package fetched from a package registry.
	SourceRegistry Source = iota
	// SourceGit is a package pinned to a git revision.
	SourceGit
	// SourcePath is a local filesystem package, including workspace members.
	SourcePath
)

func (s Source) String() string {
	switch s {
	case SourceGit:
		return "git"
	case SourcePath:
		return "path"
	default:
		return "registry"
	}
}

// PackageID uniquely identifies a resolved package instance.
// Two references to the same name+version+source are one graph node.
type PackageID struct {
	Name    string
	Version string
	Source  Source
}

func (id PackageID) String() string {
	return fmt.Sprintf("%s v%s", id.Name, id.Version)
}

// EdgeKind is the dependency kind an edge was declared under.
type EdgeKind int

const (
	// KindNormal is a regular runtime dependency.
	KindNormal EdgeKind = iota
	// KindBuild is a build-script dependency.
	KindBuild
	// KindDev is a test/bench-only dependency.
	KindDev
)

func (k EdgeKind) String() string {
	switch k {
	case KindBuild:
		return "build"
	case KindDev:
		return "dev"
	default:
		return "normal"
	}
}

// Edge is a single dependency declaration between two resolved packages.
// Multiple edges may connect the same pair of nodes, one per kind and
// platform conditional under which the dependency was declared.
type Edge struct {
	From        PackageID
	To          PackageID
	Requirement string   // declared version requirement, e.g. "^1.2"
	Kind        EdgeKind
	Optional    bool
	Platform    string   // cfg expression or target triple, empty if unconditional
	Features    []string // features the declaration enables on the target
	Cycle       bool     // true if this edge closes a cycle back to an ancestor
}

// Hard reports whether the edge gates packaging readiness: a normal or
// build dependency that is not optional and not a cycle back-edge.
func (e *Edge) Hard() bool {
	return e.Kind != KindDev && !e.Optional && !e.Cycle
}

// Node is one resolved package instance with its adjacency.
// Nodes are created once by Build and never mutated afterwards.
type Node struct {
	ID              PackageID
	Features        []string // enabled features, sorted
	WorkspaceMember bool
	License         string
	Repository      string
	ManifestDir     string

	Out []*Edge // outgoing edges in deterministic order
	In  []*Edge // incoming edges
}

// Graph is the deduplicated dependency graph.
type Graph struct {
	nodes map[PackageID]*Node
	order []PackageID // discovery order from the roots
	Roots []PackageID
}

// Node returns the node for id, if present.
func (g *Graph) Node(id PackageID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes in discovery order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// RegistryIDs returns the IDs of all registry-sourced nodes in discovery
// order. These are the packages worth looking up in the archive; path and
// git packages are never queried.
func (g *Graph) RegistryIDs() []PackageID {
	var ids []PackageID
	for _, id := range g.order {
		if id.Source == SourceRegistry {
			ids = append(ids, id)
		}
	}
	return ids
}

// FindByName returns all nodes whose package name matches name, in
// discovery order. An optional "name:version" spec narrows to one version.
func (g *Graph) FindByName(spec string) []*Node {
	name, version, _ := strings.Cut(spec, ":")
	var out []*Node
	for _, id := range g.order {
		if id.Name != name {
			continue
		}
		if version != "" && id.Version != version {
			continue
		}
		out = append(out, g.nodes[id])
	}
	return out
}

// Duplicates returns the IDs of packages resolved at more than one version,
// grouped by name, in discovery order.
func (g *Graph) Duplicates() []PackageID {
	byName := make(map[string][]PackageID)
	for _, id := range g.order {
		byName[id.Name] = append(byName[id.Name], id)
	}
	var dups []PackageID
	for _, id := range g.order {
		if len(byName[id.Name]) > 1 {
			dups = append(dups, id)
		}
	}
	return dups
}
