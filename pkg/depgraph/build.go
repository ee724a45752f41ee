package depgraph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/debstat/debstat/pkg/resolve"
	"github.com/debstat/debstat/pkg/semver"
)

// Options controls graph construction.
type Options struct {
	NoDev             bool     // drop dev-dependency edges entirely
	Target            string   // target triple for platform filtering, empty = all platforms
	AllTargets        bool     // ignore platform conditionals
	Include           []string // workspace members to keep as roots (names), empty = all
	Exclude           []string // workspace members to drop from the roots
	CollapseWorkspace bool     // drop roots that are dependencies of other roots
}

// Build constructs the deduplicated graph from a resolver snapshot.
//
// Nodes are deduplicated by PackageID. Edges carry the declared requirement,
// kind, platform conditional and feature list of the manifest declaration
// they come from. Optional dependencies not activated by any enabled feature
// are excluded. Cycle-closing edges are tagged rather than removed. Nodes
// unreachable from the retained roots are pruned.
//
// A malformed requirement expression anywhere in the snapshot aborts the
// build with a *semver.ParseError: it signals corrupt input that cannot be
// reasoned about safely.
func Build(snap *resolve.Snapshot, opts Options) (*Graph, error) {
	b := &builder{
		snap:   snap,
		opts:   opts,
		ids:    make(map[string]PackageID),
		pkgs:   make(map[string]*resolve.Package),
		rnodes: make(map[string]*resolve.Node),
		g: &Graph{
			nodes: make(map[PackageID]*Node),
		},
	}
	if err := b.index(); err != nil {
		return nil, err
	}
	b.unifyFeatures()
	for rid, set := range b.enabled {
		n := b.g.nodes[b.ids[rid]]
		for f := range set {
			if !slices.Contains(n.Features, f) {
				n.Features = append(n.Features, f)
			}
		}
		slices.Sort(n.Features)
	}
	if err := b.addEdges(); err != nil {
		return nil, err
	}
	if err := b.pickRoots(); err != nil {
		return nil, err
	}
	b.traverse()
	return b.g, nil
}

type builder struct {
	snap   *resolve.Snapshot
	opts   Options
	ids    map[string]PackageID         // resolver ID -> PackageID
	pkgs   map[string]*resolve.Package  // resolver ID -> package record
	rnodes map[string]*resolve.Node     // resolver ID -> resolve node
	g      *Graph

	enabled map[string]map[string]bool // resolver ID -> enabled feature set
	liveDep map[string]map[string]bool // resolver ID -> activated optional dep names
	active  map[string]bool            // resolver ID -> package reachable via live edges
}

// index validates the snapshot and creates one node per resolved package.
func (b *builder) index() error {
	for i := range b.snap.Packages {
		pkg := &b.snap.Packages[i]
		id := parseID(pkg)
		b.ids[pkg.ID] = id
		b.pkgs[pkg.ID] = pkg

		for _, d := range pkg.Dependencies {
			if _, err := semver.ParseRequirement(d.Req); err != nil {
				return fmt.Errorf("package %s, dependency %s: %w", pkg.Name, d.Name, err)
			}
		}

		if _, exists := b.g.nodes[id]; exists {
			continue
		}
		b.g.nodes[id] = &Node{
			ID:          id,
			License:     pkg.License,
			Repository:  pkg.Repository,
			ManifestDir: manifestDir(pkg.ManifestPath),
		}
	}
	for i := range b.snap.Resolve.Nodes {
		n := &b.snap.Resolve.Nodes[i]
		b.rnodes[n.ID] = n
	}
	for _, m := range b.snap.WorkspaceMembers {
		if id, ok := b.ids[m]; ok {
			b.g.nodes[id].WorkspaceMember = true
		}
	}
	return nil
}

// addEdges materializes the kept edges of the resolved graph.
func (b *builder) addEdges() error {
	for i := range b.snap.Resolve.Nodes {
		rn := &b.snap.Resolve.Nodes[i]
		fromPkg, ok := b.pkgs[rn.ID]
		if !ok {
			continue
		}
		from := b.g.nodes[b.ids[rn.ID]]

		deps := slices.Clone(rn.Deps)
		slices.SortFunc(deps, func(a, c resolve.NodeDep) int {
			return strings.Compare(a.Pkg, c.Pkg)
		})

		for _, dep := range deps {
			toPkg, ok := b.pkgs[dep.Pkg]
			if !ok {
				continue
			}
			to := b.g.nodes[b.ids[dep.Pkg]]

			for _, dk := range dep.DepKinds {
				kind := parseKind(dk.Kind)
				if kind == KindDev && b.opts.NoDev {
					continue
				}
				applies, err := b.applies(dk.Target)
				if err != nil {
					return err
				}
				if !applies {
					continue
				}

				decl := findDecl(fromPkg, toPkg.Name, dep.Name, dk.Kind)
				req := "*"
				optional := false
				var features []string
				if decl != nil {
					req = decl.Req
					optional = decl.Optional
					features = decl.Features
				}
				if optional && !b.liveDep[rn.ID][normalizeName(toPkg.Name)] {
					continue
				}

				e := &Edge{
					From:        from.ID,
					To:          to.ID,
					Requirement: req,
					Kind:        kind,
					Optional:    optional,
					Platform:    dk.Target,
					Features:    features,
				}
				from.Out = append(from.Out, e)
				to.In = append(to.In, e)
			}
		}
	}
	return nil
}

// pickRoots selects the workspace members that anchor the traversal.
func (b *builder) pickRoots() error {
	var roots []PackageID
	for _, m := range b.snap.WorkspaceMembers {
		if id, ok := b.ids[m]; ok {
			roots = append(roots, id)
		}
	}
	if len(roots) == 0 && b.snap.Resolve.Root != "" {
		if id, ok := b.ids[b.snap.Resolve.Root]; ok {
			roots = append(roots, id)
		}
	}
	slices.SortFunc(roots, compareID)

	if len(b.opts.Include) > 0 {
		roots = slices.DeleteFunc(roots, func(id PackageID) bool {
			return !slices.Contains(b.opts.Include, id.Name)
		})
		if len(roots) == 0 {
			return fmt.Errorf("no workspace member matches --include %s", strings.Join(b.opts.Include, ","))
		}
	}
	if b.opts.CollapseWorkspace {
		roots = b.collapse(roots)
	}
	if len(b.opts.Exclude) > 0 {
		roots = slices.DeleteFunc(roots, func(id PackageID) bool {
			return slices.Contains(b.opts.Exclude, id.Name)
		})
	}
	if len(roots) == 0 {
		return fmt.Errorf("no root packages left after filtering")
	}
	b.g.Roots = roots
	return nil
}

// collapse drops roots that are reachable as dependencies of other roots,
// so a workspace library used by a workspace binary is reported once.
func (b *builder) collapse(roots []PackageID) []PackageID {
	reachable := make(map[PackageID]bool)
	for _, root := range roots {
		b.reach(root, root, reachable, make(map[PackageID]bool))
	}
	return slices.DeleteFunc(roots, func(id PackageID) bool {
		return reachable[id]
	})
}

func (b *builder) reach(origin, id PackageID, reachable, seen map[PackageID]bool) {
	if seen[id] {
		return
	}
	seen[id] = true
	for _, e := range b.g.nodes[id].Out {
		if e.To != origin {
			reachable[e.To] = reachable[e.To] || b.g.nodes[e.To].WorkspaceMember
		}
		b.reach(origin, e.To, reachable, seen)
	}
}

// traverse records discovery order from the roots, tags cycle back-edges
// with depth-first white/gray/black coloring, and prunes nodes the roots
// cannot reach.
func (b *builder) traverse() {
	const (
		white = iota
		gray
		black
	)
	color := make(map[PackageID]int)
	var order []PackageID

	var dfs func(id PackageID)
	dfs = func(id PackageID) {
		color[id] = gray
		order = append(order, id)
		for _, e := range b.g.nodes[id].Out {
			switch color[e.To] {
			case white:
				dfs(e.To)
			case gray:
				e.Cycle = true
			}
		}
		color[id] = black
	}

	for _, root := range b.g.Roots {
		if color[root] == white {
			dfs(root)
		}
	}

	for id, n := range b.g.nodes {
		if color[id] == white {
			delete(b.g.nodes, id)
			continue
		}
		n.Out = slices.DeleteFunc(n.Out, func(e *Edge) bool {
			return color[e.To] == white
		})
		n.In = slices.DeleteFunc(n.In, func(e *Edge) bool {
			return color[e.From] == white
		})
	}
	b.g.order = order
}

func (b *builder) applies(platform string) (bool, error) {
	if b.opts.AllTargets {
		return true, nil
	}
	return platformApplies(platform, b.opts.Target)
}

// findDecl locates the manifest declaration behind a resolved edge.
// The resolver reports the target's package name; declarations may use a
// rename, so both are compared after name normalization.
func findDecl(from *resolve.Package, pkgName, depName, kind string) *resolve.Dependency {
	want := normalizeName(pkgName)
	wantDep := normalizeName(depName)
	for i := range from.Dependencies {
		d := &from.Dependencies[i]
		if d.Kind != kind {
			continue
		}
		if normalizeName(d.Name) == want || normalizeName(d.RenamedAs) == wantDep {
			return d
		}
	}
	return nil
}

func parseID(pkg *resolve.Package) PackageID {
	src := SourceRegistry
	switch {
	case pkg.Source == "":
		src = SourcePath
	case strings.HasPrefix(pkg.Source, "git+"):
		src = SourceGit
	}
	return PackageID{Name: pkg.Name, Version: pkg.Version, Source: src}
}

func parseKind(kind string) EdgeKind {
	switch kind {
	case "build":
		return KindBuild
	case "dev":
		return KindDev
	default:
		return KindNormal
	}
}

func compareID(a, b PackageID) int {
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	if c := strings.Compare(a.Version, b.Version); c != 0 {
		return c
	}
	return int(a.Source) - int(b.Source)
}

func normalizeName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

func manifestDir(path string) string {
	if i := strings.LastIndexByte(path, '/'); i > 0 {
		return path[:i]
	}
	return path
}
