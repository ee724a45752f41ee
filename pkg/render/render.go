package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/debstat/debstat/pkg/archive"
	"github.com/debstat/debstat/pkg/depgraph"
	"github.com/debstat/debstat/pkg/status"
)

// Charset selects the tree drawing characters.
type Charset int

const (
	CharsetUTF8 Charset = iota
	CharsetASCII
)

// Prefix selects how tree depth is shown.
type Prefix int

const (
	// PrefixIndent draws tree branches.
	PrefixIndent Prefix = iota
	// PrefixDepth prints the numeric depth before each line.
	PrefixDepth
	// PrefixNone prints bare package lines.
	PrefixNone
)

// Options controls tree rendering.
type Options struct {
	Charset  Charset
	Prefix   Prefix
	NoDedupe bool // re-expand repeated subtrees instead of marking them
	MaxDepth int  // 0 means unlimited
	Invert   bool // walk incoming edges: "what depends on X"
	Color    bool

	// Focus restricts rendering to the subtrees rooted at the packages
	// matching this "name" or "name:version" spec.
	Focus string

	// Keep, when non-nil, prunes nodes not in the set. Used by the
	// missing-only filter.
	Keep map[depgraph.PackageID]bool
}

// Line is one rendered tree row.
type Line struct {
	ID     depgraph.PackageID
	Depth  int
	Text   string // fully styled display text, without the prefix
	Prefix string // branch drawing or depth marker
	Dedup  bool   // repeated subtree, elided
	Cycle  bool   // closes a dependency cycle
	Header bool   // section header like [dev-dependencies], zero ID
}

// String returns the assembled row.
func (l Line) String() string { return l.Prefix + l.Text }

type symbols struct {
	down, tee, ell, right string
}

var (
	utf8Symbols  = symbols{down: "│   ", tee: "├── ", ell: "└── ", right: "    "}
	asciiSymbols = symbols{down: "|   ", tee: "|-- ", ell: "`-- ", right: "    "}
)

// Lines renders the annotated graph as a sequence of display rows.
// Each row is one node occurrence: a node with several incoming paths
// appears once per path unless deduplication elides the repeat. Output
// order follows the graph's deterministic traversal order.
func Lines(g *depgraph.Graph, statuses status.Map, opts Options) ([]Line, error) {
	roots, err := pickRoots(g, opts)
	if err != nil {
		return nil, err
	}
	r := &renderer{
		g:        g,
		statuses: statuses,
		opts:     opts,
		styles:   newStyles(opts.Color),
		visited:  make(map[depgraph.PackageID]bool),
	}
	if opts.Charset == CharsetASCII {
		r.symbols = asciiSymbols
	} else {
		r.symbols = utf8Symbols
	}
	for i, root := range roots {
		if i > 0 && opts.Prefix == PrefixIndent {
			r.lines = append(r.lines, Line{Header: true})
		}
		r.walk(root, 0, nil, true)
	}
	return r.lines, nil
}

// Write renders the graph to w, one row per line.
func Write(w io.Writer, g *depgraph.Graph, statuses status.Map, opts Options) error {
	lines, err := Lines(g, statuses, opts)
	if err != nil {
		return err
	}
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l.String()); err != nil {
			return err
		}
	}
	return nil
}

func pickRoots(g *depgraph.Graph, opts Options) ([]depgraph.PackageID, error) {
	if opts.Focus == "" {
		return g.Roots, nil
	}
	nodes := g.FindByName(opts.Focus)
	if len(nodes) == 0 {
		return nil, fmt.Errorf("package %q not found in the dependency graph", opts.Focus)
	}
	ids := make([]depgraph.PackageID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids, nil
}

type renderer struct {
	g        *depgraph.Graph
	statuses status.Map
	opts     Options
	styles   styles
	symbols  symbols
	visited  map[depgraph.PackageID]bool
	lines    []Line
}

// walk emits one node and recurses into its children grouped by edge kind.
// branches holds, per ancestor level, whether that level still has
// siblings below.
func (r *renderer) walk(id depgraph.PackageID, depth int, branches []bool, last bool) {
	n, ok := r.g.Node(id)
	if !ok {
		return
	}
	if r.opts.Keep != nil && !r.opts.Keep[id] {
		return
	}

	dedup := !r.opts.NoDedupe && r.visited[id] && len(r.children(n, depgraph.KindNormal)) > 0
	r.visited[id] = true

	r.lines = append(r.lines, Line{
		ID:     id,
		Depth:  depth,
		Prefix: r.prefix(depth, branches, last),
		Text:   r.display(n, dedup),
		Dedup:  dedup,
	})
	if dedup {
		return
	}
	if r.opts.MaxDepth > 0 && depth >= r.opts.MaxDepth {
		return
	}

	normal := r.children(n, depgraph.KindNormal)
	build := r.children(n, depgraph.KindBuild)
	dev := r.children(n, depgraph.KindDev)

	sections := []struct {
		header string
		kids   []childRef
	}{
		{"", normal},
		{"[build-dependencies]", build},
		{"[dev-dependencies]", dev},
	}
	childBranches := append(branches, !last)
	for _, sec := range sections {
		if len(sec.kids) == 0 {
			continue
		}
		if sec.header != "" && r.opts.Prefix == PrefixIndent {
			r.lines = append(r.lines, Line{
				Depth:  depth + 1,
				Prefix: r.sectionPrefix(childBranches),
				Text:   r.styles.dim.Render(sec.header),
				Header: true,
			})
		}
		for i, kid := range sec.kids {
			if kid.cycle {
				r.lines = append(r.lines, Line{
					ID:     kid.id,
					Depth:  depth + 1,
					Prefix: r.prefix(depth+1, childBranches, i == len(sec.kids)-1),
					Text:   r.cycleText(kid.id),
					Cycle:  true,
				})
				continue
			}
			r.walk(kid.id, depth+1, childBranches, i == len(sec.kids)-1)
		}
	}
}

type childRef struct {
	id    depgraph.PackageID
	cycle bool
}

func (r *renderer) children(n *depgraph.Node, kind depgraph.EdgeKind) []childRef {
	edges := n.Out
	if r.opts.Invert {
		edges = n.In
	}
	var kids []childRef
	seen := make(map[depgraph.PackageID]bool)
	for _, e := range edges {
		if e.Kind != kind {
			continue
		}
		id := e.To
		if r.opts.Invert {
			id = e.From
		}
		if seen[id] {
			continue
		}
		if r.opts.Keep != nil && !r.opts.Keep[id] {
			continue
		}
		seen[id] = true
		kids = append(kids, childRef{id: id, cycle: e.Cycle})
	}
	return kids
}

func (r *renderer) prefix(depth int, branches []bool, last bool) string {
	switch r.opts.Prefix {
	case PrefixDepth:
		return fmt.Sprintf("%d", depth)
	case PrefixNone:
		return ""
	}
	if depth == 0 {
		return ""
	}
	var b strings.Builder
	for _, open := range branches[1:] {
		if open {
			b.WriteString(r.symbols.down)
		} else {
			b.WriteString(r.symbols.right)
		}
	}
	if last {
		b.WriteString(r.symbols.ell)
	} else {
		b.WriteString(r.symbols.tee)
	}
	return b.String()
}

// sectionPrefix indents a kind header to its children's level without a
// branch glyph.
func (r *renderer) sectionPrefix(branches []bool) string {
	var b strings.Builder
	for _, open := range branches[1:] {
		if open {
			b.WriteString(r.symbols.down)
		} else {
			b.WriteString(r.symbols.right)
		}
	}
	return b.String()
}

// display assembles the styled text for one node: name, version, source
// hint, status annotation and the elision marker.
func (r *renderer) display(n *depgraph.Node, dedup bool) string {
	var b strings.Builder
	st := r.statuses[n.ID]
	style := r.styles.forKind(st.Archive.Kind)

	b.WriteString(style.Render(n.ID.Name + " v" + n.ID.Version))
	switch n.ID.Source {
	case depgraph.SourcePath:
		if n.ManifestDir != "" {
			b.WriteString(r.styles.dim.Render(" (" + n.ManifestDir + ")"))
		}
	case depgraph.SourceGit:
		b.WriteString(r.styles.dim.Render(" (git)"))
	}
	if ann := r.annotation(st); ann != "" {
		b.WriteString(" ")
		b.WriteString(ann)
	}
	if dedup {
		b.WriteString(" " + r.styles.dim.Render("(*)"))
	}
	return b.String()
}

func (r *renderer) annotation(st status.NodeStatus) string {
	k := st.Archive.Kind
	if k == archive.NotPackageable {
		return ""
	}
	style := r.styles.forKind(k)
	return style.Render(glyph(k, r.opts.Charset == CharsetASCII) + " " + st.Archive.Annotation())
}

func (r *renderer) cycleText(id depgraph.PackageID) string {
	return r.styles.dim.Render(id.String() + " (cycle)")
}
