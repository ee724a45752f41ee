package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/debstat/debstat/pkg/archive"
	"github.com/debstat/debstat/pkg/depgraph"
	"github.com/debstat/debstat/pkg/status"
)

// DOTOptions configures graph export.
type DOTOptions struct {
	// Detailed adds the archive status text to each node label.
	Detailed bool
}

// ToDOT converts the annotated graph to Graphviz DOT. Nodes are filled
// with their status color; cycle back-edges are dashed; dev edges dotted.
// The result renders with [RenderSVG] or external Graphviz tooling.
func ToDOT(g *depgraph.Graph, statuses status.Map, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph deps {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontsize=12, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		st := statuses[n.ID]
		attrs := []string{
			fmt.Sprintf("label=%q", dotLabel(n, st, opts.Detailed)),
			fmt.Sprintf("fillcolor=%q", fillColor(st.Archive.Kind)),
		}
		if st.Blocking {
			attrs = append(attrs, "penwidth=2")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID.String(), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, n := range g.Nodes() {
		for _, e := range n.Out {
			var attrs []string
			if e.Cycle {
				attrs = append(attrs, "style=dashed")
			}
			if e.Kind == depgraph.KindDev {
				attrs = append(attrs, "style=dotted", "color=grey")
			}
			if len(attrs) > 0 {
				fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From.String(), e.To.String(), strings.Join(attrs, ", "))
			} else {
				fmt.Fprintf(&buf, "  %q -> %q;\n", e.From.String(), e.To.String())
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func dotLabel(n *depgraph.Node, st status.NodeStatus, detailed bool) string {
	label := n.ID.String()
	if detailed {
		label += "\n" + st.Archive.Annotation()
	}
	return label
}

func fillColor(k archive.StatusKind) string {
	switch k {
	case archive.InArchive:
		return "palegreen"
	case archive.InNewQueue:
		return "lightblue"
	case archive.Outdated:
		return "khaki"
	case archive.Missing:
		return "lightcoral"
	case archive.Newer:
		return "paleturquoise"
	case archive.LookupFailed:
		return "plum"
	default:
		return "lightgrey"
	}
}

// RenderSVG renders DOT source to SVG in process.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root svg tag so width/height match the
// viewBox, keeping the output stable across graphviz versions.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
