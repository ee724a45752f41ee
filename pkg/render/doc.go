// Package render turns an annotated dependency graph into user-facing
// output.
//
// Three formats are supported:
//
//   - Text trees ([Lines], [Write]): one row per node occurrence with a
//     status glyph and color, branch drawing in UTF-8 or ASCII, optional
//     depth prefixes, subtree deduplication markers and kind section
//     headers.
//   - JSON ([WriteJSONLines], [WriteReport]): machine-readable rows, or a
//     whole-run report envelope with an id and summary totals.
//   - Graphviz ([ToDOT], [RenderSVG]): the graph as a status-colored
//     node-link diagram.
//
// Rendering is pure: it never queries the archive and is deterministic
// for a given graph and status map.
package render
