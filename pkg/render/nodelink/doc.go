// Package nodelink renders query results as node-link diagrams.
//
// # Usage
//
// Convert the matched nodes of a graph to DOT, then render to SVG:
//
//	dot := nodelink.ToDOT(g, nodes, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(dot)
//
// Only matched nodes are drawn. An edge is drawn when both of its ends were
// matched; edges that reach a matched node through a link are drawn to that
// node.
//
// # Styling
//
// Link nodes have dashed outlines and workspace members a light fill. Edge
// styles follow the dependency type: dev edges are dashed, optional edges
// dotted and peer edges grey. With [Options.Detailed] node labels carry
// the install location and edge labels the declared range.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package nodelink
