// Package render groups the visual renderers of query results.
//
// The [nodelink] subpackage draws the matched packages and the edges between
// them as a Graphviz graph, either as DOT source or rendered to SVG.
package render
