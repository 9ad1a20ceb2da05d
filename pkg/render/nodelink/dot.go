package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/depquery/pkg/tree"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds locations to node labels and ranges to edge labels.
	// When false, nodes show only their pkgid.
	Detailed bool
}

// ToDOT converts the matched nodes of g to Graphviz DOT. Nodes are emitted
// in the order given, so the output is as stable as the query result.
func ToDOT(g *tree.Graph, nodes []*tree.Node, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	matched := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		matched[n.Location] = true
	}

	for _, n := range nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", nodeID(n), strings.Join(fmtAttrs(n, opts.Detailed), ", "))
	}

	buf.WriteString("\n")
	for _, n := range nodes {
		for _, e := range g.EdgesOut(n) {
			to, ok := endpoint(g, e.To, matched)
			if !ok {
				continue
			}
			fmt.Fprintf(&buf, "  %q -> %q", nodeID(n), to)
			if attrs := edgeAttrs(e, opts.Detailed); len(attrs) > 0 {
				fmt.Fprintf(&buf, " [%s]", strings.Join(attrs, ", "))
			}
			buf.WriteString(";\n")
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// endpoint returns the DOT id an edge into location should point at, if the
// location or its link target was matched.
func endpoint(g *tree.Graph, location string, matched map[string]bool) (string, bool) {
	if matched[location] {
		n, _ := g.Node(location)
		return nodeID(n), true
	}
	if n, ok := g.Node(location); ok && n.IsLink && n.Target != nil && matched[n.Target.Location] {
		return nodeID(n.Target), true
	}
	return "", false
}

func nodeID(n *tree.Node) string {
	if n.Location == "" {
		return "."
	}
	return n.Location
}

func fmtAttrs(n *tree.Node, detailed bool) []string {
	label := n.PkgID()
	if detailed {
		label += "\n" + nodeID(n)
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.IsLink:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"")
	case n.IsWorkspace:
		attrs = append(attrs, "fillcolor=lightyellow")
	}
	if n.IsRoot {
		attrs = append(attrs, "penwidth=2")
	}
	return attrs
}

func edgeAttrs(e tree.Edge, detailed bool) []string {
	var attrs []string
	if detailed {
		attrs = append(attrs, fmt.Sprintf("label=%q", e.Spec))
	}
	switch e.Type {
	case tree.DepDev:
		attrs = append(attrs, "style=dashed")
	case tree.DepOptional:
		attrs = append(attrs, "style=dotted")
	case tree.DepPeer:
		attrs = append(attrs, "color=grey")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
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
