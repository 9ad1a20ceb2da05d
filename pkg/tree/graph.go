package tree

import (
	"cmp"
	"errors"
	"slices"
)

var (
	// ErrDuplicateLocation is returned by [Graph.AddNode] when a node already
	// occupies the location. Every location holds at most one node.
	ErrDuplicateLocation = errors.New("duplicate node location")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the To node
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrNoRoot is returned by [Graph.Validate] when the graph has no node at
	// location "".
	ErrNoRoot = errors.New("graph has no root node")

	// ErrLinkMismatch is returned by [Graph.Validate] when a node's link flag
	// disagrees with its path and realpath.
	ErrLinkMismatch = errors.New("node realpath differs from path but node is not a link")
)

// Graph is an install tree: nodes keyed by location and the dependency edges
// between them.
//
// The zero value is not usable; use [New]. A Graph is built by a single
// goroutine and is safe for concurrent reads afterwards.
type Graph struct {
	Root   *Node
	Global bool

	nodes    map[string]*Node
	order    []*Node
	edges    []Edge
	outgoing map[string][]Edge // location -> edges out
	incoming map[string][]Edge // location -> edges in
	missing  map[string][]Edge // location -> unresolved declarations
	links    map[string][]*Node
	index    map[string]int // location -> position in order
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]Edge),
		incoming: make(map[string][]Edge),
		missing:  make(map[string][]Edge),
		links:    make(map[string][]*Node),
		index:    make(map[string]int),
	}
}

// AddNode adds n at its location. The node at location "" becomes the root.
func (g *Graph) AddNode(n *Node) error {
	if _, exists := g.nodes[n.Location]; exists {
		return ErrDuplicateLocation
	}
	g.nodes[n.Location] = n
	g.index[n.Location] = len(g.order)
	g.order = append(g.order, n)
	if n.Location == "" {
		n.IsRoot = true
		g.Root = n
	}
	if n.IsLink && n.Target != nil {
		g.links[n.Target.Location] = append(g.links[n.Target.Location], n)
	}
	return nil
}

// AddEdge records a resolved dependency between two existing nodes.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := g.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	g.edges = append(g.edges, e)
	g.outgoing[e.From] = append(g.outgoing[e.From], e)
	g.incoming[e.To] = append(g.incoming[e.To], e)
	return nil
}

// AddMissing records a declaration of from that no installed package satisfies.
func (g *Graph) AddMissing(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	e.To = ""
	g.missing[e.From] = append(g.missing[e.From], e)
	return nil
}

// Node returns the node at location.
func (g *Graph) Node(location string) (*Node, bool) {
	n, ok := g.nodes[location]
	return n, ok
}

// Nodes returns all nodes in graph order. After [Build] this is breadth-first
// order from the root, followed by unreachable nodes sorted by location.
func (g *Graph) Nodes() []*Node { return slices.Clone(g.order) }

// Edges returns a copy of all resolved edges.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of resolved edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Position returns the index of the node at location in graph order, or -1.
func (g *Graph) Position(location string) int {
	if i, ok := g.index[location]; ok {
		return i
	}
	return -1
}

// EdgesOut returns the edges leaving n. Link nodes report their target's edges.
func (g *Graph) EdgesOut(n *Node) []Edge {
	return g.outgoing[n.Resolve().Location]
}

// EdgesIn returns the edges pointing at n, including those that reach n
// through a link.
func (g *Graph) EdgesIn(n *Node) []Edge {
	in := g.incoming[n.Location]
	for _, l := range g.links[n.Location] {
		in = append(slices.Clone(in), g.incoming[l.Location]...)
	}
	return in
}

// Missing returns the declarations of n with no installed package.
func (g *Graph) Missing(n *Node) []Edge {
	return g.missing[n.Resolve().Location]
}

// Links returns the link nodes whose target is n.
func (g *Graph) Links(n *Node) []*Node { return g.links[n.Location] }

// Children returns the dependencies of n, ordered by dependency name and then
// location, without duplicates.
func (g *Graph) Children(n *Node) []*Node {
	edges := slices.Clone(g.EdgesOut(n))
	slices.SortStableFunc(edges, func(a, b Edge) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.To, b.To))
	})
	return g.uniqueNodes(edges, func(e Edge) string { return e.To })
}

// Parents returns the dependents of n (including dependents of links to n),
// ordered by location.
func (g *Graph) Parents(n *Node) []*Node {
	edges := slices.Clone(g.EdgesIn(n))
	slices.SortStableFunc(edges, func(a, b Edge) int { return cmp.Compare(a.From, b.From) })
	return g.uniqueNodes(edges, func(e Edge) string { return e.From })
}

func (g *Graph) uniqueNodes(edges []Edge, key func(Edge) string) []*Node {
	seen := make(map[string]bool, len(edges))
	out := make([]*Node, 0, len(edges))
	for _, e := range edges {
		loc := key(e)
		if seen[loc] {
			continue
		}
		seen[loc] = true
		if n, ok := g.nodes[loc]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Descendants returns every node reachable from n by one or more edges, in
// breadth-first order. Link targets count as reached through their link.
func (g *Graph) Descendants(n *Node) []*Node {
	var out []*Node
	visited := map[string]bool{n.Location: true}
	queue := []*Node{n}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range g.Children(cur) {
			if visited[c.Location] {
				continue
			}
			visited[c.Location] = true
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}

// Sort fixes graph order: breadth-first from the root following edges (a link
// is followed by its target), then every unreached node by location.
func (g *Graph) Sort() {
	order := make([]*Node, 0, len(g.nodes))
	visited := make(map[string]bool, len(g.nodes))
	visit := func(n *Node) bool {
		if visited[n.Location] {
			return false
		}
		visited[n.Location] = true
		order = append(order, n)
		return true
	}

	if g.Root != nil {
		queue := []*Node{g.Root}
		visit(g.Root)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			next := g.Children(cur)
			if cur.IsLink && cur.Target != nil {
				next = append([]*Node{cur.Target}, next...)
			}
			for _, c := range next {
				if visit(c) {
					queue = append(queue, c)
				}
			}
		}
	}

	rest := make([]*Node, 0, len(g.nodes)-len(order))
	for loc, n := range g.nodes {
		if !visited[loc] {
			rest = append(rest, n)
		}
	}
	slices.SortFunc(rest, func(a, b *Node) int { return cmp.Compare(a.Location, b.Location) })
	order = append(order, rest...)

	g.order = order
	for i, n := range order {
		g.index[n.Location] = i
	}
}

// Validate checks the structural invariants of the graph: a single root at
// location "", edges between known nodes, and realpath == path for every
// node that is not a link.
func (g *Graph) Validate() error {
	if g.Root == nil || g.Root.Location != "" {
		return ErrNoRoot
	}
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return ErrUnknownSourceNode
		}
		if _, ok := g.nodes[e.To]; !ok {
			return ErrUnknownTargetNode
		}
	}
	for _, n := range g.nodes {
		if !n.IsLink && n.Path != n.Realpath {
			return ErrLinkMismatch
		}
	}
	return nil
}
