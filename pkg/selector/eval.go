package selector

import (
	"slices"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/depquery/pkg/tree"
)

// set is a set of node locations.
type set map[string]bool

type evaluator struct {
	g     *tree.Graph
	nodes []*tree.Node
	memo  map[*complexSel]set
}

// Evaluate returns the nodes of g matched by sel, each once, in graph order.
func Evaluate(g *tree.Graph, sel *Selector) []*tree.Node {
	ev := &evaluator{g: g, nodes: g.Nodes(), memo: make(map[*complexSel]set)}

	matched := make(set)
	for _, c := range sel.list {
		for loc := range ev.complex(c) {
			matched[loc] = true
		}
	}
	return ev.ordered(matched)
}

// Query parses src and evaluates it against g.
func Query(g *tree.Graph, src string) ([]*tree.Node, error) {
	sel, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return Evaluate(g, sel), nil
}

// ResolveLinks replaces link nodes by their targets and drops repeated
// locations, keeping the position of the first occurrence.
func ResolveLinks(nodes []*tree.Node) []*tree.Node {
	seen := make(set, len(nodes))
	out := make([]*tree.Node, 0, len(nodes))
	for _, n := range nodes {
		r := n.Resolve()
		if seen[r.Location] {
			continue
		}
		seen[r.Location] = true
		out = append(out, r)
	}
	return out
}

func (ev *evaluator) ordered(s set) []*tree.Node {
	out := make([]*tree.Node, 0, len(s))
	for _, n := range ev.nodes {
		if s[n.Location] {
			out = append(out, n)
		}
	}
	return out
}

// complex evaluates a chain of compounds left to right: each step keeps the
// nodes matching the next compound that are related to the previous step's
// result by the combinator.
func (ev *evaluator) complex(c *complexSel) set {
	if s, ok := ev.memo[c]; ok {
		return s
	}

	cur := ev.matchCompound(c.compounds[0], nil)
	for i, comb := range c.combinators {
		related := ev.related(cur, comb)
		cur = ev.matchCompound(c.compounds[i+1], related)
	}

	ev.memo[c] = cur
	return cur
}

// matchCompound returns the nodes matching cp, restricted to within when it
// is non-nil.
func (ev *evaluator) matchCompound(cp *compound, within set) set {
	out := make(set)
	for _, n := range ev.nodes {
		if within != nil && !within[n.Location] {
			continue
		}
		if ev.matches(cp, n) {
			out[n.Location] = true
		}
	}
	return out
}

func (ev *evaluator) matches(cp *compound, n *tree.Node) bool {
	if n.Virtual && !cp.root {
		return false
	}
	if cp.id != nil && !cp.id.match(n) {
		return false
	}
	for _, f := range cp.filters {
		if !f.match(ev, n) {
			return false
		}
	}
	return true
}

// related returns the nodes standing in relation comb to some node of from.
func (ev *evaluator) related(from set, comb Combinator) set {
	out := make(set)
	for _, n := range ev.nodes {
		if !from[n.Location] {
			continue
		}
		for _, r := range ev.relatives(n, comb) {
			out[r.Location] = true
		}
	}
	return out
}

func (ev *evaluator) relatives(n *tree.Node, comb Combinator) []*tree.Node {
	switch comb {
	case Child:
		return ev.g.Children(n)
	case Sibling:
		var out []*tree.Node
		for _, p := range ev.g.Parents(n) {
			for _, c := range ev.g.Children(p) {
				if c.Location != n.Location {
					out = append(out, c)
				}
			}
		}
		return out
	default:
		return ev.g.Descendants(n)
	}
}

func (id *idSel) match(n *tree.Node) bool {
	if n.PackageName() != id.name {
		return false
	}
	return id.version == nil || satisfies(n.Version(), id.version)
}

func satisfies(version string, c *semver.Constraints) bool {
	if version == "" {
		return false
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return c.Check(v)
}

// attribute returns the value of key for n and whether n has it.
func attribute(n *tree.Node, key string) (string, bool) {
	switch key {
	case "location":
		return n.Location, true
	case "path":
		return n.Path, true
	case "realpath":
		return n.Realpath, true
	case "pkgid":
		return n.PkgID(), true
	case "resolved":
		return n.Resolved, n.Resolved != ""
	}
	if m := n.Package(); m != nil {
		return m.Field(key)
	}
	return "", false
}

func (f attrFilter) match(_ *evaluator, n *tree.Node) bool {
	v, ok := attribute(n, f.key)
	if !ok {
		return false
	}
	return f.test(v)
}

func (f classFilter) match(ev *evaluator, n *tree.Node) bool {
	if f.class == "workspace" && n.Resolve().IsWorkspace {
		return true
	}
	return slices.ContainsFunc(ev.g.EdgesIn(n), func(e tree.Edge) bool {
		return string(e.Type) == f.class
	})
}

func (f *pseudoFilter) match(ev *evaluator, n *tree.Node) bool {
	switch f.name {
	case "root":
		return n.IsRoot
	case "link":
		return n.IsLink
	case "empty":
		return len(ev.g.EdgesOut(n)) == 0
	case "private":
		m := n.Package()
		return m != nil && m.Private
	case "missing":
		return len(ev.g.Missing(n)) > 0
	case "semver":
		return satisfies(n.Version(), f.constraint)
	case "not":
		return !ev.inAny(f.args, n)
	case "is":
		return ev.inAny(f.args, n)
	case "has":
		for _, c := range f.args {
			s := ev.complex(c)
			for _, r := range ev.relatives(n, c.lead) {
				if s[r.Location] {
					return true
				}
			}
		}
		return false
	}
	return false
}

func (ev *evaluator) inAny(list []*complexSel, n *tree.Node) bool {
	for _, c := range list {
		if ev.complex(c)[n.Location] {
			return true
		}
	}
	return false
}
