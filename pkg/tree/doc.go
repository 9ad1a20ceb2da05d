// Package tree models an installed node_modules tree as a graph of packages.
//
// # Nodes
//
// A [Node] is a package directory keyed by its install location: the
// slash-separated path from the tree root ("node_modules/a",
// "node_modules/a/node_modules/b", "packages/c"). The root project itself has
// location "". Two nodes may carry the same name and version when a package
// is installed at several locations; identity for edges is always the
// location.
//
// Symlinked package directories become link nodes. A link node has no
// manifest of its own; it presents the package data and dependencies of its
// [Node.Target], the node at the link's resolved location.
//
// # Edges
//
// An [Edge] points from a dependent to the installed package that satisfies
// one of its declarations, found with node_modules lookup rules: the nearest
// node_modules directory first, then outward through ancestor install
// locations. Declarations without an installed package produce no edge; they
// are kept as missing declarations (see [Graph.Missing]).
//
// # Building
//
// [Build] walks a project (or a global prefix) and returns a read-only
// [Graph]. Directory listing and manifest reads for the nodes of one tree
// level run concurrently; nodes are merged in a fixed order afterwards so
// repeated builds of an unchanged tree are identical.
//
//	g, err := tree.Build(ctx, "./my-project", tree.Options{})
//	if err != nil {
//	    return err
//	}
//	for _, n := range g.Nodes() {
//	    fmt.Println(n.Location, n.PkgID())
//	}
package tree
