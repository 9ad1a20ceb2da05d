package tree

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/matzehuels/depquery/pkg/manifest"
)

// DepType classifies an edge by the manifest section that declared it.
type DepType string

const (
	DepProd      DepType = "prod"
	DepDev       DepType = "dev"
	DepOptional  DepType = "optional"
	DepPeer      DepType = "peer"
	DepWorkspace DepType = "workspace"
)

// Node is a package directory in the install tree.
//
// Name, version and dependency data come from the manifest, which may be
// absent when the package.json is missing or unreadable. Location, Path,
// Realpath, IsLink and IsWorkspace are always derived from the filesystem.
type Node struct {
	Location string // slash-separated, relative to the tree root; "" for the root
	Path     string // absolute path of the package directory
	Realpath string // Path with symlinks resolved
	Resolved string // source recorded for this location, "" when unknown; a link keeps its own

	IsRoot      bool
	IsLink      bool
	IsWorkspace bool
	// Virtual marks a root that is a plain directory rather than a package,
	// such as the lib directory of a global install prefix.
	Virtual bool

	Manifest *manifest.Manifest // nil when no manifest could be read
	Target   *Node              // link target; nil unless IsLink
}

// Package returns the manifest describing this node's package.
// Link nodes report their target's manifest.
func (n *Node) Package() *manifest.Manifest {
	if n.IsLink && n.Target != nil {
		return n.Target.Manifest
	}
	return n.Manifest
}

// Name returns the manifest name, or "" when unknown.
func (n *Node) Name() string {
	if m := n.Package(); m != nil {
		return m.Name
	}
	return ""
}

// Version returns the manifest version, or "" when unknown.
func (n *Node) Version() string {
	if m := n.Package(); m != nil {
		return m.Version
	}
	return ""
}

// PackageName returns the manifest name, falling back to the name implied by
// the install location ("node_modules/@s/x" gives "@s/x").
func (n *Node) PackageName() string {
	if name := n.Name(); name != "" {
		return name
	}
	return nameFromLocation(n.Location, n.Path)
}

// PkgID returns the display identity "<name>@<version>". Either part may be
// derived or empty: "a@" names a package whose manifest was not read.
func (n *Node) PkgID() string {
	return n.PackageName() + "@" + n.Version()
}

// ID returns "<name>@<version>" when both are recorded in the manifest and
// "" otherwise.
func (n *Node) ID() string {
	name, version := n.Name(), n.Version()
	if name == "" || version == "" {
		return ""
	}
	return name + "@" + version
}

// Resolve returns the node a query result reports for n: the target for
// links, n itself otherwise.
func (n *Node) Resolve() *Node {
	if n.IsLink && n.Target != nil {
		return n.Target
	}
	return n
}

func nameFromLocation(location, dir string) string {
	if location == "" {
		return filepath.Base(dir)
	}
	if i := strings.LastIndex(location, "node_modules/"); i >= 0 {
		return location[i+len("node_modules/"):]
	}
	return path.Base(location)
}

// Edge is a resolved dependency declaration.
type Edge struct {
	From string  // dependent location
	To   string  // dependency location; "" for a missing dependency
	Name string  // declared dependency name
	Spec string  // declared range, e.g. "^1.0.0"
	Type DepType // manifest section the declaration came from
}
