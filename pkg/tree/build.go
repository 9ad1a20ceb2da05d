package tree

import (
	"context"
	"errors"
	"maps"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	qerrors "github.com/matzehuels/depquery/pkg/errors"
	"github.com/matzehuels/depquery/pkg/fsys"
	"github.com/matzehuels/depquery/pkg/manifest"
)

// DefaultWorkers is the default number of concurrent directory loads.
const DefaultWorkers = 8

// Options configures [Build].
type Options struct {
	Global  bool                 // treat root as a global install prefix
	Workers int                  // concurrent directory loads (default: 8)
	Reader  manifest.Reader      // manifest collaborator (default: manifest.FileReader)
	Walker  fsys.Walker          // filesystem collaborator (default: fsys.OS)
	Logger  func(string, ...any) // debug callback for skipped entries (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Reader == nil {
		opts.Reader = manifest.FileReader{}
	}
	if opts.Walker == nil {
		opts.Walker = fsys.OS{}
	}
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	return opts
}

// GlobalRoot returns the tree root of a global install prefix: prefix/lib
// when it exists (POSIX layout), otherwise the prefix itself.
func GlobalRoot(w fsys.Walker, prefix string) string {
	if lib := filepath.Join(prefix, "lib"); w.IsDir(filepath.Join(lib, "node_modules")) {
		return lib
	}
	return prefix
}

// Build walks the install tree at root and returns its graph.
//
// In local mode root must contain a package.json; in global mode root is an
// install prefix whose tree root (see [GlobalRoot]) must contain
// node_modules. Otherwise Build fails with an error carrying
// errors.ErrCodeNotFound.
func Build(ctx context.Context, root string, opts Options) (*Graph, error) {
	opts = opts.WithDefaults()

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.ErrCodeInvalidInput, err, "resolve root %s", root)
	}
	if opts.Global {
		abs = GlobalRoot(opts.Walker, abs)
	}
	real, err := opts.Walker.ResolveSymlink(abs)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.ErrCodeNotFound, err, "no such directory: %s", abs)
	}

	b := &builder{
		ctx:  ctx,
		opts: opts,
		root: real,
		g:    New(),
		seen: make(map[string]bool),
	}
	b.g.Global = opts.Global
	if err := b.run(); err != nil {
		return nil, err
	}
	return b.g, nil
}

type builder struct {
	ctx  context.Context
	opts Options
	root string
	g    *Graph
	lock *manifest.Lockfile

	workspaces map[string]bool
	seen       map[string]bool // locations already scheduled
}

// candidate is a directory scheduled for loading.
type candidate struct {
	location  string
	path      string
	workspace bool // declared workspace member; dropped if it has no manifest
}

// loaded is the result of loading one candidate.
type loaded struct {
	node     *Node
	target   *candidate  // link target to schedule
	children []candidate // node_modules entries to schedule
}

func (b *builder) run() error {
	rootNode, err := b.loadRoot()
	if err != nil {
		return err
	}

	if lock, err := manifest.ReadLockfile(b.root); err != nil {
		b.opts.Logger("lockfile ignored: %v", err)
	} else {
		b.lock = lock
	}
	rootNode.Resolved = b.lock.Resolved("")

	if err := b.g.AddNode(rootNode); err != nil {
		return err
	}
	b.seen[""] = true

	frontier := b.listNodeModules("", b.root)
	if !b.opts.Global && rootNode.Manifest != nil {
		locs := fsys.ExpandWorkspaces(b.opts.Walker, b.root, rootNode.Manifest.Workspaces)
		b.workspaces = make(map[string]bool, len(locs))
		for _, loc := range locs {
			b.workspaces[loc] = true
			frontier = append(frontier, candidate{
				location:  loc,
				path:      filepath.Join(b.root, filepath.FromSlash(loc)),
				workspace: true,
			})
		}
	}
	frontier = b.schedule(frontier)

	for len(frontier) > 0 {
		results, err := b.loadLevel(frontier)
		if err != nil {
			return err
		}
		var next []candidate
		for _, r := range results {
			if r == nil {
				continue
			}
			if err := b.g.AddNode(r.node); err != nil {
				return err
			}
			if r.target != nil {
				next = append(next, *r.target)
			}
			next = append(next, r.children...)
		}
		frontier = b.schedule(next)
	}

	b.linkTargets()
	b.buildEdges()
	b.g.Sort()
	return nil
}

func (b *builder) loadRoot() (*Node, error) {
	n := &Node{Location: "", Path: b.root, Realpath: b.root, IsRoot: true}

	m, err := b.opts.Reader.Read(b.root)
	switch {
	case err == nil:
		n.Manifest = m
	case b.opts.Global:
		if !b.opts.Walker.IsDir(filepath.Join(b.root, "node_modules")) {
			return nil, qerrors.New(qerrors.ErrCodeNotFound, "not a global install root: %s has no node_modules", b.root)
		}
		n.Virtual = true
	case errors.Is(err, manifest.ErrNotFound):
		return nil, qerrors.Wrap(qerrors.ErrCodeNotFound, err, "no package.json in %s", b.root)
	default:
		return nil, qerrors.Wrap(qerrors.ErrCodeInvalidManifest, err, "read root manifest")
	}
	return n, nil
}

// schedule drops candidates whose location was already scheduled, keeping
// the first occurrence.
func (b *builder) schedule(cands []candidate) []candidate {
	out := cands[:0]
	for _, c := range cands {
		if b.seen[c.location] {
			continue
		}
		b.seen[c.location] = true
		out = append(out, c)
	}
	return out
}

// loadLevel loads every candidate of one tree level concurrently. Results
// keep the candidates' order.
func (b *builder) loadLevel(cands []candidate) ([]*loaded, error) {
	results := make([]*loaded, len(cands))
	eg, ctx := errgroup.WithContext(b.ctx)
	eg.SetLimit(b.opts.Workers)
	for i, c := range cands {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = b.load(c)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// load reads one package directory. It never fails: problems leave a
// partial node. A nil result drops the candidate.
func (b *builder) load(c candidate) *loaded {
	real, err := b.opts.Walker.ResolveSymlink(c.path)
	if err != nil {
		b.opts.Logger("unresolvable path %s: %v", c.path, err)
		real = c.path
	}

	n := &Node{
		Location: c.location,
		Path:     c.path,
		Realpath: real,
		IsLink:   real != c.path,
	}
	n.IsWorkspace = b.workspaces[c.location]
	n.Resolved = b.lock.Resolved(c.location)

	if n.IsLink {
		loc := fsys.Rel(b.root, real)
		n.Target = &Node{Location: loc}
		return &loaded{node: n, target: &candidate{location: loc, path: real}}
	}

	m, err := b.opts.Reader.Read(c.path)
	if err != nil {
		if c.workspace && errors.Is(err, manifest.ErrNotFound) {
			return nil
		}
		b.opts.Logger("manifest skipped for %s: %v", c.location, err)
	}
	n.Manifest = m
	if m != nil && m.Resolved != "" {
		n.Resolved = m.Resolved
	}

	return &loaded{node: n, children: b.listNodeModules(c.location, c.path)}
}

// listNodeModules returns the package directories in dir/node_modules,
// descending one level into @scope directories.
func (b *builder) listNodeModules(location, dir string) []candidate {
	nm := filepath.Join(dir, "node_modules")
	entries, err := b.opts.Walker.ListDirectory(nm)
	if err != nil {
		return nil
	}

	var out []candidate
	add := func(name, p string) {
		out = append(out, candidate{location: path.Join(location, "node_modules", name), path: p})
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name, ".") || !e.IsDir {
			continue
		}
		if !strings.HasPrefix(e.Name, "@") {
			add(e.Name, filepath.Join(nm, e.Name))
			continue
		}
		scoped, err := b.opts.Walker.ListDirectory(filepath.Join(nm, e.Name))
		if err != nil {
			b.opts.Logger("scope skipped %s: %v", e.Name, err)
			continue
		}
		for _, s := range scoped {
			if strings.HasPrefix(s.Name, ".") || !s.IsDir {
				continue
			}
			add(e.Name+"/"+s.Name, filepath.Join(nm, e.Name, s.Name))
		}
	}
	return out
}

// linkTargets replaces the placeholder targets of link nodes with the loaded
// nodes. A link whose target could not be loaded keeps a bare placeholder.
func (b *builder) linkTargets() {
	b.g.links = make(map[string][]*Node)
	for _, n := range b.g.order {
		if !n.IsLink || n.Target == nil {
			continue
		}
		if t, ok := b.g.nodes[n.Target.Location]; ok {
			n.Target = t
		} else {
			n.Target.Path, n.Target.Realpath = n.Realpath, n.Realpath
		}
		b.g.links[n.Target.Location] = append(b.g.links[n.Target.Location], n)
	}
}

// buildEdges resolves every declaration of every loaded package.
func (b *builder) buildEdges() {
	nodes := slices.Clone(b.g.order)
	slices.SortFunc(nodes, func(x, y *Node) int { return strings.Compare(x.Location, y.Location) })

	for _, n := range nodes {
		if n.IsLink {
			continue
		}
		if n.Virtual {
			b.globalEdges(n, nodes)
			continue
		}
		if n.Manifest == nil {
			continue
		}
		b.declaredEdges(n)
	}

	if root := b.g.Root; root != nil && len(b.workspaces) > 0 {
		for _, loc := range slices.Sorted(maps.Keys(b.workspaces)) {
			ws, ok := b.g.nodes[loc]
			if !ok {
				continue
			}
			_ = b.g.AddEdge(Edge{From: "", To: loc, Name: ws.PackageName(), Spec: "file:" + loc, Type: DepWorkspace})
		}
	}
}

// globalEdges connects a virtual global root to every top-level package.
func (b *builder) globalEdges(root *Node, nodes []*Node) {
	for _, n := range nodes {
		if !strings.HasPrefix(n.Location, "node_modules/") || strings.Contains(n.Location[len("node_modules/"):], "/node_modules/") {
			continue
		}
		_ = b.g.AddEdge(Edge{From: root.Location, To: n.Location, Name: n.PackageName(), Spec: "*", Type: DepProd})
	}
}

// section is one dependency map of a manifest. Sections are resolved in
// order and a name declared twice keeps its first section, so optional
// dependencies win over the copy npm writes into dependencies.
type section struct {
	deps map[string]string
	typ  DepType
}

func (b *builder) declaredEdges(n *Node) {
	m := n.Manifest
	sections := []section{
		{m.OptionalDependencies, DepOptional},
		{m.Dependencies, DepProd},
		{m.PeerDependencies, DepPeer},
	}
	// devDependencies are only installed for the project and its workspaces.
	if n.IsRoot || n.IsWorkspace {
		sections = append(sections, section{m.DevDependencies, DepDev})
	}

	declared := make(map[string]bool)
	for _, sec := range sections {
		for _, name := range slices.Sorted(maps.Keys(sec.deps)) {
			if declared[name] {
				continue
			}
			declared[name] = true

			e := Edge{From: n.Location, Name: name, Spec: sec.deps[name], Type: sec.typ}
			if err := qerrors.ValidateNpmPackageName(name); err != nil {
				b.opts.Logger("declaration skipped in %s: %v", n.PkgID(), err)
				continue
			}
			if dep := b.resolve(n.Location, name); dep != nil {
				e.To = dep.Location
				_ = b.g.AddEdge(e)
			} else {
				_ = b.g.AddMissing(e)
			}
		}
	}
}

// resolve finds the installed package name as seen from location: the
// location's own node_modules first, then each ancestor install location.
func (b *builder) resolve(location, name string) *Node {
	loc := location
	for {
		if n, ok := b.g.nodes[path.Join(loc, "node_modules", name)]; ok {
			return n
		}
		if loc == "" {
			return nil
		}
		loc = parentLocation(loc)
	}
}

// parentLocation returns the install location that owns the node_modules
// directory containing location ("" for top-level and out-of-tree packages).
func parentLocation(location string) string {
	if i := strings.LastIndex(location, "/node_modules/"); i >= 0 {
		return location[:i]
	}
	return ""
}
