// Package fsys is the filesystem collaborator of the tree builder: directory
// listing, symlink resolution and workspace glob expansion.
package fsys

import (
	"math"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// Entry is a directory entry as seen by the builder.
type Entry struct {
	Name    string
	IsDir   bool // true for directories and for symlinks pointing at directories
	Symlink bool
}

// Walker abstracts the filesystem operations needed to enumerate an install tree.
type Walker interface {
	// ListDirectory returns the entries of dir sorted by name.
	ListDirectory(dir string) ([]Entry, error)
	// ResolveSymlink returns path with every symlink resolved.
	ResolveSymlink(path string) (string, error)
	// IsDir reports whether path exists and is a directory (following links).
	IsDir(path string) bool
}

// OS implements [Walker] on the host filesystem.
type OS struct{}

// ListDirectory implements [Walker].
func (OS) ListDirectory(dir string) ([]Entry, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(des))
	for _, de := range des {
		e := Entry{Name: de.Name(), IsDir: de.IsDir()}
		if de.Type()&os.ModeSymlink != 0 {
			e.Symlink = true
			if fi, err := os.Stat(filepath.Join(dir, de.Name())); err == nil {
				e.IsDir = fi.IsDir()
			}
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// ResolveSymlink implements [Walker].
func (OS) ResolveSymlink(path string) (string, error) {
	return filepath.EvalSymlinks(path)
}

// IsDir implements [Walker].
func (OS) IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

var _ Walker = OS{}

// workspaceRule is one compiled workspace pattern.
type workspaceRule struct {
	match  glob.Glob
	negate bool
}

// ExpandWorkspaces resolves workspace patterns (as declared in a root
// package.json) to sorted, slash-separated locations relative to root.
//
// Patterns use the npm glob syntax: "*" stays within one path segment, "**"
// spans any number of them and a leading "!" excludes what earlier patterns
// matched. Patterns apply in order, so the last matching pattern decides.
// Candidates are directories found through w below root; node_modules and
// dot directories are never searched and symlinked directories are matched
// but not descended into. Patterns escaping root are ignored.
func ExpandWorkspaces(w Walker, root string, patterns []string) []string {
	var rules []workspaceRule
	depth := 0
	for _, raw := range patterns {
		pattern := filepath.ToSlash(strings.TrimSpace(raw))
		negate := strings.HasPrefix(pattern, "!")
		pattern = strings.TrimPrefix(pattern, "!")
		pattern = strings.TrimSuffix(strings.TrimPrefix(pattern, "./"), "/")
		if pattern == "" || strings.HasPrefix(pattern, "/") || pattern == ".." || strings.HasPrefix(pattern, "../") {
			continue
		}
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			continue
		}
		rules = append(rules, workspaceRule{match: g, negate: negate})
		if !negate {
			depth = max(depth, patternDepth(pattern))
		}
	}
	if depth == 0 {
		return nil
	}

	var out []string
	walkDirs(w, root, "", depth, func(loc string) {
		member := false
		for _, r := range rules {
			if r.match.Match(loc) {
				member = !r.negate
			}
		}
		if member {
			out = append(out, loc)
		}
	})
	slices.Sort(out)
	return out
}

// patternDepth is the number of path segments a pattern can match, or
// math.MaxInt when it contains a globstar.
func patternDepth(pattern string) int {
	if strings.Contains(pattern, "**") {
		return math.MaxInt
	}
	return strings.Count(pattern, "/") + 1
}

// walkDirs calls visit for every directory below dir up to depth segments,
// passing its slash location relative to the walk root.
func walkDirs(w Walker, dir, loc string, depth int, visit func(loc string)) {
	entries, err := w.ListDirectory(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir || e.Name == "node_modules" || strings.HasPrefix(e.Name, ".") {
			continue
		}
		child := path.Join(loc, e.Name)
		visit(child)
		if depth > 1 && !e.Symlink {
			walkDirs(w, filepath.Join(dir, e.Name), child, depth-1, visit)
		}
	}
}

// Rel returns target relative to root as a slash-separated location.
// The root itself maps to "".
func Rel(root, target string) string {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	if rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}
