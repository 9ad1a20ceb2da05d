package tree

import (
	"os"
	"path/filepath"
	"testing"
)

// fixture describes a directory tree: keys are slash paths relative to the
// root; values ending in a symlink marker create links, everything else is
// written as file content. A nil value creates an empty directory.
type fixture map[string]*string

func file(s string) *string { return &s }

func link(target string) *string { s := "->" + target; return &s }

func writeFixture(t *testing.T, fx fixture) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for rel, content := range fx {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if content == nil {
			if err := os.MkdirAll(p, 0755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if c := *content; len(c) > 2 && c[:2] == "->" {
			if err := os.Symlink(filepath.FromSlash(c[2:]), p); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.WriteFile(p, []byte(*content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}
