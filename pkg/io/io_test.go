package io

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/matzehuels/depquery/pkg/manifest"
	"github.com/matzehuels/depquery/pkg/tree"
)

func TestWriteJSON_SimpleTree(t *testing.T) {
	root := &tree.Node{
		Location: "", Path: "/p", Realpath: "/p", IsRoot: true,
		Manifest: &manifest.Manifest{
			Name:         "project",
			Dependencies: map[string]string{"b": "^1.0.0", "a": "^1.0.0"},
		},
	}
	a := &tree.Node{Location: "node_modules/a", Path: "/p/node_modules/a", Realpath: "/p/node_modules/a"}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, Records([]*tree.Node{root, a})); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	want := `[
  {
    "name": "project",
    "dependencies": {
      "a": "^1.0.0",
      "b": "^1.0.0"
    },
    "pkgid": "project@",
    "location": "",
    "path": "/p",
    "realpath": "/p",
    "resolved": null,
    "isLink": false,
    "isWorkspace": false
  },
  {
    "pkgid": "a@",
    "location": "node_modules/a",
    "path": "/p/node_modules/a",
    "realpath": "/p/node_modules/a",
    "resolved": null,
    "isLink": false,
    "isWorkspace": false
  }
]
`
	if got := buf.String(); got != want {
		t.Errorf("WriteJSON output mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteJSON_FullRecord(t *testing.T) {
	n := &tree.Node{
		Location: "node_modules/lorem", Path: "/g/lib/node_modules/lorem", Realpath: "/g/lib/node_modules/lorem",
		Resolved: "https://registry.npmjs.org/lorem/-/lorem-2.0.0.tgz",
		Manifest: &manifest.Manifest{Name: "lorem", Version: "2.0.0", Dependencies: map[string]string{"ipsum": ">=1 <2"}},
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, Records([]*tree.Node{n})); err != nil {
		t.Fatal(err)
	}

	want := `[
  {
    "name": "lorem",
    "version": "2.0.0",
    "_id": "lorem@2.0.0",
    "dependencies": {
      "ipsum": ">=1 <2"
    },
    "pkgid": "lorem@2.0.0",
    "location": "node_modules/lorem",
    "path": "/g/lib/node_modules/lorem",
    "realpath": "/g/lib/node_modules/lorem",
    "resolved": "https://registry.npmjs.org/lorem/-/lorem-2.0.0.tgz",
    "isLink": false,
    "isWorkspace": false
  }
]
`
	if got := buf.String(); got != want {
		t.Errorf("WriteJSON output mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteJSON_Empty(t *testing.T) {
	for _, records := range [][]Record{nil, {}} {
		var buf bytes.Buffer
		if err := WriteJSON(&buf, records); err != nil {
			t.Fatal(err)
		}
		if got := buf.String(); got != "[]\n" {
			t.Errorf("WriteJSON(%v) = %q, want %q", records, got, "[]\n")
		}
	}
}

func TestNewRecord_Link(t *testing.T) {
	target := &tree.Node{
		Location: "a", Path: "/p/a", Realpath: "/p/a",
		Manifest: &manifest.Manifest{Name: "a", Version: "1.0.0"},
	}
	l := &tree.Node{
		Location: "node_modules/a", Path: "/p/node_modules/a", Realpath: "/p/a",
		IsLink: true, Target: target,
	}

	r := NewRecord(l)
	if r.Name != "a" || r.Version != "1.0.0" || r.ID != "a@1.0.0" {
		t.Errorf("link record package = %q %q %q, want target's", r.Name, r.Version, r.ID)
	}
	if !r.IsLink || r.Location != "node_modules/a" || r.Realpath != "/p/a" {
		t.Errorf("link record = %+v", r)
	}
	if r.Resolved != nil {
		t.Errorf("Resolved = %q, want nil", *r.Resolved)
	}
}

func TestReadJSON(t *testing.T) {
	n := &tree.Node{
		Location: "c", Path: "/p/c", Realpath: "/p/c", IsWorkspace: true,
		Manifest: &manifest.Manifest{Name: "c", Version: "1.0.0"},
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, Records([]*tree.Node{n})); err != nil {
		t.Fatal(err)
	}
	records, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if len(records) != 1 || records[0].PkgID != "c@1.0.0" || !records[0].IsWorkspace {
		t.Errorf("ReadJSON = %+v", records)
	}

	if _, err := ReadJSON(bytes.NewBufferString("{")); err == nil {
		t.Error("ReadJSON should fail on malformed input")
	}
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := ExportJSON(nil, path); err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}
	if err := ExportJSON(nil, filepath.Join(t.TempDir(), "missing", "out.json")); err == nil {
		t.Error("ExportJSON should fail when the directory does not exist")
	}
}
