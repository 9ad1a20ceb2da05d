package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	qerrors "github.com/matzehuels/depquery/pkg/errors"
	"github.com/matzehuels/depquery/pkg/observability"
)

// writeTree creates files under a fresh temp directory. Values starting with
// "->" create symlinks; an empty value creates a directory.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		switch {
		case content == "":
			err = os.MkdirAll(p, 0755)
		case strings.HasPrefix(content, "->"):
			if err = os.MkdirAll(filepath.Dir(p), 0755); err == nil {
				err = os.Symlink(filepath.FromSlash(content[2:]), p)
			}
		default:
			if err = os.MkdirAll(filepath.Dir(p), 0755); err == nil {
				err = os.WriteFile(p, []byte(content), 0644)
			}
		}
		if err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func runJSON(t *testing.T, opts Options) string {
	t.Helper()
	ctx := context.Background()
	result, err := NewRunner(nil).Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	out, err := Render(ctx, result, FormatJSON)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return string(out)
}

func TestQuery_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		global   bool
		selector string
		want     string
	}{
		{
			name: "global",
			files: map[string]string{
				"lib/node_modules/lorem/package.json": `{"name":"lorem","version":"2.0.0"}`,
			},
			global:   true,
			selector: "*",
			want: `[
  {
    "name": "lorem",
    "version": "2.0.0",
    "_id": "lorem@2.0.0",
    "pkgid": "lorem@2.0.0",
    "location": "node_modules/lorem",
    "path": "{ROOT}/lib/node_modules/lorem",
    "realpath": "{ROOT}/lib/node_modules/lorem",
    "resolved": null,
    "isLink": false,
    "isWorkspace": false
  }
]
`,
		},
		{
			name: "linked",
			files: map[string]string{
				"package.json":   `{"name":"project","dependencies":{"a":"file:a"}}`,
				"a/package.json": `{"name":"a","version":"1.0.0"}`,
				"node_modules/a": "->../a",
			},
			selector: "#a",
			want: `[
  {
    "name": "a",
    "version": "1.0.0",
    "_id": "a@1.0.0",
    "pkgid": "a@1.0.0",
    "location": "a",
    "path": "{ROOT}/a",
    "realpath": "{ROOT}/a",
    "resolved": null,
    "isLink": false,
    "isWorkspace": false
  }
]
`,
		},
		{
			name: "simple",
			files: map[string]string{
				"package.json":   `{"name":"project","dependencies":{"a":"^1.0.0","b":"^1.0.0"}}`,
				"node_modules/a": "",
				"node_modules/b": "",
			},
			selector: "*",
			want: `[
  {
    "name": "project",
    "dependencies": {
      "a": "^1.0.0",
      "b": "^1.0.0"
    },
    "pkgid": "project@",
    "location": "",
    "path": "{ROOT}",
    "realpath": "{ROOT}",
    "resolved": null,
    "isLink": false,
    "isWorkspace": false
  },
  {
    "pkgid": "a@",
    "location": "node_modules/a",
    "path": "{ROOT}/node_modules/a",
    "realpath": "{ROOT}/node_modules/a",
    "resolved": null,
    "isLink": false,
    "isWorkspace": false
  },
  {
    "pkgid": "b@",
    "location": "node_modules/b",
    "path": "{ROOT}/node_modules/b",
    "realpath": "{ROOT}/node_modules/b",
    "resolved": null,
    "isLink": false,
    "isWorkspace": false
  }
]
`,
		},
		{
			name: "workspace",
			files: map[string]string{
				"package.json":   `{"name":"project","workspaces":["c"]}`,
				"c/package.json": `{"name":"c","version":"1.0.0"}`,
				"node_modules/c": "->../c",
			},
			selector: ".workspace",
			want: `[
  {
    "name": "c",
    "version": "1.0.0",
    "_id": "c@1.0.0",
    "pkgid": "c@1.0.0",
    "location": "c",
    "path": "{ROOT}/c",
    "realpath": "{ROOT}/c",
    "resolved": null,
    "isLink": false,
    "isWorkspace": true
  }
]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := writeTree(t, tt.files)
			opts := Options{Root: root, Global: tt.global, Selector: tt.selector}

			got := runJSON(t, opts)
			want := strings.ReplaceAll(tt.want, "{ROOT}", root)
			if got != want {
				t.Errorf("output mismatch\ngot:\n%s\nwant:\n%s", got, want)
			}

			// Unchanged tree, byte-identical output.
			if again := runJSON(t, opts); again != got {
				t.Errorf("second run differs\nfirst:\n%s\nsecond:\n%s", got, again)
			}
		})
	}
}

func TestExecute_KeepLinks(t *testing.T) {
	root := writeTree(t, map[string]string{
		"package.json":   `{"name":"project","dependencies":{"a":"file:a"}}`,
		"a/package.json": `{"name":"a","version":"1.0.0"}`,
		"node_modules/a": "->../a",
	})

	result, err := NewRunner(nil).Execute(context.Background(), Options{Root: root, Selector: ":link", KeepLinks: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(result.Records))
	}
	r := result.Records[0]
	if !r.IsLink || r.Location != "node_modules/a" || r.Realpath != filepath.Join(root, "a") {
		t.Errorf("link record = %+v", r)
	}
}

func TestExecute_LinkResolvedFromLockfile(t *testing.T) {
	root := writeTree(t, map[string]string{
		"package.json":                    `{"name":"project","dependencies":{"a":"file:a"}}`,
		"a/package.json":                  `{"name":"a","version":"1.0.0"}`,
		"node_modules/a":                  "->../a",
		"node_modules/.package-lock.json": `{"packages":{"node_modules/a":{"resolved":"a","link":true}}}`,
	})

	result, err := NewRunner(nil).Execute(context.Background(), Options{Root: root, Selector: "[resolved=a]", KeepLinks: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 1 {
		t.Fatalf("got %d records, want the link", len(result.Records))
	}
	r := result.Records[0]
	if !r.IsLink || r.Resolved == nil || *r.Resolved != "a" {
		t.Errorf("link record = %+v, want resolved %q", r, "a")
	}
}

func TestExecute_Errors(t *testing.T) {
	root := writeTree(t, map[string]string{"package.json": `{"name":"project"}`})

	tests := []struct {
		name string
		opts Options
		code qerrors.Code
	}{
		{"syntax", Options{Root: root, Selector: "[name=a"}, qerrors.ErrCodeInvalidSelector},
		{"unknown pseudo", Options{Root: root, Selector: ":nope"}, qerrors.ErrCodeInvalidSelector},
		{"control chars", Options{Root: root, Selector: "#a\x00"}, qerrors.ErrCodeInvalidSelector},
		{"no manifest", Options{Root: filepath.Join(root, "missing")}, qerrors.ErrCodeNotFound},
		{"global without node_modules", Options{Root: root, Global: true}, qerrors.ErrCodeNotFound},
		{"negative workers", Options{Root: root, Workers: -1}, qerrors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunner(nil).Execute(context.Background(), tt.opts)
			if err == nil {
				t.Fatal("Execute should fail")
			}
			if code := qerrors.GetCode(err); code != tt.code {
				t.Errorf("code = %s, want %s (err: %v)", code, tt.code, err)
			}
		})
	}
}

func TestRender_Formats(t *testing.T) {
	root := writeTree(t, map[string]string{
		"package.json":                `{"name":"project","version":"1.0.0","dependencies":{"a":"^1.0.0"}}`,
		"node_modules/a/package.json": `{"name":"a","version":"1.0.0"}`,
	})
	ctx := context.Background()
	result, err := NewRunner(nil).Execute(ctx, Options{Root: root})
	if err != nil {
		t.Fatal(err)
	}

	dot, err := Render(ctx, result, FormatDOT)
	if err != nil {
		t.Fatalf("Render dot failed: %v", err)
	}
	if !strings.Contains(string(dot), `"." -> "node_modules/a"`) {
		t.Errorf("DOT missing root edge:\n%s", dot)
	}

	if _, err := Render(ctx, result, FormatTable); !qerrors.Is(err, qerrors.ErrCodeUnsupported) {
		t.Errorf("Render table error = %v, want UNSUPPORTED", err)
	}
	if _, err := Render(ctx, result, "yaml"); !qerrors.Is(err, qerrors.ErrCodeInvalidFormat) {
		t.Errorf("Render yaml error = %v, want INVALID_FORMAT", err)
	}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"json", false},
		{"table", false},
		{"dot", false},
		{"svg", false},
		{"JSON", true}, // case-sensitive
		{"png", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestOptions_Defaults(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.Root != "." || opts.Selector != DefaultSelector || opts.Workers != 8 || opts.Logger == nil {
		t.Errorf("defaults = %+v", opts)
	}
}

type recordingHooks struct {
	observability.NoopQueryHooks
	events []string
}

func (h *recordingHooks) OnBuildStart(context.Context, string, bool) {
	h.events = append(h.events, "build-start")
}

func (h *recordingHooks) OnBuildComplete(context.Context, string, int, int, time.Duration, error) {
	h.events = append(h.events, "build-complete")
}

func (h *recordingHooks) OnEvaluateComplete(context.Context, string, int, time.Duration) {
	h.events = append(h.events, "evaluate-complete")
}

func TestExecute_Hooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetQueryHooks(hooks)
	defer observability.Reset()

	root := writeTree(t, map[string]string{"package.json": `{"name":"project"}`})
	if _, err := NewRunner(nil).Execute(context.Background(), Options{Root: root}); err != nil {
		t.Fatal(err)
	}

	want := []string{"build-start", "build-complete", "evaluate-complete"}
	if strings.Join(hooks.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", hooks.events, want)
	}
}
