package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	qio "github.com/matzehuels/depquery/pkg/io"
	"github.com/matzehuels/depquery/pkg/observability"
	"github.com/matzehuels/depquery/pkg/pipeline"
)

func newTestServer(t *testing.T, root string) *httptest.Server {
	t.Helper()
	return newLoggedTestServer(t, root, log.New(io.Discard))
}

func newLoggedTestServer(t *testing.T, root string, logger *log.Logger) *httptest.Server {
	t.Helper()
	s := &server{
		runner: pipeline.NewRunner(logger),
		base:   pipeline.Options{Root: root},
		logger: logger,
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t, simpleProject(t))

	resp := get(t, ts, "/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if _, err := uuid.Parse(resp.Header.Get(queryIDHeader)); err != nil {
		t.Errorf("%s = %q is not a uuid", queryIDHeader, resp.Header.Get(queryIDHeader))
	}
}

func TestServer_Query(t *testing.T) {
	ts := newTestServer(t, simpleProject(t))

	resp := get(t, ts, "/query?q="+url.QueryEscape(":root > *"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	records, err := qio.ReadJSON(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].PkgID != "a@1.2.0" || records[1].PkgID != "b@2.0.0" {
		t.Errorf("records = %+v", records)
	}

	// Each request gets its own id.
	first := resp.Header.Get(queryIDHeader)
	if second := get(t, ts, "/query").Header.Get(queryIDHeader); second == first || second == "" {
		t.Errorf("query ids %q and %q should differ", first, second)
	}
}

func TestServer_QueryErrors(t *testing.T) {
	tests := []struct {
		name   string
		root   string
		query  string
		status int
		code   string
	}{
		{"syntax", "", "[name=a", http.StatusBadRequest, "INVALID_SELECTOR"},
		{"missing root", "missing", "*", http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := simpleProject(t)
			if tt.root != "" {
				root += "/" + tt.root
			}
			ts := newTestServer(t, root)

			resp := get(t, ts, "/query?q="+url.QueryEscape(tt.query))
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body errorBody
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Code != tt.code || body.Message == "" {
				t.Errorf("body = %+v, want code %s", body, tt.code)
			}
		})
	}
}

func TestServer_LogsQuery(t *testing.T) {
	var buf bytes.Buffer
	ts := newLoggedTestServer(t, simpleProject(t), newLogger(&buf, LogInfo))

	resp := get(t, ts, "/query?q=%23a")
	if _, err := io.ReadAll(resp.Body); err != nil {
		t.Fatal(err)
	}
	ts.Close()

	out := buf.String()
	for _, want := range []string{"query finished", "id=" + resp.Header.Get(queryIDHeader), "matches=1", "nodes=3"} {
		if !strings.Contains(out, want) {
			t.Errorf("server log %q missing %q", out, want)
		}
	}
}

type recordingServerHooks struct {
	observability.NoopServerHooks
	statuses chan int
}

func (h *recordingServerHooks) OnResponse(_ context.Context, _ string, status int, _ time.Duration) {
	h.statuses <- status
}

func TestServer_Hooks(t *testing.T) {
	hooks := &recordingServerHooks{statuses: make(chan int, 1)}
	observability.SetServerHooks(hooks)
	defer observability.Reset()

	ts := newTestServer(t, simpleProject(t))
	get(t, ts, "/query?q=%3Abogus")

	select {
	case status := <-hooks.statuses:
		if status != http.StatusBadRequest {
			t.Errorf("hook status = %d, want 400", status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("OnResponse was not called")
	}
}
