package cli

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	qerrors "github.com/matzehuels/depquery/pkg/errors"
	"github.com/matzehuels/depquery/pkg/pipeline"
)

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, LogInfo).Info("built tree", "nodes", 3)

	line := regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{2} INFO built tree nodes=3\n$`)
	if !line.MatchString(buf.String()) {
		t.Errorf("log line = %q", buf.String())
	}
}

func TestQueryLog(t *testing.T) {
	stats := pipeline.Stats{NodeCount: 5, EdgeCount: 4, MatchCount: 2}
	selectorErr := qerrors.New(qerrors.ErrCodeInvalidSelector, "bad selector")

	tests := []struct {
		name    string
		level   log.Level
		id      string
		log     func(q *queryLog)
		want    []string
		notWant []string
	}{
		{
			name:    "server query",
			level:   LogInfo,
			id:      "q-1",
			log:     func(q *queryLog) { q.done(stats) },
			want:    []string{"INFO query finished", "id=q-1", "matches=2", "nodes=5", "edges=4", "took="},
			notWant: []string{"WARN"},
		},
		{
			name:    "cli query has no id",
			level:   LogDebug,
			log:     func(q *queryLog) { q.done(stats) },
			want:    []string{"DEBU query finished", "matches=2"},
			notWant: []string{"id="},
		},
		{
			name:  "failure carries the code",
			level: LogInfo,
			id:    "q-2",
			log:   func(q *queryLog) { q.failed(selectorErr) },
			want:  []string{"WARN query failed", "id=q-2", "code=INVALID_SELECTOR", `err="bad selector"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(startQuery(newLogger(&buf, LogDebug), tt.level, tt.id))

			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output %q missing %q", out, w)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("output %q should not contain %q", out, w)
				}
			}
		})
	}
}

func TestQueryLog_CLIQuietAtInfo(t *testing.T) {
	var buf bytes.Buffer
	startQuery(newLogger(&buf, LogInfo), LogDebug, "").done(pipeline.Stats{})
	if buf.Len() != 0 {
		t.Errorf("debug query line written at info level: %q", buf.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, LogInfo)

	if got := loggerFromContext(withLogger(context.Background(), logger)); got != logger {
		t.Error("loggerFromContext did not return the attached logger")
	}
	fallback := loggerFromContext(context.Background())
	if fallback == nil || fallback.GetLevel() != LogInfo {
		t.Errorf("fallback logger = %v, want info level", fallback)
	}
}
