package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	qerrors "github.com/matzehuels/depquery/pkg/errors"
	"github.com/matzehuels/depquery/pkg/pipeline"
)

// logTimeFormat renders timestamps like "14:32:01.45".
const logTimeFormat = "15:04:05.00"

// newLogger creates the stderr logger shared by all commands.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      logTimeFormat,
		Level:           level,
	})
}

// queryLog times one query and reports its outcome as a single line.
// Server queries carry their id; CLI queries log at debug level since the
// runner already reports each stage.
type queryLog struct {
	logger *log.Logger
	level  log.Level
	id     string
	start  time.Time
}

func startQuery(l *log.Logger, level log.Level, id string) *queryLog {
	return &queryLog{logger: l, level: level, id: id, start: time.Now()}
}

func (q *queryLog) elapsed() time.Duration {
	return time.Since(q.start).Round(time.Millisecond)
}

func (q *queryLog) keyvals(kv ...any) []any {
	if q.id == "" {
		return append(kv, "took", q.elapsed())
	}
	return append(append([]any{"id", q.id}, kv...), "took", q.elapsed())
}

// done logs the counts of a finished query.
func (q *queryLog) done(stats pipeline.Stats) {
	q.logger.Log(q.level, "query finished", q.keyvals(
		"matches", stats.MatchCount,
		"nodes", stats.NodeCount,
		"edges", stats.EdgeCount,
	)...)
}

// failed logs a query that returned err. Errors are always warnings.
func (q *queryLog) failed(err error) {
	q.logger.Warn("query failed", q.keyvals(
		"code", qerrors.GetCode(err),
		"err", qerrors.UserMessage(err),
	)...)
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by the root command, or an
// info-level stderr logger for contexts that never passed through it.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return newLogger(os.Stderr, LogInfo)
}
