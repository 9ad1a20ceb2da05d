package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	qerrors "github.com/matzehuels/depquery/pkg/errors"
	qio "github.com/matzehuels/depquery/pkg/io"
	"github.com/matzehuels/depquery/pkg/observability"
	"github.com/matzehuels/depquery/pkg/selector"
	"github.com/matzehuels/depquery/pkg/tree"
)

// Runner executes queries. It holds no per-query state, so multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Logger *log.Logger
}

// NewRunner creates a runner. If logger is nil, log.Default() is used.
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Logger: logger}
}

// Execute runs the complete build → evaluate pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	// Parse first so a bad selector fails before any I/O.
	sel, err := ParseSelector(opts.Selector)
	if err != nil {
		return nil, err
	}

	result := &Result{}

	// Stage 1: Build
	buildStart := time.Now()
	g, err := r.Build(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Graph = g
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()

	r.Logger.Info("built tree",
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"duration", result.Stats.BuildTime)

	// Stage 2: Evaluate
	evalStart := time.Now()
	result.Nodes = r.Evaluate(ctx, g, sel, opts)
	result.Records = qio.Records(result.Nodes)
	result.Stats.EvaluateTime = time.Since(evalStart)
	result.Stats.MatchCount = len(result.Nodes)

	r.Logger.Info("evaluated selector",
		"selector", opts.Selector,
		"matches", result.Stats.MatchCount,
		"duration", result.Stats.EvaluateTime)

	return result, nil
}

// Build walks the install tree described by opts.
func (r *Runner) Build(ctx context.Context, opts Options) (*tree.Graph, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	hooks := observability.Query()
	hooks.OnBuildStart(ctx, opts.Root, opts.Global)
	start := time.Now()

	g, err := tree.Build(ctx, opts.Root, opts.BuildOptions())
	if err != nil {
		hooks.OnBuildComplete(ctx, opts.Root, 0, 0, time.Since(start), err)
		return nil, err
	}
	hooks.OnBuildComplete(ctx, opts.Root, g.NodeCount(), g.EdgeCount(), time.Since(start), nil)

	r.Logger.Debug("walked install tree", "root", g.Root.Path, "global", g.Global)
	return g, nil
}

// Evaluate matches sel against g. Link matches are replaced by their
// targets unless opts.KeepLinks is set. Evaluation works on the finished
// graph and cannot fail; ctx is only passed on to the hooks.
func (r *Runner) Evaluate(ctx context.Context, g *tree.Graph, sel *selector.Selector, opts Options) []*tree.Node {
	hooks := observability.Query()
	hooks.OnEvaluateStart(ctx, sel.String())
	start := time.Now()

	nodes := selector.Evaluate(g, sel)
	if !opts.KeepLinks {
		nodes = selector.ResolveLinks(nodes)
	}

	hooks.OnEvaluateComplete(ctx, sel.String(), len(nodes), time.Since(start))
	return nodes
}

// ParseSelector parses src, reporting syntax errors with
// errors.ErrCodeInvalidSelector.
func ParseSelector(src string) (*selector.Selector, error) {
	sel, err := selector.Parse(src)
	if err != nil {
		var se *selector.SyntaxError
		if errors.As(err, &se) {
			return nil, qerrors.Wrap(qerrors.ErrCodeInvalidSelector, se, "parse selector %q", src)
		}
		return nil, err
	}
	return sel, nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
