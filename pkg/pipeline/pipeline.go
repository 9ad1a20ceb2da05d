// Package pipeline provides the query pipeline shared by the CLI and the
// query server.
//
// # Architecture
//
// A query runs in three stages:
//
//  1. Build: walk the install tree at the root into a [tree.Graph]
//  2. Evaluate: parse the selector and match it against the graph
//  3. Render: serialize the matches as JSON, DOT or SVG
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
//	runner := pipeline.NewRunner(logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Root:     ".",
//	    Selector: ":root > .prod",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := pipeline.Render(ctx, result, pipeline.FormatJSON)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	qerrors "github.com/matzehuels/depquery/pkg/errors"
	qio "github.com/matzehuels/depquery/pkg/io"
	"github.com/matzehuels/depquery/pkg/tree"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultSelector matches every package.
	DefaultSelector = "*"

	// DefaultFormat is the default output format.
	DefaultFormat = FormatJSON
)

// Format constants for output formats.
const (
	FormatJSON  = "json"
	FormatTable = "table"
	FormatDOT   = "dot"
	FormatSVG   = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON:  true,
	FormatTable: true,
	FormatDOT:   true,
	FormatSVG:   true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a query.
type Options struct {
	Root      string `json:"root"`
	Global    bool   `json:"global,omitempty"`
	Selector  string `json:"selector,omitempty"`
	KeepLinks bool   `json:"keep_links,omitempty"` // report link nodes instead of their targets
	Workers   int    `json:"workers,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
}

// Result contains the outputs of a query.
type Result struct {
	// Graph is the full install tree the selector was evaluated against.
	Graph *tree.Graph

	// Nodes are the matched nodes in graph order.
	Nodes []*tree.Node

	// Records are the serialized forms of Nodes.
	Records []qio.Record

	// Stats contains timing and size information.
	Stats Stats
}

// Stats contains query execution statistics.
type Stats struct {
	NodeCount    int
	EdgeCount    int
	MatchCount   int
	BuildTime    time.Duration
	EvaluateTime time.Duration
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return qerrors.New(qerrors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: json, table, dot, svg)", format)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and applies defaults.
// It is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Root == "" {
		o.Root = "."
	}
	if o.Selector == "" {
		o.Selector = DefaultSelector
	}
	if err := qerrors.ValidateSelector(o.Selector); err != nil {
		return err
	}
	if o.Workers < 0 {
		return qerrors.New(qerrors.ErrCodeInvalidInput, "workers must not be negative: %d", o.Workers)
	}
	if o.Workers == 0 {
		o.Workers = tree.DefaultWorkers
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// BuildOptions returns the graph builder options for o.
func (o *Options) BuildOptions() tree.Options {
	opts := tree.Options{Global: o.Global, Workers: o.Workers}
	if o.Logger != nil {
		opts.Logger = o.Logger.Debugf
	}
	return opts
}
