package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	qio "github.com/matzehuels/depquery/pkg/io"
	"github.com/matzehuels/depquery/pkg/pipeline"
)

// queryFlags holds the flags of the query command.
type queryFlags struct {
	root        string
	global      bool
	format      string
	output      string
	keepLinks   bool
	workers     int
	interactive bool
}

// queryCommand creates the query command.
func (c *CLI) queryCommand() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "query [selector]",
		Short: "Print the installed packages matching a selector",
		Long: `Build the dependency graph of the install tree at --root and print the
packages matching the selector, in breadth-first order from the root.

Without a selector every package is printed. Selectors follow CSS:

  #lodash                 packages named lodash
  #lodash@^4              ... whose version satisfies ^4
  :root > .prod           direct production dependencies of the project
  .workspace              workspace members
  [license=MIT]:not(:link)
  :has(#react) > *        dependencies of packages that depend on react
  :semver(>=2.0.0)

Linked packages are reported at their target location unless --keep-links
is set.`,
		Example: `  # Direct dependencies as a table
  depquery query ':root > *' -f table

  # Everything in the global prefix
  depquery query -g

  # Render the workspace graph
  depquery query '.workspace' -f svg -o workspaces.svg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, format, err := c.queryOptions(cmd, args, flags)
			if err != nil {
				return err
			}
			return c.runQuery(cmd, opts, format, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.root, "root", "C", "", "project directory, or global prefix with --global (default: current directory)")
	cmd.Flags().BoolVarP(&flags.global, "global", "g", false, "query the global install prefix")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "output format: json, table, dot, svg")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write output to a file instead of stdout")
	cmd.Flags().BoolVar(&flags.keepLinks, "keep-links", false, "report link nodes instead of their targets")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "concurrent directory reads")
	cmd.Flags().BoolVarP(&flags.interactive, "interactive", "i", false, "browse the results in the terminal")

	return cmd
}

// queryOptions merges config defaults, flags and arguments.
func (c *CLI) queryOptions(cmd *cobra.Command, args []string, flags queryFlags) (pipeline.Options, string, error) {
	cfg := c.Config
	opts := pipeline.Options{
		Root:      flags.root,
		Global:    flags.global,
		Selector:  cfg.Selector,
		KeepLinks: cfg.KeepLinks,
		Workers:   cfg.Workers,
		Logger:    loggerFromContext(cmd.Context()),
	}
	if len(args) > 0 {
		opts.Selector = args[0]
	}
	if cmd.Flags().Changed("keep-links") {
		opts.KeepLinks = flags.keepLinks
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers = flags.workers
	}
	if opts.Global && opts.Root == "" {
		opts.Root = globalPrefix(cfg)
	}

	format := cfg.Format
	if cmd.Flags().Changed("format") {
		format = flags.format
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		return opts, "", err
	}
	return opts, format, nil
}

func (c *CLI) runQuery(cmd *cobra.Command, opts pipeline.Options, format string, flags queryFlags) error {
	ctx := cmd.Context()
	runner := pipeline.NewRunner(opts.Logger)
	qlog := startQuery(opts.Logger, LogDebug, "")

	var spinner *Spinner
	if flags.interactive {
		spinner = newSpinnerWithContext(ctx, cmd.ErrOrStderr(), "Walking install tree...")
		spinner.Start()
	}
	result, err := runner.Execute(ctx, opts)
	if spinner != nil {
		if err != nil {
			spinner.StopWithError("Query failed")
		} else {
			spinner.StopWithSuccess(fmt.Sprintf("Matched %d of %d packages", result.Stats.MatchCount, result.Stats.NodeCount))
		}
	}
	if err != nil {
		return err
	}
	qlog.done(result.Stats)

	if flags.interactive {
		_, err := tea.NewProgram(newResultModel(result.Records)).Run()
		return err
	}

	if flags.output != "" {
		if err := writeOutput(ctx, result, format, flags.output); err != nil {
			return err
		}
		printFile(cmd.ErrOrStderr(), flags.output)
		printStats(cmd.ErrOrStderr(), result.Stats)
		return nil
	}

	data, err := render(ctx, result, format)
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(data); err != nil {
		return err
	}
	if format == pipeline.FormatTable {
		if len(result.Records) == 0 {
			printInfo(cmd.ErrOrStderr(), "no packages match %q", opts.Selector)
		}
		printStats(cmd.ErrOrStderr(), result.Stats)
	}
	return nil
}

// render serializes result, drawing tables itself and leaving every other
// format to the pipeline.
func render(ctx context.Context, result *pipeline.Result, format string) ([]byte, error) {
	if format == pipeline.FormatTable {
		return []byte(renderTable(result.Records) + "\n"), nil
	}
	return pipeline.Render(ctx, result, format)
}

func writeOutput(ctx context.Context, result *pipeline.Result, format, path string) error {
	if format == pipeline.FormatJSON {
		return qio.ExportJSON(result.Records, path)
	}
	data, err := render(ctx, result, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// globalPrefix returns the npm global prefix: $NPM_CONFIG_PREFIX, then the
// config file, then the installation prefix of the node binary on PATH.
func globalPrefix(cfg Config) string {
	if p := os.Getenv("NPM_CONFIG_PREFIX"); p != "" {
		return p
	}
	if cfg.GlobalPrefix != "" {
		return cfg.GlobalPrefix
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "npm")
		}
	}
	if node, err := exec.LookPath("node"); err == nil {
		if real, err := filepath.EvalSymlinks(node); err == nil {
			node = real
		}
		return filepath.Dir(filepath.Dir(node))
	}
	return "/usr/local"
}
