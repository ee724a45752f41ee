package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/debstat/debstat/pkg/archive"
	"github.com/debstat/debstat/pkg/depgraph"
	"github.com/debstat/debstat/pkg/render"
	"github.com/debstat/debstat/pkg/resolve"
	"github.com/debstat/debstat/pkg/status"
)

// treeOptions collects every tree command flag.
type treeOptions struct {
	input             string
	focus             string
	invert            bool
	depth             int
	noDev             bool
	target            string
	allTargets        bool
	noDedupe          bool
	charset           string
	prefixDepth       bool
	noIndent          bool
	jsonLines         bool
	report            bool
	filter            string
	concurrency       int
	suite             string
	baseURL           string
	offline           bool
	color             string
	duplicates        bool
	collapseWorkspace bool
	include           []string
	exclude           []string
}

// treeCommand creates the tree command, the tool's main operation.
func (c *CLI) treeCommand() *cobra.Command {
	var opts treeOptions

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Annotate the dependency tree with archive status",
		Long: `Annotate the resolved dependency tree with archive availability.

Reads a resolver metadata document (JSON) from --input or stdin, looks up
every registry dependency in the archive index, and prints the dependency
tree with one status annotation per package:

  ✓ in archive       a compatible version is already packaged
  ⧖ in NEW queue     awaiting review, shown with its queue age
  ! outdated         archive carries only an older version
  ✗ missing          not packaged at all
  ? lookup failed    the archive could not be queried

Use --filter missing to see only the packages that still need work, or
--duplicates to list packages resolved at more than one version.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTree(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "-", "resolver metadata file (\"-\" for stdin)")
	cmd.Flags().StringVarP(&opts.focus, "package", "p", "", "focus on one package (name or name:version)")
	cmd.Flags().BoolVarP(&opts.invert, "invert", "i", false, "invert the tree: show what depends on --package")
	cmd.Flags().IntVar(&opts.depth, "depth", 0, "maximum display depth (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.noDev, "no-dev-dependencies", false, "drop dev-dependencies entirely")
	cmd.Flags().StringVar(&opts.target, "target", "", "filter platform-conditional dependencies by target triple")
	cmd.Flags().BoolVar(&opts.allTargets, "all-targets", false, "keep dependencies of every platform")
	cmd.Flags().BoolVarP(&opts.noDedupe, "no-dedupe", "a", false, "re-expand repeated subtrees instead of marking them (*)")
	cmd.Flags().StringVar(&opts.charset, "charset", "utf8", "tree drawing characters: utf8 or ascii")
	cmd.Flags().BoolVar(&opts.prefixDepth, "prefix-depth", false, "print numeric depth instead of branches")
	cmd.Flags().BoolVar(&opts.noIndent, "no-indent", false, "print bare package lines")
	cmd.Flags().BoolVar(&opts.jsonLines, "json", false, "emit one JSON object per line")
	cmd.Flags().BoolVar(&opts.report, "report", false, "emit a single JSON report document")
	cmd.Flags().StringVar(&opts.filter, "filter", "all", "which packages to show: all or missing")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "j", 0, "parallel archive lookups")
	cmd.Flags().StringVar(&opts.suite, "suite", "", "stable suite to query")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "archive index service URL")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "skip all network lookups")
	cmd.Flags().StringVar(&opts.color, "color", "auto", "colorize output: auto, always or never")
	cmd.Flags().BoolVarP(&opts.duplicates, "duplicates", "d", false, "show only packages resolved at multiple versions")
	cmd.Flags().BoolVarP(&opts.collapseWorkspace, "collapse-workspace", "w", false, "hide workspace members that are dependencies of other members")
	cmd.Flags().StringSliceVar(&opts.include, "include", nil, "workspace members to report on")
	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", nil, "workspace members to skip")

	return cmd
}

func (c *CLI) runTree(ctx context.Context, opts treeOptions) error {
	g, err := c.buildGraph(opts)
	if err != nil {
		return err
	}

	statuses, err := c.annotate(ctx, g, opts)
	if err != nil {
		return err
	}

	ropts, err := renderOptions(opts)
	if err != nil {
		return err
	}
	if opts.filter == "missing" {
		ropts.Keep = status.MissingOnly(g, statuses)
	}

	if opts.duplicates {
		return c.writeDuplicates(g, statuses, ropts)
	}

	switch {
	case opts.jsonLines:
		return render.WriteJSONLines(os.Stdout, g, statuses, ropts)
	case opts.report:
		return render.WriteReport(os.Stdout, g, statuses, c.suite(opts), ropts)
	default:
		return render.Write(os.Stdout, g, statuses, ropts)
	}
}

// buildGraph loads the resolver snapshot and constructs the graph.
func (c *CLI) buildGraph(opts treeOptions) (*depgraph.Graph, error) {
	snap, err := resolve.LoadFile(opts.input)
	if err != nil {
		return nil, err
	}
	g, err := depgraph.Build(snap, depgraph.Options{
		NoDev:             opts.noDev,
		Target:            opts.target,
		AllTargets:        opts.allTargets,
		Include:           opts.include,
		Exclude:           opts.exclude,
		CollapseWorkspace: opts.collapseWorkspace,
	})
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("graph built", "packages", g.Len(), "roots", len(g.Roots))
	return g, nil
}

// annotate prefetches archive statuses for all registry packages and runs
// the propagation pass.
func (c *CLI) annotate(ctx context.Context, g *depgraph.Graph, opts treeOptions) (status.Map, error) {
	cache := archive.NewCache(c.oracle(opts))

	if !opts.offline {
		keys := len(g.RegistryIDs())
		p := newProgress(c.Logger)
		spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Checking %d packages against the archive...", keys))
		spinner.Start()
		err := cache.Prefetch(ctx, g, c.concurrency(opts))
		spinner.Stop()
		if err != nil {
			return nil, err
		}
		p.done(fmt.Sprintf("Checked %d packages", keys))
	}

	return status.Compute(ctx, g, cache), nil
}

func (c *CLI) oracle(opts treeOptions) archive.Oracle {
	if opts.offline {
		return archive.Offline{}
	}
	return archive.NewClient(fallback(opts.baseURL, c.config.BaseURL), c.suite(opts))
}

func (c *CLI) suite(opts treeOptions) string {
	s := fallback(opts.suite, c.config.Suite)
	if s == "" {
		return archive.DefaultSuite
	}
	return s
}

func (c *CLI) concurrency(opts treeOptions) int {
	if opts.concurrency > 0 {
		return opts.concurrency
	}
	if c.config.Concurrency > 0 {
		return c.config.Concurrency
	}
	return defaultConcurrency
}

// writeDuplicates renders each multi-version package as an inverted
// subtree, so the paths that pull in each version are visible.
func (c *CLI) writeDuplicates(g *depgraph.Graph, statuses status.Map, ropts render.Options) error {
	dups := g.Duplicates()
	if len(dups) == 0 {
		printInfo("no duplicate packages")
		return nil
	}
	ropts.Invert = true
	for i, id := range dups {
		if i > 0 {
			fmt.Println()
		}
		ropts.Focus = id.Name + ":" + id.Version
		if err := render.Write(os.Stdout, g, statuses, ropts); err != nil {
			return err
		}
	}
	return nil
}

func renderOptions(opts treeOptions) (render.Options, error) {
	ropts := render.Options{
		NoDedupe: opts.noDedupe,
		MaxDepth: opts.depth,
		Invert:   opts.invert,
		Focus:    opts.focus,
	}

	switch opts.charset {
	case "utf8", "":
		ropts.Charset = render.CharsetUTF8
	case "ascii":
		ropts.Charset = render.CharsetASCII
	default:
		return ropts, fmt.Errorf("unknown charset %q (expected utf8 or ascii)", opts.charset)
	}

	switch {
	case opts.noIndent:
		ropts.Prefix = render.PrefixNone
	case opts.prefixDepth:
		ropts.Prefix = render.PrefixDepth
	}

	switch opts.color {
	case "always":
		ropts.Color = true
	case "never":
		ropts.Color = false
	case "auto", "":
		ropts.Color = isatty.IsTerminal(os.Stdout.Fd())
	default:
		return ropts, fmt.Errorf("unknown color mode %q (expected auto, always or never)", opts.color)
	}

	switch opts.filter {
	case "all", "missing":
	default:
		return ropts, fmt.Errorf("unknown filter %q (expected all or missing)", opts.filter)
	}

	return ropts, nil
}
