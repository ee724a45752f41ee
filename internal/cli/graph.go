package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/debstat/debstat/pkg/render"
)

// graphCommand creates the graph command for DOT/SVG export.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		opts     treeOptions
		format   string
		output   string
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the annotated graph as Graphviz DOT or SVG",
		Long: `Export the annotated dependency graph for visual inspection.

Nodes are filled with their archive status color; cycle back-edges are
dashed and dev edges dotted. DOT output can be post-processed with any
Graphviz tooling; SVG is rendered in process.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd.Context(), opts, format, output, detailed)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "-", "resolver metadata file (\"-\" for stdin)")
	cmd.Flags().BoolVar(&opts.noDev, "no-dev-dependencies", false, "drop dev-dependencies entirely")
	cmd.Flags().StringVar(&opts.target, "target", "", "filter platform-conditional dependencies by target triple")
	cmd.Flags().BoolVar(&opts.allTargets, "all-targets", false, "keep dependencies of every platform")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "j", 0, "parallel archive lookups")
	cmd.Flags().StringVar(&opts.suite, "suite", "", "stable suite to query")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "archive index service URL")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "skip all network lookups")
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: dot or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include status text in node labels")

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, opts treeOptions, format, output string, detailed bool) error {
	g, err := c.buildGraph(opts)
	if err != nil {
		return err
	}
	statuses, err := c.annotate(ctx, g, opts)
	if err != nil {
		return err
	}

	dot := render.ToDOT(g, statuses, render.DOTOptions{Detailed: detailed})

	var data []byte
	switch strings.ToLower(format) {
	case "dot":
		data = []byte(dot)
	case "svg":
		data, err = render.RenderSVG(dot)
		if err != nil {
			return fmt.Errorf("render svg: %w", err)
		}
	default:
		return fmt.Errorf("unknown format %q (expected dot or svg)", format)
	}

	if output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return err
	}
	printFile(output)
	return nil
}
