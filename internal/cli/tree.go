package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mapstack/pkg/render"
	"github.com/matzehuels/mapstack/pkg/tree"
)

// treeOptions holds tree command flags.
type treeOptions struct {
	output   string
	detailed bool
	resolve  bool
	wait     time.Duration
}

// treeCommand creates the tree command for drawing the declared layer tree.
func (c *CLI) treeCommand() *cobra.Command {
	opts := treeOptions{}

	cmd := &cobra.Command{
		Use:   "tree <project>",
		Short: "Draw the declared layer tree",
		Long: `Draw the bases and the overlay tree of a project with Graphviz. Without
--output the DOT source is printed. The output extension selects the format:
.dot, .svg, .pdf or .png (the last two need rsvg-convert).

With --resolve the project is reconciled first and layers that produced no
render node are drawn dashed.`,
		Example: `  mapstack tree city.toml
  mapstack tree city.toml -o tree.svg --detailed
  mapstack tree city.toml -o tree.png --resolve`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTree(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (.dot, .svg, .pdf, .png)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show genre and attributes in labels")
	cmd.Flags().BoolVar(&opts.resolve, "resolve", false, "reconcile first and mark layers without nodes")
	cmd.Flags().DurationVar(&opts.wait, "wait", time.Minute, "with --resolve, how long to wait for capability-driven layers")

	return cmd
}

func (c *CLI) runTree(cmd *cobra.Command, path string, opts treeOptions) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	ws, err := c.openWorkspace(ctx, path)
	if err != nil {
		return err
	}
	defer ws.Close()

	ropts := render.Options{Detailed: opts.detailed}
	if opts.resolve {
		if _, done, err := ws.sync(ctx, opts.wait); err != nil {
			return err
		} else if !done {
			logger.Warn("layers still resolving", "pending", ws.rec.Pending())
		}
		ropts.Nodes = ws.rec.Snapshot()
	}

	var dot string
	ws.ctl.View(func(st *tree.State) { dot = render.ToDOT(st, ropts) })

	if opts.output == "" {
		fmt.Fprint(out, dot)
		return nil
	}

	data, err := renderDiagram(cmd, dot, opts.output)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	printSuccess("Layer tree written")
	printFile(opts.output)
	return nil
}

func renderDiagram(cmd *cobra.Command, dot, path string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".dot") {
		return []byte(dot), nil
	}
	svg, err := render.RenderSVG(cmd.Context(), dot)
	if err != nil {
		return nil, err
	}
	return render.Convert(cmd.Context(), svg, path)
}
