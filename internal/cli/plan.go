package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mapstack/pkg/api"
	"github.com/matzehuels/mapstack/pkg/surface"
	"github.com/matzehuels/mapstack/pkg/tree"
)

// planOptions holds plan command flags.
type planOptions struct {
	wait time.Duration
	json bool
}

// planCommand creates the plan command for reconciling a project once.
func (c *CLI) planCommand() *cobra.Command {
	opts := planOptions{}

	cmd := &cobra.Command{
		Use:   "plan <project>",
		Short: "Reconcile a project and print the resulting node stack",
		Long: `Load a project file, reconcile it against an empty surface and print the
render nodes from top to bottom. Capability-driven layers are waited for up
to --wait; layers that failed to resolve are logged and left out.`,
		Example: `  mapstack plan city.toml
  mapstack plan city.yaml --wait 2m
  mapstack plan city.toml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlan(cmd, args[0], opts)
		},
	}

	cmd.Flags().DurationVar(&opts.wait, "wait", time.Minute, "how long to wait for capability-driven layers")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the nodes as JSON")

	return cmd
}

func (c *CLI) runPlan(cmd *cobra.Command, path string, opts planOptions) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	ws, err := c.openWorkspace(ctx, path)
	if err != nil {
		return err
	}
	defer ws.Close()

	spinner := newSpinner(ctx, "Resolving layers...")
	defer spinner.Stop()
	if !opts.json {
		spinner.Start()
	}
	res, err := ws.ctl.Sync(ctx)
	if err != nil {
		return err
	}
	if res.Pending > 0 {
		spinner.SetMessage(fmt.Sprintf("Waiting for %d capability-driven %s...", res.Pending, plural(res.Pending, "layer", "layers")))
	}
	ws.wait(ctx, opts.wait)
	pending := ws.rec.Pending()

	bases, overlays := 0, 0
	ws.ctl.View(func(st *tree.State) { bases, overlays = st.Len() })
	nodes := ws.rec.Snapshot()
	if opts.json {
		return printNodesJSON(nodes)
	}

	spinner.StopWithResult(res, pending)
	prog.done(fmt.Sprintf("Reconciled %d bases and %d overlays", bases, overlays))
	printNewline()
	printStack(nodes)
	printNewline()
	printResult(res)
	printNextStep("Draw the layer tree", "mapstack tree "+path+" -o tree.svg")
	return nil
}

func printNodesJSON(nodes *surface.Collection) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(api.Nodes(nodes))
}
