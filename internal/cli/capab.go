package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mapstack/pkg/capab"
	"github.com/matzehuels/mapstack/pkg/errors"
	"github.com/matzehuels/mapstack/pkg/genres/ogc"
)

// capabOptions holds capab command flags.
type capabOptions struct {
	service string
	refresh bool
}

// capabCommand creates the capab command for listing service layers.
func (c *CLI) capabCommand() *cobra.Command {
	opts := capabOptions{service: capab.ServiceWMS}

	cmd := &cobra.Command{
		Use:   "capab <service-url>",
		Short: "List the layers a WMS, WFS or WMTS service advertises",
		Example: `  mapstack capab https://maps.example.org/wms
  mapstack capab https://maps.example.org/wfs --service wfs
  mapstack capab https://tiles.example.org/wmts --service wmts --refresh`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCapab(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.service, "service", "s", opts.service, "service type: wms, wfs or wmts")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the cache and fetch again")

	return cmd
}

func (c *CLI) runCapab(cmd *cobra.Command, serviceURL string, opts capabOptions) error {
	ctx := cmd.Context()
	service := strings.ToUpper(opts.service)
	switch service {
	case capab.ServiceWMS, capab.ServiceWFS, capab.ServiceWMTS:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown service %q (want wms, wfs or wmts)", opts.service)
	}
	if err := errors.ValidateURL(serviceURL); err != nil {
		return err
	}

	client, store, err := c.newClient(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	url := ogc.CapabilitiesURL(serviceURL, service, nil)
	loggerFromContext(ctx).Debug("fetching capabilities", "url", url)

	spinner := newSpinner(ctx, "Fetching capabilities...")
	spinner.Start()
	var data []byte
	if opts.refresh {
		data, err = client.Refresh(ctx, url)
	} else {
		data, err = client.Get(ctx, url)
	}
	if err != nil {
		spinner.StopWithError(service + " capabilities unavailable")
		return errors.Wrap(errors.ErrCodeFetchFailed, err, "%s capabilities", service)
	}
	spinner.Stop()

	doc, err := capab.Parse(service, data)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "%s capabilities", service)
	}
	printCapabilities(doc, serviceURL)
	return nil
}

func printCapabilities(doc capab.Document, serviceURL string) {
	infos := doc.LayerInfos()

	fmt.Fprintln(out, StyleTitle.Render(doc.Service()+" "+doc.DocVersion()))
	printKeyValue("Service", StyleLink.Render(serviceURL))
	printKeyValue("Layers", StyleNumber.Render(fmt.Sprint(len(infos))))
	printNewline()

	for _, info := range infos {
		line := StyleHighlight.Render(info.Name)
		if info.Title != "" && info.Title != info.Name {
			line += " " + StyleDim.Render(info.Title)
		}
		fmt.Fprintln(out, line)
		if info.Extent != nil {
			printDetail("Extent: %s", info.Extent)
		}
		if len(info.CRS) > 0 {
			printDetail("CRS: %s", strings.Join(info.CRS, ", "))
		}
	}
}
