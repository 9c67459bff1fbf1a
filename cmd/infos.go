package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/brogergvhs/mxscraper/internal/config"
	"github.com/brogergvhs/mxscraper/internal/providers"
	"github.com/brogergvhs/mxscraper/internal/providers/batoto"
	"github.com/brogergvhs/mxscraper/internal/providers/generic"
	"github.com/brogergvhs/mxscraper/internal/providers/images"
	"github.com/brogergvhs/mxscraper/internal/ui"

	"github.com/spf13/cobra"
)

var infosPlugins bool

// termForms documents the accepted terms of the built-in plugins.
var termForms = map[string]string{
	batoto.Name:  batoto.Prefix + "<id>, https://bato.to/series/<id>",
	images.Name:  images.Prefix + "<url>",
	generic.Name: generic.Prefix + "<url>",
}

var infosCmd = &cobra.Command{
	Use:   "infos",
	Short: "Show version, config location and the available plugins",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, used, err := config.LoadMerged(config.Options{
			IgnoreConfig: flagIgnoreConfig,
			Debug:        flagDebug,
		})
		if err != nil {
			return err
		}

		registry, err := newRegistry(cfg, ui.NewLogger(cfg.Debug).WithOutput(cmd.ErrOrStderr()))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if infosPlugins {
			return printPlugins(out, registry.List())
		}

		_, _ = fmt.Fprintf(out, "mxscraper %s\n", Version)
		_, _ = fmt.Fprintf(out, "Config root: %s\n", config.ConfigRoot())
		_, _ = fmt.Fprintf(out, "Config used: %s\n", used)
		_, _ = fmt.Fprintf(out, "Plugins:     %d (see --plugins)\n", len(registry.List()))

		return nil
	},
}

func printPlugins(w io.Writer, plugins []providers.Plugin) error {
	tw := tabwriter.NewWriter(w, 0, 0, 4, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tCAPABILITIES\tTERMS")

	for _, p := range plugins {
		forms := termForms[p.Name()]
		if forms == "" {
			forms = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name(), p.Capabilities(), forms)
	}

	return tw.Flush()
}

func init() {
	infosCmd.Flags().BoolVar(&infosPlugins, "plugins", false, "list the registered plugins and their capabilities")
	rootCmd.AddCommand(infosCmd)
}
