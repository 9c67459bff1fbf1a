package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/brogergvhs/mxscraper/internal/config"

	"github.com/spf13/cobra"
)

var configInitYes bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the Default config and make it active",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		path, err := config.ConfigPathByLabel("Default")
		if err == nil {
			_, _ = fmt.Fprintf(out, "Configuration already exists at:\n   %s\n", path)
			_, _ = fmt.Fprintln(out, "Use `mxscraper config reset` to recreate it.")
			return nil
		}

		_, _ = fmt.Fprintf(out, "Configuration file will be saved in:\n   %s\n\n", config.ConfigsDir())
		_, _ = fmt.Fprintln(out, "Default configuration:")
		config.DefaultConfig().Fprint(out)
		_, _ = fmt.Fprintln(out)

		if !configInitYes && !confirm("Create the Default config") {
			_, _ = fmt.Fprintln(out, "Aborted.")
			return nil
		}

		path, err = config.InitDefaultConfig()
		if err != nil && !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("failed to write config file: %w", err)
		}

		_, _ = fmt.Fprintln(out, "Config created at:", path)
		_, _ = fmt.Fprintln(out, "This config is now active (label: Default).")

		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&configInitYes, "yes", "y", false, "do not ask for confirmation")
	configCmd.AddCommand(configInitCmd)
}
