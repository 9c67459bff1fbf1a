package cmd

import (
	"fmt"

	"github.com/brogergvhs/mxscraper/internal/config"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the mxscraper config profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, used, err := config.LoadMerged(config.Options{
			IgnoreConfig: flagIgnoreConfig,
			Debug:        flagDebug,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Loaded config from:\n  %s\n\n", used)
		cfg.Fprint(out)
		return nil
	},
}

// confirm asks a yes/no question; anything but yes is a no.
func confirm(question string) bool {
	p := promptui.Prompt{
		Label:     question,
		IsConfirm: true,
	}

	_, err := p.Run()
	return err == nil
}

func init() {
	rootCmd.AddCommand(configCmd)
}
