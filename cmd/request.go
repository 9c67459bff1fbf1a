package cmd

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	requestConn  connFlags
	requestDest  string
	requestPrint bool
)

func init() {
	requestCmd := &cobra.Command{
		Use:   "request <url>",
		Short: "Fetch a single URL with the configured fetcher and print or save the body",
		Long: `Fetch a single URL the same way plugins do (profile headers, cookies,
auth and FlareSolverr included). The body goes to stdout unless --dest is
given; a directory destination gets the file name of the URL.`,
		Args: cobra.ExactArgs(1),
		RunE: runRequest,
	}

	requestCmd.Flags().StringVarP(&requestDest, "dest", "d", "", "file or directory to save the body to")
	requestCmd.Flags().BoolVarP(&requestPrint, "print", "t", false, "print the body even when --dest is set")
	requestConn.register(requestCmd)

	rootCmd.AddCommand(requestCmd)
}

func runRequest(cmd *cobra.Command, args []string) error {
	opts, err := requestConn.options()
	if err != nil {
		return err
	}

	s, err := newSession(cmd, &requestConn, opts)
	if err != nil {
		return err
	}

	target := args[0]
	body, err := s.request().Fetch(cmd.Context(), target)
	if err != nil {
		return err
	}

	if requestPrint || requestDest == "" {
		_, err := s.out.Write(body)
		return err
	}

	dest := destinationPath(requestDest, target)
	if err := os.WriteFile(dest, body, 0644); err != nil {
		return fmt.Errorf("cannot write %s: %w", dest, err)
	}
	s.log.Infof("Saved %d bytes to %s\n", len(body), dest)

	return nil
}

// destinationPath resolves dest to a file path. Directories get the last
// path segment of target, or download.bin when there is none.
func destinationPath(dest, target string) string {
	info, err := os.Stat(dest)
	if err != nil || !info.IsDir() {
		return dest
	}

	name := "download.bin"
	if u, err := url.Parse(target); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
			name = base
		}
	}

	return filepath.Join(dest, name)
}
