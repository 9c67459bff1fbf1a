package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var fetchFilesOpts fetchFlags

func init() {
	fetchFilesCmd := &cobra.Command{
		Use:   "fetch-files <file>...",
		Short: "Like fetch, with the terms read from files",
		Long: `Read terms from files and process them like "mxscraper fetch".
Terms are separated by whitespace. Lines starting with # are comments.
A file that cannot be read counts as a failed term.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := fetchSession(cmd, &fetchFilesOpts)
			if err != nil {
				return err
			}

			terms, failed := readTermFiles(args)
			return runTerms(cmd.Context(), s, &fetchFilesOpts, terms, failed)
		},
	}

	fetchFilesOpts.register(fetchFilesCmd)
	rootCmd.AddCommand(fetchFilesCmd)
}

func readTermFiles(paths []string) ([]string, []termOutcome) {
	var (
		terms  []string
		failed []termOutcome
	)

	for _, p := range paths {
		found, err := readTermFile(p)
		if err != nil {
			failed = append(failed, termOutcome{term: "file " + p, err: err})
			continue
		}
		terms = append(terms, found...)
	}

	return terms, failed
}

func readTermFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	terms, err := parseTerms(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return terms, nil
}

func parseTerms(r io.Reader) ([]string, error) {
	var terms []string

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, strings.Fields(line)...)
	}

	return terms, sc.Err()
}
