package downloader

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/brogergvhs/mxscraper/internal/book"

	"gopkg.in/yaml.v3"
)

const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// EncodeBook writes b to w as YAML or indented JSON.
func EncodeBook(w io.Writer, b *book.Book, format string) error {
	switch format {
	case FormatYAML, "yml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(b); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	default:
		return fmt.Errorf("unknown metadata format %q (want yaml or json)", format)
	}
}

// WriteMetadata stores b as book.yaml or book.json in dir and returns the
// written path.
func WriteMetadata(dir string, b *book.Book, format string) (string, error) {
	ext := FormatYAML
	if format == FormatJSON {
		ext = FormatJSON
	}
	path := filepath.Join(dir, "book."+ext)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if err := EncodeBook(f, b, format); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	return path, f.Close()
}
