// Package book holds the structured result a provider produces for one term:
// a Book with ordered chapters and pages, or a flat Gallery of image URLs.
package book

import (
	"fmt"
	"strings"
)

type Book struct {
	Title        string       `json:"title" yaml:"title"`
	TitleAliases []TitleAlias `json:"title_aliases" yaml:"title_aliases"`
	SourceID     string       `json:"source_id" yaml:"source_id"`
	URL          string       `json:"url" yaml:"url"`
	Authors      []Author     `json:"authors" yaml:"authors"`
	Tags         []Tag        `json:"tags" yaml:"tags"`
	Description  string       `json:"description" yaml:"description"`
	Chapters     []Chapter    `json:"chapters" yaml:"chapters"`
	Metadata     []Metadata   `json:"metadata" yaml:"metadata"`
}

type Chapter struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Number      int    `json:"number" yaml:"number"`
	Pages       []Page `json:"pages" yaml:"pages"`
	URL         string `json:"url" yaml:"url"`
}

// Page is one fetchable asset of a chapter.
type Page struct {
	Number   int    `json:"number" yaml:"number"`
	Title    string `json:"title" yaml:"title"`
	Filename string `json:"filename" yaml:"filename"`
	URL      string `json:"url" yaml:"url"`
}

type Author struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

type Tag struct {
	Name     string     `json:"name" yaml:"name"`
	Metadata []Metadata `json:"metadata" yaml:"metadata"`
}

type TitleAlias struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

type Metadata struct {
	Label   string `json:"label" yaml:"label"`
	Content string `json:"content" yaml:"content"`
}

// Gallery is the flat result of providers without chapter structure.
type Gallery struct {
	Title     string   `json:"title" yaml:"title"`
	URLSource string   `json:"url_source" yaml:"url_source"`
	URLs      []string `json:"urls" yaml:"urls"`
	Tags      []string `json:"tags" yaml:"tags"`
}

// CountPages returns the number of pages across all chapters.
func (b *Book) CountPages() int {
	n := 0
	for _, ch := range b.Chapters {
		n += len(ch.Pages)
	}

	return n
}

// Validate checks the ordering and uniqueness invariants of a book.
func (b *Book) Validate() error {
	seen := make(map[string]bool, len(b.Authors))
	for _, a := range b.Authors {
		if seen[a.Name] {
			return fmt.Errorf("duplicate author %q", a.Name)
		}
		seen[a.Name] = true
	}

	for i, ch := range b.Chapters {
		if ch.Number != i+1 {
			return fmt.Errorf("chapter at position %d has number %d", i+1, ch.Number)
		}

		for j, p := range ch.Pages {
			if p.Number != j+1 {
				return fmt.Errorf("chapter %d: page at position %d has number %d", ch.Number, j+1, p.Number)
			}
		}
	}

	return nil
}

// Summary renders the main attributes of a book for terminal output.
func (b *Book) Summary() string {
	names := make([]string, len(b.Authors))
	for i, a := range b.Authors {
		names[i] = a.Name
	}

	tags := make([]string, len(b.Tags))
	for i, t := range b.Tags {
		tags[i] = t.Name
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Title:    %s\n", b.Title)
	fmt.Fprintf(&sb, "Source:   %s (%s)\n", b.URL, b.SourceID)
	if len(names) > 0 {
		fmt.Fprintf(&sb, "Authors:  %s\n", strings.Join(names, ", "))
	}
	if len(tags) > 0 {
		fmt.Fprintf(&sb, "Tags:     %s\n", strings.Join(tags, ", "))
	}
	for _, m := range b.Metadata {
		fmt.Fprintf(&sb, "%s: %s\n", m.Label, m.Content)
	}
	fmt.Fprintf(&sb, "Chapters: %d\n", len(b.Chapters))
	fmt.Fprintf(&sb, "Pages:    %d", b.CountPages())

	return sb.String()
}
