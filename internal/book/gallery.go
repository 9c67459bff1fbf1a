package book

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// BookFromGallery wraps a gallery into a book with a single chapter whose
// pages follow the gallery URL order.
func BookFromGallery(g *Gallery) (*Book, error) {
	ch, err := chapterFromGallery(g)
	if err != nil {
		return nil, err
	}

	tags := make([]Tag, len(g.Tags))
	for i, t := range g.Tags {
		tags[i] = Tag{Name: t, Metadata: []Metadata{}}
	}

	return &Book{
		Title:        g.Title,
		TitleAliases: []TitleAlias{},
		URL:          g.URLSource,
		Authors:      []Author{},
		Tags:         tags,
		Chapters:     []Chapter{ch},
		Metadata:     []Metadata{},
	}, nil
}

func chapterFromGallery(g *Gallery) (Chapter, error) {
	pages := make([]Page, 0, len(g.URLs))

	for i, raw := range g.URLs {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() {
			return Chapter{}, fmt.Errorf("invalid gallery url %q", raw)
		}

		n := i + 1
		filename := path.Base(u.Path)
		if filename == "/" || filename == "." || strings.TrimSpace(filename) == "" {
			filename = fmt.Sprintf("%s_%d", g.Title, n)
		}

		pages = append(pages, Page{
			Number:   n,
			Title:    fmt.Sprintf("%s page #%d", g.Title, n),
			Filename: filename,
			URL:      u.String(),
		})
	}

	return Chapter{
		Title:  g.Title,
		Number: 1,
		Pages:  pages,
		URL:    g.URLSource,
	}, nil
}
