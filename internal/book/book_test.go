package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookFromGallery(t *testing.T) {
	g := &Gallery{
		Title:     "Cats",
		URLSource: "https://example.com/cats",
		URLs:      []string{"https://cdn.example.com/a/cat.png", "https://cdn.example.com/"},
		Tags:      []string{"animals", "animals"},
	}

	b, err := BookFromGallery(g)
	require.NoError(t, err)

	assert.Equal(t, "Cats", b.Title)
	assert.Equal(t, "https://example.com/cats", b.URL)
	require.Len(t, b.Tags, 2)
	assert.Equal(t, "animals", b.Tags[1].Name)

	require.Len(t, b.Chapters, 1)
	pages := b.Chapters[0].Pages
	require.Len(t, pages, 2)
	assert.Equal(t, Page{Number: 1, Title: "Cats page #1", Filename: "cat.png", URL: "https://cdn.example.com/a/cat.png"}, pages[0])
	assert.Equal(t, "Cats_2", pages[1].Filename)

	assert.NoError(t, b.Validate())
}

func TestBookFromGalleryRejectsRelativeURL(t *testing.T) {
	_, err := BookFromGallery(&Gallery{Title: "x", URLs: []string{"/relative.png"}})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	b := &Book{
		Authors: []Author{{Name: "Jane"}, {Name: "John"}},
		Chapters: []Chapter{
			{Number: 1, Pages: []Page{{Number: 1}, {Number: 2}}},
			{Number: 2},
		},
	}
	require.NoError(t, b.Validate())
	assert.Equal(t, 2, b.CountPages())

	b.Authors = append(b.Authors, Author{Name: "Jane"})
	assert.ErrorContains(t, b.Validate(), "duplicate author")

	b.Authors = nil
	b.Chapters[1].Number = 3
	assert.ErrorContains(t, b.Validate(), "has number 3")

	b.Chapters[1].Number = 2
	b.Chapters[0].Pages[1].Number = 5
	assert.ErrorContains(t, b.Validate(), "page at position 2")
}

func TestSummary(t *testing.T) {
	b := &Book{
		Title:    "Test Series",
		SourceID: "42",
		URL:      "https://mto.to/series/42",
		Authors:  []Author{{Name: "Jane Doe"}},
		Tags:     []Tag{{Name: "Action"}},
		Metadata: []Metadata{{Label: "Status", Content: "Ongoing"}},
		Chapters: []Chapter{{Number: 1, Pages: []Page{{Number: 1}}}},
	}

	s := b.Summary()
	assert.Contains(t, s, "Title:    Test Series")
	assert.Contains(t, s, "Authors:  Jane Doe")
	assert.Contains(t, s, "Status: Ongoing")
	assert.Contains(t, s, "Pages:    1")
}
