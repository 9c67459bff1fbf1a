package images

import (
	"context"
	"errors"
	"testing"

	"github.com/brogergvhs/mxscraper/internal/book"
	"github.com/brogergvhs/mxscraper/internal/fetch"
	"github.com/brogergvhs/mxscraper/internal/providers"
	"github.com/brogergvhs/mxscraper/internal/scrape"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher map[string]string

func (f fakeFetcher) Fetch(_ context.Context, url string, _ any) ([]byte, error) {
	body, ok := f[url]
	if !ok {
		return nil, &fetch.Error{URL: url, Status: 404}
	}

	return []byte(body), nil
}

const galleryHTML = `<html><head>
<title>
  Summer   Gallery
</title>
<meta name="keywords" content="beach, sun,, sea ">
</head><body>
<img src="https://cdn.test/g/avatar.png">
<img src="/g/01.png">
<img srcset="https://cdn.test/g/02-300x400.jpg 300w, https://cdn.test/g/02-900x1200.jpg 900w">
<picture><source srcset="https://cdn.test/g/03.webp"></picture>
<img src="data:image/png;base64,AAAA">
<a href="https://cdn.test/g/linked.png">not scanned</a>
</body></html>`

func TestGetURLs(t *testing.T) {
	p := New(nil, nil)
	require.True(t, p.Supports("img:https://site.test/gallery"))
	require.False(t, p.Supports("https://site.test/gallery"))

	f := fakeFetcher{"https://site.test/gallery": galleryHTML}

	g, err := p.GetURLs(context.Background(), "img:https://site.test/gallery", providers.Request{Fetcher: f})
	require.NoError(t, err)

	assert.Equal(t, &book.Gallery{
		Title:     "Summer Gallery",
		URLSource: "https://site.test/gallery",
		URLs: []string{
			"https://site.test/g/01.png",
			"https://cdn.test/g/02-900x1200.jpg",
			"https://cdn.test/g/03.webp",
		},
		Tags: []string{"beach", "sun", "sea"},
	}, g)
}

func TestGetURLsThroughRegistry(t *testing.T) {
	r := providers.NewRegistry()
	require.NoError(t, r.Register(New([]string{"png"}, nil)))

	f := fakeFetcher{"https://site.test/gallery": galleryHTML}

	res, err := r.Resolve(context.Background(), "img:https://site.test/gallery", "", providers.Request{Fetcher: f})
	require.NoError(t, err)

	assert.Equal(t, Name, res.Plugin)
	require.Len(t, res.Book.Chapters, 1)
	assert.Equal(t, []book.Page{{
		Number:   1,
		Title:    "Summer Gallery page #1",
		Filename: "01.png",
		URL:      "https://site.test/g/01.png",
	}}, res.Book.Chapters[0].Pages)
	assert.Equal(t, []book.Tag{
		{Name: "beach", Metadata: []book.Metadata{}},
		{Name: "sun", Metadata: []book.Metadata{}},
		{Name: "sea", Metadata: []book.Metadata{}},
	}, res.Book.Tags)
}

func TestGetURLsFailures(t *testing.T) {
	p := New(nil, nil)
	ctx := context.Background()

	_, err := p.GetURLs(ctx, "img:/relative", providers.Request{Fetcher: fakeFetcher{}})
	var nf *scrape.NotFoundError
	assert.True(t, errors.As(err, &nf))

	_, err = p.GetURLs(ctx, "img:https://site.test/missing", providers.Request{Fetcher: fakeFetcher{}})
	var fe *fetch.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 404, fe.Status)

	f := fakeFetcher{"https://site.test/empty": `<html><title>x</title><body></body></html>`}
	_, err = p.GetURLs(ctx, "img:https://site.test/empty", providers.Request{Fetcher: f})
	var ee *scrape.ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "images", ee.Step)
}

func TestMissingTitle(t *testing.T) {
	f := fakeFetcher{"https://site.test/x": `<html><body><img src="/a.png"></body></html>`}

	g, err := New(nil, nil).GetURLs(context.Background(), "img:https://site.test/x", providers.Request{Fetcher: f})
	require.NoError(t, err)
	assert.Equal(t, "No title found", g.Title)
	assert.Empty(t, g.Tags)
}
