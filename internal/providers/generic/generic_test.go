package generic

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
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

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	return doc
}

func TestCollectorFiltersCandidates(t *testing.T) {
	c := NewCollector([]string{".PNG", " jpg "}, nil)

	assert.True(t, c.Add("https://cdn/a/1.png", -1))
	assert.True(t, c.Add("https://cdn/a/2.jpg?token=x", -1))
	assert.False(t, c.Add("https://cdn/a/1.png", -1), "duplicate")
	assert.False(t, c.Add("https://cdn/a/3.webp", -1), "extension not allowed")
	assert.False(t, c.Add("https://cdn/site-logo.png", -1))
	assert.False(t, c.Add("https://cdn/avatar/5.png", -1))
	assert.False(t, c.Add("data:image/png;base64,xx.png", -1))
	assert.False(t, c.Add("javascript:void(0).png", -1))
	assert.False(t, c.Add("", -1))

	assert.Equal(t, []string{"https://cdn/a/1.png", "https://cdn/a/2.jpg?token=x"}, c.URLs())
}

func TestCollectorDefaultExtensions(t *testing.T) {
	c := NewCollector(nil, nil)

	assert.True(t, c.Add("https://cdn/1.webp", -1))
	assert.True(t, c.Add("https://cdn/2.jpeg", -1))
	assert.False(t, c.Add("https://cdn/3.gif", -1))
}

func TestCollectorCollapsesSizeVariants(t *testing.T) {
	c := NewCollector(nil, nil)
	c.Add("https://cdn/p/001-300x400.jpg", -1)
	c.Add("https://cdn/p/001-800x1200.jpg", -1)
	c.Add("https://cdn/p/002-300x400.jpg", -1)
	c.Add("https://cdn/p/002.jpg", -1)

	assert.Equal(t, []string{"https://cdn/p/001-800x1200.jpg", "https://cdn/p/002.jpg"}, c.URLs())
}

func TestCollectorOrdersByDataIndex(t *testing.T) {
	doc := mustDoc(t, `<html><body>
<img src="https://cdn/x/loose.png">
<div data-index="2"><img src="https://cdn/x/c.png"></div>
<div data-index="0"><img data-src="https://cdn/x/a.png"></div>
<img data-index="1" srcset="/x/b.png 1x, /x/b-1600x2400.png 2x">
<picture><source srcset="https://cdn/x/pic.webp"></picture>
<a href="./x/link.jpg">full</a>
<div style="background-image: url('/x/bg.jpg')"></div>
</body></html>`)

	c := NewCollector(nil, nil)
	n := c.ScanDocument(doc, "https://cdn/reader/1")
	assert.Equal(t, 8, n)

	assert.Equal(t, []string{
		"https://cdn/x/a.png",
		"https://cdn/x/b.png",
		"https://cdn/x/c.png",
		"https://cdn/x/loose.png",
		"https://cdn/x/pic.webp",
		"https://cdn/reader/x/link.jpg",
		"https://cdn/x/bg.jpg",
	}, c.URLs())
}

func TestCollectorScanState(t *testing.T) {
	c := NewCollector(nil, nil)
	c.ScanState(map[string]any{
		"b": []any{"https://cdn/2.png", "not a url", 3.0},
		"a": map[string]any{"html": `<div><img src="/1.png"></div>`},
	}, "https://site/read")

	assert.Equal(t, []string{"https://site/1.png", "https://cdn/2.png"}, c.URLs())
}

func TestParseChapterNumber(t *testing.T) {
	cases := []struct {
		href, title string
		label       string
		ok          bool
	}{
		{"/manga/foo/chapter-12", "", "12", true},
		{"/manga/foo/chapter_010-5", "", "10-5", true},
		{"/title/x/vol2/ch7", "", "2.7", true},
		{"/title/x/ch_3.5", "", "3.5", true},
		{"/read/ch-004", "", "4", true},
		{"/read/abc", "12. Chapter end", "12", true},
		{"/read/abc", "Vol 1 Chapter 8.2", "8.2", true},
		{"/u/user/chapter-1", "", "", false},
		{"/about", "About", "", false},
	}

	for _, tc := range cases {
		n, ok := parseChapterNumber(tc.href, tc.title)
		assert.Equal(t, tc.ok, ok, tc.href)
		assert.Equal(t, tc.label, n.label, tc.href)
	}
}

func TestChapterLinks(t *testing.T) {
	doc := mustDoc(t, `<html><body>
<a href="/manga/foo/chapter-10">Chapter 10</a>
<a href="/manga/foo/chapter-2">
   Chapter 2
</a>
<a href="/manga/foo/chapter-2">again</a>
<a href="https://other.test/manga/foo/chapter-1"></a>
<a href="/about">About</a>
<a href="/u/someone">ch 5</a>
</body></html>`)

	links := chapterLinks(doc, "https://site.test/manga/foo")
	require.Len(t, links, 3)

	assert.Equal(t, "https://other.test/manga/foo/chapter-1", links[0].url)
	assert.Equal(t, "Chapter 1", links[0].title)
	assert.Equal(t, "https://site.test/manga/foo/chapter-2", links[1].url)
	assert.Equal(t, "Chapter 2", links[1].title)
	assert.Equal(t, "10", links[2].num.label)
}

func seriesFixture() fakeFetcher {
	return fakeFetcher{
		"https://site.test/manga/foo": `<html><head><title> Foo  Saga </title>
<meta name="description" content=" A tale. "></head><body>
<a href="/manga/foo/chapter-2">Chapter 2</a>
<a href="/manga/foo/chapter-1">Chapter 1</a>
</body></html>`,
		"https://site.test/manga/foo/chapter-1": `<html><body>
<img src="/logo.png">
<div data-index="1"><img src="https://cdn.test/foo/1/002.jpg"></div>
<div data-index="0"><img data-src="https://cdn.test/foo/1/001.jpg"></div>
<img src="https://cdn.test/foo/1/001-300x400.jpg">
</body></html>`,
		"https://site.test/manga/foo/chapter-2": `<html><body>
<img src="page-a.png"><img src="page-b.webp">
</body></html>`,
	}
}

func TestGetBook(t *testing.T) {
	p := New(Options{})
	assert.True(t, p.Supports("generic:https://site.test/manga/foo"))
	assert.False(t, p.Supports("https://site.test/manga/foo"))

	b, err := p.GetBook(context.Background(), "generic:https://site.test/manga/foo", providers.Request{Fetcher: seriesFixture()})
	require.NoError(t, err)
	require.NoError(t, b.Validate())

	assert.Equal(t, "Foo Saga", b.Title)
	assert.Equal(t, "A tale.", b.Description)
	assert.Equal(t, "foo", b.SourceID)
	assert.Equal(t, "https://site.test/manga/foo", b.URL)

	require.Len(t, b.Chapters, 2)
	assert.Equal(t, "Chapter 1", b.Chapters[0].Title)
	assert.Equal(t, "1", b.Chapters[0].Description)
	assert.Equal(t, []book.Page{
		{Number: 1, Title: "1", Filename: "1.jpg", URL: "https://cdn.test/foo/1/001.jpg"},
		{Number: 2, Title: "2", Filename: "2.jpg", URL: "https://cdn.test/foo/1/002.jpg"},
	}, b.Chapters[0].Pages)
	assert.Equal(t, []book.Page{
		{Number: 1, Title: "1", Filename: "1.png", URL: "https://site.test/manga/foo/page-a.png"},
		{Number: 2, Title: "2", Filename: "2.webp", URL: "https://site.test/manga/foo/page-b.webp"},
	}, b.Chapters[1].Pages)
}

func TestGetBookFailures(t *testing.T) {
	ctx := context.Background()

	_, err := New(Options{}).GetBook(ctx, "generic:not a url", providers.Request{Fetcher: fakeFetcher{}})
	var nf *scrape.NotFoundError
	assert.True(t, errors.As(err, &nf))

	f := seriesFixture()
	f["https://site.test/manga/foo/chapter-2"] = `<html><body>nothing here</body></html>`
	_, err = New(Options{}).GetBook(ctx, "generic:https://site.test/manga/foo", providers.Request{Fetcher: f})
	var ee *scrape.ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "chapter pages", ee.Step)

	f = seriesFixture()
	f["https://site.test/manga/foo"] = `<html><body><a href="/about">About</a></body></html>`
	_, err = New(Options{}).GetBook(ctx, "generic:https://site.test/manga/foo", providers.Request{Fetcher: f})
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "chapter list", ee.Step)
}

func TestScriptEndpointsAreProbedWhenEnabled(t *testing.T) {
	f := seriesFixture()
	f["https://site.test/manga/foo/chapter-2"] = `<html><body><script>
const chapterId = "77";
var api = "/api/chap/";
</script></body></html>`
	f["https://site.test/api/chap/77"] = `{"pages": ["https://cdn.test/x/1.png", "https://cdn.test/x/2.png"]}`

	req := providers.Request{Fetcher: f}

	_, err := New(Options{}).GetBook(context.Background(), "generic:https://site.test/manga/foo", req)
	require.Error(t, err)

	b, err := New(Options{CheckJS: true}).GetBook(context.Background(), "generic:https://site.test/manga/foo", req)
	require.NoError(t, err)
	require.Len(t, b.Chapters[1].Pages, 2)
	assert.Equal(t, "https://cdn.test/x/2.png", b.Chapters[1].Pages[1].URL)
}

func TestScriptHintEndpoints(t *testing.T) {
	h := analyzeScripts(`
let mangaId = "m1";
const chapId = 'c9';
var base = "/chapters/";
fetch("/api/pages?id=3");
`)

	assert.Equal(t, []string{"/chapters/c9", "/chapters/m1", "/api/pages?id=3"}, h.endpoints())
}

func TestNuxtState(t *testing.T) {
	body := `<script>window.__NUXT__ = {"data": [{"img": "https://cdn.test/n/1.jpg"}]};</script>`

	c := NewCollector(nil, nil)
	scanNuxtState(body, "https://site.test/r", c, providers.LoggerOrNop(nil))
	assert.Equal(t, []string{"https://cdn.test/n/1.jpg"}, c.URLs())
}
