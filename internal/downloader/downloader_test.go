package downloader

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brogergvhs/mxscraper/internal/book"
	"github.com/brogergvhs/mxscraper/internal/chapters"
	"github.com/brogergvhs/mxscraper/internal/fetch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type recorder struct {
	mu      sync.Mutex
	headers map[string]http.Header
}

func imageServer(t *testing.T, rec *recorder) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rec != nil {
			rec.mu.Lock()
			rec.headers[r.URL.Path] = r.Header.Clone()
			rec.mu.Unlock()
		}

		switch {
		case strings.HasPrefix(r.URL.Path, "/html"):
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		case strings.HasPrefix(r.URL.Path, "/missing"):
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("img:" + r.URL.Path))
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func fastOptions() Options {
	return Options{Attempts: 2, Backoff: time.Millisecond, Timeout: 5 * time.Second}
}

type countingProgress struct {
	mu     sync.Mutex
	last   int
	total  int
	marked bool
}

func (p *countingProgress) Update(done, total int, _ int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last, p.total = done, total
}

func (p *countingProgress) MarkDone() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.marked = true
}

func TestLocalName(t *testing.T) {
	assert.Equal(t, "007.png", LocalName(book.Page{Number: 7, Filename: "7.png"}))
	assert.Equal(t, "002_cover.jpg", LocalName(book.Page{Number: 2, Filename: "cover.jpg"}))
	assert.Equal(t, "003_x.jpg", LocalName(book.Page{Number: 3, Filename: "../../x.jpg"}))
	assert.Equal(t, "004.jpg", LocalName(book.Page{Number: 4}))
}

func TestDownloadPages(t *testing.T) {
	rec := &recorder{headers: map[string]http.Header{}}
	srv := imageServer(t, rec)

	pages := []book.Page{
		{Number: 1, Filename: "1.png", URL: srv.URL + "/a/1.png"},
		{Number: 2, Filename: "2.png", URL: srv.URL + "/a/2.png"},
		{Number: 3, Filename: "anim.gif", URL: srv.URL + "/a/anim.gif"},
		{Number: 4, Filename: "4.png", URL: srv.URL + "/a/4.png"},
	}

	opts := fastOptions()
	opts.Context = &fetch.Context{Cookies: map[string]string{"sid": "1"}}
	d := New(srv.Client(), opts)

	folder := filepath.Join(t.TempDir(), "ch_tmp")
	ph := &countingProgress{}

	files, n, err := d.DownloadPages(context.Background(), pages, folder, "https://site/ch/1", 3, ph)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(folder, "001.png"),
		filepath.Join(folder, "002.png"),
		filepath.Join(folder, "003_anim.gif"),
		filepath.Join(folder, "004.png"),
	}, files)
	assert.Positive(t, n)
	assert.Equal(t, 4, ph.last)
	assert.Equal(t, 4, ph.total)
	assert.True(t, ph.marked)

	data, err := os.ReadFile(files[1])
	require.NoError(t, err)
	assert.Equal(t, "img:/a/2.png", string(data))

	h := rec.headers["/a/1.png"]
	assert.Equal(t, "https://site/ch/1", h.Get("Referer"))
	assert.Equal(t, "sid=1", h.Get("Cookie"))
	assert.Contains(t, rec.headers, "/a/anim.gif")

	data, err = os.ReadFile(files[2])
	require.NoError(t, err)
	assert.Equal(t, "img:/a/anim.gif", string(data))
}

func TestDownloadPagesFailures(t *testing.T) {
	srv := imageServer(t, nil)

	pages := []book.Page{
		{Number: 1, Filename: "1.png", URL: srv.URL + "/ok/1.png"},
		{Number: 2, Filename: "2.png", URL: srv.URL + "/missing/2.png"},
		{Number: 3, Filename: "3.png", URL: srv.URL + "/html/3.png"},
	}

	files, _, err := New(srv.Client(), fastOptions()).DownloadPages(context.Background(), pages, t.TempDir(), "", 2, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed 2/3 images")
	assert.Contains(t, err.Error(), "unexpected MIME")
	assert.Len(t, files, 1)

	var fe *fetch.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, http.StatusNotFound, fe.Status)

	opts := fastOptions()
	opts.SkipBroken = true
	files, _, err = New(srv.Client(), opts).DownloadPages(context.Background(), pages, t.TempDir(), "", 2, nil)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestDownloadPagesCanceled(t *testing.T) {
	srv := imageServer(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pages := []book.Page{{Number: 1, Filename: "1.png", URL: srv.URL + "/1.png"}}
	_, _, err := New(srv.Client(), fastOptions()).DownloadPages(ctx, pages, t.TempDir(), "", 1, nil)
	assert.Error(t, err)
}

func TestDownloadChapter(t *testing.T) {
	srv := imageServer(t, nil)
	out := t.TempDir()

	ch := chapters.Chapter{Chapter: book.Chapter{
		Number: 2,
		Title:  "Ch.2",
		URL:    "https://site/ch/2",
		Pages: []book.Page{
			{Number: 1, Filename: "1.png", URL: srv.URL + "/1.png"},
			{Number: 2, Filename: "2.png", URL: srv.URL + "/2.png"},
		},
	}}

	res, err := New(srv.Client(), fastOptions()).DownloadChapter(context.Background(), ch, out, 2, false, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(out, "2_ch_2.cbz"), res.CBZ)
	assert.Equal(t, 2, res.Pages)
	assert.NoDirExists(t, filepath.Join(out, ch.FolderName()))

	r, err := zip.OpenReader(res.CBZ)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	require.Len(t, r.File, 2)
	assert.Equal(t, "001.png", r.File[0].Name)

	ch.Pages[1].URL = srv.URL + "/missing/2.png"
	_, err = New(srv.Client(), fastOptions()).DownloadChapter(context.Background(), ch, out, 2, true, nil)
	require.Error(t, err)
	assert.NoDirExists(t, filepath.Join(out, ch.FolderName()))

	_, err = New(srv.Client(), fastOptions()).DownloadChapter(context.Background(), chapters.Chapter{}, out, 1, false, nil)
	assert.ErrorContains(t, err, "no pages")
}

func TestDownloadChapterKeepsGifPages(t *testing.T) {
	srv := imageServer(t, nil)
	out := t.TempDir()

	ch := chapters.Chapter{Chapter: book.Chapter{
		Number: 1,
		Title:  "Ch.1",
		Pages: []book.Page{
			{Number: 1, Filename: "1.png", URL: srv.URL + "/1.png"},
			{Number: 2, Filename: "2.gif", URL: srv.URL + "/2.gif"},
			{Number: 3, Filename: "3.png", URL: srv.URL + "/3.png"},
		},
	}}

	res, err := New(srv.Client(), fastOptions()).DownloadChapter(context.Background(), ch, out, 2, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Pages)

	r, err := zip.OpenReader(res.CBZ)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	require.Len(t, r.File, 3)
	assert.Equal(t, "002.gif", r.File[1].Name)
}

func sampleBook() *book.Book {
	return &book.Book{
		Title:    "Test Series",
		SourceID: "42",
		Authors:  []book.Author{{Name: "Jane Doe"}},
		Chapters: []book.Chapter{{Number: 1, Title: "Ch.1"}},
	}
}

func TestWriteMetadata(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteMetadata(dir, sampleBook(), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "book.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var fromYAML book.Book
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	assert.Equal(t, "Test Series", fromYAML.Title)
	assert.Contains(t, string(data), "source_id: \"42\"")

	path, err = WriteMetadata(dir, sampleBook(), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "book.json"), path)

	data, err = os.ReadFile(path)
	require.NoError(t, err)

	var fromJSON book.Book
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Equal(t, "Jane Doe", fromJSON.Authors[0].Name)
}

func TestEncodeBookRejectsUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorContains(t, EncodeBook(&buf, sampleBook(), "toml"), "unknown metadata format")
}
