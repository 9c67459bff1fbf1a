package generic

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/mxscraper/internal/book"
	"github.com/brogergvhs/mxscraper/internal/providers"
	"github.com/brogergvhs/mxscraper/internal/scrape"
)

const (
	Name   = "generic"
	Prefix = "generic:"

	defaultImageExt = "jpg"
)

type Options struct {
	// AllowExt restricts page images to these extensions.
	AllowExt []string
	// CheckJS enables probing endpoints referenced from inline scripts.
	CheckJS bool
	Logger  providers.DebugLogger
}

type Plugin struct {
	allowExt []string
	checkJS  bool
	log      providers.DebugLogger
}

func New(opts Options) *Plugin {
	return &Plugin{
		allowExt: opts.AllowExt,
		checkJS:  opts.CheckJS,
		log:      providers.LoggerOrNop(opts.Logger),
	}
}

func (p *Plugin) Name() string {
	return Name
}

func (p *Plugin) Capabilities() providers.Capability {
	return providers.CapSupport | providers.CapBook
}

func (p *Plugin) Supports(term string) bool {
	return strings.HasPrefix(term, Prefix)
}

// GetBook reads the series page at term, then every chapter it links to.
func (p *Plugin) GetBook(ctx context.Context, term string, req providers.Request) (*book.Book, error) {
	seriesURL, err := absoluteURL(strings.TrimPrefix(term, Prefix))
	if err != nil {
		return nil, err
	}

	doc, _, err := FetchDocument(ctx, seriesURL, req)
	if err != nil {
		return nil, err
	}

	links := chapterLinks(doc, seriesURL)
	if len(links) == 0 {
		return nil, &scrape.ExtractionError{Step: "chapter list", URL: seriesURL, Err: errors.New("no chapter links found")}
	}

	u, _ := url.Parse(seriesURL)
	b := &book.Book{
		Title:        PageTitle(doc),
		TitleAliases: []book.TitleAlias{},
		SourceID:     path.Base(strings.TrimSuffix(u.Path, "/")),
		URL:          seriesURL,
		Authors:      []book.Author{},
		Tags:         []book.Tag{},
		Description:  strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", "")),
		Chapters:     make([]book.Chapter, 0, len(links)),
		Metadata:     []book.Metadata{},
	}

	p.log.Debugf("%s: %d chapters\n", seriesURL, len(links))

	for i, l := range links {
		pages, err := p.chapterPages(ctx, l.url, req)
		if err != nil {
			return nil, err
		}

		b.Chapters = append(b.Chapters, book.Chapter{
			Title:       l.title,
			Description: l.num.label,
			Number:      i + 1,
			Pages:       pages,
			URL:         l.url,
		})
	}

	return b, nil
}

func (p *Plugin) chapterPages(ctx context.Context, chapterURL string, req providers.Request) ([]book.Page, error) {
	doc, body, err := FetchDocument(ctx, chapterURL, req)
	if err != nil {
		return nil, err
	}

	col := NewCollector(p.allowExt, p.log)
	col.ScanDocument(doc, chapterURL)
	scanNuxtState(string(body), chapterURL, col, p.log)
	col.ScanText(string(body))

	if p.checkJS {
		probeEndpoints(ctx, chapterURL, analyzeScripts(inlineScripts(doc)), req, col, p.log)
	}

	urls := col.URLs()
	if len(urls) == 0 {
		return nil, &scrape.ExtractionError{Step: "chapter pages", URL: chapterURL, Err: errors.New("no usable images found")}
	}

	pages := make([]book.Page, len(urls))
	for i, u := range urls {
		n := strconv.Itoa(i + 1)
		pages[i] = book.Page{
			Number:   i + 1,
			Title:    n,
			Filename: n + "." + scrape.ExtFromURL(u, defaultImageExt),
			URL:      u,
		}
	}

	return pages, nil
}

func absoluteURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", &scrape.NotFoundError{Input: raw}
	}

	return u.String(), nil
}

// FetchDocument fetches and parses target, returning the raw body as well.
func FetchDocument(ctx context.Context, target string, req providers.Request) (*goquery.Document, []byte, error) {
	body, err := req.Fetch(ctx, target)
	if err != nil {
		return nil, nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, nil, &scrape.ExtractionError{Step: "html", URL: target, Err: err}
	}

	return doc, body, nil
}

// PageTitle returns the collapsed <title> text, or "No title found".
func PageTitle(doc *goquery.Document) string {
	if t := scrape.CollapseSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}

	return "No title found"
}
