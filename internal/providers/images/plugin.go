// Package images turns any web page into a gallery of the images it shows.
package images

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/brogergvhs/mxscraper/internal/book"
	"github.com/brogergvhs/mxscraper/internal/providers"
	"github.com/brogergvhs/mxscraper/internal/providers/generic"
	"github.com/brogergvhs/mxscraper/internal/scrape"
)

const (
	Name   = "images"
	Prefix = "img:"
)

type Plugin struct {
	allowExt []string
	log      providers.DebugLogger
}

func New(allowExt []string, log providers.DebugLogger) *Plugin {
	return &Plugin{allowExt: allowExt, log: providers.LoggerOrNop(log)}
}

func (p *Plugin) Name() string {
	return Name
}

func (p *Plugin) Capabilities() providers.Capability {
	return providers.CapSupport | providers.CapGallery
}

func (p *Plugin) Supports(term string) bool {
	return strings.HasPrefix(term, Prefix)
}

// GetURLs lists the images of the page at term in document order.
func (p *Plugin) GetURLs(ctx context.Context, term string, req providers.Request) (*book.Gallery, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(term, Prefix))

	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, &scrape.NotFoundError{Input: raw}
	}
	pageURL := u.String()

	doc, _, err := generic.FetchDocument(ctx, pageURL, req)
	if err != nil {
		return nil, err
	}

	col := generic.NewCollector(p.allowExt, p.log)
	col.ScanImages(doc, pageURL)
	col.ScanPictureSources(doc, pageURL)

	urls := col.URLs()
	if len(urls) == 0 {
		return nil, &scrape.ExtractionError{Step: "images", URL: pageURL, Err: errors.New("no usable images found")}
	}

	p.log.Debugf("%s: %d images\n", pageURL, len(urls))

	return &book.Gallery{
		Title:     generic.PageTitle(doc),
		URLSource: pageURL,
		URLs:      urls,
		Tags:      keywords(doc.Find(`meta[name="keywords"]`).AttrOr("content", "")),
	}, nil
}

func keywords(content string) []string {
	out := []string{}
	for _, k := range strings.Split(content, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}

	return out
}
