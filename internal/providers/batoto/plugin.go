// Package batoto reads series from the Bato.to manga archive and its
// mirrors into structured books.
package batoto

import (
	"context"
	"strings"

	"github.com/brogergvhs/mxscraper/internal/book"
	"github.com/brogergvhs/mxscraper/internal/providers"
)

const (
	Name   = "batoto"
	Prefix = "to:"
)

// BaseURLs are the known mirrors, in matching order.
var BaseURLs = []string{"https://mto.to", "https://xbato.com"}

// Site layout markers. A redesign of the site should only touch these.
const (
	selAttrItem     = "div > div.attr-item"
	selSummary      = "#limit-height-body-summary"
	selChapterLink  = "a.visited.chapt"
	scriptMarker    = "imgHttps"
	pagesVariable   = "imgHttps"
	defaultImageExt = "jpg"
)

type Plugin struct{}

func New() *Plugin {
	return &Plugin{}
}

func (p *Plugin) Name() string {
	return Name
}

func (p *Plugin) Capabilities() providers.Capability {
	return providers.CapSupport | providers.CapBook
}

// Supports accepts "to:"-prefixed terms and terms starting with a known base
// URL, with or without the prefix.
func (p *Plugin) Supports(term string) bool {
	if strings.HasPrefix(term, Prefix) {
		return true
	}

	_, ok := pickBase(strings.TrimPrefix(term, Prefix))
	return ok
}

func (p *Plugin) GetBook(ctx context.Context, term string, req providers.Request) (*book.Book, error) {
	term = strings.TrimPrefix(term, Prefix)

	base, ok := pickBase(term)
	if !ok {
		base = BaseURLs[0]
	}

	return assembleBook(ctx, term, base, req)
}

func pickBase(term string) (string, bool) {
	for _, base := range BaseURLs {
		if strings.HasPrefix(term, base) {
			return base, true
		}
	}

	return "", false
}
