package batoto

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/mxscraper/internal/book"
	"github.com/brogergvhs/mxscraper/internal/providers"
	"github.com/brogergvhs/mxscraper/internal/scrape"
)

// extractPages resolves a chapter reference to its canonical URL and the
// ordered pages listed in the reader's embedded image array.
func extractPages(ctx context.Context, chapterRef, baseURL string, req providers.Request) (string, []book.Page, error) {
	id, err := scrape.ParseIdentifier(chapterRef)
	if err != nil {
		return "", nil, err
	}

	chapterURL := fmt.Sprintf("%s/chapter/%s", baseURL, id)

	body, err := req.Fetch(ctx, chapterURL)
	if err != nil {
		return "", nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", nil, &scrape.ExtractionError{Step: "chapter html", URL: chapterURL, Err: err}
	}

	js, err := scrape.FindScript(doc, scriptMarker)
	if err != nil {
		return "", nil, &scrape.ExtractionError{Step: "chapter pages", URL: chapterURL, Err: err}
	}

	urls, err := scrape.StringArrayLiteral(js, pagesVariable)
	if err != nil {
		return "", nil, &scrape.ExtractionError{Step: "chapter pages", URL: chapterURL, Err: err}
	}

	return chapterURL, pagesFromURLs(urls), nil
}

func pagesFromURLs(urls []string) []book.Page {
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

	return pages
}
