package batoto

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/mxscraper/internal/book"
	"github.com/brogergvhs/mxscraper/internal/providers"
	"github.com/brogergvhs/mxscraper/internal/scrape"
)

var (
	reAuthorLabel = regexp.MustCompile(`(?i)author|artist`)
	reTagLabel    = regexp.MustCompile(`(?i)genre|tag`)
)

type chapterLink struct {
	text string
	href string
}

func assembleBook(ctx context.Context, ref, baseURL string, req providers.Request) (*book.Book, error) {
	id, err := scrape.ParseIdentifier(ref)
	if err != nil {
		return nil, err
	}

	bookURL := fmt.Sprintf("%s/series/%s", baseURL, id)

	body, err := req.Fetch(ctx, bookURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &scrape.ExtractionError{Step: "series html", URL: bookURL, Err: err}
	}

	titleSel := doc.Find("title").First()
	if titleSel.Length() == 0 {
		return nil, &scrape.ExtractionError{Step: "title", URL: bookURL, Err: errors.New("no title element")}
	}

	b := &book.Book{
		Title:        strings.TrimSpace(titleSel.Text()),
		TitleAliases: []book.TitleAlias{},
		SourceID:     id,
		URL:          bookURL,
		Authors:      []book.Author{},
		Tags:         []book.Tag{},
		Metadata:     []book.Metadata{},
	}

	if err := classifyAttributes(doc, b); err != nil {
		return nil, &scrape.ExtractionError{Step: "metadata", URL: bookURL, Err: err}
	}

	summary := doc.Find(selSummary).First()
	if summary.Length() == 0 {
		return nil, &scrape.ExtractionError{Step: "description", URL: bookURL, Err: fmt.Errorf("no %s element", selSummary)}
	}
	b.Description = strings.TrimSpace(summary.Text())

	links, err := chapterLinks(doc)
	if err != nil {
		return nil, &scrape.ExtractionError{Step: "chapter list", URL: bookURL, Err: err}
	}

	b.Chapters = make([]book.Chapter, 0, len(links))
	for i, l := range links {
		chapterURL, pages, err := extractPages(ctx, l.href, baseURL, req)
		if err != nil {
			return nil, fmt.Errorf("chapter %q: %w", l.text, err)
		}

		b.Chapters = append(b.Chapters, book.Chapter{
			Title:       l.text,
			Description: l.text,
			Number:      i + 1,
			Pages:       pages,
			URL:         chapterURL,
		})
	}

	return b, nil
}

// classifyAttributes sorts the "Label: a, b" rows of the series page into
// authors, tags and free-form metadata. A label matching both the author and
// the tag pattern is kept as metadata.
func classifyAttributes(doc *goquery.Document, b *book.Book) error {
	seen := map[string]bool{}

	var err error
	doc.Find(selAttrItem).EachWithBreak(func(_ int, entry *goquery.Selection) bool {
		text := strings.TrimSpace(entry.Text())
		text = strings.NewReplacer("\n", "", "\t", "").Replace(text)

		label, value, ok := strings.Cut(text, ":")
		if !ok {
			err = fmt.Errorf("attribute without label: %q", text)
			return false
		}
		label = strings.TrimSpace(label)
		value = strings.TrimSpace(value)

		isAuthor := reAuthorLabel.MatchString(label)
		isTag := reTagLabel.MatchString(label)

		switch {
		case isAuthor && !isTag:
			for _, name := range splitValues(value) {
				if seen[name] {
					continue
				}
				seen[name] = true
				b.Authors = append(b.Authors, book.Author{Name: name})
			}

		case isTag && !isAuthor:
			for _, name := range splitValues(value) {
				b.Tags = append(b.Tags, book.Tag{Name: name, Metadata: []book.Metadata{}})
			}

		default:
			b.Metadata = append(b.Metadata, book.Metadata{Label: label, Content: value})
		}

		return true
	})

	return err
}

func splitValues(value string) []string {
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}

	return out
}

// chapterLinks returns the chapter links oldest first. The site lists them
// newest first, so document order is reversed explicitly.
func chapterLinks(doc *goquery.Document) ([]chapterLink, error) {
	var site []chapterLink

	var err error
	doc.Find(selChapterLink).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok {
			err = fmt.Errorf("chapter link %q has no href", scrape.CollapseSpace(a.Text()))
			return false
		}

		site = append(site, chapterLink{
			text: scrape.CollapseSpace(a.Text()),
			href: href,
		})
		return true
	})
	if err != nil {
		return nil, err
	}

	out := make([]chapterLink, len(site))
	for i, l := range site {
		out[len(site)-1-i] = l
	}

	return out, nil
}
