package generic

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/mxscraper/internal/scrape"
)

var (
	reTitleChapter = regexp.MustCompile(`(?i)(?:vol(?:ume)?[_\-\s]*\d+[_\-\s]*)?(?:chapter|ch)[_\-\s]*0*([0-9]+)(?:[_\-\s]*([.\-])[_\-\s]*([0-9]+))?`)
	reHrefChapter  = regexp.MustCompile(`chapter[_\-]?0*([0-9]+)[_\-]?([0-9]+)?`)
	reHrefVolume   = regexp.MustCompile(`vol[_\-]?(\d+)[/_\-]ch[_\-]?(\d+(?:\.\d+)?)`)
	reHrefShort    = regexp.MustCompile(`(?:^|[/\-_])ch[_\-]?(\d+(?:\.\d+)?)`)
	reHrefNumber   = regexp.MustCompile(`[/\-](\d+(?:\.\d+)?)(?:$|[/\-_])`)
	reTitleNumber  = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*[.\- ]`)

	reLikelyChapter = regexp.MustCompile(`(?i)(?:^|[-_/])(?:ch|chapter)[-_]?\d+`)
)

// chapterNumber is a parsed chapter label such as "12", "12.5" or "3-1".
type chapterNumber struct {
	main  int
	sep   string
	sub   int
	label string
}

func (a chapterNumber) less(b chapterNumber) bool {
	if a.main != b.main {
		return a.main < b.main
	}
	if a.sep != b.sep {
		return a.sep < b.sep
	}

	return a.sub < b.sub
}

type chapterLink struct {
	url   string
	title string
	num   chapterNumber
}

// chapterLinks finds the chapter links of a series page, resolved against
// pageURL, deduplicated and sorted by chapter number.
func chapterLinks(doc *goquery.Document, pageURL string) []chapterLink {
	var out []chapterLink
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		title := scrape.CollapseSpace(a.Text())

		if !looksLikeChapterLink(href, title) {
			return
		}

		num, ok := parseChapterNumber(href, title)
		if !ok {
			return
		}

		u := resolve(pageURL, href)
		if seen[u] {
			return
		}
		seen[u] = true

		if title == "" {
			title = "Chapter " + num.label
		}

		out = append(out, chapterLink{url: u, title: title, num: num})
	})

	sort.SliceStable(out, func(i, j int) bool { return out[i].num.less(out[j].num) })

	return out
}

func looksLikeChapterLink(href, title string) bool {
	h := strings.ToLower(href)
	if reLikelyChapter.MatchString(h) || reHrefVolume.MatchString(h) || reHrefShort.MatchString(h) {
		return true
	}

	t := strings.ToLower(title)

	return strings.HasPrefix(t, "ch ") || strings.HasPrefix(t, "chapter ")
}

// parseChapterNumber tries the href patterns first and falls back to the
// link title.
func parseChapterNumber(href, title string) (chapterNumber, bool) {
	h := strings.ToLower(href)
	t := strings.ToLower(title)

	if !hasChapterKeyword(h) && !hasChapterKeyword(t) {
		return chapterNumber{}, false
	}
	if strings.Contains(h, "/u/") || strings.Contains(h, "batolists") {
		return chapterNumber{}, false
	}

	for _, match := range []func(string) (chapterNumber, bool){
		matchHrefChapter,
		matchHrefVolume,
		matchHrefShort,
		matchHrefNumber,
	} {
		if n, ok := match(h); ok {
			return n, true
		}
	}

	for _, match := range []func(string) (chapterNumber, bool){matchTitleNumber, matchTitleChapter} {
		if n, ok := match(title); ok {
			return n, true
		}
	}

	return chapterNumber{}, false
}

func hasChapterKeyword(s string) bool {
	return strings.Contains(s, "ch") || strings.Contains(s, "vol")
}

func matchHrefChapter(h string) (chapterNumber, bool) {
	m := reHrefChapter.FindStringSubmatch(h)
	if m == nil {
		return chapterNumber{}, false
	}

	main, _ := strconv.Atoi(m[1])
	if m[2] == "" {
		return chapterNumber{main: main, label: strconv.Itoa(main)}, true
	}

	sub, _ := strconv.Atoi(m[2])
	return chapterNumber{main: main, sep: "-", sub: sub, label: fmt.Sprintf("%d-%d", main, sub)}, true
}

func matchHrefVolume(h string) (chapterNumber, bool) {
	m := reHrefVolume.FindStringSubmatch(h)
	if m == nil {
		return chapterNumber{}, false
	}

	vol, _ := strconv.Atoi(m[1])
	ch, _ := strconv.Atoi(m[2])

	return chapterNumber{main: ch, sep: ".", sub: vol, label: fmt.Sprintf("%d.%d", vol, ch)}, true
}

func matchHrefShort(h string) (chapterNumber, bool) {
	m := reHrefShort.FindStringSubmatch(h)
	if m == nil {
		return chapterNumber{}, false
	}

	return decimalNumber(m[1]), true
}

func matchHrefNumber(h string) (chapterNumber, bool) {
	m := reHrefNumber.FindStringSubmatch(h)
	if m == nil {
		return chapterNumber{}, false
	}

	return decimalNumber(m[1]), true
}

func matchTitleNumber(title string) (chapterNumber, bool) {
	m := reTitleNumber.FindStringSubmatch(title)
	if m == nil {
		return chapterNumber{}, false
	}

	return decimalNumber(m[1]), true
}

func matchTitleChapter(title string) (chapterNumber, bool) {
	m := reTitleChapter.FindStringSubmatch(title)
	if m == nil {
		return chapterNumber{}, false
	}

	main, _ := strconv.Atoi(m[1])
	if m[2] == "" {
		return chapterNumber{main: main, label: strconv.Itoa(main)}, true
	}

	sub, _ := strconv.Atoi(m[3])
	return chapterNumber{main: main, sep: m[2], sub: sub, label: fmt.Sprintf("%d%s%d", main, m[2], sub)}, true
}

// decimalNumber parses "12" or "12.5".
func decimalNumber(s string) chapterNumber {
	whole, frac, found := strings.Cut(s, ".")
	main, _ := strconv.Atoi(whole)
	if !found {
		return chapterNumber{main: main, label: strconv.Itoa(main)}
	}

	sub, _ := strconv.Atoi(frac)
	return chapterNumber{main: main, sep: ".", sub: sub, label: s}
}
