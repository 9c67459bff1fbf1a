package generic

import (
	"net/url"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/mxscraper/internal/providers"
)

// DefaultImageExts is used when no extension allow-list is configured.
var DefaultImageExts = []string{"jpg", "jpeg", "png", "webp"}

var (
	reSizeSuffix = regexp.MustCompile(`[-_]\d{2,5}x\d{2,5}`)
	reSize       = regexp.MustCompile(`[-_](\d{2,5})x(\d{2,5})`)

	reBackgroundURL = regexp.MustCompile(`url\((?:["']?)([^"')]+)(?:["']?)\)`)
	reLooseURLs     = regexp.MustCompile(`https?://[^\s"'<>]+`)

	nonPageWords = []string{"logo", "cover", "profile", "avatar", "banner"}
)

type candidate struct {
	url   string
	index int // data-index of the element, -1 if none
	order int // discovery order
}

// Collector gathers page image candidates from one or more sources and
// reduces them to an ordered list of distinct images.
type Collector struct {
	allowed *regexp.Regexp
	log     providers.DebugLogger

	found []candidate
	seen  map[string]bool
	order int
}

func NewCollector(allowExt []string, log providers.DebugLogger) *Collector {
	exts := normalizeExts(allowExt)
	if len(exts) == 0 {
		exts = DefaultImageExts
	}

	return &Collector{
		allowed: regexp.MustCompile(`(?i)\.(` + strings.Join(exts, "|") + `)$`),
		log:     providers.LoggerOrNop(log),
		found:   make([]candidate, 0, 64),
		seen:    make(map[string]bool),
	}
}

func normalizeExts(list []string) []string {
	var out []string
	for _, ext := range list {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext != "" {
			out = append(out, regexp.QuoteMeta(ext))
		}
	}

	return out
}

// Add records raw as a candidate. It reports whether raw was accepted.
func (c *Collector) Add(raw string, index int) bool {
	if raw == "" {
		return false
	}

	lu := strings.ToLower(raw)
	if strings.HasPrefix(lu, "javascript:") || strings.HasPrefix(lu, "data:") {
		return false
	}
	if !c.allowed.MatchString(urlPath(lu)) {
		return false
	}
	for _, w := range nonPageWords {
		if strings.Contains(lu, w) {
			c.log.Debugf("skipping non-page image: %s\n", raw)
			return false
		}
	}
	if c.seen[raw] {
		return false
	}

	c.seen[raw] = true
	c.order++
	c.found = append(c.found, candidate{url: raw, index: index, order: c.order})

	return true
}

// Len returns the number of accepted candidates so far.
func (c *Collector) Len() int {
	return len(c.found)
}

func urlPath(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		return u.Path
	}

	return raw
}

func resolve(pageURL, raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	if u.IsAbs() {
		return u.String()
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return raw
	}

	return base.ResolveReference(u).String()
}

func indexOf(sel *goquery.Selection) int {
	for _, s := range []*goquery.Selection{sel, sel.ParentsFiltered("[data-index]").First()} {
		if v, ok := s.Attr("data-index"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
		}
	}

	return -1
}

func (c *Collector) addSrcset(pageURL, srcset string, index int) {
	for part := range strings.SplitSeq(srcset, ",") {
		fields := strings.Fields(part)
		if len(fields) > 0 {
			c.Add(resolve(pageURL, fields[0]), index)
		}
	}
}

// ScanImages collects img src, lazy-loading attributes and srcset entries.
func (c *Collector) ScanImages(doc *goquery.Document, pageURL string) int {
	before := c.Len()

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		idx := indexOf(img)

		if ss, ok := img.Attr("srcset"); ok {
			c.addSrcset(pageURL, ss, idx)
		}

		for _, attr := range []string{"src", "data-src", "data-lazy-src", "data-original"} {
			if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
				c.Add(resolve(pageURL, v), idx)
			}
		}
	})

	return c.Len() - before
}

// ScanPictureSources collects <source srcset> entries.
func (c *Collector) ScanPictureSources(doc *goquery.Document, pageURL string) int {
	before := c.Len()

	doc.Find("source[srcset]").Each(func(_ int, src *goquery.Selection) {
		ss, _ := src.Attr("srcset")
		c.addSrcset(pageURL, ss, indexOf(src))
	})

	return c.Len() - before
}

// ScanAnchors collects links pointing directly at images.
func (c *Collector) ScanAnchors(doc *goquery.Document, pageURL string) int {
	before := c.Len()

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") ||
			strings.HasPrefix(href, "/") || strings.HasPrefix(href, "./") {
			c.Add(resolve(pageURL, href), indexOf(a))
		}
	})

	return c.Len() - before
}

// ScanBackgrounds collects CSS background-image URLs of inline styles.
func (c *Collector) ScanBackgrounds(doc *goquery.Document, pageURL string) int {
	before := c.Len()

	doc.Find("[style]").Each(func(_ int, el *goquery.Selection) {
		style := el.AttrOr("style", "")
		if !strings.Contains(strings.ToLower(style), "background-image") {
			return
		}

		idx := indexOf(el)
		for _, m := range reBackgroundURL.FindAllStringSubmatch(style, -1) {
			if u := strings.TrimSpace(m[1]); u != "" {
				c.Add(resolve(pageURL, u), idx)
			}
		}
	})

	return c.Len() - before
}

// ScanDocument runs every DOM scan and logs how many candidates each added.
func (c *Collector) ScanDocument(doc *goquery.Document, pageURL string) int {
	before := c.Len()

	for _, s := range []struct {
		name string
		scan func(*goquery.Document, string) int
	}{
		{"img tags", c.ScanImages},
		{"picture sources", c.ScanPictureSources},
		{"anchor hrefs", c.ScanAnchors},
		{"css backgrounds", c.ScanBackgrounds},
	} {
		c.log.Debugf("%s: +%d candidates\n", s.name, s.scan(doc, pageURL))
	}

	return c.Len() - before
}

// ScanState walks decoded JSON state (Nuxt payloads, API responses) for
// absolute image URLs and embedded HTML fragments.
func (c *Collector) ScanState(v any, pageURL string) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		ls := strings.ToLower(s)
		if strings.HasPrefix(ls, "http://") || strings.HasPrefix(ls, "https://") {
			c.Add(s, -1)
			return
		}
		if looksLikeHTML(s) {
			if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
				c.ScanDocument(doc, pageURL)
			}
		}
	case []any:
		for _, x := range t {
			c.ScanState(x, pageURL)
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			c.ScanState(t[k], pageURL)
		}
	}
}

// ScanText collects absolute URLs appearing anywhere in body.
func (c *Collector) ScanText(body string) {
	for _, u := range reLooseURLs.FindAllString(body, -1) {
		c.Add(u, -1)
	}
}

// URLs returns one image per size-variant group, ordered by data-index when
// known and by discovery order otherwise.
func (c *Collector) URLs() []string {
	if len(c.found) == 0 {
		return nil
	}

	groups := map[string][]candidate{}
	var keys []string
	for _, cand := range c.found {
		k := variantKey(cand.url)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], cand)
	}

	chosen := make([]candidate, 0, len(groups))
	for _, k := range keys {
		chosen = append(chosen, pickVariant(groups[k]))
	}

	sort.SliceStable(chosen, func(i, j int) bool {
		ai, aj := chosen[i].index, chosen[j].index
		switch {
		case ai >= 0 && aj >= 0 && ai != aj:
			return ai < aj
		case ai >= 0 && aj < 0:
			return true
		case ai < 0 && aj >= 0:
			return false
		}
		return chosen[i].order < chosen[j].order
	})

	out := make([]string, len(chosen))
	for i, cand := range chosen {
		out[i] = cand.url
	}

	return out
}

// variantKey strips a "-WxH" size suffix so that resized copies of the same
// image share a key.
func variantKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	ext := path.Ext(u.Path)
	base := strings.TrimSuffix(u.Path, ext)
	base = strings.TrimRight(reSizeSuffix.ReplaceAllString(base, ""), "-_")

	return u.Host + base + ext
}

// pickVariant prefers the unsuffixed original, otherwise the largest size.
// The result carries the group's smallest index and earliest order.
func pickVariant(group []candidate) candidate {
	var best *candidate
	bestArea := -1

	for i := range group {
		cand := &group[i]
		if !reSizeSuffix.MatchString(cand.url) {
			best = cand
			break
		}
		if area := sizeOf(cand.url); area > bestArea {
			best, bestArea = cand, area
		}
	}

	out := *best
	for _, cand := range group {
		if cand.index >= 0 && (out.index < 0 || cand.index < out.index) {
			out.index = cand.index
		}
		if cand.order < out.order {
			out.order = cand.order
		}
	}

	return out
}

func sizeOf(raw string) int {
	m := reSize.FindAllStringSubmatch(raw, -1)
	if m == nil {
		return 0
	}

	last := m[len(m)-1]
	w, _ := strconv.Atoi(last[1])
	h, _ := strconv.Atoi(last[2])

	return w * h
}

func looksLikeHTML(s string) bool {
	for _, tag := range []string{"<img", "<a", "<div", "<picture", "<source"} {
		if strings.Contains(s, tag) {
			return true
		}
	}

	return false
}
