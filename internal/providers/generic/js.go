package generic

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/mxscraper/internal/providers"
)

var (
	reJSVar  = regexp.MustCompile(`(?m)(?:var|let|const)\s+([A-Za-z0-9_]+)\s*=\s*["']?([\w\-\/\.]+)["']?;`)
	reJSPath = regexp.MustCompile(`["'](\/[A-Za-z0-9\/\-\._]+)["']`)
	reJSCall = regexp.MustCompile(`(?:fetch|axios|post|get)\s*\(\s*["']([^"']+)["']`)
	reNuxt   = regexp.MustCompile(`(?s)window\.__NUXT__\s*=\s*(\{.*?});`)
)

// scriptHints is what inline scripts reveal about where page data lives.
type scriptHints struct {
	vars  map[string]string
	paths []string
	calls []string
}

func inlineScripts(doc *goquery.Document) string {
	var sb strings.Builder
	doc.Find("script").Each(func(_ int, sc *goquery.Selection) {
		if t := sc.Text(); strings.TrimSpace(t) != "" {
			sb.WriteString(t)
			sb.WriteString("\n")
		}
	})

	return sb.String()
}

func analyzeScripts(js string) scriptHints {
	h := scriptHints{vars: map[string]string{}}

	for _, m := range reJSVar.FindAllStringSubmatch(js, -1) {
		h.vars[m[1]] = m[2]
	}
	for _, m := range reJSPath.FindAllStringSubmatch(js, -1) {
		h.paths = append(h.paths, m[1])
	}
	for _, m := range reJSCall.FindAllStringSubmatch(js, -1) {
		h.calls = append(h.calls, m[1])
	}

	return h
}

// endpoints combines chapter-looking path prefixes with id-like variables and
// adds every literal fetch/axios call target.
func (h scriptHints) endpoints() []string {
	var ids []string
	for k, v := range h.vars {
		if strings.Contains(strings.ToLower(k), "id") {
			ids = append(ids, v)
		}
	}
	sort.Strings(ids)

	var out []string
	seen := map[string]bool{}
	add := func(u string) {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}

	for _, base := range h.paths {
		if strings.Contains(base, "chap") && strings.HasSuffix(base, "/") {
			for _, id := range ids {
				add(base + id)
			}
		}
	}
	for _, c := range h.calls {
		add(c)
	}

	return out
}

// scanNuxtState decodes an embedded window.__NUXT__ object, if any.
func scanNuxtState(body, pageURL string, col *Collector, log providers.DebugLogger) {
	m := reNuxt.FindStringSubmatch(body)
	if m == nil {
		return
	}

	var state map[string]any
	if err := json.Unmarshal([]byte(m[1]), &state); err != nil {
		log.Debugf("nuxt state is not plain JSON: %v\n", err)
		return
	}

	log.Debugf("found embedded nuxt state\n")
	col.ScanState(state, pageURL)
}

// probeEndpoints fetches the endpoints hinted at by inline scripts and scans
// JSON responses for images. Failed probes are ignored.
func probeEndpoints(ctx context.Context, pageURL string, h scriptHints, req providers.Request, col *Collector, log providers.DebugLogger) {
	candidates := h.endpoints()
	log.Debugf("dynamic endpoint candidates: %v\n", candidates)

	for _, p := range candidates {
		target := resolve(pageURL, p)

		body, err := req.Fetch(ctx, target)
		if err != nil {
			log.Debugf("probe %s: %v\n", target, err)
			continue
		}

		trimmed := strings.TrimSpace(string(body))
		if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
			continue
		}

		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			col.ScanState(v, pageURL)
		}
	}
}
