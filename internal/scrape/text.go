package scrape

import (
	"net/url"
	"regexp"
	"strings"
)

var reTrailingExt = regexp.MustCompile(`\.([A-Za-z0-9]+)$`)

// CollapseSpace trims s and folds every whitespace run into one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ExtFromURL returns the extension of the last path element of raw, or def
// when there is none.
func ExtFromURL(raw, def string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}

	if m := reTrailingExt.FindStringSubmatch(p); m != nil {
		return m[1]
	}

	return def
}
