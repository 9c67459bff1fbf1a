package scrape

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrNoScript     = errors.New("no script block with marker")
	ErrNoAssignment = errors.New("no assignment to variable")
)

// FindScript returns the text of the first inline script containing marker.
func FindScript(doc *goquery.Document, marker string) (string, error) {
	var found string
	ok := false

	doc.Find("script").EachWithBreak(func(_ int, sc *goquery.Selection) bool {
		t := sc.Text()
		if strings.Contains(t, marker) {
			found, ok = t, true
			return false
		}
		return true
	})

	if !ok {
		return "", fmt.Errorf("%w %q", ErrNoScript, marker)
	}

	return found, nil
}

// assignments caches the compiled assignment pattern per variable name.
var assignments sync.Map

func assignmentPattern(name string) *regexp.Regexp {
	if re, ok := assignments.Load(name); ok {
		return re.(*regexp.Regexp)
	}

	re := regexp.MustCompile(`(?s)(?:const|let|var)\s*` + regexp.QuoteMeta(name) + `\s*=\s*(\[.*?\])\s*;`)
	actual, _ := assignments.LoadOrStore(name, re)
	return actual.(*regexp.Regexp)
}

// StringArrayLiteral finds `const|let|var name = [...];` in js and decodes the
// right-hand side as a JSON array of strings.
func StringArrayLiteral(js, name string) ([]string, error) {
	m := assignmentPattern(name).FindStringSubmatch(js)
	if m == nil {
		return nil, fmt.Errorf("%w %q", ErrNoAssignment, name)
	}

	var out []string
	if err := json.Unmarshal([]byte(m[1]), &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	return out, nil
}
