package scrape

import "regexp"

var reDigits = regexp.MustCompile(`[0-9]+`)

// ParseIdentifier returns the first run of decimal digits in s.
// Upstream URLs and slugs embed the id in varying surrounding text, so
// anything containing a number is accepted.
func ParseIdentifier(s string) (string, error) {
	id := reDigits.FindString(s)
	if id == "" {
		return "", &NotFoundError{Input: s}
	}

	return id, nil
}
