// Package chapters selects chapters of a book and names their output files.
package chapters

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/brogergvhs/mxscraper/internal/book"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Chapter struct {
	book.Chapter
}

// FromBook wraps the chapters of b in reading order.
func FromBook(b *book.Book) []Chapter {
	out := make([]Chapter, len(b.Chapters))
	for i, ch := range b.Chapters {
		out[i] = Chapter{ch}
	}

	return out
}

// Label is the chapter number as shown to the user.
func (c Chapter) Label() string {
	return strconv.Itoa(c.Number)
}

var (
	reUnderscores = regexp.MustCompile(`_+`)

	nameReplacer = strings.NewReplacer(
		"•", "_",
		"-", "_",
		"—", "_",
		"–", "_",
		"/", "_",
		"\\", "_",
		".", "_",
		" ", "_",
		"(", "",
		")", "",
	)
)

// Sanitize lowercases s, strips diacritics and reduces it to letters, digits
// and single underscores so it can be used as a file name.
func Sanitize(s string) string {
	if folded, _, err := transform.String(foldMarks(), s); err == nil {
		s = folded
	}
	s = nameReplacer.Replace(strings.ToLower(s))

	clean := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			clean = append(clean, r)
		}
	}

	return strings.Trim(reUnderscores.ReplaceAllString(string(clean), "_"), "_")
}

// foldMarks drops Latin combining accents. Other marks, such as kana voicing
// marks, change the letter and are kept.
func foldMarks() transform.Transformer {
	latinMark := func(r rune) bool { return r >= 0x0300 && r <= 0x036f }
	return transform.Chain(norm.NFD, runes.Remove(runes.Predicate(latinMark)), norm.NFC)
}

func (c Chapter) baseName() string {
	lbl := Sanitize(c.Label())
	title := Sanitize(c.Title)

	if title != "" && title != lbl {
		return lbl + "_" + title
	}

	return lbl
}

func (c Chapter) FolderName() string {
	return c.baseName() + "_tmp"
}

func (c Chapter) OutputCBZ() string {
	return c.baseName() + ".cbz"
}

func (c Chapter) OutputCBZPath(out string) string {
	return filepath.Join(out, c.OutputCBZ())
}
