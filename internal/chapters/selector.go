package chapters

import (
	"strconv"
	"strings"
)

// Filter applies at most one selection: a single chapter, a 1-based range
// "a-b" or a list "1,3,5". With no selection all chapters are returned.
func Filter(all []Chapter, chapter, rng, list string) []Chapter {
	switch {
	case chapter != "":
		return FilterByLabel(all, chapter)
	case rng != "":
		return FilterRange(all, rng)
	case list != "":
		return FilterList(all, list)
	}

	return all
}

// FilterByLabel matches the chapter number first and the site's own label
// (kept in the description) second.
func FilterByLabel(all []Chapter, label string) []Chapter {
	label = strings.TrimSpace(label)

	out := []Chapter{}
	for _, ch := range all {
		if ch.Label() == label {
			return []Chapter{ch}
		}
	}
	for _, ch := range all {
		if ch.Description == label {
			out = append(out, ch)
		}
	}

	return out
}

func FilterRange(all []Chapter, rng string) []Chapter {
	from, to, ok := strings.Cut(rng, "-")
	if !ok {
		return nil
	}

	start, err1 := atoi(from)
	end, err2 := atoi(to)
	if err1 != nil || err2 != nil {
		return nil
	}
	if start <= 0 || end <= 0 || start > end || end > len(all) {
		return nil
	}

	return all[start-1 : end]
}

func FilterList(all []Chapter, list string) []Chapter {
	out := []Chapter{}
	for n := range strings.SplitSeq(list, ",") {
		idx, err := atoi(n)
		if err != nil {
			continue
		}
		if idx > 0 && idx <= len(all) {
			out = append(out, all[idx-1])
		}
	}

	return out
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
