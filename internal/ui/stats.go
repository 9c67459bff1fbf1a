package ui

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/brogergvhs/mxscraper/internal/util"
)

// Stats accumulates run totals across concurrent term and chapter workers.
type Stats struct {
	Terms         atomic.Int64
	FailedTerms   atomic.Int64
	TotalImages   atomic.Int64
	TotalBytes    atomic.Int64
	TotalChapters atomic.Int64
}

func (s *Stats) Fprint(w io.Writer, elapsed time.Duration) {
	_, _ = fmt.Fprintln(w, "Summary:")
	_, _ = fmt.Fprintf(w, "Terms:    %d (%d failed)\n", s.Terms.Load(), s.FailedTerms.Load())
	_, _ = fmt.Fprintf(w, "Chapters: %d\n", s.TotalChapters.Load())
	_, _ = fmt.Fprintf(w, "Images:   %d\n", s.TotalImages.Load())
	_, _ = fmt.Fprintf(w, "Data:     %s\n", util.Human(s.TotalBytes.Load()))
	_, _ = fmt.Fprintf(w, "Time:     %s\n", elapsed.Round(time.Second))
}
