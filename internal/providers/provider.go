package providers

import (
	"context"
	"errors"

	"github.com/brogergvhs/mxscraper/internal/book"
	"github.com/brogergvhs/mxscraper/internal/fetch"
)

// Capability flags declare which operations a plugin implements.
type Capability uint8

const (
	CapSupport Capability = 1 << iota
	CapGallery
	CapBook
)

func (c Capability) Has(flag Capability) bool {
	return c&flag == flag
}

func (c Capability) String() string {
	s := ""
	for _, f := range []struct {
		flag Capability
		name string
	}{{CapSupport, "support"}, {CapGallery, "gallery"}, {CapBook, "book"}} {
		if c.Has(f.flag) {
			if s != "" {
				s += ","
			}
			s += f.name
		}
	}

	return s
}

// Plugin is the part every provider implements. Extraction operations are
// declared through Capabilities and provided by GalleryExtractor and
// BookExtractor.
type Plugin interface {
	Name() string
	Capabilities() Capability
	Supports(term string) bool
}

type GalleryExtractor interface {
	GetURLs(ctx context.Context, term string, req Request) (*book.Gallery, error)
}

type BookExtractor interface {
	GetBook(ctx context.Context, term string, req Request) (*book.Book, error)
}

// Request gives a plugin access to the fetcher together with the caller's
// opaque per-call context, which is forwarded untouched.
type Request struct {
	Fetcher fetch.Fetcher
	Context any
}

// Fetch retrieves url. Failures are always reported as *fetch.Error.
func (r Request) Fetch(ctx context.Context, url string) ([]byte, error) {
	body, err := r.Fetcher.Fetch(ctx, url, r.Context)
	if err != nil {
		var fe *fetch.Error
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &fetch.Error{URL: url, Err: err}
	}

	return body, nil
}

// DebugLogger is the logging surface plugins use for diagnostics.
type DebugLogger interface {
	Debugf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}

// LoggerOrNop returns l, or a logger that discards everything when l is nil.
func LoggerOrNop(l DebugLogger) DebugLogger {
	if l == nil {
		return nopLogger{}
	}

	return l
}
