package providers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/brogergvhs/mxscraper/internal/book"
	"github.com/brogergvhs/mxscraper/internal/fetch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPlugin struct {
	name   string
	prefix string
	caps   Capability
	calls  []string
	book   *book.Book
}

func (s *stubPlugin) Name() string              { return s.name }
func (s *stubPlugin) Capabilities() Capability  { return s.caps }
func (s *stubPlugin) Supports(term string) bool { return strings.HasPrefix(term, s.prefix) }

func (s *stubPlugin) GetURLs(_ context.Context, term string, _ Request) (*book.Gallery, error) {
	s.calls = append(s.calls, "gallery")
	return &book.Gallery{Title: term, URLSource: "https://x", URLs: []string{"https://x/1.png"}}, nil
}

func (s *stubPlugin) GetBook(_ context.Context, term string, _ Request) (*book.Book, error) {
	s.calls = append(s.calls, "book")
	if s.book != nil {
		return s.book, nil
	}
	return &book.Book{Title: term}, nil
}

type fetcherFunc func(ctx context.Context, url string, payload any) ([]byte, error)

func (f fetcherFunc) Fetch(ctx context.Context, url string, payload any) ([]byte, error) {
	return f(ctx, url, payload)
}

func TestFindUsesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubPlugin{name: "a", prefix: "x", caps: CapSupport | CapBook}))
	require.NoError(t, r.Register(&stubPlugin{name: "b", prefix: "x:", caps: CapSupport | CapBook}))

	p, err := r.Find("x:1")
	require.NoError(t, err)
	assert.Equal(t, "a", p.Name())

	_, err = r.Find("nothing")
	assert.ErrorIs(t, err, ErrNoPlugin)
}

func TestFindSkipsPluginsWithoutSupportCapability(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubPlugin{name: "silent", prefix: "", caps: CapBook}))

	_, err := r.Find("anything")
	assert.ErrorIs(t, err, ErrNoPlugin)
}

func TestRegisterChecksCapabilities(t *testing.T) {
	r := NewRegistry()

	err := r.Register(&mismatched{})
	assert.ErrorContains(t, err, "declares book")

	require.NoError(t, r.Register(&stubPlugin{name: "a", caps: CapSupport}))
	assert.ErrorContains(t, r.Register(&stubPlugin{name: "a", caps: CapSupport}), "already registered")
}

type mismatched struct{}

func (mismatched) Name() string             { return "mismatched" }
func (mismatched) Capabilities() Capability { return CapSupport | CapBook }
func (mismatched) Supports(string) bool     { return true }

func TestResolvePrefersGallery(t *testing.T) {
	both := &stubPlugin{name: "both", prefix: "b:", caps: CapSupport | CapGallery | CapBook}

	r := NewRegistry()
	require.NoError(t, r.Register(both))

	res, err := r.Resolve(context.Background(), "b:term", "", Request{})
	require.NoError(t, err)

	assert.Equal(t, []string{"gallery"}, both.calls)
	assert.Equal(t, "both", res.Plugin)
	assert.Equal(t, "b:term", res.Term)
	require.Len(t, res.Book.Chapters, 1)
	assert.Equal(t, "1.png", res.Book.Chapters[0].Pages[0].Filename)
}

func TestResolveBook(t *testing.T) {
	p := &stubPlugin{name: "books", prefix: "k:", caps: CapSupport | CapBook}

	r := NewRegistry()
	require.NoError(t, r.Register(p))

	res, err := r.Resolve(context.Background(), "k:1", "", Request{})
	require.NoError(t, err)
	assert.Equal(t, "k:1", res.Book.Title)
	assert.Equal(t, []string{"book"}, p.calls)
}

func TestResolveForcedPluginBypassesSupports(t *testing.T) {
	p := &stubPlugin{name: "books", prefix: "k:", caps: CapSupport | CapBook}

	r := NewRegistry()
	require.NoError(t, r.Register(p))

	res, err := r.Resolve(context.Background(), "unrelated", "books", Request{})
	require.NoError(t, err)
	assert.Equal(t, "unrelated", res.Book.Title)

	_, err = r.Resolve(context.Background(), "unrelated", "missing", Request{})
	assert.ErrorIs(t, err, ErrUnknownPlugin)
}

func TestResolveRejectsInvalidBooks(t *testing.T) {
	cases := map[string]*book.Book{
		"chapter gap": {Chapters: []book.Chapter{{Number: 1}, {Number: 3}}},
		"page order": {Chapters: []book.Chapter{{
			Number: 1,
			Pages:  []book.Page{{Number: 2}, {Number: 1}},
		}}},
		"duplicate author": {Authors: []book.Author{{Name: "A"}, {Name: "A"}}},
	}

	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewRegistry()
			require.NoError(t, r.Register(&stubPlugin{name: "bad", prefix: "x:", caps: CapSupport | CapBook, book: b}))

			_, err := r.Resolve(context.Background(), "x:1", "", Request{})
			assert.ErrorIs(t, err, ErrInvalidBook)
		})
	}
}

func TestResolveWithoutExtractor(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubPlugin{name: "nop", prefix: "n:", caps: CapSupport}))

	_, err := r.Resolve(context.Background(), "n:1", "", Request{})
	assert.ErrorIs(t, err, ErrNoExtractor)
}

func TestRequestFetchWrapsErrors(t *testing.T) {
	boom := errors.New("boom")
	var seen any

	req := Request{
		Fetcher: fetcherFunc(func(_ context.Context, _ string, payload any) ([]byte, error) {
			seen = payload
			return nil, boom
		}),
		Context: "opaque",
	}

	_, err := req.Fetch(context.Background(), "https://x/1")

	var fe *fetch.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "https://x/1", fe.URL)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "opaque", seen)
}

func TestRequestFetchKeepsFetchErrors(t *testing.T) {
	orig := &fetch.Error{URL: "https://x/2", Status: 503}
	req := Request{Fetcher: fetcherFunc(func(context.Context, string, any) ([]byte, error) {
		return nil, orig
	})}

	_, err := req.Fetch(context.Background(), "https://x/2")
	assert.Same(t, orig, err)
}

func TestCapabilityString(t *testing.T) {
	assert.Equal(t, "support,book", (CapSupport | CapBook).String())
	assert.Equal(t, "", Capability(0).String())
}
