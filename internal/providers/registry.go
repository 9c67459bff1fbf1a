package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/brogergvhs/mxscraper/internal/book"
)

var (
	ErrNoPlugin      = errors.New("no plugin supports term")
	ErrUnknownPlugin = errors.New("unknown plugin")
	ErrNoExtractor   = errors.New("plugin declares no extraction capability")
	ErrInvalidBook   = errors.New("invalid book")
)

// Result is the outcome of resolving one term.
type Result struct {
	Term   string
	Plugin string
	Book   *book.Book
}

// Registry dispatches terms to registered plugins in registration order.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds p after checking that the declared capabilities are backed by
// the matching interfaces.
func (r *Registry) Register(p Plugin) error {
	caps := p.Capabilities()
	if caps.Has(CapGallery) {
		if _, ok := p.(GalleryExtractor); !ok {
			return fmt.Errorf("plugin %s declares gallery but does not implement it", p.Name())
		}
	}
	if caps.Has(CapBook) {
		if _, ok := p.(BookExtractor); !ok {
			return fmt.Errorf("plugin %s declares book but does not implement it", p.Name())
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin %s already registered", p.Name())
		}
	}
	r.plugins = append(r.plugins, p)

	return nil
}

func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]Plugin(nil), r.plugins...)
}

func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p, true
		}
	}

	return nil, false
}

// Find returns the first plugin that supports term.
func (r *Registry) Find(term string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Capabilities().Has(CapSupport) && p.Supports(term) {
			return p, nil
		}
	}

	return nil, fmt.Errorf("%w %q", ErrNoPlugin, term)
}

// Resolve runs term through a plugin. With a non-empty name that plugin is
// used without consulting Supports; otherwise the first supporting plugin is
// picked. Gallery extraction is attempted before book extraction, and the
// resulting book must pass Validate.
func (r *Registry) Resolve(ctx context.Context, term, name string, req Request) (*Result, error) {
	var p Plugin
	if name != "" {
		var ok bool
		if p, ok = r.Get(name); !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownPlugin, name)
		}
	} else {
		var err error
		if p, err = r.Find(term); err != nil {
			return nil, err
		}
	}

	b, err := extract(ctx, p, term, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", p.Name(), ErrInvalidBook, err)
	}

	return &Result{Term: term, Plugin: p.Name(), Book: b}, nil
}

func extract(ctx context.Context, p Plugin, term string, req Request) (*book.Book, error) {
	caps := p.Capabilities()

	switch {
	case caps.Has(CapGallery):
		g, err := p.(GalleryExtractor).GetURLs(ctx, term, req)
		if err != nil {
			return nil, err
		}
		return book.BookFromGallery(g)

	case caps.Has(CapBook):
		return p.(BookExtractor).GetBook(ctx, term, req)

	default:
		return nil, ErrNoExtractor
	}
}
