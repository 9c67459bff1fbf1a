package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brogergvhs/mxscraper/internal/util"
)

// HTTP fetches pages with a plain GET over the configured client.
type HTTP struct {
	client   *http.Client
	defaults *Context
	attempts int
	backoff  time.Duration
}

type HTTPOptions struct {
	// Defaults is merged under any *Context payload of a call.
	Defaults *Context
	Attempts int
	Backoff  time.Duration
}

func NewHTTP(c *http.Client, opts HTTPOptions) *HTTP {
	if opts.Attempts < 1 {
		opts.Attempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}

	return &HTTP{
		client:   c,
		defaults: opts.Defaults,
		attempts: opts.Attempts,
		backoff:  opts.Backoff,
	}
}

func (h *HTTP) Fetch(ctx context.Context, target string, payload any) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{URL: target, Err: err}
	}

	Merge(h.defaults, contextFrom(payload)).Apply(req)

	resp, err := util.DoWithRetry(h.client, req, h.attempts, h.backoff)
	if err != nil {
		var se *util.StatusError
		if errors.As(err, &se) {
			return nil, &Error{URL: target, Status: se.Status}
		}
		return nil, &Error{URL: target, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{URL: target, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{URL: target, Err: fmt.Errorf("read body: %w", err)}
	}

	return body, nil
}
