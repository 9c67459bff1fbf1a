package fetch

import (
	"context"

	"golang.org/x/time/rate"
)

type limited struct {
	limiter *rate.Limiter
	next    Fetcher
}

// Limited wraps f so that every call waits for l. A nil limiter returns f
// unchanged.
func Limited(l *rate.Limiter, f Fetcher) Fetcher {
	if l == nil {
		return f
	}

	return &limited{limiter: l, next: f}
}

// NewLimiter allows perSecond requests per second with an equal burst. Zero
// or less means unlimited and yields nil.
func NewLimiter(perSecond int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}

	return rate.NewLimiter(rate.Limit(perSecond), perSecond)
}

func (l *limited) Fetch(ctx context.Context, target string, payload any) ([]byte, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, &Error{URL: target, Err: err}
	}

	return l.next.Fetch(ctx, target, payload)
}
