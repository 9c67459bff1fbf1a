// Package downloader fetches the page images of assembled books and packs
// each chapter into a CBZ archive.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/brogergvhs/mxscraper/internal/book"
	"github.com/brogergvhs/mxscraper/internal/fetch"
)

// Progress receives per-chapter download progress. *ui.ProgressHandle
// implements it.
type Progress interface {
	Update(done, total int, bytes int64)
	MarkDone()
}

type nopProgress struct{}

func (nopProgress) Update(int, int, int64) {}
func (nopProgress) MarkDone()              {}

type Options struct {
	SkipBroken bool
	// Attempts per image, 3 when unset.
	Attempts int
	// Backoff is multiplied by the attempt number between retries, 1s when unset.
	Backoff time.Duration
	// Timeout bounds a single image request, 30s when unset.
	Timeout time.Duration
	// Context adds headers, cookies and auth to every image request.
	Context *fetch.Context
}

type Downloader struct {
	client     *http.Client
	skipBroken bool
	attempts   int
	backoff    time.Duration
	timeout    time.Duration
	fctx       *fetch.Context
}

func New(c *http.Client, opts Options) *Downloader {
	if opts.Attempts < 1 {
		opts.Attempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Downloader{
		client:     c,
		skipBroken: opts.SkipBroken,
		attempts:   opts.Attempts,
		backoff:    opts.Backoff,
		timeout:    opts.Timeout,
		fctx:       opts.Context,
	}
}

// LocalName is the file name a page is stored under. Names are zero padded so
// that archive order matches page order.
func LocalName(p book.Page) string {
	name := filepath.Base(p.Filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = strconv.Itoa(p.Number) + ".jpg"
	}

	ext := filepath.Ext(name)
	if strings.TrimSuffix(name, ext) == strconv.Itoa(p.Number) {
		return fmt.Sprintf("%03d%s", p.Number, ext)
	}

	return fmt.Sprintf("%03d_%s", p.Number, name)
}

type chapterState struct {
	mu    sync.Mutex
	done  int
	total int
	bytes int64
	ph    Progress
}

func (cs *chapterState) finish() {
	cs.mu.Lock()
	cs.done++
	cs.ph.Update(cs.done, cs.total, cs.bytes)
	cs.mu.Unlock()
}

func (cs *chapterState) addBytes(n int64) {
	cs.mu.Lock()
	cs.bytes += n
	cs.ph.Update(cs.done, cs.total, cs.bytes)
	cs.mu.Unlock()
}

// DownloadPages stores pages in folder using up to maxParallel workers. It
// returns the written files in page order and the number of bytes received.
func (d *Downloader) DownloadPages(
	ctx context.Context,
	pages []book.Page,
	folder string,
	referer string,
	maxParallel int,
	ph Progress,
) ([]string, int64, error) {
	if ph == nil {
		ph = nopProgress{}
	}

	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, 0, err
	}

	total := len(pages)
	if maxParallel < 1 {
		maxParallel = 1
	}
	if maxParallel > total && total > 0 {
		maxParallel = total
	}

	cs := &chapterState{total: total, ph: ph}
	ph.Update(0, total, 0)

	written := make([]string, total)
	var errs []error

	jobs := make(chan int)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for i := range jobs {
			p := pages[i]

			path := filepath.Join(folder, LocalName(p))
			var last int64

			progress := func(done int64) {
				if delta := done - last; delta > 0 {
					last = done
					cs.addBytes(delta)
				}
			}

			if err := d.downloadWithRetry(ctx, p.URL, path, referer, progress); err != nil {
				cs.mu.Lock()
				errs = append(errs, fmt.Errorf("page %d: %w", p.Number, err))
				cs.mu.Unlock()
				cs.finish()
				continue
			}

			written[i] = path
			cs.finish()
		}
	}

	wg.Add(maxParallel)
	for range maxParallel {
		go worker()
	}

	var ctxErr error
feed:
	for i := range pages {
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break feed
		case jobs <- i:
		}
	}

	close(jobs)
	wg.Wait()
	ph.MarkDone()

	files := make([]string, 0, total)
	for _, f := range written {
		if f != "" {
			files = append(files, f)
		}
	}

	if ctxErr != nil {
		return files, cs.bytes, ctxErr
	}

	if len(errs) > 0 && !d.skipBroken {
		return files, cs.bytes, fmt.Errorf("failed %d/%d images (use --skip-broken to continue): %w", len(errs), total, errors.Join(errs...))
	}

	return files, cs.bytes, nil
}

func (d *Downloader) downloadWithRetry(
	ctx context.Context,
	url string,
	output string,
	referer string,
	progress func(done int64),
) error {
	var err error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		err = d.download(ctx, url, output, referer, progress)
		if err == nil {
			return nil
		}

		if attempt == d.attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * d.backoff):
		}
	}

	return err
}

func (d *Downloader) download(
	ctx context.Context,
	u, output, referer string,
	progress func(done int64),
) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	d.fctx.Apply(req)

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return &fetch.Error{URL: u, Status: resp.StatusCode}
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, _ := mime.ParseMediaType(ct); !strings.HasPrefix(mt, "image/") {
			return fmt.Errorf("unexpected MIME: %s", ct)
		}
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	n, err := copyWithProgress(f, resp.Body, progress)
	if err != nil {
		return err
	}

	if progress != nil && resp.ContentLength > 0 && n < resp.ContentLength {
		progress(resp.ContentLength)
	}

	return nil
}
