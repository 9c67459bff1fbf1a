package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/brogergvhs/mxscraper/internal/book"
	"github.com/brogergvhs/mxscraper/internal/chapters"
	"github.com/brogergvhs/mxscraper/internal/config"
	"github.com/brogergvhs/mxscraper/internal/downloader"
	"github.com/brogergvhs/mxscraper/internal/providers"
	"github.com/brogergvhs/mxscraper/internal/ui"
	"github.com/brogergvhs/mxscraper/internal/util"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type fetchFlags struct {
	conn connFlags

	// selection
	plugin   string
	chapter  string
	rng      string
	list     string
	allowExt string
	checkJS  bool

	// output
	metaOnly bool
	format   string
	reflect  bool
	verbose  bool
	asc      bool
	shuffle  bool
	dryRun   bool

	// runtime
	output       string
	imageWorkers int
	termWorkers  int
	keepFolders  bool
	skipBroken   bool
}

func (f *fetchFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()

	fl.StringVarP(&f.plugin, "plugin", "p", "", "resolve every term with this plugin, skipping detection")
	fl.StringVar(&f.chapter, "chapter", "", "download a single chapter by number or label (e.g. 5 or 28.5)")
	fl.StringVar(&f.rng, "range", "", "download a range of chapters by index (e.g. 5-12)")
	fl.StringVar(&f.list, "list", "", "download specific chapter indices (e.g. 1,3,5)")
	fl.StringVar(&f.allowExt, "allow-ext", "", "allowed image extensions for the scanning plugins (e.g. \"webp|jpg|png\")")
	fl.BoolVar(&f.checkJS, "check-js", false, "let the generic plugin probe endpoints found in inline scripts")

	fl.BoolVarP(&f.metaOnly, "meta-only", "m", false, "print the metadata instead of downloading")
	fl.StringVarP(&f.format, "format", "f", "", "metadata format: yaml or json")
	fl.BoolVar(&f.reflect, "reflect", false, "print the terms that resolved, one per line")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "print failure details and plugin names")
	fl.BoolVar(&f.asc, "asc", false, "process books by ascending page count")
	fl.BoolVar(&f.shuffle, "rand", false, "process terms in random order")
	fl.BoolVar(&f.dryRun, "dry-run", false, "show what would be downloaded, don't download")

	fl.StringVarP(&f.output, "output", "o", "", "output folder; each book gets a subfolder")
	fl.IntVar(&f.imageWorkers, "image-workers", 0, "parallel image downloads per chapter")
	fl.IntVar(&f.termWorkers, "term-workers", 0, "terms resolved and downloaded in parallel")
	fl.BoolVar(&f.keepFolders, "keep-folders", false, "keep temporary chapter folders")
	fl.BoolVar(&f.skipBroken, "skip-broken", false, "skip failed images instead of failing the whole chapter")

	f.conn.register(cmd)
}

func (f *fetchFlags) options() (config.Options, error) {
	opts, err := f.conn.options()
	if err != nil {
		return opts, err
	}

	opts.Output = f.output
	opts.ImageWorkers = f.imageWorkers
	opts.TermWorkers = f.termWorkers
	opts.KeepFolders = f.keepFolders
	opts.SkipBroken = f.skipBroken
	opts.CheckJS = f.checkJS
	opts.DefaultRange = f.rng
	opts.DefaultList = f.list
	opts.MetadataFormat = f.format
	if f.allowExt != "" {
		opts.AllowExt = splitExt(f.allowExt)
	}

	return opts, nil
}

// downloads reports whether this invocation writes CBZ files.
func (f *fetchFlags) downloads() bool {
	return !f.metaOnly && !f.dryRun && !f.reflect
}

var fetchOpts fetchFlags

func init() {
	fetchCmd := &cobra.Command{
		Use:   "fetch <term>...",
		Short: "Resolve terms and download their chapters as CBZ files, or print their metadata",
		Long: `Resolve every term through the plugin that supports it. A term is an
URL or a prefixed identifier (see "mxscraper infos --plugins").

By default the selected chapters of every book are downloaded into
<output>/<book>/ together with a book.yaml (or book.json) metadata file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := fetchSession(cmd, &fetchOpts)
			if err != nil {
				return err
			}

			return runTerms(cmd.Context(), s, &fetchOpts, args, nil)
		},
	}

	fetchOpts.register(fetchCmd)
	rootCmd.AddCommand(fetchCmd)
}

func fetchSession(cmd *cobra.Command, f *fetchFlags) (*session, error) {
	opts, err := f.options()
	if err != nil {
		return nil, err
	}

	return newSession(cmd, &f.conn, opts)
}

// termOutcome is the result of one term, successful or not.
type termOutcome struct {
	term string
	res  *providers.Result
	err  error
}

func runTerms(ctx context.Context, s *session, f *fetchFlags, terms []string, failed []termOutcome) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	terms = dedupe(terms)
	if f.shuffle {
		rand.Shuffle(len(terms), func(i, j int) { terms[i], terms[j] = terms[j], terms[i] })
	}
	total := len(terms) + len(failed)
	if total == 0 {
		return errors.New("no terms given")
	}

	if f.plugin != "" {
		if _, ok := s.registry.Get(f.plugin); !ok {
			return fmt.Errorf("%w %q", providers.ErrUnknownPlugin, f.plugin)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if f.downloads() {
		if err := os.MkdirAll(s.cfg.Output, 0755); err != nil {
			return fmt.Errorf("cannot create output folder: %w", err)
		}
		util.SetupInterruptHandler(s.cfg.Output, cancel)
	}

	var results []*providers.Result
	for _, o := range resolveAll(ctx, s, terms, f.plugin) {
		if o.err != nil {
			s.log.Debugf("Term %q failed: %v\n", o.term, o.err)
			failed = append(failed, o)
			continue
		}
		results = append(results, o.res)
	}

	if f.asc {
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Book.CountPages() < results[j].Book.CountPages()
		})
	}

	stats := &ui.Stats{}
	stats.Terms.Store(int64(total))

	var err error
	switch {
	case f.reflect:
		printReflect(s.out, results, f.verbose)
	case f.metaOnly:
		err = printMeta(s.out, results, f.format, f.verbose)
	case f.dryRun:
		printDryRun(s.out, s, f, results)
	default:
		failed = append(failed, downloadAll(ctx, s, f, results, stats)...)
	}
	if err != nil {
		return err
	}

	stats.FailedTerms.Store(int64(len(failed)))
	reportFailures(s.errOut, failed, total, f.verbose)

	if f.downloads() {
		_, _ = fmt.Fprintln(s.out)
		stats.Fprint(s.out, time.Since(start))
	}

	if len(failed) == total {
		return fmt.Errorf("all %d terms failed", total)
	}

	return nil
}

// resolveAll resolves terms on up to term_workers goroutines. Outcomes keep
// the order of terms.
func resolveAll(ctx context.Context, s *session, terms []string, plugin string) []termOutcome {
	out := make([]termOutcome, len(terms))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.cfg.TermWorkers))

	for i, term := range terms {
		g.Go(func() error {
			s.log.Debugf("Resolving %q\n", term)

			res, err := s.registry.Resolve(gctx, term, plugin, s.request())
			out[i] = termOutcome{term: term, res: res, err: err}

			return nil
		})
	}
	_ = g.Wait()

	return out
}

func downloadAll(ctx context.Context, s *session, f *fetchFlags, results []*providers.Result, stats *ui.Stats) []termOutcome {
	pm := ui.NewProgressManager(s.errOut)
	dl := s.downloader()

	failed := make([]termOutcome, len(results))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.cfg.TermWorkers))

	for i, res := range results {
		g.Go(func() error {
			if err := downloadBook(gctx, s, f, res, pm, dl, stats); err != nil {
				failed[i] = termOutcome{term: res.Term, res: res, err: err}
			}
			return nil
		})
	}
	_ = g.Wait()
	pm.Close()

	var out []termOutcome
	for _, o := range failed {
		if o.err != nil {
			out = append(out, o)
		}
	}

	return out
}

func downloadBook(
	ctx context.Context,
	s *session,
	f *fetchFlags,
	res *providers.Result,
	pm *ui.ProgressManager,
	dl *downloader.Downloader,
	stats *ui.Stats,
) error {
	b := res.Book

	selected := selectChapters(b, f.chapter, s.cfg)
	if len(selected) == 0 {
		return fmt.Errorf("no chapters selected out of %d", len(b.Chapters))
	}

	dir := filepath.Join(s.cfg.Output, bookFolder(b))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create book folder: %w", err)
	}

	path, err := downloader.WriteMetadata(dir, b, s.cfg.MetadataFormat)
	if err != nil {
		return err
	}
	s.log.Debugf("Wrote %s\n", path)

	var errs []error
	for _, ch := range selected {
		if err := ctx.Err(); err != nil {
			return err
		}

		h := pm.Register(b.Title, ch.Label())
		h.SetTotal(len(ch.Pages))

		r, err := dl.DownloadChapter(ctx, ch, dir, max(1, s.cfg.ImageWorkers), s.cfg.KeepFolders, h)
		if err != nil {
			h.Fail()
			s.log.Errorf("%s: %v\n", b.Title, err)
			errs = append(errs, err)
			continue
		}
		h.MarkDone()

		stats.TotalChapters.Add(1)
		stats.TotalImages.Add(int64(r.Pages))
		stats.TotalBytes.Add(r.Bytes)
	}

	return errors.Join(errs...)
}

func selectChapters(b *book.Book, chapter string, cfg *config.Config) []chapters.Chapter {
	return chapters.Filter(chapters.FromBook(b), chapter, cfg.DefaultRange, cfg.DefaultList)
}

// bookFolder names the per-book output folder.
func bookFolder(b *book.Book) string {
	for _, s := range []string{b.Title, b.SourceID} {
		if name := chapters.Sanitize(s); name != "" {
			return name
		}
	}

	return "book"
}

func printReflect(w io.Writer, results []*providers.Result, verbose bool) {
	for _, r := range results {
		if verbose {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", r.Term, r.Plugin, r.Book.Title)
			continue
		}
		_, _ = fmt.Fprintln(w, r.Term)
	}
}

// printMeta writes one summary per book, or one YAML document / JSON object
// per book when a format is requested.
func printMeta(w io.Writer, results []*providers.Result, format string, verbose bool) error {
	for i, r := range results {
		if format == "" {
			if verbose {
				_, _ = fmt.Fprintf(w, "Plugin:   %s\n", r.Plugin)
			}
			_, _ = fmt.Fprintf(w, "%s\n\n", r.Book.Summary())
			continue
		}

		if i > 0 && format != downloader.FormatJSON {
			_, _ = fmt.Fprintln(w, "---")
		}
		if err := downloader.EncodeBook(w, r.Book, strings.ToLower(format)); err != nil {
			return err
		}
	}

	return nil
}

func printDryRun(w io.Writer, s *session, f *fetchFlags, results []*providers.Result) {
	for _, r := range results {
		selected := selectChapters(r.Book, f.chapter, s.cfg)

		_, _ = fmt.Fprintf(w, "%s [%s] -> %s\n", r.Book.Title, r.Plugin, filepath.Join(s.cfg.Output, bookFolder(r.Book)))
		_, _ = fmt.Fprintf(w, "Dry-run: %d of %d chapters selected.\n", len(selected), len(r.Book.Chapters))
		for i, ch := range selected {
			_, _ = fmt.Fprintf(w, "%3d) %s  [%s] %d pages\n    %s\n", i+1, ch.Title, ch.Label(), len(ch.Pages), ch.URL)
		}
		_, _ = fmt.Fprintln(w)
	}
}

func reportFailures(w io.Writer, failed []termOutcome, total int, verbose bool) {
	if len(failed) == 0 {
		return
	}

	_, _ = fmt.Fprintf(w, "Failed fetching %d/%d", len(failed), total)
	if !verbose {
		_, _ = fmt.Fprintln(w, " (use --verbose for details)")
		return
	}

	_, _ = fmt.Fprintln(w, ":")
	for i, o := range failed {
		_, _ = fmt.Fprintf(w, "#%d. %q\n%v\n", i+1, o.term, o.err)
	}
}

// dedupe drops repeated and blank terms, keeping the first occurrence.
func dedupe(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))

	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	return out
}

func splitExt(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '|' || r == ',' || r == ' '
	})

	out := []string{}
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			out = append(out, f)
		}
	}

	return out
}
