package cmd

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brogergvhs/mxscraper/internal/config"
	"github.com/brogergvhs/mxscraper/internal/downloader"
	"github.com/brogergvhs/mxscraper/internal/fetch"
	"github.com/brogergvhs/mxscraper/internal/providers"
	"github.com/brogergvhs/mxscraper/internal/providers/batoto"
	"github.com/brogergvhs/mxscraper/internal/providers/generic"
	"github.com/brogergvhs/mxscraper/internal/providers/images"
	"github.com/brogergvhs/mxscraper/internal/ui"
	"github.com/brogergvhs/mxscraper/internal/util"

	"github.com/spf13/cobra"
)

// connFlags are the network flags shared by every command that fetches.
type connFlags struct {
	cookie       string
	cookieFile   string
	userAgent    string
	user         string
	password     string
	bearer       string
	headers      []string
	flaresolverr string
	cloudflare   bool
	rateLimit    int
}

func (f *connFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.cookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	fl.StringVar(&f.cookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	fl.StringVar(&f.userAgent, "user-agent", "", "override User-Agent")
	fl.StringVar(&f.user, "user", "", "basic auth user")
	fl.StringVar(&f.password, "password", "", "basic auth password (requires --user)")
	fl.StringVar(&f.bearer, "bearer", "", "bearer token for the Authorization header")
	fl.StringArrayVarP(&f.headers, "header", "H", nil, "extra request header \"Name: value\" (repeatable)")
	fl.StringVar(&f.flaresolverr, "flaresolverr", "", "FlareSolverr endpoint, e.g. http://localhost:8191/v1")
	fl.BoolVar(&f.cloudflare, "cloudflare-bypass", false, "mimic a browser TLS handshake to pass basic Cloudflare checks")
	fl.IntVar(&f.rateLimit, "rate-limit", 0, "maximum page requests per second (0 for no limit)")
}

// auth builds the Authorization settings from the flags. A user selects basic
// auth, otherwise a bearer token selects bearer auth.
func (f *connFlags) auth() (*fetch.Auth, error) {
	switch {
	case f.user != "":
		return &fetch.Auth{Kind: fetch.AuthBasic, User: f.user, Password: f.password}, nil
	case f.bearer != "":
		return &fetch.Auth{Kind: fetch.AuthBearer, Token: strings.TrimPrefix(f.bearer, "Bearer ")}, nil
	case f.password != "":
		return nil, fmt.Errorf("at least --user must be provided, or use --bearer")
	default:
		return nil, nil
	}
}

// callContext carries the --header values of this invocation.
func (f *connFlags) callContext() (*fetch.Context, error) {
	if len(f.headers) == 0 {
		return nil, nil
	}

	headers, err := parseHeaders(f.headers)
	if err != nil {
		return nil, err
	}

	return &fetch.Context{Headers: headers}, nil
}

func parseHeaders(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, h := range raw {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			name, value, ok = strings.Cut(h, "=")
		}
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, expected \"Name: value\"", h)
		}
		out[name] = strings.TrimSpace(value)
	}

	return out, nil
}

func (f *connFlags) options() (config.Options, error) {
	auth, err := f.auth()
	if err != nil {
		return config.Options{}, err
	}

	return config.Options{
		IgnoreConfig:     flagIgnoreConfig,
		Debug:            flagDebug,
		Cookie:           f.cookie,
		CookieFile:       f.cookieFile,
		UserAgent:        f.userAgent,
		Auth:             auth,
		FlareSolverr:     f.flaresolverr,
		CloudflareBypass: f.cloudflare,
		RateLimit:        f.rateLimit,
	}, nil
}

// session is the wiring shared by one command invocation.
type session struct {
	cfg      *config.Config
	used     string
	log      *ui.Logger
	client   *http.Client
	fetcher  fetch.Fetcher
	registry *providers.Registry
	callCtx  *fetch.Context

	out    io.Writer
	errOut io.Writer
}

func newSession(cmd *cobra.Command, conn *connFlags, opts config.Options) (*session, error) {
	callCtx, err := conn.callContext()
	if err != nil {
		return nil, err
	}

	cfg, used, err := config.LoadMerged(opts)
	if err != nil {
		return nil, err
	}

	log := ui.NewLogger(cfg.Debug).WithOutput(cmd.ErrOrStderr())
	log.Debugf("Config file: %s\n", used)

	client, err := util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:          cfg.Timeout(),
		UserAgent:        util.PickUserAgent(cfg.UserAgent),
		Cookie:           cfg.Cookie,
		CookieFile:       cfg.CookieFile,
		CloudflareBypass: cfg.CloudflareBypass,
		DebugLogger:      log,
	})
	if err != nil {
		return nil, err
	}

	registry, err := newRegistry(cfg, log)
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:      cfg,
		used:     used,
		log:      log,
		client:   client,
		fetcher:  newFetcher(cfg, client, log),
		registry: registry,
		callCtx:  callCtx,
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
	}, nil
}

func newFetcher(cfg *config.Config, client *http.Client, log *ui.Logger) fetch.Fetcher {
	var f fetch.Fetcher
	if cfg.FlareSolverr.Endpoint == "" {
		f = fetch.NewHTTP(client, fetch.HTTPOptions{
			Defaults: cfg.FetchContext(),
			Attempts: cfg.Retries,
		})
	} else {
		log.Debugf("Fetching pages through FlareSolverr at %s\n", cfg.FlareSolverr.Endpoint)

		// The solver itself may take up to max_timeout before it answers.
		solver := &http.Client{
			Timeout: time.Duration(cfg.FlareSolverr.MaxTimeout)*time.Millisecond + cfg.Timeout(),
		}
		f = fetch.NewFlareSolverr(cfg.FlareSolverr.Endpoint, cfg.FlareSolverr.MaxTimeout, solver, cfg.FetchContext())
	}

	return fetch.Limited(fetch.NewLimiter(cfg.RateLimit), f)
}

// newRegistry registers the built-in plugins. Order matters: the catch-all
// prefixed plugins come after the site specific ones.
func newRegistry(cfg *config.Config, log *ui.Logger) (*providers.Registry, error) {
	r := providers.NewRegistry()

	plugins := []providers.Plugin{
		batoto.New(),
		images.New(cfg.AllowExt, log),
		generic.New(generic.Options{
			AllowExt: cfg.AllowExt,
			CheckJS:  cfg.CheckJS,
			Logger:   log,
		}),
	}
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (s *session) request() providers.Request {
	return providers.Request{Fetcher: s.fetcher, Context: s.callCtx}
}

func (s *session) downloader() *downloader.Downloader {
	return downloader.New(s.client, downloader.Options{
		SkipBroken: s.cfg.SkipBroken,
		Attempts:   s.cfg.Retries,
		Timeout:    s.cfg.Timeout(),
		Context:    fetch.Merge(s.cfg.FetchContext(), s.callCtx),
	})
}
