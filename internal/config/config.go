// Package config manages labeled YAML configuration profiles and merges the
// active one with command line overrides.
package config

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/brogergvhs/mxscraper/internal/fetch"

	"gopkg.in/yaml.v3"
)

type FlareSolverr struct {
	Endpoint string `yaml:"endpoint"`
	// MaxTimeout is the solver timeout in milliseconds.
	MaxTimeout int `yaml:"max_timeout"`
}

type Config struct {
	Output       string   `yaml:"output"`
	ImageWorkers int      `yaml:"image_workers"`
	TermWorkers  int      `yaml:"term_workers"`
	KeepFolders  bool     `yaml:"keep_folders"`
	Debug        bool     `yaml:"debug"`
	AllowExt     []string `yaml:"allow_ext"`
	CheckJS      bool     `yaml:"check_js"`

	DefaultRange string `yaml:"default_range"`
	DefaultList  string `yaml:"default_list"`

	Cookie     string            `yaml:"cookie"`
	CookieFile string            `yaml:"cookie_file"`
	UserAgent  string            `yaml:"user_agent"`
	Headers    map[string]string `yaml:"headers,omitempty"`
	Auth       *fetch.Auth       `yaml:"auth,omitempty"`

	TimeoutSeconds   int          `yaml:"timeout_seconds"`
	Retries          int          `yaml:"retries"`
	// RateLimit caps page requests per second, 0 for no limit.
	RateLimit        int          `yaml:"rate_limit"`
	CloudflareBypass bool         `yaml:"cloudflare_bypass"`
	FlareSolverr     FlareSolverr `yaml:"flaresolverr"`

	SkipBroken     bool   `yaml:"skip_broken"`
	MetadataFormat string `yaml:"metadata_format"`
}

// Options are command line overrides. Zero values leave the profile value
// untouched.
type Options struct {
	IgnoreConfig     bool
	Debug            bool
	Output           string
	ImageWorkers     int
	TermWorkers      int
	KeepFolders      bool
	AllowExt         []string
	CheckJS          bool
	DefaultRange     string
	DefaultList      string
	Cookie           string
	CookieFile       string
	UserAgent        string
	Auth             *fetch.Auth
	FlareSolverr     string
	CloudflareBypass bool
	RateLimit        int
	SkipBroken       bool
	MetadataFormat   string
}

func DefaultConfig() *Config {
	return &Config{
		Output:         ".",
		ImageWorkers:   5,
		TermWorkers:    2,
		AllowExt:       []string{"jpg", "jpeg", "png", "webp"},
		TimeoutSeconds: 30,
		Retries:        3,
		FlareSolverr:   FlareSolverr{MaxTimeout: 60000},
		MetadataFormat: "yaml",
	}
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadFile reads and validates the profile at path without applying any
// overrides.
func LoadFile(path string) (*Config, error) {
	cfg, err := loadYAML(path)
	if err != nil {
		return nil, err
	}
	normalizeDefaults(cfg)

	return cfg, cfg.Validate()
}

// LoadMerged returns the active profile (or the defaults) with opts applied,
// along with a description of where it came from.
func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		return finish(DefaultConfig(), opts, "(ignored config)")
	}

	activePath, err := ActiveConfigPath()
	if err == ErrNoConfig || activePath == "" {
		return finish(DefaultConfig(), opts, "(default config in memory)\nRun `mxscraper config init` to create an actual config\n")
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := loadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	return finish(cfg, opts, activePath)
}

func finish(cfg *Config, opts Options, used string) (*Config, string, error) {
	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, used, nil
}

func mergeConfig(c *Config, o Options) {
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.ImageWorkers != 0 {
		c.ImageWorkers = o.ImageWorkers
	}
	if o.TermWorkers != 0 {
		c.TermWorkers = o.TermWorkers
	}
	if o.KeepFolders {
		c.KeepFolders = true
	}
	if o.Debug {
		c.Debug = true
	}
	if len(o.AllowExt) > 0 {
		c.AllowExt = o.AllowExt
	}
	if o.CheckJS {
		c.CheckJS = true
	}
	if o.DefaultRange != "" {
		c.DefaultRange = o.DefaultRange
	}
	if o.DefaultList != "" {
		c.DefaultList = o.DefaultList
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if o.Auth != nil {
		c.Auth = o.Auth
	}
	if o.FlareSolverr != "" {
		c.FlareSolverr.Endpoint = o.FlareSolverr
	}
	if o.CloudflareBypass {
		c.CloudflareBypass = true
	}
	if o.RateLimit != 0 {
		c.RateLimit = o.RateLimit
	}
	if o.SkipBroken {
		c.SkipBroken = true
	}
	if o.MetadataFormat != "" {
		c.MetadataFormat = o.MetadataFormat
	}
}

func normalizeDefaults(c *Config) {
	if c.Output == "" {
		c.Output = "."
	}
	if c.ImageWorkers == 0 {
		c.ImageWorkers = 5
	}
	if c.TermWorkers == 0 {
		c.TermWorkers = 2
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 30
	}
	if c.Retries == 0 {
		c.Retries = 3
	}
	if c.FlareSolverr.MaxTimeout == 0 {
		c.FlareSolverr.MaxTimeout = 60000
	}
	if c.MetadataFormat == "" {
		c.MetadataFormat = "yaml"
	}
	c.MetadataFormat = strings.ToLower(c.MetadataFormat)
}

func (c *Config) Validate() error {
	if c.ImageWorkers < 0 || c.TermWorkers < 0 {
		return fmt.Errorf("worker counts must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	switch c.MetadataFormat {
	case "yaml", "json":
	default:
		return fmt.Errorf("metadata_format must be yaml or json, got %q", c.MetadataFormat)
	}
	if c.Auth != nil {
		switch c.Auth.Kind {
		case fetch.AuthBasic, fetch.AuthBearer:
		default:
			return fmt.Errorf("auth kind must be basic or bearer, got %q", c.Auth.Kind)
		}
	}

	return nil
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// FetchContext is the request decoration every fetch of this run carries.
// Cookies are handled by the HTTP client itself.
func (c *Config) FetchContext() *fetch.Context {
	fc := &fetch.Context{
		UserAgent: c.UserAgent,
		Headers:   map[string]string{},
	}
	for k, v := range c.Headers {
		fc.Headers[k] = v
	}
	if c.Auth != nil {
		a := *c.Auth
		fc.Auth = &a
	}

	return fc
}

func (c *Config) Print() {
	c.Fprint(os.Stdout)
}

func (c *Config) Fprint(w io.Writer) {
	if c.Output != "" {
		_, _ = fmt.Fprintf(w, " -output: %s\n", c.Output)
	}
	_, _ = fmt.Fprintf(w, " -image_workers: %d\n", c.ImageWorkers)
	_, _ = fmt.Fprintf(w, " -term_workers: %d\n", c.TermWorkers)
	if c.KeepFolders {
		_, _ = fmt.Fprintf(w, " -keep_folders: %t\n", c.KeepFolders)
	}
	if c.Debug {
		_, _ = fmt.Fprintf(w, " -debug: %t\n", c.Debug)
	}
	if c.CheckJS {
		_, _ = fmt.Fprintf(w, " -check_js: %t\n", c.CheckJS)
	}
	if c.DefaultRange != "" {
		_, _ = fmt.Fprintf(w, " -range: %s\n", c.DefaultRange)
	}
	if c.DefaultList != "" {
		_, _ = fmt.Fprintf(w, " -list: %s\n", c.DefaultList)
	}
	if c.CookieFile != "" {
		_, _ = fmt.Fprintf(w, " -cookie_file: %s\n", c.CookieFile)
	}
	if len(c.Headers) > 0 {
		keys := make([]string, 0, len(c.Headers))
		for k := range c.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		_, _ = fmt.Fprintf(w, " -headers: %s\n", strings.Join(keys, ", "))
	}
	if c.Auth != nil {
		_, _ = fmt.Fprintf(w, " -auth: %s\n", c.Auth.Kind)
	}
	_, _ = fmt.Fprintf(w, " -timeout_seconds: %d\n", c.TimeoutSeconds)
	_, _ = fmt.Fprintf(w, " -retries: %d\n", c.Retries)
	if c.RateLimit > 0 {
		_, _ = fmt.Fprintf(w, " -rate_limit: %d/s\n", c.RateLimit)
	}
	if c.CloudflareBypass {
		_, _ = fmt.Fprintf(w, " -cloudflare_bypass: %t\n", c.CloudflareBypass)
	}
	if c.FlareSolverr.Endpoint != "" {
		_, _ = fmt.Fprintf(w, " -flaresolverr: %s (max_timeout %dms)\n", c.FlareSolverr.Endpoint, c.FlareSolverr.MaxTimeout)
	}
	if c.SkipBroken {
		_, _ = fmt.Fprintf(w, " -skip_broken: %t\n", c.SkipBroken)
	}
	if len(c.AllowExt) > 0 {
		_, _ = fmt.Fprintf(w, " -allow_ext: %s\n", strings.Join(c.AllowExt, ", "))
	}
	_, _ = fmt.Fprintf(w, " -metadata_format: %s\n", c.MetadataFormat)
}
