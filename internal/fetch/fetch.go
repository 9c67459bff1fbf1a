// Package fetch is the network boundary used by providers: it retrieves the
// raw bytes behind a URL, either directly over HTTP or through a FlareSolverr
// instance.
package fetch

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Fetcher retrieves the body of url. payload is an opaque per-call value
// supplied by the caller; implementations may understand some payload types
// (see Context) and must ignore the others.
type Fetcher interface {
	Fetch(ctx context.Context, url string, payload any) ([]byte, error)
}

// Error is a transport failure. Status is zero when no response was received.
type Error struct {
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("fetch %s: HTTP %d: %v", e.URL, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Status)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

type AuthKind string

const (
	AuthBasic  AuthKind = "basic"
	AuthBearer AuthKind = "bearer"
)

type Auth struct {
	Kind     AuthKind `yaml:"kind" json:"kind"`
	User     string   `yaml:"user,omitempty" json:"user,omitempty"`
	Password string   `yaml:"password,omitempty" json:"password,omitempty"`
	Token    string   `yaml:"token,omitempty" json:"token,omitempty"`
}

// Header renders the Authorization header value.
func (a Auth) Header() string {
	switch a.Kind {
	case AuthBasic:
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(a.User+":"+a.Password))
	case AuthBearer:
		return "Bearer " + strings.TrimPrefix(a.Token, "Bearer ")
	default:
		return ""
	}
}

// Context is the request decoration understood by the fetchers of this
// package when passed as payload.
type Context struct {
	UserAgent string            `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	Cookies   map[string]string `yaml:"cookies,omitempty" json:"cookies,omitempty"`
	Auth      *Auth             `yaml:"auth,omitempty" json:"auth,omitempty"`
}

// Merge returns a copy of base overridden by over. Headers and cookies are
// merged key by key; nil arguments are allowed.
func Merge(base, over *Context) *Context {
	out := &Context{
		Headers: map[string]string{},
		Cookies: map[string]string{},
	}

	for _, c := range []*Context{base, over} {
		if c == nil {
			continue
		}
		if c.UserAgent != "" {
			out.UserAgent = c.UserAgent
		}
		for k, v := range c.Headers {
			out.Headers[k] = v
		}
		for k, v := range c.Cookies {
			out.Cookies[k] = v
		}
		if c.Auth != nil {
			a := *c.Auth
			out.Auth = &a
		}
	}

	return out
}

// CookieHeader renders the cookies as a Cookie header value.
func (c *Context) CookieHeader() string {
	if c == nil || len(c.Cookies) == 0 {
		return ""
	}

	parts := make([]string, 0, len(c.Cookies))
	for _, k := range sortedKeys(c.Cookies) {
		parts = append(parts, k+"="+c.Cookies[k])
	}

	return strings.Join(parts, "; ")
}

// Apply sets the context's headers on req.
func (c *Context) Apply(req *http.Request) {
	if c == nil {
		return
	}

	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if ck := c.CookieHeader(); ck != "" {
		req.Header.Set("Cookie", ck)
	}
	if c.Auth != nil {
		if h := c.Auth.Header(); h != "" {
			req.Header.Set("Authorization", h)
		}
	}
}

func contextFrom(payload any) *Context {
	switch p := payload.(type) {
	case *Context:
		return p
	case Context:
		return &p
	default:
		return nil
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
