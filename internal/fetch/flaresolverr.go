package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// FlareSolverr resolves pages through a FlareSolverr endpoint, which renders
// them in a real browser and hands back the final HTML.
type FlareSolverr struct {
	Endpoint          string
	MaxTimeout        int
	SessionTTLMinutes int

	client   *http.Client
	defaults *Context
}

func NewFlareSolverr(endpoint string, maxTimeout int, c *http.Client, defaults *Context) *FlareSolverr {
	if c == nil {
		c = http.DefaultClient
	}

	return &FlareSolverr{
		Endpoint:   endpoint,
		MaxTimeout: maxTimeout,
		client:     c,
		defaults:   defaults,
	}
}

type flareRequest struct {
	Cmd               string            `json:"cmd"`
	URL               string            `json:"url"`
	MaxTimeout        int               `json:"maxTimeout,omitempty"`
	SessionTTLMinutes int               `json:"session_ttl_minutes,omitempty"`
	Headers           map[string]string `json:"headers,omitempty"`
	Cookies           []flareCookie     `json:"cookies,omitempty"`
}

type flareCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type flareResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Solution struct {
		URL       string `json:"url"`
		Status    int    `json:"status"`
		Response  string `json:"response"`
		UserAgent string `json:"userAgent"`
	} `json:"solution"`
}

func (f *FlareSolverr) payload(target string, c *Context) flareRequest {
	p := flareRequest{
		Cmd:               "request.get",
		URL:               target,
		MaxTimeout:        f.MaxTimeout,
		SessionTTLMinutes: f.SessionTTLMinutes,
	}

	if len(c.Headers) > 0 || c.Auth != nil {
		p.Headers = map[string]string{}
		for k, v := range c.Headers {
			p.Headers[k] = v
		}
		if c.Auth != nil {
			if h := c.Auth.Header(); h != "" {
				p.Headers["Authorization"] = h
			}
		}
	}

	for _, k := range sortedKeys(c.Cookies) {
		p.Cookies = append(p.Cookies, flareCookie{Name: k, Value: c.Cookies[k]})
	}

	return p
}

func (f *FlareSolverr) Fetch(ctx context.Context, target string, payload any) ([]byte, error) {
	body, err := json.Marshal(f.payload(target, Merge(f.defaults, contextFrom(payload))))
	if err != nil {
		return nil, &Error{URL: target, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{URL: target, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{URL: target, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{URL: target, Err: fmt.Errorf("read flaresolverr response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{URL: target, Status: resp.StatusCode, Err: fmt.Errorf("flaresolverr: %s", bytes.TrimSpace(raw))}
	}

	var out flareResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &Error{URL: target, Err: fmt.Errorf("parse flaresolverr response: %w", err)}
	}

	if out.Solution.Status != http.StatusOK {
		return nil, &Error{URL: target, Status: out.Solution.Status, Err: fmt.Errorf("flaresolverr %s: %s", out.Status, out.Message)}
	}

	return []byte(out.Solution.Response), nil
}
