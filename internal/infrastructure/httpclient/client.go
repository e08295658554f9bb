// Package httpclient is the retrying HTTP layer shared by the scraper and
// the geocoders. It does not log; callers decide what to report.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

// Options configures retries and defaults applied to every request.
type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
	UserAgent   string
	Timeout     time.Duration
}

// DefaultOptions mirrors the scrape target's tolerated request profile.
var DefaultOptions = Options{
	MaxAttempts: 3,
	BaseDelay:   time.Second,
	MaxDelay:    10 * time.Second,
	UserAgent:   defaultUserAgent,
	Timeout:     60 * time.Second,
}

// Request is a single logical call; retries reuse it verbatim.
type Request struct {
	Method             string
	URL                string
	Form               url.Values
	Query              url.Values
	Header             http.Header
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Response is a fully read 2xx response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

// Client executes requests with capped exponential backoff. Both transports
// share one cookie jar so the source sees a single session.
type Client struct {
	opts     Options
	secure   *http.Client
	insecure *http.Client
	sleep    func(ctx context.Context, d time.Duration) error
}

// New builds a client; zero option fields fall back to DefaultOptions.
func New(opts Options) *Client {
	opts = withDefaults(opts)

	jar, _ := cookiejar.New(nil)

	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		base = &http.Transport{Proxy: http.ProxyFromEnvironment}
	}
	secureTransport := base.Clone()
	insecureTransport := base.Clone()
	insecureTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	return &Client{
		opts:     opts,
		secure:   &http.Client{Jar: jar, Transport: otelhttp.NewTransport(secureTransport)},
		insecure: &http.Client{Jar: jar, Transport: otelhttp.NewTransport(insecureTransport)},
		sleep:    sleepContext,
	}
}

func withDefaults(opts Options) Options {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultOptions.MaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultOptions.BaseDelay
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = DefaultOptions.MaxDelay
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultOptions.UserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions.Timeout
	}
	return opts
}

// Execute runs req until it gets a 2xx response or attempts run out.
// The last failure is returned as *TransportError or *HTTPStatusError.
func (c *Client) Execute(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
		if req.Form != nil {
			req.Method = http.MethodPost
		}
	}

	var lastErr error
	wait := c.opts.BaseDelay
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		resp, err := c.do(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, lastErr
		}
		if attempt == c.opts.MaxAttempts {
			break
		}

		if err := c.sleep(ctx, c.backoff(wait)); err != nil {
			return nil, lastErr
		}
		wait *= 2
		if wait > c.opts.MaxDelay {
			wait = c.opts.MaxDelay
		}
	}
	return nil, lastErr
}

func (c *Client) backoff(wait time.Duration) time.Duration {
	d := wait
	if c.opts.Jitter {
		d = time.Duration(float64(wait) * (0.5 + rand.Float64()))
	}
	if d > c.opts.MaxDelay {
		d = c.opts.MaxDelay
	}
	return d
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.opts.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := req.URL
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Query.Encode()
	}

	var body io.Reader
	if req.Form != nil {
		body = strings.NewReader(req.Form.Encode())
	}

	shown := redact(target)

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: shown, Err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("User-Agent", c.opts.UserAgent)
	if req.Form != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	client := c.secure
	if req.InsecureSkipVerify {
		client = c.insecure
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = shown
		}
		return nil, &TransportError{Method: req.Method, URL: shown, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: shown, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPStatusError{
			Method:     req.Method,
			URL:        shown,
			StatusCode: resp.StatusCode,
			Body:       string(truncate(payload, 512)),
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       payload,
		URL:        shown,
	}, nil
}

// redact masks credential query parameters so URLs are safe to log.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	changed := false
	for key := range q {
		switch strings.ToLower(key) {
		case "apikey", "key", "token", "access_token":
			q.Set(key, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Reader returns the body as an io.Reader.
func (r *Response) Reader() io.Reader {
	return bytes.NewReader(r.Body)
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
