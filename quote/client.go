package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultBaseURL is the forismatic API endpoint.
	DefaultBaseURL = "http://api.forismatic.com/api/1.0/"
	// DefaultRelayURL is the pass-through relay the widget has always used to reach the API.
	DefaultRelayURL = "https://pacific-cliffs-73220.herokuapp.com/"

	fixedQuery          = "method=getQuote&lang=en&format=json"
	userAgentProduct    = "quotewidget"
	userAgentVersion    = "1.0"
	defaultHTTPTimeout  = 30 * time.Second
	maxResponseBodySize = 1 << 20 // 1 MiB guard
)

// Recorder observes fetch outcomes. result is "success" or "failure".
type Recorder interface {
	ObserveFetch(result string, d time.Duration)
}

// Client fetches quotes over HTTP.
type Client struct {
	relayURL  string
	baseURL   string
	http      *http.Client
	userAgent string
	recorder  Recorder

	mu  sync.RWMutex
	key string
}

// ClientOption mutates the client during construction.
type ClientOption func(*Client)

// NewClient builds a client that talks to the API through the default relay.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		relayURL:  DefaultRelayURL,
		baseURL:   DefaultBaseURL,
		userAgent: buildDefaultUserAgent(),
		http:      &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultHTTPTimeout}
	}
	c.relayURL = strings.TrimSpace(c.relayURL)
	c.baseURL = strings.TrimSpace(c.baseURL)
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	return c
}

// WithRelayURL sets the relay prefixed to the API URL. An empty relay means direct access.
func WithRelayURL(relayURL string) ClientOption {
	return func(c *Client) { c.relayURL = relayURL }
}

// WithBaseURL overrides the API endpoint (useful for tests).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient installs a custom http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		hc := &http.Client{}
		if c.http != nil {
			copied := *c.http
			hc = &copied
		}
		hc.Timeout = d
		c.http = hc
	}
}

// WithKey sets the numeric key that influences which quote the API picks.
// Invalid keys are ignored; use SetKey to get the validation error.
func WithKey(key string) ClientOption {
	return func(c *Client) {
		if err := ValidateKey(key); err == nil {
			c.key = strings.TrimSpace(key)
		}
	}
}

// WithUserAgent sets a custom User-Agent string.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// WithRecorder reports every fetch outcome to r.
func WithRecorder(r Recorder) ClientOption {
	return func(c *Client) { c.recorder = r }
}

// SetKey updates the quote key. An empty key lets the server pick one.
func (c *Client) SetKey(key string) error {
	key = strings.TrimSpace(key)
	if err := ValidateKey(key); err != nil {
		return err
	}
	c.mu.Lock()
	c.key = key
	c.mu.Unlock()
	return nil
}

// Key returns the current quote key.
func (c *Client) Key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key
}

// ValidateKey accepts an empty key or up to six decimal digits.
func ValidateKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	if len(key) > 6 {
		return ErrInvalidKey
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return ErrInvalidKey
		}
	}
	return nil
}

// RequestURL returns the exact URL every fetch attempt requests.
func (c *Client) RequestURL() string {
	u := c.relayURL + c.baseURL
	if strings.Contains(c.baseURL, "?") {
		u += "&" + fixedQuery
	} else {
		u += "?" + fixedQuery
	}
	if key := c.Key(); key != "" {
		u += "&key=" + key
	}
	return u
}

// apiResponse is the getQuote JSON body. Other fields are ignored.
type apiResponse struct {
	QuoteText   *string `json:"quoteText"`
	QuoteAuthor string  `json:"quoteAuthor"`
}

// Fetch requests one quote. Every failure, whether transport, status or body,
// is returned as an error; callers do not need to distinguish them.
func (c *Client) Fetch(ctx context.Context) (Quote, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	q, err := c.fetch(ctx)
	if c.recorder != nil {
		result := "success"
		if err != nil {
			result = "failure"
		}
		c.recorder.ObserveFetch(result, time.Since(start))
	}
	return q, err
}

func (c *Client) fetch(ctx context.Context) (Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RequestURL(), nil)
	if err != nil {
		return Quote{}, fmt.Errorf("quote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.userAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("quote: execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return Quote{}, fmt.Errorf("quote: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Quote{}, &APIError{StatusCode: resp.StatusCode, Body: raw}
	}

	var body apiResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return Quote{}, fmt.Errorf("%w: %v", ErrMalformedQuote, err)
	}
	if body.QuoteText == nil {
		return Quote{}, fmt.Errorf("%w: missing quoteText", ErrMalformedQuote)
	}
	return Quote{Text: *body.QuoteText, Author: body.QuoteAuthor}, nil
}

func buildDefaultUserAgent() string {
	goVer := strings.TrimPrefix(runtime.Version(), "go")
	if goVer == "" {
		goVer = runtime.Version()
	}
	return fmt.Sprintf("%s/%s (Go%s; %s/%s)",
		userAgentProduct, userAgentVersion, goVer, runtime.GOOS, runtime.GOARCH)
}
