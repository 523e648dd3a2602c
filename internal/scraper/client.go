// internal/scraper/client.go
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// Fetch errors
var (
	ErrInvalidURL   = errors.New("url must be absolute http or https")
	ErrBodyTooLarge = errors.New("response body exceeds limit")
	ErrHTTPStatus   = errors.New("unexpected status")
)

// Fetcher retrieves one page. Implementations must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, targetURL string) (*Page, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, targetURL string) (*Page, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, targetURL string) (*Page, error) {
	return f(ctx, targetURL)
}

// HTTPClient is the production Fetcher: a single GET per call with a
// per-request timeout, optional rate limiting and user agent rotation.
// There are no retries.
type HTTPClient struct {
	httpClient   *http.Client
	userAgents   []string
	currentUA    int
	uaMutex      sync.Mutex
	rateLimiter  *rate.Limiter
	headers      map[string]string
	maxBodyBytes int64
}

// ClientConfig defines configuration options for the HTTP client.
type ClientConfig struct {
	Timeout      time.Duration
	UserAgents   []string
	Headers      map[string]string
	RateLimit    float64 // requests per second, 0 disables limiting
	RateBurst    int
	MaxBodyBytes int64 // 0 disables the limit
	Transport    http.RoundTripper
}

// DefaultTimeout applies when ClientConfig.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// NewHTTPClient creates a new HTTP client with the specified configuration.
func NewHTTPClient(config ClientConfig) *HTTPClient {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.RateBurst <= 0 {
		config.RateBurst = 1
	}
	if len(config.UserAgents) == 0 {
		config.UserAgents = getDefaultUserAgents()
	}
	transport := config.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		}
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst)
	}

	return &HTTPClient{
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		userAgents:   config.UserAgents,
		rateLimiter:  limiter,
		headers:      config.Headers,
		maxBodyBytes: config.MaxBodyBytes,
	}
}

// Fetch performs a GET and returns the decoded body. Any failure, including
// a non-2xx status, is returned as a *FetchError.
func (c *HTTPClient) Fetch(ctx context.Context, targetURL string) (*Page, error) {
	if err := validateURL(targetURL); err != nil {
		return nil, &FetchError{URL: targetURL, Err: err}
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, &FetchError{URL: targetURL, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, &FetchError{URL: targetURL, Err: err}
	}
	c.setRequestHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: targetURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return nil, &FetchError{
			URL:        targetURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status),
		}
	}

	body, err := c.readBody(resp)
	if err != nil {
		return nil, &FetchError{URL: targetURL, StatusCode: resp.StatusCode, Err: err}
	}

	// Relative links on the page resolve against where it was served from.
	finalURL := targetURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Page{
		URL:         finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Duration:    time.Since(start),
	}, nil
}

// readBody applies the size limit and converts the body to UTF-8 using the
// declared or sniffed charset.
func (c *HTTPClient) readBody(resp *http.Response) (string, error) {
	var r io.Reader = resp.Body
	if c.maxBodyBytes > 0 {
		r = io.LimitReader(resp.Body, c.maxBodyBytes+1)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if c.maxBodyBytes > 0 && int64(len(raw)) > c.maxBodyBytes {
		return "", fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, c.maxBodyBytes)
	}

	decoded, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		// Unknown charset: fall back to the raw bytes.
		return string(raw), nil
	}
	text, err := io.ReadAll(decoded)
	if err != nil {
		return string(raw), nil
	}
	return string(text), nil
}

// setRequestHeaders configures request headers including user agent rotation.
func (c *HTTPClient) setRequestHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.getNextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
}

// getNextUserAgent returns the next user agent in rotation.
func (c *HTTPClient) getNextUserAgent() string {
	c.uaMutex.Lock()
	defer c.uaMutex.Unlock()

	userAgent := c.userAgents[c.currentUA]
	c.currentUA = (c.currentUA + 1) % len(c.userAgents)
	return userAgent
}

func validateURL(targetURL string) error {
	if targetURL == "" {
		return ErrEmptyURL
	}
	u, err := url.Parse(targetURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

// getDefaultUserAgents returns a set of realistic user agent strings.
func getDefaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	}
}
