package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pinscraper/pkg/config"
	errs "pinscraper/pkg/errors"
	"pinscraper/pkg/logger"
	"pinscraper/pkg/retry"
)

// DefaultAccept is the Accept header a desktop browser sends for documents
const DefaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// Options configures the session-level transport
type Options struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int
	// BackoffFactor in seconds; retry i (0-indexed) waits BackoffFactor * 2^i
	BackoffFactor float64
	// MaxBackoff caps computed delays; Retry-After is never capped
	MaxBackoff time.Duration
	// UserAgent and AcceptLanguage are sent with every request
	UserAgent      string
	AcceptLanguage string
	// Timeout bounds each attempt separately; zero disables it
	Timeout time.Duration
	// Transport is the base RoundTripper; defaults to a tuned *http.Transport
	Transport http.RoundTripper
	// Sleep waits between attempts; defaults to retry.Wait
	Sleep retry.SleepFunc
}

// DefaultOptions returns the session policy used when nothing is configured
func DefaultOptions() Options {
	return Options{
		MaxRetries:     5,
		BackoffFactor:  1.0,
		MaxBackoff:     120 * time.Second,
		UserAgent:      config.DefaultUserAgent,
		AcceptLanguage: config.DefaultAcceptLanguage,
		Timeout:        20 * time.Second,
	}
}

// OptionsFromConfig derives transport options from the loaded configuration
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.MaxRetries = cfg.HTTP.MaxRetries
	opts.BackoffFactor = cfg.HTTP.BackoffFactor
	opts.Timeout = cfg.HTTP.Timeout
	opts.UserAgent = cfg.Pinterest.UserAgent
	opts.AcceptLanguage = cfg.Pinterest.AcceptLanguage
	return opts
}

// Client is an HTTP client with retry policy and browser-like headers. It is
// safe for concurrent use and is shared by every component of a run.
type Client struct {
	httpClient *http.Client
	logger     logger.Logger
}

// New creates a client from opts
func New(opts Options, log logger.Logger) *Client {
	log = logger.OrNop(log)

	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.UserAgent == "" {
		opts.UserAgent = config.DefaultUserAgent
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = config.DefaultAcceptLanguage
	}
	base := opts.Transport
	if base == nil {
		base = defaultTransport()
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = retry.Wait
	}

	headers := http.Header{}
	headers.Set("User-Agent", opts.UserAgent)
	headers.Set("Accept-Language", opts.AcceptLanguage)
	headers.Set("Accept", DefaultAccept)
	headers.Set("Connection", "keep-alive")

	backoff := retry.FactorBackoff(opts.BackoffFactor)
	backoff.MaxDelay = opts.MaxBackoff

	rt := &headerTransport{
		headers: headers,
		base: &retryTransport{
			base:       base,
			maxRetries: opts.MaxRetries,
			backoff:    backoff,
			timeout:    opts.Timeout,
			sleep:      sleep,
			now:        time.Now,
			logger:     log,
		},
	}

	return &Client{
		httpClient: &http.Client{Transport: rt},
		logger:     log,
	}
}

// Do sends req. Transport failures are returned as errs.ErrorTypeTransport;
// non-2xx responses are returned without error.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Transport(err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// Get performs a GET request to the specified URL
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.Do(req)
}
