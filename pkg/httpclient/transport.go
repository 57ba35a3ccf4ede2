package httpclient

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	errs "pinscraper/pkg/errors"
	"pinscraper/pkg/logger"
	"pinscraper/pkg/retry"
)

// maxDrainBytes bounds how much of a discarded response body is read so the
// connection can be reused.
const maxDrainBytes = 64 << 10

// defaultTransport returns a transport with sane timeouts and connection limits.
func defaultTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// headerTransport applies the browser-like header set to requests that do
// not already carry those headers.
type headerTransport struct {
	base    http.RoundTripper
	headers http.Header
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for key, values := range t.headers {
		if r.Header.Get(key) == "" {
			r.Header[key] = append([]string(nil), values...)
		}
	}
	return t.base.RoundTrip(r)
}

// retryTransport retries idempotent requests on connection errors and on
// the statuses accepted by errs.IsRetryableStatusCode. The final response is
// returned as-is whatever its status.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    retry.BackoffStrategy
	timeout    time.Duration
	sleep      retry.SleepFunc
	now        func() time.Time
	logger     logger.Logger
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !retryable(req) || noRetry(req.Context()) {
		return t.attempt(req)
	}

	ctx := req.Context()
	for i := 0; ; i++ {
		resp, err := t.attempt(req)
		if i >= t.maxRetries {
			return resp, err
		}

		var delay time.Duration
		fields := map[string]interface{}{
			"method":  req.Method,
			"url":     req.URL.String(),
			"attempt": i + 1,
		}

		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			delay = t.backoff.NextDelay(i + 1)
			fields["error"] = err.Error()
		} else {
			if !errs.IsRetryableStatusCode(resp.StatusCode) {
				return resp, nil
			}
			delay = t.backoff.NextDelay(i + 1)
			if d, ok := parseRetryAfter(resp.Header.Get("Retry-After"), t.now()); ok {
				delay = d
				fields["retry_after"] = true
			}
			fields["status"] = resp.StatusCode
			drain(resp.Body)
		}

		fields["delay_ms"] = delay.Milliseconds()
		t.logger.WarnWithFields("retrying HTTP request", fields)

		if err := t.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// attempt performs a single round trip bounded by the per-attempt timeout.
// The deadline is released when the response body is closed.
func (t *retryTransport) attempt(req *http.Request) (*http.Response, error) {
	timeout := t.timeout
	if d, ok := req.Context().Value(attemptTimeoutKey{}).(time.Duration); ok {
		timeout = d
	}
	if timeout <= 0 {
		return t.base.RoundTrip(req)
	}

	ctx, cancel := context.WithTimeout(req.Context(), timeout)
	resp, err := t.base.RoundTrip(req.Clone(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type attemptTimeoutKey struct{}

// WithAttemptTimeout overrides the client's per-attempt timeout for requests
// made with the returned context.
func WithAttemptTimeout(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, attemptTimeoutKey{}, d)
}

type noRetryKey struct{}

// WithoutRetries makes requests sent with the returned context a single
// attempt, whatever the client's retry policy.
func WithoutRetries(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRetryKey{}, true)
}

func noRetry(ctx context.Context) bool {
	v, _ := ctx.Value(noRetryKey{}).(bool)
	return v
}

func retryable(req *http.Request) bool {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return false
	}
	return req.Body == nil || req.Body == http.NoBody
}

// parseRetryAfter accepts delta-seconds or an HTTP-date.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxDrainBytes))
	_ = body.Close()
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
