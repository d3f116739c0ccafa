package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"nekodl/pkg/config"
	errs "nekodl/pkg/errors"
	"nekodl/pkg/logger"
	"nekodl/pkg/retry"
)

// Client is the shared HTTP request gateway
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	cfg        config.GatewayConfig
	logger     logger.Logger

	probeDelay     time.Duration
	transientDelay time.Duration

	closeOnce sync.Once
	closed    bool
	mu        sync.Mutex
}

// NewClient creates a gateway client from configuration
func NewClient(cfg config.GatewayConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = config.DefaultUserAgent
	}

	// Only the wait for response headers is bounded here. Downloads stream
	// bodies of any size; API calls get a per-attempt deadline in Request.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout

	return &Client{
		httpClient: &http.Client{Transport: transport},
		headers: map[string]string{
			"User-Agent": cfg.UserAgent,
			"Accept":     "*/*",
		},
		cfg:            cfg,
		logger:         log.WithField("component", "gateway"),
		probeDelay:     DefaultProbeDelay,
		transientDelay: DefaultTransientDelay,
	}
}

// SetHeader sets a default header sent with every request
func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers[key] = value
}

// SetHTTPClient replaces the underlying HTTP client
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// HTTPClient returns the underlying HTTP client
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Close releases idle connections. It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.httpClient.CloseIdleConnections()
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.logger.Debug("gateway closed")
	})
	return nil
}

// Closed reports whether Close has run
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// doRequest performs an HTTP request with the default headers. Headers
// already present on req take precedence.
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	for key, value := range c.headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}
	c.mu.Unlock()

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "%s %s", req.Method, req.URL.Redacted())
	}

	logger.LogRequest(req.Method, req.URL.String(), resp.StatusCode, duration)
	return resp, nil
}

// Do issues a raw request. The caller owns the response body.
func (c *Client) Do(ctx context.Context, method, rawURL string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	return c.doRequest(req)
}

// Get issues a raw GET request
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, rawURL, header)
}

// Head issues a HEAD request and returns the response with its body closed
func (c *Client) Head(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	resp, err := c.Do(ctx, http.MethodHead, rawURL, header)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	return resp, nil
}

// Probe retry settings used by Exists
const (
	DefaultProbeDelay    = 1500 * time.Millisecond
	DefaultProbeAttempts = 5
)

// Transient retry settings used by Request for network errors and raised
// 5xx responses
const (
	DefaultTransientDelay    = 500 * time.Millisecond
	DefaultTransientAttempts = 3
)

// SetTransientDelay changes the base delay between transient retries
func (c *Client) SetTransientDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transientDelay = d
}

// SetProbeDelay changes the delay between Exists attempts
func (c *Client) SetProbeDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probeDelay = d
}

// Exists reports whether rawURL answers a HEAD request with anything other
// than 404. Network errors are retried with a constant delay.
func (c *Client) Exists(ctx context.Context, rawURL string, header http.Header) (bool, error) {
	c.mu.Lock()
	delay := c.probeDelay
	c.mu.Unlock()

	cfg := &retry.Config{
		MaxAttempts: DefaultProbeAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: delay},
		RetryIf: func(err error) bool {
			return errs.IsType(err, errs.ErrorTypeNetwork)
		},
	}
	return retry.DoWithResult(ctx, func() (bool, error) {
		resp, err := c.Head(ctx, rawURL, header)
		if err != nil {
			return false, err
		}
		return resp.StatusCode != http.StatusNotFound, nil
	}, cfg)
}

// rateLimitedError is returned for a 429 response and carries the delay
// requested by the server
type rateLimitedError struct {
	err   *errs.Error
	after time.Duration
}

func (e *rateLimitedError) Error() string             { return e.err.Error() }
func (e *rateLimitedError) Unwrap() error             { return e.err }
func (e *rateLimitedError) RetryAfter() time.Duration { return e.after }

// Request performs an API call and returns the raw JSON body.
//
// Network errors, timeouts and raised 5xx responses are retried
// DefaultTransientAttempts times with exponential backoff. 429 responses
// are retried separately, honouring Retry-After.
//
// A nil result with a nil error means the upstream answered with a non-200
// status and RaiseOnError was not requested.
func (c *Client) Request(ctx context.Context, rawURL string, opts ...Option) (json.RawMessage, error) {
	o := newRequestOptions(opts)

	target, err := o.buildURL(rawURL)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	base := c.transientDelay
	c.mu.Unlock()

	cfg := &retry.Config{
		MaxAttempts: DefaultTransientAttempts,
		Backoff: &retry.ExponentialBackoff{
			BaseDelay:    base,
			MaxDelay:     8 * base,
			Multiplier:   2,
			JitterFactor: 0.1,
		},
		RetryIf: func(err error) bool {
			if ctx.Err() != nil {
				return false
			}
			return errs.IsType(err, errs.ErrorTypeNetwork) || errs.IsType(err, errs.ErrorTypeServerError)
		},
		OnRetry: func(attempt int, err error, delay time.Duration) {
			c.logger.DebugWithFields("retrying request", map[string]interface{}{
				"url":     target,
				"attempt": attempt,
				"error":   err.Error(),
				"delay":   delay,
			})
		},
	}
	return retry.DoWithResult(ctx, func() (json.RawMessage, error) {
		return c.requestRateLimited(ctx, target, o)
	}, cfg)
}

// requestRateLimited performs one request, waiting out 429 responses
func (c *Client) requestRateLimited(ctx context.Context, target string, o *requestOptions) (json.RawMessage, error) {
	var result json.RawMessage
	cfg := &retry.Config{
		MaxAttempts: c.cfg.MaxRateLimitRetries + 1,
		Backoff:     &retry.ConstantBackoff{Delay: c.cfg.DefaultRetryAfter},
		MaxDelay:    c.cfg.MaxRetryAfter,
		RetryIf: func(err error) bool {
			var rl *rateLimitedError
			return errors.As(err, &rl)
		},
		OnRetry: func(attempt int, _ error, delay time.Duration) {
			logger.LogRateLimit(target, delay, attempt)
		},
	}

	err := retry.Do(ctx, func() error {
		var opErr error
		result, opErr = c.requestOnce(ctx, target, o)
		return opErr
	}, cfg)

	if errors.Is(err, retry.ErrMaxAttempts) {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeRateLimit,
			Code:    http.StatusTooManyRequests,
			Message: fmt.Sprintf("still rate limited after %d attempts: %s", cfg.MaxAttempts, target),
		}
	}
	return result, err
}

// RequestJSON performs an API call and decodes the body into target.
// target is left untouched when the upstream returned a non-200 status.
func (c *Client) RequestJSON(ctx context.Context, rawURL string, target interface{}, opts ...Option) error {
	raw, err := c.Request(ctx, rawURL, opts...)
	if err != nil || raw == nil {
		return err
	}

	if err := json.Unmarshal(raw, target); err != nil {
		preview := string(raw)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.DebugWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          rawURL,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errs.Wrap(errs.ErrorTypeParsing, err, "decoding response from %s", rawURL)
	}
	return nil
}

func (c *Client) requestOnce(parent context.Context, target string, o *requestOptions) (json.RawMessage, error) {
	ctx, cancel := parent, context.CancelFunc(func() {})
	if c.cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, c.cfg.Timeout)
	}
	defer cancel()

	var body io.Reader
	if o.body != nil {
		payload, err := json.Marshal(o.body)
		if err != nil {
			return nil, errs.Wrap(errs.ErrorTypeParsing, err, "encoding request body")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, o.method, target, body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}
	for key, values := range o.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if o.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if o.basicAuth {
		req.SetBasicAuth(o.username, o.password)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, timedOut(parent, err, c.cfg.Timeout, target)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		after := c.retryAfter(resp.Header.Get("Retry-After"))
		return nil, &rateLimitedError{
			err: &errs.Error{Type: errs.ErrorTypeRateLimit, Code: resp.StatusCode, Message: "rate limit exceeded"},
			after: after,
		}
	case resp.StatusCode != http.StatusOK:
		c.logger.WarnWithFields("unexpected response status", map[string]interface{}{
			"method": o.method,
			"url":    target,
			"status": resp.StatusCode,
		})
		if o.raise {
			return nil, errs.FromStatus(resp.StatusCode, target)
		}
		return nil, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if parent.Err() != nil {
			return nil, parent.Err()
		}
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "reading response body")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return json.RawMessage(data), nil
}

// timedOut turns an expired per-attempt deadline into a network error so
// it is retried like any other dropped connection
func timedOut(parent context.Context, err error, timeout time.Duration, target string) error {
	if parent.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.ErrorTypeNetwork, err, "no response within %s: %s", timeout, target)
	}
	return err
}

// retryAfter parses a Retry-After header value, falling back to the
// configured default when it is absent or malformed
func (c *Client) retryAfter(value string) time.Duration {
	return ParseRetryAfter(value, c.cfg.DefaultRetryAfter, time.Now())
}

// ParseRetryAfter interprets a Retry-After header given either as delay
// seconds or as an HTTP date
func ParseRetryAfter(value string, def time.Duration, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return def
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return def
}

// Join appends a route to a base URL
func Join(base, route string) string {
	if route == "" {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(route, "/")
}

func (o *requestOptions) buildURL(rawURL string) (string, error) {
	if len(o.params) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeUnknown, err, "invalid url %q", rawURL)
	}
	q := u.Query()
	for key, values := range o.params {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
