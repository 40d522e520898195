package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	nethttp "net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/andresharpe/cute-sub002/internal/config"
	"github.com/andresharpe/cute-sub002/internal/constants"
	inthttp "github.com/andresharpe/cute-sub002/internal/http"
)

const contentTypeJSON = "application/vnd.contentful.management.v1+json"

// retryLogger adapts zerolog to retryablehttp.LeveledLogger.
type retryLogger struct {
	log zerolog.Logger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Trace().Fields(keysAndValues).Msg(msg)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}

// RequestObserver is told about every completed HTTP exchange.
type RequestObserver func(method string, status int, elapsed time.Duration)

// Option customises a Client.
type Option func(*Client)

// WithLogger sets the logger used for throttling and request tracing.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithHTTPClient replaces the proxy-aware client built from config.
func WithHTTPClient(hc *nethttp.Client) Option {
	return func(c *Client) { c.retry.HTTPClient = hc }
}

// WithRequestObserver registers fn for every HTTP exchange.
func WithRequestObserver(fn RequestObserver) Option {
	return func(c *Client) { c.observe = fn }
}

// WithThrottleRetries overrides how often a 429 is retried inside the client.
func WithThrottleRetries(n int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.retry.RetryMax = n
		c.retry.RetryWaitMin = waitMin
		c.retry.RetryWaitMax = waitMax
	}
}

// Client talks to one space environment of the management API.
type Client struct {
	retry   *retryablehttp.Client
	baseURL string
	apiKey  string
	space   string
	env     string
	locale  string
	log     zerolog.Logger
	observe RequestObserver
}

// NewClient creates a client from cfg. Transport-level retries are limited to
// throttling responses; every other retry is left to the caller's rate limiter
// so one budget governs all traffic.
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrEmptyBaseURL
	}

	httpClient, err := inthttp.NewAPIClient(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to configure HTTP client")
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = constants.ThrottleMaxRetries
	retryClient.RetryWaitMin = constants.RetryInitialDelay
	retryClient.RetryWaitMax = constants.RetryMaxDelay
	retryClient.CheckRetry = checkThrottle
	retryClient.Backoff = throttleBackoff
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		retry:   retryClient,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		space:   cfg.SpaceID,
		env:     cfg.Environment,
		locale:  cfg.DefaultLocale,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retry.Logger = retryLogger{log: c.log}
	if c.locale == "" {
		c.locale = config.DefaultLocale
	}
	return c, nil
}

// checkThrottle retries only 429 responses.
func checkThrottle(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil || resp == nil {
		return false, nil
	}
	return resp.StatusCode == nethttp.StatusTooManyRequests, nil
}

// throttleBackoff honours the server's reset hint, falling back to jittered
// exponential backoff.
func throttleBackoff(min, max time.Duration, attemptNum int, resp *nethttp.Response) time.Duration {
	if resp != nil {
		for _, h := range []string{"X-Contentful-RateLimit-Reset", "Retry-After"} {
			if v := resp.Header.Get(h); v != "" {
				if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
					d := time.Duration(secs) * time.Second
					if d > max {
						d = max
					}
					return d
				}
			}
		}
	}
	if d := inthttp.CalculateBackoff(attemptNum+1, min, max); d > min {
		return d
	}
	return min
}

// envPath returns the environment-scoped path for the given suffix.
func (c *Client) envPath(suffix string) string {
	return "/spaces/" + c.space + "/environments/" + c.env + suffix
}

// do sends one request. body is JSON encoded when non-nil; out is decoded
// from a 2xx response when non-nil.
func (c *Client) do(ctx context.Context, method, path string, header nethttp.Header, body, out interface{}) error {
	var reqBody []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request body")
		}
		reqBody = data
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, bytesOrNil(reqBody))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.retry.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).
			Str("class", inthttp.ErrorTypeName(inthttp.ClassifyError(err))).Msg("request failed")
		if c.observe != nil {
			c.observe(method, 0, time.Since(start))
		}
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if c.observe != nil {
		c.observe(method, resp.StatusCode, time.Since(start))
	}
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).Msg("request")

	if resp.StatusCode == nethttp.StatusTooManyRequests {
		c.log.Warn().Str("method", method).Str("path", path).
			Str("reset", resp.Header.Get("X-Contentful-RateLimit-Reset")).
			Msg("throttled by the API")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return newStatusError(method, path, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode %s %s", method, path)
	}
	return nil
}

func bytesOrNil(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return bytes.NewReader(b)
}
