package constants

import (
	"time"
)

// HTTP Client Timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (30 seconds)
	HTTPTLSHandshakeTimeout = 30 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second

	// HTTPRequestTimeout - overall timeout for a single management API request (60 seconds)
	// Bulk work is paced by the rate limiter, so no single request should run long.
	HTTPRequestTimeout = 60 * time.Second

	// MaxIdleConnsPerHost - idle connections kept to the API host.
	// Matches the default max concurrent per-entry calls.
	MaxIdleConnsPerHost = 50
)

// Throttling retries inside the HTTP client
const (
	// ThrottleMaxRetries - 429 responses retried by the HTTP client before the
	// error reaches the rate limiter's own retry loop
	ThrottleMaxRetries = 3

	// RetryInitialDelay - initial delay before first throttle retry (200ms)
	RetryInitialDelay = 200 * time.Millisecond

	// RetryMaxDelay - maximum delay between throttle retries (15s)
	// Exponential backoff with jitter caps at this value
	RetryMaxDelay = 15 * time.Second
)

// API and Context Timeouts
const (
	// APIConnectionTestTimeout - timeout for testing API connectivity (10 seconds)
	APIConnectionTestTimeout = 10 * time.Second
)

// Pagination Safety Limits
const (
	// MaxListPageSize - largest page the entries endpoint returns
	MaxListPageSize = 1000
)

// UI Updates
const (
	// ProgressRefreshInterval - refresh rate of the terminal progress bars (150ms)
	ProgressRefreshInterval = 150 * time.Millisecond
)

// Metrics
const (
	// MetricsNamespace - prefix for every exported Prometheus metric
	MetricsNamespace = "cute"

	// MetricsShutdownTimeout - grace period for the metrics listener on exit
	MetricsShutdownTimeout = 5 * time.Second
)
