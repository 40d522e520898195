// Package ratelimit provides the shared outbound call gate for the content management API.
package ratelimit

import "time"

// Content Management API Throttle Limits
//
// The management API enforces its rate limit per access token, account-wide.
// Every request counts against the same budget no matter which endpoint it hits,
// so all outbound calls in the process share one Limiter.

// Base rate limits
const (
	// DefaultPermits is the number of calls allowed in flight at once.
	// Matches the management API's default of 7 requests per second.
	DefaultPermits = 7

	// DefaultWindow is the length of the rolling window the budget applies to.
	DefaultWindow = time.Second

	// DefaultRetryLimit is how many times a failed call is retried before
	// the limiter gives up and returns a RetryExhaustedError.
	DefaultRetryLimit = 10
)

// Budget defaults to the permit count: with N calls in flight and N calls per
// window, a full set of permits can drain the window exactly once.
//
// The pacing interval is Window / Budget (about 143ms at the defaults). It is
// waited before every call and again before every retry so calls spread evenly
// across the window instead of bursting at its start.
