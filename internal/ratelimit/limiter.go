package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Config describes a Limiter. Zero fields take the package defaults.
type Config struct {
	Permits    int           // concurrent calls in flight
	Budget     int           // calls per window; 0 means Permits
	Window     time.Duration // rolling window length
	RetryLimit int           // retries after the first attempt
	Clock      Clock
}

// DefaultConfig returns the management API defaults.
func DefaultConfig() Config {
	return Config{
		Permits:    DefaultPermits,
		Budget:     DefaultPermits,
		Window:     DefaultWindow,
		RetryLimit: DefaultRetryLimit,
		Clock:      SystemClock{},
	}
}

func (c Config) withDefaults() Config {
	if c.Permits <= 0 {
		c.Permits = DefaultPermits
	}
	if c.Budget <= 0 {
		c.Budget = c.Permits
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	return c
}

// Limiter is the single gate for outbound calls. It bounds calls in flight
// with a semaphore, bounds calls per rolling window with a log of admission
// times, paces every call by Window/Budget and retries failures.
//
// One Limiter is built by the composition root and shared by every component
// that talks to the remote API.
type Limiter struct {
	cfg   Config
	clock Clock
	sem   *semaphore.Weighted

	mu     sync.Mutex
	issued []time.Time // admissions inside the current window, oldest first

	inFlight atomic.Int64
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	cfg = cfg.withDefaults()
	return &Limiter{
		cfg:   cfg,
		clock: cfg.Clock,
		sem:   semaphore.NewWeighted(int64(cfg.Permits)),
	}
}

// Config returns the effective configuration.
func (l *Limiter) Config() Config { return l.cfg }

// Clock returns the clock the limiter waits on.
func (l *Limiter) Clock() Clock { return l.clock }

// Interval is the pacing delay between calls.
func (l *Limiter) Interval() time.Duration {
	return l.cfg.Window / time.Duration(l.cfg.Budget)
}

// Pace waits one pacing interval.
func (l *Limiter) Pace(ctx context.Context) error {
	return l.clock.Sleep(ctx, l.Interval())
}

// Stats is a snapshot of the limiter's shared state.
type Stats struct {
	CallsInWindow int
	WindowEnd     time.Time // when the oldest admission leaves the window; zero if empty
	InFlight      int
}

// Stats returns the current window and permit usage.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expire(l.clock.Now())
	s := Stats{
		CallsInWindow: len(l.issued),
		InFlight:      int(l.inFlight.Load()),
	}
	if len(l.issued) > 0 {
		s.WindowEnd = l.issued[0].Add(l.cfg.Window)
	}
	return s
}

// Hooks are optional per-call callbacks.
type Hooks struct {
	// OnAttempt runs right before each invocation; attempt starts at 1.
	OnAttempt func(attempt int)
	// OnError runs after each failed invocation with the retry count so far.
	OnError func(err error, retry int)
}

// Do runs action through the limiter. See Execute.
func (l *Limiter) Do(ctx context.Context, action func(context.Context) error, hooks Hooks) error {
	_, err := Execute(ctx, l, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, action(ctx)
	}, hooks)
	return err
}

// Execute runs action under l: it takes a permit, waits for room in the
// window, paces, then invokes action. Failures are retried after another
// pacing interval until RetryLimit retries have been spent, at which point a
// *RetryExhaustedError wrapping the last failure is returned. Errors marked
// with Permanent are returned immediately.
//
// ctx bounds the waiting only. Once invoked, action receives a context that
// is not cancelled with ctx so a call already on the wire runs to completion.
func Execute[T any](ctx context.Context, l *Limiter, action func(context.Context) (T, error), hooks Hooks) (T, error) {
	var zero T
	callCtx := context.WithoutCancel(ctx)

	for retry := 0; ; retry++ {
		if err := l.acquire(ctx); err != nil {
			return zero, err
		}
		if hooks.OnAttempt != nil {
			hooks.OnAttempt(retry + 1)
		}

		l.inFlight.Add(1)
		result, err := action(callCtx)
		l.inFlight.Add(-1)
		l.sem.Release(1)

		if err == nil {
			return result, nil
		}
		if IsPermanent(err) {
			return zero, err
		}
		if hooks.OnError != nil {
			hooks.OnError(err, retry)
		}
		if retry >= l.cfg.RetryLimit {
			return zero, &RetryExhaustedError{Attempts: retry + 1, Last: err}
		}
		if err := l.Pace(ctx); err != nil {
			return zero, err
		}
	}
}

// acquire takes a permit, waits for window room and paces. On error no permit is held.
func (l *Limiter) acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	if err := l.admit(ctx); err != nil {
		l.sem.Release(1)
		return err
	}
	if err := l.Pace(ctx); err != nil {
		l.sem.Release(1)
		return err
	}
	return nil
}

// admit records a call in the window, sleeping until the oldest admission
// rolls out when the budget is spent.
func (l *Limiter) admit(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := l.clock.Now()
		l.expire(now)
		if len(l.issued) < l.cfg.Budget {
			l.issued = append(l.issued, now)
			l.mu.Unlock()
			return nil
		}
		wait := l.issued[0].Add(l.cfg.Window).Sub(now)
		l.mu.Unlock()

		if err := l.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// expire drops admissions at or before now-Window. Caller holds mu.
func (l *Limiter) expire(now time.Time) {
	cutoff := now.Add(-l.cfg.Window)
	i := 0
	for i < len(l.issued) && !l.issued[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.issued = append(l.issued[:0], l.issued[i:]...)
	}
}
