package bulk

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresharpe/cute-sub002/internal/models"
	"github.com/andresharpe/cute-sub002/internal/ratelimit"
)

func payloadsOf(items []models.WorkItem) []models.Payload {
	out := make([]models.Payload, len(items))
	for i, item := range items {
		out[i] = models.Payload{WorkItem: item}
	}
	return out
}

// TestDispatcherCallsEveryPayload verifies each payload is sent exactly once.
func TestDispatcherCallsEveryPayload(t *testing.T) {
	remote := newFakeRemote()
	d := NewDispatcher(testLimiter(), Options{MaxConcurrent: 4}, nil)

	res, err := d.Run(context.Background(), models.Delete, payloadsOf(makeItems(10)), func(ctx context.Context, p models.Payload) error {
		return remote.SingleCall(ctx, models.Delete, p)
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, res.Succeeded)
	assert.Equal(t, 10, res.Submissions)
	assert.Len(t, remote.calls, 10)
	assert.Zero(t, res.Pending)
}

// TestDispatcherAggregatesFailures verifies failed calls are collected per item without stopping the run.
func TestDispatcherAggregatesFailures(t *testing.T) {
	d := NewDispatcher(testLimiter(), Options{MaxConcurrent: 3}, nil)
	notFound := ratelimit.Permanent(errors.New("404 not found"))

	var calls atomic.Int32
	res, err := d.Run(context.Background(), models.Delete, payloadsOf(makeItems(7)), func(ctx context.Context, p models.Payload) error {
		calls.Add(1)
		if p.ID == "e001" || p.ID == "e005" {
			return notFound
		}
		return nil
	}, nil)

	var dispatchErr *DispatchError
	require.ErrorAs(t, err, &dispatchErr)
	assert.Len(t, dispatchErr.Failures, 2)
	assert.Equal(t, []string{"e001", "e005"}, res.FailedIDs(), "failures keep input order")
	assert.Equal(t, 5, res.Succeeded)
	assert.EqualValues(t, 7, calls.Load(), "a failure does not cancel the other calls")
	assert.ErrorIs(t, err, notFound)
}

// TestDispatcherRetryExhaustedIsPerItem verifies an exhausted retry budget fails only its own item.
func TestDispatcherRetryExhaustedIsPerItem(t *testing.T) {
	d := NewDispatcher(testLimiter(), Options{MaxConcurrent: 2}, nil)

	res, err := d.Run(context.Background(), models.Upsert, payloadsOf(makeItems(3)), func(ctx context.Context, p models.Payload) error {
		if p.ID == "e002" {
			return errors.New("503 unavailable")
		}
		return nil
	}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ratelimit.ErrRetryExhausted)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, []string{"e002"}, res.FailedIDs())
}

// TestDispatcherBoundsConcurrency verifies no more than MaxConcurrent calls are outstanding at once.
func TestDispatcherBoundsConcurrency(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{Permits: 10, Budget: 1000, Window: 100 * time.Millisecond})
	d := NewDispatcher(limiter, Options{MaxConcurrent: 4}, nil)

	var current, peak atomic.Int32
	res, err := d.Run(context.Background(), models.Delete, payloadsOf(makeItems(20)), func(ctx context.Context, p models.Payload) error {
		n := current.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		current.Add(-1)
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Succeeded)
	assert.LessOrEqual(t, peak.Load(), int32(4))
}

// TestDispatcherCancellation verifies cancellation stops launching calls and leaves the rest pending.
func TestDispatcherCancellation(t *testing.T) {
	d := NewDispatcher(testLimiter(), Options{MaxConcurrent: 1}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	res, err := d.Run(ctx, models.Delete, payloadsOf(makeItems(10)), func(ctx context.Context, p models.Payload) error {
		if p.ID == "e002" {
			cancel()
		}
		return nil
	}, nil)
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Equal(t, 3, res.Succeeded, "the call in flight at cancellation completes")
	assert.Equal(t, 7, res.Pending)
}

// TestDispatcherCountsOnlyIssuedCalls verifies calls abandoned after
// cancellation are not counted as submissions.
func TestDispatcherCountsOnlyIssuedCalls(t *testing.T) {
	d := NewDispatcher(testLimiter(), Options{MaxConcurrent: 10}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	res, err := d.Run(ctx, models.Delete, payloadsOf(makeItems(10)), func(ctx context.Context, p models.Payload) error {
		calls.Add(1)
		cancel()
		return nil
	}, nil)
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Equal(t, int(calls.Load()), res.Submissions)
	assert.Equal(t, res.Submissions, res.Succeeded)
	assert.Equal(t, 10, res.Succeeded+res.Pending)
}

// TestDispatcherLabelsNewPayloads verifies payloads without an id are reported under a generated label.
func TestDispatcherLabelsNewPayloads(t *testing.T) {
	d := NewDispatcher(testLimiter(), Options{}, nil)
	res, err := d.Run(context.Background(), models.Upsert, []models.Payload{{Fields: models.Fields{"title": "x"}}}, func(ctx context.Context, p models.Payload) error {
		return ratelimit.Permanent(errors.New("422 unprocessable"))
	}, nil)
	require.Error(t, err)
	assert.Equal(t, []string{"new#1"}, res.FailedIDs())
}
