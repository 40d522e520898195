// Package bulk drives large sets of entry mutations to completion against a
// rate-limited remote API: chunked asynchronous jobs for publish/unpublish,
// bounded per-item calls for delete/upsert.
package bulk

// Default tuning values.
const (
	DefaultChunkSize     = 100
	DefaultMaxInFlight   = 5
	DefaultMaxConcurrent = 50
	DefaultPageSize      = 1000
)

// Options is the immutable tuning for one Orchestrator.
// Pacing and retry ceilings live on the shared ratelimit.Limiter.
type Options struct {
	ChunkSize     int // items per bulk job
	MaxInFlight   int // bulk jobs awaiting completion at once
	MaxConcurrent int // per-item calls awaited together
	PageSize      int // entries fetched per listing call
}

// DefaultOptions returns the defaults used against the management API.
func DefaultOptions() Options {
	return Options{
		ChunkSize:     DefaultChunkSize,
		MaxInFlight:   DefaultMaxInFlight,
		MaxConcurrent: DefaultMaxConcurrent,
		PageSize:      DefaultPageSize,
	}
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.MaxInFlight <= 0 {
		o.MaxInFlight = DefaultMaxInFlight
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = DefaultMaxConcurrent
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	return o
}
