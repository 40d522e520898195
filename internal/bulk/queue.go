package bulk

import "sync"

// JobQueue is a FIFO of chunks waiting to be submitted. Safe for concurrent use.
type JobQueue struct {
	mu     sync.Mutex
	chunks []Chunk
}

// NewJobQueue returns a queue holding chunks in order.
func NewJobQueue(chunks ...Chunk) *JobQueue {
	q := &JobQueue{}
	q.chunks = append(q.chunks, chunks...)
	return q
}

// Push appends chunks to the back of the queue. Empty chunks are dropped.
func (q *JobQueue) Push(chunks ...Chunk) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, c := range chunks {
		if len(c) > 0 {
			q.chunks = append(q.chunks, c)
		}
	}
}

// Pop removes and returns the front chunk.
func (q *JobQueue) Pop() (Chunk, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.chunks) == 0 {
		return nil, false
	}
	c := q.chunks[0]
	q.chunks[0] = nil
	q.chunks = q.chunks[1:]
	return c, true
}

// Len returns the number of queued chunks.
func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.chunks)
}

// Empty reports whether no chunks are queued.
func (q *JobQueue) Empty() bool { return q.Len() == 0 }
