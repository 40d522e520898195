package bulk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSplitChunks verifies items are split in order into chunks of at most the requested size.
func TestSplitChunks(t *testing.T) {
	items := makeItems(250)
	chunks := SplitChunks(items, 100)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 100)
	assert.Len(t, chunks[1], 100)
	assert.Len(t, chunks[2], 50)
	assert.Equal(t, "e100", chunks[1][0].ID)

	assert.Empty(t, SplitChunks(nil, 100))
	assert.Len(t, SplitChunks(makeItems(3), 0), 1, "non-positive size falls back to the default")
}

// TestSplitChunksDoNotAlias verifies appending to one chunk never overwrites the next.
func TestSplitChunksDoNotAlias(t *testing.T) {
	chunks := SplitChunks(makeItems(4), 2)
	chunks[0] = append(chunks[0], chunks[1][0])
	assert.Equal(t, "e002", chunks[1][0].ID, "appending to one chunk must not overwrite the next")
}

// TestBisect verifies bisection yields two halves that together hold the original chunk.
func TestBisect(t *testing.T) {
	first, second := Chunk(makeItems(5)).Bisect()
	assert.Equal(t, []string{"e000", "e001"}, first.IDs())
	assert.Equal(t, []string{"e002", "e003", "e004"}, second.IDs())

	first, second = Chunk(makeItems(1)).Bisect()
	assert.Empty(t, first)
	assert.Len(t, second, 1)
}

// TestJobQueue verifies the queue hands chunks back in FIFO order.
func TestJobQueue(t *testing.T) {
	q := NewJobQueue(Chunk(makeItems(1)))
	q.Push(nil, Chunk(makeItems(2)))
	assert.Equal(t, 2, q.Len(), "empty chunks are dropped")

	c, ok := q.Pop()
	require.True(t, ok)
	assert.Len(t, c, 1)
	c, ok = q.Pop()
	require.True(t, ok)
	assert.Len(t, c, 2)
	_, ok = q.Pop()
	assert.False(t, ok)
	assert.True(t, q.Empty())
}
