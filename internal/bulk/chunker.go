package bulk

import "github.com/andresharpe/cute-sub002/internal/models"

// Chunk is an ordered slice of work items submitted together.
type Chunk []models.WorkItem

// IDs returns the item ids in order.
func (c Chunk) IDs() []string {
	ids := make([]string, len(c))
	for i, item := range c {
		ids[i] = item.ID
	}
	return ids
}

// Bisect splits c into a first half of len/2 items and the rest.
func (c Chunk) Bisect() (Chunk, Chunk) {
	mid := len(c) / 2
	return c[:mid:mid], c[mid:]
}

// SplitChunks splits items into consecutive chunks of at most size items.
// The input order is preserved and the chunks share no backing array with each other.
func SplitChunks(items []models.WorkItem, size int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([]Chunk, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, Chunk(items[start:end:end]))
	}
	return chunks
}
