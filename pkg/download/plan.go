package download

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Chunk is one contiguous byte range of the resource. Start and End are
// inclusive, matching the HTTP Range header convention.
type Chunk struct {
	Index int
	Start int64
	End   int64
}

// Size returns the number of bytes the chunk covers.
func (c Chunk) Size() int64 {
	return c.End - c.Start + 1
}

// RangeHeader renders the chunk as an HTTP Range header value.
func (c Chunk) RangeHeader() string {
	return fmt.Sprintf("bytes=%d-%d", c.Start, c.End)
}

// sizeTable maps resource sizes to chunk counts. Buckets must be ascending
// and counts non-decreasing so that bigger files never get fewer chunks.
var sizeTable = []struct {
	limit  int64
	chunks int
}{
	{1 * humanize.MiByte, 1},
	{16 * humanize.MiByte, 4},
	{64 * humanize.MiByte, 8},
	{256 * humanize.MiByte, 16},
	{1 * humanize.GiByte, 32},
}

// maxTableChunks is the ceiling for resources past the last bucket.
const maxTableChunks = 64

func tableChunkCount(size int64) int {
	for _, bucket := range sizeTable {
		if size <= bucket.limit {
			return bucket.chunks
		}
	}
	return maxTableChunks
}

// planChunks tiles [0, size) with contiguous, disjoint ranges. Without range
// support the plan is a single chunk. maxChunks > 0 clamps the table-derived
// count (never below 1); exact > 0 overrides the count entirely, which is
// mostly useful for benchmarks and tests.
func planChunks(size int64, supportsRange bool, maxChunks, exact int) ([]Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cannot plan download of %d bytes: %w", size, ErrInvalidResponse)
	}
	n := 1
	if supportsRange {
		n = tableChunkCount(size)
		if maxChunks > 0 && n > maxChunks {
			n = maxChunks
		}
		if exact > 0 {
			n = exact
			if n > maxTableChunks {
				n = maxTableChunks
			}
		}
		// never more chunks than bytes
		if int64(n) > size {
			n = int(size)
		}
	}

	chunkSize := size / int64(n)
	chunks := make([]Chunk, n)
	for i := 0; i < n; i++ {
		start := int64(i) * chunkSize
		end := start + chunkSize - 1
		if i == n-1 {
			// The final chunk absorbs the remainder. Its end must be computed
			// from the total, not from chunkSize*n, or non-divisible sizes
			// under- or overshoot.
			end = size - 1
		}
		chunks[i] = Chunk{Index: i, Start: start, End: end}
	}
	return chunks, nil
}
