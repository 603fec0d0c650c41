package download

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidResponse is returned by Probe when the server response carries
	// no usable content length. The engine has no other size signal.
	ErrInvalidResponse = errors.New("no usable content length in response")

	// ErrRangeNotSupported is returned by New when Options.RequireRange is set
	// and the server does not advertise byte-range support. Without the
	// option, missing range support degrades to a single chunk instead.
	ErrRangeNotSupported = errors.New("server does not accept byte ranges")
)

// HTTPStatusError reports a non-success status from a probe or chunk request.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("status code %d", e.StatusCode)
}

// ChunkError tags a failure with the index of the chunk it belongs to, so the
// aggregate error the orchestrator builds names every failed range.
type ChunkError struct {
	Index int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// MergeError reports a stage-and-merge accounting mismatch: fewer staged parts
// than planned chunks. Distinct from a fetch failure, since merge only runs
// after every chunk was judged successful.
type MergeError struct {
	Expected int
	Actual   int
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge expected %d staged parts, found %d", e.Expected, e.Actual)
}
