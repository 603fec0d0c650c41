// Package download implements a chunked parallel file download engine: it
// probes a URL for size and byte-range support, tiles the resource into an
// adaptive number of ranges, fetches them concurrently under a bounded gate,
// and reassembles them into a single destination file while exposing live
// progress and pause/resume control.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/semaphore"

	"github.com/rget-dev/rget/pkg/logging"
)

const chunkBufferSize = 128 * humanize.KiByte

type Options struct {
	// Concurrency bounds how many chunks download simultaneously and clamps
	// the planned chunk count. Zero means GOMAXPROCS*4.
	Concurrency int

	// Chunks forces an exact chunk count, overriding the size table. Mostly
	// useful for benchmarking and tests.
	Chunks int

	// Stage writes each chunk to a private temporary file and merges them in
	// index order, instead of writing directly into a pre-sized destination.
	Stage bool

	// Continue resumes an interrupted download: bytes already present in the
	// destination file are kept and only the remainder is requested. Implies
	// direct assembly.
	Continue bool

	// Paused creates the download suspended; workers hold at their first
	// checkpoint until Resume is called.
	Paused bool

	// RequireRange fails with ErrRangeNotSupported when the server does not
	// accept byte ranges, instead of degrading to a single chunk.
	RequireRange bool

	// Client is the HTTP client used for all requests. Defaults to
	// http.DefaultClient.
	Client *http.Client
}

func (o Options) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return runtime.GOMAXPROCS(0) * 4
}

// Downloader orchestrates one download: Probe -> plan -> fetch workers under
// the gate -> reassembly. The task and plan are immutable after New; progress
// and control state are the only shared mutable pieces, each with their own
// synchronization.
type Downloader struct {
	task    *Task
	dest    string
	plan    []Chunk
	resumed int64
	opts    Options

	client  *http.Client
	tracker *Tracker
	ctrl    *controller

	startOnce sync.Once
	done      chan struct{}
	err       error
}

// New probes urlString and plans the download. dest may be empty, in which
// case the server-suggested filename is used in the current directory.
func New(ctx context.Context, urlString, dest string, opts Options) (*Downloader, error) {
	httpClient := opts.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	task, err := Probe(ctx, httpClient, urlString)
	if err != nil {
		return nil, err
	}
	if opts.RequireRange && !task.SupportsRange {
		return nil, fmt.Errorf("%s: %w", task.URL, ErrRangeNotSupported)
	}
	if dest == "" {
		dest = task.Filename
	}

	d := &Downloader{
		task:    task,
		dest:    dest,
		opts:    opts,
		client:  httpClient,
		tracker: NewTracker(task.Size),
		done:    make(chan struct{}),
	}

	if opts.Continue {
		d.resumed = existingBytes(dest, task.Size, task.SupportsRange)
	}
	if d.resumed > 0 {
		// single range covering the remainder, appended in place
		if d.resumed < task.Size {
			d.plan = []Chunk{{Index: 0, Start: d.resumed, End: task.Size - 1}}
		}
		d.tracker.Add(d.resumed)
	} else {
		d.plan, err = planChunks(task.Size, task.SupportsRange, opts.concurrency(), opts.Chunks)
		if err != nil {
			return nil, err
		}
	}

	start := Running
	if opts.Paused {
		start = Paused
	}
	d.ctrl = newController(start)
	return d, nil
}

// existingBytes reports how much of dest is already on disk and usable for a
// resume. Without range support the file cannot be appended to mid-stream, so
// anything partial is restarted from scratch.
func existingBytes(dest string, size int64, supportsRange bool) int64 {
	info, err := os.Stat(dest)
	if err != nil || info.IsDir() {
		return 0
	}
	n := info.Size()
	if n >= size {
		return size
	}
	if !supportsRange {
		return 0
	}
	return n
}

// Start launches the download in the background. It is safe to call more
// than once; only the first call has any effect. The outcome is delivered
// through Wait.
func (d *Downloader) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		go d.run(ctx)
	})
}

// Pause suspends all workers at their next write checkpoint. Requests
// already in flight are not cancelled; only further writes are gated.
func (d *Downloader) Pause() {
	d.ctrl.set(Paused)
}

// Resume lifts a pause. Workers re-check the state and continue from their
// exact suspension point; no bytes are lost or double-counted.
func (d *Downloader) Resume() {
	d.ctrl.set(Running)
}

// State returns the current control state and, in the Errored state, the
// aggregated failure.
func (d *Downloader) State() (State, error) {
	return d.ctrl.current()
}

// Progress exposes the shared progress tracker for observers.
func (d *Downloader) Progress() *Tracker {
	return d.tracker
}

// Wait blocks until the download reaches a terminal state and returns the
// aggregated error, or nil on success.
func (d *Downloader) Wait(ctx context.Context) error {
	select {
	case <-d.done:
		return d.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dest returns the resolved destination path.
func (d *Downloader) Dest() string {
	return d.dest
}

// Size returns the total resource size learned from the probe.
func (d *Downloader) Size() int64 {
	return d.task.Size
}

// NumChunks returns the number of planned ranges.
func (d *Downloader) NumChunks() int {
	return len(d.plan)
}

func (d *Downloader) run(ctx context.Context) {
	defer close(d.done)
	logger := logging.GetLogger()

	if len(d.plan) == 0 {
		// continue mode found the file already complete
		logger.Info().Str("dest", d.dest).Msg("Already complete")
		d.ctrl.set(Finished)
		return
	}

	concurrency := d.opts.concurrency()
	logger.Debug().
		Str("url", d.task.URL).
		Str("dest", d.dest).
		Int64("size", d.task.Size).
		Int("chunks", len(d.plan)).
		Int("concurrency", concurrency).
		Bool("stage", d.opts.Stage).
		Msg("Downloading")

	var asm assembler
	var err error
	switch {
	case d.opts.Stage && d.resumed == 0:
		asm = newStageAssembler(d.dest, len(d.plan))
	case d.resumed > 0:
		asm, err = newInPlaceAssembler(d.dest)
	default:
		asm, err = newDirectAssembler(d.dest, d.task.Size)
	}
	if err != nil {
		d.fail(err)
		return
	}

	startTime := time.Now()
	sem := semaphore.NewWeighted(int64(concurrency))
	failures := make(chan *ChunkError, len(d.plan))
	var wg sync.WaitGroup

	for _, c := range d.plan {
		wg.Add(1)
		go func(c Chunk) {
			defer wg.Done()
			if err := d.runChunk(ctx, sem, asm, c); err != nil {
				failures <- &ChunkError{Index: c.Index, Err: err}
			}
		}(c)
	}

	// Every worker is awaited before judging the outcome; a failed chunk
	// never cancels its peers, preserving maximum partial progress.
	wg.Wait()
	close(failures)

	if err := collectFailures(failures); err != nil {
		asm.abort()
		d.fail(err)
		return
	}
	if err := asm.finish(); err != nil {
		d.fail(err)
		return
	}

	d.ctrl.set(Finished)
	elapsed := time.Since(startTime)
	transferred := d.tracker.Bytes() - d.resumed
	logger.Info().
		Str("url", d.task.URL).
		Str("dest", d.dest).
		Str("size", humanize.Bytes(uint64(d.task.Size))).
		Str("elapsed", fmt.Sprintf("%.3fs", elapsed.Seconds())).
		Str("throughput", fmt.Sprintf("%s/s", humanize.Bytes(uint64(float64(transferred)/elapsed.Seconds())))).
		Msg("Complete")
}

// runChunk downloads one chunk under the concurrency gate. The permit is held
// for the whole chunk lifetime: request, stream and write.
func (d *Downloader) runChunk(ctx context.Context, sem *semaphore.Weighted, asm assembler, c Chunk) error {
	if err := sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer sem.Release(1)

	w, err := asm.chunkWriter(c)
	if err != nil {
		return err
	}
	err = d.fetchChunk(ctx, c, w)
	if closeErr := w.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("error closing chunk writer: %w", closeErr)
	}
	return err
}

// fetchChunk issues the ranged request for c and streams the body into w.
// For each received buffer it waits out a pause, writes at the cumulative
// offset, then reports the delta to the tracker. Failures are never retried
// here; they surface with the chunk's identity attached.
func (d *Downloader) fetchChunk(ctx context.Context, c Chunk, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.task.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if d.task.SupportsRange {
		req.Header.Set("Range", c.RangeHeader())
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPStatusError{StatusCode: resp.StatusCode}
	}

	var written int64
	buf := make([]byte, chunkBufferSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if err := d.ctrl.awaitRunnable(ctx); err != nil {
				return err
			}
			if written+int64(n) > c.Size() {
				return fmt.Errorf("server sent more than the requested %d bytes", c.Size())
			}
			if _, err := w.Write(buf[:n]); err != nil {
				return fmt.Errorf("error writing chunk: %w", err)
			}
			written += int64(n)
			d.tracker.Add(int64(n))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("error reading response body: %w", readErr)
		}
	}
	if written != c.Size() {
		return fmt.Errorf("downloaded %d bytes instead of %d", written, c.Size())
	}
	return nil
}

// collectFailures aggregates every failed chunk, ordered by index, into a
// single error so the final message enumerates each cause.
func collectFailures(failures <-chan *ChunkError) error {
	var chunkErrs []*ChunkError
	for ce := range failures {
		chunkErrs = append(chunkErrs, ce)
	}
	if len(chunkErrs) == 0 {
		return nil
	}
	sort.Slice(chunkErrs, func(i, j int) bool { return chunkErrs[i].Index < chunkErrs[j].Index })

	var merr *multierror.Error
	for _, ce := range chunkErrs {
		merr = multierror.Append(merr, ce)
	}
	return merr.ErrorOrNil()
}

func (d *Downloader) fail(err error) {
	d.err = err
	d.ctrl.setErr(Errored, err)
	logger := logging.GetLogger()
	logger.Error().Err(err).Str("dest", d.dest).Msg("Failed")
}
