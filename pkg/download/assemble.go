package download

import (
	"fmt"
	"io"
	"os"

	"github.com/rget-dev/rget/pkg/logging"
)

// assembler turns per-chunk byte streams into one correct destination file.
// Both implementations satisfy the same invariant: after finish, the file is
// exactly the planned size with every chunk at its own offset.
type assembler interface {
	// chunkWriter returns the writer a fetch worker streams chunk c into.
	// Writers for distinct chunks never overlap and may be used concurrently.
	chunkWriter(c Chunk) (io.WriteCloser, error)

	// finish completes reassembly. Called only after every chunk succeeded.
	finish() error

	// abort releases resources after a failed download. Direct assembly
	// keeps its staging file so completed ranges stay inspectable, but
	// never the destination itself; staged parts are removed best-effort.
	abort()
}

// directAssembler hands each worker an offset writer over one shared handle.
// Ranges are disjoint by construction, so concurrent WriteAt calls need no
// locking. A fresh run stages its writes in a temporary file and renames it
// over dest on success; dest itself only ever exists at a trustworthy length,
// which is what a later resume keys off.
type directAssembler struct {
	f    *os.File
	dest string
	path string
}

func newDirectAssembler(dest string, size int64) (*directAssembler, error) {
	path := dest + ".tmp"
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("error creating %s: %w", path, err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("error pre-sizing %s to %d bytes: %w", path, size, err)
	}
	return &directAssembler{f: f, dest: dest, path: path}, nil
}

// newInPlaceAssembler appends straight into dest without pre-sizing it. Used
// when resuming: the existing prefix must stay put, and the single resume
// chunk extends the file sequentially so an interruption leaves a length
// that is itself resumable.
func newInPlaceAssembler(dest string) (*directAssembler, error) {
	f, err := os.OpenFile(dest, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", dest, err)
	}
	return &directAssembler{f: f, dest: dest, path: dest}, nil
}

func (a *directAssembler) chunkWriter(c Chunk) (io.WriteCloser, error) {
	return nopCloseWriter{io.NewOffsetWriter(a.f, c.Start)}, nil
}

func (a *directAssembler) finish() error {
	if err := a.f.Sync(); err != nil {
		a.f.Close()
		return fmt.Errorf("error syncing %s: %w", a.path, err)
	}
	if err := a.f.Close(); err != nil {
		return err
	}
	if a.path != a.dest {
		return os.Rename(a.path, a.dest)
	}
	return nil
}

func (a *directAssembler) abort() {
	_ = a.f.Close()
}

type nopCloseWriter struct {
	io.Writer
}

func (nopCloseWriter) Close() error { return nil }

// stageAssembler writes each chunk to a private temporary file and merges the
// parts into the destination in ascending index order once all fetches have
// been judged successful. Only the single-threaded merge touches the final
// file.
type stageAssembler struct {
	dest   string
	chunks int
}

func newStageAssembler(dest string, chunks int) *stageAssembler {
	return &stageAssembler{dest: dest, chunks: chunks}
}

func (a *stageAssembler) partPath(index int) string {
	return fmt.Sprintf("%s.part%03d", a.dest, index)
}

func (a *stageAssembler) chunkWriter(c Chunk) (io.WriteCloser, error) {
	f, err := os.Create(a.partPath(c.Index))
	if err != nil {
		return nil, fmt.Errorf("error creating part file for chunk %d: %w", c.Index, err)
	}
	return f, nil
}

func (a *stageAssembler) finish() error {
	staged := 0
	for i := 0; i < a.chunks; i++ {
		if _, err := os.Stat(a.partPath(i)); err == nil {
			staged++
		}
	}
	if staged != a.chunks {
		return &MergeError{Expected: a.chunks, Actual: staged}
	}

	out, err := os.Create(a.dest)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", a.dest, err)
	}
	for i := 0; i < a.chunks; i++ {
		if err := a.copyPart(out, i); err != nil {
			out.Close()
			return err
		}
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("error syncing %s: %w", a.dest, err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	logger := logging.GetLogger()
	for i := 0; i < a.chunks; i++ {
		if err := os.Remove(a.partPath(i)); err != nil {
			logger.Warn().Err(err).Str("part", a.partPath(i)).Msg("Cleanup")
		}
	}
	return nil
}

func (a *stageAssembler) copyPart(out *os.File, index int) error {
	part, err := os.Open(a.partPath(index))
	if err != nil {
		return fmt.Errorf("error opening part %d: %w", index, err)
	}
	defer part.Close()
	if _, err := io.Copy(out, part); err != nil {
		return fmt.Errorf("error merging part %d: %w", index, err)
	}
	return nil
}

func (a *stageAssembler) abort() {
	for i := 0; i < a.chunks; i++ {
		_ = os.Remove(a.partPath(i))
	}
}
