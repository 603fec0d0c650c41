package extract

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"io"

	"github.com/pierrec/lz4"
	"github.com/ulikunitz/xz"

	"github.com/rget-dev/rget/pkg/logging"
)

// magicLen is how many leading bytes are needed to tell the formats apart.
const magicLen = 6

var (
	gzipMagic  = []byte{0x1F, 0x8B}
	bzip2Magic = []byte{0x42, 0x5A, 0x68}
	xzMagic    = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
	lz4Magic   = []byte{0x04, 0x22, 0x4D, 0x18}
)

// decompressor wraps a raw stream in the decoder for one compression format.
type decompressor func(r io.Reader) (io.Reader, error)

// detectFormat picks a decompressor from the stream's leading magic bytes.
// nil means the stream is not compressed (or not recognizably so).
func detectFormat(header []byte) decompressor {
	logger := logging.GetLogger()
	switch {
	case bytes.HasPrefix(header, gzipMagic):
		logger.Debug().Str("type", "gzip").Msg("Compression Format")
		return func(r io.Reader) (io.Reader, error) { return gzip.NewReader(r) }
	case bytes.HasPrefix(header, bzip2Magic):
		logger.Debug().Str("type", "bzip2").Msg("Compression Format")
		return func(r io.Reader) (io.Reader, error) { return bzip2.NewReader(r), nil }
	case bytes.HasPrefix(header, xzMagic):
		logger.Debug().Str("type", "xz").Msg("Compression Format")
		return func(r io.Reader) (io.Reader, error) { return xz.NewReader(r) }
	case bytes.HasPrefix(header, lz4Magic):
		logger.Debug().Str("type", "lz4").Msg("Compression Format")
		return func(r io.Reader) (io.Reader, error) { return lz4.NewReader(r), nil }
	default:
		logger.Debug().Str("type", "none").Msg("Compression Format")
		return nil
	}
}
