package analysis

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz/lzma"
)

// Compression algorithm names accepted by CompressionRatio. Four
// interchangeable compressors of materially different strength: an
// LZ77+range-coding family (lzma), a Huffman+LZ77 family (gzip), a
// Burrows-Wheeler family (bz2), and raw Deflate (zlib).
const (
	CompressionLZMA = "lzma"
	CompressionGzip = "gzip"
	CompressionBz2  = "bz2"
	CompressionZlib = "zlib"
)

// SupportedCompressionAlgos lists the valid compression algorithm names in
// the order they are documented.
var SupportedCompressionAlgos = []string{
	CompressionLZMA,
	CompressionGzip,
	CompressionBz2,
	CompressionZlib,
}

// ValidateCompression reports whether algorithm names a supported
// compressor.
func ValidateCompression(algorithm string) error {
	switch algorithm {
	case CompressionLZMA, CompressionGzip, CompressionBz2, CompressionZlib:
		return nil
	default:
		return fmt.Errorf("%w: compression algorithm must be one of: %s",
			ErrInvalidParameter, strings.Join(SupportedCompressionAlgos, ", "))
	}
}

// CompressionRatio encodes the window's tokens joined by single spaces as
// UTF-8 and returns compressed_length / raw_length under the named
// algorithm. Lower ratio means more redundant, more predictable text. An
// empty window yields 0.0.
func CompressionRatio(tokens []string, algorithm string) (float64, error) {
	if err := ValidateCompression(algorithm); err != nil {
		return 0, err
	}

	raw := []byte(strings.Join(tokens, " "))
	if len(raw) == 0 {
		return 0, nil
	}

	compressed, err := compress(raw, algorithm)
	if err != nil {
		return 0, fmt.Errorf("analysis: compress window (%s): %w", algorithm, err)
	}
	return float64(compressed) / float64(len(raw)), nil
}

func compress(raw []byte, algorithm string) (int, error) {
	var buf bytes.Buffer

	switch algorithm {
	case CompressionLZMA:
		w, err := lzma.NewWriter(&buf)
		if err != nil {
			return 0, err
		}
		if _, err := w.Write(raw); err != nil {
			return 0, err
		}
		if err := w.Close(); err != nil {
			return 0, err
		}
	case CompressionGzip:
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			return 0, err
		}
		if err := w.Close(); err != nil {
			return 0, err
		}
	case CompressionBz2:
		w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: bzip2.BestCompression})
		if err != nil {
			return 0, err
		}
		if _, err := w.Write(raw); err != nil {
			return 0, err
		}
		if err := w.Close(); err != nil {
			return 0, err
		}
	case CompressionZlib:
		w := zlib.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			return 0, err
		}
		if err := w.Close(); err != nil {
			return 0, err
		}
	}

	return buf.Len(), nil
}
