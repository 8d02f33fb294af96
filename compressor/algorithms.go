package compressor

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

var ErrUnsupportedAlgorithm = errors.New("unsupported compression algorithm")

// Algorithm identifies a generic stream codec.
type Algorithm string

const (
	AlgorithmZlib   Algorithm = "zlib"
	AlgorithmGzip   Algorithm = "gzip"
	AlgorithmZstd   Algorithm = "zstd"
	AlgorithmLZ4    Algorithm = "lz4"
	AlgorithmBrotli Algorithm = "brotli"
	AlgorithmSnappy Algorithm = "snappy"
)

// Algorithms lists every supported codec, default first.
var Algorithms = []Algorithm{AlgorithmZlib, AlgorithmGzip, AlgorithmZstd, AlgorithmLZ4, AlgorithmBrotli, AlgorithmSnappy}

// ParseAlgorithm resolves a name (or file extension) to an Algorithm.
// An empty name selects zlib.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "zlib", "z", "deflate":
		return AlgorithmZlib, nil
	case "gzip", "gz":
		return AlgorithmGzip, nil
	case "zstd", "zst":
		return AlgorithmZstd, nil
	case "lz4":
		return AlgorithmLZ4, nil
	case "brotli", "br":
		return AlgorithmBrotli, nil
	case "snappy", "sz":
		return AlgorithmSnappy, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, name)
	}
}

// Extension returns the suffix appended to downloads compressed with a.
func (a Algorithm) Extension() string {
	switch a {
	case AlgorithmZlib:
		return ".z"
	case AlgorithmGzip:
		return ".gz"
	case AlgorithmZstd:
		return ".zst"
	case AlgorithmLZ4:
		return ".lz4"
	case AlgorithmBrotli:
		return ".br"
	case AlgorithmSnappy:
		return ".sz"
	default:
		return ""
	}
}

// createCompressor creates a compressor for the specified algorithm
func createCompressor(algo Algorithm, w io.Writer, level int) (io.WriteCloser, error) {
	switch algo {
	case AlgorithmZlib:
		return zlib.NewWriterLevel(w, level)
	case AlgorithmGzip:
		return gzip.NewWriterLevel(w, level)
	case AlgorithmZstd:
		return zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
			zstd.WithEncoderConcurrency(1))
	case AlgorithmLZ4:
		zw := lz4.NewWriter(w)
		if err := zw.Apply(lz4.CompressionLevelOption(lz4Levels[level-1])); err != nil {
			return nil, err
		}
		return zw, nil
	case AlgorithmBrotli:
		return brotli.NewWriterLevel(w, level), nil
	case AlgorithmSnappy:
		// snappy has no levels
		return snappy.NewBufferedWriter(w), nil
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}

// createDecompressor creates a decompressor for the specified algorithm
func createDecompressor(algo Algorithm, r io.Reader) (io.ReadCloser, error) {
	switch algo {
	case AlgorithmZlib:
		return zlib.NewReader(r)
	case AlgorithmGzip:
		return gzip.NewReader(r)
	case AlgorithmZstd:
		d, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	case AlgorithmLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case AlgorithmBrotli:
		return io.NopCloser(brotli.NewReader(r)), nil
	case AlgorithmSnappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}

var lz4Levels = [MaxLevel]lz4.CompressionLevel{
	lz4.Level1, lz4.Level2, lz4.Level3,
	lz4.Level4, lz4.Level5, lz4.Level6,
	lz4.Level7, lz4.Level8, lz4.Level9,
}
