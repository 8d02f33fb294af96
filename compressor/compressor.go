// Package compressor applies a single pass of a generic stream codec to a byte
// buffer. Output is deterministic for a given input, algorithm and level.
package compressor

import (
	"bytes"
	"fmt"
	"io"
)

const (
	MinLevel     = 1
	MaxLevel     = 9
	DefaultLevel = 9
)

// ClampLevel forces level into [MinLevel, MaxLevel].
func ClampLevel(level int) int {
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// Compress compresses data with algo at level (clamped to 1–9) in one pass.
func Compress(data []byte, algo Algorithm, level int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data)/2 + 64)

	w, err := createCompressor(algo, &buf, ClampLevel(level))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s compressor: %w", algo, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("%s compression failed: %w", algo, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%s compression failed: %w", algo, err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(data []byte, algo Algorithm) ([]byte, error) {
	r, err := createDecompressor(algo, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s decompressor: %w", algo, err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s decompression failed: %w", algo, err)
	}
	return out, nil
}
