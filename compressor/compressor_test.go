package compressor

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"
)

func sampleData() []byte {
	// mixed compressible text and pseudo-random bytes
	var buf bytes.Buffer
	buf.WriteString(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 400))
	rng := rand.New(rand.NewSource(42))
	noise := make([]byte, 4096)
	rng.Read(noise)
	buf.Write(noise)
	return buf.Bytes()
}

func TestCompressRoundTrip(t *testing.T) {
	data := sampleData()
	for _, algo := range Algorithms {
		t.Run(string(algo), func(t *testing.T) {
			compressed, err := Compress(data, algo, 6)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}
			if len(compressed) >= len(data) {
				t.Errorf("expected compression, got %d >= %d bytes", len(compressed), len(data))
			}
			restored, err := Decompress(compressed, algo)
			if err != nil {
				t.Fatalf("Decompress failed: %v", err)
			}
			if !bytes.Equal(restored, data) {
				t.Error("round trip produced different bytes")
			}
		})
	}
}

func TestCompressDeterministic(t *testing.T) {
	data := sampleData()
	for _, algo := range Algorithms {
		for _, level := range []int{1, 5, 9} {
			first, err := Compress(data, algo, level)
			if err != nil {
				t.Fatalf("%s/%d: Compress failed: %v", algo, level, err)
			}
			for run := 0; run < 3; run++ {
				again, err := Compress(data, algo, level)
				if err != nil {
					t.Fatalf("%s/%d: Compress failed: %v", algo, level, err)
				}
				if !bytes.Equal(first, again) {
					t.Fatalf("%s/%d: output differs between runs", algo, level)
				}
			}
		}
	}
}

func TestZlibIsDefault(t *testing.T) {
	algo, err := ParseAlgorithm("")
	if err != nil {
		t.Fatalf("ParseAlgorithm failed: %v", err)
	}
	if algo != AlgorithmZlib {
		t.Errorf("expected zlib default, got %s", algo)
	}
	if algo.Extension() != ".z" {
		t.Errorf("expected .z suffix, got %s", algo.Extension())
	}

	// zlib streams start with a CMF byte of 0x78 for a 32K window
	out, err := Compress([]byte("hello hello hello"), algo, 9)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if out[0] != 0x78 {
		t.Errorf("expected zlib header 0x78, got %#x", out[0])
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := map[string]Algorithm{
		"zlib": AlgorithmZlib, "GZ": AlgorithmGzip, "zst": AlgorithmZstd,
		"lz4": AlgorithmLZ4, "br": AlgorithmBrotli, "Snappy": AlgorithmSnappy,
	}
	for in, want := range tests {
		got, err := ParseAlgorithm(in)
		if err != nil || got != want {
			t.Errorf("ParseAlgorithm(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseAlgorithm("rar"); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Errorf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}

func TestClampLevel(t *testing.T) {
	tests := []struct{ in, want int }{{-3, 1}, {0, 1}, {1, 1}, {5, 5}, {9, 9}, {12, 9}}
	for _, tt := range tests {
		if got := ClampLevel(tt.in); got != tt.want {
			t.Errorf("ClampLevel(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestOutOfRangeLevelIsClamped(t *testing.T) {
	data := sampleData()
	clamped, err := Compress(data, AlgorithmZlib, 42)
	if err != nil {
		t.Fatalf("Compress with level 42 failed: %v", err)
	}
	nine, err := Compress(data, AlgorithmZlib, 9)
	if err != nil {
		t.Fatalf("Compress with level 9 failed: %v", err)
	}
	if !bytes.Equal(clamped, nine) {
		t.Error("level 42 should behave exactly like level 9")
	}
}

func TestUnknownAlgorithm(t *testing.T) {
	if _, err := Compress([]byte("x"), Algorithm("rar"), 5); !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Errorf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}
