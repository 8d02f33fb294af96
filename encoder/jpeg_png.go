package encoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os/exec"
	"strings"
)

// EncodeJPEGMagick encodes a progressive, Huffman-optimized JPEG using ImageMagick
func EncodeJPEGMagick(ctx context.Context, img image.Image, w io.Writer, o EncodeOptions) error {
	return magickEncode(ctx, img, w, []string{
		"-quality", fmt.Sprint(clampQuality(o.Quality)),
		"-interlace", "Plane",
		"-define", "jpeg:optimize-coding=true",
	}, "jpg")
}

// EncodePNGMagick encodes a PNG at the requested zlib level using ImageMagick
func EncodePNGMagick(ctx context.Context, img image.Image, w io.Writer, o EncodeOptions) error {
	return magickEncode(ctx, img, w, []string{
		"-define", fmt.Sprintf("png:compression-level=%d", o.CompressionLevel),
	}, "png")
}

// Shared helper for magick-based formats. The image is handed over as a
// lossless PNG on stdin and the encoded result is read from stdout.
func magickEncode(ctx context.Context, img image.Image, w io.Writer, opts []string, format string) error {
	var in bytes.Buffer
	if err := (&png.Encoder{CompressionLevel: png.BestSpeed}).Encode(&in, img); err != nil {
		return fmt.Errorf("failed to prepare magick input: %w", err)
	}

	args := append([]string{"png:-"}, opts...)
	args = append(args, format+":-")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "magick", args...)
	cmd.Stdin = &in
	cmd.Stdout = w
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("magick %s: %w: %s", format, err, msg)
		}
		return fmt.Errorf("magick %s: %w", format, err)
	}
	return nil
}
