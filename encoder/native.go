package encoder

import (
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"io"
)

// EncodeJPEGNative encodes a baseline JPEG at the requested quality.
// The Go encoder has no progressive mode; use the magick backend for that.
func EncodeJPEGNative(ctx context.Context, img image.Image, w io.Writer, o EncodeOptions) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: clampQuality(o.Quality)})
}

// EncodePNGNative encodes a PNG, mapping the zlib level onto the levels image/png exposes.
func EncodePNGNative(ctx context.Context, img image.Image, w io.Writer, o EncodeOptions) error {
	enc := png.Encoder{CompressionLevel: pngLevel(o.CompressionLevel)}
	return enc.Encode(w, img)
}

func pngLevel(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level < 9:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

// RegisterNative registers the pure-Go encoders (no command dependency)
func RegisterNative() {
	Register("jpeg", Native, "", EncodeJPEGNative)
	Register("png", Native, "", EncodePNGNative)
}
