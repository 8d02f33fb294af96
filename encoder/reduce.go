package encoder

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/disintegration/imaging"

	"shrink/logger"
)

// DefaultMaxPixels bounds width*height when ReduceOptions.MaxPixels is unset.
const DefaultMaxPixels = 50_000_000

// ReduceOptions controls a single image reduction.
type ReduceOptions struct {
	Quality       int
	ResizePercent int
	Backend       Backend
	MaxPixels     int64
}

// Reduced is the outcome of ReduceImage.
type Reduced struct {
	Data    []byte
	Width   int
	Height  int
	Backend Backend
	Elapsed time.Duration // encode step only
}

// decode is swapped out in tests.
var decode = func(r io.Reader) (image.Image, error) {
	return imaging.Decode(r)
}

// checkDimensions reads only the image header and rejects anything larger
// than maxPixels before the decoder allocates the pixel buffer.
func checkDimensions(data []byte, maxPixels int64) error {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to read image header: %w", err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, maxPixels)
	}
	return nil
}

// ReduceImage decodes data, optionally downscales it and re-encodes it once in
// the given format. Decode and encode errors are returned as-is to the caller.
func ReduceImage(ctx context.Context, data []byte, format string, opts ReduceOptions) (*Reduced, error) {
	if format != "jpeg" && format != "png" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	enc, backend, ok := Get(format, opts.Backend)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrEncoderNotFound, format, opts.Backend)
	}

	if err := checkDimensions(data, opts.MaxPixels); err != nil {
		return nil, err
	}

	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	src := img.Bounds()
	img = Resize(img, opts.ResizePercent)
	dst := img.Bounds()
	if dst != src {
		logger.Debugf("resized image %dx%d -> %dx%d (%d%%)", src.Dx(), src.Dy(), dst.Dx(), dst.Dy(), opts.ResizePercent)
	}

	var buf bytes.Buffer
	encOpts := EncodeOptions{Quality: opts.Quality, CompressionLevel: PNGCompactionLevel}
	start := time.Now()
	err = enc(ctx, img, &buf, encOpts)
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s with %s: %w", format, backend, err)
	}

	return &Reduced{
		Data:    buf.Bytes(),
		Width:   dst.Dx(),
		Height:  dst.Dy(),
		Backend: backend,
		Elapsed: elapsed,
	}, nil
}
