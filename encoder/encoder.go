package encoder

import (
	"context"
	"errors"
	"image"
	"io"
	"os/exec"
	"strings"
	"sync"

	"shrink/logger"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrEncoderNotFound   = errors.New("encoder not registered")
	ErrImageTooLarge     = errors.New("image dimensions too large")
)

// PNGCompactionLevel is the fixed zlib effort used for lossless output.
const PNGCompactionLevel = 3

// Backend names an encoder implementation.
type Backend string

const (
	Auto   Backend = "auto"
	Native Backend = "native"
	Magick Backend = "magick"
)

// EncodeFunc is the function signature for any encoder
type EncodeFunc func(ctx context.Context, img image.Image, w io.Writer, opts EncodeOptions) error

type EncodeOptions struct {
	Quality          int // 1–100, lossy formats only
	CompressionLevel int // zlib effort, lossless formats only
}

var (
	// registry maps "format/backend" → encoder function
	registry = map[string]EncodeFunc{}
	regMu    sync.RWMutex
)

func registryKey(format string, b Backend) string {
	return format + "/" + string(b)
}

// Register adds an encoder for format under backend. When cmdName is set the
// encoder is only registered if the command exists on PATH.
func Register(format string, b Backend, cmdName string, fn EncodeFunc) {
	if cmdName != "" {
		if _, err := exec.LookPath(cmdName); err != nil {
			logger.Warnf("encoder [%s/%s] skipped: command '%s' not found in PATH", format, b, cmdName)
			return
		}
	}
	regMu.Lock()
	registry[registryKey(format, b)] = fn
	regMu.Unlock()
	logger.Debugf("encoder [%s/%s] registered", format, b)
}

// Get looks up the encoder for format. Auto prefers ImageMagick and falls
// back to the native encoder; the backend actually chosen is returned.
func Get(format string, b Backend) (EncodeFunc, Backend, bool) {
	regMu.RLock()
	defer regMu.RUnlock()

	candidates := []Backend{b}
	if b == Auto || b == "" {
		candidates = []Backend{Magick, Native}
	}
	for _, c := range candidates {
		if fn, ok := registry[registryKey(format, c)]; ok {
			return fn, c, true
		}
	}
	return nil, "", false
}

// Available reports which backends have at least one encoder registered.
func Available() []Backend {
	regMu.RLock()
	defer regMu.RUnlock()
	seen := map[Backend]bool{}
	var out []Backend
	for key := range registry {
		b := Backend(key[strings.LastIndex(key, "/")+1:])
		if !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	return out
}

// RegisterDefaults registers the native encoders and, when present, ImageMagick.
func RegisterDefaults() {
	RegisterNative()
	Register("jpeg", Magick, "magick", EncodeJPEGMagick)
	Register("png", Magick, "magick", EncodePNGMagick)
}

// FormatForExtension maps a file extension (without dot) to an encoder format.
func FormatForExtension(ext string) (string, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "jpg", "jpeg":
		return "jpeg", true
	case "png":
		return "png", true
	default:
		return "", false
	}
}
