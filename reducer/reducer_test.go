package reducer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shrink/compressor"
	"shrink/config"
	"shrink/encoder"
	"shrink/history"
	"shrink/models"
)

func TestMain(m *testing.M) {
	encoder.RegisterNative()
	os.Exit(m.Run())
}

func newTestService(t *testing.T, withHistory bool) (*Service, *history.Store) {
	t.Helper()
	cfg := config.Default()
	cfg.WorkDir = t.TempDir()
	cfg.Image.Encoder = string(encoder.Native)

	var store *history.Store
	if withHistory {
		var err error
		store, err = history.Open(filepath.Join(t.TempDir(), "history.db"))
		if err != nil {
			t.Fatalf("failed to open history: %v", err)
		}
		t.Cleanup(func() { store.Close() })
	}
	return NewService(cfg, store), store
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func defaultParams() models.Params {
	return models.Params{Quality: 85, ResizePercent: 100, Level: 9, TargetMB: 10}
}

func TestKindFor(t *testing.T) {
	tests := map[string]Kind{
		"a.jpg":       KindImage,
		"a.JPEG":      KindImage,
		"shot.png":    KindImage,
		"notes.txt":   KindGeneric,
		"clip.mp4":    KindGeneric,
		"archive.tar": KindGeneric,
	}
	for name, want := range tests {
		if got := KindFor(name); got != want {
			t.Errorf("KindFor(%q) = %s, want %s", name, got, want)
		}
	}
}

func TestReduceImageHalvesDimensions(t *testing.T) {
	s, _ := newTestService(t, false)
	p := defaultParams()
	p.ResizePercent = 50

	res, err := s.Reduce(context.Background(), Upload{Filename: "photo.png", Data: pngBytes(t, 101, 40)}, p)
	if err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}
	if res.Width != 50 || res.Height != 20 {
		t.Errorf("expected 50x20, got %dx%d", res.Width, res.Height)
	}
	if res.MIMEType != "image/png" {
		t.Errorf("unexpected MIME type %q", res.MIMEType)
	}
	if res.Filename != "compressed_photo.png" {
		t.Errorf("unexpected filename %q", res.Filename)
	}
	if res.Kind != KindImage || res.Encoder != string(encoder.Native) {
		t.Errorf("unexpected kind/encoder %s/%s", res.Kind, res.Encoder)
	}
	if _, err := png.Decode(bytes.NewReader(res.Data)); err != nil {
		t.Errorf("output is not a PNG: %v", err)
	}
}

func TestReduceJPEGKeepsDimensions(t *testing.T) {
	s, _ := newTestService(t, false)

	img, _ := png.Decode(bytes.NewReader(pngBytes(t, 64, 48)))
	var src bytes.Buffer
	if err := jpeg.Encode(&src, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}

	res, err := s.Reduce(context.Background(), Upload{Filename: "Photo.JPG", Data: src.Bytes()}, defaultParams())
	if err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}
	if res.Width != 64 || res.Height != 48 {
		t.Errorf("expected 64x48, got %dx%d", res.Width, res.Height)
	}
	if res.MIMEType != "image/jpeg" {
		t.Errorf("unexpected MIME type %q", res.MIMEType)
	}
}

func TestReduceGenericUsesZlib(t *testing.T) {
	s, _ := newTestService(t, false)
	cfgAllow(s, "txt")

	data := []byte(strings.Repeat("shrink me please ", 200))
	res, err := s.Reduce(context.Background(), Upload{Filename: "notes.txt", Data: data}, defaultParams())
	if err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}
	if res.Kind != KindGeneric {
		t.Errorf("expected generic kind, got %s", res.Kind)
	}
	if res.Filename != "compressed_notes.txt.z" {
		t.Errorf("unexpected filename %q", res.Filename)
	}
	if res.MIMEType != "application/octet-stream" {
		t.Errorf("unexpected MIME type %q", res.MIMEType)
	}
	if res.CompressedSize >= res.OriginalSize {
		t.Errorf("expected compression, %d >= %d", res.CompressedSize, res.OriginalSize)
	}

	back, err := compressor.Decompress(res.Data, compressor.AlgorithmZlib)
	if err != nil {
		t.Fatalf("zlib decompress: %v", err)
	}
	if !bytes.Equal(back, data) {
		t.Error("round trip mismatch")
	}
}

func TestReduceGenericAlgorithm(t *testing.T) {
	s, _ := newTestService(t, false)
	cfgAllow(s, "log")

	p := defaultParams()
	p.Algorithm = "zstd"
	res, err := s.Reduce(context.Background(), Upload{Filename: "app.log", Data: []byte("line\nline\nline\n")}, p)
	if err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}
	if !strings.HasSuffix(res.Filename, ".zst") {
		t.Errorf("unexpected filename %q", res.Filename)
	}

	p.Algorithm = "rar"
	_, err = s.Reduce(context.Background(), Upload{Filename: "app.log", Data: []byte("x")}, p)
	if !errors.Is(err, compressor.ErrUnsupportedAlgorithm) {
		t.Errorf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}

func TestReduceRejects(t *testing.T) {
	s, _ := newTestService(t, false)

	if _, err := s.Reduce(context.Background(), Upload{Filename: "a.png"}, defaultParams()); !errors.Is(err, ErrEmptyUpload) {
		t.Errorf("expected ErrEmptyUpload, got %v", err)
	}
	if _, err := s.Reduce(context.Background(), Upload{Filename: "a.exe", Data: []byte("x")}, defaultParams()); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
	if _, err := s.Reduce(context.Background(), Upload{Filename: "noext", Data: []byte("x")}, defaultParams()); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType for missing extension, got %v", err)
	}
}

func TestReduceCorruptImageRecordsFailure(t *testing.T) {
	s, store := newTestService(t, true)

	_, err := s.Reduce(context.Background(), Upload{Filename: "broken.png", Data: []byte("not a png")}, defaultParams())
	if err == nil {
		t.Fatal("expected decode error")
	}

	failed, err := store.List(history.StatusFailed)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(failed) != 1 || failed[0].Filename != "broken.png" || failed[0].Error == "" {
		t.Errorf("unexpected failure records: %+v", failed)
	}
}

func TestReduceRecordsSuccess(t *testing.T) {
	s, store := newTestService(t, true)

	res, err := s.Reduce(context.Background(), Upload{Filename: "a.png", Data: pngBytes(t, 20, 20)}, defaultParams())
	if err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}
	if res.ID == "" {
		t.Fatal("expected history id")
	}

	rec, err := store.Get(res.ID)
	if err != nil || rec == nil {
		t.Fatalf("Get(%s) = %v, %v", res.ID, rec, err)
	}
	if rec.OutputFilename != "compressed_a.png" || rec.CompressedSize != res.CompressedSize {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.Params["quality"] == nil {
		t.Errorf("params missing from record: %v", rec.Params)
	}
}

func TestReduceExportsToSinks(t *testing.T) {
	s, _ := newTestService(t, false)
	dir := t.TempDir()
	s.cfg.Sinks = []config.SinkConfig{{Name: "local", Type: "directory", Options: map[string]string{"dir": dir}}}
	cfgAllow(s, "txt")

	res, err := s.Reduce(context.Background(), Upload{Filename: "a.txt", Data: []byte("aaaaaaaaaaaaaaaa")}, defaultParams())
	if err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, res.Filename))
	if err != nil {
		t.Fatalf("sink copy missing: %v", err)
	}
	if !bytes.Equal(got, res.Data) {
		t.Error("sink copy differs from result")
	}
	if _, ok := s.cfg.Sinks[0].Options["contentType"]; ok {
		t.Error("export must not mutate the configured sink options")
	}
}

func TestReduceSinkFailureDoesNotFail(t *testing.T) {
	s, _ := newTestService(t, false)
	s.cfg.Sinks = []config.SinkConfig{{Name: "broken", Type: "ftp"}}

	if _, err := s.Reduce(context.Background(), Upload{Filename: "a.png", Data: pngBytes(t, 8, 8)}, defaultParams()); err != nil {
		t.Errorf("sink error leaked into request: %v", err)
	}
}

func TestReduceVideoRejectsNonVideo(t *testing.T) {
	s, _ := newTestService(t, false)

	_, err := s.ReduceVideo(context.Background(), Upload{Filename: "a.png", Data: pngBytes(t, 4, 4)}, defaultParams())
	if !errors.Is(err, ErrNotVideo) {
		t.Errorf("expected ErrNotVideo, got %v", err)
	}
}

func TestReduceVideoCleansWorkDir(t *testing.T) {
	s, store := newTestService(t, true)

	// not a real video, ffprobe (or the missing binary) fails
	_, err := s.ReduceVideo(context.Background(), Upload{Filename: "clip.mp4", Data: []byte("garbage")}, defaultParams())
	if err == nil {
		t.Fatal("expected error for garbage video")
	}

	entries, _ := os.ReadDir(s.cfg.WorkDir)
	if len(entries) != 0 {
		t.Errorf("work dir not cleaned, found %d entries", len(entries))
	}

	failed, _ := store.List(history.StatusFailed)
	if len(failed) != 1 || failed[0].Kind != string(KindVideo) {
		t.Errorf("unexpected failure records: %+v", failed)
	}
}

func TestReduceVideoWithFFmpeg(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}

	src := filepath.Join(t.TempDir(), "src.mp4")
	gen := exec.Command("ffmpeg", "-y", "-f", "lavfi", "-i", "testsrc=duration=2:size=160x120:rate=10",
		"-c:v", "libx264", "-pix_fmt", "yuv420p", src)
	if out, err := gen.CombinedOutput(); err != nil {
		t.Skipf("cannot generate sample video: %v\n%s", err, out)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}

	s, _ := newTestService(t, false)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	p := defaultParams()
	p.TargetMB = 1
	res, err := s.ReduceVideo(ctx, Upload{Filename: "clip.mov", Data: data}, p)
	if err != nil {
		t.Fatalf("ReduceVideo failed: %v", err)
	}
	if res.MIMEType != "video/mp4" || res.Filename != "compressed_clip.mov" {
		t.Errorf("unexpected result %s %s", res.MIMEType, res.Filename)
	}
	if res.CompressedSize == 0 {
		t.Error("empty video output")
	}
}

func TestResultText(t *testing.T) {
	r := &Result{OriginalSize: 2048, CompressedSize: 512, Elapsed: 1500 * time.Millisecond}
	if got := r.OriginalSizeText(); got != "2.00 KB" {
		t.Errorf("OriginalSizeText() = %q", got)
	}
	if got := r.CompressedSizeText(); got != "512 bytes" {
		t.Errorf("CompressedSizeText() = %q", got)
	}
	if got := r.ElapsedText(); got != "1.50 seconds" {
		t.Errorf("ElapsedText() = %q", got)
	}
	if got := r.SavedPercent(); got != 75 {
		t.Errorf("SavedPercent() = %v", got)
	}
}

func cfgAllow(s *Service, ext string) {
	s.allowed[ext] = true
}

func TestReduceImageOverPixelLimit(t *testing.T) {
	s, store := newTestService(t, true)
	s.cfg.Image.MaxPixels = 100

	_, err := s.Reduce(context.Background(), Upload{Filename: "big.png", Data: pngBytes(t, 20, 20)}, defaultParams())
	if !errors.Is(err, encoder.ErrImageTooLarge) {
		t.Fatalf("expected ErrImageTooLarge, got %v", err)
	}

	failed, _ := store.List(history.StatusFailed)
	if len(failed) != 1 || failed[0].Filename != "big.png" {
		t.Errorf("unexpected failure records: %+v", failed)
	}
}
