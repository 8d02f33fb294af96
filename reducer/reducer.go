package reducer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shrink/compressor"
	"shrink/config"
	"shrink/encoder"
	"shrink/history"
	"shrink/logger"
	"shrink/models"
	"shrink/video"
	writerbackends "shrink/writerBackends"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrEmptyUpload     = errors.New("empty upload")
	ErrNotVideo        = errors.New("not a video file")
)

// Fixed names of the video scratch files inside each request's work directory.
const (
	videoInputName  = "temp_video.mp4"
	videoOutputName = "compressed_video.mp4"
)

var videoExtensions = map[string]bool{"mp4": true, "mov": true}

// Service routes uploads to the image, generic or video path.
type Service struct {
	cfg     *config.Config
	history *history.Store
	video   *video.Reducer
	backend encoder.Backend
	allowed map[string]bool
}

// NewService wires a Service from cfg. store may be nil to run without history.
func NewService(cfg *config.Config, store *history.Store) *Service {
	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(ext)] = true
	}
	return &Service{
		cfg:     cfg,
		history: store,
		video:   video.NewReducer(cfg.Video.FFmpegPath, cfg.Video.FFprobePath, cfg.Video.Codec, cfg.Video.AudioBitrate),
		backend: encoder.Backend(cfg.Image.Encoder),
		allowed: allowed,
	}
}

// VideoAvailable reports whether ffmpeg and ffprobe were found.
func (s *Service) VideoAvailable() bool {
	return s.video.Available()
}

// DefaultParams returns the configured defaults for fields the user left out.
func (s *Service) DefaultParams() models.Params {
	return models.Params{
		Quality:       s.cfg.Image.Quality,
		ResizePercent: s.cfg.Image.ResizePercent,
		Level:         s.cfg.Compression.Level,
		Algorithm:     s.cfg.Compression.Algorithm,
		TargetMB:      s.cfg.Video.TargetMB,
	}
}

// extension returns the lower-cased extension of name without the dot.
func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// KindFor returns the path Reduce takes for filename.
func KindFor(filename string) Kind {
	if _, ok := encoder.FormatForExtension(extension(filename)); ok {
		return KindImage
	}
	return KindGeneric
}

// IsVideo reports whether filename can go through ReduceVideo.
func IsVideo(filename string) bool {
	return videoExtensions[extension(filename)]
}

func (s *Service) checkUpload(up Upload) error {
	if len(up.Data) == 0 {
		return ErrEmptyUpload
	}
	ext := extension(up.Filename)
	if ext == "" || !s.allowed[ext] {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(up.Filename))
	}
	return nil
}

// Reduce runs the image path for jpg/jpeg/png uploads and generic compression
// for everything else. Codec errors are returned unchanged in meaning.
func (s *Service) Reduce(ctx context.Context, up Upload, p models.Params) (*Result, error) {
	if err := s.checkUpload(up); err != nil {
		return nil, err
	}
	p = p.Clamped()

	var (
		res *Result
		err error
	)
	switch KindFor(up.Filename) {
	case KindImage:
		res, err = s.reduceImage(ctx, up, p)
	default:
		res, err = s.compressGeneric(up, p)
	}
	return s.finish(ctx, up, p, KindFor(up.Filename), res, err)
}

func (s *Service) reduceImage(ctx context.Context, up Upload, p models.Params) (*Result, error) {
	format, _ := encoder.FormatForExtension(extension(up.Filename))

	out, err := encoder.ReduceImage(ctx, up.Data, format, encoder.ReduceOptions{
		Quality:       p.Quality,
		ResizePercent: p.ResizePercent,
		Backend:       s.backend,
		MaxPixels:     int64(s.cfg.Image.MaxPixels),
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Kind:     KindImage,
		Filename: "compressed_" + filepath.Base(up.Filename),
		MIMEType: "image/" + format,
		Data:     out.Data,
		Elapsed:  out.Elapsed,
		Width:    out.Width,
		Height:   out.Height,
		Encoder:  string(out.Backend),
	}, nil
}

func (s *Service) compressGeneric(up Upload, p models.Params) (*Result, error) {
	algo, err := compressor.ParseAlgorithm(p.Algorithm)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	data, err := compressor.Compress(up.Data, algo, p.Level)
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}

	return &Result{
		Kind:     KindGeneric,
		Filename: "compressed_" + filepath.Base(up.Filename) + algo.Extension(),
		MIMEType: "application/octet-stream",
		Data:     data,
		Elapsed:  elapsed,
		Encoder:  string(algo),
	}, nil
}

// ReduceVideo re-encodes a video upload to roughly p.TargetMB megabytes.
// Scratch files live in a fresh directory under the work dir and are removed afterwards.
func (s *Service) ReduceVideo(ctx context.Context, up Upload, p models.Params) (*Result, error) {
	if err := s.checkUpload(up); err != nil {
		return nil, err
	}
	if !IsVideo(up.Filename) {
		return nil, fmt.Errorf("%w: %s", ErrNotVideo, up.Filename)
	}
	p = p.Clamped()

	res, err := s.encodeVideo(ctx, up, p)
	return s.finish(ctx, up, p, KindVideo, res, err)
}

func (s *Service) encodeVideo(ctx context.Context, up Upload, p models.Params) (*Result, error) {
	workDir, err := os.MkdirTemp(s.cfg.WorkDir, "shrink-video-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Errorf("Failed to cleanup work directory %s: %v", workDir, err)
		}
	}()

	input := filepath.Join(workDir, videoInputName)
	output := filepath.Join(workDir, videoOutputName)
	if err := os.WriteFile(input, up.Data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", videoInputName, err)
	}

	encoded, err := s.video.Compress(ctx, input, output, float64(p.TargetMB))
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", videoOutputName, err)
	}

	return &Result{
		Kind:     KindVideo,
		Filename: "compressed_" + filepath.Base(up.Filename),
		MIMEType: "video/mp4",
		Data:     data,
		Elapsed:  encoded.Elapsed,
		Encoder:  fmt.Sprintf("%s@%dk", s.video.Codec, encoded.BitrateKbps),
	}, nil
}

// finish fills in sizes, records history and exports successful results.
func (s *Service) finish(ctx context.Context, up Upload, p models.Params, kind Kind, res *Result, err error) (*Result, error) {
	rec := history.Record{
		Kind:         string(kind),
		Filename:     filepath.Base(up.Filename),
		OriginalSize: int64(len(up.Data)),
		Params:       p.AsMap(),
	}

	if err != nil {
		logger.Errorf("Failed to reduce %s (%s): %v", up.Filename, kind, err)
		if s.history != nil {
			if _, storeErr := s.history.StoreFailure(rec, err); storeErr != nil {
				logger.Errorf("Failed to store failure for %s: %v", up.Filename, storeErr)
			}
		}
		return nil, err
	}

	res.OriginalSize = int64(len(up.Data))
	res.CompressedSize = int64(len(res.Data))
	logger.Infof("Compression took %.2f seconds", res.Elapsed.Seconds())
	logger.Infof("Reduced %s: %s -> %s (%s)", up.Filename, res.OriginalSizeText(), res.CompressedSizeText(), res.Encoder)

	if s.history != nil {
		rec.OutputFilename = res.Filename
		rec.CompressedSize = res.CompressedSize
		rec.ElapsedMS = float64(res.Elapsed.Microseconds()) / 1000
		id, storeErr := s.history.StoreSuccess(rec)
		if storeErr != nil {
			logger.Errorf("Failed to store success for %s: %v", up.Filename, storeErr)
		}
		res.ID = id
	}

	s.export(ctx, res)
	return res, nil
}

// export copies res to every configured sink. Sink errors never fail the request.
func (s *Service) export(ctx context.Context, res *Result) {
	for _, sink := range s.cfg.Sinks {
		sink.Options = maps.Clone(sink.Options)
		if sink.Options == nil {
			sink.Options = map[string]string{}
		}
		sink.Options["contentType"] = res.MIMEType

		if err := writerbackends.Export(ctx, sink, res.Filename, bytes.NewReader(res.Data)); err != nil {
			logger.Errorf("Failed to export %s to sink %s: %v", res.Filename, sink.Name, err)
		}
	}
}
