package routes

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"shrink/compressor"
	"shrink/encoder"
	"shrink/logger"
	"shrink/models"
	"shrink/reducer"
)

// multipart parts above this size spill to disk
const maxMemory = 32 << 20

var errBadField = errors.New("invalid form field")

// readUpload pulls the "file" part out of a size-limited multipart form.
// The returned status is the HTTP code to use when err is non-nil.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (reducer.Upload, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return reducer.Upload{}, http.StatusRequestEntityTooLarge,
				fmt.Errorf("upload exceeds %d MB", s.cfg.MaxUploadMB)
		}
		return reducer.Upload{}, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return reducer.Upload{}, http.StatusBadRequest, fmt.Errorf("file field required: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return reducer.Upload{}, http.StatusBadRequest, fmt.Errorf("failed to read upload: %w", err)
	}
	return reducer.Upload{Filename: header.Filename, Data: data}, 0, nil
}

// intField reads an optional integer form value, falling back to def when absent.
func intField(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w %s: %q", errBadField, name, raw)
	}
	return v, nil
}

// parseParams reads the slider values; anything out of range is clamped later.
func (s *Server) parseParams(r *http.Request) (models.Params, error) {
	p := s.service.DefaultParams()
	var err error
	if p.Quality, err = intField(r, "quality", p.Quality); err != nil {
		return p, err
	}
	if p.ResizePercent, err = intField(r, "resize", p.ResizePercent); err != nil {
		return p, err
	}
	if p.Level, err = intField(r, "level", p.Level); err != nil {
		return p, err
	}
	if p.TargetMB, err = intField(r, "target_mb", p.TargetMB); err != nil {
		return p, err
	}
	if algo := strings.TrimSpace(r.FormValue("algorithm")); algo != "" {
		p.Algorithm = algo
	}
	return p, nil
}

// ReduceHandler reduces an image or compresses any other accepted file.
func (s *Server) ReduceHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Reduce request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	up, status, err := s.readUpload(w, r)
	if err != nil {
		logger.Warnf("Reduce upload rejected: %v", err)
		http.Error(w, err.Error(), status)
		return
	}
	params, err := s.parseParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.service.Reduce(r.Context(), up, params)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, reducer.ErrEmptyUpload), errors.Is(err, compressor.ErrUnsupportedAlgorithm):
			status = http.StatusBadRequest
		case errors.Is(err, reducer.ErrUnsupportedType):
			status = http.StatusUnsupportedMediaType
		case errors.Is(err, encoder.ErrImageTooLarge):
			status = http.StatusRequestEntityTooLarge
		}
		http.Error(w, "Error reducing file: "+err.Error(), status)
		return
	}
	writeResult(w, res)
}

// VideoHandler re-encodes an mp4/mov upload to the requested size.
func (s *Server) VideoHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Video request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	up, status, err := s.readUpload(w, r)
	if err != nil {
		logger.Warnf("Video upload rejected: %v", err)
		http.Error(w, err.Error(), status)
		return
	}
	params, err := s.parseParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.service.ReduceVideo(r.Context(), up, params)
	if err != nil {
		switch {
		case errors.Is(err, reducer.ErrEmptyUpload):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, reducer.ErrUnsupportedType), errors.Is(err, reducer.ErrNotVideo):
			http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
		default:
			http.Error(w, "Error compressing video: "+err.Error(), http.StatusBadGateway)
		}
		return
	}
	writeResult(w, res)
}

// writeResult sends the reduced bytes as a download along with the size and timing report.
func writeResult(w http.ResponseWriter, res *reducer.Result) {
	h := w.Header()
	h.Set("Content-Type", res.MIMEType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	h.Set("Content-Length", strconv.Itoa(len(res.Data)))
	h.Set("X-Original-Size", res.OriginalSizeText())
	h.Set("X-Compressed-Size", res.CompressedSizeText())
	h.Set("X-Compression-Time", res.ElapsedText())
	if res.ID != "" {
		h.Set("X-History-Id", res.ID)
	}
	if res.Width > 0 {
		h.Set("X-Dimensions", fmt.Sprintf("%dx%d", res.Width, res.Height))
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Data); err != nil {
		logger.Errorf("Failed to write %s: %v", res.Filename, err)
	}
}
