package routes

import (
	_ "embed"
	"net/http"

	"shrink/logger"
)

//go:embed static/index.html
var indexPage []byte

// IndexHandler serves the upload page. Unknown paths fall through here from the mux.
func (s *Server) IndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(indexPage); err != nil {
		logger.Errorf("Failed to write index page: %v", err)
	}
}
