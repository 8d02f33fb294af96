package routes

import (
	"net/http"
	"time"

	"shrink/auth"
	"shrink/config"
	"shrink/history"
	"shrink/logger"
	"shrink/reducer"
)

// Server holds everything the handlers need. history may be nil.
type Server struct {
	cfg     *config.Config
	service *reducer.Service
	history *history.Store
	verify  auth.VerifyConfig
}

func NewServer(cfg *config.Config, service *reducer.Service, store *history.Store) *Server {
	return &Server{
		cfg:     cfg,
		service: service,
		history: store,
		verify: auth.VerifyConfig{
			SecretKey:      []byte(cfg.AuthSecret),
			ExpectedIssuer: cfg.AuthIssuer,
			ClockSkew:      30 * time.Second,
		},
	}
}

// Handler registers every route on a fresh mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.IndexHandler)
	mux.HandleFunc("/reduce", s.requireAuth(s.ReduceHandler))
	mux.HandleFunc("/reduce/video", s.requireAuth(s.VideoHandler))
	mux.HandleFunc("/health", s.HealthHandler)
	mux.HandleFunc("/version", VersionHandler)
	mux.HandleFunc("/history", s.requireAuth(s.HistoryQueryHandler))
	mux.HandleFunc("/history/list", s.requireAuth(s.HistoryListHandler))
	return mux
}

// requireAuth checks the bearer token when an auth secret is configured.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthSecret == "" {
			next(w, r)
			return
		}
		claims, err := auth.FromRequest(r, s.verify)
		if err != nil {
			logger.Warnf("Rejected request to %s from %s: %v", r.URL.Path, r.RemoteAddr, err)
			http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
			return
		}
		logger.Debugf("Authenticated %s for %s", claims.Subject, r.URL.Path)
		next(w, r)
	}
}
