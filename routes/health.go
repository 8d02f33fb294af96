package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"shrink/encoder"
	"shrink/logger"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	GoVersion string    `json:"go_version"`
	Uptime    string    `json:"uptime"`
	StartTime string    `json:"start_time"`
	Encoders  []string  `json:"encoders"`
	Video     bool      `json:"video"`
	History   string    `json:"history"`
}

// Global start time for uptime calculation
var startTime = time.Now()

// formatUptime formats a duration into days, hours, minutes, seconds
func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
}

// HealthHandler reports liveness plus which encoders and stores are usable.
// A broken history store turns the status to "degraded" with a 503.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Health check request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)

	if r.Method != http.MethodGet {
		logger.Warnf("Invalid method for health endpoint: %s", r.Method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   version,
		GoVersion: runtime.Version(),
		Uptime:    formatUptime(time.Since(startTime)),
		StartTime: startTime.Format("2006-01-02 15:04:05 MST"),
		Encoders:  []string{},
		Video:     s.service.VideoAvailable(),
		History:   "disabled",
	}
	for _, b := range encoder.Available() {
		response.Encoders = append(response.Encoders, string(b))
	}

	code := http.StatusOK
	if s.history != nil {
		if err := s.history.CheckHealth(); err != nil {
			logger.Errorf("History store unhealthy: %v", err)
			response.Status = "degraded"
			response.History = "error: " + err.Error()
			code = http.StatusServiceUnavailable
		} else {
			response.History = "ok"
		}
	}

	logger.Debugf("Health check response: status=%s, version=%s", response.Status, response.Version)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Errorf("Failed to encode health response: %v", err)
	}
}
