package routes

import (
	"encoding/json"
	"net/http"

	"shrink/history"
	"shrink/logger"
)

// HistoryQueryHandler returns one history record by id.
func (s *Server) HistoryQueryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.history == nil {
		http.Error(w, "History is disabled", http.StatusNotFound)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id parameter required", http.StatusBadRequest)
		return
	}

	record, err := s.history.Get(id)
	if err != nil {
		logger.Errorf("Failed to query history for id %s: %v", id, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if record == nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"id":      id,
			"status":  "not_found",
			"message": "No history record found for this id",
		})
		return
	}
	json.NewEncoder(w).Encode(record)
}

// HistoryListHandler lists records, optionally filtered by ?status=success|failed.
func (s *Server) HistoryListHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.history == nil {
		http.Error(w, "History is disabled", http.StatusNotFound)
		return
	}

	status := history.Status(r.URL.Query().Get("status"))
	switch status {
	case "", history.StatusSuccess, history.StatusFailed:
	default:
		http.Error(w, "status must be success or failed", http.StatusBadRequest)
		return
	}

	records, err := s.history.List(status)
	if err != nil {
		logger.Errorf("Failed to list history records: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"records": records,
		"count":   len(records),
	})
}
