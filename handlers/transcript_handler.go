package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/miwamasa/smolagentUIWrapper/storage"
)

// HandleTranscript returns the archived run records of a session as a
// JSON list, oldest first.
func HandleTranscript(w http.ResponseWriter, r *http.Request, store *storage.TranscriptStore) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	if !store.Enabled() {
		http.Error(w, "transcript archive is not configured", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	records, err := store.Recent(ctx, sessionID, 50)
	if err != nil {
		zap.L().Error("Failed to read transcript",
			zap.String("session_id", sessionID), zap.Error(err))
		http.Error(w, "failed to read transcript", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if records == nil {
		records = []storage.RunRecord{}
	}
	json.NewEncoder(w).Encode(records)
}
