package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding response", "error", err, "status", status)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	writeJSON(w, logger, status, ErrorResponse{Error: message})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, logger *slog.Logger, allowed string) {
	logger.Warn("Method not allowed",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)
	w.Header().Set("Allow", allowed)
	writeError(w, logger, http.StatusMethodNotAllowed, "Method not allowed. Only "+allowed+" is supported at "+r.URL.Path+".")
}
