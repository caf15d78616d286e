package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/table-assist/pkg/chat"
	"github.com/jwebster45206/table-assist/pkg/storage"
)

type HistoryResponse struct {
	UserID   string             `json:"user_id"`
	Messages []chat.ChatMessage `json:"messages"`
}

// HistoryHandler exposes a user's completion history.
type HistoryHandler struct {
	storage storage.Storage
	limit   int
	logger  *slog.Logger
}

// NewHistoryHandler creates a history handler. GET returns at most limit
// messages; zero returns all of them.
func NewHistoryHandler(storage storage.Storage, limit int, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{storage: storage, limit: limit, logger: logger}
}

// ServeHTTP handles HTTP requests for conversation history
// Routes:
// GET /v1/history/{user_id}    - Load history
// DELETE /v1/history/{user_id} - Clear history
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/history"), "/")
	if userID == "" || strings.Contains(userID, "/") {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid path. Expected /v1/history/{user_id}")
		return
	}

	switch r.Method {
	case http.MethodGet:
		messages, err := h.storage.LoadHistory(r.Context(), userID, h.limit)
		if err != nil {
			h.logger.Error("Error loading history", "error", err, "user_id", userID)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to load history")
			return
		}
		if messages == nil {
			messages = []chat.ChatMessage{}
		}
		writeJSON(w, h.logger, http.StatusOK, HistoryResponse{UserID: userID, Messages: messages})

	case http.MethodDelete:
		if err := h.storage.ClearHistory(r.Context(), userID); err != nil {
			h.logger.Error("Error clearing history", "error", err, "user_id", userID)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to clear history")
			return
		}
		h.logger.Info("History cleared", "user_id", userID)
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r, h.logger, "GET, DELETE")
	}
}
