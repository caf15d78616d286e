package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jwebster45206/table-assist/pkg/chat"
	"github.com/jwebster45206/table-assist/pkg/storage"
)

// DefaultChatLogLimit is the number of entries returned when no limit is given.
const DefaultChatLogLimit = 100

// Subscriber streams newly posted chat entries.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan chat.Entry, func(), error)
}

// ChatLogHandler serves the chat log filtered to what a user may see.
type ChatLogHandler struct {
	storage    storage.Storage
	subscriber Subscriber
	logger     *slog.Logger
	keepalive  time.Duration
}

func NewChatLogHandler(storage storage.Storage, subscriber Subscriber, logger *slog.Logger) *ChatLogHandler {
	return &ChatLogHandler{
		storage:    storage,
		subscriber: subscriber,
		logger:     logger,
		keepalive:  30 * time.Second,
	}
}

// ServeHTTP handles chat log requests
// Routes:
// GET /v1/chatlog?user_id=&limit= - Entries visible to the user, oldest first
// GET /v1/chatlog/stream?user_id= - Server-Sent Events for new visible entries
func (h *ChatLogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, h.logger, http.MethodGet)
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "user_id is required")
		return
	}
	user, err := h.storage.User(r.Context(), userID)
	if err != nil {
		h.logger.Error("Error loading user", "error", err, "user_id", userID)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load user")
		return
	}
	if user == nil {
		writeError(w, h.logger, http.StatusNotFound, "User not found")
		return
	}

	if strings.TrimSuffix(r.URL.Path, "/") == "/v1/chatlog/stream" {
		h.stream(w, r, userID)
		return
	}

	limit := DefaultChatLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, h.logger, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := h.storage.ListEntries(r.Context(), limit)
	if err != nil {
		h.logger.Error("Error listing chat entries", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load chat log")
		return
	}
	visible := make([]chat.Entry, 0, len(entries))
	for i := range entries {
		if entries[i].VisibleToUser(userID) {
			visible = append(visible, entries[i])
		}
	}
	writeJSON(w, h.logger, http.StatusOK, visible)
}

func (h *ChatLogHandler) stream(w http.ResponseWriter, r *http.Request, userID string) {
	if h.subscriber == nil {
		writeError(w, h.logger, http.StatusServiceUnavailable, "Live chat log is not available")
		return
	}
	entries, cancel, err := h.subscriber.Subscribe(r.Context())
	if err != nil {
		h.logger.Error("Failed to subscribe to chat entries", "error", err)
		writeError(w, h.logger, http.StatusServiceUnavailable, "Live chat log is not available")
		return
	}
	defer cancel()

	h.logger.Info("SSE connection established", "user_id", userID, "remote_addr", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.sendSSE(w, "connected", map[string]string{"user_id": userID})

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Info("SSE client disconnected", "user_id", userID)
			return

		case e, ok := <-entries:
			if !ok {
				return
			}
			if e.VisibleToUser(userID) {
				h.sendSSE(w, "entry", e)
			}

		case <-keepalive.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				h.logger.Error("Failed to write keepalive", "error", err)
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}

func (h *ChatLogHandler) sendSSE(w http.ResponseWriter, eventType string, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Error("Failed to marshal SSE data", "error", err)
		return
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, dataJSON); err != nil {
		h.logger.Error("Failed to write SSE event", "error", err)
		return
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
