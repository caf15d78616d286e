package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/table-assist/pkg/chat"
	"github.com/jwebster45206/table-assist/pkg/cmderr"
)

// Dispatcher executes chat lines on behalf of a user.
type Dispatcher interface {
	Handle(ctx context.Context, userID, line string) (chat.ChatResponse, error)
	Say(ctx context.Context, userID, line string) error
}

// ChatHandler accepts chat lines. Commands are dispatched; anything else is
// posted to the chat log as a normal entry.
type ChatHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewChatHandler(dispatcher Dispatcher, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// ServeHTTP handles POST /v1/chat
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, h.logger, http.MethodPost)
		return
	}

	var request chat.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with 'user_id' and 'message' fields.")
		return
	}
	if err := request.Validate(); err != nil {
		h.logger.Warn("Invalid chat request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	// The completion call is not bounded here; the client's retry policy owns timing.
	ctx := r.Context()
	response, err := h.dispatcher.Handle(ctx, request.UserID, request.Message)
	if err == nil && !response.Intercepted {
		err = h.dispatcher.Say(ctx, request.UserID, request.Message)
	}
	if err != nil {
		if cmderr.IsKind(err, cmderr.NotFound) {
			writeError(w, h.logger, http.StatusNotFound, cmderr.UserMessage(err))
			return
		}
		h.logger.Error("Error handling chat line", "error", err, "user_id", request.UserID)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to handle message. Please try again.")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, response)
}
