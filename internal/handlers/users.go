package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/table-assist/pkg/storage"
)

type UsersHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewUsersHandler(storage storage.Storage, logger *slog.Logger) *UsersHandler {
	return &UsersHandler{storage: storage, logger: logger}
}

// ServeHTTP handles GET /v1/users
func (h *UsersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, h.logger, http.MethodGet)
		return
	}
	users, err := h.storage.Users(r.Context())
	if err != nil {
		h.logger.Error("Error listing users", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list users")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, users)
}
