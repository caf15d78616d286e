package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/table-assist/internal/services"
)

type ModelsResponse struct {
	Models []string `json:"models"`
}

type ModelsHandler struct {
	llmService services.LLMService
	logger     *slog.Logger
}

func NewModelsHandler(llmService services.LLMService, logger *slog.Logger) *ModelsHandler {
	return &ModelsHandler{llmService: llmService, logger: logger}
}

// ServeHTTP handles GET /v1/models
func (h *ModelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, h.logger, http.MethodGet)
		return
	}
	models, err := h.llmService.ListModels(r.Context())
	if err != nil {
		h.logger.Error("Error listing models", "error", err)
		writeError(w, h.logger, http.StatusBadGateway, "Failed to fetch models")
		return
	}
	if models == nil {
		models = []string{}
	}
	writeJSON(w, h.logger, http.StatusOK, ModelsResponse{Models: models})
}
