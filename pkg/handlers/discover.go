package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vibeship/vibeship-engine/pkg/services"
)

// DiscoverHandler serves the public project feed.
type DiscoverHandler struct {
	projectService services.ProjectService
	logger         *zap.Logger
}

// NewDiscoverHandler creates a new discover handler.
func NewDiscoverHandler(projectService services.ProjectService, logger *zap.Logger) *DiscoverHandler {
	return &DiscoverHandler{projectService: projectService, logger: logger}
}

// RegisterRoutes registers the discover handler's routes on the given mux.
func (h *DiscoverHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/discover", h.List)
}

// List handles GET /api/discover
// Returns public projects ordered by recent activity. Unauthenticated;
// only projects flagged is_public appear, and API keys are never
// serialized.
func (h *DiscoverHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		limit = parsed
	}

	projects, err := h.projectService.ListPublic(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list public projects", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list projects"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: projects}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
