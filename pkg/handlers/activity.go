package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vibeship/vibeship-engine/pkg/auth"
	"github.com/vibeship/vibeship-engine/pkg/services"
)

// ActivityHandler serves the per-project activity log.
type ActivityHandler struct {
	activityService services.ActivityService
	projectService  services.ProjectService
	logger          *zap.Logger
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(
	activityService services.ActivityService,
	projectService services.ProjectService,
	logger *zap.Logger,
) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
		projectService:  projectService,
		logger:          logger,
	}
}

// RegisterRoutes registers the activity handler's routes on the given mux.
func (h *ActivityHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/projects/{pid}/activity", authMiddleware.RequireAuth(h.List))
}

// List handles GET /api/projects/{pid}/activity
// Returns the project's activity entries, newest first. An optional
// ?limit=N query parameter caps the page size.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	project, ok := loadOwnedProject(w, r, h.projectService, h.logger)
	if !ok {
		return
	}

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

	entries, err := h.activityService.ListByProject(r.Context(), project.ID, limit)
	if err != nil {
		h.logger.Error("Failed to list activity",
			zap.String("project_id", project.ID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list activity"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: entries}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
