package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vibeship/vibeship-engine/pkg/apperrors"
	"github.com/vibeship/vibeship-engine/pkg/models"
	"github.com/vibeship/vibeship-engine/pkg/services"
)

// AgentUpdateResponse is the response for PATCH /api/v1/project.
type AgentUpdateResponse struct {
	Success     bool      `json:"success"`
	Updated     []string  `json:"updated"`
	TagsUpdated bool      `json:"tags_updated"`
	Timestamp   time.Time `json:"timestamp"`
}

// ScreenshotUploadResponse is the response for POST /api/v1/project/screenshot.
type ScreenshotUploadResponse struct {
	Success bool   `json:"success"`
	Path    string `json:"path"`
}

// AgentAPIHandler serves the API-key-authenticated project surface
// used by AI assistants.
type AgentAPIHandler struct {
	apiKeyService     services.APIKeyService
	projectService    services.ProjectService
	screenshotService services.ScreenshotService
	activityService   services.ActivityService
	logger            *zap.Logger
}

// NewAgentAPIHandler creates a new agent API handler.
func NewAgentAPIHandler(
	apiKeyService services.APIKeyService,
	projectService services.ProjectService,
	screenshotService services.ScreenshotService,
	activityService services.ActivityService,
	logger *zap.Logger,
) *AgentAPIHandler {
	return &AgentAPIHandler{
		apiKeyService:     apiKeyService,
		projectService:    projectService,
		screenshotService: screenshotService,
		activityService:   activityService,
		logger:            logger,
	}
}

// RegisterRoutes registers the agent API handler's routes on the given mux.
func (h *AgentAPIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/project", h.GetProject)
	mux.HandleFunc("PATCH /api/v1/project", h.UpdateProject)
	mux.HandleFunc("POST /api/v1/project/screenshot", h.UploadScreenshot)
}

// authenticate resolves the project from the Authorization header.
// On failure it writes a 401 with the specific reason and returns nil.
// All key failures are 401 — the reason string distinguishes a missing
// header from a bad key for the developer reading the response.
func (h *AgentAPIHandler) authenticate(w http.ResponseWriter, r *http.Request) *models.Project {
	result, err := h.apiKeyService.Authenticate(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		reason := "Authentication failed"
		if result != nil && result.Reason != "" {
			reason = result.Reason
		}
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", reason); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return nil
	}
	return result.Project
}

// requestIP extracts the client IP from the request, dropping the port.
func requestIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// GetProject handles GET /api/v1/project
// Returns the full project context for the key's project. Reads are
// recorded in the activity log but do not bump last activity.
func (h *AgentAPIHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	project := h.authenticate(w, r)
	if project == nil {
		return
	}

	project, tags, err := h.projectService.GetWithTags(r.Context(), project.ID)
	if err != nil {
		h.logger.Error("Failed to load project context",
			zap.String("project_id", project.ID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to load project"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	ctx := models.WithAgentActor(r.Context(), requestIP(r))
	h.activityService.Record(ctx, project.ID, models.ActionRead, nil)

	response := services.FormatProjectContext(project, tags)
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateProject handles PATCH /api/v1/project
// Applies an allow-listed field update. The whole body is validated
// before anything is written; one bad field rejects the request.
func (h *AgentAPIHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	project := h.authenticate(w, r)
	if project == nil {
		return
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_json", "Request body must be a JSON object"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	update, err := h.projectService.ParseAgentUpdate(raw)
	if err != nil {
		var vErr *services.ValidationError
		if errors.As(err, &vErr) {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_update", vErr.Message); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_update", "Invalid update"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	ctx := models.WithAgentActor(r.Context(), requestIP(r))
	result, err := h.projectService.ApplyAgentUpdate(ctx, project.ID, update)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Project not found"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to apply agent update",
			zap.String("project_id", project.ID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to update project"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := AgentUpdateResponse{
		Success:     true,
		Updated:     result.UpdatedFields,
		TagsUpdated: result.TagsUpdated,
		Timestamp:   time.Now().UTC(),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// screenshotRequest is the request body for POST /api/v1/project/screenshot.
// The documented field is "image"; "screenshot" is accepted as an alias.
type screenshotRequest struct {
	Image      string `json:"image"`
	Screenshot string `json:"screenshot"`
}

func (r screenshotRequest) dataURI() string {
	if r.Image != "" {
		return r.Image
	}
	return r.Screenshot
}

// UploadScreenshot handles POST /api/v1/project/screenshot
// Accepts a base64 data URI and stores it as the project screenshot.
func (h *AgentAPIHandler) UploadScreenshot(w http.ResponseWriter, r *http.Request) {
	project := h.authenticate(w, r)
	if project == nil {
		return
	}

	var req screenshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.dataURI() == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Body must contain an image data URI"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	ctx := models.WithAgentActor(r.Context(), requestIP(r))
	path, err := h.screenshotService.Upload(ctx, project, req.dataURI())
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrImageTooLarge):
			if err := ErrorResponse(w, http.StatusBadRequest, "image_too_large", "Screenshot exceeds the maximum allowed size"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		case errors.Is(err, apperrors.ErrInvalidImage):
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_image", "Screenshot must be a base64 image data URI"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		default:
			h.logger.Error("Failed to store screenshot",
				zap.String("project_id", project.ID.String()),
				zap.Error(err))
			if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to store screenshot"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ScreenshotUploadResponse{Success: true, Path: path}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
