package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vibeship/vibeship-engine/pkg/apperrors"
	"github.com/vibeship/vibeship-engine/pkg/auth"
	"github.com/vibeship/vibeship-engine/pkg/models"
	"github.com/vibeship/vibeship-engine/pkg/services"
)

// CreateProjectRequest is the request body for POST /api/projects.
type CreateProjectRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	IsPublic    bool                `json:"is_public"`
	Tags        []models.ProjectTag `json:"tags,omitempty"`
}

// UpdateProjectRequest is the request body for PATCH /api/projects/{pid}.
// Absent fields are left untouched.
type UpdateProjectRequest struct {
	Name            *string              `json:"name,omitempty"`
	Description     *string              `json:"description,omitempty"`
	Status          *string              `json:"status,omitempty"`
	IsPublic        *bool                `json:"is_public,omitempty"`
	AutosyncEnabled *bool                `json:"autosync_enabled,omitempty"`
	WebhooksEnabled *bool                `json:"webhooks_enabled,omitempty"`
	WhereILeftOff   *string              `json:"where_i_left_off,omitempty"`
	LessonsLearned  *string              `json:"lessons_learned,omitempty"`
	Tags            *[]models.ProjectTag `json:"tags,omitempty"`
}

// ProjectWithTags is the detail response for a single project.
type ProjectWithTags struct {
	*models.Project
	Tags models.GroupedTags `json:"tags"`
}

// ProjectsHandler handles owner-facing project HTTP requests.
type ProjectsHandler struct {
	projectService services.ProjectService
	logger         *zap.Logger
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(projectService services.ProjectService, logger *zap.Logger) *ProjectsHandler {
	return &ProjectsHandler{
		projectService: projectService,
		logger:         logger,
	}
}

// RegisterRoutes registers the projects handler's routes on the given mux.
func (h *ProjectsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/projects", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /api/projects", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/projects/{pid}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PATCH /api/projects/{pid}", authMiddleware.RequireAuth(h.Update))
	mux.HandleFunc("DELETE /api/projects/{pid}", authMiddleware.RequireAuth(h.Delete))
}

// ownerID extracts the authenticated user ID from JWT claims.
// Writes an error response and returns false when the subject is
// missing or not a UUID.
func (h *ProjectsHandler) ownerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	subject, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_user_id", "Invalid user ID format in token"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return userID, true
}

// ownedProject loads a project from the path and verifies the caller
// owns it.
func (h *ProjectsHandler) ownedProject(w http.ResponseWriter, r *http.Request) (*models.Project, bool) {
	return loadOwnedProject(w, r, h.projectService, h.logger)
}

// loadOwnedProject loads a project from the {pid} path parameter and
// verifies the authenticated user owns it. Shared by every owner-facing
// handler. Not-found and not-owned both report 404 so project IDs are
// not probeable.
func loadOwnedProject(w http.ResponseWriter, r *http.Request, projectService services.ProjectService, logger *zap.Logger) (*models.Project, bool) {
	subject, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return nil, false
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_user_id", "Invalid user ID format in token"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return nil, false
	}

	projectID, ok := ParseProjectID(w, r, logger)
	if !ok {
		return nil, false
	}

	project, err := projectService.Get(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Project not found"); err != nil {
				logger.Error("Failed to write error response", zap.Error(err))
			}
			return nil, false
		}
		logger.Error("Failed to get project",
			zap.String("project_id", projectID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to get project"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return nil, false
	}

	if project.OwnerID != userID {
		if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Project not found"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return nil, false
	}

	return project, true
}

// Create handles POST /api/projects
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Project name is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	project := &models.Project{
		OwnerID:     userID,
		Name:        req.Name,
		Description: req.Description,
		Status:      models.StatusActive,
		IsPublic:    req.IsPublic,
	}

	ctx := models.WithHumanActor(r.Context(), userID, requestIP(r))
	if err := h.projectService.Create(ctx, project); err != nil {
		if errors.Is(err, apperrors.ErrSlugTaken) {
			if err := ErrorResponse(w, http.StatusConflict, "slug_taken", "A project with this name already exists"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to create project", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to create project"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if len(req.Tags) > 0 {
		if err := h.projectService.ReplaceTags(ctx, project.ID, req.Tags); err != nil {
			if errors.Is(err, apperrors.ErrInvalidTag) {
				if err := ErrorResponse(w, http.StatusBadRequest, "invalid_tag", "Each tag requires a known tag_type and non-empty tag_value"); err != nil {
					h.logger.Error("Failed to write error response", zap.Error(err))
				}
				return
			}
			h.logger.Error("Failed to set initial tags",
				zap.String("project_id", project.ID.String()),
				zap.Error(err))
		}
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: project}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/projects
// Returns every project owned by the authenticated user.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.ownerID(w, r)
	if !ok {
		return
	}

	projects, err := h.projectService.ListByOwner(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list projects",
			zap.String("owner_id", userID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to list projects"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: projects}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/projects/{pid}
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, ok := h.ownedProject(w, r)
	if !ok {
		return
	}

	project, tags, err := h.projectService.GetWithTags(r.Context(), project.ID)
	if err != nil {
		h.logger.Error("Failed to load project tags",
			zap.String("project_id", project.ID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to get project"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ProjectWithTags{Project: project, Tags: models.GroupTags(tags)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PATCH /api/projects/{pid}
// Owners may change any field; the agent-API allow-list does not apply
// here.
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	project, ok := h.ownedProject(w, r)
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_json", "Request body must be a JSON object"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if req.Name != nil {
		project.Name = *req.Name
		project.Slug = services.Slugify(*req.Name)
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Status != nil {
		project.Status = models.ProjectStatus(*req.Status)
	}
	if req.IsPublic != nil {
		project.IsPublic = *req.IsPublic
	}
	if req.AutosyncEnabled != nil {
		project.AutosyncEnabled = *req.AutosyncEnabled
	}
	if req.WebhooksEnabled != nil {
		project.WebhooksEnabled = *req.WebhooksEnabled
	}
	if req.WhereILeftOff != nil {
		project.WhereILeftOff = *req.WhereILeftOff
	}
	if req.LessonsLearned != nil {
		project.LessonsLearned = *req.LessonsLearned
	}

	ctx := models.WithHumanActor(r.Context(), project.OwnerID, requestIP(r))

	if err := h.projectService.Update(ctx, project); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInvalidStatus):
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_status", "Status must be one of active, paused, shipped, graveyard"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		case errors.Is(err, apperrors.ErrSlugTaken):
			if err := ErrorResponse(w, http.StatusConflict, "slug_taken", "A project with this name already exists"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		default:
			h.logger.Error("Failed to update project",
				zap.String("project_id", project.ID.String()),
				zap.Error(err))
			if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to update project"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
		}
		return
	}

	if req.Tags != nil {
		if err := h.projectService.ReplaceTags(ctx, project.ID, *req.Tags); err != nil {
			if errors.Is(err, apperrors.ErrInvalidTag) {
				if err := ErrorResponse(w, http.StatusBadRequest, "invalid_tag", "Each tag requires a known tag_type and non-empty tag_value"); err != nil {
					h.logger.Error("Failed to write error response", zap.Error(err))
				}
				return
			}
			h.logger.Error("Failed to replace tags",
				zap.String("project_id", project.ID.String()),
				zap.Error(err))
			if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to update tags"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: project}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/projects/{pid}
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	project, ok := h.ownedProject(w, r)
	if !ok {
		return
	}

	if err := h.projectService.Delete(r.Context(), project.ID); err != nil {
		h.logger.Error("Failed to delete project",
			zap.String("project_id", project.ID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to delete project"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
