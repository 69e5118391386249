package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vibeship/vibeship-engine/pkg/apperrors"
	"github.com/vibeship/vibeship-engine/pkg/auth"
	"github.com/vibeship/vibeship-engine/pkg/models"
	"github.com/vibeship/vibeship-engine/pkg/services"
)

// ImportRepoRequest is the request body for POST /api/projects/{pid}/github/import.
type ImportRepoRequest struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// GitHubImportHandler handles linking projects to GitHub repositories
// and manual stat syncs.
type GitHubImportHandler struct {
	importService  services.GitHubImportService
	projectService services.ProjectService
	logger         *zap.Logger
}

// NewGitHubImportHandler creates a new GitHub import handler.
func NewGitHubImportHandler(
	importService services.GitHubImportService,
	projectService services.ProjectService,
	logger *zap.Logger,
) *GitHubImportHandler {
	return &GitHubImportHandler{
		importService:  importService,
		projectService: projectService,
		logger:         logger,
	}
}

// RegisterRoutes registers the GitHub import handler's routes on the given mux.
func (h *GitHubImportHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/projects/{pid}/github/import", authMiddleware.RequireAuth(h.Import))
	mux.HandleFunc("POST /api/projects/{pid}/github/sync", authMiddleware.RequireAuth(h.Sync))
	mux.HandleFunc("GET /api/github/repos", authMiddleware.RequireAuth(h.ListRepos))
}

// Import handles POST /api/projects/{pid}/github/import
// Links a repository to the project and performs an initial stat sync.
func (h *GitHubImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	project, ok := loadOwnedProject(w, r, h.projectService, h.logger)
	if !ok {
		return
	}

	var req ImportRepoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Owner == "" || req.Repo == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "owner and repo are required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	ctx := models.WithHumanActor(r.Context(), project.OwnerID, requestIP(r))
	updated, err := h.importService.ImportRepo(ctx, project.ID, req.Owner, req.Repo)
	if err != nil {
		h.logger.Error("Failed to import repository",
			zap.String("project_id", project.ID.String()),
			zap.String("owner", req.Owner),
			zap.String("repo", req.Repo),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusBadGateway, "import_failed", "Failed to import repository from GitHub"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: updated}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Sync handles POST /api/projects/{pid}/github/sync
// Refreshes the project's cached stats from the GitHub REST API.
func (h *GitHubImportHandler) Sync(w http.ResponseWriter, r *http.Request) {
	project, ok := loadOwnedProject(w, r, h.projectService, h.logger)
	if !ok {
		return
	}

	ctx := models.WithHumanActor(r.Context(), project.OwnerID, requestIP(r))
	if err := h.importService.SyncStats(ctx, project.ID); err != nil {
		if errors.Is(err, apperrors.ErrRepoNotLinked) {
			if err := ErrorResponse(w, http.StatusBadRequest, "repo_not_linked", "Project has no linked GitHub repository"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to sync repository stats",
			zap.String("project_id", project.ID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusBadGateway, "sync_failed", "Failed to sync stats from GitHub"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListRepos handles GET /api/github/repos?owner=<login>&limit=N
// Lists a GitHub user's repositories for the import picker.
func (h *GitHubImportHandler) ListRepos(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "owner query parameter is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
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

	repos, err := h.importService.ListCandidates(r.Context(), owner, limit)
	if err != nil {
		h.logger.Error("Failed to list repositories",
			zap.String("owner", owner),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusBadGateway, "list_failed", "Failed to list repositories from GitHub"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: repos}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
