package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/vibeship/vibeship-engine/pkg/auth"
	"github.com/vibeship/vibeship-engine/pkg/config"
	"github.com/vibeship/vibeship-engine/pkg/logging"
	"github.com/vibeship/vibeship-engine/pkg/services"
)

// GetAPIKeyResponse is the response for GET /api/projects/{pid}/api-key.
type GetAPIKeyResponse struct {
	Key    string `json:"key"`    // Masked or full key depending on ?reveal=true
	Masked bool   `json:"masked"` // Whether key is masked
	Prompt string `json:"prompt"` // Copy-paste setup prompt for an AI assistant
}

// RegenerateAPIKeyResponse is the response for POST /api/projects/{pid}/api-key/regenerate.
type RegenerateAPIKeyResponse struct {
	Key string `json:"key"` // New unmasked key
}

// APIKeyHandler handles project API key HTTP requests.
type APIKeyHandler struct {
	apiKeyService  services.APIKeyService
	projectService services.ProjectService
	cfg            *config.Config
	logger         *zap.Logger
}

// NewAPIKeyHandler creates a new API key handler.
func NewAPIKeyHandler(
	apiKeyService services.APIKeyService,
	projectService services.ProjectService,
	cfg *config.Config,
	logger *zap.Logger,
) *APIKeyHandler {
	return &APIKeyHandler{
		apiKeyService:  apiKeyService,
		projectService: projectService,
		cfg:            cfg,
		logger:         logger,
	}
}

// RegisterRoutes registers the API key handler's routes on the given mux.
func (h *APIKeyHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	keyBase := "/api/projects/{pid}/api-key"

	mux.HandleFunc("GET "+keyBase, authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("POST "+keyBase+"/regenerate", authMiddleware.RequireAuth(h.Regenerate))
	mux.HandleFunc("DELETE "+keyBase, authMiddleware.RequireAuth(h.Revoke))
}

// Get handles GET /api/projects/{pid}/api-key
// Returns the project API key (masked by default, or full key with
// ?reveal=true) together with a ready-to-paste assistant prompt.
// Auto-generates a key if one doesn't exist.
func (h *APIKeyHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, ok := loadOwnedProject(w, r, h.projectService, h.logger)
	if !ok {
		return
	}

	key, err := h.apiKeyService.Get(r.Context(), project.ID)
	if err != nil {
		h.logger.Error("Failed to get API key",
			zap.String("project_id", project.ID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to get API key"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	// Generate key if it doesn't exist
	if key == "" {
		key, err = h.apiKeyService.Generate(r.Context(), project.ID)
		if err != nil {
			h.logger.Error("Failed to generate API key",
				zap.String("project_id", project.ID.String()),
				zap.Error(err))
			if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to generate API key"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
	}

	reveal := r.URL.Query().Get("reveal") == "true"

	responseKey := key
	masked := false
	if !reveal {
		responseKey = logging.MaskKey(key)
		masked = true
	} else {
		// Audit log: key was revealed
		h.logger.Info("Project API key revealed",
			zap.String("project_id", project.ID.String()))
	}

	project.APIKey = &key
	_, tags, err := h.projectService.GetWithTags(r.Context(), project.ID)
	if err != nil {
		h.logger.Error("Failed to load project tags",
			zap.String("project_id", project.ID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to get API key"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ApiResponse{
		Success: true,
		Data: GetAPIKeyResponse{
			Key:    responseKey,
			Masked: masked,
			Prompt: services.FormatAgentPrompt(project, tags, h.cfg.BaseURL, reveal),
		},
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Regenerate handles POST /api/projects/{pid}/api-key/regenerate
// Generates a new key, invalidating any previous key.
func (h *APIKeyHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	project, ok := loadOwnedProject(w, r, h.projectService, h.logger)
	if !ok {
		return
	}

	newKey, err := h.apiKeyService.Generate(r.Context(), project.ID)
	if err != nil {
		h.logger.Error("Failed to regenerate API key",
			zap.String("project_id", project.ID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to regenerate API key"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ApiResponse{
		Success: true,
		Data: RegenerateAPIKeyResponse{
			Key: newKey,
		},
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Revoke handles DELETE /api/projects/{pid}/api-key
// Nulls the key; agent API calls with the old key fail from this point.
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	project, ok := loadOwnedProject(w, r, h.projectService, h.logger)
	if !ok {
		return
	}

	if err := h.apiKeyService.Revoke(r.Context(), project.ID); err != nil {
		h.logger.Error("Failed to revoke API key",
			zap.String("project_id", project.ID.String()),
			zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to revoke API key"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
