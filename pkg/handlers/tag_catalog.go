package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vibeship/vibeship-engine/pkg/models"
	"github.com/vibeship/vibeship-engine/pkg/services"
)

// TagCatalogHandler serves tag autocomplete queries.
type TagCatalogHandler struct {
	catalog services.TagCatalogService
	logger  *zap.Logger
}

// NewTagCatalogHandler creates a new tag catalog handler.
func NewTagCatalogHandler(catalog services.TagCatalogService, logger *zap.Logger) *TagCatalogHandler {
	return &TagCatalogHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes registers the tag catalog handler's routes on the given mux.
func (h *TagCatalogHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tags", h.Search)
}

// Search handles GET /api/tags?q=<prefix>&type=<tag_type>&limit=N
// Returns catalog tags matching the prefix. The catalog is global and
// non-sensitive, so no authentication.
func (h *TagCatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var tagType models.TagType
	if raw := query.Get("type"); raw != "" {
		tagType = models.TagType(raw)
		if !tagType.IsValid() {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_tag_type", "type must be one of model, framework, tool"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
	}

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		limit = parsed
	}

	tags, err := h.catalog.Search(r.Context(), tagType, query.Get("q"), limit)
	if err != nil {
		h.logger.Error("Failed to search tag catalog", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "Failed to search tags"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: tags}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
