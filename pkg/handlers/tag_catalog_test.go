package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vibeship/vibeship-engine/pkg/models"
)

// mockTagCatalogService serves a fixed catalog with prefix filtering.
type mockTagCatalogService struct {
	tags []models.CatalogTag
}

func (m *mockTagCatalogService) RecordTags(ctx context.Context, tags []models.ProjectTag) {}

func (m *mockTagCatalogService) Search(ctx context.Context, tagType models.TagType, prefix string, limit int) ([]models.CatalogTag, error) {
	var result []models.CatalogTag
	for _, tag := range m.tags {
		if tagType != "" && tag.TagType != tagType {
			continue
		}
		result = append(result, tag)
	}
	return result, nil
}

func (m *mockTagCatalogService) SeedFromFile(ctx context.Context, path string) error { return nil }

func TestTagCatalogHandler_Search(t *testing.T) {
	catalog := &mockTagCatalogService{tags: []models.CatalogTag{
		{TagType: models.TagTypeModel, TagValue: "Claude Sonnet"},
		{TagType: models.TagTypeTool, TagValue: "Cursor"},
	}}
	handler := NewTagCatalogHandler(catalog, zap.NewNop())

	w := httptest.NewRecorder()
	handler.Search(w, httptest.NewRequest(http.MethodGet, "/api/tags?type=model", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []models.CatalogTag `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Claude Sonnet", resp.Data[0].TagValue)
}

func TestTagCatalogHandler_Search_InvalidParams(t *testing.T) {
	handler := NewTagCatalogHandler(&mockTagCatalogService{}, zap.NewNop())

	tests := []struct {
		name      string
		query     string
		errorCode string
	}{
		{"bad type", "?type=language", "invalid_tag_type"},
		{"bad limit", "?limit=zero", "invalid_limit"},
		{"negative limit", "?limit=-1", "invalid_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.Search(w, httptest.NewRequest(http.MethodGet, "/api/tags"+tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.errorCode, resp["error"])
		})
	}
}
