package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vibeship/vibeship-engine/pkg/models"
)

func TestTagCatalogService_SeedFromFile(t *testing.T) {
	repo := &mockCatalogRepo{}
	svc := NewTagCatalogService(repo, zap.NewNop())

	seedPath := filepath.Join(t.TempDir(), "seed.yaml")
	seed := `models:
  - Claude Sonnet
  - GPT-4o
frameworks:
  - Next.js
tools:
  - Cursor
  - Claude Code
`
	require.NoError(t, os.WriteFile(seedPath, []byte(seed), 0o644))
	require.NoError(t, svc.SeedFromFile(context.Background(), seedPath))

	modelTags, err := svc.Search(context.Background(), models.TagTypeModel, "", 0)
	require.NoError(t, err)
	assert.Len(t, modelTags, 2)

	tools, err := svc.Search(context.Background(), models.TagTypeTool, "cl", 0)
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "Claude Code", tools[0].TagValue)
}

func TestTagCatalogService_SeedFromFile_Missing(t *testing.T) {
	repo := &mockCatalogRepo{}
	svc := NewTagCatalogService(repo, zap.NewNop())

	// A missing seed file is a warning, not a startup failure.
	assert.NoError(t, svc.SeedFromFile(context.Background(), "/nonexistent/seed.yaml"))
	assert.NoError(t, svc.SeedFromFile(context.Background(), ""))
}

func TestTagCatalogService_SeedFromFile_Malformed(t *testing.T) {
	repo := &mockCatalogRepo{}
	svc := NewTagCatalogService(repo, zap.NewNop())

	seedPath := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte("models: {not: a list}"), 0o644))
	assert.Error(t, svc.SeedFromFile(context.Background(), seedPath))
}

func TestTagCatalogService_RecordTags_Dedupes(t *testing.T) {
	repo := &mockCatalogRepo{}
	svc := NewTagCatalogService(repo, zap.NewNop())

	tags := []models.ProjectTag{{TagType: models.TagTypeTool, TagValue: "Cursor"}}
	svc.RecordTags(context.Background(), tags)
	svc.RecordTags(context.Background(), tags)

	found, err := svc.Search(context.Background(), models.TagTypeTool, "", 0)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestTagCatalogService_Search_LimitClamped(t *testing.T) {
	repo := &mockCatalogRepo{}
	svc := NewTagCatalogService(repo, zap.NewNop())

	var tags []models.ProjectTag
	for i := 0; i < 30; i++ {
		tags = append(tags, models.ProjectTag{
			TagType:  models.TagTypeFramework,
			TagValue: fmt.Sprintf("framework-%02d", i),
		})
	}
	svc.RecordTags(context.Background(), tags)

	found, err := svc.Search(context.Background(), models.TagTypeFramework, "", 0)
	require.NoError(t, err)
	assert.Len(t, found, 20)
}
