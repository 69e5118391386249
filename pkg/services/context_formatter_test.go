package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibeship/vibeship-engine/pkg/models"
)

func strPtr(s string) *string { return &s }

func formatterProject() *models.Project {
	return &models.Project{
		ID:             uuid.New(),
		OwnerID:        uuid.New(),
		Name:           "Side Quest",
		Slug:           "side-quest",
		Description:    "A tracker for side projects",
		Status:         models.StatusActive,
		WhereILeftOff:  "wiring the webhook router",
		LessonsLearned: "ship smaller slices",
		CreatedAt:      time.Now().Add(-48 * time.Hour),
		UpdatedAt:      time.Now(),
		LastActivityAt: time.Now(),
	}
}

func TestFormatProjectContext(t *testing.T) {
	project := formatterProject()
	tags := []models.ProjectTag{
		{TagType: models.TagTypeModel, TagValue: "Claude Sonnet"},
		{TagType: models.TagTypeFramework, TagValue: "Next.js"},
		{TagType: models.TagTypeTool, TagValue: "Cursor"},
	}

	ctx := FormatProjectContext(project, tags)

	assert.Equal(t, project.ID.String(), ctx.ID)
	assert.Equal(t, "side-quest", ctx.Slug)
	assert.Equal(t, "wiring the webhook router", ctx.WhereILeftOff)
	assert.Equal(t, []string{"Claude Sonnet"}, ctx.Tags.Models)
	assert.Equal(t, []string{"Next.js"}, ctx.Tags.Frameworks)
	assert.Equal(t, []string{"Cursor"}, ctx.Tags.Tools)

	// No linked repository means no stats block at all, not a zeroed
	// one.
	assert.Nil(t, ctx.GitHubStats)
}

func TestFormatProjectContext_WithGitHubStats(t *testing.T) {
	project := formatterProject()
	project.GitHubRepoID = int64Ptr(42)
	project.GitHubURL = strPtr("https://github.com/alice/side-quest")
	project.GitHubStars = 17
	project.GitHubForks = 3
	project.GitHubLanguage = strPtr("Go")

	ctx := FormatProjectContext(project, nil)

	require.NotNil(t, ctx.GitHubStats)
	assert.Equal(t, 17, ctx.GitHubStats.Stars)
	assert.Equal(t, 3, ctx.GitHubStats.Forks)
	assert.Equal(t, "Go", *ctx.GitHubStats.Language)
	assert.Equal(t, "https://github.com/alice/side-quest", *ctx.GitHubURL)
}

func TestFormatAgentPrompt(t *testing.T) {
	project := formatterProject()
	key := "vs_" + "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	project.APIKey = &key
	tags := []models.ProjectTag{
		{TagType: models.TagTypeModel, TagValue: "GPT-4o"},
	}

	t.Run("masked by default", func(t *testing.T) {
		prompt := FormatAgentPrompt(project, tags, "https://vibeship.dev", false)
		assert.NotContains(t, prompt, key)
		assert.Contains(t, prompt, "vs_0...cdef")
		assert.Contains(t, prompt, "# Project: Side Quest")
		assert.Contains(t, prompt, "https://vibeship.dev/api/v1/project")
		assert.Contains(t, prompt, "Models: GPT-4o")
		assert.Contains(t, prompt, "Writable fields: where_i_left_off, lessons_learned, status, description, tags.")
	})

	t.Run("revealed on request", func(t *testing.T) {
		prompt := FormatAgentPrompt(project, tags, "https://vibeship.dev", true)
		assert.Contains(t, prompt, key)
	})

	t.Run("no key yet", func(t *testing.T) {
		bare := formatterProject()
		prompt := FormatAgentPrompt(bare, nil, "https://vibeship.dev", true)
		assert.Contains(t, prompt, "no API key")
	})
}
