package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vibeship/vibeship-engine/pkg/apperrors"
	"github.com/vibeship/vibeship-engine/pkg/models"
)

type projectServiceFixture struct {
	svc          ProjectService
	repo         *mockProjectRepo
	tagRepo      *mockTagRepo
	activityRepo *mockActivityRepo
}

func newProjectServiceFixture(projects ...*models.Project) *projectServiceFixture {
	repo := newMockProjectRepo(projects...)
	tagRepo := newMockTagRepo()
	activityRepo := &mockActivityRepo{}
	catalog := NewTagCatalogService(&mockCatalogRepo{}, zap.NewNop())
	activity := NewActivityService(activityRepo, repo, zap.NewNop())
	return &projectServiceFixture{
		svc:          NewProjectService(repo, tagRepo, catalog, activity, zap.NewNop()),
		repo:         repo,
		tagRepo:      tagRepo,
		activityRepo: activityRepo,
	}
}

func rawBody(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"My Cool Project", "my-cool-project"},
		{"  spaced   out  ", "spaced-out"},
		{"C++ & Go!", "c-go"},
		{"already-slugged", "already-slugged"},
		{"UPPER", "upper"},
		{"日本語", "project"},
		{"", "project"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.name), "Slugify(%q)", tt.name)
	}
}

func TestProjectService_Create(t *testing.T) {
	f := newProjectServiceFixture()
	ownerID := uuid.New()

	project := &models.Project{OwnerID: ownerID, Name: "My Cool Project", Status: models.StatusActive}
	require.NoError(t, f.svc.Create(context.Background(), project))
	assert.Equal(t, "my-cool-project", project.Slug)
	assert.Contains(t, f.activityRepo.actionsFor(project.ID), models.ActionCreateProject)

	// Same owner, same derived slug.
	dup := &models.Project{OwnerID: ownerID, Name: "My Cool Project", Status: models.StatusActive}
	assert.ErrorIs(t, f.svc.Create(context.Background(), dup), apperrors.ErrSlugTaken)

	bad := &models.Project{OwnerID: ownerID, Name: "Other", Status: "launched"}
	assert.ErrorIs(t, f.svc.Create(context.Background(), bad), apperrors.ErrInvalidStatus)
}

func TestProjectService_ParseAgentUpdate(t *testing.T) {
	f := newProjectServiceFixture()

	t.Run("valid fields", func(t *testing.T) {
		update, err := f.svc.ParseAgentUpdate(rawBody(t, `{
			"where_i_left_off": "refactoring auth",
			"status": "paused",
			"unknown_field": "ignored"
		}`))
		require.NoError(t, err)
		assert.Equal(t, "refactoring auth", update.Fields["where_i_left_off"])
		assert.Equal(t, "paused", update.Fields["status"])
		assert.NotContains(t, update.Fields, "unknown_field")
		assert.False(t, update.TagsPresent)
	})

	t.Run("null clears a field", func(t *testing.T) {
		update, err := f.svc.ParseAgentUpdate(rawBody(t, `{"lessons_learned": null}`))
		require.NoError(t, err)
		assert.Equal(t, "", update.Fields["lessons_learned"])
	})

	t.Run("only unknown fields", func(t *testing.T) {
		_, err := f.svc.ParseAgentUpdate(rawBody(t, `{"name": "nope", "owner_id": "nope"}`))
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "No valid fields to update", vErr.Message)
	})

	t.Run("empty body", func(t *testing.T) {
		_, err := f.svc.ParseAgentUpdate(rawBody(t, `{}`))
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("invalid status rejects whole body", func(t *testing.T) {
		_, err := f.svc.ParseAgentUpdate(rawBody(t, `{
			"where_i_left_off": "valid part",
			"status": "launched"
		}`))
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Message, `Invalid status "launched"`)
		assert.Contains(t, vErr.Message, "active")
		assert.Contains(t, vErr.Message, "graveyard")
	})

	t.Run("non-string field value", func(t *testing.T) {
		_, err := f.svc.ParseAgentUpdate(rawBody(t, `{"description": 42}`))
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Message, `"description" must be a string or null`)
	})

	t.Run("valid tags", func(t *testing.T) {
		update, err := f.svc.ParseAgentUpdate(rawBody(t, `{
			"tags": [
				{"tag_type": "model", "tag_value": "Claude Sonnet"},
				{"tag_type": "framework", "tag_value": "Next.js"}
			]
		}`))
		require.NoError(t, err)
		assert.True(t, update.TagsPresent)
		require.Len(t, update.Tags, 2)
		assert.Equal(t, models.TagTypeModel, update.Tags[0].TagType)
	})

	t.Run("empty tags array clears tags", func(t *testing.T) {
		update, err := f.svc.ParseAgentUpdate(rawBody(t, `{"tags": []}`))
		require.NoError(t, err)
		assert.True(t, update.TagsPresent)
		assert.Empty(t, update.Tags)
	})

	t.Run("invalid tag type", func(t *testing.T) {
		_, err := f.svc.ParseAgentUpdate(rawBody(t, `{
			"tags": [{"tag_type": "language", "tag_value": "Go"}]
		}`))
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Message, `Invalid tag_type "language"`)
	})

	t.Run("tag missing value", func(t *testing.T) {
		_, err := f.svc.ParseAgentUpdate(rawBody(t, `{
			"tags": [{"tag_type": "tool", "tag_value": ""}]
		}`))
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("tags not an array", func(t *testing.T) {
		_, err := f.svc.ParseAgentUpdate(rawBody(t, `{"tags": "model"}`))
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
	})
}

func TestProjectService_ApplyAgentUpdate(t *testing.T) {
	t.Run("fields only", func(t *testing.T) {
		project := &models.Project{ID: uuid.New(), Name: "demo", Status: models.StatusActive}
		f := newProjectServiceFixture(project)

		update, err := f.svc.ParseAgentUpdate(rawBody(t, `{
			"status": "shipped",
			"where_i_left_off": "done!"
		}`))
		require.NoError(t, err)

		ctx := models.WithAgentActor(context.Background(), "203.0.113.7")
		result, err := f.svc.ApplyAgentUpdate(ctx, project.ID, update)
		require.NoError(t, err)

		// Field names are reported sorted, and the action label encodes
		// them.
		assert.Equal(t, []string{"status", "where_i_left_off"}, result.UpdatedFields)
		assert.False(t, result.TagsUpdated)
		assert.Equal(t, models.StatusShipped, project.Status)
		assert.Equal(t, "done!", project.WhereILeftOff)

		actions := f.activityRepo.actionsFor(project.ID)
		require.Len(t, actions, 1)
		assert.Equal(t, "update_status_where_i_left_off", actions[0])
		assert.Equal(t, models.ActorAIAgent, f.activityRepo.entries[0].Actor)
	})

	t.Run("tags only touches last activity", func(t *testing.T) {
		project := &models.Project{ID: uuid.New(), Name: "demo", Status: models.StatusActive}
		f := newProjectServiceFixture(project)

		update, err := f.svc.ParseAgentUpdate(rawBody(t, `{
			"tags": [{"tag_type": "tool", "tag_value": "Cursor"}]
		}`))
		require.NoError(t, err)

		result, err := f.svc.ApplyAgentUpdate(context.Background(), project.ID, update)
		require.NoError(t, err)

		assert.Empty(t, result.UpdatedFields)
		assert.True(t, result.TagsUpdated)
		assert.Equal(t, []uuid.UUID{project.ID}, f.repo.touched)

		tags, err := f.tagRepo.ListByProject(context.Background(), project.ID)
		require.NoError(t, err)
		require.Len(t, tags, 1)
		assert.Equal(t, "Cursor", tags[0].TagValue)

		actions := f.activityRepo.actionsFor(project.ID)
		require.Len(t, actions, 1)
		assert.Equal(t, "update_tags", actions[0])
	})

	t.Run("fields and tags", func(t *testing.T) {
		project := &models.Project{ID: uuid.New(), Name: "demo", Status: models.StatusActive}
		f := newProjectServiceFixture(project)

		update, err := f.svc.ParseAgentUpdate(rawBody(t, `{
			"description": "a tracker",
			"tags": [{"tag_type": "model", "tag_value": "GPT-4o"}]
		}`))
		require.NoError(t, err)

		result, err := f.svc.ApplyAgentUpdate(context.Background(), project.ID, update)
		require.NoError(t, err)
		assert.Equal(t, []string{"description"}, result.UpdatedFields)
		assert.True(t, result.TagsUpdated)

		// UpdateFields already stamped last_activity_at; no extra touch.
		assert.Empty(t, f.repo.touched)

		actions := f.activityRepo.actionsFor(project.ID)
		require.Len(t, actions, 1)
		assert.Equal(t, "update_description_tags", actions[0])
	})

	t.Run("unknown project", func(t *testing.T) {
		f := newProjectServiceFixture()
		update := &AgentUpdate{Fields: map[string]any{"description": "x"}}
		_, err := f.svc.ApplyAgentUpdate(context.Background(), uuid.New(), update)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestProjectService_ReplaceTags(t *testing.T) {
	project := &models.Project{ID: uuid.New(), Name: "demo", Status: models.StatusActive}
	f := newProjectServiceFixture(project)

	err := f.svc.ReplaceTags(context.Background(), project.ID, []models.ProjectTag{
		{TagType: "genre", TagValue: "rpg"},
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTag)

	err = f.svc.ReplaceTags(context.Background(), project.ID, []models.ProjectTag{
		{TagType: models.TagTypeFramework, TagValue: "Next.js"},
		{TagType: models.TagTypeTool, TagValue: "Claude Code"},
	})
	require.NoError(t, err)

	tags, err := f.tagRepo.ListByProject(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Len(t, tags, 2)
	assert.Contains(t, f.activityRepo.actionsFor(project.ID), models.ActionUpdateTags)
	assert.NotEmpty(t, f.repo.touched)
}

func TestProjectService_Update_InvalidStatus(t *testing.T) {
	project := &models.Project{ID: uuid.New(), Name: "demo", Status: models.StatusActive}
	f := newProjectServiceFixture(project)

	project.Status = "abandoned"
	assert.ErrorIs(t, f.svc.Update(context.Background(), project), apperrors.ErrInvalidStatus)
}
