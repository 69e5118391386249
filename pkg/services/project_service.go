package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vibeship/vibeship-engine/pkg/apperrors"
	"github.com/vibeship/vibeship-engine/pkg/models"
	"github.com/vibeship/vibeship-engine/pkg/repositories"
)

// agentWritableFields is the allow-list of project fields the agent API
// may write. Anything else in a PATCH body is silently ignored unless
// the body contains nothing writable at all.
var agentWritableFields = map[string]bool{
	"where_i_left_off": true,
	"lessons_learned":  true,
	"status":           true,
	"description":      true,
}

// AgentUpdate is a validated, filtered PATCH body for the agent API.
type AgentUpdate struct {
	// Fields maps allow-listed column names to their new values.
	Fields map[string]any

	// Tags is the replacement tag set; meaningful only when TagsPresent.
	Tags        []models.ProjectTag
	TagsPresent bool
}

// UpdateResult reports what an applied update changed.
type UpdateResult struct {
	UpdatedFields []string
	TagsUpdated   bool
}

// ValidationError is a request-shape failure: the update was rejected
// before any mutation, and the message is safe to return to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ProjectService provides project CRUD and the agent-facing
// field-update path.
type ProjectService interface {
	Create(ctx context.Context, project *models.Project) error
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
	GetWithTags(ctx context.Context, id uuid.UUID) (*models.Project, []models.ProjectTag, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Project, error)
	ListPublic(ctx context.Context, limit int) ([]*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ReplaceTags swaps the project's full tag set, feeds the
	// autocomplete catalog, and bumps last activity.
	ReplaceTags(ctx context.Context, projectID uuid.UUID, tags []models.ProjectTag) error

	// ParseAgentUpdate validates an untrusted PATCH body against the
	// field allow-list and tag schema. Returns a ValidationError for
	// any rejection; no partial result is ever produced.
	ParseAgentUpdate(raw map[string]json.RawMessage) (*AgentUpdate, error)

	// ApplyAgentUpdate applies a parsed update, replaces tags when
	// present, stamps timestamps, and records one activity entry whose
	// action encodes the changed fields.
	ApplyAgentUpdate(ctx context.Context, projectID uuid.UUID, update *AgentUpdate) (*UpdateResult, error)
}

type projectService struct {
	projectRepo repositories.ProjectRepository
	tagRepo     repositories.ProjectTagRepository
	catalog     TagCatalogService
	activity    ActivityService
	logger      *zap.Logger
}

// NewProjectService creates a new project service.
func NewProjectService(
	projectRepo repositories.ProjectRepository,
	tagRepo repositories.ProjectTagRepository,
	catalog TagCatalogService,
	activity ActivityService,
	logger *zap.Logger,
) ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		tagRepo:     tagRepo,
		catalog:     catalog,
		activity:    activity,
		logger:      logger.Named("project-service"),
	}
}

var _ ProjectService = (*projectService)(nil)

func (s *projectService) Create(ctx context.Context, project *models.Project) error {
	if project.Status != "" && !project.Status.IsValid() {
		return apperrors.ErrInvalidStatus
	}
	if project.Slug == "" {
		project.Slug = Slugify(project.Name)
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return err
	}

	s.activity.Record(ctx, project.ID, models.ActionCreateProject, map[string]any{
		"name": project.Name,
		"slug": project.Slug,
	})

	return nil
}

func (s *projectService) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return s.projectRepo.Get(ctx, id)
}

func (s *projectService) GetWithTags(ctx context.Context, id uuid.UUID) (*models.Project, []models.ProjectTag, error) {
	project, err := s.projectRepo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	tags, err := s.tagRepo.ListByProject(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return project, tags, nil
}

func (s *projectService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Project, error) {
	return s.projectRepo.ListByOwner(ctx, ownerID)
}

func (s *projectService) ListPublic(ctx context.Context, limit int) ([]*models.Project, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.projectRepo.ListPublic(ctx, limit)
}

func (s *projectService) Update(ctx context.Context, project *models.Project) error {
	if !project.Status.IsValid() {
		return apperrors.ErrInvalidStatus
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return err
	}

	s.activity.Record(ctx, project.ID, "update_project", nil)
	return nil
}

func (s *projectService) Delete(ctx context.Context, id uuid.UUID) error {
	// The activity entry would cascade away with the project, so there
	// is nothing to log after a successful delete.
	return s.projectRepo.Delete(ctx, id)
}

func (s *projectService) ReplaceTags(ctx context.Context, projectID uuid.UUID, tags []models.ProjectTag) error {
	for _, tag := range tags {
		if !tag.TagType.IsValid() || tag.TagValue == "" {
			return apperrors.ErrInvalidTag
		}
	}

	if err := s.tagRepo.ReplaceAll(ctx, projectID, tags); err != nil {
		return err
	}
	s.catalog.RecordTags(ctx, tags)
	if err := s.projectRepo.TouchLastActivity(ctx, projectID); err != nil {
		return err
	}

	s.activity.Record(ctx, projectID, models.ActionUpdateTags, map[string]any{
		"tag_count": len(tags),
	})
	return nil
}

// ParseAgentUpdate enforces the write allow-list and tag schema on an
// untrusted JSON object. Rules:
//   - status, if present, must be one of the known enum values.
//   - any other allow-listed field must be a string or null.
//   - tags, if present, must be a list of {tag_type, tag_value} objects
//     with non-empty values and a known tag_type.
//   - a body with neither writable fields nor tags is rejected.
//
// Rejection happens before any mutation; partial updates never occur.
func (s *projectService) ParseAgentUpdate(raw map[string]json.RawMessage) (*AgentUpdate, error) {
	update := &AgentUpdate{Fields: make(map[string]any)}

	for name, value := range raw {
		if name == "tags" {
			tags, err := parseTags(value)
			if err != nil {
				return nil, err
			}
			update.Tags = tags
			update.TagsPresent = true
			continue
		}

		if !agentWritableFields[name] {
			continue
		}

		if name == "status" {
			var status string
			if err := json.Unmarshal(value, &status); err != nil {
				return nil, &ValidationError{Message: fmt.Sprintf(
					"Invalid status: must be one of %s", strings.Join(models.ValidStatuses(), ", "))}
			}
			if !models.ProjectStatus(status).IsValid() {
				return nil, &ValidationError{Message: fmt.Sprintf(
					"Invalid status %q: must be one of %s", status, strings.Join(models.ValidStatuses(), ", "))}
			}
			update.Fields[name] = status
			continue
		}

		// Remaining allow-listed fields accept a string or null.
		var str *string
		if err := json.Unmarshal(value, &str); err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("Field %q must be a string or null", name)}
		}
		if str == nil {
			update.Fields[name] = ""
		} else {
			update.Fields[name] = *str
		}
	}

	if len(update.Fields) == 0 && !update.TagsPresent {
		return nil, &ValidationError{Message: "No valid fields to update"}
	}

	return update, nil
}

// parseTags validates the tags array of an agent update.
func parseTags(raw json.RawMessage) ([]models.ProjectTag, error) {
	var items []struct {
		TagType  string `json:"tag_type"`
		TagValue string `json:"tag_value"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &ValidationError{Message: "tags must be an array of {tag_type, tag_value} objects"}
	}

	tags := make([]models.ProjectTag, 0, len(items))
	for _, item := range items {
		if item.TagType == "" || item.TagValue == "" {
			return nil, &ValidationError{Message: "Each tag requires a non-empty tag_type and tag_value"}
		}
		tagType := models.TagType(item.TagType)
		if !tagType.IsValid() {
			return nil, &ValidationError{Message: fmt.Sprintf(
				"Invalid tag_type %q: must be one of model, framework, tool", item.TagType)}
		}
		tags = append(tags, models.ProjectTag{TagType: tagType, TagValue: item.TagValue})
	}

	return tags, nil
}

// ApplyAgentUpdate applies the parsed update as described on the
// interface. Field updates and tag replacement each stamp updated_at
// and last_activity_at through their repository paths.
func (s *projectService) ApplyAgentUpdate(ctx context.Context, projectID uuid.UUID, update *AgentUpdate) (*UpdateResult, error) {
	result := &UpdateResult{UpdatedFields: []string{}}

	if len(update.Fields) > 0 {
		if err := s.projectRepo.UpdateFields(ctx, projectID, update.Fields); err != nil {
			return nil, err
		}
		for name := range update.Fields {
			result.UpdatedFields = append(result.UpdatedFields, name)
		}
		sort.Strings(result.UpdatedFields)
	}

	if update.TagsPresent {
		if err := s.tagRepo.ReplaceAll(ctx, projectID, update.Tags); err != nil {
			return nil, err
		}
		result.TagsUpdated = true

		// Newly coined tag values feed the global autocomplete catalog.
		s.catalog.RecordTags(ctx, update.Tags)

		if len(update.Fields) == 0 {
			// Tag-only updates bypass UpdateFields, which would have
			// stamped last_activity_at.
			if err := s.projectRepo.TouchLastActivity(ctx, projectID); err != nil {
				return nil, err
			}
		}
	}

	s.activity.Record(ctx, projectID, updateActionLabel(result), map[string]any{
		"updated_fields": result.UpdatedFields,
		"tags_updated":   result.TagsUpdated,
	})

	return result, nil
}

// updateActionLabel encodes the changed fields into the activity action
// label, e.g. "update_status_where_i_left_off" or "update_tags".
func updateActionLabel(result *UpdateResult) string {
	parts := append([]string{}, result.UpdatedFields...)
	if result.TagsUpdated {
		parts = append(parts, "tags")
	}
	return "update_" + strings.Join(parts, "_")
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a project name: lowercase, runs of
// non-alphanumerics collapsed to single hyphens, trimmed.
func Slugify(name string) string {
	slug := strings.ToLower(name)
	slug = slugPattern.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "project"
	}
	return slug
}
