package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vibeship/vibeship-engine/pkg/apperrors"
	"github.com/vibeship/vibeship-engine/pkg/auth"
	"github.com/vibeship/vibeship-engine/pkg/models"
	"github.com/vibeship/vibeship-engine/pkg/services"
)

// mockAuthService validates a single static token mapping to a fixed
// subject. Lets owner-API tests go through the real auth middleware.
type mockAuthService struct {
	token   string
	subject string
}

func (m *mockAuthService) ValidateRequest(r *http.Request) (*auth.Claims, string, error) {
	header := r.Header.Get("Authorization")
	if header != "Bearer "+m.token {
		return nil, "", auth.ErrMissingAuthorization
	}
	claims := &auth.Claims{}
	claims.Subject = m.subject
	return claims, m.token, nil
}

func (m *mockAuthService) RequireUserID(claims *auth.Claims) error {
	if claims.Subject == "" {
		return auth.ErrMissingUserID
	}
	return nil
}

// mockWebhookService returns a canned result or error from Process and
// records what it was called with.
type mockWebhookService struct {
	result *services.WebhookResult
	err    error

	gotEventType string
	gotBody      []byte
}

func (m *mockWebhookService) Process(ctx context.Context, eventType string, body []byte) (*services.WebhookResult, error) {
	m.gotEventType = eventType
	m.gotBody = body
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &services.WebhookResult{}, nil
}

// mockAPIKeyService authenticates exactly one configured key.
type mockAPIKeyService struct {
	key      string
	project  *models.Project
	genCount int
}

func (m *mockAPIKeyService) Generate(ctx context.Context, projectID uuid.UUID) (string, error) {
	m.genCount++
	m.key = fmt.Sprintf("vs_%064d", m.genCount)
	return m.key, nil
}

func (m *mockAPIKeyService) Get(ctx context.Context, projectID uuid.UUID) (string, error) {
	return m.key, nil
}

func (m *mockAPIKeyService) Revoke(ctx context.Context, projectID uuid.UUID) error {
	m.key = ""
	return nil
}

func (m *mockAPIKeyService) Authenticate(ctx context.Context, header string) (*services.AuthResult, error) {
	if header == "" {
		return &services.AuthResult{Reason: "Missing Authorization header"}, apperrors.ErrMissingAPIKey
	}
	if m.key != "" && header == "Bearer "+m.key {
		return &services.AuthResult{Project: m.project}, nil
	}
	return &services.AuthResult{Reason: "Invalid API key"}, apperrors.ErrInvalidAPIKey
}

// mockProjectService is a configurable ProjectService for handler
// tests. Unset hooks fall through to zero-value behavior.
type mockProjectService struct {
	projects map[uuid.UUID]*models.Project
	tags     map[uuid.UUID][]models.ProjectTag

	createErr  error
	updateErr  error
	applyErr   error
	parseErr   error
	lastUpdate *services.AgentUpdate
	applied    []uuid.UUID
}

func newMockProjectService(projects ...*models.Project) *mockProjectService {
	m := &mockProjectService{
		projects: make(map[uuid.UUID]*models.Project),
		tags:     make(map[uuid.UUID][]models.ProjectTag),
	}
	for _, p := range projects {
		m.projects[p.ID] = p
	}
	return m
}

func (m *mockProjectService) Create(ctx context.Context, project *models.Project) error {
	if m.createErr != nil {
		return m.createErr
	}
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	if project.Slug == "" {
		project.Slug = services.Slugify(project.Name)
	}
	m.projects[project.ID] = project
	return nil
}

func (m *mockProjectService) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return p, nil
}

func (m *mockProjectService) GetWithTags(ctx context.Context, id uuid.UUID) (*models.Project, []models.ProjectTag, error) {
	p, err := m.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return p, m.tags[id], nil
}

func (m *mockProjectService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Project, error) {
	var result []*models.Project
	for _, p := range m.projects {
		if p.OwnerID == ownerID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *mockProjectService) ListPublic(ctx context.Context, limit int) ([]*models.Project, error) {
	var result []*models.Project
	for _, p := range m.projects {
		if p.IsPublic {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *mockProjectService) Update(ctx context.Context, project *models.Project) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.projects[project.ID] = project
	return nil
}

func (m *mockProjectService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.projects[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *mockProjectService) ReplaceTags(ctx context.Context, projectID uuid.UUID, tags []models.ProjectTag) error {
	for _, tag := range tags {
		if !tag.TagType.IsValid() {
			return apperrors.ErrInvalidTag
		}
	}
	m.tags[projectID] = tags
	return nil
}

func (m *mockProjectService) ParseAgentUpdate(raw map[string]json.RawMessage) (*services.AgentUpdate, error) {
	if m.parseErr != nil {
		return nil, m.parseErr
	}
	// Delegate to the real parser so handler tests exercise real
	// validation messages. Parsing is pure; the nil collaborators are
	// never touched.
	return services.NewProjectService(nil, nil, nil, nil, zap.NewNop()).ParseAgentUpdate(raw)
}

func (m *mockProjectService) ApplyAgentUpdate(ctx context.Context, projectID uuid.UUID, update *services.AgentUpdate) (*services.UpdateResult, error) {
	if m.applyErr != nil {
		return nil, m.applyErr
	}
	m.lastUpdate = update
	m.applied = append(m.applied, projectID)

	result := &services.UpdateResult{UpdatedFields: []string{}}
	for name := range update.Fields {
		result.UpdatedFields = append(result.UpdatedFields, name)
	}
	result.TagsUpdated = update.TagsPresent
	return result, nil
}

// mockScreenshotService returns a canned path or error.
type mockScreenshotService struct {
	path string
	err  error
}

func (m *mockScreenshotService) Upload(ctx context.Context, project *models.Project, dataURI string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.path, nil
}

// mockActivityService records calls without persistence.
type mockActivityService struct {
	recorded []string
	entries  []*models.ActivityLogEntry
}

func (m *mockActivityService) Record(ctx context.Context, projectID uuid.UUID, action string, details map[string]any) {
	m.recorded = append(m.recorded, action)
}

func (m *mockActivityService) RecordAndTouch(ctx context.Context, projectID uuid.UUID, action string, details map[string]any) {
	m.recorded = append(m.recorded, action)
}

func (m *mockActivityService) ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]*models.ActivityLogEntry, error) {
	return m.entries, nil
}
