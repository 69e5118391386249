package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vibeship/vibeship-engine/pkg/apperrors"
	"github.com/vibeship/vibeship-engine/pkg/models"
)

// mockProjectRepo is an in-memory ProjectRepository for service tests.
// It is safe for concurrent use because webhook fan-out hits it from
// multiple goroutines.
type mockProjectRepo struct {
	mu       sync.Mutex
	projects map[uuid.UUID]*models.Project

	// updateStatsErr forces UpdateStats failures for specific projects.
	updateStatsErr map[uuid.UUID]error

	statsUpdates  []uuid.UUID
	fieldsUpdates []map[string]any
	touched       []uuid.UUID
}

func newMockProjectRepo(projects ...*models.Project) *mockProjectRepo {
	repo := &mockProjectRepo{
		projects:       make(map[uuid.UUID]*models.Project),
		updateStatsErr: make(map[uuid.UUID]error),
	}
	for _, p := range projects {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		repo.projects[p.ID] = p
	}
	return repo
}

func (m *mockProjectRepo) Create(ctx context.Context, project *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	for _, p := range m.projects {
		if p.OwnerID == project.OwnerID && p.Slug == project.Slug {
			return apperrors.ErrSlugTaken
		}
	}
	m.projects[project.ID] = project
	return nil
}

func (m *mockProjectRepo) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return p, nil
}

func (m *mockProjectRepo) GetByAPIKey(ctx context.Context, apiKey string) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.projects {
		if p.APIKey != nil && *p.APIKey == apiKey {
			return p, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockProjectRepo) GetByOwnerAndSlug(ctx context.Context, ownerID uuid.UUID, slug string) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.projects {
		if p.OwnerID == ownerID && p.Slug == slug {
			return p, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockProjectRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Project
	for _, p := range m.projects {
		if p.OwnerID == ownerID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *mockProjectRepo) ListByGitHubRepoID(ctx context.Context, repoID int64) ([]*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Project
	for _, p := range m.projects {
		if p.GitHubRepoID != nil && *p.GitHubRepoID == repoID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *mockProjectRepo) ListPublic(ctx context.Context, limit int) ([]*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Project
	for _, p := range m.projects {
		if p.IsPublic {
			result = append(result, p)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockProjectRepo) Update(ctx context.Context, project *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[project.ID]; !ok {
		return apperrors.ErrNotFound
	}
	m.projects[project.ID] = project
	return nil
}

func (m *mockProjectRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	for name, value := range fields {
		switch name {
		case "where_i_left_off":
			p.WhereILeftOff = value.(string)
		case "lessons_learned":
			p.LessonsLearned = value.(string)
		case "status":
			p.Status = models.ProjectStatus(value.(string))
		case "description":
			p.Description = value.(string)
		}
	}
	now := time.Now()
	p.UpdatedAt = now
	p.LastActivityAt = now
	m.fieldsUpdates = append(m.fieldsUpdates, fields)
	return nil
}

func (m *mockProjectRepo) UpdateStats(ctx context.Context, id uuid.UUID, stats models.RepoStats, syncedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.updateStatsErr[id]; err != nil {
		return err
	}
	p, ok := m.projects[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	p.GitHubStars = stats.Stars
	p.GitHubForks = stats.Forks
	p.GitHubOpenIssues = stats.OpenIssues
	if stats.Language != nil {
		p.GitHubLanguage = stats.Language
	}
	p.StatsSyncedAt = &syncedAt
	p.LastActivityAt = syncedAt
	m.statsUpdates = append(m.statsUpdates, id)
	return nil
}

func (m *mockProjectRepo) SetAPIKey(ctx context.Context, id uuid.UUID, key *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	p.APIKey = key
	return nil
}

func (m *mockProjectRepo) SetScreenshotPath(ctx context.Context, id uuid.UUID, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	p.ScreenshotPath = path
	return nil
}

func (m *mockProjectRepo) TouchLastActivity(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	p.LastActivityAt = time.Now()
	m.touched = append(m.touched, id)
	return nil
}

func (m *mockProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *mockProjectRepo) statUpdateCount(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, u := range m.statsUpdates {
		if u == id {
			count++
		}
	}
	return count
}

// mockActivityRepo is an in-memory ActivityLogRepository.
type mockActivityRepo struct {
	mu      sync.Mutex
	entries []*models.ActivityLogEntry
}

func (m *mockActivityRepo) Create(ctx context.Context, entry *models.ActivityLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockActivityRepo) ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]*models.ActivityLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.ActivityLogEntry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].ProjectID == projectID {
			result = append(result, m.entries[i])
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockActivityRepo) actionsFor(projectID uuid.UUID) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var actions []string
	for _, e := range m.entries {
		if e.ProjectID == projectID {
			actions = append(actions, e.Action)
		}
	}
	return actions
}

// mockTagRepo is an in-memory ProjectTagRepository.
type mockTagRepo struct {
	mu   sync.Mutex
	tags map[uuid.UUID][]models.ProjectTag
}

func newMockTagRepo() *mockTagRepo {
	return &mockTagRepo{tags: make(map[uuid.UUID][]models.ProjectTag)}
}

func (m *mockTagRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ProjectTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tags[projectID], nil
}

func (m *mockTagRepo) ReplaceAll(ctx context.Context, projectID uuid.UUID, tags []models.ProjectTag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[projectID] = tags
	return nil
}

// mockCatalogRepo is an in-memory TagCatalogRepository.
type mockCatalogRepo struct {
	mu   sync.Mutex
	tags []models.CatalogTag
}

func (m *mockCatalogRepo) Upsert(ctx context.Context, tags []models.ProjectTag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tag := range tags {
		known := false
		for _, existing := range m.tags {
			if existing.TagType == tag.TagType && existing.TagValue == tag.TagValue {
				known = true
				break
			}
		}
		if !known {
			m.tags = append(m.tags, models.CatalogTag{
				ID:       uuid.New(),
				TagType:  tag.TagType,
				TagValue: tag.TagValue,
			})
		}
	}
	return nil
}

func (m *mockCatalogRepo) Search(ctx context.Context, tagType models.TagType, prefix string, limit int) ([]models.CatalogTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []models.CatalogTag
	for _, tag := range m.tags {
		if tagType != "" && tag.TagType != tagType {
			continue
		}
		if prefix != "" && !strings.HasPrefix(strings.ToLower(tag.TagValue), strings.ToLower(prefix)) {
			continue
		}
		result = append(result, tag)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}
