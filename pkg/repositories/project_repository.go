// Package repositories contains the PostgreSQL data access layer.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vibeship/vibeship-engine/pkg/apperrors"
	"github.com/vibeship/vibeship-engine/pkg/database"
	"github.com/vibeship/vibeship-engine/pkg/models"
)

// projectColumns is the column list every project SELECT uses, in scan order.
const projectColumns = `
	id, owner_id, name, slug, description, status, is_public,
	github_repo_id, github_url,
	github_stars, github_forks, github_open_issues, github_language, stats_synced_at,
	autosync_enabled, webhooks_enabled,
	where_i_left_off, lessons_learned,
	api_key, screenshot_path,
	created_at, updated_at, last_activity_at`

// ProjectRepository defines the interface for project data access.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
	GetByAPIKey(ctx context.Context, apiKey string) (*models.Project, error)
	GetByOwnerAndSlug(ctx context.Context, ownerID uuid.UUID, slug string) (*models.Project, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Project, error)
	ListByGitHubRepoID(ctx context.Context, repoID int64) ([]*models.Project, error)
	ListPublic(ctx context.Context, limit int) ([]*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	UpdateStats(ctx context.Context, id uuid.UUID, stats models.RepoStats, syncedAt time.Time) error
	SetAPIKey(ctx context.Context, id uuid.UUID, key *string) error
	SetScreenshotPath(ctx context.Context, id uuid.UUID, path string) error
	TouchLastActivity(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// projectRepository implements ProjectRepository using PostgreSQL.
type projectRepository struct {
	db *database.DB
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db *database.DB) ProjectRepository {
	return &projectRepository{db: db}
}

var _ ProjectRepository = (*projectRepository)(nil)

// Create inserts a new project.
func (r *projectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}

	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now
	project.LastActivityAt = now
	if project.Status == "" {
		project.Status = models.StatusActive
	}

	query := `
		INSERT INTO projects (
			id, owner_id, name, slug, description, status, is_public,
			github_repo_id, github_url, autosync_enabled, webhooks_enabled,
			where_i_left_off, lessons_learned,
			created_at, updated_at, last_activity_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.db.Exec(ctx, query,
		project.ID,
		project.OwnerID,
		project.Name,
		project.Slug,
		project.Description,
		project.Status,
		project.IsPublic,
		project.GitHubRepoID,
		project.GitHubURL,
		project.AutosyncEnabled,
		project.WebhooksEnabled,
		project.WhereILeftOff,
		project.LessonsLearned,
		project.CreatedAt,
		project.UpdatedAt,
		project.LastActivityAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrSlugTaken
		}
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// Get retrieves a project by ID.
func (r *projectRepository) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

// GetByAPIKey resolves a project by its live bearer key. Revoked keys
// (null column) never match.
func (r *projectRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE api_key = $1`
	return r.scanOne(ctx, query, apiKey)
}

// GetByOwnerAndSlug retrieves a project by its owner-scoped slug.
func (r *projectRepository) GetByOwnerAndSlug(ctx context.Context, ownerID uuid.UUID, slug string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE owner_id = $1 AND slug = $2`
	return r.scanOne(ctx, query, ownerID, slug)
}

// ListByOwner returns all of an owner's projects, most recently active first.
func (r *projectRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE owner_id = $1 ORDER BY last_activity_at DESC`
	return r.scanMany(ctx, query, ownerID)
}

// ListByGitHubRepoID returns all projects linked to a GitHub repository.
// Multiple projects may subscribe to the same repository.
func (r *projectRepository) ListByGitHubRepoID(ctx context.Context, repoID int64) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE github_repo_id = $1`
	return r.scanMany(ctx, query, repoID)
}

// ListPublic returns public projects for the discovery feed, most
// recently active first.
func (r *projectRepository) ListPublic(ctx context.Context, limit int) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE is_public ORDER BY last_activity_at DESC LIMIT $1`
	return r.scanMany(ctx, query, limit)
}

// Update rewrites the owner-editable columns of a project.
func (r *projectRepository) Update(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now()

	query := `
		UPDATE projects
		SET name = $2, slug = $3, description = $4, status = $5, is_public = $6,
		    github_repo_id = $7, github_url = $8,
		    autosync_enabled = $9, webhooks_enabled = $10,
		    where_i_left_off = $11, lessons_learned = $12,
		    updated_at = $13, last_activity_at = $13
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query,
		project.ID,
		project.Name,
		project.Slug,
		project.Description,
		project.Status,
		project.IsPublic,
		project.GitHubRepoID,
		project.GitHubURL,
		project.AutosyncEnabled,
		project.WebhooksEnabled,
		project.WhereILeftOff,
		project.LessonsLearned,
		project.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrSlugTaken
		}
		return fmt.Errorf("failed to update project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// allowedUpdateColumns are the columns UpdateFields may touch. The
// field-update filter validates field names before they reach here;
// this list is the second line of defense against SQL injection via
// column names.
var allowedUpdateColumns = map[string]string{
	"where_i_left_off": "where_i_left_off",
	"lessons_learned":  "lessons_learned",
	"status":           "status",
	"description":      "description",
}

// UpdateFields applies a filtered map of column updates and stamps both
// updated_at and last_activity_at.
func (r *projectRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return apperrors.ErrNoValidFields
	}

	setClauses := ""
	args := []any{id}
	i := 2
	for name, value := range fields {
		column, ok := allowedUpdateColumns[name]
		if !ok {
			return fmt.Errorf("column %q is not updatable", name)
		}
		setClauses += fmt.Sprintf("%s = $%d, ", column, i)
		args = append(args, value)
		i++
	}

	now := time.Now()
	args = append(args, now)
	query := fmt.Sprintf(
		`UPDATE projects SET %supdated_at = $%d, last_activity_at = $%d WHERE id = $1`,
		setClauses, i, i,
	)

	result, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update project fields: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// UpdateStats idempotently overwrites the cached repository counters and
// stamps stats_synced_at and last_activity_at. Last writer wins.
func (r *projectRepository) UpdateStats(ctx context.Context, id uuid.UUID, stats models.RepoStats, syncedAt time.Time) error {
	query := `
		UPDATE projects
		SET github_stars = $2, github_forks = $3, github_open_issues = $4,
		    github_language = COALESCE($5, github_language),
		    stats_synced_at = $6, last_activity_at = $6
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, stats.Stars, stats.Forks, stats.OpenIssues, stats.Language, syncedAt)
	if err != nil {
		return fmt.Errorf("failed to update project stats: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// SetAPIKey stores or revokes (nil) the project's bearer key.
func (r *projectRepository) SetAPIKey(ctx context.Context, id uuid.UUID, key *string) error {
	result, err := r.db.Exec(ctx, `UPDATE projects SET api_key = $2, updated_at = now() WHERE id = $1`, id, key)
	if err != nil {
		return fmt.Errorf("failed to set API key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// SetScreenshotPath records the stored screenshot location and stamps
// updated_at and last_activity_at.
func (r *projectRepository) SetScreenshotPath(ctx context.Context, id uuid.UUID, path string) error {
	query := `UPDATE projects SET screenshot_path = $2, updated_at = now(), last_activity_at = now() WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id, path)
	if err != nil {
		return fmt.Errorf("failed to set screenshot path: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// TouchLastActivity bumps last_activity_at to now. Called alongside
// activity log appends for mutating operations.
func (r *projectRepository) TouchLastActivity(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `UPDATE projects SET last_activity_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to touch last activity: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete removes a project by ID.
// Tags and activity log entries are deleted via CASCADE.
func (r *projectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *projectRepository) scanOne(ctx context.Context, query string, args ...any) (*models.Project, error) {
	row := r.db.QueryRow(ctx, query, args...)
	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

func (r *projectRepository) scanMany(ctx context.Context, query string, args ...any) ([]*models.Project, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	return projects, nil
}

// scanProject scans one project row in projectColumns order.
func scanProject(row pgx.Row) (*models.Project, error) {
	var p models.Project
	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Status,
		&p.IsPublic,
		&p.GitHubRepoID,
		&p.GitHubURL,
		&p.GitHubStars,
		&p.GitHubForks,
		&p.GitHubOpenIssues,
		&p.GitHubLanguage,
		&p.StatsSyncedAt,
		&p.AutosyncEnabled,
		&p.WebhooksEnabled,
		&p.WhereILeftOff,
		&p.LessonsLearned,
		&p.APIKey,
		&p.ScreenshotPath,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.LastActivityAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
