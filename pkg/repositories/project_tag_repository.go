package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vibeship/vibeship-engine/pkg/database"
	"github.com/vibeship/vibeship-engine/pkg/models"
)

// ProjectTagRepository defines the interface for project tag data access.
type ProjectTagRepository interface {
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ProjectTag, error)

	// ReplaceAll deletes the project's existing tags and inserts the
	// supplied set as a single transaction. Tag replacement is total,
	// not incremental.
	ReplaceAll(ctx context.Context, projectID uuid.UUID, tags []models.ProjectTag) error
}

type projectTagRepository struct {
	db *database.DB
}

// NewProjectTagRepository creates a new project tag repository.
func NewProjectTagRepository(db *database.DB) ProjectTagRepository {
	return &projectTagRepository{db: db}
}

var _ ProjectTagRepository = (*projectTagRepository)(nil)

// ListByProject returns a project's tags in insertion order.
func (r *projectTagRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ProjectTag, error) {
	query := `
		SELECT id, project_id, tag_type, tag_value, created_at
		FROM project_tags
		WHERE project_id = $1
		ORDER BY created_at, tag_value`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project tags: %w", err)
	}
	defer rows.Close()

	var tags []models.ProjectTag
	for rows.Next() {
		var t models.ProjectTag
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.TagType, &t.TagValue, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project tag: %w", err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate project tags: %w", err)
	}

	return tags, nil
}

// ReplaceAll replaces the project's tag set atomically. Delete and
// insert run in one transaction so a failed insert cannot leave the
// project tagless.
func (r *projectTagRepository) ReplaceAll(ctx context.Context, projectID uuid.UUID, tags []models.ProjectTag) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tag replacement: %w", err)
	}
	defer tx.Rollback(ctx) // no-op if committed

	if _, err := tx.Exec(ctx, `DELETE FROM project_tags WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("failed to delete existing tags: %w", err)
	}

	now := time.Now()
	for _, tag := range tags {
		id := tag.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO project_tags (id, project_id, tag_type, tag_value, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (project_id, tag_type, tag_value) DO NOTHING`,
			id, projectID, tag.TagType, tag.TagValue, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert tag %s/%s: %w", tag.TagType, tag.TagValue, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit tag replacement: %w", err)
	}

	return nil
}
