package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/vibeship/vibeship-engine/pkg/database"
	"github.com/vibeship/vibeship-engine/pkg/models"
)

// ActivityLogRepository provides data access for the append-only
// activity log. Entries are never updated or deleted by the application.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLogEntry) error
	ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]*models.ActivityLogEntry, error)
}

type activityLogRepository struct {
	db *database.DB
}

// NewActivityLogRepository creates a new activity log repository.
func NewActivityLogRepository(db *database.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

var _ ActivityLogRepository = (*activityLogRepository)(nil)

// Create appends one activity log entry.
func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal details: %w", err)
	}

	query := `
		INSERT INTO activity_log (id, project_id, action, details, actor, request_ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`

	_, err = r.db.Exec(ctx, query,
		entry.ID,
		entry.ProjectID,
		entry.Action,
		details,
		entry.Actor,
		entry.RequestIP,
	)
	if err != nil {
		return fmt.Errorf("failed to create activity log entry: %w", err)
	}

	return nil
}

// ListByProject returns a project's activity, newest first.
func (r *activityLogRepository) ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]*models.ActivityLogEntry, error) {
	query := `
		SELECT id, project_id, action, details, actor, request_ip, created_at
		FROM activity_log
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity log: %w", err)
	}
	defer rows.Close()

	var entries []*models.ActivityLogEntry
	for rows.Next() {
		var e models.ActivityLogEntry
		var details []byte
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Action, &details, &e.Actor, &e.RequestIP, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity log entry: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal details: %w", err)
			}
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity log: %w", err)
	}

	return entries, nil
}
