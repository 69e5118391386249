// Package services contains the business logic of vibeship-engine.
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vibeship/vibeship-engine/pkg/models"
	"github.com/vibeship/vibeship-engine/pkg/repositories"
)

// ActivityService appends audit records of actions taken against
// projects. Appends are fire-and-forget: a failed log write is reported
// to the server log and swallowed, never propagated — audit-trail loss
// must not block the primary operation.
type ActivityService interface {
	// Record appends an activity entry. Actor identity is taken from
	// the context (see models.WithActor); absent identity degrades to a
	// human actor rather than failing.
	Record(ctx context.Context, projectID uuid.UUID, action string, details map[string]any)

	// RecordAndTouch appends an activity entry and bumps the project's
	// last_activity_at. Use for every mutating operation: "activity" is
	// defined as "things that update last_activity_at".
	RecordAndTouch(ctx context.Context, projectID uuid.UUID, action string, details map[string]any)

	// ListByProject returns a project's activity, newest first.
	ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]*models.ActivityLogEntry, error)
}

type activityService struct {
	repo        repositories.ActivityLogRepository
	projectRepo repositories.ProjectRepository
	logger      *zap.Logger
}

// NewActivityService creates a new ActivityService.
func NewActivityService(
	repo repositories.ActivityLogRepository,
	projectRepo repositories.ProjectRepository,
	logger *zap.Logger,
) ActivityService {
	return &activityService{
		repo:        repo,
		projectRepo: projectRepo,
		logger:      logger.Named("activity-service"),
	}
}

var _ ActivityService = (*activityService)(nil)

func (s *activityService) Record(ctx context.Context, projectID uuid.UUID, action string, details map[string]any) {
	actor := models.ActorOrUnknown(ctx)

	entry := &models.ActivityLogEntry{
		ProjectID: projectID,
		Action:    action,
		Details:   details,
		Actor:     actor.Actor,
	}
	if actor.RequestIP != "" {
		entry.RequestIP = &actor.RequestIP
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to write activity log entry",
			zap.String("project_id", projectID.String()),
			zap.String("action", action),
			zap.Error(err))
	}
}

func (s *activityService) RecordAndTouch(ctx context.Context, projectID uuid.UUID, action string, details map[string]any) {
	s.Record(ctx, projectID, action, details)

	if err := s.projectRepo.TouchLastActivity(ctx, projectID); err != nil {
		s.logger.Error("Failed to bump last activity",
			zap.String("project_id", projectID.String()),
			zap.String("action", action),
			zap.Error(err))
	}
}

func (s *activityService) ListByProject(ctx context.Context, projectID uuid.UUID, limit int) ([]*models.ActivityLogEntry, error) {
	if limit <= 0 {
		limit = 100 // Default limit
	}

	entries, err := s.repo.ListByProject(ctx, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("get activity log entries: %w", err)
	}

	return entries, nil
}
