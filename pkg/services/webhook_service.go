package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vibeship/vibeship-engine/pkg/github"
	"github.com/vibeship/vibeship-engine/pkg/models"
	"github.com/vibeship/vibeship-engine/pkg/repositories"
)

// webhookFanOutLimit caps concurrent per-project processing for one
// delivery. Deliveries rarely match more than a handful of projects.
const webhookFanOutLimit = 5

// commitPreviewLimit is how many commit messages a push activity entry
// records.
const commitPreviewLimit = 3

// WebhookEvent is the closed set of GitHub event types the router
// dispatches on. Anything else takes the no-op arm.
type WebhookEvent string

const (
	EventPush        WebhookEvent = "push"
	EventRelease     WebhookEvent = "release"
	EventStar        WebhookEvent = "star"
	EventFork        WebhookEvent = "fork"
	EventIssues      WebhookEvent = "issues"
	EventPullRequest WebhookEvent = "pull_request"
)

// WebhookError is a request-shape failure detected before fan-out; the
// message maps to a 400 response.
type WebhookError struct {
	Message string
}

func (e *WebhookError) Error() string {
	return e.Message
}

// ProjectOutcome is the per-project result of processing one delivery.
type ProjectOutcome struct {
	ProjectID uuid.UUID `json:"project_id"`
	Project   string    `json:"project"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// WebhookResult summarizes one processed delivery.
type WebhookResult struct {
	Message string           `json:"message,omitempty"`
	Results []ProjectOutcome `json:"results,omitempty"`
}

// WebhookService routes verified GitHub webhook deliveries to the
// projects subscribed to the payload's repository.
type WebhookService interface {
	// Process parses the delivery, resolves subscribed projects, and
	// fans event handling out across them. A *WebhookError means the
	// request was malformed; any other error is an internal failure.
	// Per-project failures do not surface as errors — they are recorded
	// in the result so sibling projects still process.
	Process(ctx context.Context, eventType string, body []byte) (*WebhookResult, error)
}

type webhookService struct {
	projectRepo repositories.ProjectRepository
	activity    ActivityService
	logger      *zap.Logger
}

// NewWebhookService creates a new webhook service.
func NewWebhookService(
	projectRepo repositories.ProjectRepository,
	activity ActivityService,
	logger *zap.Logger,
) WebhookService {
	return &webhookService{
		projectRepo: projectRepo,
		activity:    activity,
		logger:      logger.Named("webhook-service"),
	}
}

var _ WebhookService = (*webhookService)(nil)

func (s *webhookService) Process(ctx context.Context, eventType string, body []byte) (*WebhookResult, error) {
	if eventType == "" {
		return nil, &WebhookError{Message: "Missing X-GitHub-Event header"}
	}

	var envelope github.Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &WebhookError{Message: "Invalid JSON payload"}
	}
	if envelope.Repository.ID == 0 {
		return nil, &WebhookError{Message: "Payload has no repository id"}
	}

	linked, err := s.projectRepo.ListByGitHubRepoID(ctx, envelope.Repository.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve linked projects: %w", err)
	}
	if len(linked) == 0 {
		// Most deliveries are for repos nobody tracks; that is fine.
		return &WebhookResult{Message: "No linked projects for this repository"}, nil
	}

	var enabled []*models.Project
	for _, p := range linked {
		if p.WebhooksEnabled {
			enabled = append(enabled, p)
		}
	}
	if len(enabled) == 0 {
		return &WebhookResult{Message: "Webhook processing disabled for all linked projects"}, nil
	}

	// Fan out: each project processes independently, all are awaited,
	// and one project's failure never blocks the siblings.
	outcomes := make([]ProjectOutcome, len(enabled))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(webhookFanOutLimit)

	for i, project := range enabled {
		g.Go(func() error {
			outcome := ProjectOutcome{
				ProjectID: project.ID,
				Project:   project.Name,
				Success:   true,
			}
			if err := s.processForProject(gctx, project, WebhookEvent(eventType), body); err != nil {
				s.logger.Error("Webhook processing failed for project",
					zap.String("project_id", project.ID.String()),
					zap.String("event", eventType),
					zap.Error(err))
				outcome.Success = false
				outcome.Error = err.Error()
			}
			outcomes[i] = outcome
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors; outcomes carry failures

	return &WebhookResult{Results: outcomes}, nil
}

// processForProject dispatches one event to one project.
func (s *webhookService) processForProject(ctx context.Context, project *models.Project, event WebhookEvent, body []byte) error {
	switch event {
	case EventPush:
		return s.handlePush(ctx, project, body)
	case EventRelease:
		return s.handleRelease(ctx, project, body)
	case EventStar:
		return s.handleStar(ctx, project, body)
	case EventFork:
		return s.handleFork(ctx, project, body)
	case EventIssues, EventPullRequest:
		// Only the cached issue/PR counters change.
		var payload github.RepoEventPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return fmt.Errorf("parsing %s payload: %w", event, err)
		}
		return s.syncStats(ctx, project.ID, payload.Repository)
	default:
		// Unrecognized event types are acknowledged and ignored so
		// event types GitHub adds later don't produce failures.
		s.logger.Debug("Ignoring unhandled webhook event",
			zap.String("event", string(event)),
			zap.String("project_id", project.ID.String()))
		return nil
	}
}

func (s *webhookService) handlePush(ctx context.Context, project *models.Project, body []byte) error {
	var payload github.PushPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("parsing push payload: %w", err)
	}

	commits := make([]map[string]any, 0, commitPreviewLimit)
	for i, c := range payload.Commits {
		if i == commitPreviewLimit {
			break
		}
		commits = append(commits, map[string]any{
			"message": firstLine(c.Message),
			"author":  c.Author.Name,
		})
	}

	s.activity.RecordAndTouch(ctx, project.ID, models.ActionGitHubPush, map[string]any{
		"branch":       branchFromRef(payload.Ref),
		"commit_count": len(payload.Commits),
		"commits":      commits,
		"pusher":       payload.Pusher.Name,
	})

	return nil
}

func (s *webhookService) handleRelease(ctx context.Context, project *models.Project, body []byte) error {
	var payload github.ReleasePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("parsing release payload: %w", err)
	}

	// Draft/edit churn is noise; only publication is an event worth
	// recording.
	if payload.Action != "published" {
		return nil
	}

	s.activity.RecordAndTouch(ctx, project.ID, models.ActionGitHubRelease, map[string]any{
		"tag":  payload.Release.TagName,
		"name": payload.Release.Name,
		"url":  payload.Release.HTMLURL,
	})

	return nil
}

func (s *webhookService) handleStar(ctx context.Context, project *models.Project, body []byte) error {
	var payload github.StarPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("parsing star payload: %w", err)
	}

	// The payload carries the post-event absolute counts, so both the
	// "created" and "deleted" arms reduce to the same overwrite.
	if err := s.syncStats(ctx, project.ID, payload.Repository); err != nil {
		return err
	}

	if payload.Action == "created" {
		s.activity.Record(ctx, project.ID, models.ActionGitHubStar, map[string]any{
			"user":  payload.Sender.Login,
			"stars": payload.Repository.StargazersCount,
		})
	}

	return nil
}

func (s *webhookService) handleFork(ctx context.Context, project *models.Project, body []byte) error {
	var payload github.ForkPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("parsing fork payload: %w", err)
	}

	if err := s.syncStats(ctx, project.ID, payload.Repository); err != nil {
		return err
	}

	s.activity.Record(ctx, project.ID, models.ActionGitHubFork, map[string]any{
		"user":     payload.Sender.Login,
		"fork_url": payload.Forkee.HTMLURL,
		"forks":    payload.Repository.ForksCount,
	})

	return nil
}

// syncStats idempotently overwrites the project's cached repository
// counters from the payload snapshot. Replays converge to the same
// state: these are absolute values, not deltas.
func (s *webhookService) syncStats(ctx context.Context, projectID uuid.UUID, repo github.Repository) error {
	stats := models.RepoStats{
		Stars:      repo.StargazersCount,
		Forks:      repo.ForksCount,
		OpenIssues: repo.OpenIssuesCount,
		Language:   repo.Language,
	}
	if err := s.projectRepo.UpdateStats(ctx, projectID, stats, time.Now()); err != nil {
		return fmt.Errorf("failed to sync stats: %w", err)
	}
	return nil
}

// branchFromRef derives a branch name from a git ref, defaulting to
// "unknown" for refs that are not branch heads.
func branchFromRef(ref string) string {
	if strings.HasPrefix(ref, "refs/heads/") {
		return strings.TrimPrefix(ref, "refs/heads/")
	}
	return "unknown"
}

// firstLine returns the first line of a commit message.
func firstLine(message string) string {
	if idx := strings.IndexByte(message, '\n'); idx >= 0 {
		return message[:idx]
	}
	return message
}
