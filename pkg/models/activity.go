package models

import (
	"time"

	"github.com/google/uuid"
)

// Actor identifies who performed an action against a project: a human
// through the UI API, an AI agent through the project API key, or a
// GitHub webhook delivery.
type Actor string

const (
	ActorHuman   Actor = "human"
	ActorAIAgent Actor = "ai_agent"
	ActorWebhook Actor = "webhook"
)

// String returns the string representation of an Actor.
func (a Actor) String() string {
	return string(a)
}

// Activity action labels. Free-form but conventionally namespaced;
// webhook-originated actions carry a github_ prefix.
const (
	ActionCreateProject    = "create_project"
	ActionDeleteProject    = "delete_project"
	ActionRead             = "read"
	ActionUpdateTags       = "update_tags"
	ActionUploadScreenshot = "upload_screenshot"
	ActionGitHubImport     = "github_import"
	ActionGitHubSync       = "github_sync"
	ActionGitHubPush       = "github_push"
	ActionGitHubRelease    = "github_release"
	ActionGitHubStar       = "github_star"
	ActionGitHubFork       = "github_fork"
)

// ActivityLogEntry is an immutable append-only audit record of one
// state-changing (or, for reads, auditable) operation on a project.
// Entries are never updated or deleted by the application.
type ActivityLogEntry struct {
	ID        uuid.UUID      `json:"id"`
	ProjectID uuid.UUID      `json:"project_id"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	Actor     Actor          `json:"actor"`
	RequestIP *string        `json:"request_ip,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
