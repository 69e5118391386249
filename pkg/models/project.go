// Package models contains domain types for vibeship-engine.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ProjectStatus is the lifecycle state of a tracked project.
// A project is in exactly one status at a time; status history lives in
// the activity log, not on the project row.
type ProjectStatus string

const (
	StatusActive    ProjectStatus = "active"
	StatusPaused    ProjectStatus = "paused"
	StatusShipped   ProjectStatus = "shipped"
	StatusGraveyard ProjectStatus = "graveyard"
)

// String returns the string representation of a ProjectStatus.
func (s ProjectStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is one of the known lifecycle states.
func (s ProjectStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusShipped, StatusGraveyard:
		return true
	default:
		return false
	}
}

// ValidStatuses lists every accepted project status, for error messages
// and API documentation.
func ValidStatuses() []string {
	return []string{
		string(StatusActive),
		string(StatusPaused),
		string(StatusShipped),
		string(StatusGraveyard),
	}
}

// Project is a tracked unit of work. Stored in the projects table.
type Project struct {
	ID          uuid.UUID     `json:"id"`
	OwnerID     uuid.UUID     `json:"owner_id"`
	Name        string        `json:"name"`
	Slug        string        `json:"slug"` // unique per owner
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	IsPublic    bool          `json:"is_public"`

	// Linked GitHub repository. RepoID is GitHub's numeric repository ID,
	// which is what webhook payloads carry; the URL is display-only.
	GitHubRepoID *int64  `json:"github_repo_id,omitempty"`
	GitHubURL    *string `json:"github_url,omitempty"`

	// Cached repository statistics, refreshed by webhook deliveries and
	// manual sync. Last writer wins; payloads carry absolute snapshots.
	GitHubStars      int        `json:"github_stars"`
	GitHubForks      int        `json:"github_forks"`
	GitHubOpenIssues int        `json:"github_open_issues"`
	GitHubLanguage   *string    `json:"github_language,omitempty"`
	StatsSyncedAt    *time.Time `json:"stats_synced_at,omitempty"`

	AutosyncEnabled bool `json:"autosync_enabled"`
	WebhooksEnabled bool `json:"webhooks_enabled"`

	// Free-text progress fields written by the owner or by AI agents
	// through the project API.
	WhereILeftOff  string `json:"where_i_left_off"`
	LessonsLearned string `json:"lessons_learned"`

	// APIKey is the project's live bearer secret, nil when revoked.
	// At most one live key per project (nullable column, not a table).
	APIKey *string `json:"-"`

	ScreenshotPath *string `json:"screenshot_path,omitempty"`

	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// HasAPIKey reports whether the project has a live API key.
func (p *Project) HasAPIKey() bool {
	return p.APIKey != nil && *p.APIKey != ""
}

// RepoStats is an absolute snapshot of repository counters, as carried
// by webhook payloads and the GitHub REST API.
type RepoStats struct {
	Stars      int
	Forks      int
	OpenIssues int
	Language   *string
}
