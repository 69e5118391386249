package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/vibeship/vibeship-engine/pkg/logging"
	"github.com/vibeship/vibeship-engine/pkg/models"
)

// ProjectContext is the machine-readable shape of a project's current
// state for the agent API GET response.
type ProjectContext struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Slug           string             `json:"slug"`
	Description    string             `json:"description"`
	Status         string             `json:"status"`
	WhereILeftOff  string             `json:"where_i_left_off"`
	LessonsLearned string             `json:"lessons_learned"`
	Tags           models.GroupedTags `json:"tags"`
	GitHubURL      *string            `json:"github_url,omitempty"`
	GitHubStats    *GitHubStats       `json:"github_stats,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	LastActivityAt time.Time          `json:"last_activity_at"`
}

// GitHubStats is the cached repository statistics block of a read
// response, present only when a repository is linked.
type GitHubStats struct {
	Stars        int        `json:"stars"`
	Forks        int        `json:"forks"`
	OpenIssues   int        `json:"open_issues"`
	Language     *string    `json:"language,omitempty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

// FormatProjectContext assembles the agent-facing read response from a
// project and its tags. Pure function: no side effects, no I/O.
func FormatProjectContext(project *models.Project, tags []models.ProjectTag) *ProjectContext {
	ctx := &ProjectContext{
		ID:             project.ID.String(),
		Name:           project.Name,
		Slug:           project.Slug,
		Description:    project.Description,
		Status:         project.Status.String(),
		WhereILeftOff:  project.WhereILeftOff,
		LessonsLearned: project.LessonsLearned,
		Tags:           models.GroupTags(tags),
		GitHubURL:      project.GitHubURL,
		CreatedAt:      project.CreatedAt,
		UpdatedAt:      project.UpdatedAt,
		LastActivityAt: project.LastActivityAt,
	}

	if project.GitHubRepoID != nil {
		ctx.GitHubStats = &GitHubStats{
			Stars:        project.GitHubStars,
			Forks:        project.GitHubForks,
			OpenIssues:   project.GitHubOpenIssues,
			Language:     project.GitHubLanguage,
			LastSyncedAt: project.StatsSyncedAt,
		}
	}

	return ctx
}

// FormatAgentPrompt renders the human/AI-readable prompt document for a
// project: the API endpoint, the key (masked unless revealKey), usage
// examples, and explicit write-scope constraints. Pure function.
func FormatAgentPrompt(project *models.Project, tags []models.ProjectTag, baseURL string, revealKey bool) string {
	key := "(no API key — generate one first)"
	if project.HasAPIKey() {
		if revealKey {
			key = *project.APIKey
		} else {
			key = logging.MaskKey(*project.APIKey)
		}
	}

	grouped := models.GroupTags(tags)

	var b strings.Builder
	fmt.Fprintf(&b, "# Project: %s\n\n", project.Name)
	fmt.Fprintf(&b, "Status: %s\n", project.Status)
	if project.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", project.Description)
	}
	if project.WhereILeftOff != "" {
		fmt.Fprintf(&b, "\n## Where I left off\n%s\n", project.WhereILeftOff)
	}
	if project.LessonsLearned != "" {
		fmt.Fprintf(&b, "\n## Lessons learned\n%s\n", project.LessonsLearned)
	}

	if len(grouped.Models)+len(grouped.Frameworks)+len(grouped.Tools) > 0 {
		b.WriteString("\n## Stack\n")
		writeTagLine(&b, "Models", grouped.Models)
		writeTagLine(&b, "Frameworks", grouped.Frameworks)
		writeTagLine(&b, "Tools", grouped.Tools)
	}

	fmt.Fprintf(&b, "\n## Syncing project state\n\n")
	fmt.Fprintf(&b, "Endpoint: %s/api/v1/project\n", baseURL)
	fmt.Fprintf(&b, "Authorization: Bearer %s\n\n", key)
	fmt.Fprintf(&b, "Read the current state:\n\n")
	fmt.Fprintf(&b, "    curl -H \"Authorization: Bearer <key>\" %s/api/v1/project\n\n", baseURL)
	fmt.Fprintf(&b, "Update progress before ending a session:\n\n")
	fmt.Fprintf(&b, "    curl -X PATCH -H \"Authorization: Bearer <key>\" \\\n")
	fmt.Fprintf(&b, "      -d '{\"where_i_left_off\": \"...\", \"status\": \"active\"}' \\\n")
	fmt.Fprintf(&b, "      %s/api/v1/project\n\n", baseURL)
	fmt.Fprintf(&b, "Writable fields: where_i_left_off, lessons_learned, status, description, tags.\n")
	fmt.Fprintf(&b, "Valid statuses: %s.\n", strings.Join(models.ValidStatuses(), ", "))
	fmt.Fprintf(&b, "Do not attempt to change the project name, slug, visibility, or API key through this endpoint; those writes are rejected.\n")

	return b.String()
}

func writeTagLine(b *strings.Builder, label string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, strings.Join(values, ", "))
}
