package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vibeship/vibeship-engine/pkg/apperrors"
	"github.com/vibeship/vibeship-engine/pkg/github"
	"github.com/vibeship/vibeship-engine/pkg/models"
	"github.com/vibeship/vibeship-engine/pkg/repositories"
)

// RepoReader is the slice of the GitHub client the import service
// needs; narrowed for testability.
type RepoReader interface {
	GetRepository(ctx context.Context, owner, name string) (*github.RepoMetadata, error)
	ListOwnerRepos(ctx context.Context, owner string, maxRepos int) ([]*github.RepoMetadata, error)
}

// GitHubImportService links tracked projects to GitHub repositories and
// refreshes their cached statistics from the REST API.
type GitHubImportService interface {
	// ImportRepo links a repository to an existing project, filling in
	// URL, description (when the project has none), and initial stats.
	ImportRepo(ctx context.Context, projectID uuid.UUID, owner, name string) (*models.Project, error)

	// SyncStats refreshes a linked project's cached stats from the
	// REST API. Used by the manual sync endpoint and autosync.
	SyncStats(ctx context.Context, projectID uuid.UUID) error

	// ListCandidates lists a GitHub user's repositories for the import
	// picker.
	ListCandidates(ctx context.Context, owner string, limit int) ([]*github.RepoMetadata, error)
}

type githubImportService struct {
	client      RepoReader
	projectRepo repositories.ProjectRepository
	activity    ActivityService
	logger      *zap.Logger
}

// NewGitHubImportService creates a new GitHub import service.
func NewGitHubImportService(
	client RepoReader,
	projectRepo repositories.ProjectRepository,
	activity ActivityService,
	logger *zap.Logger,
) GitHubImportService {
	return &githubImportService{
		client:      client,
		projectRepo: projectRepo,
		activity:    activity,
		logger:      logger.Named("github-import"),
	}
}

var _ GitHubImportService = (*githubImportService)(nil)

func (s *githubImportService) ImportRepo(ctx context.Context, projectID uuid.UUID, owner, name string) (*models.Project, error) {
	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	meta, err := s.client.GetRepository(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("failed to import repository: %w", err)
	}

	project.GitHubRepoID = &meta.RepoID
	project.GitHubURL = &meta.HTMLURL
	if project.Description == "" {
		project.Description = meta.Description
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, err
	}
	if err := s.projectRepo.UpdateStats(ctx, project.ID, meta.Stats, time.Now()); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, project.ID, models.ActionGitHubImport, map[string]any{
		"repo": meta.FullName,
		"url":  meta.HTMLURL,
	})

	s.logger.Info("Imported GitHub repository",
		zap.String("project_id", project.ID.String()),
		zap.String("repo", meta.FullName))

	return project, nil
}

func (s *githubImportService) SyncStats(ctx context.Context, projectID uuid.UUID) error {
	project, err := s.projectRepo.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if project.GitHubRepoID == nil || project.GitHubURL == nil {
		return apperrors.ErrRepoNotLinked
	}

	owner, name, err := splitRepoURL(*project.GitHubURL)
	if err != nil {
		return err
	}

	meta, err := s.client.GetRepository(ctx, owner, name)
	if err != nil {
		return fmt.Errorf("failed to fetch repository stats: %w", err)
	}

	if err := s.projectRepo.UpdateStats(ctx, project.ID, meta.Stats, time.Now()); err != nil {
		return err
	}

	s.activity.Record(ctx, project.ID, models.ActionGitHubSync, map[string]any{
		"repo":  meta.FullName,
		"stars": meta.Stats.Stars,
	})

	return nil
}

func (s *githubImportService) ListCandidates(ctx context.Context, owner string, limit int) ([]*github.RepoMetadata, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	return s.client.ListOwnerRepos(ctx, owner, limit)
}

// splitRepoURL extracts owner and repo name from a GitHub HTML URL like
// https://github.com/owner/repo.
func splitRepoURL(url string) (owner, name string, err error) {
	_, rest, found := strings.Cut(url, "github.com/")
	if !found {
		return "", "", fmt.Errorf("unrecognized repository URL %q", url)
	}
	owner, name, found = strings.Cut(rest, "/")
	if !found || owner == "" || name == "" {
		return "", "", fmt.Errorf("unrecognized repository URL %q", url)
	}
	if i := strings.IndexByte(name, '/'); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSuffix(name, ".git")
	return owner, name, nil
}
