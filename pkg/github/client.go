package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"github.com/vibeship/vibeship-engine/pkg/models"
)

// RepoMetadata is the subset of repository metadata the engine imports.
type RepoMetadata struct {
	RepoID      int64
	FullName    string
	Name        string
	Description string
	HTMLURL     string
	Stats       models.RepoStats
}

// Client wraps the go-github REST client for repository import and
// manual stat refresh.
type Client struct {
	gh *gh.Client
}

// NewClient creates a Client. An empty token yields an unauthenticated
// client, subject to GitHub's anonymous rate limits.
func NewClient(token string) *Client {
	if token == "" {
		return &Client{gh: gh.NewClient(nil)}
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)
	return &Client{gh: gh.NewClient(tc)}
}

// GetRepository fetches repository metadata by owner and name.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*RepoMetadata, error) {
	repo, _, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch repository %s/%s: %w", owner, name, err)
	}
	return toRepoMetadata(repo), nil
}

// ListOwnerRepos lists repositories for a GitHub user, newest first.
// Pagination is handled transparently up to maxRepos.
func (c *Client) ListOwnerRepos(ctx context.Context, owner string, maxRepos int) ([]*RepoMetadata, error) {
	opts := &gh.RepositoryListByUserOptions{
		Sort:        "updated",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var all []*RepoMetadata
	for {
		repos, resp, err := c.gh.Repositories.ListByUser(ctx, owner, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list repositories for %s: %w", owner, err)
		}
		for _, repo := range repos {
			all = append(all, toRepoMetadata(repo))
			if maxRepos > 0 && len(all) >= maxRepos {
				return all, nil
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// toRepoMetadata translates a go-github repository to the internal shape.
func toRepoMetadata(r *gh.Repository) *RepoMetadata {
	return &RepoMetadata{
		RepoID:      r.GetID(),
		FullName:    r.GetFullName(),
		Name:        r.GetName(),
		Description: r.GetDescription(),
		HTMLURL:     r.GetHTMLURL(),
		Stats: models.RepoStats{
			Stars:      r.GetStargazersCount(),
			Forks:      r.GetForksCount(),
			OpenIssues: r.GetOpenIssuesCount(),
			Language:   r.Language,
		},
	}
}
