package github

// Webhook payload types. These are minimal structs that extract only
// the fields the event handlers need — webhook payloads carry hundreds
// of fields that are irrelevant here.
//
// JSON field names match GitHub's webhook payload documentation.

// User is a GitHub user reference. Appears in sender, pusher, owner.
type User struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
}

// Repository is the repository block present in every event payload.
// The numeric ID is the routing key that maps a delivery to tracked
// projects; the counters are absolute snapshots used for stat sync.
type Repository struct {
	ID              int64   `json:"id"`
	FullName        string  `json:"full_name"` // "owner/repo"
	HTMLURL         string  `json:"html_url"`
	StargazersCount int     `json:"stargazers_count"`
	ForksCount      int     `json:"forks_count"`
	OpenIssuesCount int     `json:"open_issues_count"`
	Language        *string `json:"language"`
}

// CommitAuthor is the git author metadata from a push commit (the git
// author string, not a GitHub user object).
type CommitAuthor struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Commit is a commit within a push event.
type Commit struct {
	ID      string       `json:"id"` // full SHA
	Message string       `json:"message"`
	URL     string       `json:"url"`
	Author  CommitAuthor `json:"author"`
}

// Pusher is the user who performed a push. GitHub serializes this as a
// git identity (name/email), not a user object.
type Pusher struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PushPayload is the webhook payload for a "push" event.
type PushPayload struct {
	Ref        string     `json:"ref"` // "refs/heads/main"
	Repository Repository `json:"repository"`
	Pusher     Pusher     `json:"pusher"`
	Sender     User       `json:"sender"`
	Commits    []Commit   `json:"commits"`
}

// Release is the release block of a "release" event.
type Release struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
}

// ReleasePayload is the webhook payload for a "release" event.
type ReleasePayload struct {
	Action     string     `json:"action"` // published, created, edited, ...
	Release    Release    `json:"release"`
	Repository Repository `json:"repository"`
	Sender     User       `json:"sender"`
}

// StarPayload is the webhook payload for a "star" event.
type StarPayload struct {
	Action     string     `json:"action"` // created, deleted
	Repository Repository `json:"repository"`
	Sender     User       `json:"sender"`
}

// Forkee is the newly created fork in a "fork" event.
type Forkee struct {
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
}

// ForkPayload is the webhook payload for a "fork" event.
type ForkPayload struct {
	Forkee     Forkee     `json:"forkee"`
	Repository Repository `json:"repository"`
	Sender     User       `json:"sender"`
}

// RepoEventPayload is the common shape used for events where only the
// repository counters matter (issues, pull_request).
type RepoEventPayload struct {
	Action     string     `json:"action"`
	Repository Repository `json:"repository"`
	Sender     User       `json:"sender"`
}

// Envelope is the minimal payload parsed before routing: every event
// the router accepts must carry a repository with a numeric ID.
type Envelope struct {
	Repository Repository `json:"repository"`
}
