package tracker

import (
	"context"
	"errors"
)

// ErrApplicationNotFound is returned by stores when an application ID does
// not exist.
var ErrApplicationNotFound = errors.New("application not found")

// CandidateSource discovers potential issues for a set of keywords. A source
// returns an error only when discovery as a whole failed; partial results
// with internal skips are normal.
type CandidateSource interface {
	Name() string
	Discover(ctx context.Context, keywords []string) ([]Candidate, error)
}

// ContentFetcher retrieves a page and extracts its readable text.
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// Classifier turns raw post content into a structured analysis.
type Classifier interface {
	Analyze(ctx context.Context, rawContent, applicationName string) (IssueAnalysis, error)
}

// Embedder produces a fixed-dimension embedding vector for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ApplicationStore persists monitored applications.
type ApplicationStore interface {
	ListAll(ctx context.Context) ([]Application, error)
	GetByID(ctx context.Context, id string) (Application, error)
	Create(ctx context.Context, name, vendor string, keywords []string) (Application, error)
}

// IssueStore persists classified issues and answers read queries over them.
type IssueStore interface {
	ExistsByURL(ctx context.Context, url string) (bool, error)
	Create(ctx context.Context, issue NewIssue) (Issue, error)
	ListByApplication(ctx context.Context, appID string, severity Severity, limit int) ([]Issue, error)
	CountBySeverity(ctx context.Context, appID string) (map[Severity]int, error)
	SemanticSearch(ctx context.Context, embedding []float32, limit int) ([]Issue, error)
}

// Notifier announces newly stored issues to downstream consumers.
type Notifier interface {
	NotifyIssue(ctx context.Context, issue Issue) error
	Close() error
}
