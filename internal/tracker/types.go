// Package tracker defines the domain model of the issue tracker: monitored
// applications, discovered candidates, and stored issues, plus the
// collaborator interfaces the pipeline is composed from.
package tracker

import "time"

// EmbeddingDim is the dimensionality of issue embeddings. It matches the
// text-embedding-3-small model and the vector column width in the schema.
const EmbeddingDim = 1536

// Severity grades the impact of an issue.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityMajor, SeverityMinor:
		return true
	}
	return false
}

// IssueType categorizes the failure mode of an issue.
type IssueType string

const (
	IssueTypeCrash         IssueType = "crash"
	IssueTypePerformance   IssueType = "performance"
	IssueTypeInstall       IssueType = "install"
	IssueTypeSecurity      IssueType = "security"
	IssueTypeCompatibility IssueType = "compatibility"
	IssueTypeUI            IssueType = "ui"
	IssueTypeOther         IssueType = "other"
)

// Application is a piece of software being monitored for defect reports.
type Application struct {
	ID        string
	Name      string
	Vendor    string
	Keywords  []string
	CreatedAt time.Time
}

// Candidate is a potential issue discovered by a source, before fetching or
// classification. Content may be empty when the source only yields links.
type Candidate struct {
	URL          string
	Title        string
	Content      string
	Source       string
	Upvotes      int
	CommentCount int
	PostedAt     time.Time
}

// HasContent reports whether the candidate already carries its body text, so
// the pipeline can skip the fetch stage.
func (c Candidate) HasContent() bool {
	return c.Content != ""
}

// Page is a fetched and text-extracted web page.
type Page struct {
	URL     string
	Title   string
	Content string
	Source  string
}

// IssueAnalysis is the structured output of the classifier for one candidate.
type IssueAnalysis struct {
	Title            string
	Summary          string
	Severity         Severity
	IssueType        IssueType
	VersionMentioned string
	HasWorkaround    bool
}

// NewIssue carries the fields of an issue prior to insertion. The store
// assigns ID and CreatedAt.
type NewIssue struct {
	ApplicationID string
	Title         string
	Summary       string
	RawContent    string
	SourceType    string
	SourceURL     string
	Severity      Severity
	IssueType     IssueType
	Upvotes       int
	CommentCount  int
	SourceDate    time.Time
	Embedding     []float32
}

// Issue is a stored, classified defect report.
type Issue struct {
	ID            string
	ApplicationID string
	Title         string
	Summary       string
	RawContent    string
	SourceType    string
	SourceURL     string
	Severity      Severity
	IssueType     IssueType
	Upvotes       int
	CommentCount  int
	SourceDate    time.Time
	Embedding     []float32
	CreatedAt     time.Time
}
