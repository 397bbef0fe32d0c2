package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/issueradar/crawler/internal/tracker"
)

// IssueStore persists classified issues in Postgres. The embedding column is
// a pgvector vector(1536).
type IssueStore struct {
	db querier
}

// NewIssueStore wraps an existing pool (or pgxmock in tests).
func NewIssueStore(db querier) (*IssueStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db pool is required")
	}
	return &IssueStore{db: db}, nil
}

const issueColumns = `id, application_id, title, summary, raw_content, source_type, source_url, severity, issue_type, upvotes, comment_count, source_date, created_at`

// ExistsByURL reports whether an issue with this source URL is already
// stored. The orchestrator checks it before every insert to keep source URLs
// unique.
func (s *IssueStore) ExistsByURL(ctx context.Context, sourceURL string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM issues WHERE source_url = $1)`, sourceURL).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check issue existence: %w", err)
	}
	return exists, nil
}

// Create inserts an issue; the store assigns ID and creation time.
func (s *IssueStore) Create(ctx context.Context, issue tracker.NewIssue) (tracker.Issue, error) {
	if issue.ApplicationID == "" {
		return tracker.Issue{}, fmt.Errorf("application id is required")
	}
	if issue.SourceURL == "" {
		return tracker.Issue{}, fmt.Errorf("source url is required")
	}

	var embedding any
	if issue.Embedding != nil {
		embedding = pgvector.NewVector(issue.Embedding)
	}

	row := s.db.QueryRow(ctx, `
INSERT INTO issues (
	application_id, title, summary, raw_content,
	source_type, source_url, severity, issue_type,
	upvotes, comment_count, source_date, embedding
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)
RETURNING id, created_at`,
		issue.ApplicationID,
		issue.Title,
		issue.Summary,
		nullableString(issue.RawContent),
		issue.SourceType,
		issue.SourceURL,
		string(issue.Severity),
		nullableString(string(issue.IssueType)),
		issue.Upvotes,
		issue.CommentCount,
		nullableTime(issue.SourceDate),
		embedding,
	)

	stored := tracker.Issue{
		ApplicationID: issue.ApplicationID,
		Title:         issue.Title,
		Summary:       issue.Summary,
		RawContent:    issue.RawContent,
		SourceType:    issue.SourceType,
		SourceURL:     issue.SourceURL,
		Severity:      issue.Severity,
		IssueType:     issue.IssueType,
		Upvotes:       issue.Upvotes,
		CommentCount:  issue.CommentCount,
		SourceDate:    issue.SourceDate,
		Embedding:     issue.Embedding,
	}
	if err := row.Scan(&stored.ID, &stored.CreatedAt); err != nil {
		return tracker.Issue{}, fmt.Errorf("insert issue: %w", err)
	}
	return stored, nil
}

// ListByApplication returns issues for an application, newest first. An empty
// severity means all severities; limit <= 0 defaults to 100.
func (s *IssueStore) ListByApplication(ctx context.Context, applicationID string, severity tracker.Severity, limit int) ([]tracker.Issue, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + issueColumns + ` FROM issues WHERE application_id = $1`
	args := []any{applicationID}
	if severity != "" {
		args = append(args, string(severity))
		query += fmt.Sprintf(` AND severity = $%d`, len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()
	return collectIssues(rows)
}

// CountBySeverity returns per-severity issue counts for an application.
func (s *IssueStore) CountBySeverity(ctx context.Context, applicationID string) (map[tracker.Severity]int, error) {
	rows, err := s.db.Query(ctx, `
SELECT severity, COUNT(*)
FROM issues
WHERE application_id = $1
GROUP BY severity`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("count issues: %w", err)
	}
	defer rows.Close()

	counts := make(map[tracker.Severity]int)
	for rows.Next() {
		var (
			severity string
			count    int
		)
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("scan severity count: %w", err)
		}
		counts[tracker.Severity(severity)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count issues: %w", err)
	}
	return counts, nil
}

// SemanticSearch orders issues by cosine distance to the query embedding.
func (s *IssueStore) SemanticSearch(ctx context.Context, embedding []float32, limit int) ([]tracker.Issue, error) {
	if len(embedding) != tracker.EmbeddingDim {
		return nil, fmt.Errorf("query embedding has %d dimensions, want %d", len(embedding), tracker.EmbeddingDim)
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(ctx, `
SELECT `+issueColumns+`
FROM issues
WHERE embedding IS NOT NULL
ORDER BY embedding <=> $1
LIMIT $2`, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	defer rows.Close()
	return collectIssues(rows)
}

func collectIssues(rows pgx.Rows) ([]tracker.Issue, error) {
	var issues []tracker.Issue
	for rows.Next() {
		var (
			issue      tracker.Issue
			rawContent *string
			severity   string
			issueType  *string
			sourceDate *time.Time
		)
		if err := rows.Scan(
			&issue.ID,
			&issue.ApplicationID,
			&issue.Title,
			&issue.Summary,
			&rawContent,
			&issue.SourceType,
			&issue.SourceURL,
			&severity,
			&issueType,
			&issue.Upvotes,
			&issue.CommentCount,
			&sourceDate,
			&issue.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issue.Severity = tracker.Severity(severity)
		if rawContent != nil {
			issue.RawContent = *rawContent
		}
		if issueType != nil {
			issue.IssueType = tracker.IssueType(*issueType)
		}
		if sourceDate != nil {
			issue.SourceDate = *sourceDate
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collect issues: %w", err)
	}
	return issues, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
