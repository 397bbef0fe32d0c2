package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/require"

	"github.com/issueradar/crawler/internal/tracker"
)

func issueRowColumns() []string {
	return []string{
		"id", "application_id", "title", "summary", "raw_content",
		"source_type", "source_url", "severity", "issue_type",
		"upvotes", "comment_count", "source_date", "created_at",
	}
}

func TestExistsByURL(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewIssueStore(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("https://example.com/bug-report").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := store.ExistsByURL(context.Background(), "https://example.com/bug-report")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInsertsIssueWithEmbedding(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewIssueStore(mock)
	require.NoError(t, err)

	embedding := make([]float32, tracker.EmbeddingDim)
	embedding[0] = 0.25
	sourceDate := time.Unix(1700000000, 0).UTC()
	created := time.Unix(1700001000, 0).UTC()
	raw := "Adobe Acrobat DC crashes when opening large PDF files."
	issueType := "crash"

	mock.ExpectQuery("INSERT INTO issues").
		WithArgs(
			"app-123",
			"Acrobat DC crashes on large PDFs",
			"Users report frequent crashes when opening PDFs over 100MB.",
			&raw,
			"example.com",
			"https://example.com/bug-report",
			"major",
			&issueType,
			12,
			4,
			&sourceDate,
			pgvector.NewVector(embedding),
		).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("issue-1", created))

	stored, err := store.Create(context.Background(), tracker.NewIssue{
		ApplicationID: "app-123",
		Title:         "Acrobat DC crashes on large PDFs",
		Summary:       "Users report frequent crashes when opening PDFs over 100MB.",
		RawContent:    raw,
		SourceType:    "example.com",
		SourceURL:     "https://example.com/bug-report",
		Severity:      tracker.SeverityMajor,
		IssueType:     tracker.IssueTypeCrash,
		Upvotes:       12,
		CommentCount:  4,
		SourceDate:    sourceDate,
		Embedding:     embedding,
	})
	require.NoError(t, err)
	require.Equal(t, "issue-1", stored.ID)
	require.Equal(t, created, stored.CreatedAt)
	require.Equal(t, tracker.SeverityMajor, stored.Severity)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByApplicationWithSeverityFilter(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewIssueStore(mock)
	require.NoError(t, err)

	created := time.Unix(1700001000, 0).UTC()
	mock.ExpectQuery("SELECT (.+) FROM issues WHERE application_id = \\$1 AND severity = \\$2 ORDER BY created_at DESC LIMIT \\$3").
		WithArgs("app-123", "critical", 10).
		WillReturnRows(pgxmock.NewRows(issueRowColumns()).
			AddRow("issue-1", "app-123", "t", "s", (*string)(nil),
				"reddit", "https://reddit.com/x", "critical", (*string)(nil),
				0, 0, (*time.Time)(nil), created))

	issues, err := store.ListByApplication(context.Background(), "app-123", tracker.SeverityCritical, 10)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, tracker.SeverityCritical, issues[0].Severity)
	require.Equal(t, "", issues[0].RawContent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountBySeverity(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewIssueStore(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT severity, COUNT").
		WithArgs("app-123").
		WillReturnRows(pgxmock.NewRows([]string{"severity", "count"}).
			AddRow("critical", 2).
			AddRow("minor", 5))

	counts, err := store.CountBySeverity(context.Background(), "app-123")
	require.NoError(t, err)
	require.Equal(t, map[tracker.Severity]int{
		tracker.SeverityCritical: 2,
		tracker.SeverityMinor:    5,
	}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSemanticSearchRejectsWrongDimension(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewIssueStore(mock)
	require.NoError(t, err)

	_, err = store.SemanticSearch(context.Background(), []float32{1, 2, 3}, 10)
	require.Error(t, err)
}

func TestSemanticSearchOrdersByDistance(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewIssueStore(mock)
	require.NoError(t, err)

	embedding := make([]float32, tracker.EmbeddingDim)
	created := time.Unix(1700001000, 0).UTC()
	mock.ExpectQuery("ORDER BY embedding <=>").
		WithArgs(pgvector.NewVector(embedding), 5).
		WillReturnRows(pgxmock.NewRows(issueRowColumns()).
			AddRow("issue-1", "app-123", "t", "s", (*string)(nil),
				"reddit", "https://reddit.com/x", "major", (*string)(nil),
				0, 0, (*time.Time)(nil), created))

	issues, err := store.SemanticSearch(context.Background(), embedding, 5)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
