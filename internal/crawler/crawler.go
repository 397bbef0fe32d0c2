// Package crawler implements the discover > dedup > fetch > classify > embed
// > store pipeline.
package crawler

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/issueradar/crawler/internal/metrics"
	"github.com/issueradar/crawler/internal/progress"
	"github.com/issueradar/crawler/internal/tracker"
)

// minSummaryLen is the relevance gate: a classification whose summary is
// shorter than this is treated as "not a real issue" and dropped. The
// classifier has no explicit relevance field; a degenerate summary is the
// signal.
const minSummaryLen = 20

// Deps holds the collaborators composed by the Crawler.
type Deps struct {
	Applications tracker.ApplicationStore
	Issues       tracker.IssueStore
	Sources      []tracker.CandidateSource
	Fetcher      tracker.ContentFetcher
	Classifier   tracker.Classifier
	Embedder     tracker.Embedder
	Notifier     tracker.Notifier
	Sink         progress.Sink
	Logger       *zap.Logger
}

// Crawler runs the ingestion pipeline for monitored applications. Items are
// processed strictly one at a time so the dedup check-then-insert pair stays
// serialized per URL.
type Crawler struct {
	deps Deps
}

// New constructs a Crawler.
func New(deps Deps) *Crawler {
	if deps.Sink == nil {
		deps.Sink = progress.Stdout()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	return &Crawler{deps: deps}
}

// AppResult records the outcome of crawling one application.
type AppResult struct {
	ApplicationID   string
	ApplicationName string
	NewIssues       int
	Err             error
}

// RunSummary aggregates a full crawl run.
type RunSummary struct {
	TotalNew int
	Results  []AppResult
}

// CrawlApplication runs the full pipeline for a single application and
// returns the number of newly stored issues. The only error it returns is a
// failure to load the application (tracker.ErrApplicationNotFound for an
// unknown ID); per-source and per-item failures are logged and skipped.
func (c *Crawler) CrawlApplication(ctx context.Context, appID string) (int, error) {
	app, err := c.deps.Applications.GetByID(ctx, appID)
	if err != nil {
		return 0, fmt.Errorf("load application %s: %w", appID, err)
	}

	c.deps.Sink(fmt.Sprintf("Crawling: %s", app.Name))
	newCount := 0

	for _, source := range c.deps.Sources {
		candidates, err := source.Discover(ctx, app.Keywords)
		if err != nil {
			// A whole-discovery failure contributes zero results but must
			// not stop other sources or applications.
			metrics.ObserveSourceError(source.Name())
			c.deps.Sink(fmt.Sprintf("  %s error: %v", source.Name(), err))
			c.deps.Logger.Warn("source discovery failed",
				zap.String("source", source.Name()),
				zap.String("application", app.Name),
				zap.Error(err),
			)
			continue
		}
		c.deps.Sink(fmt.Sprintf("  Found %d %s candidates", len(candidates), source.Name()))

		for _, candidate := range candidates {
			stored, outcome, err := c.processCandidate(ctx, app, candidate)
			metrics.ObserveCandidate(source.Name(), outcome)
			if err != nil {
				c.deps.Sink(fmt.Sprintf("  Error processing %s: %v", candidate.URL, err))
				c.deps.Logger.Warn("candidate processing failed",
					zap.String("url", candidate.URL),
					zap.String("outcome", outcome),
					zap.Error(err),
				)
				continue
			}
			newCount += stored
		}
	}

	c.deps.Sink(fmt.Sprintf("  Added %d new issues", newCount))
	return newCount, nil
}

// CrawlAll crawls every application in store order and sums the new-issue
// counts. Application-level failures are recorded in the summary and do not
// abort the run.
func (c *Crawler) CrawlAll(ctx context.Context) (RunSummary, error) {
	apps, err := c.deps.Applications.ListAll(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("list applications: %w", err)
	}

	var summary RunSummary
	for _, app := range apps {
		count, err := c.CrawlApplication(ctx, app.ID)
		if err != nil {
			c.deps.Sink(fmt.Sprintf("Error crawling %s: %v", app.Name, err))
			c.deps.Logger.Warn("application crawl failed",
				zap.String("application", app.Name),
				zap.Error(err),
			)
		}
		summary.TotalNew += count
		summary.Results = append(summary.Results, AppResult{
			ApplicationID:   app.ID,
			ApplicationName: app.Name,
			NewIssues:       count,
			Err:             err,
		})
	}
	return summary, nil
}

// processCandidate runs one candidate through the pipeline. It returns the
// number of stored issues (0 or 1) and an outcome label for metrics. Every
// failure aborts only this candidate.
func (c *Crawler) processCandidate(ctx context.Context, app tracker.Application, candidate tracker.Candidate) (int, string, error) {
	// Dedup gate first: a known URL must cost nothing beyond this lookup.
	exists, err := c.deps.Issues.ExistsByURL(ctx, candidate.URL)
	if err != nil {
		return 0, metrics.OutcomeStoreError, fmt.Errorf("dedup check: %w", err)
	}
	if exists {
		return 0, metrics.OutcomeDuplicate, nil
	}

	title := candidate.Title
	content := candidate.Content
	if !candidate.HasContent() {
		start := time.Now()
		page, err := c.deps.Fetcher.Fetch(ctx, candidate.URL)
		metrics.ObserveStage("fetch", time.Since(start))
		if err != nil {
			return 0, metrics.OutcomeFetchError, fmt.Errorf("fetch: %w", err)
		}
		content = page.Content
		if title == "" {
			title = page.Title
		}
	}

	c.deps.Sink(fmt.Sprintf("  Processing: %s", truncateTitle(title)))

	start := time.Now()
	analysis, err := c.deps.Classifier.Analyze(ctx, content, app.Name)
	metrics.ObserveStage("classify", time.Since(start))
	if err != nil {
		return 0, metrics.OutcomeClassifyError, fmt.Errorf("classify: %w", err)
	}

	// Relevance gate: an irrelevant or degenerate post yields a near-empty
	// summary.
	if utf8.RuneCountInString(analysis.Summary) < minSummaryLen {
		return 0, metrics.OutcomeIrrelevant, nil
	}

	start = time.Now()
	embedding, err := c.deps.Embedder.Embed(ctx, analysis.Title+" "+analysis.Summary)
	metrics.ObserveStage("embed", time.Since(start))
	if err != nil {
		return 0, metrics.OutcomeEmbedError, fmt.Errorf("embed: %w", err)
	}

	start = time.Now()
	issue, err := c.deps.Issues.Create(ctx, tracker.NewIssue{
		ApplicationID: app.ID,
		Title:         analysis.Title,
		Summary:       analysis.Summary,
		RawContent:    content,
		SourceType:    candidate.Source,
		SourceURL:     candidate.URL,
		Severity:      analysis.Severity,
		IssueType:     analysis.IssueType,
		Upvotes:       candidate.Upvotes,
		CommentCount:  candidate.CommentCount,
		SourceDate:    candidate.PostedAt,
		Embedding:     embedding,
	})
	metrics.ObserveStage("store", time.Since(start))
	if err != nil {
		return 0, metrics.OutcomeStoreError, fmt.Errorf("store issue: %w", err)
	}

	if err := c.deps.Notifier.NotifyIssue(ctx, issue); err != nil {
		c.deps.Logger.Warn("issue notification failed",
			zap.String("issue_id", issue.ID),
			zap.Error(err),
		)
	}

	metrics.ObserveIssueStored(app.Name)
	return 1, metrics.OutcomeStored, nil
}

func truncateTitle(title string) string {
	const max = 50
	r := []rune(title)
	if len(r) <= max {
		return title
	}
	return string(r[:max]) + "..."
}

type noopNotifier struct{}

func (noopNotifier) NotifyIssue(context.Context, tracker.Issue) error { return nil }
func (noopNotifier) Close() error                                     { return nil }
