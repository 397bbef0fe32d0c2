// Package memory provides in-memory store implementations for tests and
// credential-free local runs.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/issueradar/crawler/internal/tracker"
)

// ApplicationStore keeps applications in a map guarded by a mutex.
type ApplicationStore struct {
	mu   sync.RWMutex
	apps map[string]tracker.Application
}

// NewApplicationStore builds an empty ApplicationStore.
func NewApplicationStore() *ApplicationStore {
	return &ApplicationStore{apps: make(map[string]tracker.Application)}
}

// ListAll returns applications sorted by name.
func (s *ApplicationStore) ListAll(_ context.Context) ([]tracker.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	apps := make([]tracker.Application, 0, len(s.apps))
	for _, app := range s.apps {
		apps = append(apps, app)
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].Name < apps[j].Name })
	return apps, nil
}

// GetByID returns tracker.ErrApplicationNotFound for an unknown ID.
func (s *ApplicationStore) GetByID(_ context.Context, id string) (tracker.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[id]
	if !ok {
		return tracker.Application{}, tracker.ErrApplicationNotFound
	}
	return app, nil
}

// Create stores a new application with a generated ID.
func (s *ApplicationStore) Create(_ context.Context, name, vendor string, keywords []string) (tracker.Application, error) {
	app := tracker.Application{
		ID:        uuid.NewString(),
		Name:      name,
		Vendor:    vendor,
		Keywords:  append([]string(nil), keywords...),
		CreatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.apps[app.ID] = app
	s.mu.Unlock()
	return app, nil
}

// Add inserts a preconstructed application, for test fixtures.
func (s *ApplicationStore) Add(app tracker.Application) {
	s.mu.Lock()
	s.apps[app.ID] = app
	s.mu.Unlock()
}

// IssueStore keeps issues in insertion order guarded by a mutex.
type IssueStore struct {
	mu     sync.RWMutex
	issues []tracker.Issue
	byURL  map[string]struct{}
}

// NewIssueStore builds an empty IssueStore.
func NewIssueStore() *IssueStore {
	return &IssueStore{byURL: make(map[string]struct{})}
}

// ExistsByURL reports whether an issue with this source URL is stored.
func (s *IssueStore) ExistsByURL(_ context.Context, sourceURL string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byURL[sourceURL]
	return ok, nil
}

// Create stores an issue with a generated ID and timestamp.
func (s *IssueStore) Create(_ context.Context, issue tracker.NewIssue) (tracker.Issue, error) {
	stored := tracker.Issue{
		ID:            uuid.NewString(),
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
		Embedding:     append([]float32(nil), issue.Embedding...),
		CreatedAt:     time.Now().UTC(),
	}
	s.mu.Lock()
	s.issues = append(s.issues, stored)
	s.byURL[stored.SourceURL] = struct{}{}
	s.mu.Unlock()
	return stored, nil
}

// ListByApplication returns issues for an application, newest first.
func (s *IssueStore) ListByApplication(_ context.Context, applicationID string, severity tracker.Severity, limit int) ([]tracker.Issue, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []tracker.Issue
	for i := len(s.issues) - 1; i >= 0 && len(out) < limit; i-- {
		issue := s.issues[i]
		if issue.ApplicationID != applicationID {
			continue
		}
		if severity != "" && issue.Severity != severity {
			continue
		}
		out = append(out, issue)
	}
	return out, nil
}

// CountBySeverity returns per-severity issue counts for an application.
func (s *IssueStore) CountBySeverity(_ context.Context, applicationID string) (map[tracker.Severity]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[tracker.Severity]int)
	for _, issue := range s.issues {
		if issue.ApplicationID == applicationID {
			counts[issue.Severity]++
		}
	}
	return counts, nil
}

// SemanticSearch returns stored issues with embeddings ordered by cosine
// distance to the query embedding.
func (s *IssueStore) SemanticSearch(_ context.Context, embedding []float32, limit int) ([]tracker.Issue, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		issue    tracker.Issue
		distance float64
	}
	var results []scored
	for _, issue := range s.issues {
		if len(issue.Embedding) == 0 {
			continue
		}
		results = append(results, scored{issue: issue, distance: cosineDistance(embedding, issue.Embedding)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].distance < results[j].distance })

	if len(results) > limit {
		results = results[:limit]
	}
	out := make([]tracker.Issue, len(results))
	for i, r := range results {
		out[i] = r.issue
	}
	return out, nil
}

// Issues returns a copy of all stored issues, for test assertions.
func (s *IssueStore) Issues() []tracker.Issue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]tracker.Issue(nil), s.issues...)
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 2
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
