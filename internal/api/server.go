// Package api serves the read-only HTTP interface: application listings,
// per-application issues and stats, and semantic search.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/issueradar/crawler/internal/metrics"
	"github.com/issueradar/crawler/internal/tracker"
)

// Server exposes the HTTP API. It never mutates crawl state; writes happen
// only through the CLI and the crawler.
type Server struct {
	apps     tracker.ApplicationStore
	issues   tracker.IssueStore
	embedder tracker.Embedder
	logger   *zap.Logger
	router   chi.Router
}

// New builds a Server. The embedder may be nil, in which case semantic search
// responds 503.
func New(apps tracker.ApplicationStore, issues tracker.IssueStore, embedder tracker.Embedder, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		apps:     apps,
		issues:   issues,
		embedder: embedder,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Get("/applications", s.handleListApplications)
		r.Get("/applications/{id}/issues", s.handleListIssues)
		r.Get("/applications/{id}/stats", s.handleStats)
		r.Get("/search", s.handleSearch)
	})
	s.router = r
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe runs the server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", zap.Int("port", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type applicationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Vendor    string    `json:"vendor,omitempty"`
	Keywords  []string  `json:"keywords"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.apps.ListAll(r.Context())
	if err != nil {
		s.logger.Error("list applications failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list applications")
		return
	}
	out := make([]applicationResponse, 0, len(apps))
	for _, app := range apps {
		out = append(out, applicationResponse{
			ID:        app.ID,
			Name:      app.Name,
			Vendor:    app.Vendor,
			Keywords:  app.Keywords,
			CreatedAt: app.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"applications": out})
}

type issueResponse struct {
	ID            string     `json:"id"`
	ApplicationID string     `json:"application_id"`
	Title         string     `json:"title"`
	Summary       string     `json:"summary"`
	SourceType    string     `json:"source_type"`
	SourceURL     string     `json:"source_url"`
	Severity      string     `json:"severity"`
	IssueType     string     `json:"issue_type,omitempty"`
	Upvotes       int        `json:"upvotes"`
	CommentCount  int        `json:"comment_count"`
	SourceDate    *time.Time `json:"source_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toIssueResponse(issue tracker.Issue) issueResponse {
	out := issueResponse{
		ID:            issue.ID,
		ApplicationID: issue.ApplicationID,
		Title:         issue.Title,
		Summary:       issue.Summary,
		SourceType:    issue.SourceType,
		SourceURL:     issue.SourceURL,
		Severity:      string(issue.Severity),
		IssueType:     string(issue.IssueType),
		Upvotes:       issue.Upvotes,
		CommentCount:  issue.CommentCount,
		CreatedAt:     issue.CreatedAt,
	}
	if !issue.SourceDate.IsZero() {
		d := issue.SourceDate
		out.SourceDate = &d
	}
	return out
}

func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "id")

	severity := tracker.Severity(r.URL.Query().Get("severity"))
	if severity != "" && !severity.Valid() {
		writeError(w, http.StatusBadRequest, "invalid severity")
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	if _, err := s.apps.GetByID(r.Context(), appID); err != nil {
		if errors.Is(err, tracker.ErrApplicationNotFound) {
			writeError(w, http.StatusNotFound, "application not found")
			return
		}
		s.logger.Error("load application failed", zap.String("id", appID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load application")
		return
	}

	issues, err := s.issues.ListByApplication(r.Context(), appID, severity, limit)
	if err != nil {
		s.logger.Error("list issues failed", zap.String("application_id", appID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list issues")
		return
	}
	out := make([]issueResponse, 0, len(issues))
	for _, issue := range issues {
		out = append(out, toIssueResponse(issue))
	}
	writeJSON(w, http.StatusOK, map[string]any{"issues": out})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "id")

	app, err := s.apps.GetByID(r.Context(), appID)
	if err != nil {
		if errors.Is(err, tracker.ErrApplicationNotFound) {
			writeError(w, http.StatusNotFound, "application not found")
			return
		}
		s.logger.Error("load application failed", zap.String("id", appID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load application")
		return
	}

	counts, err := s.issues.CountBySeverity(r.Context(), appID)
	if err != nil {
		s.logger.Error("count issues failed", zap.String("application_id", appID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to count issues")
		return
	}

	total := 0
	bySeverity := make(map[string]int, len(counts))
	for severity, count := range counts {
		bySeverity[string(severity)] = count
		total += count
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"application_id":   app.ID,
		"application_name": app.Name,
		"total_issues":     total,
		"by_severity":      bySeverity,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.embedder == nil {
		writeError(w, http.StatusServiceUnavailable, "semantic search is not configured")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	embedding, err := s.embedder.Embed(r.Context(), query)
	if err != nil {
		s.logger.Error("query embedding failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to embed query")
		return
	}

	issues, err := s.issues.SemanticSearch(r.Context(), embedding, limit)
	if err != nil {
		s.logger.Error("semantic search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	out := make([]issueResponse, 0, len(issues))
	for _, issue := range issues {
		out = append(out, toIssueResponse(issue))
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": query, "results": out})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return limit, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
