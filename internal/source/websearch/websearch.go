// Package websearch implements the generic web CandidateSource against a
// JSON search API.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/issueradar/crawler/internal/tracker"
)

// searchSuffixes are appended to each keyword to bias queries toward issue
// reports rather than marketing pages.
var searchSuffixes = []string{"issue", "bug", "problem", "crash", "not working"}

// Config controls the web search source.
type Config struct {
	// Endpoint is the search API URL; results come back as JSON.
	Endpoint string
	APIKey   string
	// MaxResultsPerQuery bounds each individual search.
	MaxResultsPerQuery int
	// QueriesPerSecond throttles the sequential query fan-out. The backing
	// API requires sequential, rate-limited calls.
	QueriesPerSecond float64
}

// Source discovers issue reports via keyword x suffix search queries.
type Source struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New builds a Source. A missing endpoint is a startup error.
func New(cfg Config, logger *zap.Logger) (*Source, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("websearch endpoint is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxResultsPerQuery <= 0 {
		cfg.MaxResultsPerQuery = 10
	}
	qps := cfg.QueriesPerSecond
	if qps <= 0 {
		qps = 0.5
	}
	return &Source{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(qps), 1),
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 15 * time.Second,
				MaxIdleConns:        16,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

// Name labels the source in logs and metrics.
func (s *Source) Name() string { return "websearch" }

// BuildQueries expands keywords into issue-oriented search queries.
func BuildQueries(keywords []string) []string {
	queries := make([]string, 0, len(keywords)*len(searchSuffixes))
	for _, keyword := range keywords {
		for _, suffix := range searchSuffixes {
			queries = append(queries, fmt.Sprintf("%q %s", keyword, suffix))
		}
	}
	return queries
}

// Discover runs every query sequentially, throttled between calls, and
// merges the results deduplicated by URL. A failing query is logged and
// contributes zero results.
func (s *Source) Discover(ctx context.Context, keywords []string) ([]tracker.Candidate, error) {
	seen := make(map[string]struct{})
	var candidates []tracker.Candidate

	for _, query := range BuildQueries(keywords) {
		if err := s.limiter.Wait(ctx); err != nil {
			return candidates, fmt.Errorf("rate limit wait: %w", err)
		}

		results, err := s.searchSingleQuery(ctx, query)
		if err != nil {
			s.logger.Warn("web search query failed",
				zap.String("query", query),
				zap.Error(err),
			)
			continue
		}
		for _, r := range results {
			if r.URL == "" {
				continue
			}
			if _, dup := seen[r.URL]; dup {
				continue
			}
			seen[r.URL] = struct{}{}
			candidates = append(candidates, tracker.Candidate{
				URL:    r.URL,
				Title:  r.Title,
				Source: hostOf(r.URL),
			})
		}
	}
	return candidates, nil
}

type searchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

func (s *Source) searchSingleQuery(ctx context.Context, query string) ([]searchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("max_results", strconv.Itoa(s.cfg.MaxResultsPerQuery))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	if s.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search %q: unexpected status %d", query, resp.StatusCode)
	}

	var body struct {
		Results []searchResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return body.Results, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
