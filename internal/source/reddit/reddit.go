// Package reddit implements the forum CandidateSource against the Reddit
// search API.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/issueradar/crawler/internal/tracker"
)

const (
	defaultAuthBaseURL = "https://www.reddit.com"
	defaultAPIBaseURL  = "https://oauth.reddit.com"
)

// Config controls the Reddit source.
type Config struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	// Subreddit to search; defaults to "sysadmin".
	Subreddit string
	// TimeFilter windows results to a recent range ("day", "week", "month").
	TimeFilter string
	// LimitPerKeyword bounds results per keyword search.
	LimitPerKeyword int
	// AuthBaseURL and APIBaseURL exist for tests; empty means reddit.com.
	AuthBaseURL string
	APIBaseURL  string
}

// Source discovers issue reports by searching a subreddit per keyword.
type Source struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger

	token       string
	tokenExpiry time.Time
}

// New builds a Source. Missing credentials are a startup error.
func New(cfg Config, logger *zap.Logger) (*Source, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("reddit credentials are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "issue-radar/0.1"
	}
	if cfg.Subreddit == "" {
		cfg.Subreddit = "sysadmin"
	}
	if cfg.TimeFilter == "" {
		cfg.TimeFilter = "week"
	}
	if cfg.LimitPerKeyword <= 0 {
		cfg.LimitPerKeyword = 25
	}
	if cfg.AuthBaseURL == "" {
		cfg.AuthBaseURL = defaultAuthBaseURL
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	return &Source{
		cfg: cfg,
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
func (s *Source) Name() string { return "reddit" }

// Discover searches the configured subreddit once per keyword and merges the
// results, deduplicated by post ID. A failing keyword search is logged and
// contributes zero results; the remaining keywords still run.
func (s *Source) Discover(ctx context.Context, keywords []string) ([]tracker.Candidate, error) {
	if err := s.ensureToken(ctx); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var candidates []tracker.Candidate

	for _, keyword := range keywords {
		posts, err := s.search(ctx, keyword)
		if err != nil {
			s.logger.Warn("reddit keyword search failed",
				zap.String("keyword", keyword),
				zap.Error(err),
			)
			continue
		}
		for _, p := range posts {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			candidates = append(candidates, p.candidate())
		}
	}
	return candidates, nil
}

type post struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

func (p post) candidate() tracker.Candidate {
	return tracker.Candidate{
		URL:          "https://reddit.com" + p.Permalink,
		Title:        p.Title,
		Content:      p.Title + "\n\n" + p.SelfText,
		Source:       "reddit",
		Upvotes:      p.Score,
		CommentCount: p.NumComments,
		PostedAt:     time.Unix(int64(p.CreatedUTC), 0).UTC(),
	}
}

func (s *Source) search(ctx context.Context, keyword string) ([]post, error) {
	q := url.Values{}
	q.Set("q", keyword)
	q.Set("sort", "relevance")
	q.Set("t", s.cfg.TimeFilter)
	q.Set("limit", strconv.Itoa(s.cfg.LimitPerKeyword))
	q.Set("restrict_sr", "1")

	endpoint := fmt.Sprintf("%s/r/%s/search?%s", s.cfg.APIBaseURL, s.cfg.Subreddit, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", keyword, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search %q: unexpected status %d", keyword, resp.StatusCode)
	}

	var listing struct {
		Data struct {
			Children []struct {
				Data post `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	posts := make([]post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}

// ensureToken performs the OAuth client-credentials exchange, reusing the
// cached token until shortly before expiry.
func (s *Source) ensureToken(ctx context.Context) error {
	if s.token != "" && time.Until(s.tokenExpiry) > time.Minute {
		return nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.AuthBaseURL+"/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(s.cfg.ClientID, s.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch access token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fetch access token: status %d: %s", resp.StatusCode, body)
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return fmt.Errorf("token response contained no access token")
	}

	s.token = token.AccessToken
	s.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return nil
}
