// Package app wires configuration into the running service: logger, database
// pool, stores, sources, and the pipeline collaborators.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/issueradar/crawler/internal/api"
	"github.com/issueradar/crawler/internal/config"
	"github.com/issueradar/crawler/internal/crawler"
	"github.com/issueradar/crawler/internal/fetch"
	"github.com/issueradar/crawler/internal/llm"
	"github.com/issueradar/crawler/internal/logging"
	"github.com/issueradar/crawler/internal/notify"
	"github.com/issueradar/crawler/internal/progress"
	"github.com/issueradar/crawler/internal/source/reddit"
	"github.com/issueradar/crawler/internal/source/websearch"
	"github.com/issueradar/crawler/internal/store/postgres"
	"github.com/issueradar/crawler/internal/tracker"
)

// App owns the long-lived resources every command starts from: config,
// logger, and the database-backed stores.
type App struct {
	Config       config.Config
	Logger       *zap.Logger
	Applications tracker.ApplicationStore
	Issues       tracker.IssueStore

	pool     *pgxpool.Pool
	notifier tracker.Notifier
}

// New loads configuration, builds the logger, and connects the database.
// Collaborators that need credentials are constructed on demand so commands
// that never use them run without those secrets.
func New(ctx context.Context, configPath string) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, err
	}

	pool, err := postgres.Connect(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return nil, err
	}

	appStore, err := postgres.NewApplicationStore(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	issueStore, err := postgres.NewIssueStore(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &App{
		Config:       cfg,
		Logger:       logger,
		Applications: appStore,
		Issues:       issueStore,
		pool:         pool,
	}, nil
}

// NewEmbedder builds the embedding client from config.
func (a *App) NewEmbedder() (tracker.Embedder, error) {
	return llm.NewEmbedder(llm.EmbedderConfig{
		APIKey:  a.Config.Embedding.APIKey,
		Model:   a.Config.Embedding.Model,
		BaseURL: a.Config.Embedding.BaseURL,
	})
}

// NewCrawler assembles the full pipeline. At least one source must be
// configured; missing credentials for a configured collaborator fail here,
// before any crawling starts.
func (a *App) NewCrawler(ctx context.Context, sink progress.Sink) (*crawler.Crawler, error) {
	var sources []tracker.CandidateSource

	if a.Config.Reddit.Enabled() {
		src, err := reddit.New(reddit.Config{
			ClientID:        a.Config.Reddit.ClientID,
			ClientSecret:    a.Config.Reddit.ClientSecret,
			UserAgent:       a.Config.Reddit.UserAgent,
			Subreddit:       a.Config.Reddit.Subreddit,
			TimeFilter:      a.Config.Reddit.TimeFilter,
			LimitPerKeyword: a.Config.Reddit.LimitPerKeyword,
		}, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("reddit source: %w", err)
		}
		sources = append(sources, src)
	}

	if a.Config.WebSearch.Enabled() {
		src, err := websearch.New(websearch.Config{
			Endpoint:           a.Config.WebSearch.Endpoint,
			APIKey:             a.Config.WebSearch.APIKey,
			MaxResultsPerQuery: a.Config.WebSearch.MaxResultsPerQuery,
			QueriesPerSecond:   a.Config.WebSearch.QueriesPerSecond,
		}, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("websearch source: %w", err)
		}
		sources = append(sources, src)
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no candidate sources configured: set reddit or websearch credentials")
	}

	classifier, err := llm.NewClassifier(llm.ClassifierConfig{
		APIKey:  a.Config.LLM.APIKey,
		Model:   a.Config.LLM.Model,
		BaseURL: a.Config.LLM.BaseURL,
	}, a.Logger)
	if err != nil {
		return nil, err
	}

	embedder, err := a.NewEmbedder()
	if err != nil {
		return nil, err
	}

	notifier, err := a.newNotifier(ctx)
	if err != nil {
		return nil, err
	}

	return crawler.New(crawler.Deps{
		Applications: a.Applications,
		Issues:       a.Issues,
		Sources:      sources,
		Fetcher: fetch.New(fetch.Config{
			UserAgent: a.Config.Fetch.UserAgent,
			Timeout:   a.Config.Fetch.Timeout(),
		}),
		Classifier: classifier,
		Embedder:   embedder,
		Notifier:   notifier,
		Sink:       sink,
		Logger:     a.Logger,
	}), nil
}

// NewServer assembles the read API. Semantic search is enabled only when
// embedding credentials are present.
func (a *App) NewServer() *api.Server {
	var embedder tracker.Embedder
	if a.Config.Embedding.APIKey != "" {
		e, err := a.NewEmbedder()
		if err == nil {
			embedder = e
		} else {
			a.Logger.Warn("semantic search disabled", zap.Error(err))
		}
	}
	return api.New(a.Applications, a.Issues, embedder, a.Logger)
}

func (a *App) newNotifier(ctx context.Context) (tracker.Notifier, error) {
	if !a.Config.Notify.Enabled() {
		return notify.Noop{}, nil
	}
	n, err := notify.NewPubSub(ctx, a.Config.Notify.ProjectID, a.Config.Notify.Topic, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("pubsub notifier: %w", err)
	}
	a.notifier = n
	return n, nil
}

// Close releases the database pool, the notifier, and flushes logs.
func (a *App) Close() {
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			a.Logger.Warn("close notifier", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	_ = a.Logger.Sync()
}
