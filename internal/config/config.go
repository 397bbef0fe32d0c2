// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	DB        DBConfig        `mapstructure:"db"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Reddit    RedditConfig    `mapstructure:"reddit"`
	WebSearch WebSearchConfig `mapstructure:"websearch"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls the read-API HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// LLMConfig configures the issue classifier.
type LLMConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// EmbeddingConfig configures the embedding client.
type EmbeddingConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// RedditConfig holds credentials and search parameters for the forum source.
type RedditConfig struct {
	ClientID        string `mapstructure:"client_id"`
	ClientSecret    string `mapstructure:"client_secret"`
	UserAgent       string `mapstructure:"user_agent"`
	Subreddit       string `mapstructure:"subreddit"`
	TimeFilter      string `mapstructure:"time_filter"`
	LimitPerKeyword int    `mapstructure:"limit_per_keyword"`
}

// Enabled reports whether the forum source has credentials configured.
func (c RedditConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// WebSearchConfig configures the generic web search source.
type WebSearchConfig struct {
	Endpoint           string  `mapstructure:"endpoint"`
	APIKey             string  `mapstructure:"api_key"`
	MaxResultsPerQuery int     `mapstructure:"max_results_per_query"`
	QueriesPerSecond   float64 `mapstructure:"queries_per_second"`
}

// Enabled reports whether the web search source is configured.
func (c WebSearchConfig) Enabled() bool {
	return c.Endpoint != ""
}

// FetchConfig controls the page fetcher.
type FetchConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// Timeout returns the fetch timeout as a duration.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// NotifyConfig holds Pub/Sub metadata for new-issue notifications.
type NotifyConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// Enabled reports whether notifications are configured.
func (c NotifyConfig) Enabled() bool {
	return c.ProjectID != "" && c.Topic != ""
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ISSUERADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("reddit.user_agent", "issue-radar/0.1")
	v.SetDefault("reddit.subreddit", "sysadmin")
	v.SetDefault("reddit.time_filter", "week")
	v.SetDefault("reddit.limit_per_keyword", 25)
	v.SetDefault("websearch.max_results_per_query", 10)
	v.SetDefault("websearch.queries_per_second", 0.5)
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (compatible; issue-radar/0.1)")
	v.SetDefault("logging.development", true)
}

// Validate enforces structural limits. Credential presence is checked by the
// app container when the corresponding collaborator is constructed, so
// commands that never touch a collaborator do not need its secrets.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Reddit.LimitPerKeyword <= 0 {
		return fmt.Errorf("reddit.limit_per_keyword must be > 0")
	}
	if c.WebSearch.MaxResultsPerQuery <= 0 {
		return fmt.Errorf("websearch.max_results_per_query must be > 0")
	}
	if c.WebSearch.QueriesPerSecond <= 0 {
		return fmt.Errorf("websearch.queries_per_second must be > 0")
	}
	return nil
}
