// Package llm wraps the OpenAI API for issue classification and embeddings.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/issueradar/crawler/internal/tracker"
)

// maxAnalyzeChars bounds the content prefix submitted to the model; longer
// posts are truncated to control cost and latency.
const maxAnalyzeChars = 4000

const analysisPrompt = `Analyze this IT support forum post about %s and extract structured information.

Post content:
%s

Respond with ONLY a JSON object (no markdown, no explanation) with these fields:
- title: A concise title for this issue (max 100 chars)
- summary: A 2-3 sentence summary of the problem and any solutions mentioned
- severity: "critical" (crashes, data loss, security), "major" (significant functionality broken), or "minor" (cosmetic, workarounds exist)
- issue_type: One of "crash", "performance", "install", "security", "compatibility", "ui", "other"
- version_mentioned: The software version mentioned, or null if not specified
- has_workaround: true if a workaround is mentioned, false otherwise

JSON response:`

// ClassifierConfig configures the classification client.
type ClassifierConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Classifier implements tracker.Classifier on the chat completions API.
type Classifier struct {
	client openai.Client
	model  string
	logger *zap.Logger
}

// NewClassifier builds a Classifier. A missing API key is a startup error.
func NewClassifier(cfg ClassifierConfig, logger *zap.Logger) (*Classifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("classifier api key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Classifier{
		client: openai.NewClient(opts...),
		model:  model,
		logger: logger,
	}, nil
}

// Analyze submits the content prefix and application name to the model and
// parses the structured analysis. A malformed model response is a hard error
// for the item, never silently defaulted.
func (c *Classifier) Analyze(ctx context.Context, rawContent, applicationName string) (tracker.IssueAnalysis, error) {
	prompt := fmt.Sprintf(analysisPrompt, applicationName, truncate(rawContent, maxAnalyzeChars))

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               c.model,
		Messages:            []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		MaxCompletionTokens: openai.Int(500),
	})
	if err != nil {
		return tracker.IssueAnalysis{}, fmt.Errorf("classify content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return tracker.IssueAnalysis{}, fmt.Errorf("classify content: no choices in response")
	}

	c.logger.Debug("classification completed",
		zap.String("model", c.model),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)

	return parseAnalysis(resp.Choices[0].Message.Content)
}

// parseAnalysis decodes the model's JSON reply. Missing fields get defaults;
// a reply that is not valid JSON is an error.
func parseAnalysis(text string) (tracker.IssueAnalysis, error) {
	var raw struct {
		Title            string `json:"title"`
		Summary          string `json:"summary"`
		Severity         string `json:"severity"`
		IssueType        string `json:"issue_type"`
		VersionMentioned string `json:"version_mentioned"`
		HasWorkaround    bool   `json:"has_workaround"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return tracker.IssueAnalysis{}, fmt.Errorf("parse analysis response: %w", err)
	}

	analysis := tracker.IssueAnalysis{
		Title:            raw.Title,
		Summary:          raw.Summary,
		Severity:         tracker.Severity(raw.Severity),
		IssueType:        tracker.IssueType(raw.IssueType),
		VersionMentioned: raw.VersionMentioned,
		HasWorkaround:    raw.HasWorkaround,
	}
	if analysis.Title == "" {
		analysis.Title = "Unknown Issue"
	}
	if !analysis.Severity.Valid() {
		analysis.Severity = tracker.SeverityMinor
	}
	return analysis, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
