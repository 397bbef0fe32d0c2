package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/issueradar/crawler/internal/tracker"
)

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), "unexpected path %s", r.URL.Path)

		body := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": content,
					},
				},
			},
			"usage": map[string]any{
				"prompt_tokens":     42,
				"completion_tokens": 64,
				"total_tokens":      106,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}))
}

func TestNewClassifierRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewClassifier(ClassifierConfig{}, nil)
	require.Error(t, err)
}

func TestAnalyzeParsesStructuredResponse(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, `{
		"title": "Acrobat DC crashes on large PDFs",
		"summary": "Users report Acrobat DC crashing when opening PDFs over 100MB. Rolling back to the previous release avoids the crash.",
		"severity": "major",
		"issue_type": "crash",
		"version_mentioned": "24.1",
		"has_workaround": true
	}`)
	defer srv.Close()

	c, err := NewClassifier(ClassifierConfig{APIKey: "test-key", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	analysis, err := c.Analyze(context.Background(), "Acrobat crashes...", "Adobe Acrobat")
	require.NoError(t, err)
	require.Equal(t, "Acrobat DC crashes on large PDFs", analysis.Title)
	require.Equal(t, tracker.SeverityMajor, analysis.Severity)
	require.Equal(t, tracker.IssueTypeCrash, analysis.IssueType)
	require.Equal(t, "24.1", analysis.VersionMentioned)
	require.True(t, analysis.HasWorkaround)
}

func TestAnalyzeMalformedResponseIsError(t *testing.T) {
	t.Parallel()

	srv := chatServer(t, "Sorry, I cannot respond in JSON today.")
	defer srv.Close()

	c, err := NewClassifier(ClassifierConfig{APIKey: "test-key", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = c.Analyze(context.Background(), "content", "App")
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse analysis response")
}

func TestParseAnalysisDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want tracker.IssueAnalysis
	}{
		{
			name: "missing fields get defaults",
			in:   `{}`,
			want: tracker.IssueAnalysis{Title: "Unknown Issue", Severity: tracker.SeverityMinor},
		},
		{
			name: "unknown severity normalized to minor",
			in:   `{"title":"t","summary":"s","severity":"catastrophic"}`,
			want: tracker.IssueAnalysis{Title: "t", Summary: "s", Severity: tracker.SeverityMinor},
		},
		{
			name: "surrounding whitespace tolerated",
			in:   "\n  {\"title\":\"t\",\"severity\":\"critical\"}  \n",
			want: tracker.IssueAnalysis{Title: "t", Severity: tracker.SeverityCritical},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseAnalysis(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestTruncateBoundsLongContent(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", maxAnalyzeChars+100)
	require.Len(t, truncate(long, maxAnalyzeChars), maxAnalyzeChars)
	require.Equal(t, "short", truncate("short", maxAnalyzeChars))
}

func TestAnalyzeTruncatesPromptContent(t *testing.T) {
	t.Parallel()

	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		gotPrompt = req.Messages[0].Content

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"{\"title\":\"t\",\"summary\":\"s\"}"}}],"usage":{}}`)
	}))
	defer srv.Close()

	c, err := NewClassifier(ClassifierConfig{APIKey: "k", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = c.Analyze(context.Background(), strings.Repeat("x", maxAnalyzeChars*2), "App")
	require.NoError(t, err)
	require.Less(t, strings.Count(gotPrompt, "x"), maxAnalyzeChars+1)
}
