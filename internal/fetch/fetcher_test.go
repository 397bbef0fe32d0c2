package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
	<title>  Acrobat crash thread  </title>
	<style>body { color: red; }</style>
	<script>console.log("tracking");</script>
</head>
<body>
	<nav><a href="/">Home</a></nav>
	<header>Site header</header>
	<article>
		<h1>Acrobat keeps crashing</h1>
		<p>Adobe Acrobat DC crashes when opening large PDF files.</p>

		<p>Rolling back to the previous version fixes it.</p>
	</article>
	<aside>Related links</aside>
	<form><input name="q"></form>
	<footer>Copyright</footer>
</body>
</html>`

func TestFetchExtractsNormalizedText(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "test-agent", Timeout: 5 * time.Second})
	page, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	require.Equal(t, "Acrobat crash thread", page.Title)
	require.Equal(t, srv.URL, page.URL)

	require.Contains(t, page.Content, "Acrobat keeps crashing")
	require.Contains(t, page.Content, "crashes when opening large PDF files")
	require.NotContains(t, page.Content, "tracking")
	require.NotContains(t, page.Content, "Site header")
	require.NotContains(t, page.Content, "Related links")
	require.NotContains(t, page.Content, "Copyright")
	require.NotContains(t, page.Content, "\n\n", "blank lines must be removed")
}

func TestFetchNonSuccessStatusIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestFetchUnreachableHostIsError(t *testing.T) {
	t.Parallel()

	f := New(Config{Timeout: time.Second})
	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1/none")
	require.Error(t, err)
}

func TestExtractTitleMissing(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body><p>no title</p></body></html>"))
	require.NoError(t, err)
	require.Equal(t, "", ExtractTitle(doc))
}

func TestExtractTextPreservesBlockBoundaries(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		"<html><body><p>first block</p><p>second block</p></body></html>"))
	require.NoError(t, err)

	text := ExtractText(doc)
	require.Equal(t, "first block\nsecond block", text)
}
