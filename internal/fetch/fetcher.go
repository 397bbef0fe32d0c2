// Package fetch retrieves candidate pages and extracts readable text.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/html"

	"github.com/issueradar/crawler/internal/tracker"
)

// Selector matching elements that carry boilerplate rather than content.
const boilerplateSelector = "script, style, nav, footer, header, aside, form"

// Config controls fetcher behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher implements tracker.ContentFetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.WithTransport(newHTTPTransport())
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET and returns the normalized page. Any
// network error, timeout, or non-success status surfaces as an error; callers
// treat them all as a skip.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (tracker.Page, error) {
	var (
		body     []byte
		fetchErr error
	)

	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := f.runCollector(ctx, collector, rawURL, &fetchErr); err != nil {
		return tracker.Page{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return tracker.Page{}, fmt.Errorf("parse html: %w", err)
	}

	return tracker.Page{
		URL:     rawURL,
		Title:   ExtractTitle(doc),
		Content: ExtractText(doc),
		Source:  hostOf(rawURL),
	}, nil
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit %s: %w", url, err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("fetch %s: %w", url, *fetchErr)
		}
		return nil
	}
}

// ExtractText returns the readable text of a document with boilerplate
// elements removed. Block boundaries become line breaks; blank lines are
// dropped. The document is modified in place.
func ExtractText(doc *goquery.Document) string {
	doc.Find(boilerplateSelector).Remove()

	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			for _, part := range strings.Split(n.Data, "\n") {
				if t := strings.TrimSpace(part); t != "" {
					lines = append(lines, t)
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Find("body").Nodes {
		walk(n)
	}
	return strings.Join(lines, "\n")
}

// ExtractTitle returns the trimmed <title> text, or "" when the document has
// no title element. A missing title is not a failure.
func ExtractTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
