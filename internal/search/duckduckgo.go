package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"asha/internal/logging"

	"golang.org/x/net/html"
)

// Result is a single DuckDuckGo hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// DuckDuckGoConfig configures DuckDuckGoSearcher.
type DuckDuckGoConfig struct {
	BaseURL    string // default https://html.duckduckgo.com/html/
	MaxResults int    // default 5
	Timeout    time.Duration
}

// DuckDuckGoSearcher scrapes the DuckDuckGo HTML endpoint. No API key needed.
type DuckDuckGoSearcher struct {
	cfg        DuckDuckGoConfig
	httpClient *http.Client
}

// NewDuckDuckGoSearcher creates a DuckDuckGo searcher.
func NewDuckDuckGoSearcher(cfg DuckDuckGoConfig) *DuckDuckGoSearcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://html.duckduckgo.com/html/"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &DuckDuckGoSearcher{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}
}

// Search returns the result snippets joined by newlines.
func (d *DuckDuckGoSearcher) Search(ctx context.Context, query string) (string, error) {
	results, err := d.Results(ctx, query)
	if err != nil {
		return "", err
	}

	var parts []string
	for _, r := range results {
		switch {
		case r.Snippet != "":
			parts = append(parts, r.Snippet)
		case r.Title != "":
			parts = append(parts, r.Title)
		}
	}
	if len(parts) == 0 {
		return NoResult, nil
	}
	return strings.Join(parts, "\n"), nil
}

// Results fetches and parses up to MaxResults hits.
func (d *DuckDuckGoSearcher) Results(ctx context.Context, query string) ([]Result, error) {
	searchURL := d.cfg.BaseURL + "?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// Set headers to look like a browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1MB limit
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	results, err := parseDuckDuckGo(string(body), d.cfg.MaxResults)
	if err != nil {
		return nil, err
	}
	logging.SearchDebug("DuckDuckGo returned %d results for %q", len(results), query)
	return results, nil
}

// Name returns "duckduckgo".
func (d *DuckDuckGoSearcher) Name() string {
	return "duckduckgo"
}

// parseDuckDuckGo extracts results from DuckDuckGo HTML. Result blocks are
// divs whose class contains both "result" and "results_links".
func parseDuckDuckGo(htmlContent string, maxResults int) ([]Result, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var results []Result
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= maxResults {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" {
			class := attr(n, "class")
			if strings.Contains(class, "result") && strings.Contains(class, "results_links") {
				if r := extractResult(n); r.URL != "" && r.Title != "" {
					results = append(results, r)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

func extractResult(n *html.Node) Result {
	var r Result
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			class := attr(n, "class")
			switch {
			case strings.Contains(class, "result__a"):
				r.URL = attr(n, "href")
				r.Title = textContent(n)
			case strings.Contains(class, "result__snippet"):
				r.Snippet = textContent(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	// Unwrap DuckDuckGo redirect links.
	const redirect = "//duckduckgo.com/l/?uddg="
	if strings.HasPrefix(r.URL, redirect) {
		if decoded, err := url.QueryUnescape(strings.TrimPrefix(r.URL, redirect)); err == nil {
			if idx := strings.Index(decoded, "&"); idx > 0 {
				decoded = decoded[:idx]
			}
			r.URL = decoded
		}
	}
	return r
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}
