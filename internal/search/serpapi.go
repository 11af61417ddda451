package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"asha/internal/logging"
)

// NoResult is returned as the digest when a search yields nothing usable.
const NoResult = "No good search result found"

// SerpAPIConfig configures SerpAPISearcher.
type SerpAPIConfig struct {
	APIKey   string
	Engine   string // default "bing"
	Country  string // gl, default "us"
	Language string // hl, default "en"
	BaseURL  string // default https://serpapi.com/search.json
	Timeout  time.Duration
}

// SerpAPISearcher queries serpapi.com.
type SerpAPISearcher struct {
	cfg        SerpAPIConfig
	httpClient *http.Client
}

// NewSerpAPISearcher creates a SerpAPI searcher with defaults filled in.
func NewSerpAPISearcher(cfg SerpAPIConfig) *SerpAPISearcher {
	if cfg.Engine == "" {
		cfg.Engine = "bing"
	}
	if cfg.Country == "" {
		cfg.Country = "us"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://serpapi.com/search.json"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SerpAPISearcher{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type serpResponse struct {
	Error     string `json:"error"`
	AnswerBox *struct {
		Answer                  string   `json:"answer"`
		Snippet                 string   `json:"snippet"`
		SnippetHighlightedWords []string `json:"snippet_highlighted_words"`
	} `json:"answer_box"`
	KnowledgeGraph *struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"knowledge_graph"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// Search runs the query and digests the response.
func (s *SerpAPISearcher) Search(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("engine", s.cfg.Engine)
	params.Set("gl", s.cfg.Country)
	params.Set("hl", s.cfg.Language)
	params.Set("api_key", s.cfg.APIKey)
	params.Set("output", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("serpapi request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed serpResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("serpapi HTTP %d", resp.StatusCode)
		}
		return "", fmt.Errorf("failed to decode serpapi response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("serpapi error: %s", parsed.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("serpapi HTTP %d", resp.StatusCode)
	}

	digest := digestSerp(parsed)
	logging.SearchDebug("SerpAPI digest for %q: %d chars", query, len(digest))
	return digest, nil
}

// digestSerp prefers a direct answer, then the knowledge graph, then the
// organic snippets.
func digestSerp(r serpResponse) string {
	if ab := r.AnswerBox; ab != nil {
		switch {
		case ab.Answer != "":
			return ab.Answer
		case ab.Snippet != "":
			return ab.Snippet
		case len(ab.SnippetHighlightedWords) > 0:
			return strings.Join(ab.SnippetHighlightedWords, ", ")
		}
	}
	if kg := r.KnowledgeGraph; kg != nil && kg.Description != "" {
		return kg.Description
	}

	var snippets []string
	for _, res := range r.OrganicResults {
		if s := strings.TrimSpace(res.Snippet); s != "" {
			snippets = append(snippets, s)
		}
	}
	if len(snippets) == 0 {
		return NoResult
	}
	return strings.Join(snippets, "\n")
}

// Name returns "serpapi".
func (s *SerpAPISearcher) Name() string {
	return "serpapi"
}
