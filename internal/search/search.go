// Package search fetches live web knowledge for the chat prompt.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"asha/internal/cache"
	"asha/internal/logging"

	"golang.org/x/time/rate"
)

// Searcher returns a plain-text digest of web results for a query.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
	Name() string
}

// Config selects and tunes the web searcher.
type Config struct {
	Provider  string // "serpapi", "duckduckgo" or "none"
	APIKey    string
	Engine    string
	Country   string
	Language  string
	CacheTTL  time.Duration
	RateLimit float64 // requests per second; <= 0 disables limiting
	Burst     int
	Timeout   time.Duration
}

// New builds the configured Searcher wrapped with caching and rate limiting.
// Provider "none" returns nil.
func New(cfg Config) (Searcher, error) {
	var inner Searcher
	switch strings.ToLower(cfg.Provider) {
	case "serpapi", "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("serpapi requires an API key")
		}
		inner = NewSerpAPISearcher(SerpAPIConfig{
			APIKey:   cfg.APIKey,
			Engine:   cfg.Engine,
			Country:  cfg.Country,
			Language: cfg.Language,
			Timeout:  cfg.Timeout,
		})
	case "duckduckgo":
		inner = NewDuckDuckGoSearcher(DuckDuckGoConfig{Timeout: cfg.Timeout})
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", cfg.Provider)
	}

	logging.Search("Web search provider: %s (cache ttl=%s, rate=%.2f/s)", inner.Name(), cfg.CacheTTL, cfg.RateLimit)
	return NewGuarded(inner, cfg.CacheTTL, cfg.RateLimit, cfg.Burst), nil
}

// Guarded caches results and rate-limits calls to an inner Searcher.
type Guarded struct {
	inner   Searcher
	cache   *cache.Cache[string]
	limiter *rate.Limiter
}

// NewGuarded wraps inner. ratePerSec <= 0 means unlimited.
func NewGuarded(inner Searcher, ttl time.Duration, ratePerSec float64, burst int) *Guarded {
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Guarded{
		inner:   inner,
		cache:   cache.New[string](500, ttl),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Search returns a cached digest when fresh, otherwise waits for the limiter
// and queries the inner searcher.
func (g *Guarded) Search(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("query is required")
	}

	key := cache.Key(g.inner.Name(), strings.ToLower(query))
	if e, ok := g.cache.Get(key); ok {
		logging.SearchDebug("Cache hit for %q (age=%s)", query, time.Since(e.CreatedAt).Round(time.Second))
		return e.Value, nil
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("search rate limit: %w", err)
	}

	timer := logging.StartTimer(logging.CategorySearch, g.inner.Name())
	digest, err := g.inner.Search(ctx, query)
	timer.Stop()
	if err != nil {
		return "", err
	}

	g.cache.Set(key, digest, g.inner.Name())
	return digest, nil
}

// Name returns the inner searcher's name.
func (g *Guarded) Name() string {
	return g.inner.Name()
}
