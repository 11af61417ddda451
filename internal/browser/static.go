package browser

import (
	"context"
	"fmt"
	"time"

	"asha/internal/logging"

	"github.com/gocolly/colly/v2"
)

// StaticRenderer fetches raw server-rendered HTML without a browser. It is
// fast but misses content that only client-side scripts insert.
type StaticRenderer struct {
	collector *colly.Collector
	timeout   time.Duration
}

// NewStaticRenderer creates a colly-backed renderer.
func NewStaticRenderer(timeout time.Duration) *StaticRenderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"),
	)
	c.SetRequestTimeout(timeout)
	_ = c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 2,
		RandomDelay: 500 * time.Millisecond,
	})
	return &StaticRenderer{collector: c, timeout: timeout}
}

// Render GETs url and returns the body. waitSelector is ignored; static HTML
// has no later state to wait for.
func (s *StaticRenderer) Render(ctx context.Context, url, waitSelector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := s.collector.Clone()
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < s.timeout {
			c.SetRequestTimeout(remaining)
		}
	}

	var (
		body     string
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("fetch %s: HTTP %d: %w", url, r.StatusCode, err)
			return
		}
		fetchErr = fmt.Errorf("fetch %s: %w", url, err)
	})

	timer := logging.StartTimer(logging.CategoryBrowser, "StaticRender")
	defer timer.Stop()

	if err := c.Visit(url); err != nil {
		return "", fmt.Errorf("visit %s: %w", url, err)
	}
	c.Wait()

	if fetchErr != nil {
		return "", fetchErr
	}
	return body, nil
}

// Name returns "static".
func (s *StaticRenderer) Name() string {
	return "static"
}
