package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"asha/internal/cache"
	"asha/internal/logging"

	"github.com/PuerkitoBio/goquery"
)

// HerKey page selectors.
const (
	JobCardSelector      = `div[data-test-id="job-details"]`
	JobTitleSelector     = `p[data-test-id="job-title"]`
	JobCompanySelector   = `p[data-test-id="company-name"]`
	JobInfoSelector      = `p.MuiTypography-root.MuiTypography-body2.capitalize`
	EventCardSelector    = `div.card.event-details-card.mb-2.featured-events`
	EventHeadingSelector = `a.card-heading`
)

// NotAvailable fills job fields missing from the info line.
const NotAvailable = "N/A"

// Job is one HerKey job card.
type Job struct {
	Title      string `json:"title"`
	Company    string `json:"company"`
	Location   string `json:"location"`
	WorkType   string `json:"work_type"`
	Experience string `json:"experience"`
}

// Event is one HerKey featured event card.
type Event struct {
	Name string `json:"name"`
	Link string `json:"link"`
}

// HerKeyConfig configures the scraper.
type HerKeyConfig struct {
	JobsURL   string        // default https://www.herkey.com/jobs
	EventsURL string        // default https://events.herkey.com/events/
	CacheTTL  time.Duration // 0 disables caching
	Timeout   time.Duration // per scrape, 0 means no extra deadline
}

// HerKey scrapes job and event listings through a Renderer.
type HerKey struct {
	cfg      HerKeyConfig
	renderer Renderer
	jobs     *cache.Cache[[]Job]
	events   *cache.Cache[[]Event]
}

// NewHerKey creates a scraper.
func NewHerKey(cfg HerKeyConfig, renderer Renderer) *HerKey {
	if cfg.JobsURL == "" {
		cfg.JobsURL = "https://www.herkey.com/jobs"
	}
	if cfg.EventsURL == "" {
		cfg.EventsURL = "https://events.herkey.com/events/"
	}
	return &HerKey{
		cfg:      cfg,
		renderer: renderer,
		jobs:     cache.New[[]Job](100, cfg.CacheTTL),
		events:   cache.New[[]Event](10, cfg.CacheTTL),
	}
}

// =============================================================================
// OPERATIONS
// =============================================================================

// AllJobs returns the jobs on the main listing page.
func (h *HerKey) AllJobs(ctx context.Context) ([]Job, error) {
	return h.fetchJobs(ctx, h.cfg.JobsURL)
}

// WorkFromHomeJobs returns the work-from-home listing.
func (h *HerKey) WorkFromHomeJobs(ctx context.Context) ([]Job, error) {
	return h.fetchJobs(ctx, h.cfg.JobsURL+"/search?work_mode=work-from-home")
}

// JobsByKeyword searches jobs for keyword.
func (h *HerKey) JobsByKeyword(ctx context.Context, keyword string) ([]Job, error) {
	return h.fetchJobs(ctx, h.KeywordURL(keyword))
}

// KeywordURL builds the search URL: the keyword is trimmed, lower-cased and
// spaces become dashes before query escaping.
func (h *HerKey) KeywordURL(keyword string) string {
	k := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(keyword)), " ", "-")
	return h.cfg.JobsURL + "/search?keyword=" + url.QueryEscape(k)
}

// FeaturedEvents returns the featured events.
func (h *HerKey) FeaturedEvents(ctx context.Context) ([]Event, error) {
	key := h.cfg.EventsURL
	if e, ok := h.events.Get(key); ok {
		logging.BrowserDebug("Events cache hit")
		return e.Value, nil
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	html, err := h.renderer.Render(ctx, h.cfg.EventsURL, EventCardSelector)
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	events, err := ParseEvents(html, h.cfg.EventsURL)
	if err != nil {
		return nil, err
	}
	logging.Browser("Fetched %d featured events", len(events))
	// An empty page usually means the cards had not rendered yet.
	if len(events) > 0 {
		h.events.Set(key, events, "herkey")
	}
	return events, nil
}

func (h *HerKey) fetchJobs(ctx context.Context, pageURL string) ([]Job, error) {
	if e, ok := h.jobs.Get(pageURL); ok {
		logging.BrowserDebug("Jobs cache hit for %s", pageURL)
		return e.Value, nil
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	html, err := h.renderer.Render(ctx, pageURL, JobCardSelector)
	if err != nil {
		return nil, fmt.Errorf("fetch jobs: %w", err)
	}
	jobs, err := ParseJobs(html)
	if err != nil {
		return nil, err
	}
	logging.Browser("Fetched %d jobs from %s", len(jobs), pageURL)
	if len(jobs) > 0 {
		h.jobs.Set(pageURL, jobs, "herkey")
	}
	return jobs, nil
}

func (h *HerKey) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, h.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// =============================================================================
// PARSING
// =============================================================================

// ParseJobs extracts job cards. A card missing its title, company or info
// line is skipped.
func ParseJobs(html string) ([]Job, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse jobs html: %w", err)
	}

	jobs := []Job{}
	doc.Find(JobCardSelector).Each(func(i int, card *goquery.Selection) {
		title := card.Find(JobTitleSelector).First()
		company := card.Find(JobCompanySelector).First()
		info := card.Find(JobInfoSelector).First()
		if title.Length() == 0 || company.Length() == 0 || info.Length() == 0 {
			logging.BrowserDebug("Error extracting job card %d: missing element", i)
			return
		}

		job := Job{
			Title:      cleanText(title.Text()),
			Company:    cleanText(company.Text()),
			Location:   NotAvailable,
			WorkType:   NotAvailable,
			Experience: NotAvailable,
		}
		if infoText := cleanText(info.Text()); infoText != "" {
			parts := strings.Split(infoText, "|")
			for j := range parts {
				parts[j] = strings.TrimSpace(parts[j])
			}
			if len(parts) >= 1 {
				job.Location = parts[0]
			}
			if len(parts) >= 2 {
				job.WorkType = parts[1]
			}
			if len(parts) >= 3 {
				job.Experience = parts[2]
			}
		}
		jobs = append(jobs, job)
	})
	return jobs, nil
}

// ParseEvents extracts featured event cards. Relative links are resolved
// against pageURL.
func ParseEvents(html, pageURL string) ([]Event, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse events html: %w", err)
	}
	base, _ := url.Parse(pageURL)

	events := []Event{}
	doc.Find(EventCardSelector).Each(func(i int, card *goquery.Selection) {
		heading := card.Find(EventHeadingSelector).First()
		if heading.Length() == 0 {
			logging.BrowserDebug("Error extracting event card %d: missing heading", i)
			return
		}
		link, _ := heading.Attr("href")
		if base != nil && link != "" {
			if ref, err := url.Parse(link); err == nil {
				link = base.ResolveReference(ref).String()
			}
		}
		events = append(events, Event{Name: cleanText(heading.Text()), Link: link})
	})
	return events, nil
}

// cleanText collapses runs of whitespace the way rendered text reads.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
