// Package responder turns a chat message into a career-advisor reply. It
// gathers book passages, web knowledge and HerKey listings, prompts the LLM,
// and filters the answer through the safety pipeline and output guard.
package responder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"asha/internal/browser"
	"asha/internal/logging"
	"asha/internal/safety"
	"asha/internal/store"

	"golang.org/x/sync/errgroup"
)

// ErrEmptyMessage is returned for blank messages.
var ErrEmptyMessage = errors.New("message is empty")

// =============================================================================
// DEPENDENCIES
// =============================================================================

// DocumentSearcher finds book passages related to a query.
type DocumentSearcher interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]store.Document, error)
}

// WebSearcher returns a text digest of web results.
type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// KeywordExtractor picks a job search keyword from a message.
type KeywordExtractor interface {
	Extract(ctx context.Context, message string) (string, error)
}

// Listings provides HerKey jobs and events.
type Listings interface {
	JobsByKeyword(ctx context.Context, keyword string) ([]browser.Job, error)
	FeaturedEvents(ctx context.Context) ([]browser.Event, error)
}

// Completer generates text from a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OutputValidator checks the final conversation text.
type OutputValidator interface {
	Validate(text string) (string, error)
	Fallback() string
}

// Deps wires the responder. Only LLM is required; a nil source is skipped.
type Deps struct {
	LLM       Completer
	Documents DocumentSearcher
	Web       WebSearcher
	Keywords  KeywordExtractor
	Listings  Listings
	Safety    *safety.Pipeline
	Guard     OutputValidator
}

// Options tunes a Responder.
type Options struct {
	TopK            int    // book passages per question, default 4
	MaxJobs         int    // default 3
	MaxEvents       int    // default 5
	Template        string // prompt template, default built-in
	IncludeAnalysis bool   // attach safety analysis to replies
}

// Reply is the three-part answer returned to clients.
type Reply struct {
	Conversation string         `json:"conversation"`
	Jobs         string         `json:"jobs"`
	Events       string         `json:"events"`
	Safety       *safety.Result `json:"safety,omitempty"`
}

// replySeparator joins reply parts for display.
const replySeparator = "\n\n---\n\n"

// Combined joins the non-empty parts into one markdown message.
func (r Reply) Combined() string {
	out := r.Conversation
	if r.Jobs != "" {
		out += replySeparator + r.Jobs
	}
	if r.Events != "" {
		out += replySeparator + r.Events
	}
	return out
}

// Responder generates replies.
type Responder struct {
	deps   Deps
	opts   Options
	prompt *Prompt
}

// New creates a Responder.
func New(deps Deps, opts Options) (*Responder, error) {
	if deps.LLM == nil {
		return nil, errors.New("responder requires an LLM")
	}
	if opts.TopK <= 0 {
		opts.TopK = store.DefaultTopK
	}
	if opts.MaxJobs <= 0 {
		opts.MaxJobs = 3
	}
	if opts.MaxEvents <= 0 {
		opts.MaxEvents = 5
	}
	prompt, err := NewPrompt(opts.Template)
	if err != nil {
		return nil, err
	}
	return &Responder{deps: deps, opts: opts, prompt: prompt}, nil
}

// Fallback returns the guard fallback, or "" when no guard is configured.
func (r *Responder) Fallback() string {
	if r.deps.Guard == nil {
		return ""
	}
	return r.deps.Guard.Fallback()
}

// =============================================================================
// GENERATION
// =============================================================================

// gathered holds the prompt context collected for one turn.
type gathered struct {
	docs     string
	web      string
	keyword  string
	jobsInfo string
	events   string
}

// GenerateResponse answers message given the prior conversation lines.
// Context sources that fail are logged and left out of the prompt.
func (r *Responder) GenerateResponse(ctx context.Context, message string, history []string) (Reply, error) {
	if strings.TrimSpace(message) == "" {
		return Reply{}, ErrEmptyMessage
	}

	timer := logging.StartTimer(logging.CategoryResponder, "GenerateResponse")
	defer timer.Stop()

	g := r.gather(ctx, message)
	if err := ctx.Err(); err != nil {
		return Reply{}, err
	}

	prompt, err := r.prompt.Render(PromptData{
		Context:      FormatHistory(history),
		Text:         g.docs,
		WebKnowledge: g.web,
		EventsData:   g.events,
		JobsInfo:     g.jobsInfo,
		Input:        message,
	})
	if err != nil {
		return Reply{}, err
	}

	raw, err := r.deps.LLM.Complete(ctx, prompt)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to generate reply: %w", err)
	}
	answer := ExtractAnswer(raw)
	logging.ResponderDebug("Extracted answer: %d chars", len(answer))

	reply := Reply{
		Conversation: answer,
		Jobs:         jobsReply(g.keyword, g.jobsInfo),
		Events:       eventsReply(g.events),
	}

	if r.deps.Safety != nil {
		res := r.deps.Safety.Process(message, answer)
		reply.Conversation = res.FinalResponse
		if r.opts.IncludeAnalysis {
			reply.Safety = &res
		}
	}

	if r.deps.Guard != nil {
		validated, err := r.deps.Guard.Validate(reply.Conversation)
		if err != nil {
			logging.ResponderWarn("Guard rejected reply, using fallback: %v", err)
			reply.Conversation = r.deps.Guard.Fallback()
		} else {
			reply.Conversation = validated
		}
	}

	return reply, nil
}

// gather collects prompt context concurrently. Each branch records its own
// failure and never cancels the others.
func (r *Responder) gather(ctx context.Context, message string) gathered {
	var (
		g  gathered
		mu sync.Mutex
	)
	set := func(fn func()) {
		mu.Lock()
		fn()
		mu.Unlock()
	}

	eg, egCtx := errgroup.WithContext(ctx)

	if r.deps.Documents != nil {
		eg.Go(func() error {
			docs, err := r.deps.Documents.SimilaritySearch(egCtx, message, r.opts.TopK)
			if err != nil {
				logging.ResponderWarn("Vector search failed: %v", err)
				return nil
			}
			set(func() { g.docs = FormatDocuments(docs) })
			return nil
		})
	}

	if r.deps.Web != nil {
		eg.Go(func() error {
			web, err := r.deps.Web.Search(egCtx, message)
			if err != nil {
				logging.ResponderWarn("Web search failed: %v", err)
				return nil
			}
			set(func() { g.web = web })
			return nil
		})
	}

	if r.deps.Listings != nil && WantsJobs(message) {
		eg.Go(func() error {
			keyword := r.extractKeyword(egCtx, message)
			info := r.fetchJobs(egCtx, keyword)
			set(func() {
				g.keyword = keyword
				g.jobsInfo = info
			})
			return nil
		})
	}

	if r.deps.Listings != nil && WantsEvents(message) {
		eg.Go(func() error {
			info := r.fetchEvents(egCtx)
			set(func() { g.events = info })
			return nil
		})
	}

	_ = eg.Wait()
	return g
}

func (r *Responder) extractKeyword(ctx context.Context, message string) string {
	if r.deps.Keywords == nil {
		return ""
	}
	keyword, err := r.deps.Keywords.Extract(ctx, message)
	if err != nil {
		logging.ResponderWarn("Keyword extraction failed: %v", err)
		return ""
	}
	logging.Responder("Job keyword: %q", keyword)
	return keyword
}

func (r *Responder) fetchJobs(ctx context.Context, keyword string) string {
	jobs, err := r.deps.Listings.JobsByKeyword(ctx, keyword)
	if err != nil {
		logging.ResponderWarn("Failed to fetch jobs: %v", err)
		return JobsErrorText
	}
	if len(jobs) == 0 {
		return NoJobsText
	}
	return FormatJobs(jobs, r.opts.MaxJobs)
}

func (r *Responder) fetchEvents(ctx context.Context) string {
	events, err := r.deps.Listings.FeaturedEvents(ctx)
	if err != nil {
		logging.ResponderWarn("Failed to fetch events: %v", err)
		return EventsErrorText
	}
	if len(events) == 0 {
		return NoEventsText
	}
	return FormatEvents(events, r.opts.MaxEvents)
}
