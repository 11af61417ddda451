package responder

import (
	"fmt"
	"strings"
	"text/template"

	"asha/internal/browser"
	"asha/internal/store"
)

// defaultTemplate is the career-advisor prompt, kept word for word.
const defaultTemplate = `The following is a friendly conversation between a human and an Career Advisor. The Advisor guides the user regaring jobs,interests, upcoming job events, workshops, bootcamp and other domain selection decsions.
It follows the previous conversation to do so

Relevant pieces of previous conversation:
{{.Context}},

Useful information from career guidance books:
{{.Text}},

Useful information about career guidance from Web:
{{.WebKnowledge}},

Upcoming relevant career events or bootcamps:
{{.EventsData}},

About jobs:
{{.JobsInfo}},

Current conversation:
Human: {{.Input}}
Career Expert:`

// expertMarker separates echoed prompt text from the model's answer.
const expertMarker = "Career Expert:"

// Fixed texts used when listings are empty or unavailable.
const (
	NoJobsText        = "No latest jobs found at the moment. Please check [HerKey jobs](https://www.herkey.com/jobs) directly."
	JobsErrorText     = "Unable to fetch job listings right now due to network or server issues. Please try again later or check [HerKey jobs](https://www.herkey.com/jobs)."
	NoEventsText      = "No upcoming featured events were found on HerKey right now."
	EventsErrorText   = "Unable to fetch event details right now due to network or server issues. Please check [HerKey Events](https://events.herkey.com/) later."
	unavailableMarker = "Unable to fetch"

	viewMoreJobs   = "\n\n[🔗 View More Jobs on HerKey](https://www.herkey.com/jobs)"
	viewMoreEvents = "\n\n[🔗 View More Events on HerKey](https://events.herkey.com/)"
)

var eventTriggers = []string{"event", "bootcamp", "workshop", "career fair", "networking"}

// PromptData fills the career-advisor template.
type PromptData struct {
	Context      string
	Text         string
	WebKnowledge string
	EventsData   string
	JobsInfo     string
	Input        string
}

// Prompt renders a career-advisor prompt.
type Prompt struct {
	tmpl *template.Template
}

// NewPrompt parses text as a template, or the built-in one when text is empty.
func NewPrompt(text string) (*Prompt, error) {
	if text == "" {
		text = defaultTemplate
	}
	tmpl, err := template.New("advisor").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template: %w", err)
	}
	return &Prompt{tmpl: tmpl}, nil
}

// Render executes the template.
func (p *Prompt) Render(data PromptData) (string, error) {
	var sb strings.Builder
	if err := p.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return sb.String(), nil
}

// FormatHistory puts one message per line.
func FormatHistory(history []string) string {
	var sb strings.Builder
	for _, msg := range history {
		sb.WriteString(msg)
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatDocuments joins retrieved chunks for the prompt.
func FormatDocuments(docs []store.Document) string {
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, "\n\n")
}

// FormatJobs renders up to limit jobs, one bullet each.
func FormatJobs(jobs []browser.Job, limit int) string {
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	lines := make([]string, 0, len(jobs))
	for _, j := range jobs {
		lines = append(lines, fmt.Sprintf("🔹 **%s** at %s (%s)", j.Title, j.Company, j.Location))
	}
	return strings.Join(lines, "\n\n")
}

// FormatEvents renders up to limit events as markdown links.
func FormatEvents(events []browser.Event, limit int) string {
	if len(events) > limit {
		events = events[:limit]
	}
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, fmt.Sprintf("🔹 [%s](%s)", e.Name, e.Link))
	}
	return strings.Join(lines, "\n\n")
}

// ExtractAnswer drops anything up to the first "Career Expert:" marker.
func ExtractAnswer(raw string) string {
	if _, after, found := strings.Cut(raw, expertMarker); found {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(raw)
}

// WantsJobs reports whether message asks about jobs.
func WantsJobs(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "job") || strings.Contains(lower, "apply")
}

// WantsEvents reports whether message asks about events.
func WantsEvents(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range eventTriggers {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func jobsReply(keyword, info string) string {
	if info == "" || strings.Contains(info, unavailableMarker) {
		return ""
	}
	header := "Here are some job opportunities I found for you:\n\n"
	if keyword != "" {
		header = "Here are some " + keyword + " job opportunities I found for you:\n\n"
	}
	return header + info + viewMoreJobs
}

func eventsReply(info string) string {
	if info == "" || strings.Contains(info, unavailableMarker) {
		return ""
	}
	return "\n\nHere are some featured events happening soon:\n\n" + info + viewMoreEvents
}
