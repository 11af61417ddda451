package responder

import (
	"strings"
	"testing"

	"asha/internal/browser"
	"asha/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "", FormatHistory(nil))
	assert.Equal(t, "hi\nhello there\n", FormatHistory([]string{"hi", "hello there"}))
}

func TestFormatJobs_FirstThree(t *testing.T) {
	jobs := []browser.Job{
		{Title: "Go Developer", Company: "Acme", Location: "Pune"},
		{Title: "Data Analyst", Company: "Beta", Location: "N/A"},
		{Title: "SRE", Company: "Gamma", Location: "Remote"},
		{Title: "Ignored", Company: "Delta", Location: "Delhi"},
	}

	got := FormatJobs(jobs, 3)

	assert.Equal(t,
		"🔹 **Go Developer** at Acme (Pune)\n\n🔹 **Data Analyst** at Beta (N/A)\n\n🔹 **SRE** at Gamma (Remote)",
		got)
}

func TestFormatEvents(t *testing.T) {
	events := []browser.Event{
		{Name: "Women in Tech", Link: "https://events.herkey.com/e/1"},
		{Name: "Resume Clinic", Link: "https://events.herkey.com/e/2"},
	}

	assert.Equal(t,
		"🔹 [Women in Tech](https://events.herkey.com/e/1)\n\n🔹 [Resume Clinic](https://events.herkey.com/e/2)",
		FormatEvents(events, 5))
	assert.Equal(t, "🔹 [Women in Tech](https://events.herkey.com/e/1)", FormatEvents(events, 1))
}

func TestFormatDocuments(t *testing.T) {
	docs := []store.Document{{Content: "one"}, {Content: "two"}}
	assert.Equal(t, "one\n\ntwo", FormatDocuments(docs))
}

func TestExtractAnswer(t *testing.T) {
	assert.Equal(t, "Learn SQL.", ExtractAnswer("Human: hi\nCareer Expert:  Learn SQL. "))
	assert.Equal(t, "A Career Expert: B", ExtractAnswer("x Career Expert: A Career Expert: B"))
	assert.Equal(t, "plain", ExtractAnswer("  plain\n"))
}

func TestTriggers(t *testing.T) {
	assert.True(t, WantsJobs("Any JOBS in Pune?"))
	assert.True(t, WantsJobs("How do I apply?"))
	assert.False(t, WantsJobs("career advice"))

	assert.True(t, WantsEvents("upcoming Networking sessions"))
	assert.True(t, WantsEvents("any career fair soon"))
	assert.True(t, WantsEvents("bootcamp for data"))
	assert.False(t, WantsEvents("salary tips"))
}

func TestReplies(t *testing.T) {
	assert.Equal(t, "", jobsReply("go", ""))
	assert.Equal(t, "", jobsReply("go", JobsErrorText))
	assert.Equal(t,
		"Here are some go job opportunities I found for you:\n\nX\n\n[🔗 View More Jobs on HerKey](https://www.herkey.com/jobs)",
		jobsReply("go", "X"))

	assert.Equal(t, "", eventsReply(EventsErrorText))
	assert.Equal(t,
		"\n\nHere are some featured events happening soon:\n\n"+NoEventsText+"\n\n[🔗 View More Events on HerKey](https://events.herkey.com/)",
		eventsReply(NoEventsText))
}

func TestPromptRender(t *testing.T) {
	p, err := NewPrompt("")
	require.NoError(t, err)

	out, err := p.Render(PromptData{
		Context:      "hi\n",
		Text:         "books",
		WebKnowledge: "web",
		EventsData:   "events",
		JobsInfo:     "jobs",
		Input:        "What next?",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "The following is a friendly conversation"))
	assert.Contains(t, out, "Useful information from career guidance books:\nbooks,")
	assert.Contains(t, out, "About jobs:\njobs,")
	assert.True(t, strings.HasSuffix(out, "Human: What next?\nCareer Expert:"))
}

func TestNewPrompt_Invalid(t *testing.T) {
	_, err := NewPrompt("{{.Input")
	assert.Error(t, err)
}

func TestReplyCombined(t *testing.T) {
	assert.Equal(t, "hi", Reply{Conversation: "hi"}.Combined())
	assert.Equal(t, "hi\n\n---\n\njobs", Reply{Conversation: "hi", Jobs: "jobs"}.Combined())
	assert.Equal(t, "hi\n\n---\n\n\n\nevents", Reply{Conversation: "hi", Events: "\n\nevents"}.Combined())
}
