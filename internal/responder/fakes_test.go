package responder

import (
	"context"
	"errors"
	"sync"

	"asha/internal/browser"
	"asha/internal/store"
)

var errBoom = errors.New("boom")

type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

type fakeDocs struct {
	docs []store.Document
	err  error
	k    int
}

func (f *fakeDocs) SimilaritySearch(_ context.Context, _ string, k int) ([]store.Document, error) {
	f.k = k
	return f.docs, f.err
}

type fakeWeb struct {
	out string
	err error
}

func (f *fakeWeb) Search(context.Context, string) (string, error) { return f.out, f.err }

type fakeKeywords struct {
	keyword string
	err     error
}

func (f *fakeKeywords) Extract(context.Context, string) (string, error) { return f.keyword, f.err }

type fakeListings struct {
	mu        sync.Mutex
	jobs      []browser.Job
	jobsErr   error
	events    []browser.Event
	eventsErr error
	keywords  []string
	eventHits int
}

func (f *fakeListings) JobsByKeyword(_ context.Context, keyword string) ([]browser.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keywords = append(f.keywords, keyword)
	return f.jobs, f.jobsErr
}

func (f *fakeListings) FeaturedEvents(context.Context) ([]browser.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventHits++
	return f.events, f.eventsErr
}

type fakeGuard struct {
	err error
}

func (f *fakeGuard) Validate(text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return text, nil
}

func (f *fakeGuard) Fallback() string { return "fallback markdown" }
