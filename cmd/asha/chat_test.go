package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"asha/internal/responder"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	reply       responder.Reply
	err         error
	suggestions []string
	stages      map[string][]string

	gotMessage string
	gotStage   string
	gotHistory []string
}

func (f *fakeBackend) Ask(_ context.Context, message string, history []string) (responder.Reply, error) {
	f.gotMessage = message
	f.gotHistory = history
	return f.reply, f.err
}

func (f *fakeBackend) Suggestions(context.Context) ([]string, error) {
	return f.suggestions, nil
}

func (f *fakeBackend) StageSuggestions(_ context.Context, stage string) ([]string, error) {
	f.gotStage = stage
	qs, ok := f.stages[stage]
	if !ok {
		return nil, errors.New("unknown career stage")
	}
	return qs, nil
}

func readyModel(t *testing.T, backend chatBackend) chatModel {
	t.Helper()
	t.Setenv("ASHA_DARK_MODE", "")
	m := newChatModel(backend, "http://localhost:8000", time.Second)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(chatModel)
}

func typeText(m chatModel, s string) chatModel {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return next.(chatModel)
}

func TestChatSubmitSendsFullHistory(t *testing.T) {
	backend := &fakeBackend{reply: responder.Reply{Conversation: "Hello!"}}
	m := readyModel(t, backend)

	m = typeText(m, "hi")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(chatModel)
	require.NotNil(t, cmd)
	assert.True(t, m.isLoading)
	assert.Empty(t, m.textinput.Value())

	// Run the ask command directly.
	msg := m.ask("hi", m.historyContents())()
	next, _ = m.Update(msg)
	m = next.(chatModel)

	assert.False(t, m.isLoading)
	assert.Equal(t, "hi", backend.gotMessage)
	if diff := cmp.Diff([]string{"hi"}, backend.gotHistory); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	m = typeText(m, "and jobs?")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(chatModel)
	if diff := cmp.Diff([]string{"hi", "Hello!", "and jobs?"}, m.historyContents()); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestChatCombinesReplyParts(t *testing.T) {
	m := readyModel(t, &fakeBackend{})
	next, _ := m.Update(responseMsg(responder.Reply{
		Conversation: "Advice",
		Jobs:         "Jobs list",
		Events:       "Events list",
	}))
	m = next.(chatModel)

	require.Len(t, m.history, 1)
	assert.Equal(t, "bot", m.history[0].role)
	assert.Equal(t, "Advice\n\n---\n\nJobs list\n\n---\n\nEvents list", m.history[0].content)
}

func TestChatErrorShowsErrorBubble(t *testing.T) {
	backend := &fakeBackend{err: errors.New("connection refused")}
	m := readyModel(t, backend)

	msg := m.ask("hi", nil)()
	next, _ := m.Update(msg)
	m = next.(chatModel)

	require.Len(t, m.history, 1)
	assert.Equal(t, errorReply, m.history[0].content)
	assert.Contains(t, m.View(), "connection refused")
}

func TestChatTabCyclesSuggestions(t *testing.T) {
	backend := &fakeBackend{suggestions: []string{"First?", "Second?"}}
	m := readyModel(t, backend)

	next, _ := m.Update(m.loadSuggestions()())
	m = next.(chatModel)
	assert.Contains(t, m.renderHistory(), "Second?")

	for _, want := range []string{"First?", "Second?", "First?"} {
		next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
		m = next.(chatModel)
		assert.Equal(t, want, m.textinput.Value())
	}
}

func TestChatCommands(t *testing.T) {
	m := readyModel(t, &fakeBackend{})

	m = typeText(m, "/help")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(chatModel)
	assert.Nil(t, cmd)
	require.Len(t, m.history, 1)
	assert.True(t, strings.Contains(m.history[0].content, "/clear"))
	assert.True(t, m.history[0].local)

	m = typeText(m, "/clear")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(chatModel)
	assert.Empty(t, m.history)
}

func TestChatHelpIsNotSentAsHistory(t *testing.T) {
	backend := &fakeBackend{reply: responder.Reply{Conversation: "Sure."}}
	m := readyModel(t, backend)

	m = typeText(m, "/help")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(chatModel)

	m = typeText(m, "resume tips?")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(chatModel)
	require.Len(t, m.history, 2)

	next, _ = m.Update(m.ask("resume tips?", m.historyContents())())
	m = next.(chatModel)
	if diff := cmp.Diff([]string{"resume tips?"}, backend.gotHistory); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"resume tips?", "Sure."}, m.historyContents())
}

func TestChatStageLoadsQuestionBank(t *testing.T) {
	backend := &fakeBackend{
		suggestions: []string{"Default?"},
		stages:      map[string][]string{"advanced": {"How can I move into leadership roles?"}},
	}
	m := readyModel(t, backend)

	m = typeText(m, "/stage advanced")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(chatModel)
	require.NotNil(t, cmd)
	assert.False(t, m.isLoading)

	next, _ = m.Update(cmd())
	m = next.(chatModel)
	assert.Equal(t, "advanced", backend.gotStage)
	assert.Equal(t, []string{"How can I move into leadership roles?"}, m.suggestions)
	require.Len(t, m.history, 1)
	assert.True(t, m.history[0].local)
	assert.Contains(t, m.history[0].content, "leadership")
	assert.Empty(t, m.historyContents())

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(chatModel)
	assert.Equal(t, "How can I move into leadership roles?", m.textinput.Value())
}

func TestChatStageErrors(t *testing.T) {
	backend := &fakeBackend{suggestions: []string{"Default?"}}
	m := readyModel(t, backend)
	next, _ := m.Update(m.loadSuggestions()())
	m = next.(chatModel)

	m = typeText(m, "/stage")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(chatModel)
	assert.Nil(t, cmd)
	require.Len(t, m.history, 1)
	assert.Contains(t, m.history[0].content, "Usage")

	m = typeText(m, "/stage expert")
	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(chatModel)
	require.NotNil(t, cmd)
	next, _ = m.Update(cmd())
	m = next.(chatModel)

	require.Len(t, m.history, 2)
	assert.Contains(t, m.history[1].content, "unknown career stage")
	assert.Equal(t, []string{"Default?"}, m.suggestions)
	assert.Empty(t, m.historyContents())
}

func TestChatViewHeader(t *testing.T) {
	m := newChatModel(&fakeBackend{}, "http://localhost:8000", time.Second)
	assert.Equal(t, "Initializing...", m.View())

	m = readyModel(t, &fakeBackend{})
	view := m.View()
	assert.Contains(t, view, "Asha - JobsForHer AI Assistant")
	assert.Contains(t, view, "Ready")
}

func TestChatEmptySubmitIgnored(t *testing.T) {
	m := readyModel(t, &fakeBackend{})
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(chatModel)
	assert.Nil(t, cmd)
	assert.False(t, m.isLoading)
	assert.Empty(t, m.history)
}
