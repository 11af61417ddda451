package main

// This file implements the interactive chat client using bubbletea.

import (
	"context"
	"fmt"
	"strings"
	"time"

	"asha/cmd/asha/ui"
	"asha/internal/client"
	"asha/internal/responder"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// errorReply is shown in place of a bot reply when the API call fails.
const errorReply = "⚠️ Error fetching response."

var chatServer string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the terminal chat client",
	Long: `Opens a full-screen chat against a running "asha serve". Tab inserts
a suggested question, Enter sends, /stage <beginner|mid-career|advanced>
loads the question bank for a career stage, /clear resets the conversation
and Ctrl+C exits.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatServer, "server", "s", "", "API base URL (default http://localhost<server.addr>)")
}

// chatBackend is the API surface the chat model talks to.
type chatBackend interface {
	Ask(ctx context.Context, message string, history []string) (responder.Reply, error)
	Suggestions(ctx context.Context) ([]string, error)
	StageSuggestions(ctx context.Context, stage string) ([]string, error)
}

// chatModel is the bubbletea model for the chat window.
type chatModel struct {
	// UI components
	textinput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	styles    ui.Styles
	renderer  *glamour.TermRenderer

	// State
	history     []chatMessage
	suggestions []string
	nextSugg    int
	isLoading   bool
	err         error
	width       int
	height      int
	ready       bool

	backend chatBackend
	timeout time.Duration
	server  string
}

type chatMessage struct {
	role    string // "user" or "bot"
	content string
	time    time.Time
	local   bool // shown only, never sent as history
}

// Messages for tea updates
type (
	responseMsg    responder.Reply
	errorMsg       error
	suggestionsMsg []string
)

type stageMsg struct {
	stage       string
	suggestions []string
	err         error
}

func newChatModel(backend chatBackend, server string, requestTimeout time.Duration) chatModel {
	styles := ui.DefaultStyles()

	ti := textinput.New()
	ti.Placeholder = "Ask about careers, jobs or events... (Tab for ideas)"
	ti.Focus()
	ti.Prompt = "│ "
	ti.CharLimit = 2000
	ti.Width = 80
	ti.PromptStyle = styles.Prompt

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return chatModel{
		textinput: ti,
		viewport:  viewport.New(80, 20),
		spinner:   sp,
		styles:    styles,
		renderer:  newRenderer(styles, 80),
		backend:   backend,
		timeout:   requestTimeout,
		server:    server,
	}
}

func newRenderer(styles ui.Styles, width int) *glamour.TermRenderer {
	style := "light"
	if styles.Theme.IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.loadSuggestions())
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			if !m.isLoading {
				return m.handleSubmit()
			}

		case tea.KeyTab:
			// Tab fills the input with the next suggestion
			if len(m.suggestions) > 0 && !m.isLoading {
				m.textinput.SetValue(m.suggestions[m.nextSugg])
				m.textinput.CursorEnd()
				m.nextSugg = (m.nextSugg + 1) % len(m.suggestions)
				return m, nil
			}
		}

		if !m.isLoading {
			m.textinput, tiCmd = m.textinput.Update(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 3
		footerHeight := 3
		inputHeight := 3

		vpHeight := msg.Height - headerHeight - footerHeight - inputHeight
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = vpHeight
		}
		m.textinput.Width = msg.Width - 6

		if r := newRenderer(m.styles, msg.Width-8); r != nil {
			m.renderer = r
		}
		m.refresh()

	case spinner.TickMsg:
		if m.isLoading {
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}

	case suggestionsMsg:
		m.suggestions = msg
		m.nextSugg = 0
		return m, nil

	case stageMsg:
		if msg.err != nil {
			m.appendLocal(fmt.Sprintf("Could not load questions for %q: %v", msg.stage, msg.err))
			return m, nil
		}
		m.suggestions = msg.suggestions
		m.nextSugg = 0
		m.appendLocal(stageIntro(msg.stage, msg.suggestions))
		return m, nil

	case responseMsg:
		m.isLoading = false
		m.err = nil
		m.appendMessage("bot", responder.Reply(msg).Combined())

	case errorMsg:
		m.isLoading = false
		m.err = msg
		m.appendMessage("bot", errorReply)
	}

	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m chatModel) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textinput.Value())
	if input == "" {
		return m, nil
	}
	m.textinput.Reset()

	switch input {
	case "/clear":
		m.history = nil
		m.err = nil
		m.refresh()
		return m, nil
	case "/help":
		m.appendLocal(chatHelp)
		return m, nil
	}
	if input == "/stage" || strings.HasPrefix(input, "/stage ") {
		stage := strings.TrimSpace(strings.TrimPrefix(input, "/stage"))
		if stage == "" {
			m.appendLocal(stageUsage)
			return m, nil
		}
		return m, m.loadStage(stage)
	}

	m.appendMessage("user", input)
	m.isLoading = true

	return m, tea.Batch(
		m.spinner.Tick,
		m.ask(input, m.historyContents()),
	)
}

const chatHelp = `**Commands**

- ` + "`/stage <beginner|mid-career|advanced>`" + ` load questions for your career stage
- ` + "`/clear`" + ` start a new conversation
- ` + "`/help`" + ` show this message

Mention *jobs* or *events* to see live HerKey listings.`

const stageUsage = "Usage: `/stage beginner`, `/stage mid-career` or `/stage advanced`"

func stageIntro(stage string, questions []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Questions for %s** (Tab to use one)\n\n", stage)
	for _, q := range questions {
		sb.WriteString("- " + q + "\n")
	}
	return sb.String()
}

// historyContents is every conversation message so far, the one being sent
// included. Local command output is left out.
func (m chatModel) historyContents() []string {
	out := make([]string, 0, len(m.history))
	for _, msg := range m.history {
		if msg.local {
			continue
		}
		out = append(out, msg.content)
	}
	return out
}

func (m chatModel) ask(message string, history []string) tea.Cmd {
	backend, timeout := m.backend, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		reply, err := backend.Ask(ctx, message, history)
		if err != nil {
			return errorMsg(err)
		}
		return responseMsg(reply)
	}
}

func (m chatModel) loadSuggestions() tea.Cmd {
	backend, timeout := m.backend, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		s, err := backend.Suggestions(ctx)
		if err != nil {
			return suggestionsMsg(nil)
		}
		return suggestionsMsg(s)
	}
}

func (m chatModel) loadStage(stage string) tea.Cmd {
	backend, timeout := m.backend, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		s, err := backend.StageSuggestions(ctx, stage)
		return stageMsg{stage: stage, suggestions: s, err: err}
	}
}

// appendLocal shows a bot-side note that stays out of the conversation sent
// to the server.
func (m *chatModel) appendLocal(content string) {
	m.history = append(m.history, chatMessage{
		role:    "bot",
		content: content,
		time:    time.Now(),
		local:   true,
	})
	m.refresh()
}

func (m *chatModel) appendMessage(role, content string) {
	m.history = append(m.history, chatMessage{
		role:    role,
		content: content,
		time:    time.Now(),
	})
	m.refresh()
}

func (m *chatModel) refresh() {
	m.viewport.SetContent(m.renderHistory())
	m.viewport.GotoBottom()
}

func (m chatModel) renderHistory() string {
	if len(m.history) == 0 {
		return m.renderWelcome()
	}

	var sb strings.Builder
	for _, msg := range m.history {
		if msg.role == "user" {
			sb.WriteString(m.styles.Muted.Render("You · "+msg.time.Format("15:04")) + "\n")
			sb.WriteString(m.styles.UserBubble.Render(msg.content))
			sb.WriteString("\n\n")
			continue
		}
		sb.WriteString(m.styles.BotLabel.Render("Asha") + "\n")
		sb.WriteString(m.safeRenderMarkdown(msg.content))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m chatModel) renderWelcome() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Hi, I'm Asha. How can I help with your career today?"))
	sb.WriteString("\n\n")
	for _, s := range m.suggestions {
		sb.WriteString(m.styles.Suggestion.Render(s) + "\n")
	}
	return sb.String()
}

// safeRenderMarkdown renders markdown, falling back to plain text.
func (m chatModel) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()

	if m.renderer != nil && content != "" {
		if rendered, err := m.renderer.Render(content); err == nil {
			return rendered
		}
	}
	return content
}

func (m chatModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	chatView := m.styles.Content.Render(m.viewport.View())

	if m.isLoading {
		chatView += "\n" + m.styles.Spinner.Render(m.spinner.View()) + " Thinking..."
	}
	if m.err != nil {
		chatView += "\n" + m.styles.Error.Render("Error: "+m.err.Error())
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		chatView,
		m.styles.InputBox.Render(m.textinput.View()),
		m.renderFooter(),
	)
}

func (m chatModel) renderHeader() string {
	title := m.styles.Header.Render("Asha - JobsForHer AI Assistant")

	var status string
	if m.isLoading {
		status = m.styles.Warning.Render("● Thinking")
	} else {
		status = m.styles.Success.Render("● Ready")
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", status),
		m.styles.Muted.Render(" "+m.server),
		m.styles.RenderDivider(m.width),
	)
}

func (m chatModel) renderFooter() string {
	help := m.styles.Muted.Render("Enter: send • Tab: suggestion • /stage: career stage • /clear: new chat • Ctrl+C: exit")
	return m.styles.Footer.MarginTop(1).Render(help)
}

func runChat(cmd *cobra.Command, args []string) error {
	base := chatServer
	if base == "" {
		base = defaultServerURL(cfg.Server.Addr)
	}
	requestTimeout := cfg.GetRequestTimeout()

	m := newChatModel(client.New(base, requestTimeout), base, requestTimeout)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI failed: %w", err)
	}
	return nil
}

// defaultServerURL turns a listen address like ":8000" into a local URL.
func defaultServerURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	return "http://" + addr
}
