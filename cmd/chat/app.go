package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"realtime-chat/errors"
	"realtime-chat/services"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type (
	updateMsg  struct{}
	authResult struct{ err error }
	sendResult struct{ err error }
)

// model is the terminal view of the chat service.
// Without a session it shows the auth form, otherwise the feed and the composer.
type model struct {
	ctx     context.Context
	service *services.ChatService

	email    textinput.Model
	password textinput.Model
	signup   bool
	authErr  string

	input  textinput.Model
	notice string

	width, height int
}

func newModel(ctx context.Context, service *services.ChatService) model {
	email := textinput.New()
	email.Placeholder = "email"
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	input := textinput.New()
	input.Placeholder = "Type a message…"
	input.CharLimit = 4096

	return model{ctx: ctx, service: service, email: email, password: password, input: input}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForUpdate())
}

// waitForUpdate turns the next service change signal into a message.
func (m model) waitForUpdate() tea.Cmd {
	updates := m.service.Updates()
	return func() tea.Msg {
		<-updates
		return updateMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = v.Width, v.Height
		m.input.Width = v.Width - 4
		return m, nil
	case updateMsg:
		// Send clears the draft and a failed send restores it
		if draft := m.service.Draft(); draft != m.input.Value() {
			m.input.SetValue(draft)
			m.input.CursorEnd()
		}
		return m, m.waitForUpdate()
	case authResult:
		m.authErr = ""
		if v.err != nil {
			m.authErr = errors.UserMessage(v.err)
			return m, nil
		}
		m.password.SetValue("")
		m.notice = ""
		return m, m.input.Focus()
	case sendResult:
		m.notice = sendNotice(v.err)
		return m, nil
	case tea.KeyMsg:
		if v.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.service.HasSession() {
			return m.handleChatKey(v)
		}
		return m.handleAuthKey(v)
	}
	return m, nil
}

func (m model) handleAuthKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyTab, tea.KeyShiftTab:
		if m.email.Focused() {
			m.email.Blur()
			return m, m.password.Focus()
		}
		m.password.Blur()
		return m, m.email.Focus()
	case tea.KeyCtrlN:
		m.signup = !m.signup
		m.authErr = ""
		return m, nil
	case tea.KeyEnter:
		return m, m.authenticate(m.email.Value(), m.password.Value())
	}

	var cmd tea.Cmd
	if m.email.Focused() {
		m.email, cmd = m.email.Update(k)
	} else {
		m.password, cmd = m.password.Update(k)
	}
	return m, cmd
}

func (m model) handleChatKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.Type {
	case tea.KeyEnter:
		m.notice = ""
		m.service.SetDraft(m.input.Value())
		return m, m.send()
	case tea.KeyCtrlL:
		m.service.Logout(m.ctx)
		m.input.Blur()
		return m, m.email.Focus()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(k)
	m.service.SetDraft(m.input.Value())
	return m, cmd
}

func (m model) authenticate(identifier, secret string) tea.Cmd {
	ctx, service, signup := m.ctx, m.service, m.signup
	return func() tea.Msg {
		var err error
		if signup {
			_, err = service.Signup(ctx, identifier, secret)
		} else {
			_, err = service.Login(ctx, identifier, secret)
		}
		return authResult{err: err}
	}
}

func (m model) send() tea.Cmd {
	ctx, service := m.ctx, m.service
	return func() tea.Msg {
		return sendResult{err: service.Send(ctx)}
	}
}

func sendNotice(err error) string {
	switch {
	case err == nil, stderrors.Is(err, errors.ErrEmptyMessage):
		return ""
	case stderrors.Is(err, errors.ErrSendInProgress):
		return "A message is already being sent."
	default:
		return fmt.Sprintf("Message not sent: %v", err)
	}
}

func (m model) View() string {
	if !m.service.HasSession() {
		return m.authView()
	}
	return m.chatView()
}

func (m model) authView() string {
	mode, other := "Login", "sign up"
	if m.signup {
		mode, other = "Sign up", "login"
	}
	lines := []string{
		titleStyle.Render("realtime-chat • " + mode),
		"",
		m.email.View(),
		m.password.View(),
		"",
	}
	if m.authErr != "" {
		lines = append(lines, errorStyle.Render(m.authErr), "")
	}
	lines = append(lines, faintStyle.Render(fmt.Sprintf("enter: %s • tab: next field • ctrl+n: %s • esc: quit",
		strings.ToLower(mode), other)))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m model) chatView() string {
	current, _ := m.service.Session()
	header := titleStyle.Render("realtime-chat") + "  " +
		faintStyle.Render(fmt.Sprintf("%s • ctrl+l: logout • ctrl+c: quit", current.Email))

	var feed []string
	messages := m.service.Messages()
	if len(messages) == 0 {
		feed = append(feed, faintStyle.Render(m.service.Placeholder()))
	}
	for _, msg := range messages {
		feed = append(feed, renderMessage(msg, current.UserID))
	}
	// Keep the latest lines when the feed is taller than the window
	if room := m.height - 5; room > 0 && len(feed) > room {
		feed = feed[len(feed)-room:]
	}

	status := ""
	switch {
	case m.service.Sending():
		status = faintStyle.Render("sending…")
	case m.notice != "":
		status = errorStyle.Render(m.notice)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		strings.Join(feed, "\n"),
		"",
		status,
		promptStyle.Render("❯ ")+m.input.View(),
	)
}
