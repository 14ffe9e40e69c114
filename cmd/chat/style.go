package main

import (
	"fmt"
	"realtime-chat/domain/chat"

	"github.com/charmbracelet/lipgloss"
)

var (
	primary   = lipgloss.Color("#7C3AED")
	secondary = lipgloss.Color("#06B6D4")
	failure   = lipgloss.Color("#EF4444")
	muted     = lipgloss.Color("#6B7280")
	fg        = lipgloss.Color("#E5E7EB")
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(primary).Bold(true)
	faintStyle  = lipgloss.NewStyle().Foreground(muted)
	errorStyle  = lipgloss.NewStyle().Foreground(failure)
	metaStyle   = lipgloss.NewStyle().Foreground(muted)
	ownStyle    = lipgloss.NewStyle().Foreground(secondary)
	otherStyle  = lipgloss.NewStyle().Foreground(fg)
	promptStyle = lipgloss.NewStyle().Foreground(primary)
)

// messageHeader is "name • HH:MM", in local time.
func messageHeader(m chat.Message) string {
	return fmt.Sprintf("%s • %s", m.DisplayName(), m.CreatedAt.Local().Format("15:04"))
}

func renderMessage(m chat.Message, selfUserID string) string {
	body := otherStyle
	if m.IsOwnedBy(selfUserID) {
		body = ownStyle
	}
	return metaStyle.Render(messageHeader(m)) + "  " + body.Render(m.Text)
}
