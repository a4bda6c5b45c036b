package tui

import (
	"github.com/charmbracelet/lipgloss"

	"arena/internal/session"
)

var (
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	styleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	styleHelp = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	styleDirector = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	styleDoer = lipgloss.NewStyle().
			Foreground(lipgloss.Color("36")).
			Bold(true)

	styleDecision = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("red")).
			Bold(true)
)

var agentStatusStyles = map[session.AgentStatus]lipgloss.Style{
	session.AgentIdle:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	session.AgentWaiting: lipgloss.NewStyle().Foreground(lipgloss.Color("yellow")),
	session.AgentActive:  lipgloss.NewStyle().Foreground(lipgloss.Color("green")).Bold(true),
	session.AgentBlocked: lipgloss.NewStyle().Foreground(lipgloss.Color("red")),
}

var sessionStatusStyles = map[session.Status]lipgloss.Style{
	session.StatusRunning:   lipgloss.NewStyle().Foreground(lipgloss.Color("yellow")).Bold(true),
	session.StatusPaused:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Bold(true),
	session.StatusCompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("green")).Bold(true),
	session.StatusFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("red")).Bold(true),
}

func renderAgentStatus(status session.AgentStatus) string {
	if style, ok := agentStatusStyles[status]; ok {
		return style.Render(string(status))
	}
	return string(status)
}

func renderSessionStatus(status session.Status) string {
	if style, ok := sessionStatusStyles[status]; ok {
		return style.Render(string(status))
	}
	return string(status)
}
