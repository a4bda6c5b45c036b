// Package tui renders a live view of one running mission: the roster with
// per-agent status, the message feed, and the final outcome. It is a pure
// consumer of the event stream; closing it never affects the mission.
package tui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"arena/internal/events"
	"arena/internal/session"
)

// Model is the root Bubble Tea model for the mission watcher.
type Model struct {
	sess     *session.Session
	eventSub <-chan events.Event

	spin     spinner.Model
	feed     viewport.Model
	lines    []string
	agents   []string                         // roster order, director first
	statuses map[string]session.AgentStatus

	status   session.Status
	reason   string
	turns    int
	width    int
	height   int
	ready    bool
	finished bool
}

// New creates a watcher for one session, subscribed to the whole event
// stream.
func New(sess *session.Session, bus *events.Bus) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	agents := append([]string{session.DirectorID}, sess.DoerRoles...)
	statuses := make(map[string]session.AgentStatus, len(agents))
	for _, a := range agents {
		statuses[a] = session.AgentIdle
	}
	return Model{
		sess:     sess,
		eventSub: bus.SubscribeAll(256),
		spin:     sp,
		agents:   agents,
		statuses: statuses,
		status:   sess.Status,
		turns:    sess.TurnsUsed,
	}
}

// Init starts the spinner and the event pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, waitForEvent(m.eventSub))
}

// waitForEvent returns a command that blocks for the next bus event.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil
		}
		return event
	}
}

// Update handles key, window and bus messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		feedHeight := msg.Height - 7
		if feedHeight < 3 {
			feedHeight = 3
		}
		if !m.ready {
			m.feed = viewport.New(msg.Width-2, feedHeight)
			m.ready = true
		} else {
			m.feed.Width = msg.Width - 2
			m.feed.Height = feedHeight
		}
		m.refreshFeed()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case events.Event:
		m.apply(msg)
		if m.finished {
			return m, nil
		}
		return m, waitForEvent(m.eventSub)
	}

	var cmd tea.Cmd
	m.feed, cmd = m.feed.Update(msg)
	return m, cmd
}

func (m *Model) apply(ev events.Event) {
	switch ev := ev.(type) {
	case events.MessageEvent:
		m.turns++
		label := styleDoer.Render(ev.Message.From)
		if ev.Message.From == session.DirectorID {
			label = styleDirector.Render(ev.Message.From)
		}
		m.lines = append(m.lines, fmt.Sprintf("%s -> %s [%s]", label, ev.Message.To, ev.Message.Type))
		m.lines = append(m.lines, indent(truncate(ev.Message.Content, 600)), "")
		m.refreshFeed()

	case events.AgentStatusEvent:
		m.statuses[ev.AgentID] = ev.Status

	case events.DecisionEvent:
		m.lines = append(m.lines, styleDecision.Render(
			fmt.Sprintf("decision: %s %s", ev.Decision.Kind, ev.Decision.Target)), "")
		m.refreshFeed()

	case events.ErrorEvent:
		m.lines = append(m.lines, styleError.Render(
			fmt.Sprintf("error in %s (%s): %v", ev.Step, ev.AgentID, ev.Err)), "")
		m.refreshFeed()

	case events.CompletedEvent:
		m.status = ev.Status
		m.reason = ev.Reason
		m.finished = true
		m.lines = append(m.lines, "", fmt.Sprintf("%s: %s", renderSessionStatus(ev.Status), ev.Reason))
		m.refreshFeed()
	}
}

func (m *Model) refreshFeed() {
	if !m.ready {
		return
	}
	m.feed.SetContent(strings.Join(m.lines, "\n"))
	m.feed.GotoBottom()
}

// View renders header, roster, feed and help line.
func (m Model) View() string {
	if !m.ready {
		return "starting..."
	}

	header := styleTitle.Render(fmt.Sprintf("arena %s", m.sess.ID))
	state := renderSessionStatus(m.status)
	if !m.finished {
		state = m.spin.View() + state
	}
	header += fmt.Sprintf("  %s  turns %d/%d", state, m.turns, m.sess.Budget)

	roster := make([]string, 0, len(m.agents))
	for _, a := range m.agents {
		roster = append(roster, fmt.Sprintf("%s:%s", a, renderAgentStatus(m.statuses[a])))
	}

	help := styleHelp.Render("q quit · arrows scroll")
	if m.finished {
		help = styleHelp.Render(fmt.Sprintf("%s · q quit", m.reason))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		strings.Join(roster, "  "),
		styleBorder.Render(m.feed.View()),
		help,
	)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
