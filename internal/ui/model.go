// ABOUTME: Bubbletea model for the sync service status view
// ABOUTME: Shows speakers, connected event clients and recent exports
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/soundflex/soundflex-go/internal/engine"
	"github.com/soundflex/soundflex-go/internal/syncroot"
)

// maxEvents is how many recent events the view keeps
const maxEvents = 8

// Model represents the TUI state
type Model struct {
	// Service
	name string
	addr string
	root string

	// State
	speakers []syncroot.Speaker
	clients  int
	events   []engine.Event
	exports  int
	failures int

	startTime time.Time
	quitting  bool
	quitChan  chan struct{}

	// Dimensions
	width  int
	height int
}

// StatusMsg updates the speaker list and client count. Nil fields are left
// unchanged.
type StatusMsg struct {
	Speakers []syncroot.Speaker
	Clients  *int
}

// EventMsg records an engine event
type EventMsg engine.Event

type tickMsg time.Time

// NewModel creates a status model. quitChan is signalled when the user quits
// and may be nil.
func NewModel(name, addr, root string, quitChan chan struct{}) Model {
	return Model{
		name:      name,
		addr:      addr,
		root:      root,
		startTime: time.Now(),
		quitChan:  quitChan,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		return m, tickEvery()
	case StatusMsg:
		m.applyStatus(msg)
	case EventMsg:
		m.applyEvent(engine.Event(msg))
	}

	return m, nil
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.quitChan != nil {
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	}
	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Speakers != nil {
		m.speakers = msg.Speakers
	}
	if msg.Clients != nil {
		m.clients = *msg.Clients
	}
}

// applyEvent prepends an event and updates counters
func (m *Model) applyEvent(ev engine.Event) {
	switch ev.Type {
	case engine.EventExportDone:
		m.exports++
	case engine.EventExportFailed:
		m.failures++
	case engine.EventScan:
		// The list itself arrives with the next StatusMsg
		return
	}

	m.events = append([]engine.Event{ev}, m.events...)
	if len(m.events) > maxEvents {
		m.events = m.events[:maxEvents]
	}
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Shutting down sync service...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250"))

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("220"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196"))

	var b strings.Builder

	b.WriteString(titleStyle.Render("SoundFlex Sync"))
	b.WriteString("\n\n")

	rows := []struct{ label, value string }{
		{"Service: ", m.name},
		{"Address: ", m.addr},
		{"Root: ", truncate(m.root, 60)},
		{"Uptime: ", time.Since(m.startTime).Round(time.Second).String()},
		{"Clients: ", fmt.Sprintf("%d", m.clients)},
		{"Exports: ", fmt.Sprintf("%d ok, %d failed", m.exports, m.failures)},
	}
	for _, r := range rows {
		b.WriteString(headerStyle.Render(r.label))
		b.WriteString(valueStyle.Render(r.value))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Speakers (%d)", len(m.speakers))))
	b.WriteString("\n\n")
	if len(m.speakers) == 0 {
		b.WriteString(valueStyle.Render("  No speakers found"))
		b.WriteString("\n")
	}
	for _, sp := range m.speakers {
		b.WriteString(fmt.Sprintf("  %-24s", truncate(sp.Name, 24)))
		b.WriteString(valueStyle.Render(speakerFlags(sp)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Recent Activity"))
	b.WriteString("\n\n")
	if len(m.events) == 0 {
		b.WriteString(valueStyle.Render("  Waiting for export requests"))
		b.WriteString("\n")
	}
	for _, ev := range m.events {
		line := fmt.Sprintf("  %s %-14s %s", ev.Time.Format("15:04:05"), ev.Type, ev.Speaker)
		switch ev.Type {
		case engine.EventExportDone:
			line += fmt.Sprintf(" (%.1fs)", ev.Duration)
			b.WriteString(valueStyle.Render(line))
		case engine.EventExportFailed:
			b.WriteString(errorStyle.Render(line + ": " + truncate(ev.Error, 50)))
		default:
			b.WriteString(valueStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render("Press 'q' or Ctrl+C to quit"))

	return b.String()
}

func speakerFlags(sp syncroot.Speaker) string {
	var flags []string
	if sp.HasSession {
		flags = append(flags, "session")
	}
	if sp.HasAudio {
		flags = append(flags, "compiled")
	}
	if sp.NeedsExport {
		flags = append(flags, "export pending")
	}
	if len(flags) == 0 {
		return "empty"
	}
	return strings.Join(flags, ", ")
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
