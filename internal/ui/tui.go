// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program behind a non-blocking update channel
package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI manages the status view program
type TUI struct {
	program  *tea.Program
	updates  chan tea.Msg
	quitChan chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewTUI creates a status view for the named service
func NewTUI(name, addr, root string) *TUI {
	quitChan := make(chan struct{}, 1)
	return &TUI{
		program:  tea.NewProgram(NewModel(name, addr, root, quitChan), tea.WithAltScreen()),
		updates:  make(chan tea.Msg, 32),
		quitChan: quitChan,
	}
}

// Start runs the TUI until it quits
func (t *TUI) Start() error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.started = true
	t.mu.Unlock()

	go func() {
		for msg := range t.updates {
			t.program.Send(msg)
		}
	}()

	_, err := t.program.Run()
	return err
}

// Send queues a message for the TUI without blocking
func (t *TUI) Send(msg tea.Msg) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	select {
	case t.updates <- msg:
	default:
		// Don't block if channel is full
	}
}

// Stop quits the program
func (t *TUI) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	if t.started {
		// Quit blocks until the program reads it
		go t.program.Quit()
	}
	close(t.updates)
}

// QuitChan returns the channel that signals when the user wants to quit
func (t *TUI) QuitChan() <-chan struct{} {
	return t.quitChan
}
