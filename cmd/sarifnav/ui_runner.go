package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"sarifnav/internal/ui"
)

// runWithUI runs work while the progress TUI renders events. events is
// closed when work returns, which ends the TUI.
func runWithUI(title string, docs []string, events chan ui.Event, work func() error) error {
	outcome := make(chan error, 1)
	go func() {
		outcome <- work()
		close(events)
	}()

	model := ui.NewProgressModel(title, docs, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// TUI мог завершиться раньше: дочитываем события, чтобы work не блокировался
	go func() {
		for range events {
		}
	}()
	err := <-outcome
	if uiErr != nil {
		return uiErr
	}
	return err
}
