package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run запускает таймер и блокируется до выхода пользователя.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("ошибка при запуске TUI: %w", err)
	}
	return nil
}
