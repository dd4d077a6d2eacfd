package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/maynagashev/flowkeeper/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")). // Розовый заголовок
			MarginBottom(1)
	clockStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Padding(0, 2)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	frameStyle  = lipgloss.NewStyle().Padding(1, 2)
)

var typeTitles = map[string]string{
	models.SessionTypeFocus:      "Фокус",
	models.SessionTypeShortBreak: "Короткий перерыв",
	models.SessionTypeLongBreak:  "Длинный перерыв",
}

// View отрисовывает текущий экран.
func (m *Model) View() string {
	var b strings.Builder
	if m.screen == loginScreen {
		m.viewLogin(&b)
	} else {
		m.viewTimer(&b)
	}
	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render("Ошибка: "+m.err.Error()) + "\n")
	}
	if m.status != "" {
		b.WriteString("\n" + statusStyle.Render(m.status) + "\n")
	}
	return frameStyle.Render(b.String())
}

func (m *Model) viewLogin(b *strings.Builder) {
	b.WriteString(titleStyle.Render("FlowKeeper: вход") + "\n")
	b.WriteString(m.emailInput.View() + "\n")
	b.WriteString(m.passwordInput.View() + "\n\n")
	if m.loggingIn {
		b.WriteString("Вход...\n")
	}
	b.WriteString(helpStyle.Render("tab: следующее поле • enter: войти • esc: выход"))
}

func (m *Model) viewTimer(b *strings.Builder) {
	title := "FlowKeeper: " + typeTitles[m.sessionType]
	if m.user != nil {
		title += " • " + m.user.Email
	}
	b.WriteString(titleStyle.Render(title) + "\n")
	b.WriteString(clockStyle.Render(formatClock(m.remaining())) + "\n\n")
	b.WriteString(m.bar.View() + "\n\n")

	var state string
	switch {
	case m.starting:
		state = "Запуск..."
	case m.finished:
		state = "Сессия завершена"
	case m.running:
		state = "Идет"
	case m.session != nil:
		state = "Пауза"
	default:
		state = fmt.Sprintf("Готов: %d мин", m.plannedMinutes)
	}
	b.WriteString(state + "\n\n")
	b.WriteString(helpStyle.Render("пробел: старт/пауза • r: сброс • t: тип • q: выход"))
}

// formatClock форматирует секунды как MM:SS.
func formatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
