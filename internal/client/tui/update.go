package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/client/api"
)

// Init проверяет сохраненную сессию или показывает экран входа.
func (m *Model) Init() tea.Cmd {
	if m.screen == timerScreen {
		return m.checkUserCmd()
	}
	return textinput.Blink
}

// Update обрабатывает сообщения.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == keyCtrlC {
			return m, m.quit()
		}
		if m.screen == loginScreen {
			return m.updateLogin(msg)
		}
		return m.updateTimer(msg)

	case tea.WindowSizeMsg:
		m.bar.Width = min(progressWidth, max(msg.Width-4, 10))
		return m, nil

	case loginDoneMsg:
		m.loggingIn = false
		m.user = msg.user
		m.err = nil
		m.passwordInput.SetValue("")
		m.screen = timerScreen
		m.persist()
		m.logger.Info("Вход выполнен", zap.String("email", msg.user.Email))
		return m, m.loadPrefsCmd()

	case userCheckedMsg:
		m.user = msg.user
		m.persist()
		return m, m.loadPrefsCmd()

	case prefsLoadedMsg:
		m.prefs = msg.prefs
		if !m.fixedMinute && m.session == nil {
			m.plannedMinutes = m.minutesFor(m.sessionType)
		}
		return m, nil

	case sessionStartedMsg:
		if !m.starting {
			// Таймер сброшен, пока шел запрос.
			m.logger.Debug("Ответ на запуск после сброса отброшен", zap.Int64("session_id", msg.session.ID))
			return m, nil
		}
		m.starting = false
		m.session = msg.session
		m.running = true
		m.tickID++
		m.persist()
		return m, tickCmd(m.tickID)

	case sessionSavedMsg:
		if m.session == nil || m.session.ID != msg.session.ID {
			// Ответ по сессии, брошенной сбросом или замененной новой.
			m.logger.Debug("Ответ по устаревшей сессии отброшен", zap.Int64("session_id", msg.session.ID))
			return m, nil
		}
		m.session = msg.session
		m.persist()
		if msg.session.Completed {
			return m, m.setStatus("Сессия сохранена")
		}
		return m, nil

	case tickMsg:
		return m.handleTick(msg)

	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		if b, ok := bar.(progress.Model); ok {
			m.bar = b
		}
		return m, cmd

	case errMsg:
		return m.handleError(msg.err)
	}
	return m, nil
}

func (m *Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyEscape:
		return m, tea.Quit
	case keyTab, keyShTab, "up", "down":
		return m, m.switchField()
	case keyEnter:
		if m.loggingIn {
			return m, nil
		}
		if m.focusedField == 0 {
			return m, m.switchField()
		}
		email := strings.TrimSpace(m.emailInput.Value())
		password := m.passwordInput.Value()
		if email == "" || password == "" {
			m.err = errors.New("введите email и пароль")
			return m, nil
		}
		m.loggingIn = true
		m.err = nil
		return m, m.loginCmd(email, password)
	}

	var cmd tea.Cmd
	if m.focusedField == 0 {
		m.emailInput, cmd = m.emailInput.Update(msg)
	} else {
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) switchField() tea.Cmd {
	m.focusedField = (m.focusedField + 1) % numLoginFields
	if m.focusedField == 0 {
		m.passwordInput.Blur()
		return m.emailInput.Focus()
	}
	m.emailInput.Blur()
	return m.passwordInput.Focus()
}

func (m *Model) updateTimer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyQuit:
		return m, m.quit()

	case keySpace:
		switch {
		case m.starting:
			return m, nil
		case m.running:
			// Пауза: останавливаем тики и сохраняем прогресс.
			m.running = false
			m.tickID++
			return m, m.saveProgressCmd(false)
		case m.finished:
			m.resetTimer()
			fallthrough
		case m.session == nil:
			m.starting = true
			m.err = nil
			return m, m.startSessionCmd()
		default:
			m.running = true
			m.tickID++
			return m, tickCmd(m.tickID)
		}

	case keyReset:
		m.resetTimer()
		return m, m.bar.SetPercent(0)

	case keyType:
		if m.session != nil && !m.finished {
			return m, m.setStatus("Сначала сбросьте текущую сессию (r)")
		}
		m.resetTimer()
		m.sessionType = nextType(m.sessionType)
		if !m.fixedMinute {
			m.plannedMinutes = m.minutesFor(m.sessionType)
		}
		return m, m.bar.SetPercent(0)
	}
	return m, nil
}

func (m *Model) handleTick(msg tickMsg) (tea.Model, tea.Cmd) {
	if !m.running || msg.id != m.tickID {
		return m, nil
	}
	m.elapsed++
	barCmd := m.bar.SetPercent(m.percent())
	if m.remaining() > 0 {
		return m, tea.Batch(tickCmd(m.tickID), barCmd)
	}

	m.running = false
	m.finished = true
	m.tickID++
	m.logger.Info("Сессия завершена", zap.Int64("session_id", m.session.ID), zap.Int("seconds", m.elapsed))
	cmds := []tea.Cmd{barCmd, m.saveProgressCmd(true)}
	if m.prefs == nil || m.prefs.SoundEnabled {
		cmds = append(cmds, tea.Printf("\a"))
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleError(err error) (tea.Model, tea.Cmd) {
	m.loggingIn = false
	m.starting = false
	m.logger.Warn("Ошибка запроса к серверу", zap.Error(err))
	if errors.Is(err, api.ErrAuthorization) {
		// Сессия истекла или пароль неверный: возвращаемся ко входу, таймер останавливаем.
		m.running = false
		m.tickID++
		m.client.SetSessionCookie("")
		m.persist()
		m.screen = loginScreen
		m.focusedField = 1
		m.emailInput.Blur()
		m.passwordInput.Focus()
	}
	m.err = err
	return m, nil
}

// quit сохраняет прогресс идущей сессии и выходит.
func (m *Model) quit() tea.Cmd {
	if m.running {
		m.running = false
		m.tickID++
		return tea.Sequence(m.saveProgressCmd(false), tea.Quit)
	}
	return tea.Quit
}

func (m *Model) setStatus(s string) tea.Cmd {
	m.status = s
	m.statusID++
	return clearStatusCmd(m.statusID)
}

func nextType(t string) string {
	for i, st := range sessionTypes {
		if st == t {
			return sessionTypes[(i+1)%len(sessionTypes)]
		}
	}
	return sessionTypes[0]
}
