package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maynagashev/flowkeeper/models"
)

const apiTimeout = 10 * time.Second

// --- Сообщения --- //

type tickMsg struct {
	id int
}

type loginDoneMsg struct {
	user *models.User
}

type userCheckedMsg struct {
	user *models.User
}

type prefsLoadedMsg struct {
	prefs *models.UserPreferences
}

type sessionStartedMsg struct {
	session *models.FocusSession
}

type sessionSavedMsg struct {
	session *models.FocusSession
}

type errMsg struct {
	err error
}

type clearStatusMsg struct {
	id int
}

// --- Команды --- //

func tickCmd(id int) tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return tickMsg{id: id} })
}

func clearStatusCmd(id int) tea.Cmd {
	return tea.Tick(statusClearTime, func(time.Time) tea.Msg { return clearStatusMsg{id: id} })
}

func (m *Model) loginCmd(email, password string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), apiTimeout)
		defer cancel()
		user, err := client.Login(ctx, email, password)
		if err != nil {
			return errMsg{err: err}
		}
		return loginDoneMsg{user: user}
	}
}

func (m *Model) checkUserCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), apiTimeout)
		defer cancel()
		user, err := client.CurrentUser(ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return userCheckedMsg{user: user}
	}
}

func (m *Model) loadPrefsCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), apiTimeout)
		defer cancel()
		prefs, err := client.Preferences(ctx)
		if err != nil {
			return errMsg{err: err}
		}
		return prefsLoadedMsg{prefs: prefs}
	}
}

func (m *Model) startSessionCmd() tea.Cmd {
	client, sessionType, minutes := m.client, m.sessionType, m.plannedMinutes
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), apiTimeout)
		defer cancel()
		fs, err := client.StartSession(ctx, sessionType, minutes)
		if err != nil {
			return errMsg{err: err}
		}
		return sessionStartedMsg{session: fs}
	}
}

// saveProgressCmd отправляет накопленное время. completed завершает сессию.
func (m *Model) saveProgressCmd(completed bool) tea.Cmd {
	if m.session == nil {
		return nil
	}
	client, id, elapsed := m.client, m.session.ID, m.elapsed
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), apiTimeout)
		defer cancel()
		req := models.UpdateFocusSessionRequest{ActualSeconds: &elapsed}
		if completed {
			req.Completed = &completed
		}
		fs, err := client.UpdateSession(ctx, id, req)
		if err != nil {
			return errMsg{err: err}
		}
		return sessionSavedMsg{session: fs}
	}
}
