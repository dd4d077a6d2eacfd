//nolint:testpackage // Тесты в том же пакете для доступа к состоянию модели
package tui

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/flowkeeper/internal/client/api"
	"github.com/maynagashev/flowkeeper/internal/client/state"
	"github.com/maynagashev/flowkeeper/models"
)

// MockClient - мок api.Client.
type MockClient struct {
	mock.Mock
	cookie string
}

func (m *MockClient) Login(ctx context.Context, email, password string) (*models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	m.cookie = "cookie-after-login"
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockClient) CurrentUser(ctx context.Context) (*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockClient) Preferences(ctx context.Context) (*models.UserPreferences, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserPreferences), args.Error(1)
}

func (m *MockClient) StartSession(ctx context.Context, sessionType string, minutes int) (*models.FocusSession, error) {
	args := m.Called(ctx, sessionType, minutes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FocusSession), args.Error(1)
}

func (m *MockClient) UpdateSession(
	ctx context.Context,
	id int64,
	req models.UpdateFocusSessionRequest,
) (*models.FocusSession, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FocusSession), args.Error(1)
}

func (m *MockClient) SessionCookie() string { return m.cookie }

func (m *MockClient) SetSessionCookie(value string) { m.cookie = value }

var _ api.Client = (*MockClient)(nil)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var keySpaceMsg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}

// update применяет сообщение и возвращает команду.
func update(t *testing.T, m *Model, msg tea.Msg) tea.Cmd {
	t.Helper()
	next, cmd := m.Update(msg)
	require.Same(t, m, next)
	return cmd
}

// startSession запускает таймер и доводит его до состояния "идет".
func startSession(t *testing.T, m *Model, client *MockClient, fs *models.FocusSession) {
	t.Helper()
	client.On("StartSession", mock.Anything, fs.Type, fs.PlannedMinutes).Return(fs, nil).Once()
	cmd := update(t, m, keySpaceMsg)
	require.NotNil(t, cmd)
	assert.True(t, m.starting)
	update(t, m, cmd())
	require.True(t, m.running)
	require.Equal(t, fs.ID, m.session.ID)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		opts        Options
		wantScreen  screenState
		wantType    string
		wantMinutes int
		wantField   int
	}{
		{
			name:        "БезСостояния",
			opts:        Options{},
			wantScreen:  loginScreen,
			wantType:    models.SessionTypeFocus,
			wantMinutes: 25,
			wantField:   0,
		},
		{
			name:        "СохраненныйEmail",
			opts:        Options{State: state.State{Email: "a@example.com"}, SessionType: models.SessionTypeLongBreak},
			wantScreen:  loginScreen,
			wantType:    models.SessionTypeLongBreak,
			wantMinutes: 15,
			wantField:   1,
		},
		{
			name:        "СохраненнаяСессия",
			opts:        Options{State: state.State{SessionCookie: "abc"}, Minutes: 50},
			wantScreen:  timerScreen,
			wantType:    models.SessionTypeFocus,
			wantMinutes: 50,
		},
		{
			name:        "НеизвестныйТип",
			opts:        Options{SessionType: "nap"},
			wantScreen:  loginScreen,
			wantType:    models.SessionTypeFocus,
			wantMinutes: 25,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockClient{}
			tt.opts.Client = client
			m := New(tt.opts)
			assert.Equal(t, tt.wantScreen, m.screen)
			assert.Equal(t, tt.wantType, m.sessionType)
			assert.Equal(t, tt.wantMinutes, m.plannedMinutes)
			assert.Equal(t, tt.opts.State.SessionCookie, client.cookie)
			if tt.wantScreen == loginScreen {
				assert.Equal(t, tt.wantField, m.focusedField)
			}
		})
	}
}

func TestLoginFlow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := state.Open(path)
	require.NoError(t, err)
	defer store.Close()

	client := &MockClient{}
	user := &models.User{ID: 1, Email: "a@example.com"}
	prefs := &models.UserPreferences{FocusMinutes: 45, ShortBreakMinutes: 10, LongBreakMinutes: 20, SoundEnabled: true}
	client.On("Login", mock.Anything, "a@example.com", "secret").Return(user, nil).Once()
	client.On("Preferences", mock.Anything).Return(prefs, nil).Once()

	m := New(Options{Client: client, Store: store})

	cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, 1, m.focusedField, "enter на поле email переходит к паролю")
	assert.NotNil(t, cmd)

	update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Error(t, m.err, "пустые поля не отправляются")

	m.emailInput.SetValue("a@example.com")
	m.passwordInput.SetValue("secret")
	cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, m.loggingIn)
	assert.Nil(t, update(t, m, tea.KeyMsg{Type: tea.KeyEnter}), "повторный enter во время входа игнорируется")

	cmd = update(t, m, cmd())
	assert.Equal(t, timerScreen, m.screen)
	assert.False(t, m.loggingIn)
	assert.Empty(t, m.passwordInput.Value())

	update(t, m, cmd())
	assert.Equal(t, 45, m.plannedMinutes, "длительность берется из настроек")

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "cookie-after-login", saved.SessionCookie)
	assert.Equal(t, "a@example.com", saved.Email)
	client.AssertExpectations(t)
}

func TestInit(t *testing.T) {
	client := &MockClient{}
	user := &models.User{ID: 1, Email: "a@example.com"}
	client.On("CurrentUser", mock.Anything).Return(user, nil).Once()
	client.On("Preferences", mock.Anything).Return(nil, errors.New("сеть недоступна")).Once()

	m := New(Options{Client: client, State: state.State{SessionCookie: "abc"}})
	cmd := m.Init()
	require.NotNil(t, cmd)
	cmd = update(t, m, cmd())
	assert.Equal(t, user, m.user)

	update(t, m, cmd())
	assert.Error(t, m.err)
	assert.Equal(t, timerScreen, m.screen, "прочие ошибки не сбрасывают вход")
	assert.Equal(t, 25, m.plannedMinutes)
	client.AssertExpectations(t)
}

func TestTimerPauseResume(t *testing.T) {
	client := &MockClient{}
	m := New(Options{Client: client, State: state.State{SessionCookie: "abc"}, Minutes: 1})
	fs := &models.FocusSession{ID: 7, Type: models.SessionTypeFocus, PlannedMinutes: 1}
	startSession(t, m, client, fs)

	tickID := m.tickID
	update(t, m, tickMsg{id: tickID})
	update(t, m, tickMsg{id: tickID})
	assert.Equal(t, 2, m.elapsed)
	assert.Equal(t, 58, m.remaining())

	update(t, m, tickMsg{id: tickID - 1})
	assert.Equal(t, 2, m.elapsed, "тик прошлого запуска игнорируется")

	elapsed := 2
	client.On("UpdateSession", mock.Anything, int64(7), models.UpdateFocusSessionRequest{ActualSeconds: &elapsed}).
		Return(&models.FocusSession{ID: 7, ActualSeconds: 2}, nil).Once()
	cmd := update(t, m, keySpaceMsg)
	require.NotNil(t, cmd)
	assert.False(t, m.running)
	update(t, m, cmd())

	update(t, m, tickMsg{id: tickID})
	assert.Equal(t, 2, m.elapsed, "на паузе время не идет")

	cmd = update(t, m, keySpaceMsg)
	assert.True(t, m.running, "продолжение без запроса к серверу")
	require.NotNil(t, cmd)
	update(t, m, tickMsg{id: m.tickID})
	assert.Equal(t, 3, m.elapsed)
	client.AssertExpectations(t)
}

func TestTimerComplete(t *testing.T) {
	client := &MockClient{}
	m := New(Options{Client: client, State: state.State{SessionCookie: "abc"}, Minutes: 1})
	fs := &models.FocusSession{ID: 3, Type: models.SessionTypeFocus, PlannedMinutes: 1}
	startSession(t, m, client, fs)

	for i := 0; i < 59; i++ {
		update(t, m, tickMsg{id: m.tickID})
	}
	assert.True(t, m.running)

	seconds, completed := 60, true
	client.On("UpdateSession", mock.Anything, int64(3),
		models.UpdateFocusSessionRequest{ActualSeconds: &seconds, Completed: &completed}).
		Return(&models.FocusSession{ID: 3, ActualSeconds: 60, Completed: true}, nil).Once()

	m.prefs = &models.UserPreferences{SoundEnabled: false}
	update(t, m, tickMsg{id: m.tickID})
	assert.True(t, m.finished)
	assert.False(t, m.running)
	assert.Equal(t, 0, m.remaining())

	// Выполняем сохранение напрямую, без анимации индикатора.
	update(t, m, m.saveProgressCmd(true)())
	assert.True(t, m.session.Completed)
	assert.Equal(t, "Сессия сохранена", m.status)

	client.On("StartSession", mock.Anything, models.SessionTypeFocus, 1).
		Return(&models.FocusSession{ID: 4, Type: models.SessionTypeFocus, PlannedMinutes: 1}, nil).Once()
	cmd := update(t, m, keySpaceMsg)
	assert.False(t, m.finished, "пробел после завершения начинает новую сессию")
	update(t, m, cmd())
	assert.Equal(t, int64(4), m.session.ID)
	assert.Equal(t, 0, m.elapsed)
	client.AssertExpectations(t)
}

func TestResetDiscardsLateResponses(t *testing.T) {
	client := &MockClient{}
	m := New(Options{Client: client, State: state.State{SessionCookie: "abc"}, Minutes: 1})
	startSession(t, m, client, &models.FocusSession{ID: 7, Type: models.SessionTypeFocus, PlannedMinutes: 1})

	for i := 0; i < 3; i++ {
		update(t, m, tickMsg{id: m.tickID})
	}
	elapsed := 3
	client.On("UpdateSession", mock.Anything, int64(7), models.UpdateFocusSessionRequest{ActualSeconds: &elapsed}).
		Return(&models.FocusSession{ID: 7, ActualSeconds: 3}, nil).Once()
	pause := update(t, m, keySpaceMsg)
	require.NotNil(t, pause)

	update(t, m, keyRunes(keyReset))
	require.Nil(t, m.session)

	// Сохранение паузы приходит уже после сброса.
	update(t, m, pause())
	assert.Nil(t, m.session, "сброшенная сессия не восстанавливается")

	client.On("StartSession", mock.Anything, models.SessionTypeFocus, 1).
		Return(&models.FocusSession{ID: 8, Type: models.SessionTypeFocus, PlannedMinutes: 1}, nil).Once()
	start := update(t, m, keySpaceMsg)
	require.NotNil(t, start)
	assert.True(t, m.starting, "после сброса пробел создает новую сессию")
	assert.False(t, m.running)

	// Сброс во время запуска: ответ сервера отбрасывается.
	update(t, m, keyRunes(keyReset))
	update(t, m, start())
	assert.Nil(t, m.session)
	assert.False(t, m.running)
	client.AssertExpectations(t)
}

func TestResetAndCycleType(t *testing.T) {
	client := &MockClient{}
	m := New(Options{Client: client, State: state.State{SessionCookie: "abc"}})
	m.prefs = &models.UserPreferences{FocusMinutes: 30, ShortBreakMinutes: 7, LongBreakMinutes: 12}

	update(t, m, keyRunes(keyType))
	assert.Equal(t, models.SessionTypeShortBreak, m.sessionType)
	assert.Equal(t, 7, m.plannedMinutes)
	update(t, m, keyRunes(keyType))
	assert.Equal(t, models.SessionTypeLongBreak, m.sessionType)
	assert.Equal(t, 12, m.plannedMinutes)

	fs := &models.FocusSession{ID: 1, Type: models.SessionTypeLongBreak, PlannedMinutes: 12}
	startSession(t, m, client, fs)
	update(t, m, keyRunes(keyType))
	assert.Equal(t, models.SessionTypeLongBreak, m.sessionType, "тип не меняется во время сессии")
	assert.NotEmpty(t, m.status)

	update(t, m, keyRunes(keyReset))
	assert.Nil(t, m.session)
	assert.False(t, m.running)
	update(t, m, keyRunes(keyType))
	assert.Equal(t, models.SessionTypeFocus, m.sessionType)
	assert.Equal(t, 30, m.plannedMinutes)
	client.AssertExpectations(t)
}

func TestAuthorizationErrorReturnsToLogin(t *testing.T) {
	client := &MockClient{}
	m := New(Options{Client: client, State: state.State{SessionCookie: "abc", Email: "a@example.com"}})
	client.On("StartSession", mock.Anything, models.SessionTypeFocus, 25).
		Return(nil, api.ErrAuthorization).Once()

	cmd := update(t, m, keySpaceMsg)
	require.NotNil(t, cmd)
	update(t, m, cmd())

	assert.Equal(t, loginScreen, m.screen)
	assert.ErrorIs(t, m.err, api.ErrAuthorization)
	assert.Empty(t, client.cookie)
	assert.False(t, m.starting)
	assert.Equal(t, 1, m.focusedField)
	assert.Contains(t, m.View(), "Ошибка")
	client.AssertExpectations(t)
}

func TestQuit(t *testing.T) {
	client := &MockClient{}
	m := New(Options{Client: client, State: state.State{SessionCookie: "abc"}})

	cmd := update(t, m, keyRunes(keyQuit))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	fs := &models.FocusSession{ID: 9, Type: models.SessionTypeFocus, PlannedMinutes: 25}
	startSession(t, m, client, fs)
	cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.False(t, m.running, "выход во время сессии ставит ее на паузу")
}

func TestStatusClear(t *testing.T) {
	m := New(Options{Client: &MockClient{}})
	m.setStatus("первое")
	m.setStatus("второе")

	update(t, m, clearStatusMsg{id: 1})
	assert.Equal(t, "второе", m.status, "устаревшая очистка игнорируется")
	update(t, m, clearStatusMsg{id: m.statusID})
	assert.Empty(t, m.status)
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "00:00"},
		{59, "00:59"},
		{25 * 60, "25:00"},
		{61, "01:01"},
		{120*60 + 5, "120:05"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatClock(tt.seconds))
	}
}

func TestView(t *testing.T) {
	m := New(Options{Client: &MockClient{}})
	assert.Contains(t, m.View(), "вход")

	m.screen = timerScreen
	m.user = &models.User{Email: "a@example.com"}
	view := m.View()
	assert.Contains(t, view, "25:00")
	assert.Contains(t, view, "a@example.com")
	assert.Contains(t, view, "Готов")
}
