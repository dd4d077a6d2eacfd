// Package tui - терминальный таймер фокусировки на bubbletea.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/client/api"
	"github.com/maynagashev/flowkeeper/internal/client/state"
	"github.com/maynagashev/flowkeeper/models"
)

// Экраны приложения.
type screenState int

const (
	loginScreen screenState = iota // Ввод email и пароля
	timerScreen                    // Таймер
)

func (s screenState) String() string {
	switch s {
	case loginScreen:
		return "login"
	case timerScreen:
		return "timer"
	default:
		return "unknown"
	}
}

const (
	keyQuit   = "q"
	keyCtrlC  = "ctrl+c"
	keySpace  = " "
	keyReset  = "r"
	keyType   = "t"
	keyEnter  = "enter"
	keyTab    = "tab"
	keyShTab  = "shift+tab"
	keyEscape = "esc"

	tickInterval    = time.Second
	progressWidth   = 40
	inputWidth      = 40
	numLoginFields  = 2
	statusClearTime = 3 * time.Second
)

// Длительность по умолчанию, если настройки недоступны.
var defaultMinutes = map[string]int{
	models.SessionTypeFocus:      25,
	models.SessionTypeShortBreak: 5,
	models.SessionTypeLongBreak:  15,
}

var sessionTypes = []string{models.SessionTypeFocus, models.SessionTypeShortBreak, models.SessionTypeLongBreak}

// Options - параметры запуска таймера.
type Options struct {
	Client api.Client
	// Store - файл состояния. nil отключает сохранение cookie.
	Store *state.Store
	State state.State
	// SessionType - focus, short_break или long_break.
	SessionType string
	// Minutes - длительность; 0 означает "взять из настроек пользователя".
	Minutes int
	Logger  *zap.Logger
}

// Model - состояние TUI.
type Model struct {
	client api.Client
	store  *state.Store
	st     state.State
	logger *zap.Logger

	screen        screenState
	emailInput    textinput.Model
	passwordInput textinput.Model
	focusedField  int
	loggingIn     bool

	user        *models.User
	prefs       *models.UserPreferences
	fixedMinute bool // длительность задана флагом и не берется из настроек

	sessionType    string
	plannedMinutes int
	session        *models.FocusSession
	elapsed        int // секунд отработано в текущей сессии
	running        bool
	starting       bool
	finished       bool
	tickID         int // отбрасывает тики от предыдущих запусков

	bar      progress.Model
	status   string
	statusID int
	err      error
}

// New создает модель. Если в состоянии есть cookie, экран входа пропускается.
func New(opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	email := textinput.New()
	email.Placeholder = "email"
	email.Width = inputWidth
	email.SetValue(opts.State.Email)
	email.Focus()

	password := textinput.New()
	password.Placeholder = "пароль"
	password.Width = inputWidth
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	sessionType := opts.SessionType
	if _, ok := defaultMinutes[sessionType]; !ok {
		sessionType = models.SessionTypeFocus
	}

	m := &Model{
		client:        opts.Client,
		store:         opts.Store,
		st:            opts.State,
		logger:        logger.Named("tui"),
		screen:        loginScreen,
		emailInput:    email,
		passwordInput: password,
		sessionType:   sessionType,
		fixedMinute:   opts.Minutes > 0,
		bar:           progress.New(progress.WithDefaultGradient(), progress.WithWidth(progressWidth)),
	}
	m.plannedMinutes = m.minutesFor(sessionType)
	if opts.Minutes > 0 {
		m.plannedMinutes = opts.Minutes
	}

	if opts.State.SessionCookie != "" {
		m.client.SetSessionCookie(opts.State.SessionCookie)
		m.screen = timerScreen
	}
	if email.Value() != "" {
		m.focusedField = 1
		m.emailInput.Blur()
		m.passwordInput.Focus()
	}
	return m
}

// minutesFor возвращает длительность сессии типа t из настроек или по умолчанию.
func (m *Model) minutesFor(t string) int {
	if m.prefs != nil {
		switch t {
		case models.SessionTypeFocus:
			return m.prefs.FocusMinutes
		case models.SessionTypeShortBreak:
			return m.prefs.ShortBreakMinutes
		case models.SessionTypeLongBreak:
			return m.prefs.LongBreakMinutes
		}
	}
	return defaultMinutes[t]
}

// remaining - сколько секунд осталось до конца сессии.
func (m *Model) remaining() int {
	r := m.plannedMinutes*60 - m.elapsed
	if r < 0 {
		return 0
	}
	return r
}

// percent - доля прошедшего времени для индикатора.
func (m *Model) percent() float64 {
	total := m.plannedMinutes * 60
	if total == 0 {
		return 0
	}
	return float64(m.elapsed) / float64(total)
}

// resetTimer сбрасывает таймер без обращения к серверу.
func (m *Model) resetTimer() {
	m.session = nil
	m.elapsed = 0
	m.running = false
	m.starting = false
	m.finished = false
	m.tickID++
}

// persist сохраняет cookie, если сервер ее обновил.
func (m *Model) persist() {
	if m.store == nil {
		return
	}
	cookie := m.client.SessionCookie()
	email := m.emailInput.Value()
	if m.user != nil {
		email = m.user.Email
	}
	if cookie == m.st.SessionCookie && email == m.st.Email {
		return
	}
	m.st.SessionCookie = cookie
	m.st.Email = email
	if err := m.store.Save(m.st); err != nil {
		m.logger.Warn("Не удалось сохранить состояние", zap.Error(err))
	}
}
