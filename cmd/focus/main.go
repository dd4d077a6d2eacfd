// Команда focus - терминальный таймер фокусировки, работающий с сервером FlowKeeper.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/client/api"
	"github.com/maynagashev/flowkeeper/internal/client/state"
	"github.com/maynagashev/flowkeeper/internal/client/tui"
	"github.com/maynagashev/flowkeeper/internal/logger"
	"github.com/maynagashev/flowkeeper/models"
)

const (
	defaultServer = "http://localhost:8080"
	defaultCookie = "flowkeeper_session"
	logFileName   = "focus.log"
	// Переменная окружения с адресом сервера.
	serverEnvVar = "FLOWKEEPER_SERVER"
)

// Переменные для версии и даты сборки, устанавливаются через ldflags.
var (
	version   = "dev"
	buildDate = "unknown"
)

type options struct {
	server      string
	cookieName  string
	email       string
	sessionType string
	minutes     int
	statePath   string
	logLevel    string
	logout      bool
	showVersion bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("focus", flag.ContinueOnError)
	opts := &options{}
	fs.StringVar(&opts.server, "server", "", "URL сервера FlowKeeper (по умолчанию "+serverEnvVar+" или сохраненный)")
	fs.StringVar(&opts.cookieName, "cookie-name", defaultCookie, "Имя cookie сессии сервера")
	fs.StringVar(&opts.email, "email", "", "Email для входа")
	fs.StringVar(&opts.sessionType, "type", models.SessionTypeFocus, "Тип сессии: focus, short_break, long_break")
	fs.IntVar(&opts.minutes, "minutes", 0, "Длительность в минутах (0 - из настроек пользователя)")
	fs.StringVar(&opts.statePath, "state", "", "Путь к файлу состояния")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Уровень логирования")
	fs.BoolVar(&opts.logout, "logout", false, "Забыть сохраненную сессию и выйти")
	fs.BoolVar(&opts.showVersion, "version", false, "Показать версию и дату сборки")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch opts.sessionType {
	case models.SessionTypeFocus, models.SessionTypeShortBreak, models.SessionTypeLongBreak:
	default:
		return nil, fmt.Errorf("неизвестный тип сессии %q", opts.sessionType)
	}
	if opts.minutes < 0 || opts.minutes > models.MaxPlannedMinutes {
		return nil, fmt.Errorf("длительность должна быть от 1 до %d минут", models.MaxPlannedMinutes)
	}
	return opts, nil
}

// resolveServer выбирает адрес сервера: флаг, окружение, сохраненный, по умолчанию.
func resolveServer(flagValue, saved string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(serverEnvVar); env != "" {
		return env
	}
	if saved != "" {
		return saved
	}
	return defaultServer
}

func run(args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "FlowKeeper focus\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return nil
	}

	if opts.statePath == "" {
		if opts.statePath, err = state.DefaultPath(); err != nil {
			return err
		}
	}
	store, err := state.Open(opts.statePath)
	if errors.Is(err, state.ErrLocked) {
		return fmt.Errorf("%w: %s", err, opts.statePath)
	}
	if err != nil {
		return err
	}
	defer store.Close()

	zlog, err := logger.NewFile(filepath.Join(filepath.Dir(store.Path()), logFileName), opts.logLevel)
	if err != nil {
		return err
	}
	defer func() { _ = zlog.Sync() }()

	st, err := store.Load()
	if err != nil {
		return err
	}

	if opts.logout {
		st.SessionCookie = ""
		if err = store.Save(st); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "Сессия забыта")
		return nil
	}

	server := resolveServer(opts.server, st.Server)
	if server != st.Server {
		// Cookie другого сервера здесь недействительна.
		st.Server = server
		st.SessionCookie = ""
		if err = store.Save(st); err != nil {
			return err
		}
	}
	if opts.email != "" && opts.email != st.Email {
		st.Email = opts.email
		st.SessionCookie = ""
	}

	zlog.Info("Запуск таймера",
		zap.String("server", server),
		zap.String("type", opts.sessionType),
		zap.String("version", version))

	return tui.Run(tui.Options{
		Client:      api.NewHTTPClient(server, opts.cookieName),
		Store:       store,
		State:       st,
		SessionType: opts.sessionType,
		Minutes:     opts.minutes,
		Logger:      zlog,
	})
}
