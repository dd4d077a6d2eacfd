package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/config"
	"github.com/maynagashev/flowkeeper/internal/events"
	"github.com/maynagashev/flowkeeper/internal/handlers"
	"github.com/maynagashev/flowkeeper/internal/integrations/elevenlabs"
	"github.com/maynagashev/flowkeeper/internal/integrations/openai"
	"github.com/maynagashev/flowkeeper/internal/integrations/stripe"
	"github.com/maynagashev/flowkeeper/internal/middleware"
	"github.com/maynagashev/flowkeeper/internal/repository"
	"github.com/maynagashev/flowkeeper/internal/repository/migrations"
	"github.com/maynagashev/flowkeeper/internal/services"
	"github.com/maynagashev/flowkeeper/internal/session"
	"github.com/maynagashev/flowkeeper/internal/storage"
)

// Подменяются в тестах.
var (
	newPostgresDB  = repository.NewPostgresDB
	newMinioClient = storage.NewMinioClient
)

// dependencies - инициализированные зависимости сервера.
type dependencies struct {
	router handlers.Deps
	// memorySessions - хранилище сессий в памяти, nil для Redis.
	memorySessions *session.MemoryStore
	limiter        *middleware.RateLimiter
	closers        []func() error
	logger         *zap.Logger
}

// close освобождает ресурсы в обратном порядке.
func (d *dependencies) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.logger.Warn("Ошибка освобождения ресурса", zap.Error(err))
		}
	}
}

// setupDependencies инициализирует хранилища, интеграции и сервисы по конфигурации.
// При ошибке уже открытые ресурсы закрываются.
func setupDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (deps *dependencies, err error) {
	deps = &dependencies{logger: logger, router: handlers.Deps{
		ReadyChecks: make(map[string]handlers.Pinger),
		Logger:      logger,
	}}
	defer func() {
		if err != nil {
			deps.close()
		}
	}()

	repos, err := deps.openStorage(cfg, logger)
	if err != nil {
		return nil, err
	}
	sessionStore, err := deps.openSessions(cfg)
	if err != nil {
		return nil, err
	}
	files, err := deps.openObjects(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	publisher, err := deps.openPublisher(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Интерфейсы остаются nil, если ключ интеграции не задан: сервисы отвечают ErrIntegrationDisabled.
	var (
		insights    services.InsightsGenerator
		transcriber services.Transcriber
		cloner      services.VoiceCloner
		billing     services.BillingProvider
	)
	if cfg.OpenAI.APIKey != "" {
		client := openai.NewClient(openai.Config{
			APIKey:          cfg.OpenAI.APIKey,
			Model:           cfg.OpenAI.Model,
			TranscribeModel: cfg.OpenAI.TranscribeModel,
		}, logger)
		insights, transcriber = client, client
	}
	if cfg.ElevenLab.APIKey != "" {
		cloner = elevenlabs.NewClient(elevenlabs.Config{
			APIKey:  cfg.ElevenLab.APIKey,
			BaseURL: cfg.ElevenLab.BaseURL,
			ModelID: cfg.ElevenLab.ModelID,
		}, logger)
	}
	if cfg.Stripe.SecretKey != "" {
		billing = stripe.NewClient(stripe.Config{
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
		}, logger)
	}
	logger.Info("Интеграции",
		zap.Bool("openai", insights != nil),
		zap.Bool("elevenlabs", cloner != nil),
		zap.Bool("stripe", billing != nil),
		zap.Bool("amqp", cfg.MQ.URL != ""))

	calendar := services.NewCalendar(repos.Preferences, nil, logger)
	habits := services.NewHabitService(repos.Habits, calendar, publisher, logger)
	prefs := services.NewPreferencesService(repos.Preferences, logger)

	deps.limiter = middleware.NewRateLimiter(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst)
	deps.router.Auth = services.NewAuthService(repos.Users, repos.Preferences, 0, logger)
	deps.router.Focus = services.NewFocusService(repos.Sessions, calendar, publisher, logger)
	deps.router.Journal = services.NewJournalService(repos.Journal, insights, calendar, publisher, logger)
	deps.router.VoiceNotes = services.NewVoiceNoteService(repos.VoiceNotes, files, transcriber, insights, logger)
	deps.router.VoiceClones = services.NewVoiceCloneService(repos.VoiceClones, files, cloner, logger)
	deps.router.Habits = habits
	deps.router.Rituals = services.NewRitualService(repos.Rituals, publisher, logger)
	deps.router.Preferences = prefs
	deps.router.Dashboard = services.NewDashboardService(repos.Stats, repos.Sessions, habits, prefs, calendar, logger)
	deps.router.Billing = services.NewBillingService(repos.Users, billing, services.BillingOptions{
		PriceID:  cfg.Stripe.PriceID,
		Currency: cfg.Stripe.Currency,
	}, publisher, logger)
	deps.router.Sessions = session.NewManager(sessionStore, session.Options{
		Secret:     cfg.Sessions.Secret,
		TTL:        cfg.Sessions.TTL,
		CookieName: cfg.Sessions.CookieName,
		Secure:     cfg.Sessions.CookieSecure,
	})
	deps.router.AuthLimiter = deps.limiter
	return deps, nil
}

func (d *dependencies) openStorage(cfg *config.Config, logger *zap.Logger) (*repository.Repositories, error) {
	if cfg.Storage.Driver == config.DriverMemory {
		logger.Warn("Данные хранятся в памяти и будут потеряны при перезапуске")
		return repository.NewMemoryRepositories(repository.NewMemoryStore()), nil
	}

	db, err := newPostgresDB(cfg.Storage.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации БД: %w", err)
	}
	d.closers = append(d.closers, db.Close)
	if cfg.Storage.Migrate {
		if err = migrations.Apply(db.DB, logger); err != nil {
			return nil, err
		}
	}
	d.router.ReadyChecks["postgres"] = handlers.PingFunc(db.PingContext)
	return repository.NewPostgresRepositories(db, logger), nil
}

func (d *dependencies) openSessions(cfg *config.Config) (session.Store, error) {
	if cfg.Sessions.Driver == config.DriverMemory {
		d.memorySessions = session.NewMemoryStore()
		return d.memorySessions, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Sessions.RedisAddr,
		Password: cfg.Sessions.RedisPassword,
		DB:       cfg.Sessions.RedisDB,
	})
	d.closers = append(d.closers, client.Close)
	store := session.NewRedisStore(client)
	d.router.ReadyChecks["redis"] = store
	return store, nil
}

func (d *dependencies) openObjects(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.FileStorage, error) {
	if cfg.Objects.Driver == config.DriverMemory {
		return storage.NewMemoryStorage(), nil
	}

	client, err := newMinioClient(ctx, storage.MinioConfig{
		Endpoint:        cfg.Objects.Endpoint,
		AccessKeyID:     cfg.Objects.AccessKey,
		SecretAccessKey: cfg.Objects.SecretKey,
		UseSSL:          cfg.Objects.UseSSL,
		BucketName:      cfg.Objects.Bucket,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации клиента MinIO: %w", err)
	}
	d.router.ReadyChecks["minio"] = client
	return client, nil
}

func (d *dependencies) openPublisher(cfg *config.Config, logger *zap.Logger) (events.Publisher, error) {
	if cfg.MQ.URL == "" {
		return events.Noop{}, nil
	}
	publisher, err := events.NewAMQPPublisher(cfg.MQ.URL, cfg.MQ.Exchange, logger)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к RabbitMQ: %w", err)
	}
	d.closers = append(d.closers, publisher.Close)
	return publisher, nil
}

// startMaintenance запускает фоновые задачи по расписанию: чистку истекших сессий в памяти
// и забытых клиентов ограничителя частоты.
func startMaintenance(schedule string, deps *dependencies, logger *zap.Logger) (*cron.Cron, error) {
	logger = logger.Named("maintenance")
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		var purged int
		if deps.memorySessions != nil {
			purged = deps.memorySessions.Purge()
		}
		forgotten := deps.limiter.Cleanup()
		logger.Debug("Плановая очистка", zap.Int("sessions", purged), zap.Int("visitors", forgotten))
	})
	if err != nil {
		return nil, fmt.Errorf("неверное расписание очистки %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
