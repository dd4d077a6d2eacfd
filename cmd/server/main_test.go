package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/config"
	"github.com/maynagashev/flowkeeper/internal/handlers"
	"github.com/maynagashev/flowkeeper/internal/storage"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestSetupDependencies_Memory(t *testing.T) {
	deps, err := setupDependencies(context.Background(), memoryConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer deps.close()

	assert.NotNil(t, deps.memorySessions)
	assert.NotNil(t, deps.limiter)
	assert.Empty(t, deps.router.ReadyChecks, "в памяти проверять нечего")
	assert.NotNil(t, deps.router.Auth)
	assert.NotNil(t, deps.router.Billing)

	srv := httptest.NewServer(handlers.NewRouter(deps.router))
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSetupDependencies_Postgres(t *testing.T) {
	originalNewPostgresDB := newPostgresDB
	defer func() { newPostgresDB = originalNewPostgresDB }()

	t.Run("Ошибка подключения к БД", func(t *testing.T) {
		newPostgresDB = func(string, *zap.Logger) (*sqlx.DB, error) {
			return nil, errors.New("connection refused")
		}
		cfg := memoryConfig(t)
		cfg.Storage.Driver = config.DriverPostgres
		cfg.Storage.DSN = "postgres://localhost/flowkeeper"

		_, err := setupDependencies(context.Background(), cfg, zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ошибка инициализации БД")
	})

	t.Run("Успех без миграций", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		mock.ExpectPing()
		mock.ExpectClose()
		newPostgresDB = func(string, *zap.Logger) (*sqlx.DB, error) {
			return sqlx.NewDb(mockDB, "sqlmock"), nil
		}
		cfg := memoryConfig(t)
		cfg.Storage.Driver = config.DriverPostgres
		cfg.Storage.DSN = "postgres://localhost/flowkeeper"
		cfg.Storage.Migrate = false

		deps, err := setupDependencies(context.Background(), cfg, zap.NewNop())
		require.NoError(t, err)
		require.Contains(t, deps.router.ReadyChecks, "postgres")
		require.NoError(t, deps.router.ReadyChecks["postgres"].Ping(context.Background()))

		deps.close()
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSetupDependencies_MinioError(t *testing.T) {
	originalNewMinioClient := newMinioClient
	defer func() { newMinioClient = originalNewMinioClient }()
	newMinioClient = func(context.Context, storage.MinioConfig, *zap.Logger) (*storage.MinioClient, error) {
		return nil, errors.New("bucket check failed")
	}

	cfg := memoryConfig(t)
	cfg.Objects.Driver = config.DriverMinio
	_, err := setupDependencies(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ошибка инициализации клиента MinIO")
}

func TestSetupDependencies_Integrations(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.OpenAI.APIKey = "sk-test"
	cfg.Stripe.SecretKey = "sk_test"

	deps, err := setupDependencies(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer deps.close()

	srv := httptest.NewServer(handlers.NewRouter(deps.router))
	defer srv.Close()

	// ElevenLabs не настроен: клонирование отвечает 503, а не 500.
	resp, err := http.Post(srv.URL+"/api/auth/register", "application/json",
		strings.NewReader(`{"email":"a@example.com","password":"password123"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/voice-clones/1/speak", strings.NewReader(`{"text":"hi"}`))
	require.NoError(t, err)
	for _, c := range resp.Cookies() {
		req.AddCookie(c)
	}
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSetupRouter(t *testing.T) {
	deps, err := setupDependencies(context.Background(), memoryConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer deps.close()

	r, ok := handlers.NewRouter(deps.router).(chi.Router)
	require.True(t, ok)

	for _, route := range []struct{ method, pattern string }{
		{http.MethodGet, "/ping"},
		{http.MethodGet, "/metrics"},
		{http.MethodPost, "/api/auth/login"},
		{http.MethodGet, "/api/sessions/today"},
		{http.MethodPost, "/api/journal/{id}/insights"},
		{http.MethodGet, "/api/voice-notes/{id}/audio"},
		{http.MethodDelete, "/api/habits/{id}/entries/{entryId}"},
		{http.MethodPost, "/api/reset-rituals/{id}/complete"},
		{http.MethodPut, "/api/preferences"},
		{http.MethodGet, "/api/analytics/habits"},
		{http.MethodPost, "/api/billing/webhook"},
	} {
		assert.True(t, hasRoute(r, route.method, route.pattern), "%s %s", route.method, route.pattern)
	}
}

// hasRoute проверяет наличие маршрута в роутере.
func hasRoute(r chi.Router, method, pattern string) bool {
	found := false
	_ = chi.Walk(r, func(m, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if m == method && route == pattern {
			found = true
			return errors.New("found")
		}
		return nil
	})
	return found
}

func TestStartMaintenance(t *testing.T) {
	deps, err := setupDependencies(context.Background(), memoryConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer deps.close()

	c, err := startMaintenance("@every 10m", deps, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
	<-c.Stop().Done()

	_, err = startMaintenance("каждые пять минут", deps, zap.NewNop())
	assert.Error(t, err)
}

func TestServe_Shutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	server := &http.Server{Addr: addr, Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	done := make(chan error, 1)
	go func() { done <- serve(ctx, server, time.Second, zap.NewNop()) }()

	require.Eventually(t, func() bool {
		conn, dialErr := net.Dial("tcp", addr)
		if dialErr != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err = <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("сервер не остановился")
	}
}

func TestRun_InvalidFlags(t *testing.T) {
	err := run(context.Background(), []string{"-storage", "sqlite"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite")
}
