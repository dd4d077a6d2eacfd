// Сервер FlowKeeper: REST API таймера, дневника, привычек и голосовых заметок.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/config"
	"github.com/maynagashev/flowkeeper/internal/handlers"
	"github.com/maynagashev/flowkeeper/internal/logger"
)

// main - точка входа. Вызывает run и обрабатывает ошибку.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.Printf("Ошибка выполнения сервера: %v", err)
		stop()
		os.Exit(1)
	}
}

// run собирает зависимости, запускает HTTP-сервер и ждет отмены ctx.
func run(ctx context.Context, args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	zlog, err := logger.New(cfg.IsDevelopment(), cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = zlog.Sync() }()

	zlog.Info("Запуск сервера FlowKeeper",
		zap.String("env", cfg.Env),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("sessions", cfg.Sessions.Driver),
		zap.String("objects", cfg.Objects.Driver))
	if cfg.Sessions.SecretGenerated {
		zlog.Warn("Секрет сессий не задан, сгенерирован случайный: после перезапуска все сессии станут недействительны")
	}

	deps, err := setupDependencies(ctx, cfg, zlog)
	if err != nil {
		return fmt.Errorf("ошибка инициализации зависимостей: %w", err)
	}
	defer deps.close()

	scheduler, err := startMaintenance(cfg.Sessions.PurgeSchedule, deps, zlog)
	if err != nil {
		return err
	}
	defer func() { <-scheduler.Stop().Done() }()

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handlers.NewRouter(deps.router),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}
	return serve(ctx, server, cfg.HTTP.ShutdownTimeout, zlog)
}

// serve запускает сервер и корректно останавливает его после отмены ctx.
func serve(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, zlog *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		zlog.Info("HTTP-сервер слушает", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("ошибка запуска HTTP-сервера: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info("Остановка сервера...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки HTTP-сервера: %w", err)
	}
	zlog.Info("Сервер остановлен")
	return <-errCh
}
