// Package migrations применяет SQL-миграции схемы PostgreSQL.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var files embed.FS

// Apply накатывает все новые миграции. Повторный вызов безопасен.
func Apply(db *sql.DB, logger *zap.Logger) error {
	src, err := iofs.New(files, "sql")
	if err != nil {
		return fmt.Errorf("ошибка чтения встроенных миграций: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("ошибка инициализации драйвера миграций: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("ошибка инициализации мигратора: %w", err)
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("Схема БД актуальна")
	case err != nil:
		return fmt.Errorf("ошибка применения миграций: %w", err)
	default:
		version, dirty, verErr := m.Version()
		if verErr != nil {
			logger.Warn("Не удалось получить версию схемы", zap.Error(verErr))
		} else {
			logger.Info("Миграции применены", zap.Uint("version", version), zap.Bool("dirty", dirty))
		}
	}
	return nil
}

// Files возвращает встроенные файлы миграций (используется в тестах).
func Files() embed.FS {
	return files
}
