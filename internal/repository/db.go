package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq" // Драйвер PostgreSQL, импортируем для регистрации и кодов ошибок
	"go.uber.org/zap"
)

const (
	maxOpenConns    = 25              // Максимальное количество открытых соединений
	maxIdleConns    = 25              // Максимальное количество простаивающих соединений
	connMaxLifetime = 5 * time.Minute // Максимальное время жизни соединения
	connMaxIdleTime = 5 * time.Minute // Максимальное время простоя соединения
	pingTimeout     = 5 * time.Second
)

// NewPostgresDB создает и возвращает новое подключение к PostgreSQL.
func NewPostgresDB(dsn string, logger *zap.Logger) (*sqlx.DB, error) {
	logger.Info("Подключение к PostgreSQL...")

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	// Проверка соединения
	if err = db.PingContext(ctx); err != nil {
		// Закрываем соединение в случае ошибки пинга
		if closeErr := db.Close(); closeErr != nil {
			logger.Warn("Ошибка закрытия соединения с БД после неудачного пинга", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("ошибка проверки соединения с БД (ping): %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	logger.Info("Подключение к PostgreSQL успешно установлено")
	return db, nil
}

// NewPostgresRepositories создает набор репозиториев поверх одного подключения.
func NewPostgresRepositories(db *sqlx.DB, logger *zap.Logger) *Repositories {
	return &Repositories{
		Users:       NewPostgresUserRepository(db, logger),
		Sessions:    NewPostgresFocusSessionRepository(db, logger),
		Journal:     NewPostgresJournalRepository(db, logger),
		VoiceNotes:  NewPostgresVoiceNoteRepository(db, logger),
		VoiceClones: NewPostgresVoiceCloneRepository(db, logger),
		Habits:      NewPostgresHabitRepository(db, logger),
		Rituals:     NewPostgresRitualRepository(db, logger),
		Preferences: NewPostgresPreferencesRepository(db, logger),
		Stats:       NewPostgresStatsRepository(db, logger),
	}
}

// isUniqueViolation проверяет, что ошибка - нарушение уникальности (duplicate key).
func isUniqueViolation(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode
}

// checkAffected превращает "0 затронутых строк" в ErrNotFound.
func checkAffected(res interface{ RowsAffected() (int64, error) }) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества затронутых строк: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
