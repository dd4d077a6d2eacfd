package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/models"
)

type postgresPreferencesRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresPreferencesRepository создает репозиторий настроек пользователя.
func NewPostgresPreferencesRepository(db *sqlx.DB, logger *zap.Logger) PreferencesRepository {
	return &postgresPreferencesRepository{db: db, logger: logger.Named("prefs_repo")}
}

func (r *postgresPreferencesRepository) GetPreferences(
	ctx context.Context,
	userID int64,
) (*models.UserPreferences, error) {
	var p models.UserPreferences
	query := `SELECT user_id, focus_minutes, short_break_minutes, long_break_minutes, sessions_until_long_break,
	            daily_focus_goal_minutes, sound_enabled, theme, timezone, updated_at
	          FROM user_preferences WHERE user_id=$1`
	if err := r.db.GetContext(ctx, &p, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения настроек: %w", err)
	}
	return &p, nil
}

func (r *postgresPreferencesRepository) UpsertPreferences(ctx context.Context, p *models.UserPreferences) error {
	query := `INSERT INTO user_preferences (user_id, focus_minutes, short_break_minutes, long_break_minutes,
	            sessions_until_long_break, daily_focus_goal_minutes, sound_enabled, theme, timezone)
	          VALUES (:user_id, :focus_minutes, :short_break_minutes, :long_break_minutes,
	            :sessions_until_long_break, :daily_focus_goal_minutes, :sound_enabled, :theme, :timezone)
	          ON CONFLICT (user_id) DO UPDATE SET
	            focus_minutes = EXCLUDED.focus_minutes,
	            short_break_minutes = EXCLUDED.short_break_minutes,
	            long_break_minutes = EXCLUDED.long_break_minutes,
	            sessions_until_long_break = EXCLUDED.sessions_until_long_break,
	            daily_focus_goal_minutes = EXCLUDED.daily_focus_goal_minutes,
	            sound_enabled = EXCLUDED.sound_enabled,
	            theme = EXCLUDED.theme,
	            timezone = EXCLUDED.timezone,
	            updated_at = NOW()`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("ошибка сохранения настроек: %w", err)
	}
	return nil
}
