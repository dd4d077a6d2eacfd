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

const (
	ritualColumns     = `id, user_id, name, description, duration_minutes, category, created_at`
	completionColumns = `id, ritual_id, user_id, mood_before, mood_after, notes, completed_at`
)

type postgresRitualRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresRitualRepository создает репозиторий ритуалов восстановления.
func NewPostgresRitualRepository(db *sqlx.DB, logger *zap.Logger) RitualRepository {
	return &postgresRitualRepository{db: db, logger: logger.Named("ritual_repo")}
}

func (r *postgresRitualRepository) ListRituals(ctx context.Context, userID int64) ([]models.ResetRitual, error) {
	// Сначала встроенные (user_id IS NULL), затем собственные
	query := `SELECT ` + ritualColumns + ` FROM reset_rituals
	          WHERE user_id IS NULL OR user_id=$1 ORDER BY user_id NULLS FIRST, id ASC`
	rituals := []models.ResetRitual{}
	if err := r.db.SelectContext(ctx, &rituals, query, userID); err != nil {
		return nil, fmt.Errorf("ошибка получения ритуалов: %w", err)
	}
	return rituals, nil
}

func (r *postgresRitualRepository) GetRitual(ctx context.Context, userID, id int64) (*models.ResetRitual, error) {
	var ritual models.ResetRitual
	query := `SELECT ` + ritualColumns + ` FROM reset_rituals WHERE id=$1 AND (user_id IS NULL OR user_id=$2)`
	if err := r.db.GetContext(ctx, &ritual, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения ритуала: %w", err)
	}
	return &ritual, nil
}

func (r *postgresRitualRepository) CreateRitual(ctx context.Context, ritual *models.ResetRitual) (int64, error) {
	query := `INSERT INTO reset_rituals (user_id, name, description, duration_minutes, category)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query,
		ritual.UserID, ritual.Name, ritual.Description, ritual.DurationMinutes, ritual.Category,
	).Scan(&ritual.ID, &ritual.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания ритуала: %w", err)
	}
	return ritual.ID, nil
}

func (r *postgresRitualRepository) DeleteRitual(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reset_rituals WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления ритуала: %w", err)
	}
	return checkAffected(res)
}

func (r *postgresRitualRepository) CreateResetCompletion(
	ctx context.Context,
	c *models.ResetCompletion,
) (int64, error) {
	query := `INSERT INTO reset_completions (ritual_id, user_id, mood_before, mood_after, notes)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id, completed_at`
	err := r.db.QueryRowxContext(ctx, query, c.RitualID, c.UserID, c.MoodBefore, c.MoodAfter, c.Notes).
		Scan(&c.ID, &c.CompletedAt)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания отметки ритуала: %w", err)
	}
	return c.ID, nil
}

func (r *postgresRitualRepository) ListResetCompletions(
	ctx context.Context,
	userID int64,
	limit int,
) ([]models.ResetCompletion, error) {
	query := `SELECT ` + completionColumns + ` FROM reset_completions
	          WHERE user_id=$1 ORDER BY completed_at DESC LIMIT $2`
	completions := make([]models.ResetCompletion, 0, limit)
	if err := r.db.SelectContext(ctx, &completions, query, userID, limit); err != nil {
		return nil, fmt.Errorf("ошибка получения отметок ритуалов: %w", err)
	}
	return completions, nil
}
