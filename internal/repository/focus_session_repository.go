package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/models"
)

const focusSessionColumns = `id, user_id, type, planned_minutes, start_time, end_time,
	actual_seconds, completed, notes, created_at`

type postgresFocusSessionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresFocusSessionRepository создает репозиторий сессий таймера.
func NewPostgresFocusSessionRepository(db *sqlx.DB, logger *zap.Logger) FocusSessionRepository {
	return &postgresFocusSessionRepository{db: db, logger: logger.Named("focus_repo")}
}

func (r *postgresFocusSessionRepository) CreateFocusSession(
	ctx context.Context,
	s *models.FocusSession,
) (int64, error) {
	query := `INSERT INTO focus_sessions (user_id, type, planned_minutes, start_time, end_time,
	            actual_seconds, completed, notes)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query,
		s.UserID, s.Type, s.PlannedMinutes, s.StartTime, s.EndTime, s.ActualSeconds, s.Completed, s.Notes,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания сессии: %w", err)
	}
	r.logger.Debug("Сессия создана", zap.Int64("id", s.ID), zap.Int64("user_id", s.UserID))
	return s.ID, nil
}

func (r *postgresFocusSessionRepository) GetFocusSession(
	ctx context.Context,
	userID, id int64,
) (*models.FocusSession, error) {
	var s models.FocusSession
	query := `SELECT ` + focusSessionColumns + ` FROM focus_sessions WHERE id=$1 AND user_id=$2`
	if err := r.db.GetContext(ctx, &s, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения сессии: %w", err)
	}
	return &s, nil
}

func (r *postgresFocusSessionRepository) UpdateFocusSession(ctx context.Context, s *models.FocusSession) error {
	query := `UPDATE focus_sessions SET end_time=$3, actual_seconds=$4, completed=$5, notes=$6
	          WHERE id=$1 AND user_id=$2`
	res, err := r.db.ExecContext(ctx, query, s.ID, s.UserID, s.EndTime, s.ActualSeconds, s.Completed, s.Notes)
	if err != nil {
		return fmt.Errorf("ошибка обновления сессии: %w", err)
	}
	return checkAffected(res)
}

func (r *postgresFocusSessionRepository) DeleteFocusSession(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM focus_sessions WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления сессии: %w", err)
	}
	return checkAffected(res)
}

func (r *postgresFocusSessionRepository) ListFocusSessions(
	ctx context.Context,
	userID int64,
	limit int,
) ([]models.FocusSession, error) {
	query := `SELECT ` + focusSessionColumns + ` FROM focus_sessions
	          WHERE user_id=$1 ORDER BY start_time DESC LIMIT $2`
	sessions := make([]models.FocusSession, 0, limit)
	if err := r.db.SelectContext(ctx, &sessions, query, userID, limit); err != nil {
		return nil, fmt.Errorf("ошибка получения списка сессий: %w", err)
	}
	return sessions, nil
}

func (r *postgresFocusSessionRepository) ListFocusSessionsSince(
	ctx context.Context,
	userID int64,
	since time.Time,
) ([]models.FocusSession, error) {
	query := `SELECT ` + focusSessionColumns + ` FROM focus_sessions
	          WHERE user_id=$1 AND start_time >= $2 ORDER BY start_time ASC`
	sessions := []models.FocusSession{}
	if err := r.db.SelectContext(ctx, &sessions, query, userID, since); err != nil {
		return nil, fmt.Errorf("ошибка получения сессий за период: %w", err)
	}
	return sessions, nil
}
