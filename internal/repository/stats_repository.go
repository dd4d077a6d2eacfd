package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/models"
)

type postgresStatsRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresStatsRepository создает репозиторий агрегатов.
func NewPostgresStatsRepository(db *sqlx.DB, logger *zap.Logger) StatsRepository {
	return &postgresStatsRepository{db: db, logger: logger.Named("stats_repo")}
}

func (r *postgresStatsRepository) SumFocusSeconds(
	ctx context.Context,
	userID int64,
	from, to time.Time,
) (int, int, error) {
	var row struct {
		Seconds  int `db:"seconds"`
		Sessions int `db:"sessions"`
	}
	query := `SELECT COALESCE(SUM(actual_seconds), 0) AS seconds, COUNT(*) AS sessions
	          FROM focus_sessions
	          WHERE user_id=$1 AND type=$2 AND start_time >= $3 AND start_time < $4`
	if err := r.db.GetContext(ctx, &row, query, userID, models.SessionTypeFocus, from, to); err != nil {
		return 0, 0, fmt.Errorf("ошибка подсчета фокус-времени: %w", err)
	}
	return row.Seconds, row.Sessions, nil
}

func (r *postgresStatsRepository) CountCompletedSessions(ctx context.Context, userID int64) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM focus_sessions WHERE user_id=$1 AND completed AND type=$2`,
		userID, models.SessionTypeFocus)
}

func (r *postgresStatsRepository) CountActiveHabits(ctx context.Context, userID int64) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM habits WHERE user_id=$1 AND is_active`, userID)
}

func (r *postgresStatsRepository) CountHabitsCompletedOn(ctx context.Context, userID int64, date string) (int, error) {
	return r.count(ctx, `SELECT COUNT(DISTINCT e.habit_id) FROM habit_entries e
	                     JOIN habits h ON h.id = e.habit_id
	                     WHERE e.user_id=$1 AND e.entry_date=$2::date AND h.is_active`, userID, date)
}

func (r *postgresStatsRepository) CountJournalEntriesSince(
	ctx context.Context,
	userID int64,
	since time.Time,
) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM journal_entries WHERE user_id=$1 AND created_at >= $2`, userID, since)
}

func (r *postgresStatsRepository) CountVoiceNotes(ctx context.Context, userID int64) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM voice_notes WHERE user_id=$1`, userID)
}

func (r *postgresStatsRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("ошибка выполнения агрегирующего запроса: %w", err)
	}
	return n, nil
}
