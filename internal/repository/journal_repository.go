package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/models"
)

const journalColumns = `id, user_id, title, content, mood, tags, ai_insights, created_at, updated_at`

type postgresJournalRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresJournalRepository создает репозиторий дневника.
func NewPostgresJournalRepository(db *sqlx.DB, logger *zap.Logger) JournalRepository {
	return &postgresJournalRepository{db: db, logger: logger.Named("journal_repo")}
}

func (r *postgresJournalRepository) CreateJournalEntry(ctx context.Context, e *models.JournalEntry) (int64, error) {
	query := `INSERT INTO journal_entries (user_id, title, content, mood, tags)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, query, e.UserID, e.Title, e.Content, e.Mood, e.Tags).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания записи дневника: %w", err)
	}
	r.logger.Debug("Запись дневника создана", zap.Int64("id", e.ID), zap.Int64("user_id", e.UserID))
	return e.ID, nil
}

func (r *postgresJournalRepository) GetJournalEntry(
	ctx context.Context,
	userID, id int64,
) (*models.JournalEntry, error) {
	var e models.JournalEntry
	query := `SELECT ` + journalColumns + ` FROM journal_entries WHERE id=$1 AND user_id=$2`
	if err := r.db.GetContext(ctx, &e, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи дневника: %w", err)
	}
	return &e, nil
}

func (r *postgresJournalRepository) UpdateJournalEntry(ctx context.Context, e *models.JournalEntry) error {
	query := `UPDATE journal_entries SET title=$3, content=$4, mood=$5, tags=$6, ai_insights=$7, updated_at=NOW()
	          WHERE id=$1 AND user_id=$2`
	res, err := r.db.ExecContext(ctx, query, e.ID, e.UserID, e.Title, e.Content, e.Mood, e.Tags, e.AIInsights)
	if err != nil {
		return fmt.Errorf("ошибка обновления записи дневника: %w", err)
	}
	return checkAffected(res)
}

func (r *postgresJournalRepository) DeleteJournalEntry(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM journal_entries WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления записи дневника: %w", err)
	}
	return checkAffected(res)
}

func (r *postgresJournalRepository) ListJournalEntries(
	ctx context.Context,
	userID int64,
	filter models.JournalFilter,
) ([]models.JournalEntry, error) {
	var (
		conds = []string{"user_id=$1"}
		args  = []any{userID}
	)
	if filter.Mood != "" {
		args = append(args, filter.Mood)
		conds = append(conds, fmt.Sprintf("mood=$%d", len(args)))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		conds = append(conds, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	query := `SELECT ` + journalColumns + ` FROM journal_entries WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY created_at DESC`

	entries := []models.JournalEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("ошибка получения записей дневника: %w", err)
	}
	return entries, nil
}

func (r *postgresJournalRepository) ListJournalEntriesSince(
	ctx context.Context,
	userID int64,
	since time.Time,
) ([]models.JournalEntry, error) {
	query := `SELECT ` + journalColumns + ` FROM journal_entries
	          WHERE user_id=$1 AND created_at >= $2 ORDER BY created_at ASC`
	entries := []models.JournalEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, userID, since); err != nil {
		return nil, fmt.Errorf("ошибка получения записей дневника за период: %w", err)
	}
	return entries, nil
}
