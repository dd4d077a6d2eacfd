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
	habitColumns = `id, user_id, name, description, category, frequency, target_per_week, color,
	is_active, created_at, updated_at`
	// DATE читаем строкой, иначе драйвер вернет time.Time с полуночью в UTC.
	habitEntryColumns   = `id, habit_id, user_id, to_char(entry_date, 'YYYY-MM-DD') AS entry_date, notes, created_at`
	habitStruggleColumn = `id, habit_id, user_id, description, trigger, intensity, created_at`
)

type postgresHabitRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresHabitRepository создает репозиторий привычек.
func NewPostgresHabitRepository(db *sqlx.DB, logger *zap.Logger) HabitRepository {
	return &postgresHabitRepository{db: db, logger: logger.Named("habit_repo")}
}

func (r *postgresHabitRepository) CreateHabit(ctx context.Context, h *models.Habit) (int64, error) {
	query := `INSERT INTO habits (user_id, name, description, category, frequency, target_per_week, color, is_active)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, query,
		h.UserID, h.Name, h.Description, h.Category, h.Frequency, h.TargetPerWeek, h.Color, h.IsActive,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания привычки: %w", err)
	}
	r.logger.Debug("Привычка создана", zap.Int64("id", h.ID), zap.Int64("user_id", h.UserID))
	return h.ID, nil
}

func (r *postgresHabitRepository) GetHabit(ctx context.Context, userID, id int64) (*models.Habit, error) {
	var h models.Habit
	query := `SELECT ` + habitColumns + ` FROM habits WHERE id=$1 AND user_id=$2`
	if err := r.db.GetContext(ctx, &h, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения привычки: %w", err)
	}
	return &h, nil
}

func (r *postgresHabitRepository) UpdateHabit(ctx context.Context, h *models.Habit) error {
	query := `UPDATE habits SET name=$3, description=$4, category=$5, frequency=$6, target_per_week=$7,
	            color=$8, is_active=$9, updated_at=NOW()
	          WHERE id=$1 AND user_id=$2`
	res, err := r.db.ExecContext(ctx, query,
		h.ID, h.UserID, h.Name, h.Description, h.Category, h.Frequency, h.TargetPerWeek, h.Color, h.IsActive)
	if err != nil {
		return fmt.Errorf("ошибка обновления привычки: %w", err)
	}
	return checkAffected(res)
}

// DeleteHabit удаляет привычку; отметки и трудности удаляются каскадом (ON DELETE CASCADE).
func (r *postgresHabitRepository) DeleteHabit(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM habits WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления привычки: %w", err)
	}
	return checkAffected(res)
}

func (r *postgresHabitRepository) ListHabits(
	ctx context.Context,
	userID int64,
	activeOnly bool,
) ([]models.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id=$1 AND (is_active OR NOT $2)
	          ORDER BY created_at ASC`
	habits := []models.Habit{}
	if err := r.db.SelectContext(ctx, &habits, query, userID, activeOnly); err != nil {
		return nil, fmt.Errorf("ошибка получения списка привычек: %w", err)
	}
	return habits, nil
}

func (r *postgresHabitRepository) CreateHabitEntry(ctx context.Context, e *models.HabitEntry) (int64, error) {
	query := `INSERT INTO habit_entries (habit_id, user_id, entry_date, notes)
	          VALUES ($1, $2, $3::date, $4) RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query, e.HabitID, e.UserID, e.Date, e.Notes).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateEntry
		}
		return 0, fmt.Errorf("ошибка создания отметки привычки: %w", err)
	}
	return e.ID, nil
}

func (r *postgresHabitRepository) GetHabitEntryByDate(
	ctx context.Context,
	userID, habitID int64,
	date string,
) (*models.HabitEntry, error) {
	var e models.HabitEntry
	query := `SELECT ` + habitEntryColumns + ` FROM habit_entries
	          WHERE habit_id=$1 AND user_id=$2 AND entry_date=$3::date`
	if err := r.db.GetContext(ctx, &e, query, habitID, userID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения отметки привычки: %w", err)
	}
	return &e, nil
}

func (r *postgresHabitRepository) DeleteHabitEntry(ctx context.Context, userID, habitID, entryID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM habit_entries WHERE id=$1 AND habit_id=$2 AND user_id=$3`, entryID, habitID, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления отметки привычки: %w", err)
	}
	return checkAffected(res)
}

func (r *postgresHabitRepository) ListHabitEntries(
	ctx context.Context,
	userID, habitID int64,
	from, to string,
) ([]models.HabitEntry, error) {
	query := `SELECT ` + habitEntryColumns + ` FROM habit_entries
	          WHERE habit_id=$1 AND user_id=$2
	            AND ($3 = '' OR entry_date >= NULLIF($3, '')::date)
	            AND ($4 = '' OR entry_date <= NULLIF($4, '')::date)
	          ORDER BY entry_date ASC`
	entries := []models.HabitEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, habitID, userID, from, to); err != nil {
		return nil, fmt.Errorf("ошибка получения отметок привычки: %w", err)
	}
	return entries, nil
}

func (r *postgresHabitRepository) ListUserHabitEntriesSince(
	ctx context.Context,
	userID int64,
	from string,
) ([]models.HabitEntry, error) {
	query := `SELECT ` + habitEntryColumns + ` FROM habit_entries
	          WHERE user_id=$1 AND ($2 = '' OR entry_date >= NULLIF($2, '')::date)
	          ORDER BY entry_date ASC`
	entries := []models.HabitEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, userID, from); err != nil {
		return nil, fmt.Errorf("ошибка получения отметок пользователя: %w", err)
	}
	return entries, nil
}

func (r *postgresHabitRepository) CreateHabitStruggle(ctx context.Context, s *models.HabitStruggle) (int64, error) {
	query := `INSERT INTO habit_struggles (habit_id, user_id, description, trigger, intensity)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query, s.HabitID, s.UserID, s.Description, s.Trigger, s.Intensity).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания записи о трудности: %w", err)
	}
	return s.ID, nil
}

func (r *postgresHabitRepository) ListHabitStruggles(
	ctx context.Context,
	userID, habitID int64,
) ([]models.HabitStruggle, error) {
	query := `SELECT ` + habitStruggleColumn + ` FROM habit_struggles
	          WHERE habit_id=$1 AND user_id=$2 ORDER BY created_at DESC`
	struggles := []models.HabitStruggle{}
	if err := r.db.SelectContext(ctx, &struggles, query, habitID, userID); err != nil {
		return nil, fmt.Errorf("ошибка получения записей о трудностях: %w", err)
	}
	return struggles, nil
}
