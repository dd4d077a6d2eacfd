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
	voiceNoteColumns = `id, user_id, title, object_key, content_type, size_bytes, duration_seconds,
	transcription, ai_insights, created_at`
	voiceCloneColumns = `id, user_id, name, description, provider_voice_id, sample_object_keys, created_at`
)

type postgresVoiceNoteRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresVoiceNoteRepository создает репозиторий голосовых заметок.
func NewPostgresVoiceNoteRepository(db *sqlx.DB, logger *zap.Logger) VoiceNoteRepository {
	return &postgresVoiceNoteRepository{db: db, logger: logger.Named("voice_note_repo")}
}

func (r *postgresVoiceNoteRepository) CreateVoiceNote(ctx context.Context, n *models.VoiceNote) (int64, error) {
	query := `INSERT INTO voice_notes (user_id, title, object_key, content_type, size_bytes, duration_seconds,
	            transcription, ai_insights)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query,
		n.UserID, n.Title, n.ObjectKey, n.ContentType, n.SizeBytes, n.DurationSeconds, n.Transcription, n.AIInsights,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания голосовой заметки: %w", err)
	}
	r.logger.Debug("Голосовая заметка создана", zap.Int64("id", n.ID), zap.String("object_key", n.ObjectKey))
	return n.ID, nil
}

func (r *postgresVoiceNoteRepository) GetVoiceNote(ctx context.Context, userID, id int64) (*models.VoiceNote, error) {
	var n models.VoiceNote
	query := `SELECT ` + voiceNoteColumns + ` FROM voice_notes WHERE id=$1 AND user_id=$2`
	if err := r.db.GetContext(ctx, &n, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения голосовой заметки: %w", err)
	}
	return &n, nil
}

func (r *postgresVoiceNoteRepository) UpdateVoiceNoteAnalysis(
	ctx context.Context,
	userID, id int64,
	transcription *string,
	insights *models.Insights,
) error {
	query := `UPDATE voice_notes SET transcription=$3, ai_insights=$4 WHERE id=$1 AND user_id=$2`
	res, err := r.db.ExecContext(ctx, query, id, userID, transcription, insights)
	if err != nil {
		return fmt.Errorf("ошибка сохранения анализа заметки: %w", err)
	}
	return checkAffected(res)
}

func (r *postgresVoiceNoteRepository) DeleteVoiceNote(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM voice_notes WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления голосовой заметки: %w", err)
	}
	return checkAffected(res)
}

func (r *postgresVoiceNoteRepository) ListVoiceNotes(ctx context.Context, userID int64) ([]models.VoiceNote, error) {
	query := `SELECT ` + voiceNoteColumns + ` FROM voice_notes WHERE user_id=$1 ORDER BY created_at DESC`
	notes := []models.VoiceNote{}
	if err := r.db.SelectContext(ctx, &notes, query, userID); err != nil {
		return nil, fmt.Errorf("ошибка получения голосовых заметок: %w", err)
	}
	return notes, nil
}

type postgresVoiceCloneRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresVoiceCloneRepository создает репозиторий клонов голоса.
func NewPostgresVoiceCloneRepository(db *sqlx.DB, logger *zap.Logger) VoiceCloneRepository {
	return &postgresVoiceCloneRepository{db: db, logger: logger.Named("voice_clone_repo")}
}

func (r *postgresVoiceCloneRepository) CreateVoiceClone(ctx context.Context, c *models.VoiceClone) (int64, error) {
	query := `INSERT INTO voice_clones (user_id, name, description, provider_voice_id, sample_object_keys)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	err := r.db.QueryRowxContext(ctx, query,
		c.UserID, c.Name, c.Description, c.ProviderVoiceID, c.SampleObjectKeys,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания клона голоса: %w", err)
	}
	return c.ID, nil
}

func (r *postgresVoiceCloneRepository) GetVoiceClone(
	ctx context.Context,
	userID, id int64,
) (*models.VoiceClone, error) {
	var c models.VoiceClone
	query := `SELECT ` + voiceCloneColumns + ` FROM voice_clones WHERE id=$1 AND user_id=$2`
	if err := r.db.GetContext(ctx, &c, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения клона голоса: %w", err)
	}
	return &c, nil
}

func (r *postgresVoiceCloneRepository) DeleteVoiceClone(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM voice_clones WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления клона голоса: %w", err)
	}
	return checkAffected(res)
}

func (r *postgresVoiceCloneRepository) ListVoiceClones(ctx context.Context, userID int64) ([]models.VoiceClone, error) {
	query := `SELECT ` + voiceCloneColumns + ` FROM voice_clones WHERE user_id=$1 ORDER BY created_at DESC`
	clones := []models.VoiceClone{}
	if err := r.db.SelectContext(ctx, &clones, query, userID); err != nil {
		return nil, fmt.Errorf("ошибка получения клонов голоса: %w", err)
	}
	return clones, nil
}
