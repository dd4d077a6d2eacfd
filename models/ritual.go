package models

import "time"

// ResetRitual - короткая практика восстановления.
// UserID == nil у встроенных ритуалов, доступных всем пользователям.
type ResetRitual struct {
	ID              int64     `db:"id" json:"id"`
	UserID          *int64    `db:"user_id" json:"userId,omitempty"`
	Name            string    `db:"name" json:"name"`
	Description     string    `db:"description" json:"description"`
	DurationMinutes int       `db:"duration_minutes" json:"durationMinutes"`
	Category        string    `db:"category" json:"category"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// IsBuiltin сообщает, является ли ритуал встроенным.
func (r *ResetRitual) IsBuiltin() bool {
	return r.UserID == nil
}

// ResetCompletion - отметка о выполнении ритуала.
type ResetCompletion struct {
	ID          int64     `db:"id" json:"id"`
	RitualID    int64     `db:"ritual_id" json:"ritualId"`
	UserID      int64     `db:"user_id" json:"userId"`
	MoodBefore  *int      `db:"mood_before" json:"moodBefore,omitempty"`
	MoodAfter   *int      `db:"mood_after" json:"moodAfter,omitempty"`
	Notes       string    `db:"notes" json:"notes"`
	CompletedAt time.Time `db:"completed_at" json:"completedAt"`
}

// CreateRitualRequest - тело запроса на создание своего ритуала.
type CreateRitualRequest struct {
	Name            string `json:"name" validate:"required,max=100"`
	Description     string `json:"description" validate:"max=1000"`
	DurationMinutes int    `json:"durationMinutes" validate:"required,min=1,max=120"`
	Category        string `json:"category" validate:"max=50"`
}

// CompleteRitualRequest - тело запроса на отметку выполнения ритуала.
type CompleteRitualRequest struct {
	MoodBefore *int   `json:"moodBefore,omitempty" validate:"omitempty,min=1,max=10"`
	MoodAfter  *int   `json:"moodAfter,omitempty" validate:"omitempty,min=1,max=10"`
	Notes      string `json:"notes" validate:"max=2000"`
}
