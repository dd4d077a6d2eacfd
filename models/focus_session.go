package models

import "time"

// Типы интервалов таймера.
const (
	SessionTypeFocus      = "focus"
	SessionTypeShortBreak = "short_break"
	SessionTypeLongBreak  = "long_break"
)

// MaxPlannedMinutes - максимальная длительность одного интервала.
const MaxPlannedMinutes = 240

// FocusSession - запись об одном интервале таймера.
type FocusSession struct {
	ID             int64      `db:"id" json:"id"`
	UserID         int64      `db:"user_id" json:"userId"`
	Type           string     `db:"type" json:"type"`
	PlannedMinutes int        `db:"planned_minutes" json:"plannedMinutes"`
	StartTime      time.Time  `db:"start_time" json:"startTime"`
	EndTime        *time.Time `db:"end_time" json:"endTime,omitempty"`
	ActualSeconds  int        `db:"actual_seconds" json:"actualSeconds"`
	Completed      bool       `db:"completed" json:"completed"`
	Notes          string     `db:"notes" json:"notes"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
}

// CreateFocusSessionRequest - тело запроса на создание сессии.
type CreateFocusSessionRequest struct {
	Type           string     `json:"type" validate:"required,oneof=focus short_break long_break"`
	PlannedMinutes int        `json:"plannedMinutes" validate:"required,min=1,max=240"`
	StartTime      *time.Time `json:"startTime,omitempty"`
	Notes          string     `json:"notes" validate:"max=2000"`
}

// UpdateFocusSessionRequest - частичное обновление сессии (PATCH).
// nil означает "не менять".
type UpdateFocusSessionRequest struct {
	EndTime       *time.Time `json:"endTime,omitempty"`
	ActualSeconds *int       `json:"actualSeconds,omitempty" validate:"omitempty,min=0"`
	Completed     *bool      `json:"completed,omitempty"`
	Notes         *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}
