package models

import "time"

// Периодичность привычки.
const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
)

// DateLayout - формат календарного дня в API и в БД.
const DateLayout = "2006-01-02"

// Habit - отслеживаемая привычка.
type Habit struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"userId"`
	Name          string    `db:"name" json:"name"`
	Description   string    `db:"description" json:"description"`
	Category      string    `db:"category" json:"category"`
	Frequency     string    `db:"frequency" json:"frequency"`
	TargetPerWeek int       `db:"target_per_week" json:"targetPerWeek"`
	Color         string    `db:"color" json:"color"`
	IsActive      bool      `db:"is_active" json:"isActive"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// HabitEntry - отметка о выполнении привычки за календарный день.
// Date хранится строкой YYYY-MM-DD: день определяется часовым поясом
// пользователя в момент отметки и дальше не пересчитывается.
type HabitEntry struct {
	ID        int64     `db:"id" json:"id"`
	HabitID   int64     `db:"habit_id" json:"habitId"`
	UserID    int64     `db:"user_id" json:"userId"`
	Date      string    `db:"entry_date" json:"date"`
	Notes     string    `db:"notes" json:"notes"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// HabitStruggle - запись о срыве или трудности с привычкой.
type HabitStruggle struct {
	ID          int64     `db:"id" json:"id"`
	HabitID     int64     `db:"habit_id" json:"habitId"`
	UserID      int64     `db:"user_id" json:"userId"`
	Description string    `db:"description" json:"description"`
	Trigger     string    `db:"trigger" json:"trigger"`
	Intensity   int       `db:"intensity" json:"intensity"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// HabitWithStatus - привычка со статусом на сегодня, для списка.
type HabitWithStatus struct {
	Habit
	CompletedToday bool `json:"completedToday"`
	CurrentStreak  int  `json:"currentStreak"`
}

// HabitProgress - сводка по выполнению привычки за окно.
type HabitProgress struct {
	HabitID        int64   `json:"habitId"`
	Name           string  `json:"name,omitempty"`
	Frequency      string  `json:"frequency"`
	CurrentStreak  int     `json:"currentStreak"`
	LongestStreak  int     `json:"longestStreak"`
	CompletionRate float64 `json:"completionRate"`
	CompletedDays  int     `json:"completedDays"`
	TotalDays      int     `json:"totalDays"`
	LastCompleted  *string `json:"lastCompleted,omitempty"`
}

// CreateHabitRequest - тело запроса на создание привычки.
type CreateHabitRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Description   string `json:"description" validate:"max=1000"`
	Category      string `json:"category" validate:"max=50"`
	Frequency     string `json:"frequency" validate:"omitempty,oneof=daily weekly"`
	TargetPerWeek int    `json:"targetPerWeek" validate:"omitempty,min=1,max=7"`
	Color         string `json:"color" validate:"omitempty,hexcolor"`
}

// UpdateHabitRequest - частичное обновление привычки.
type UpdateHabitRequest struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description   *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Category      *string `json:"category,omitempty" validate:"omitempty,max=50"`
	Frequency     *string `json:"frequency,omitempty" validate:"omitempty,oneof=daily weekly"`
	TargetPerWeek *int    `json:"targetPerWeek,omitempty" validate:"omitempty,min=1,max=7"`
	Color         *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	IsActive      *bool   `json:"isActive,omitempty"`
}

// CreateHabitEntryRequest - отметка выполнения. Пустая дата означает "сегодня".
type CreateHabitEntryRequest struct {
	Date  string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Notes string `json:"notes" validate:"max=1000"`
}

// CreateHabitStruggleRequest - тело запроса на запись о трудности.
type CreateHabitStruggleRequest struct {
	Description string `json:"description" validate:"required,max=2000"`
	Trigger     string `json:"trigger" validate:"max=200"`
	Intensity   int    `json:"intensity" validate:"required,min=1,max=10"`
}
