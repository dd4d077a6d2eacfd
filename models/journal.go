package models

import (
	"time"

	"github.com/lib/pq"
)

// Настроения записи дневника, от лучшего к худшему.
const (
	MoodGreat = "great"
	MoodGood  = "good"
	MoodOkay  = "okay"
	MoodLow   = "low"
	MoodAwful = "awful"
)

// MoodValue переводит настроение в числовое значение для графиков (1..5).
// Для неизвестного настроения возвращает 0.
func MoodValue(mood string) int {
	switch mood {
	case MoodGreat:
		return 5
	case MoodGood:
		return 4
	case MoodOkay:
		return 3
	case MoodLow:
		return 2
	case MoodAwful:
		return 1
	default:
		return 0
	}
}

// JournalEntry - запись дневника.
type JournalEntry struct {
	ID         int64          `db:"id" json:"id"`
	UserID     int64          `db:"user_id" json:"userId"`
	Title      string         `db:"title" json:"title"`
	Content    string         `db:"content" json:"content"`
	Mood       string         `db:"mood" json:"mood"`
	Tags       pq.StringArray `db:"tags" json:"tags"`
	AIInsights *Insights      `db:"ai_insights" json:"aiInsights,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updatedAt"`
}

// CreateJournalEntryRequest - тело запроса на создание записи.
type CreateJournalEntryRequest struct {
	Title   string   `json:"title" validate:"max=200"`
	Content string   `json:"content" validate:"required,max=20000"`
	Mood    string   `json:"mood" validate:"required,oneof=great good okay low awful"`
	Tags    []string `json:"tags" validate:"max=20,dive,min=1,max=40"`
}

// UpdateJournalEntryRequest - частичное обновление записи.
type UpdateJournalEntryRequest struct {
	Title   *string   `json:"title,omitempty" validate:"omitempty,max=200"`
	Content *string   `json:"content,omitempty" validate:"omitempty,min=1,max=20000"`
	Mood    *string   `json:"mood,omitempty" validate:"omitempty,oneof=great good okay low awful"`
	Tags    *[]string `json:"tags,omitempty" validate:"omitempty,max=20,dive,min=1,max=40"`
}

// JournalFilter - фильтры списка записей.
type JournalFilter struct {
	Mood string
	Tag  string
}

// MoodPoint - точка графика настроения за один календарный день.
type MoodPoint struct {
	Date        string  `json:"date"`
	AverageMood float64 `json:"averageMood"`
	Entries     int     `json:"entries"`
}
