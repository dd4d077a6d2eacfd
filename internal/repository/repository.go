// Package repository содержит интерфейсы хранилища и их реализации:
// PostgreSQL (sqlx) для продакшена и MemoryStore для разработки и демо.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/maynagashev/flowkeeper/models"
)

// Коды ошибок PostgreSQL.
const (
	pgUniqueViolationCode = "23505"
)

// Кастомные ошибки репозитория.
var (
	ErrNotFound       = errors.New("запись не найдена")
	ErrEmailTaken     = errors.New("email уже зарегистрирован")
	ErrDuplicateEntry = errors.New("запись за этот день уже существует")
)

// UserRepository определяет методы для работы с пользователями.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error)
	UpdateUserBilling(ctx context.Context, userID int64, customerID, subscriptionID *string, status string) error
}

// FocusSessionRepository определяет методы для работы с сессиями таймера.
type FocusSessionRepository interface {
	CreateFocusSession(ctx context.Context, s *models.FocusSession) (int64, error)
	GetFocusSession(ctx context.Context, userID, id int64) (*models.FocusSession, error)
	UpdateFocusSession(ctx context.Context, s *models.FocusSession) error
	DeleteFocusSession(ctx context.Context, userID, id int64) error
	// ListFocusSessions возвращает последние сессии, сначала новые.
	ListFocusSessions(ctx context.Context, userID int64, limit int) ([]models.FocusSession, error)
	// ListFocusSessionsSince возвращает сессии, начатые не раньше since, по возрастанию времени.
	ListFocusSessionsSince(ctx context.Context, userID int64, since time.Time) ([]models.FocusSession, error)
}

// JournalRepository определяет методы для работы с дневником.
type JournalRepository interface {
	CreateJournalEntry(ctx context.Context, e *models.JournalEntry) (int64, error)
	GetJournalEntry(ctx context.Context, userID, id int64) (*models.JournalEntry, error)
	UpdateJournalEntry(ctx context.Context, e *models.JournalEntry) error
	DeleteJournalEntry(ctx context.Context, userID, id int64) error
	ListJournalEntries(ctx context.Context, userID int64, filter models.JournalFilter) ([]models.JournalEntry, error)
	// ListJournalEntriesSince возвращает записи не старше since, по возрастанию времени.
	ListJournalEntriesSince(ctx context.Context, userID int64, since time.Time) ([]models.JournalEntry, error)
}

// VoiceNoteRepository определяет методы для работы с голосовыми заметками.
type VoiceNoteRepository interface {
	CreateVoiceNote(ctx context.Context, n *models.VoiceNote) (int64, error)
	GetVoiceNote(ctx context.Context, userID, id int64) (*models.VoiceNote, error)
	UpdateVoiceNoteAnalysis(
		ctx context.Context, userID, id int64, transcription *string, insights *models.Insights,
	) error
	DeleteVoiceNote(ctx context.Context, userID, id int64) error
	ListVoiceNotes(ctx context.Context, userID int64) ([]models.VoiceNote, error)
}

// VoiceCloneRepository определяет методы для работы с клонами голоса.
type VoiceCloneRepository interface {
	CreateVoiceClone(ctx context.Context, c *models.VoiceClone) (int64, error)
	GetVoiceClone(ctx context.Context, userID, id int64) (*models.VoiceClone, error)
	DeleteVoiceClone(ctx context.Context, userID, id int64) error
	ListVoiceClones(ctx context.Context, userID int64) ([]models.VoiceClone, error)
}

// HabitRepository определяет методы для работы с привычками, отметками и трудностями.
type HabitRepository interface {
	CreateHabit(ctx context.Context, h *models.Habit) (int64, error)
	GetHabit(ctx context.Context, userID, id int64) (*models.Habit, error)
	UpdateHabit(ctx context.Context, h *models.Habit) error
	// DeleteHabit удаляет привычку вместе с отметками и трудностями.
	DeleteHabit(ctx context.Context, userID, id int64) error
	ListHabits(ctx context.Context, userID int64, activeOnly bool) ([]models.Habit, error)

	// CreateHabitEntry возвращает ErrDuplicateEntry, если отметка за этот день уже есть.
	CreateHabitEntry(ctx context.Context, e *models.HabitEntry) (int64, error)
	GetHabitEntryByDate(ctx context.Context, userID, habitID int64, date string) (*models.HabitEntry, error)
	DeleteHabitEntry(ctx context.Context, userID, habitID, entryID int64) error
	// ListHabitEntries возвращает отметки в диапазоне дат [from, to] по возрастанию.
	// Пустая граница означает отсутствие ограничения.
	ListHabitEntries(ctx context.Context, userID, habitID int64, from, to string) ([]models.HabitEntry, error)
	// ListUserHabitEntriesSince возвращает отметки всех привычек пользователя начиная с даты from.
	// Пустая from означает все отметки.
	ListUserHabitEntriesSince(ctx context.Context, userID int64, from string) ([]models.HabitEntry, error)

	CreateHabitStruggle(ctx context.Context, s *models.HabitStruggle) (int64, error)
	ListHabitStruggles(ctx context.Context, userID, habitID int64) ([]models.HabitStruggle, error)
}

// RitualRepository определяет методы для работы с ритуалами восстановления.
type RitualRepository interface {
	// ListRituals возвращает встроенные ритуалы и ритуалы пользователя.
	ListRituals(ctx context.Context, userID int64) ([]models.ResetRitual, error)
	// GetRitual находит встроенный ритуал или ритуал пользователя.
	GetRitual(ctx context.Context, userID, id int64) (*models.ResetRitual, error)
	CreateRitual(ctx context.Context, r *models.ResetRitual) (int64, error)
	// DeleteRitual удаляет только собственный ритуал пользователя вместе с отметками.
	DeleteRitual(ctx context.Context, userID, id int64) error
	CreateResetCompletion(ctx context.Context, c *models.ResetCompletion) (int64, error)
	ListResetCompletions(ctx context.Context, userID int64, limit int) ([]models.ResetCompletion, error)
}

// PreferencesRepository определяет методы для работы с настройками.
type PreferencesRepository interface {
	GetPreferences(ctx context.Context, userID int64) (*models.UserPreferences, error)
	UpsertPreferences(ctx context.Context, p *models.UserPreferences) error
}

// StatsRepository содержит агрегирующие запросы для главной страницы.
type StatsRepository interface {
	// SumFocusSeconds суммирует фактическое время фокус-сессий, начатых в [from, to).
	SumFocusSeconds(ctx context.Context, userID int64, from, to time.Time) (seconds, sessions int, err error)
	CountCompletedSessions(ctx context.Context, userID int64) (int, error)
	CountActiveHabits(ctx context.Context, userID int64) (int, error)
	CountHabitsCompletedOn(ctx context.Context, userID int64, date string) (int, error)
	CountJournalEntriesSince(ctx context.Context, userID int64, since time.Time) (int, error)
	CountVoiceNotes(ctx context.Context, userID int64) (int, error)
}

// Repositories собирает все репозитории одного бэкенда.
type Repositories struct {
	Users       UserRepository
	Sessions    FocusSessionRepository
	Journal     JournalRepository
	VoiceNotes  VoiceNoteRepository
	VoiceClones VoiceCloneRepository
	Habits      HabitRepository
	Rituals     RitualRepository
	Preferences PreferencesRepository
	Stats       StatsRepository
}

// BuiltinRituals - ритуалы, доступные всем пользователям.
// Совпадают с данными миграции 0002.
func BuiltinRituals() []models.ResetRitual {
	return []models.ResetRitual{
		{ID: 1, Name: "Box breathing", Description: "Inhale 4s, hold 4s, exhale 4s, hold 4s.",
			DurationMinutes: 3, Category: "breathing"},
		{ID: 2, Name: "Stretch break", Description: "Stand up, stretch neck, shoulders and back.",
			DurationMinutes: 5, Category: "movement"},
		{ID: 3, Name: "Mindful walk", Description: "Walk slowly and notice five things around you.",
			DurationMinutes: 10, Category: "movement"},
		{ID: 4, Name: "Gratitude pause", Description: "Write down three things you are grateful for.",
			DurationMinutes: 5, Category: "reflection"},
		{ID: 5, Name: "Hydrate", Description: "Drink a full glass of water away from the screen.",
			DurationMinutes: 2, Category: "body"},
	}
}
