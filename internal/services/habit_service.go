package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/events"
	"github.com/maynagashev/flowkeeper/internal/metrics"
	"github.com/maynagashev/flowkeeper/internal/repository"
	"github.com/maynagashev/flowkeeper/models"
)

const defaultHabitColor = "#4f46e5"

// HabitService - привычки, отметки, трудности и прогресс.
type HabitService interface {
	// List возвращает активные привычки со статусом на сегодня.
	List(ctx context.Context, userID int64) ([]models.HabitWithStatus, error)
	Get(ctx context.Context, userID, id int64) (*models.Habit, error)
	Create(ctx context.Context, userID int64, req models.CreateHabitRequest) (*models.Habit, error)
	Update(ctx context.Context, userID, id int64, req models.UpdateHabitRequest) (*models.Habit, error)
	Delete(ctx context.Context, userID, id int64) error

	ListEntries(ctx context.Context, userID, habitID int64, from, to string) ([]models.HabitEntry, error)
	// AddEntry идемпотентна по дню: created == false, если отметка уже была.
	AddEntry(
		ctx context.Context, userID, habitID int64, req models.CreateHabitEntryRequest,
	) (entry *models.HabitEntry, created bool, err error)
	DeleteEntry(ctx context.Context, userID, habitID, entryID int64) error

	Progress(ctx context.Context, userID, habitID int64, days int) (*models.HabitProgress, error)
	// AllProgress возвращает прогресс всех активных привычек.
	AllProgress(ctx context.Context, userID int64, days int) ([]models.HabitProgress, error)

	ListStruggles(ctx context.Context, userID, habitID int64) ([]models.HabitStruggle, error)
	AddStruggle(
		ctx context.Context, userID, habitID int64, req models.CreateHabitStruggleRequest,
	) (*models.HabitStruggle, error)
}

var _ HabitService = (*habitService)(nil)

type habitService struct {
	repo      repository.HabitRepository
	calendar  *Calendar
	publisher events.Publisher
	logger    *zap.Logger
}

// NewHabitService создает сервис привычек.
func NewHabitService(
	repo repository.HabitRepository,
	calendar *Calendar,
	publisher events.Publisher,
	logger *zap.Logger,
) HabitService {
	return &habitService{repo: repo, calendar: calendar, publisher: publisher, logger: logger.Named("habits")}
}

func (s *habitService) List(ctx context.Context, userID int64) ([]models.HabitWithStatus, error) {
	habits, err := s.repo.ListHabits(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения привычек: %w", err)
	}
	out := make([]models.HabitWithStatus, 0, len(habits))
	if len(habits) == 0 {
		return out, nil
	}

	entries, err := s.repo.ListUserHabitEntriesSince(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("ошибка получения отметок: %w", err)
	}
	today := s.calendar.Today(ctx, userID)
	byHabit := make(map[int64][]models.HabitEntry, len(habits))
	for _, e := range entries {
		byHabit[e.HabitID] = append(byHabit[e.HabitID], e)
	}

	for i := range habits {
		h := &habits[i]
		days := newHabitDays(byHabit[h.ID])
		out = append(out, models.HabitWithStatus{
			Habit:          *h,
			CompletedToday: days.has(today),
			CurrentStreak:  currentStreak(h, days, today),
		})
	}
	return out, nil
}

func (s *habitService) Get(ctx context.Context, userID, id int64) (*models.Habit, error) {
	h, err := s.repo.GetHabit(ctx, userID, id)
	if err != nil {
		return nil, translate(err, "ошибка получения привычки")
	}
	return h, nil
}

func (s *habitService) Create(ctx context.Context, userID int64, req models.CreateHabitRequest) (*models.Habit, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationError("не указано название привычки")
	}
	h := &models.Habit{
		UserID:        userID,
		Name:          name,
		Description:   strings.TrimSpace(req.Description),
		Category:      strings.TrimSpace(req.Category),
		Frequency:     req.Frequency,
		TargetPerWeek: req.TargetPerWeek,
		Color:         req.Color,
		IsActive:      true,
	}
	normalizeHabit(h)
	if _, err := s.repo.CreateHabit(ctx, h); err != nil {
		return nil, fmt.Errorf("ошибка создания привычки: %w", err)
	}
	return h, nil
}

func (s *habitService) Update(
	ctx context.Context,
	userID, id int64,
	req models.UpdateHabitRequest,
) (*models.Habit, error) {
	h, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, validationError("не указано название привычки")
		}
		h.Name = name
	}
	if req.Description != nil {
		h.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		h.Category = strings.TrimSpace(*req.Category)
	}
	if req.Frequency != nil {
		h.Frequency = *req.Frequency
		if req.TargetPerWeek == nil && h.Frequency == models.FrequencyWeekly {
			h.TargetPerWeek = 0
		}
	}
	if req.TargetPerWeek != nil {
		h.TargetPerWeek = *req.TargetPerWeek
	}
	if req.Color != nil {
		h.Color = *req.Color
	}
	if req.IsActive != nil {
		h.IsActive = *req.IsActive
	}
	normalizeHabit(h)

	if err = s.repo.UpdateHabit(ctx, h); err != nil {
		return nil, translate(err, "ошибка обновления привычки")
	}
	return h, nil
}

func (s *habitService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteHabit(ctx, userID, id); err != nil {
		return translate(err, "ошибка удаления привычки")
	}
	return nil
}

func (s *habitService) ListEntries(
	ctx context.Context,
	userID, habitID int64,
	from, to string,
) ([]models.HabitEntry, error) {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := ParseDay(d); err != nil {
			return nil, validationError("дата %q не в формате YYYY-MM-DD", d)
		}
	}
	if from != "" && to != "" && from > to {
		return nil, validationError("from позже to")
	}
	if _, err := s.Get(ctx, userID, habitID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListHabitEntries(ctx, userID, habitID, from, to)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения отметок: %w", err)
	}
	return entries, nil
}

func (s *habitService) AddEntry(
	ctx context.Context,
	userID, habitID int64,
	req models.CreateHabitEntryRequest,
) (*models.HabitEntry, bool, error) {
	if _, err := s.Get(ctx, userID, habitID); err != nil {
		return nil, false, err
	}

	today := s.calendar.Today(ctx, userID)
	day := today
	if req.Date != "" {
		d, err := ParseDay(req.Date)
		if err != nil {
			return nil, false, validationError("дата %q не в формате YYYY-MM-DD", req.Date)
		}
		if d.After(today) {
			return nil, false, validationError("нельзя отметить привычку в будущем")
		}
		day = d
	}

	existing, err := s.repo.GetHabitEntryByDate(ctx, userID, habitID, day.String())
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, fmt.Errorf("ошибка проверки отметки: %w", err)
	}

	entry := &models.HabitEntry{
		HabitID: habitID,
		UserID:  userID,
		Date:    day.String(),
		Notes:   strings.TrimSpace(req.Notes),
	}
	if _, err = s.repo.CreateHabitEntry(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			// Параллельный запрос успел создать отметку
			existing, gErr := s.repo.GetHabitEntryByDate(ctx, userID, habitID, day.String())
			if gErr != nil {
				return nil, false, fmt.Errorf("ошибка получения отметки: %w", gErr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("ошибка создания отметки: %w", err)
	}

	metrics.HabitEntriesCreated.Inc()
	publishEvent(ctx, s.publisher, s.logger, events.New(events.HabitEntryCreated, userID, map[string]any{
		"habitId": habitID,
		"entryId": entry.ID,
		"date":    entry.Date,
	}))
	return entry, true, nil
}

func (s *habitService) DeleteEntry(ctx context.Context, userID, habitID, entryID int64) error {
	if err := s.repo.DeleteHabitEntry(ctx, userID, habitID, entryID); err != nil {
		return translate(err, "ошибка удаления отметки")
	}
	return nil
}

func (s *habitService) Progress(
	ctx context.Context,
	userID, habitID int64,
	days int,
) (*models.HabitProgress, error) {
	days, err := progressDays(days)
	if err != nil {
		return nil, err
	}
	h, err := s.Get(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListHabitEntries(ctx, userID, habitID, "", "")
	if err != nil {
		return nil, fmt.Errorf("ошибка получения отметок: %w", err)
	}

	now := s.calendar.Now(ctx, userID)
	p := habitProgress(h, entries, DayOf(h.CreatedAt.In(now.Location())), DayOf(now), days)
	return &p, nil
}

func (s *habitService) AllProgress(ctx context.Context, userID int64, days int) ([]models.HabitProgress, error) {
	days, err := progressDays(days)
	if err != nil {
		return nil, err
	}
	habits, err := s.repo.ListHabits(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения привычек: %w", err)
	}
	entries, err := s.repo.ListUserHabitEntriesSince(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("ошибка получения отметок: %w", err)
	}
	byHabit := make(map[int64][]models.HabitEntry, len(habits))
	for _, e := range entries {
		byHabit[e.HabitID] = append(byHabit[e.HabitID], e)
	}

	now := s.calendar.Now(ctx, userID)
	today := DayOf(now)
	out := make([]models.HabitProgress, 0, len(habits))
	for i := range habits {
		h := &habits[i]
		out = append(out, habitProgress(h, byHabit[h.ID], DayOf(h.CreatedAt.In(now.Location())), today, days))
	}
	return out, nil
}

func (s *habitService) ListStruggles(ctx context.Context, userID, habitID int64) ([]models.HabitStruggle, error) {
	if _, err := s.Get(ctx, userID, habitID); err != nil {
		return nil, err
	}
	struggles, err := s.repo.ListHabitStruggles(ctx, userID, habitID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения трудностей: %w", err)
	}
	return struggles, nil
}

func (s *habitService) AddStruggle(
	ctx context.Context,
	userID, habitID int64,
	req models.CreateHabitStruggleRequest,
) (*models.HabitStruggle, error) {
	if _, err := s.Get(ctx, userID, habitID); err != nil {
		return nil, err
	}
	if req.Intensity < 1 || req.Intensity > 10 {
		return nil, validationError("интенсивность должна быть от 1 до 10")
	}
	st := &models.HabitStruggle{
		HabitID:     habitID,
		UserID:      userID,
		Description: strings.TrimSpace(req.Description),
		Trigger:     strings.TrimSpace(req.Trigger),
		Intensity:   req.Intensity,
	}
	if _, err := s.repo.CreateHabitStruggle(ctx, st); err != nil {
		return nil, fmt.Errorf("ошибка сохранения трудности: %w", err)
	}
	return st, nil
}

// normalizeHabit заполняет значения по умолчанию. Для ежедневных привычек цель - 7 дней.
func normalizeHabit(h *models.Habit) {
	if h.Frequency == "" {
		h.Frequency = models.FrequencyDaily
	}
	switch {
	case h.Frequency == models.FrequencyDaily:
		h.TargetPerWeek = 7
	case h.TargetPerWeek < 1:
		h.TargetPerWeek = 1
	case h.TargetPerWeek > 7:
		h.TargetPerWeek = 7
	}
	if h.Color == "" {
		h.Color = defaultHabitColor
	}
}

func progressDays(days int) (int, error) {
	if days == 0 {
		return DefaultProgressDays, nil
	}
	if days < 1 || days > MaxProgressDays {
		return 0, validationError("days должен быть от 1 до %d", MaxProgressDays)
	}
	return days, nil
}
