package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/repository"
	"github.com/maynagashev/flowkeeper/models"
)

// Границы окна аналитики.
const (
	DefaultFocusAnalyticsDays = 7
	MaxAnalyticsDays          = 365
	// focusStreakLookback - насколько далеко назад ищем серию дней с фокусом.
	focusStreakLookback = 366
)

// DashboardService - агрегаты для главной страницы и аналитика.
type DashboardService interface {
	Stats(ctx context.Context, userID int64) (*models.DashboardStats, error)
	FocusAnalytics(ctx context.Context, userID int64, days int) ([]models.FocusDay, error)
	HabitAnalytics(ctx context.Context, userID int64, days int) ([]models.HabitProgress, error)
}

var _ DashboardService = (*dashboardService)(nil)

type dashboardService struct {
	stats    repository.StatsRepository
	sessions repository.FocusSessionRepository
	habits   HabitService
	prefs    PreferencesService
	calendar *Calendar
	logger   *zap.Logger
}

// NewDashboardService создает сервис аналитики.
func NewDashboardService(
	stats repository.StatsRepository,
	sessions repository.FocusSessionRepository,
	habits HabitService,
	prefs PreferencesService,
	calendar *Calendar,
	logger *zap.Logger,
) DashboardService {
	return &dashboardService{
		stats:    stats,
		sessions: sessions,
		habits:   habits,
		prefs:    prefs,
		calendar: calendar,
		logger:   logger.Named("dashboard"),
	}
}

func (s *dashboardService) Stats(ctx context.Context, userID int64) (*models.DashboardStats, error) {
	prefs, err := s.prefs.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.calendar.Now(ctx, userID)
	loc := now.Location()
	today := DayOf(now)
	tomorrow := today.AddDays(1).Start(loc)
	weekStart := today.WeekStart().Start(loc)

	var st models.DashboardStats
	todaySeconds, todaySessions, err := s.stats.SumFocusSeconds(ctx, userID, today.Start(loc), tomorrow)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчета фокуса за день: %w", err)
	}
	weekSeconds, _, err := s.stats.SumFocusSeconds(ctx, userID, weekStart, tomorrow)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчета фокуса за неделю: %w", err)
	}
	st.TodayFocusMinutes = todaySeconds / 60
	st.TodaySessions = todaySessions
	st.WeekFocusMinutes = weekSeconds / 60

	counters := []struct {
		dst *int
		fn  func() (int, error)
	}{
		{&st.CompletedSessions, func() (int, error) { return s.stats.CountCompletedSessions(ctx, userID) }},
		{&st.ActiveHabits, func() (int, error) { return s.stats.CountActiveHabits(ctx, userID) }},
		{&st.HabitsCompletedToday, func() (int, error) {
			return s.stats.CountHabitsCompletedOn(ctx, userID, today.String())
		}},
		{&st.JournalEntriesThisWeek, func() (int, error) {
			return s.stats.CountJournalEntriesSince(ctx, userID, weekStart)
		}},
		{&st.VoiceNotes, func() (int, error) { return s.stats.CountVoiceNotes(ctx, userID) }},
	}
	for _, c := range counters {
		if *c.dst, err = c.fn(); err != nil {
			return nil, fmt.Errorf("ошибка подсчета статистики: %w", err)
		}
	}

	if st.FocusStreakDays, err = s.focusStreak(ctx, userID, today, loc); err != nil {
		return nil, err
	}

	st.DailyGoalMinutes = prefs.DailyFocusGoalMinutes
	if st.DailyGoalMinutes > 0 {
		progress := float64(todaySeconds) / float64(st.DailyGoalMinutes*60)
		st.DailyGoalProgress = math.Round(math.Min(1, progress)*100) / 100
	}
	return &st, nil
}

// focusStreak - число подряд идущих дней с завершенной фокус-сессией,
// заканчивающихся сегодня или вчера.
func (s *dashboardService) focusStreak(ctx context.Context, userID int64, today Day, loc *time.Location) (int, error) {
	since := today.AddDays(-focusStreakLookback).Start(loc)
	sessions, err := s.sessions.ListFocusSessionsSince(ctx, userID, since)
	if err != nil {
		return 0, fmt.Errorf("ошибка получения сессий: %w", err)
	}
	days := make(habitDays)
	for _, fs := range sessions {
		if fs.Completed && fs.Type == models.SessionTypeFocus {
			days[DayOf(fs.StartTime.In(loc))] = struct{}{}
		}
	}
	return dailyCurrentStreak(days, today), nil
}

// FocusAnalytics возвращает фокус-время по дням окна. Дни без сессий заполняются нулями.
func (s *dashboardService) FocusAnalytics(ctx context.Context, userID int64, days int) ([]models.FocusDay, error) {
	if days == 0 {
		days = DefaultFocusAnalyticsDays
	}
	if days < 1 || days > MaxAnalyticsDays {
		return nil, validationError("days должен быть от 1 до %d", MaxAnalyticsDays)
	}
	now := s.calendar.Now(ctx, userID)
	loc := now.Location()
	today := DayOf(now)
	first := today.AddDays(-(days - 1))

	sessions, err := s.sessions.ListFocusSessionsSince(ctx, userID, first.Start(loc))
	if err != nil {
		return nil, fmt.Errorf("ошибка получения сессий: %w", err)
	}
	return focusByDay(sessions, first, days, loc), nil
}

func focusByDay(sessions []models.FocusSession, first Day, days int, loc *time.Location) []models.FocusDay {
	out := make([]models.FocusDay, days)
	index := make(map[Day]int, days)
	for i := range out {
		d := first.AddDays(i)
		out[i].Date = d.String()
		index[d] = i
	}
	seconds := make([]int, days)
	for _, fs := range sessions {
		if fs.Type != models.SessionTypeFocus {
			continue
		}
		i, ok := index[DayOf(fs.StartTime.In(loc))]
		if !ok {
			continue
		}
		seconds[i] += fs.ActualSeconds
		out[i].Sessions++
	}
	for i := range out {
		out[i].FocusMinutes = seconds[i] / 60
	}
	return out
}

func (s *dashboardService) HabitAnalytics(ctx context.Context, userID int64, days int) ([]models.HabitProgress, error) {
	return s.habits.AllProgress(ctx, userID, days)
}
