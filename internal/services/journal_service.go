package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/events"
	"github.com/maynagashev/flowkeeper/internal/metrics"
	"github.com/maynagashev/flowkeeper/internal/repository"
	"github.com/maynagashev/flowkeeper/models"
)

// Границы окна графика настроения.
const (
	DefaultMoodTrendDays = 30
	MaxMoodTrendDays     = 365
)

// JournalService - записи дневника и их анализ.
type JournalService interface {
	List(ctx context.Context, userID int64, filter models.JournalFilter) ([]models.JournalEntry, error)
	Get(ctx context.Context, userID, id int64) (*models.JournalEntry, error)
	Create(ctx context.Context, userID int64, req models.CreateJournalEntryRequest) (*models.JournalEntry, error)
	Update(ctx context.Context, userID, id int64, req models.UpdateJournalEntryRequest) (*models.JournalEntry, error)
	Delete(ctx context.Context, userID, id int64) error
	GenerateInsights(ctx context.Context, userID, id int64) (*models.JournalEntry, error)
	MoodTrend(ctx context.Context, userID int64, days int) ([]models.MoodPoint, error)
}

var _ JournalService = (*journalService)(nil)

type journalService struct {
	repo      repository.JournalRepository
	insights  InsightsGenerator
	calendar  *Calendar
	publisher events.Publisher
	logger    *zap.Logger
}

// NewJournalService создает сервис дневника. insights может быть nil,
// тогда анализ записей недоступен.
func NewJournalService(
	repo repository.JournalRepository,
	insights InsightsGenerator,
	calendar *Calendar,
	publisher events.Publisher,
	logger *zap.Logger,
) JournalService {
	return &journalService{
		repo:      repo,
		insights:  insights,
		calendar:  calendar,
		publisher: publisher,
		logger:    logger.Named("journal"),
	}
}

func (s *journalService) List(
	ctx context.Context,
	userID int64,
	filter models.JournalFilter,
) ([]models.JournalEntry, error) {
	entries, err := s.repo.ListJournalEntries(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения записей: %w", err)
	}
	return entries, nil
}

func (s *journalService) Get(ctx context.Context, userID, id int64) (*models.JournalEntry, error) {
	e, err := s.repo.GetJournalEntry(ctx, userID, id)
	if err != nil {
		return nil, translate(err, "ошибка получения записи")
	}
	return e, nil
}

func (s *journalService) Create(
	ctx context.Context,
	userID int64,
	req models.CreateJournalEntryRequest,
) (*models.JournalEntry, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, validationError("текст записи пуст")
	}
	e := &models.JournalEntry{
		UserID:  userID,
		Title:   strings.TrimSpace(req.Title),
		Content: req.Content,
		Mood:    req.Mood,
		Tags:    normalizeTags(req.Tags),
	}
	if _, err := s.repo.CreateJournalEntry(ctx, e); err != nil {
		return nil, fmt.Errorf("ошибка создания записи: %w", err)
	}
	publishEvent(ctx, s.publisher, s.logger, events.New(events.JournalEntryCreated, userID, map[string]any{
		"entryId": e.ID,
		"mood":    e.Mood,
	}))
	return e, nil
}

func (s *journalService) Update(
	ctx context.Context,
	userID, id int64,
	req models.UpdateJournalEntryRequest,
) (*models.JournalEntry, error) {
	e, err := s.repo.GetJournalEntry(ctx, userID, id)
	if err != nil {
		return nil, translate(err, "ошибка получения записи")
	}
	if req.Title != nil {
		e.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		if strings.TrimSpace(*req.Content) == "" {
			return nil, validationError("текст записи пуст")
		}
		e.Content = *req.Content
	}
	if req.Mood != nil {
		e.Mood = *req.Mood
	}
	if req.Tags != nil {
		e.Tags = normalizeTags(*req.Tags)
	}
	if err = s.repo.UpdateJournalEntry(ctx, e); err != nil {
		return nil, translate(err, "ошибка обновления записи")
	}
	return e, nil
}

func (s *journalService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteJournalEntry(ctx, userID, id); err != nil {
		return translate(err, "ошибка удаления записи")
	}
	return nil
}

// GenerateInsights анализирует запись и сохраняет результат в ней.
func (s *journalService) GenerateInsights(ctx context.Context, userID, id int64) (*models.JournalEntry, error) {
	if s.insights == nil {
		return nil, ErrIntegrationDisabled
	}
	e, err := s.repo.GetJournalEntry(ctx, userID, id)
	if err != nil {
		return nil, translate(err, "ошибка получения записи")
	}

	text := fmt.Sprintf("Mood: %s\n\n%s", e.Mood, e.Content)
	if e.Title != "" {
		text = fmt.Sprintf("Title: %s\n%s", e.Title, text)
	}
	insights, err := s.insights.Analyze(ctx, text)
	metrics.IncrementInsights("journal", err)
	if err != nil {
		s.logger.Error("Ошибка анализа записи", zap.Int64("entry_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	e.AIInsights = insights
	if err = s.repo.UpdateJournalEntry(ctx, e); err != nil {
		return nil, translate(err, "ошибка сохранения анализа")
	}
	return e, nil
}

// MoodTrend возвращает среднее настроение по календарным дням пользователя.
// Дни без записей пропускаются.
func (s *journalService) MoodTrend(ctx context.Context, userID int64, days int) ([]models.MoodPoint, error) {
	if days == 0 {
		days = DefaultMoodTrendDays
	}
	if days < 1 || days > MaxMoodTrendDays {
		return nil, validationError("days должен быть от 1 до %d", MaxMoodTrendDays)
	}

	now := s.calendar.Now(ctx, userID)
	loc := now.Location()
	first := DayOf(now).AddDays(-(days - 1))

	entries, err := s.repo.ListJournalEntriesSince(ctx, userID, first.Start(loc))
	if err != nil {
		return nil, fmt.Errorf("ошибка получения записей: %w", err)
	}
	return moodTrend(entries, loc), nil
}

func moodTrend(entries []models.JournalEntry, loc *time.Location) []models.MoodPoint {
	type acc struct{ sum, n int }
	byDay := make(map[string]*acc)
	for _, e := range entries {
		v := models.MoodValue(e.Mood)
		if v == 0 {
			continue
		}
		key := DayOf(e.CreatedAt.In(loc)).String()
		a, ok := byDay[key]
		if !ok {
			a = &acc{}
			byDay[key] = a
		}
		a.sum += v
		a.n++
	}

	points := make([]models.MoodPoint, 0, len(byDay))
	for date, a := range byDay {
		points = append(points, models.MoodPoint{
			Date:        date,
			AverageMood: math.Round(float64(a.sum)/float64(a.n)*100) / 100,
			Entries:     a.n,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

// normalizeTags обрезает пробелы, приводит к нижнему регистру и убирает дубли.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
