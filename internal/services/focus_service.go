package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/events"
	"github.com/maynagashev/flowkeeper/internal/metrics"
	"github.com/maynagashev/flowkeeper/internal/repository"
	"github.com/maynagashev/flowkeeper/models"
)

// Лимиты списка сессий.
const (
	DefaultSessionsLimit = 50
	MaxSessionsLimit     = 200
)

// FocusService - сессии таймера.
type FocusService interface {
	List(ctx context.Context, userID int64, limit int) ([]models.FocusSession, error)
	Today(ctx context.Context, userID int64) ([]models.FocusSession, error)
	Create(ctx context.Context, userID int64, req models.CreateFocusSessionRequest) (*models.FocusSession, error)
	Update(ctx context.Context, userID, id int64, req models.UpdateFocusSessionRequest) (*models.FocusSession, error)
	Delete(ctx context.Context, userID, id int64) error
}

var _ FocusService = (*focusService)(nil)

type focusService struct {
	repo      repository.FocusSessionRepository
	calendar  *Calendar
	publisher events.Publisher
	logger    *zap.Logger
}

// NewFocusService создает сервис сессий таймера.
func NewFocusService(
	repo repository.FocusSessionRepository,
	calendar *Calendar,
	publisher events.Publisher,
	logger *zap.Logger,
) FocusService {
	return &focusService{repo: repo, calendar: calendar, publisher: publisher, logger: logger.Named("focus")}
}

func (s *focusService) List(ctx context.Context, userID int64, limit int) ([]models.FocusSession, error) {
	switch {
	case limit <= 0:
		limit = DefaultSessionsLimit
	case limit > MaxSessionsLimit:
		limit = MaxSessionsLimit
	}
	sessions, err := s.repo.ListFocusSessions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения сессий: %w", err)
	}
	return sessions, nil
}

// Today возвращает сессии, начатые в текущий календарный день пользователя.
func (s *focusService) Today(ctx context.Context, userID int64) ([]models.FocusSession, error) {
	now := s.calendar.Now(ctx, userID)
	today := DayOf(now)
	start, end := today.Start(now.Location()), today.AddDays(1).Start(now.Location())

	sessions, err := s.repo.ListFocusSessionsSince(ctx, userID, start)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения сессий за сегодня: %w", err)
	}
	out := make([]models.FocusSession, 0, len(sessions))
	for _, fs := range sessions {
		if fs.StartTime.Before(end) {
			out = append(out, fs)
		}
	}
	return out, nil
}

func (s *focusService) Create(
	ctx context.Context,
	userID int64,
	req models.CreateFocusSessionRequest,
) (*models.FocusSession, error) {
	start := s.calendar.now().UTC()
	if req.StartTime != nil {
		start = req.StartTime.UTC()
	}
	fs := &models.FocusSession{
		UserID:         userID,
		Type:           req.Type,
		PlannedMinutes: req.PlannedMinutes,
		StartTime:      start,
		Notes:          req.Notes,
	}
	if _, err := s.repo.CreateFocusSession(ctx, fs); err != nil {
		return nil, fmt.Errorf("ошибка создания сессии: %w", err)
	}
	return fs, nil
}

// Update применяет частичное обновление. При первом завершении сессии
// проставляет время окончания и фактическую длительность, если клиент их не прислал.
func (s *focusService) Update(
	ctx context.Context,
	userID, id int64,
	req models.UpdateFocusSessionRequest,
) (*models.FocusSession, error) {
	fs, err := s.repo.GetFocusSession(ctx, userID, id)
	if err != nil {
		return nil, translate(err, "ошибка получения сессии")
	}
	wasCompleted := fs.Completed

	if req.EndTime != nil {
		if req.EndTime.Before(fs.StartTime) {
			return nil, validationError("время окончания раньше начала")
		}
		end := req.EndTime.UTC()
		fs.EndTime = &end
	}
	if req.Notes != nil {
		fs.Notes = *req.Notes
	}
	if req.Completed != nil {
		fs.Completed = *req.Completed
	}
	completing := fs.Completed && !wasCompleted
	if completing && fs.EndTime == nil {
		end := s.calendar.now().UTC()
		fs.EndTime = &end
	}

	switch {
	case req.ActualSeconds != nil:
		fs.ActualSeconds = *req.ActualSeconds
	case completing:
		fs.ActualSeconds = int(fs.EndTime.Sub(fs.StartTime) / time.Second)
	}
	fs.ActualSeconds = clampSeconds(fs.ActualSeconds, fs.PlannedMinutes)

	if err = s.repo.UpdateFocusSession(ctx, fs); err != nil {
		return nil, translate(err, "ошибка обновления сессии")
	}

	if completing {
		metrics.FocusSessionsCompleted.WithLabelValues(fs.Type).Inc()
		publishEvent(ctx, s.publisher, s.logger, events.New(events.FocusSessionCompleted, userID, map[string]any{
			"sessionId":     fs.ID,
			"type":          fs.Type,
			"actualSeconds": fs.ActualSeconds,
		}))
	}
	return fs, nil
}

func (s *focusService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteFocusSession(ctx, userID, id); err != nil {
		return translate(err, "ошибка удаления сессии")
	}
	return nil
}

// clampSeconds ограничивает фактическое время интервалом [0, planned*60].
func clampSeconds(seconds, plannedMinutes int) int {
	maxSeconds := plannedMinutes * 60
	switch {
	case seconds < 0:
		return 0
	case seconds > maxSeconds:
		return maxSeconds
	default:
		return seconds
	}
}
