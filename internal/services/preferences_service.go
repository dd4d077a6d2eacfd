package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/repository"
	"github.com/maynagashev/flowkeeper/models"
)

// PreferencesService - настройки пользователя.
type PreferencesService interface {
	Get(ctx context.Context, userID int64) (*models.UserPreferences, error)
	Update(ctx context.Context, userID int64, prefs models.UserPreferences) (*models.UserPreferences, error)
}

var _ PreferencesService = (*preferencesService)(nil)

type preferencesService struct {
	repo   repository.PreferencesRepository
	logger *zap.Logger
}

// NewPreferencesService создает сервис настроек.
func NewPreferencesService(repo repository.PreferencesRepository, logger *zap.Logger) PreferencesService {
	return &preferencesService{repo: repo, logger: logger.Named("preferences")}
}

// Get возвращает сохраненные настройки или значения по умолчанию.
func (s *preferencesService) Get(ctx context.Context, userID int64) (*models.UserPreferences, error) {
	p, err := s.repo.GetPreferences(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			def := models.DefaultPreferences(userID)
			return &def, nil
		}
		return nil, fmt.Errorf("ошибка получения настроек: %w", err)
	}
	return p, nil
}

func (s *preferencesService) Update(
	ctx context.Context,
	userID int64,
	prefs models.UserPreferences,
) (*models.UserPreferences, error) {
	prefs.UserID = userID
	if prefs.Theme == "" {
		prefs.Theme = "system"
	}
	if err := validatePreferences(&prefs); err != nil {
		return nil, err
	}
	if err := s.repo.UpsertPreferences(ctx, &prefs); err != nil {
		return nil, fmt.Errorf("ошибка сохранения настроек: %w", err)
	}
	s.logger.Debug("Настройки обновлены", zap.Int64("user_id", userID))
	return &prefs, nil
}

func validatePreferences(p *models.UserPreferences) error {
	checks := []struct {
		name     string
		v, lo, hi int
	}{
		{"focusMinutes", p.FocusMinutes, 1, 240},
		{"shortBreakMinutes", p.ShortBreakMinutes, 1, 60},
		{"longBreakMinutes", p.LongBreakMinutes, 1, 60},
		{"sessionsUntilLongBreak", p.SessionsUntilLongBreak, 1, 12},
		{"dailyFocusGoalMinutes", p.DailyFocusGoalMinutes, 0, 1440},
	}
	for _, c := range checks {
		if c.v < c.lo || c.v > c.hi {
			return validationError("%s должен быть от %d до %d", c.name, c.lo, c.hi)
		}
	}
	if p.Timezone == "" {
		return validationError("не указан часовой пояс")
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return validationError("неизвестный часовой пояс %q", p.Timezone)
	}
	return nil
}
