package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/events"
	"github.com/maynagashev/flowkeeper/internal/repository"
	"github.com/maynagashev/flowkeeper/models"
)

// Лимиты списка выполнений ритуалов.
const (
	DefaultCompletionsLimit = 50
	MaxCompletionsLimit     = 200
)

// RitualService - ритуалы восстановления.
type RitualService interface {
	List(ctx context.Context, userID int64) ([]models.ResetRitual, error)
	Create(ctx context.Context, userID int64, req models.CreateRitualRequest) (*models.ResetRitual, error)
	Delete(ctx context.Context, userID, id int64) error
	Complete(ctx context.Context, userID, id int64, req models.CompleteRitualRequest) (*models.ResetCompletion, error)
	Completions(ctx context.Context, userID int64, limit int) ([]models.ResetCompletion, error)
}

var _ RitualService = (*ritualService)(nil)

type ritualService struct {
	repo      repository.RitualRepository
	publisher events.Publisher
	logger    *zap.Logger
}

// NewRitualService создает сервис ритуалов.
func NewRitualService(repo repository.RitualRepository, publisher events.Publisher, logger *zap.Logger) RitualService {
	return &ritualService{repo: repo, publisher: publisher, logger: logger.Named("rituals")}
}

func (s *ritualService) List(ctx context.Context, userID int64) ([]models.ResetRitual, error) {
	rituals, err := s.repo.ListRituals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ритуалов: %w", err)
	}
	return rituals, nil
}

func (s *ritualService) Create(
	ctx context.Context,
	userID int64,
	req models.CreateRitualRequest,
) (*models.ResetRitual, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationError("не указано название ритуала")
	}
	if req.DurationMinutes < 1 {
		return nil, validationError("длительность должна быть положительной")
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = "custom"
	}
	r := &models.ResetRitual{
		UserID:          &userID,
		Name:            name,
		Description:     strings.TrimSpace(req.Description),
		DurationMinutes: req.DurationMinutes,
		Category:        category,
	}
	if _, err := s.repo.CreateRitual(ctx, r); err != nil {
		return nil, fmt.Errorf("ошибка создания ритуала: %w", err)
	}
	return r, nil
}

// Delete удаляет собственный ритуал. Встроенные ритуалы удалить нельзя.
func (s *ritualService) Delete(ctx context.Context, userID, id int64) error {
	r, err := s.repo.GetRitual(ctx, userID, id)
	if err != nil {
		return translate(err, "ошибка получения ритуала")
	}
	if r.IsBuiltin() {
		return ErrForbidden
	}
	if err = s.repo.DeleteRitual(ctx, userID, id); err != nil {
		return translate(err, "ошибка удаления ритуала")
	}
	return nil
}

func (s *ritualService) Complete(
	ctx context.Context,
	userID, id int64,
	req models.CompleteRitualRequest,
) (*models.ResetCompletion, error) {
	for _, m := range []*int{req.MoodBefore, req.MoodAfter} {
		if m != nil && (*m < 1 || *m > 10) {
			return nil, validationError("настроение должно быть от 1 до 10")
		}
	}
	r, err := s.repo.GetRitual(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения ритуала: %w", err)
	}

	c := &models.ResetCompletion{
		RitualID:   r.ID,
		UserID:     userID,
		MoodBefore: req.MoodBefore,
		MoodAfter:  req.MoodAfter,
		Notes:      strings.TrimSpace(req.Notes),
	}
	if _, err = s.repo.CreateResetCompletion(ctx, c); err != nil {
		return nil, fmt.Errorf("ошибка сохранения выполнения: %w", err)
	}
	publishEvent(ctx, s.publisher, s.logger, events.New(events.RitualCompleted, userID, map[string]any{
		"ritualId":     r.ID,
		"completionId": c.ID,
	}))
	return c, nil
}

func (s *ritualService) Completions(ctx context.Context, userID int64, limit int) ([]models.ResetCompletion, error) {
	switch {
	case limit <= 0:
		limit = DefaultCompletionsLimit
	case limit > MaxCompletionsLimit:
		limit = MaxCompletionsLimit
	}
	out, err := s.repo.ListResetCompletions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения выполнений: %w", err)
	}
	return out, nil
}
