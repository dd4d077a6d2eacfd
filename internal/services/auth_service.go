package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/maynagashev/flowkeeper/internal/repository"
	"github.com/maynagashev/flowkeeper/models"
)

// AuthService определяет интерфейс для сервиса аутентификации.
type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.User, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
}

// Убедимся, что authService удовлетворяет интерфейсу AuthService.
var _ AuthService = (*authService)(nil)

type authService struct {
	userRepo  repository.UserRepository
	prefsRepo repository.PreferencesRepository
	cost      int
	// dummyHash сравнивается с паролем, если пользователь не найден,
	// чтобы время ответа не выдавало существование email.
	dummyHash []byte
	logger    *zap.Logger
}

// NewAuthService создает новый экземпляр сервиса аутентификации.
// cost - стоимость bcrypt; 0 означает bcrypt.DefaultCost.
func NewAuthService(
	userRepo repository.UserRepository,
	prefsRepo repository.PreferencesRepository,
	cost int,
	logger *zap.Logger,
) AuthService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("flowkeeper-dummy-password"), cost)
	return &authService{
		userRepo:  userRepo,
		prefsRepo: prefsRepo,
		cost:      cost,
		dummyHash: dummy,
		logger:    logger.Named("auth"),
	}
}

// Register регистрирует нового пользователя и создает ему настройки по умолчанию.
func (s *authService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	user := &models.User{
		Email:              email,
		PasswordHash:       string(hashed),
		FirstName:          strings.TrimSpace(req.FirstName),
		LastName:           strings.TrimSpace(req.LastName),
		SubscriptionStatus: models.SubscriptionNone,
	}
	user.ID, err = s.userRepo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			s.logger.Debug("Попытка регистрации с занятым email")
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	prefs := models.DefaultPreferences(user.ID)
	if err = s.prefsRepo.UpsertPreferences(ctx, &prefs); err != nil {
		// Без сохраненных настроек пользователь получит значения по умолчанию
		s.logger.Warn("Не удалось сохранить настройки по умолчанию", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	s.logger.Info("Пользователь зарегистрирован", zap.Int64("user_id", user.ID))
	return s.GetUser(ctx, user.ID)
}

// Login проверяет email и пароль.
func (s *authService) Login(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("ошибка поиска пользователя: %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Debug("Неверный пароль", zap.Int64("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}

	s.logger.Info("Пользователь вошел", zap.Int64("user_id", user.ID))
	return user, nil
}

// GetUser возвращает пользователя по ID.
func (s *authService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "ошибка получения пользователя")
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// translate переводит ErrNotFound репозитория в ErrNotFound сервиса, остальное оборачивает.
func translate(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}
