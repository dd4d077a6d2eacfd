package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/maynagashev/flowkeeper/internal/repository"
	"github.com/maynagashev/flowkeeper/internal/services"
	"github.com/maynagashev/flowkeeper/models"
)

func TestAuthService_Register(t *testing.T) {
	env := newTestEnv(t)
	svc := services.NewAuthService(env.repos.Users, env.repos.Preferences, bcrypt.MinCost, env.logger)
	ctx := context.Background()

	user, err := svc.Register(ctx, models.RegisterRequest{
		Email:     "  Alice@Example.COM ",
		Password:  "password123",
		FirstName: "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, models.SubscriptionNone, user.SubscriptionStatus)
	assert.NotEqual(t, "password123", user.PasswordHash)

	prefs, err := env.repos.Preferences.GetPreferences(ctx, user.ID)
	require.NoError(t, err, "при регистрации создаются настройки по умолчанию")
	assert.Equal(t, 25, prefs.FocusMinutes)

	_, err = svc.Register(ctx, models.RegisterRequest{Email: "alice@example.com", Password: "another-pass"})
	assert.ErrorIs(t, err, services.ErrEmailTaken)
}

func TestAuthService_Login(t *testing.T) {
	env := newTestEnv(t)
	svc := services.NewAuthService(env.repos.Users, env.repos.Preferences, bcrypt.MinCost, env.logger)
	ctx := context.Background()

	registered, err := svc.Register(ctx, models.RegisterRequest{Email: "bob@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     models.LoginRequest
		wantErr error
	}{
		{name: "Успешный вход", req: models.LoginRequest{Email: "bob@example.com", Password: "correct-horse"}},
		{name: "Email в другом регистре", req: models.LoginRequest{Email: "BOB@example.com", Password: "correct-horse"}},
		{
			name:    "Неверный пароль",
			req:     models.LoginRequest{Email: "bob@example.com", Password: "wrong"},
			wantErr: services.ErrInvalidCredentials,
		},
		{
			name:    "Неизвестный email",
			req:     models.LoginRequest{Email: "nobody@example.com", Password: "correct-horse"},
			wantErr: services.ErrInvalidCredentials,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Login(ctx, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, registered.ID, user.ID)
		})
	}
}

func TestAuthService_RepositoryErrors(t *testing.T) {
	ctx := context.Background()
	dbErr := errors.New("connection refused")

	t.Run("Ошибка БД при регистрации", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("CreateUser", ctx, mock.AnythingOfType("*models.User")).Return(int64(0), dbErr).Once()
		svc := services.NewAuthService(users, repository.NewMemoryStore(), bcrypt.MinCost, zap.NewNop())

		_, err := svc.Register(ctx, models.RegisterRequest{Email: "a@b.c", Password: "password1"})
		require.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, services.ErrEmailTaken)
		users.AssertExpectations(t)
	})

	t.Run("Ошибка БД при входе", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("GetUserByEmail", ctx, "a@b.c").Return(nil, dbErr).Once()
		svc := services.NewAuthService(users, repository.NewMemoryStore(), bcrypt.MinCost, zap.NewNop())

		_, err := svc.Login(ctx, models.LoginRequest{Email: "a@b.c", Password: "password1"})
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, services.ErrInvalidCredentials)
		users.AssertExpectations(t)
	})

	t.Run("Пользователь не найден", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("GetUserByID", ctx, int64(42)).Return(nil, repository.ErrNotFound).Once()
		svc := services.NewAuthService(users, repository.NewMemoryStore(), bcrypt.MinCost, zap.NewNop())

		_, err := svc.GetUser(ctx, 42)
		assert.ErrorIs(t, err, services.ErrNotFound)
		users.AssertExpectations(t)
	})
}
