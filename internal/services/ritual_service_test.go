package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/flowkeeper/internal/events"
	"github.com/maynagashev/flowkeeper/internal/repository"
	"github.com/maynagashev/flowkeeper/internal/services"
	"github.com/maynagashev/flowkeeper/models"
)

func TestRitualService(t *testing.T) {
	env := newTestEnv(t)
	svc := services.NewRitualService(env.repos.Rituals, env.events, env.logger)
	ctx := context.Background()
	userID := env.createUser(t, "rituals@example.com", "UTC")
	otherID := env.createUser(t, "other@example.com", "UTC")
	builtin := int64(len(repository.BuiltinRituals()))

	own, err := svc.Create(ctx, userID, models.CreateRitualRequest{Name: "Чай", DurationMinutes: 5})
	require.NoError(t, err)
	assert.Equal(t, "custom", own.Category)
	assert.False(t, own.IsBuiltin())

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, list, int(builtin)+1)

	others, err := svc.List(ctx, otherID)
	require.NoError(t, err)
	assert.Len(t, others, int(builtin), "чужие ритуалы не видны")

	t.Run("Встроенный ритуал удалить нельзя", func(t *testing.T) {
		assert.ErrorIs(t, svc.Delete(ctx, userID, 1), services.ErrForbidden)
	})

	t.Run("Чужой ритуал не найден", func(t *testing.T) {
		assert.ErrorIs(t, svc.Delete(ctx, otherID, own.ID), services.ErrNotFound)
		_, err := svc.Complete(ctx, otherID, own.ID, models.CompleteRitualRequest{})
		assert.ErrorIs(t, err, services.ErrNotFound)
	})

	t.Run("Настроение вне диапазона", func(t *testing.T) {
		_, err := svc.Complete(ctx, userID, 1, models.CompleteRitualRequest{MoodBefore: ptrTo(11)})
		assert.ErrorIs(t, err, services.ErrValidation)
	})

	c, err := svc.Complete(ctx, userID, 1, models.CompleteRitualRequest{
		MoodBefore: ptrTo(3), MoodAfter: ptrTo(7), Notes: "лучше",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.RitualID)
	_, err = svc.Complete(ctx, userID, own.ID, models.CompleteRitualRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{events.RitualCompleted, events.RitualCompleted}, env.events.types())

	completions, err := svc.Completions(ctx, userID, 0)
	require.NoError(t, err)
	require.Len(t, completions, 2)
	assert.Equal(t, own.ID, completions[0].RitualID, "сначала новые")

	require.NoError(t, svc.Delete(ctx, userID, own.ID))
	completions, err = svc.Completions(ctx, userID, 10)
	require.NoError(t, err)
	assert.Len(t, completions, 1, "выполнения удаленного ритуала удаляются")
}

func TestPreferencesService(t *testing.T) {
	env := newTestEnv(t)
	svc := services.NewPreferencesService(env.repos.Preferences, env.logger)
	ctx := context.Background()

	p, err := svc.Get(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPreferences(77), *p, "без сохраненных настроек возвращаются значения по умолчанию")

	valid := models.DefaultPreferences(0)
	valid.FocusMinutes = 50
	valid.Timezone = "Europe/Moscow"

	tests := []struct {
		name    string
		modify  func(p *models.UserPreferences)
		wantErr bool
	}{
		{name: "Корректные настройки", modify: func(*models.UserPreferences) {}},
		{name: "Фокус больше 240 минут", modify: func(p *models.UserPreferences) { p.FocusMinutes = 241 }, wantErr: true},
		{name: "Нулевой перерыв", modify: func(p *models.UserPreferences) { p.ShortBreakMinutes = 0 }, wantErr: true},
		{name: "Длинный перерыв больше часа", modify: func(p *models.UserPreferences) { p.LongBreakMinutes = 61 }, wantErr: true},
		{name: "Сессий до перерыва 13", modify: func(p *models.UserPreferences) { p.SessionsUntilLongBreak = 13 }, wantErr: true},
		{name: "Неизвестный часовой пояс", modify: func(p *models.UserPreferences) { p.Timezone = "Mars/Olympus" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.modify(&in)
			got, err := svc.Update(ctx, 77, in)
			if tt.wantErr {
				assert.ErrorIs(t, err, services.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(77), got.UserID)
		})
	}

	p, err = svc.Get(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, 50, p.FocusMinutes)
	assert.Equal(t, "Europe/Moscow", p.Timezone)
}
