// Package middleware содержит HTTP middleware сервера: аутентификацию по cookie
// сессии, ограничение частоты запросов и журналирование.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/session"
	"github.com/maynagashev/flowkeeper/models"
)

// Тип для ключа контекста.
type contextKey string

// UserIDKey - ключ для хранения ID пользователя в контексте.
const UserIDKey contextKey = "userID"

// Authenticator проверяет cookie сессии и кладет ID пользователя в контекст.
func Authenticator(sessions *session.Manager, logger *zap.Logger) func(http.Handler) http.Handler {
	log := logger.Named("auth_middleware")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := sessions.Authenticate(r.Context(), w, r)
			if err != nil {
				if errors.Is(err, session.ErrNoSession) {
					writeError(w, http.StatusUnauthorized, "требуется аутентификация")
					return
				}
				log.Error("Ошибка проверки сессии", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), s.UserID)))
		})
	}
}

// WithUserID возвращает контекст с ID пользователя.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserIDFromContext извлекает UserID из контекста запроса.
// Возвращает ID пользователя и true, если ID найден, иначе 0 и false.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: http.StatusText(status), Message: message})
}
