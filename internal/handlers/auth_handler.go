package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/services"
	"github.com/maynagashev/flowkeeper/internal/session"
	"github.com/maynagashev/flowkeeper/models"
)

// AuthHandler обрабатывает регистрацию, вход и выход.
type AuthHandler struct {
	service  services.AuthService
	sessions *session.Manager
	logger   *zap.Logger
}

// NewAuthHandler создает новый экземпляр AuthHandler.
func NewAuthHandler(s services.AuthService, sessions *session.Manager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{service: s, sessions: sessions, logger: logger.Named("auth_handler")}
}

// Register регистрирует пользователя и сразу открывает для него сессию.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if _, err = h.sessions.Start(r.Context(), w, user.ID); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Login проверяет email и пароль и выставляет cookie сессии.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	user, err := h.service.Login(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if _, err = h.sessions.Start(r.Context(), w, user.ID); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Logout удаляет сессию на сервере и стирает cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(r.Context(), w, r); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me возвращает текущего пользователя.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	user, err := h.service.GetUser(r.Context(), uid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
