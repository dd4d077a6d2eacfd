package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/services"
	"github.com/maynagashev/flowkeeper/models"
)

// PreferencesHandler - настройки пользователя.
type PreferencesHandler struct {
	service services.PreferencesService
	logger  *zap.Logger
}

func NewPreferencesHandler(s services.PreferencesService, logger *zap.Logger) *PreferencesHandler {
	return &PreferencesHandler{service: s, logger: logger.Named("preferences_handler")}
}

func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	prefs, err := h.service.Get(r.Context(), uid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// Put заменяет настройки целиком.
func (h *PreferencesHandler) Put(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	var req models.UserPreferences
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	prefs, err := h.service.Update(r.Context(), uid, req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
