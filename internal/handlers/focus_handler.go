package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/services"
	"github.com/maynagashev/flowkeeper/models"
)

// FocusHandler - сессии таймера.
type FocusHandler struct {
	service services.FocusService
	logger  *zap.Logger
}

func NewFocusHandler(s services.FocusService, logger *zap.Logger) *FocusHandler {
	return &FocusHandler{service: s, logger: logger.Named("focus_handler")}
}

func (h *FocusHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	sessions, err := h.service.List(r.Context(), uid, limit)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *FocusHandler) Today(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	sessions, err := h.service.Today(r.Context(), uid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *FocusHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	var req models.CreateFocusSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	fs, err := h.service.Create(r.Context(), uid, req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, fs)
}

func (h *FocusHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.UpdateFocusSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	fs, err := h.service.Update(r.Context(), uid, id, req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, fs)
}

func (h *FocusHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), uid, id); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
