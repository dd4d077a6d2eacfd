package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/services"
	"github.com/maynagashev/flowkeeper/models"
)

// JournalHandler - дневник.
type JournalHandler struct {
	service services.JournalService
	logger  *zap.Logger
}

func NewJournalHandler(s services.JournalService, logger *zap.Logger) *JournalHandler {
	return &JournalHandler{service: s, logger: logger.Named("journal_handler")}
}

// List поддерживает фильтры ?mood= и ?tag=.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := models.JournalFilter{Mood: q.Get("mood"), Tag: q.Get("tag")}
	if filter.Mood != "" && models.MoodValue(filter.Mood) == 0 {
		writeError(w, http.StatusBadRequest, "неизвестное настроение "+filter.Mood)
		return
	}
	entries, err := h.service.List(r.Context(), uid, filter)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *JournalHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	e, err := h.service.Get(r.Context(), uid, id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *JournalHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	var req models.CreateJournalEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	e, err := h.service.Create(r.Context(), uid, req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *JournalHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.UpdateJournalEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	e, err := h.service.Update(r.Context(), uid, id, req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *JournalHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

func (h *JournalHandler) Insights(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	e, err := h.service.GenerateInsights(r.Context(), uid, id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// MoodTrend - ?days=30 (1..365).
func (h *JournalHandler) MoodTrend(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	days, ok := queryInt(w, r, "days")
	if !ok {
		return
	}
	points, err := h.service.MoodTrend(r.Context(), uid, days)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}
