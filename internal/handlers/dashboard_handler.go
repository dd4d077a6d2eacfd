package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/services"
)

// DashboardHandler - сводка и аналитика.
type DashboardHandler struct {
	service services.DashboardService
	logger  *zap.Logger
}

func NewDashboardHandler(s services.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{service: s, logger: logger.Named("dashboard_handler")}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	stats, err := h.service.Stats(r.Context(), uid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *DashboardHandler) FocusAnalytics(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	days, ok := queryInt(w, r, "days")
	if !ok {
		return
	}
	points, err := h.service.FocusAnalytics(r.Context(), uid, days)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (h *DashboardHandler) HabitAnalytics(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	days, ok := queryInt(w, r, "days")
	if !ok {
		return
	}
	progress, err := h.service.HabitAnalytics(r.Context(), uid, days)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}
