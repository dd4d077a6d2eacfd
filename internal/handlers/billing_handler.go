package handlers

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/services"
	"github.com/maynagashev/flowkeeper/models"
)

// maxWebhookBody - Stripe не присылает события больше 64 КБ.
const maxWebhookBody = 64 << 10

// BillingHandler - платежи и подписки Stripe.
type BillingHandler struct {
	service services.BillingService
	logger  *zap.Logger
}

func NewBillingHandler(s services.BillingService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{service: s, logger: logger.Named("billing_handler")}
}

func (h *BillingHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	var req models.PaymentIntentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	resp, err := h.service.CreatePaymentIntent(r.Context(), uid, req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BillingHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	var req models.SubscriptionRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, h.logger, err)
			return
		}
	}
	resp, err := h.service.CreateSubscription(r.Context(), uid, req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	resp, err := h.service.GetSubscription(r.Context(), uid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Webhook принимает события Stripe. Маршрут публичный, подлинность проверяется подписью.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "тело события слишком большое")
			return
		}
		writeError(w, http.StatusBadRequest, "не удалось прочитать тело события")
		return
	}
	if err = h.service.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
