package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/events"
	"github.com/maynagashev/flowkeeper/internal/integrations/stripe"
	"github.com/maynagashev/flowkeeper/internal/metrics"
	"github.com/maynagashev/flowkeeper/internal/repository"
	"github.com/maynagashev/flowkeeper/models"
)

const defaultCurrency = "usd"

// BillingService - платежи и подписки.
type BillingService interface {
	CreatePaymentIntent(
		ctx context.Context, userID int64, req models.PaymentIntentRequest,
	) (*models.PaymentIntentResponse, error)
	CreateSubscription(
		ctx context.Context, userID int64, req models.SubscriptionRequest,
	) (*models.SubscriptionResponse, error)
	GetSubscription(ctx context.Context, userID int64) (*models.SubscriptionResponse, error)
	// HandleWebhook проверяет подпись и применяет событие Stripe.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

var _ BillingService = (*billingService)(nil)

// BillingOptions - параметры биллинга из конфигурации.
type BillingOptions struct {
	PriceID  string
	Currency string
}

type billingService struct {
	users     repository.UserRepository
	provider  BillingProvider
	opts      BillingOptions
	publisher events.Publisher
	logger    *zap.Logger
}

// NewBillingService создает сервис биллинга. provider == nil означает,
// что Stripe не настроен.
func NewBillingService(
	users repository.UserRepository,
	provider BillingProvider,
	opts BillingOptions,
	publisher events.Publisher,
	logger *zap.Logger,
) BillingService {
	if opts.Currency == "" {
		opts.Currency = defaultCurrency
	}
	return &billingService{users: users, provider: provider, opts: opts, publisher: publisher, logger: logger.Named("billing")}
}

func (s *billingService) CreatePaymentIntent(
	ctx context.Context,
	userID int64,
	req models.PaymentIntentRequest,
) (*models.PaymentIntentResponse, error) {
	if s.provider == nil {
		return nil, ErrIntegrationDisabled
	}
	if req.Amount < 50 {
		return nil, validationError("минимальная сумма 50 центов")
	}
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = s.opts.Currency
	}
	user, err := s.ensureCustomer(ctx, userID)
	if err != nil {
		return nil, err
	}
	pi, err := s.provider.CreatePaymentIntent(ctx, *user.StripeCustomerID, req.Amount, currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	s.logger.Info("Создан платеж", zap.Int64("user_id", userID), zap.String("payment_intent", pi.ID))
	return &models.PaymentIntentResponse{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (s *billingService) CreateSubscription(
	ctx context.Context,
	userID int64,
	req models.SubscriptionRequest,
) (*models.SubscriptionResponse, error) {
	if s.provider == nil {
		return nil, ErrIntegrationDisabled
	}
	priceID := req.PriceID
	if priceID == "" {
		priceID = s.opts.PriceID
	}
	if priceID == "" {
		return nil, validationError("не указан тариф")
	}
	user, err := s.ensureCustomer(ctx, userID)
	if err != nil {
		return nil, err
	}

	sub, err := s.provider.CreateSubscription(ctx, *user.StripeCustomerID, priceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if err = s.users.UpdateUserBilling(ctx, userID, user.StripeCustomerID, &sub.ID, sub.Status); err != nil {
		return nil, translate(err, "ошибка сохранения подписки")
	}
	s.logger.Info("Создана подписка",
		zap.Int64("user_id", userID), zap.String("subscription", sub.ID), zap.String("status", sub.Status))
	s.publishStatus(ctx, userID, sub.ID, sub.Status)
	return &models.SubscriptionResponse{SubscriptionID: sub.ID, ClientSecret: sub.ClientSecret, Status: sub.Status}, nil
}

// GetSubscription возвращает состояние подписки. Если Stripe настроен,
// статус сверяется с провайдером.
func (s *billingService) GetSubscription(ctx context.Context, userID int64) (*models.SubscriptionResponse, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "ошибка получения пользователя")
	}
	resp := &models.SubscriptionResponse{Status: user.SubscriptionStatus}
	if resp.Status == "" {
		resp.Status = models.SubscriptionNone
	}
	if user.StripeSubscriptionID == nil {
		return resp, nil
	}
	resp.SubscriptionID = *user.StripeSubscriptionID
	if s.provider == nil {
		return resp, nil
	}

	sub, err := s.provider.GetSubscription(ctx, resp.SubscriptionID)
	if err != nil {
		// Отдаем сохраненный статус
		s.logger.Warn("Не удалось получить подписку из Stripe", zap.Int64("user_id", userID), zap.Error(err))
		return resp, nil
	}
	if sub.Status != user.SubscriptionStatus {
		if err = s.users.UpdateUserBilling(ctx, userID, user.StripeCustomerID, &sub.ID, sub.Status); err != nil {
			return nil, translate(err, "ошибка обновления подписки")
		}
		s.publishStatus(ctx, userID, sub.ID, sub.Status)
	}
	resp.Status = sub.Status
	return resp, nil
}

func (s *billingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.provider == nil {
		return ErrIntegrationDisabled
	}
	ev, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, stripe.ErrInvalidSignature) {
			return validationError("неверная подпись webhook")
		}
		return fmt.Errorf("ошибка разбора webhook: %w", err)
	}
	metrics.WebhookEvents.WithLabelValues(ev.Type).Inc()
	log := s.logger.With(zap.String("event_id", ev.ID), zap.String("type", ev.Type))

	switch ev.Type {
	case stripe.EventSubscriptionCreated, stripe.EventSubscriptionUpdated,
		stripe.EventSubscriptionDeleted, stripe.EventInvoicePaid:
	case stripe.EventPaymentSucceeded:
		log.Info("Платеж прошел")
		return nil
	default:
		log.Debug("Событие webhook пропущено")
		return nil
	}

	user, err := s.users.GetUserByStripeCustomerID(ctx, ev.CustomerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("Webhook для неизвестного клиента", zap.String("customer", ev.CustomerID))
			return nil
		}
		return fmt.Errorf("ошибка поиска клиента: %w", err)
	}

	status := ev.Status
	if ev.Type == stripe.EventSubscriptionDeleted {
		status = models.SubscriptionCanceled
	}
	subID := user.StripeSubscriptionID
	if ev.SubscriptionID != "" {
		subID = &ev.SubscriptionID
	}
	if err = s.users.UpdateUserBilling(ctx, user.ID, user.StripeCustomerID, subID, status); err != nil {
		return translate(err, "ошибка обновления подписки")
	}
	log.Info("Статус подписки обновлен", zap.Int64("user_id", user.ID), zap.String("status", status))
	s.publishStatus(ctx, user.ID, ev.SubscriptionID, status)
	return nil
}

// ensureCustomer создает клиента Stripe при первом обращении пользователя.
func (s *billingService) ensureCustomer(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "ошибка получения пользователя")
	}
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return user, nil
	}

	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	customerID, err := s.provider.CreateCustomer(ctx, user.ID, user.Email, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	status := user.SubscriptionStatus
	if status == "" {
		status = models.SubscriptionNone
	}
	if err = s.users.UpdateUserBilling(ctx, userID, &customerID, user.StripeSubscriptionID, status); err != nil {
		return nil, translate(err, "ошибка сохранения клиента")
	}
	user.StripeCustomerID = &customerID
	s.logger.Info("Создан клиент Stripe", zap.Int64("user_id", userID))
	return user, nil
}

func (s *billingService) publishStatus(ctx context.Context, userID int64, subscriptionID, status string) {
	publishEvent(ctx, s.publisher, s.logger, events.New(events.SubscriptionUpdated, userID, map[string]any{
		"subscriptionId": subscriptionID,
		"status":         status,
	}))
}
