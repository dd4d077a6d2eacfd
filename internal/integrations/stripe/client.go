// Package stripe - платежи и подписки через Stripe.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Типы событий webhook, которые обрабатывает сервер.
const (
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventInvoicePaid         = "invoice.payment_succeeded"
	EventPaymentSucceeded    = "payment_intent.succeeded"
)

// ErrInvalidSignature - подпись webhook не прошла проверку.
var ErrInvalidSignature = errors.New("неверная подпись webhook")

// Config - параметры клиента Stripe.
type Config struct {
	SecretKey     string
	WebhookSecret string
	// BaseURL переопределяет адрес API (для тестов).
	BaseURL string
}

// PaymentIntent - созданный платеж.
type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// Subscription - подписка клиента.
type Subscription struct {
	ID           string
	Status       string
	ClientSecret string // секрет первого платежа, если он требует подтверждения
}

// WebhookEvent - проверенное событие webhook с полями, нужными для обновления пользователя.
type WebhookEvent struct {
	ID             string
	Type           string
	CustomerID     string
	SubscriptionID string
	Status         string
}

// Client - обертка над stripe-go.
type Client struct {
	api           *client.API
	webhookSecret string
	logger        *zap.Logger
}

// NewClient создает клиент Stripe.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	var backends *stripeapi.Backends
	if cfg.BaseURL != "" {
		backendCfg := &stripeapi.BackendConfig{
			URL:               stripeapi.String(cfg.BaseURL),
			MaxNetworkRetries: stripeapi.Int64(0),
			LeveledLogger:     &stripeapi.LeveledLogger{Level: stripeapi.LevelError},
		}
		backends = &stripeapi.Backends{
			API:     stripeapi.GetBackendWithConfig(stripeapi.APIBackend, backendCfg),
			Connect: stripeapi.GetBackendWithConfig(stripeapi.ConnectBackend, backendCfg),
			Uploads: stripeapi.GetBackendWithConfig(stripeapi.UploadsBackend, backendCfg),
		}
	}
	return &Client{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
		logger:        logger.Named("stripe"),
	}
}

// CreateCustomer создает клиента Stripe для пользователя.
func (c *Client) CreateCustomer(ctx context.Context, userID int64, email, name string) (string, error) {
	params := &stripeapi.CustomerParams{
		Email: stripeapi.String(email),
	}
	if name != "" {
		params.Name = stripeapi.String(name)
	}
	params.Context = ctx
	params.AddMetadata("user_id", strconv.FormatInt(userID, 10))

	customer, err := c.api.Customers.New(params)
	if err != nil {
		return "", c.wrap("создания клиента", err)
	}
	c.logger.Info("Клиент Stripe создан", zap.Int64("user_id", userID), zap.String("customer_id", customer.ID))
	return customer.ID, nil
}

// CreatePaymentIntent создает разовый платеж на сумму amount в минимальных единицах валюты.
func (c *Client) CreatePaymentIntent(
	ctx context.Context,
	customerID string,
	amount int64,
	currency string,
) (*PaymentIntent, error) {
	params := &stripeapi.PaymentIntentParams{
		Amount:   stripeapi.Int64(amount),
		Currency: stripeapi.String(currency),
		Customer: stripeapi.String(customerID),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
	}
	params.Context = ctx

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, c.wrap("создания платежа", err)
	}
	return &PaymentIntent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

// CreateSubscription оформляет подписку в статусе incomplete до подтверждения первого платежа.
func (c *Client) CreateSubscription(ctx context.Context, customerID, priceID string) (*Subscription, error) {
	params := &stripeapi.SubscriptionParams{
		Customer: stripeapi.String(customerID),
		Items: []*stripeapi.SubscriptionItemsParams{
			{Price: stripeapi.String(priceID)},
		},
		PaymentBehavior: stripeapi.String("default_incomplete"),
		PaymentSettings: &stripeapi.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripeapi.String("on_subscription"),
		},
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.payment_intent")

	sub, err := c.api.Subscriptions.New(params)
	if err != nil {
		return nil, c.wrap("создания подписки", err)
	}
	return toSubscription(sub), nil
}

// GetSubscription возвращает текущее состояние подписки.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	params := &stripeapi.SubscriptionParams{}
	params.Context = ctx

	sub, err := c.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, c.wrap("получения подписки", err)
	}
	return toSubscription(sub), nil
}

// ParseWebhook проверяет подпись и разбирает событие webhook.
func (c *Client) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		c.logger.Warn("Webhook не прошел проверку", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	ev := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	obj := gjson.ParseBytes(event.Data.Raw)
	switch ev.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		ev.SubscriptionID = obj.Get("id").String()
		ev.CustomerID = obj.Get("customer").String()
		ev.Status = obj.Get("status").String()
	case EventInvoicePaid:
		ev.SubscriptionID = obj.Get("subscription").String()
		ev.CustomerID = obj.Get("customer").String()
		ev.Status = string(stripeapi.SubscriptionStatusActive)
	}
	return ev, nil
}

func toSubscription(sub *stripeapi.Subscription) *Subscription {
	out := &Subscription{ID: sub.ID, Status: string(sub.Status)}
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		out.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
	}
	return out
}

func (c *Client) wrap(op string, err error) error {
	var stripeErr *stripeapi.Error
	if errors.As(err, &stripeErr) {
		c.logger.Warn("Stripe вернул ошибку",
			zap.String("op", op), zap.Int("status", stripeErr.HTTPStatusCode), zap.String("code", string(stripeErr.Code)))
	}
	return fmt.Errorf("ошибка %s в Stripe: %w", op, err)
}
