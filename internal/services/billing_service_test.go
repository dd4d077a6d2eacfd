package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/flowkeeper/internal/events"
	"github.com/maynagashev/flowkeeper/internal/integrations/stripe"
	"github.com/maynagashev/flowkeeper/internal/services"
	"github.com/maynagashev/flowkeeper/models"
)

func TestBillingService_Disabled(t *testing.T) {
	env := newTestEnv(t)
	svc := services.NewBillingService(env.repos.Users, nil, services.BillingOptions{}, env.events, env.logger)
	ctx := context.Background()
	userID := env.createUser(t, "pay@example.com", "UTC")

	_, err := svc.CreatePaymentIntent(ctx, userID, models.PaymentIntentRequest{Amount: 500})
	assert.ErrorIs(t, err, services.ErrIntegrationDisabled)
	_, err = svc.CreateSubscription(ctx, userID, models.SubscriptionRequest{})
	assert.ErrorIs(t, err, services.ErrIntegrationDisabled)
	assert.ErrorIs(t, svc.HandleWebhook(ctx, []byte("{}"), "sig"), services.ErrIntegrationDisabled)

	sub, err := svc.GetSubscription(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionNone, sub.Status)
}

func TestBillingService_Subscription(t *testing.T) {
	env := newTestEnv(t)
	provider := new(mockBilling)
	svc := services.NewBillingService(env.repos.Users, provider,
		services.BillingOptions{PriceID: "price_default"}, env.events, env.logger)
	ctx := context.Background()

	user := &models.User{Email: "ann@example.com", FirstName: "Ann", LastName: "Lee", SubscriptionStatus: models.SubscriptionNone}
	userID, err := env.repos.Users.CreateUser(ctx, user)
	require.NoError(t, err)

	provider.On("CreateCustomer", ctx, userID, "ann@example.com", "Ann Lee").Return("cus_1", nil).Once()
	provider.On("CreateSubscription", ctx, "cus_1", "price_default").
		Return(&stripe.Subscription{ID: "sub_1", Status: models.SubscriptionIncomplete, ClientSecret: "pi_secret"}, nil).Once()

	resp, err := svc.CreateSubscription(ctx, userID, models.SubscriptionRequest{})
	require.NoError(t, err)
	assert.Equal(t, &models.SubscriptionResponse{
		SubscriptionID: "sub_1", ClientSecret: "pi_secret", Status: models.SubscriptionIncomplete,
	}, resp)

	stored, err := env.repos.Users.GetUserByID(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, stored.StripeCustomerID)
	assert.Equal(t, "cus_1", *stored.StripeCustomerID)
	assert.Equal(t, models.SubscriptionIncomplete, stored.SubscriptionStatus)
	assert.Equal(t, []string{events.SubscriptionUpdated}, env.events.types())

	// Клиент уже создан: повторно CreateCustomer не вызывается
	provider.On("CreatePaymentIntent", ctx, "cus_1", int64(900), "eur").
		Return(&stripe.PaymentIntent{ID: "pi_2", ClientSecret: "secret_2"}, nil).Once()
	pi, err := svc.CreatePaymentIntent(ctx, userID, models.PaymentIntentRequest{Amount: 900, Currency: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, "secret_2", pi.ClientSecret)

	_, err = svc.CreatePaymentIntent(ctx, userID, models.PaymentIntentRequest{Amount: 10})
	assert.ErrorIs(t, err, services.ErrValidation)

	provider.On("GetSubscription", ctx, "sub_1").
		Return(&stripe.Subscription{ID: "sub_1", Status: models.SubscriptionPastDue}, nil).Once()
	got, err := svc.GetSubscription(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionPastDue, got.Status)
	stored, err = env.repos.Users.GetUserByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionPastDue, stored.SubscriptionStatus)

	provider.AssertExpectations(t)
}

func TestBillingService_NoPrice(t *testing.T) {
	env := newTestEnv(t)
	svc := services.NewBillingService(env.repos.Users, new(mockBilling), services.BillingOptions{}, env.events, env.logger)
	_, err := svc.CreateSubscription(context.Background(), 1, models.SubscriptionRequest{})
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestBillingService_Webhook(t *testing.T) {
	env := newTestEnv(t)
	provider := new(mockBilling)
	svc := services.NewBillingService(env.repos.Users, provider, services.BillingOptions{}, env.events, env.logger)
	ctx := context.Background()

	userID := env.createUser(t, "hook@example.com", "UTC")
	customer := "cus_hook"
	require.NoError(t, env.repos.Users.UpdateUserBilling(ctx, userID, &customer, nil, models.SubscriptionIncomplete))

	tests := []struct {
		name       string
		event      *stripe.WebhookEvent
		parseErr   error
		wantErr    error
		wantStatus string
	}{
		{
			name:       "Подписка активирована",
			event:      &stripe.WebhookEvent{ID: "evt_1", Type: stripe.EventSubscriptionUpdated, CustomerID: customer, SubscriptionID: "sub_9", Status: "active"},
			wantStatus: models.SubscriptionActive,
		},
		{
			name:       "Платеж по платежу не меняет статус",
			event:      &stripe.WebhookEvent{ID: "evt_2", Type: stripe.EventPaymentSucceeded},
			wantStatus: models.SubscriptionActive,
		},
		{
			name:       "Неизвестный клиент",
			event:      &stripe.WebhookEvent{ID: "evt_3", Type: stripe.EventSubscriptionUpdated, CustomerID: "cus_unknown", Status: "past_due"},
			wantStatus: models.SubscriptionActive,
		},
		{
			name:       "Неизвестное событие",
			event:      &stripe.WebhookEvent{ID: "evt_4", Type: "customer.created", CustomerID: customer},
			wantStatus: models.SubscriptionActive,
		},
		{
			name:       "Подписка удалена",
			event:      &stripe.WebhookEvent{ID: "evt_5", Type: stripe.EventSubscriptionDeleted, CustomerID: customer, SubscriptionID: "sub_9", Status: "canceled"},
			wantStatus: models.SubscriptionCanceled,
		},
		{
			name:       "Неверная подпись",
			parseErr:   fmt.Errorf("%w: bad", stripe.ErrInvalidSignature),
			wantErr:    services.ErrValidation,
			wantStatus: models.SubscriptionCanceled,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := []byte(tt.name)
			provider.On("ParseWebhook", payload, "sig").Return(tt.event, tt.parseErr).Once()

			err := svc.HandleWebhook(ctx, payload, "sig")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			u, err := env.repos.Users.GetUserByID(ctx, userID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, u.SubscriptionStatus)
		})
	}
	provider.AssertExpectations(t)
}
