package services_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/events"
	"github.com/maynagashev/flowkeeper/internal/integrations/elevenlabs"
	"github.com/maynagashev/flowkeeper/internal/integrations/stripe"
	"github.com/maynagashev/flowkeeper/internal/repository"
	"github.com/maynagashev/flowkeeper/internal/services"
	"github.com/maynagashev/flowkeeper/models"
)

// testNow - понедельник.
var testNow = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	store    *repository.MemoryStore
	repos    *repository.Repositories
	calendar *services.Calendar
	events   *recordingPublisher
	logger   *zap.Logger

	mu  sync.Mutex
	now time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:  repository.NewMemoryStore(),
		events: &recordingPublisher{},
		logger: zap.NewNop(),
		now:    testNow,
	}
	env.store.SetClock(env.clock)
	env.repos = repository.NewMemoryRepositories(env.store)
	env.calendar = services.NewCalendar(env.repos.Preferences, env.clock, env.logger)
	return env
}

func (e *testEnv) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

func (e *testEnv) setNow(t time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = t
}

// createUser создает пользователя с настройками в указанном часовом поясе.
func (e *testEnv) createUser(t *testing.T, email, timezone string) int64 {
	t.Helper()
	id, err := e.repos.Users.CreateUser(context.Background(), &models.User{
		Email:              email,
		PasswordHash:       "hash",
		SubscriptionStatus: models.SubscriptionNone,
	})
	require.NoError(t, err)
	prefs := models.DefaultPreferences(id)
	prefs.Timezone = timezone
	require.NoError(t, e.repos.Preferences.UpsertPreferences(context.Background(), &prefs))
	return id
}

// recordingPublisher запоминает опубликованные события.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// --- Моки внешних зависимостей --- //

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) GetUserByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	args := m.Called(ctx, customerID)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) UpdateUserBilling(
	ctx context.Context,
	userID int64,
	customerID, subscriptionID *string,
	status string,
) error {
	return m.Called(ctx, userID, customerID, subscriptionID, status).Error(0)
}

type mockInsights struct {
	mock.Mock
}

func (m *mockInsights) Analyze(ctx context.Context, text string) (*models.Insights, error) {
	args := m.Called(ctx, text)
	i, _ := args.Get(0).(*models.Insights)
	return i, args.Error(1)
}

type mockTranscriber struct {
	mock.Mock
}

func (m *mockTranscriber) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	data, _ := io.ReadAll(audio)
	args := m.Called(ctx, filename, string(data))
	return args.String(0), args.Error(1)
}

type mockCloner struct {
	mock.Mock
}

func (m *mockCloner) AddVoice(
	ctx context.Context,
	name, description string,
	samples []elevenlabs.Sample,
) (string, error) {
	args := m.Called(ctx, name, description, samples)
	return args.String(0), args.Error(1)
}

func (m *mockCloner) DeleteVoice(ctx context.Context, voiceID string) error {
	return m.Called(ctx, voiceID).Error(0)
}

func (m *mockCloner) TextToSpeech(ctx context.Context, voiceID, text string) (io.ReadCloser, error) {
	args := m.Called(ctx, voiceID, text)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

type mockBilling struct {
	mock.Mock
}

func (m *mockBilling) CreateCustomer(ctx context.Context, userID int64, email, name string) (string, error) {
	args := m.Called(ctx, userID, email, name)
	return args.String(0), args.Error(1)
}

func (m *mockBilling) CreatePaymentIntent(
	ctx context.Context,
	customerID string,
	amount int64,
	currency string,
) (*stripe.PaymentIntent, error) {
	args := m.Called(ctx, customerID, amount, currency)
	pi, _ := args.Get(0).(*stripe.PaymentIntent)
	return pi, args.Error(1)
}

func (m *mockBilling) CreateSubscription(
	ctx context.Context,
	customerID, priceID string,
) (*stripe.Subscription, error) {
	args := m.Called(ctx, customerID, priceID)
	sub, _ := args.Get(0).(*stripe.Subscription)
	return sub, args.Error(1)
}

func (m *mockBilling) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	sub, _ := args.Get(0).(*stripe.Subscription)
	return sub, args.Error(1)
}

func (m *mockBilling) ParseWebhook(payload []byte, signature string) (*stripe.WebhookEvent, error) {
	args := m.Called(payload, signature)
	ev, _ := args.Get(0).(*stripe.WebhookEvent)
	return ev, args.Error(1)
}
