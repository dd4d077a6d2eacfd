package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestManager(t *testing.T) (*Manager, *MemoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = clock.now
	m := NewManager(store, Options{Secret: testSecret, TTL: 24 * time.Hour, CookieName: "flowkeeper_session"})
	m.now = clock.now
	return m, store, clock
}

// requestWithCookies переносит cookie из ответа в новый запрос.
func requestWithCookies(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestManager_StartAndAuthenticate(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	s, err := m.Start(ctx, rec, 42)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "flowkeeper_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	got, err := m.Authenticate(ctx, httptest.NewRecorder(), requestWithCookies(rec))
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, int64(42), got.UserID)
}

func TestManager_AuthenticateErrors(t *testing.T) {
	m, store, clock := newTestManager(t)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	s, err := m.Start(ctx, rec, 1)
	require.NoError(t, err)

	tests := []struct {
		name    string
		request func() *http.Request
		setup   func()
	}{
		{
			name:    "Нет cookie",
			request: func() *http.Request { return httptest.NewRequest(http.MethodGet, "/", nil) },
		},
		{
			name: "Подделанная cookie",
			request: func() *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.AddCookie(&http.Cookie{Name: "flowkeeper_session", Value: "abc.def.ghi"})
				return req
			},
		},
		{
			name:    "Сессия удалена из хранилища",
			request: func() *http.Request { return requestWithCookies(rec) },
			setup:   func() { require.NoError(t, store.Delete(ctx, s.ID)) },
		},
		{
			name:    "Сессия истекла",
			request: func() *http.Request { return requestWithCookies(rec) },
			setup: func() {
				require.NoError(t, store.Save(ctx, s))
				clock.t = clock.t.Add(25 * time.Hour)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			_, err := m.Authenticate(ctx, httptest.NewRecorder(), tt.request())
			assert.ErrorIs(t, err, ErrNoSession)
		})
	}
}

func TestManager_SlidingExpiry(t *testing.T) {
	m, store, clock := newTestManager(t)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	s, err := m.Start(ctx, rec, 7)
	require.NoError(t, err)
	firstExpiry := s.ExpiresAt

	// Меньше половины срока: cookie не перевыпускается
	clock.t = clock.t.Add(6 * time.Hour)
	fresh := httptest.NewRecorder()
	_, err = m.Authenticate(ctx, fresh, requestWithCookies(rec))
	require.NoError(t, err)
	assert.Empty(t, fresh.Result().Cookies())

	// Больше половины срока: сессия продлевается
	clock.t = clock.t.Add(7 * time.Hour)
	renewed := httptest.NewRecorder()
	got, err := m.Authenticate(ctx, renewed, requestWithCookies(rec))
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.After(firstExpiry))
	require.Len(t, renewed.Result().Cookies(), 1)

	stored, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(24*time.Hour), stored.ExpiresAt)
}

func TestManager_End(t *testing.T) {
	m, store, _ := newTestManager(t)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	s, err := m.Start(ctx, rec, 3)
	require.NoError(t, err)

	out := httptest.NewRecorder()
	require.NoError(t, m.End(ctx, out, requestWithCookies(rec)))

	_, err = store.Get(ctx, s.ID)
	require.ErrorIs(t, err, ErrNotFound)
	cookies := out.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)

	// Выход без cookie не ошибка
	assert.NoError(t, m.End(ctx, httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil)))
}

func TestMemoryStore_Purge(t *testing.T) {
	store := NewMemoryStore()
	clock := &fakeClock{t: time.Now()}
	store.now = clock.now
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "old", ExpiresAt: clock.t.Add(time.Minute)}))
	require.NoError(t, store.Save(ctx, &Session{ID: "new", ExpiresAt: clock.t.Add(time.Hour)}))

	clock.t = clock.t.Add(2 * time.Minute)
	assert.Equal(t, 1, store.Purge())
	assert.Equal(t, 1, store.Len())
}
