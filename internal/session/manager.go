package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "flowkeeper"

// ErrNoSession - в запросе нет действительной cookie сессии.
var ErrNoSession = errors.New("нет действительной сессии")

// claims - содержимое cookie: ID сессии в jti и ID пользователя.
type claims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// Options - параметры cookie сессии.
type Options struct {
	Secret     string
	TTL        time.Duration
	CookieName string
	Secure     bool
}

// Manager выдает, проверяет, продлевает и завершает сессии.
type Manager struct {
	store      Store
	secret     []byte
	ttl        time.Duration
	cookieName string
	secure     bool
	now        func() time.Time
}

// NewManager создает менеджер сессий поверх хранилища.
func NewManager(store Store, opts Options) *Manager {
	return &Manager{
		store:      store,
		secret:     []byte(opts.Secret),
		ttl:        opts.TTL,
		cookieName: opts.CookieName,
		secure:     opts.Secure,
		now:        time.Now,
	}
}

// CookieName возвращает имя cookie сессии.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// Start создает сессию для пользователя и выставляет cookie.
func (m *Manager) Start(ctx context.Context, w http.ResponseWriter, userID int64) (*Session, error) {
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("ошибка сохранения сессии: %w", err)
	}
	if err := m.setCookie(w, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Authenticate находит сессию по cookie запроса.
// Если прошло больше половины времени жизни, сессия продлевается и cookie выдается заново.
func (m *Manager) Authenticate(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	c, err := m.parseCookie(r)
	if err != nil {
		return nil, err
	}

	s, err := m.store.Get(ctx, c.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("ошибка получения сессии: %w", err)
	}
	if s.UserID != c.UserID {
		return nil, ErrNoSession
	}

	now := m.now()
	if s.ExpiresAt.Sub(now) < m.ttl/2 {
		s.ExpiresAt = now.Add(m.ttl)
		if err = m.store.Save(ctx, s); err != nil {
			return nil, fmt.Errorf("ошибка продления сессии: %w", err)
		}
		if err = m.setCookie(w, s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// End удаляет сессию из хранилища и стирает cookie. Без cookie ничего не удаляет.
func (m *Manager) End(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	defer m.clearCookie(w)

	c, err := m.parseCookie(r)
	if err != nil {
		return nil //nolint:nilerr // выход без сессии не ошибка
	}
	if err = m.store.Delete(ctx, c.ID); err != nil {
		return fmt.Errorf("ошибка удаления сессии: %w", err)
	}
	return nil
}

func (m *Manager) parseCookie(r *http.Request) (*claims, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoSession
	}

	c := &claims{}
	token, err := jwt.ParseWithClaims(cookie.Value, c, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || c.ID == "" {
		return nil, ErrNoSession
	}
	return c, nil
}

func (m *Manager) setCookie(w http.ResponseWriter, s *Session) error {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: s.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(m.now()),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("ошибка подписи cookie сессии: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    signed,
		Path:     "/",
		Expires:  s.ExpiresAt,
		MaxAge:   int(s.ExpiresAt.Sub(m.now()).Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
