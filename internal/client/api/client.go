// Package api - HTTP-клиент таймера к серверу FlowKeeper.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/maynagashev/flowkeeper/models"
)

const (
	requestTimeout = 15 * time.Second
	maxErrorBody   = 16 << 10
)

// ErrAuthorization сигнализирует об ошибке авторизации (401).
var ErrAuthorization = errors.New("ошибка авторизации")

// APIError - ответ сервера с кодом не 2xx.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("сервер вернул статус %d", e.StatusCode)
	}
	return fmt.Sprintf("сервер вернул статус %d: %s", e.StatusCode, e.Message)
}

// Client определяет интерфейс для взаимодействия с API сервера FlowKeeper.
type Client interface {
	// Login выполняет вход и запоминает cookie сессии.
	Login(ctx context.Context, email, password string) (*models.User, error)
	// CurrentUser проверяет, что сохраненная сессия еще действует.
	CurrentUser(ctx context.Context) (*models.User, error)
	// Preferences возвращает настройки таймера пользователя.
	Preferences(ctx context.Context) (*models.UserPreferences, error)
	// StartSession создает сессию таймера.
	StartSession(ctx context.Context, sessionType string, plannedMinutes int) (*models.FocusSession, error)
	// UpdateSession отправляет прогресс или завершение сессии.
	UpdateSession(ctx context.Context, id int64, req models.UpdateFocusSessionRequest) (*models.FocusSession, error)
	// SessionCookie возвращает текущее значение cookie сессии.
	SessionCookie() string
	// SetSessionCookie восстанавливает cookie, сохраненную на диске.
	SetSessionCookie(value string)
}

var _ Client = (*httpClient)(nil)

// httpClient реализует интерфейс Client по HTTP. Сессию хранит в cookie.
type httpClient struct {
	baseURL    string
	cookieName string
	httpClient *http.Client
	cookie     string
}

// NewHTTPClient создает новый экземпляр API клиента.
func NewHTTPClient(baseURL, cookieName string) Client {
	return &httpClient{
		baseURL:    baseURL,
		cookieName: cookieName,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

func (c *httpClient) SessionCookie() string { return c.cookie }

func (c *httpClient) SetSessionCookie(value string) { c.cookie = value }

func (c *httpClient) Login(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := c.do(ctx, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: email, Password: password}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *httpClient) CurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/user", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *httpClient) Preferences(ctx context.Context) (*models.UserPreferences, error) {
	var prefs models.UserPreferences
	if err := c.do(ctx, http.MethodGet, "/api/preferences", nil, &prefs); err != nil {
		return nil, err
	}
	return &prefs, nil
}

func (c *httpClient) StartSession(
	ctx context.Context,
	sessionType string,
	plannedMinutes int,
) (*models.FocusSession, error) {
	var fs models.FocusSession
	req := models.CreateFocusSessionRequest{Type: sessionType, PlannedMinutes: plannedMinutes}
	if err := c.do(ctx, http.MethodPost, "/api/sessions", req, &fs); err != nil {
		return nil, err
	}
	return &fs, nil
}

func (c *httpClient) UpdateSession(
	ctx context.Context,
	id int64,
	req models.UpdateFocusSessionRequest,
) (*models.FocusSession, error) {
	var fs models.FocusSession
	if err := c.do(ctx, http.MethodPatch, "/api/sessions/"+strconv.FormatInt(id, 10), req, &fs); err != nil {
		return nil, err
	}
	return &fs, nil
}

// do выполняет запрос с JSON-телом и декодирует ответ в out.
// Обновленную сервером cookie сессии запоминает.
func (c *httpClient) do(ctx context.Context, method, path string, body, out any) error {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("ошибка формирования URL %s: %w", path, err)
	}

	var reader io.Reader
	if body != nil {
		data, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return fmt.Errorf("ошибка кодирования запроса: %w", marshalErr)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cookie != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: c.cookie})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка выполнения запроса %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	for _, ck := range resp.Cookies() {
		if ck.Name == c.cookieName {
			c.cookie = ck.Value
			if ck.MaxAge < 0 {
				c.cookie = ""
			}
		}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrAuthorization, errorMessage(resp.Body))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ошибка декодирования ответа: %w", err)
	}
	return nil
}

func errorMessage(body io.Reader) string {
	var resp models.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err := json.Unmarshal(data, &resp); err != nil || resp.Message == "" {
		return string(bytes.TrimSpace(data))
	}
	return resp.Message
}
