// Package elevenlabs - клиент ElevenLabs для клонирования голоса и синтеза речи.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	apiKeyHeader   = "xi-api-key"
	defaultTimeout = 60 * time.Second
	// maxErrorBody ограничивает чтение тела ответа с ошибкой.
	maxErrorBody = 64 << 10
)

// ErrVoiceNotFound - голос отсутствует у провайдера.
var ErrVoiceNotFound = errors.New("голос не найден у провайдера")

// Sample - образец голоса для клонирования.
type Sample struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

// Config - параметры клиента ElevenLabs.
type Config struct {
	APIKey  string
	BaseURL string
	ModelID string
}

// Client - HTTP-клиент ElevenLabs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	modelID    string
	logger     *zap.Logger
}

// NewClient создает клиент ElevenLabs.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		modelID:    cfg.ModelID,
		logger:     logger.Named("elevenlabs"),
	}
}

// APIError - ответ ElevenLabs с кодом не 2xx.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ElevenLabs вернул %d: %s", e.StatusCode, e.Message)
}

// AddVoice клонирует голос по образцам и возвращает ID голоса у провайдера.
func (c *Client) AddVoice(ctx context.Context, name, description string, samples []Sample) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("name", name); err != nil {
		return "", fmt.Errorf("ошибка формирования запроса: %w", err)
	}
	if description != "" {
		if err := mw.WriteField("description", description); err != nil {
			return "", fmt.Errorf("ошибка формирования запроса: %w", err)
		}
	}
	for _, s := range samples {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, s.Filename))
		h.Set("Content-Type", s.ContentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return "", fmt.Errorf("ошибка формирования запроса: %w", err)
		}
		if _, err = io.Copy(part, s.Data); err != nil {
			return "", fmt.Errorf("ошибка чтения образца %s: %w", s.Filename, err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("ошибка формирования запроса: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/voices/add", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения ответа ElevenLabs: %w", err)
	}
	voiceID := gjson.GetBytes(data, "voice_id").String()
	if voiceID == "" {
		return "", errors.New("ElevenLabs не вернул voice_id")
	}
	c.logger.Info("Голос клонирован", zap.String("voice_id", voiceID), zap.Int("samples", len(samples)))
	return voiceID, nil
}

// DeleteVoice удаляет голос у провайдера. Для отсутствующего голоса возвращает ErrVoiceNotFound.
func (c *Client) DeleteVoice(ctx context.Context, voiceID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/v1/voices/"+url.PathEscape(voiceID), nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return ErrVoiceNotFound
		}
		return err
	}
	_ = resp.Body.Close()
	return nil
}

// TextToSpeech синтезирует речь голосом voiceID. Возвращает поток audio/mpeg,
// который вызывающий обязан закрыть.
func (c *Client) TextToSpeech(ctx context.Context, voiceID, text string) (io.ReadCloser, error) {
	payload, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": c.modelID,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка формирования запроса: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost,
		"/v1/text-to-speech/"+url.PathEscape(voiceID), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.do(req)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrVoiceNotFound
		}
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса к ElevenLabs: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	return req, nil
}

// do выполняет запрос и превращает ответ не 2xx в *APIError.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса к ElevenLabs: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	c.logger.Warn("ElevenLabs вернул ошибку",
		zap.String("path", req.URL.Path), zap.Int("status", resp.StatusCode), zap.String("message", apiErr.Message))
	return nil, apiErr
}

// errorMessage достает текст ошибки из ответа: {"detail":{"message":...}} или {"detail":"..."}.
func errorMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "detail.message"); msg.Exists() {
		return msg.String()
	}
	if detail := gjson.GetBytes(body, "detail"); detail.Type == gjson.String {
		return detail.String()
	}
	return strings.TrimSpace(string(body))
}
