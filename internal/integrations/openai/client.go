// Package openai анализирует тексты дневника и расшифровывает голосовые заметки через OpenAI.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gopenai "github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/models"
)

// maxInputRunes ограничивает длину текста, отправляемого на анализ.
const maxInputRunes = 12000

const insightsPrompt = `You are a supportive wellbeing assistant. Analyze the user's text and reply
with a JSON object with exactly these keys:
"summary" (one or two sentences), "themes" (array of up to 5 short strings),
"sentiment" (one of "positive", "neutral", "negative", "mixed"),
"suggestion" (one gentle, practical suggestion).
Reply in the language of the text.`

// ErrEmptyResponse - модель вернула пустой или некорректный ответ.
var ErrEmptyResponse = errors.New("пустой ответ модели")

// Config - параметры клиента OpenAI.
type Config struct {
	APIKey          string
	Model           string
	TranscribeModel string
	// BaseURL переопределяет адрес API (для тестов и совместимых провайдеров).
	BaseURL string
}

// Client - клиент OpenAI.
type Client struct {
	api             *gopenai.Client
	model           string
	transcribeModel string
	logger          *zap.Logger
}

// NewClient создает клиент OpenAI.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	apiCfg := gopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:             gopenai.NewClientWithConfig(apiCfg),
		model:           cfg.Model,
		transcribeModel: cfg.TranscribeModel,
		logger:          logger.Named("openai"),
	}
}

// Analyze возвращает краткую сводку, темы, тональность и совет по тексту.
func (c *Client) Analyze(ctx context.Context, text string) (*models.Insights, error) {
	if r := []rune(text); len(r) > maxInputRunes {
		text = string(r[:maxInputRunes])
	}

	resp, err := c.api.CreateChatCompletion(ctx, gopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []gopenai.ChatCompletionMessage{
			{Role: gopenai.ChatMessageRoleSystem, Content: insightsPrompt},
			{Role: gopenai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &gopenai.ChatCompletionResponseFormat{
			Type: gopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.4,
	})
	if err != nil {
		c.logger.Warn("Ошибка запроса анализа текста", zap.Error(err))
		return nil, fmt.Errorf("ошибка запроса к OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	return parseInsights(resp.Choices[0].Message.Content)
}

// Transcribe расшифровывает аудиозапись в текст.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, gopenai.AudioRequest{
		Model:    c.transcribeModel,
		FilePath: filename,
		Reader:   audio,
	})
	if err != nil {
		c.logger.Warn("Ошибка расшифровки аудио", zap.String("file", filename), zap.Error(err))
		return "", fmt.Errorf("ошибка расшифровки в OpenAI: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// parseInsights разбирает JSON-ответ модели. Лишние поля игнорируются, недостающие остаются пустыми.
func parseInsights(content string) (*models.Insights, error) {
	content = strings.TrimSpace(content)
	if content == "" || !gjson.Valid(content) {
		return nil, ErrEmptyResponse
	}

	res := gjson.Parse(content)
	ins := &models.Insights{
		Summary:    res.Get("summary").String(),
		Sentiment:  strings.ToLower(res.Get("sentiment").String()),
		Suggestion: res.Get("suggestion").String(),
		Themes:     []string{},
	}
	for _, theme := range res.Get("themes").Array() {
		if s := strings.TrimSpace(theme.String()); s != "" {
			ins.Themes = append(ins.Themes, s)
		}
	}
	if ins.Summary == "" && len(ins.Themes) == 0 {
		return nil, ErrEmptyResponse
	}
	return ins, nil
}
