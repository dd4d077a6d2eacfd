package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseInsights(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		themes  []string
	}{
		{
			name:    "Полный ответ",
			content: `{"summary":"Спокойный день","themes":["работа"," сон ",""],"sentiment":"Positive","suggestion":"Прогулка"}`,
			themes:  []string{"работа", "сон"},
		},
		{
			name:    "Без тем",
			content: `{"summary":"Коротко"}`,
			themes:  []string{},
		},
		{name: "Не JSON", content: "Sure! Here is", wantErr: true},
		{name: "Пустой объект", content: "{}", wantErr: true},
		{name: "Пустая строка", content: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ins, err := parseInsights(tt.content)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrEmptyResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.themes, ins.Themes)
		})
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "sk-test", Model: "gpt-4o-mini", TranscribeModel: "whisper-1", BaseURL: srv.URL}, zap.NewNop())
}

func TestClient_Analyze(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])

		content := `{"summary":"Тревога перед дедлайном","themes":["работа"],"sentiment":"negative","suggestion":"Сделайте перерыв"}`
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []any{map[string]any{"index": 0, "finish_reason": "stop", "message": map[string]any{"role": "assistant", "content": content}}},
		})
	})

	ins, err := c.Analyze(context.Background(), "Сегодня было тяжело")
	require.NoError(t, err)
	assert.Equal(t, "Тревога перед дедлайном", ins.Summary)
	assert.Equal(t, "negative", ins.Sentiment)
	assert.Equal(t, []string{"работа"}, ins.Themes)
}

func TestClient_AnalyzeUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"rate limited","type":"requests"}}`)
	})

	_, err := c.Analyze(context.Background(), "текст")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OpenAI")
}

func TestClient_Transcribe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "note.webm", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"  Привет, это заметка. "}`)
	})

	text, err := c.Transcribe(context.Background(), "note.webm", strings.NewReader("fake audio"))
	require.NoError(t, err)
	assert.Equal(t, "Привет, это заметка.", text)
}
