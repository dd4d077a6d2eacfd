package models

import (
	"time"

	"github.com/lib/pq"
)

// VoiceNote - голосовая заметка. Сам аудиофайл лежит в объектном хранилище.
type VoiceNote struct {
	ID              int64     `db:"id" json:"id"`
	UserID          int64     `db:"user_id" json:"userId"`
	Title           string    `db:"title" json:"title"`
	ObjectKey       string    `db:"object_key" json:"-"`
	ContentType     string    `db:"content_type" json:"contentType"`
	SizeBytes       int64     `db:"size_bytes" json:"sizeBytes"`
	DurationSeconds int       `db:"duration_seconds" json:"durationSeconds"`
	Transcription   *string   `db:"transcription" json:"transcription,omitempty"`
	AIInsights      *Insights `db:"ai_insights" json:"aiInsights,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// VoiceClone - профиль синтетического голоса у внешнего провайдера (ElevenLabs).
type VoiceClone struct {
	ID               int64          `db:"id" json:"id"`
	UserID           int64          `db:"user_id" json:"userId"`
	Name             string         `db:"name" json:"name"`
	Description      string         `db:"description" json:"description"`
	ProviderVoiceID  string         `db:"provider_voice_id" json:"providerVoiceId"`
	SampleObjectKeys pq.StringArray `db:"sample_object_keys" json:"-"`
	CreatedAt        time.Time      `db:"created_at" json:"createdAt"`
}

// SpeakRequest - тело запроса на синтез речи.
type SpeakRequest struct {
	Text string `json:"text" validate:"required,max=2500"`
}
