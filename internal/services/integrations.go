package services

import (
	"context"
	"io"

	"github.com/maynagashev/flowkeeper/internal/integrations/elevenlabs"
	"github.com/maynagashev/flowkeeper/internal/integrations/stripe"
	"github.com/maynagashev/flowkeeper/models"
)

// InsightsGenerator анализирует текст языковой моделью.
type InsightsGenerator interface {
	Analyze(ctx context.Context, text string) (*models.Insights, error)
}

// Transcriber расшифровывает аудио в текст.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// VoiceCloner клонирует голос и синтезирует речь.
type VoiceCloner interface {
	AddVoice(ctx context.Context, name, description string, samples []elevenlabs.Sample) (string, error)
	DeleteVoice(ctx context.Context, voiceID string) error
	TextToSpeech(ctx context.Context, voiceID, text string) (io.ReadCloser, error)
}

// BillingProvider - платежный провайдер.
type BillingProvider interface {
	CreateCustomer(ctx context.Context, userID int64, email, name string) (string, error)
	CreatePaymentIntent(ctx context.Context, customerID string, amount int64, currency string) (*stripe.PaymentIntent, error)
	CreateSubscription(ctx context.Context, customerID, priceID string) (*stripe.Subscription, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
	ParseWebhook(payload []byte, signature string) (*stripe.WebhookEvent, error)
}

// FileUpload - загруженный клиентом файл.
type FileUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        io.ReadSeeker
}
