package services_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maynagashev/flowkeeper/internal/integrations/elevenlabs"
	"github.com/maynagashev/flowkeeper/internal/repository"
	"github.com/maynagashev/flowkeeper/internal/services"
	"github.com/maynagashev/flowkeeper/internal/storage"
	"github.com/maynagashev/flowkeeper/models"
)

func audioUpload(name, contentType, data string) services.FileUpload {
	return services.FileUpload{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        bytes.NewReader([]byte(data)),
	}
}

func TestVoiceNoteService_CreateAndTranscribe(t *testing.T) {
	env := newTestEnv(t)
	files := storage.NewMemoryStorage()
	transcriber := new(mockTranscriber)
	insights := new(mockInsights)
	svc := services.NewVoiceNoteService(env.repos.VoiceNotes, files, transcriber, insights, env.logger)
	ctx := context.Background()
	userID := env.createUser(t, "voice@example.com", "UTC")

	transcriber.On("Transcribe", ctx, mock.AnythingOfType("string"), "RIFF-audio").Return("привет мир", nil).Once()
	insights.On("Analyze", ctx, "привет мир").Return(&models.Insights{Summary: "приветствие"}, nil).Once()

	note, err := svc.Create(ctx, userID, services.CreateVoiceNoteInput{
		DurationSeconds: 12,
		Transcribe:      true,
		Audio:           audioUpload("Morning.WAV", "audio/wav", "RIFF-audio"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Morning", note.Title, "без заголовка используется имя файла")
	assert.True(t, strings.HasPrefix(note.ObjectKey, "voice-notes/"))
	assert.True(t, strings.HasSuffix(note.ObjectKey, ".wav"))
	assert.True(t, files.Has(note.ObjectKey))
	require.NotNil(t, note.Transcription)
	assert.Equal(t, "привет мир", *note.Transcription)

	stored, err := svc.Get(ctx, userID, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "приветствие", stored.AIInsights.Summary)

	_, rc, err := svc.OpenAudio(ctx, userID, note.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "RIFF-audio", string(data))

	require.NoError(t, svc.Delete(ctx, userID, note.ID))
	assert.False(t, files.Has(note.ObjectKey), "объект удаляется вместе с записью")
	transcriber.AssertExpectations(t)
	insights.AssertExpectations(t)
}

func TestVoiceNoteService_TranscriptionFailureKeepsNote(t *testing.T) {
	env := newTestEnv(t)
	transcriber := new(mockTranscriber)
	svc := services.NewVoiceNoteService(env.repos.VoiceNotes, storage.NewMemoryStorage(), transcriber, nil, env.logger)
	ctx := context.Background()
	userID := env.createUser(t, "voice@example.com", "UTC")

	transcriber.On("Transcribe", ctx, mock.Anything, mock.Anything).Return("", errors.New("timeout")).Once()

	note, err := svc.Create(ctx, userID, services.CreateVoiceNoteInput{
		Title:      "Идея",
		Transcribe: true,
		Audio:      audioUpload("idea.mp3", "audio/mpeg", "ID3"),
	})
	require.NoError(t, err)
	assert.Nil(t, note.Transcription)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// failingAnalysisRepo отказывает при сохранении расшифровки.
type failingAnalysisRepo struct {
	repository.VoiceNoteRepository
}

func (failingAnalysisRepo) UpdateVoiceNoteAnalysis(
	context.Context, int64, int64, *string, *models.Insights,
) error {
	return errors.New("pq: connection reset")
}

func TestVoiceNoteService_AnalyzeErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name          string
		transcribeErr error
		failSave      bool
		wantUpstream  bool
	}{
		{name: "Сбой расшифровки", transcribeErr: errors.New("timeout"), wantUpstream: true},
		{name: "Сбой сохранения", failSave: true, wantUpstream: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			userID := env.createUser(t, "voice@example.com", "UTC")
			files := storage.NewMemoryStorage()

			var repo repository.VoiceNoteRepository = env.repos.VoiceNotes
			if tt.failSave {
				repo = failingAnalysisRepo{VoiceNoteRepository: env.repos.VoiceNotes}
			}
			transcriber := new(mockTranscriber)
			transcriber.On("Transcribe", ctx, mock.Anything, "ID3").Return("текст", tt.transcribeErr).Once()
			svc := services.NewVoiceNoteService(repo, files, transcriber, nil, env.logger)

			note, err := svc.Create(ctx, userID, services.CreateVoiceNoteInput{
				Title: "Идея",
				Audio: audioUpload("idea.mp3", "audio/mpeg", "ID3"),
			})
			require.NoError(t, err)

			_, err = svc.Analyze(ctx, userID, note.ID)
			require.Error(t, err)
			assert.Equal(t, tt.wantUpstream, errors.Is(err, services.ErrUpstream))
			transcriber.AssertExpectations(t)
		})
	}
}

func TestVoiceNoteService_Validation(t *testing.T) {
	env := newTestEnv(t)
	svc := services.NewVoiceNoteService(env.repos.VoiceNotes, storage.NewMemoryStorage(), nil, nil, env.logger)
	ctx := context.Background()

	tests := []struct {
		name    string
		audio   services.FileUpload
		wantErr error
	}{
		{name: "Пустой файл", audio: audioUpload("a.mp3", "audio/mpeg", ""), wantErr: services.ErrValidation},
		{name: "Не аудио", audio: audioUpload("a.txt", "text/plain", "hello"), wantErr: services.ErrValidation},
		{
			name: "Слишком большой файл",
			audio: services.FileUpload{
				Filename: "a.mp3", ContentType: "audio/mpeg",
				Size: services.MaxAudioSize + 1, Data: bytes.NewReader(nil),
			},
			wantErr: services.ErrTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, 1, services.CreateVoiceNoteInput{Audio: tt.audio})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := svc.Analyze(ctx, 1, 1)
	assert.ErrorIs(t, err, services.ErrIntegrationDisabled)
}

func TestVoiceCloneService(t *testing.T) {
	ctx := context.Background()

	t.Run("ElevenLabs не настроен", func(t *testing.T) {
		env := newTestEnv(t)
		svc := services.NewVoiceCloneService(env.repos.VoiceClones, storage.NewMemoryStorage(), nil, env.logger)
		_, err := svc.Create(ctx, 1, services.CreateVoiceCloneInput{Name: "Я"})
		assert.ErrorIs(t, err, services.ErrIntegrationDisabled)
		_, err = svc.Speak(ctx, 1, 1, "текст")
		assert.ErrorIs(t, err, services.ErrIntegrationDisabled)
	})

	t.Run("Создание, синтез и удаление", func(t *testing.T) {
		env := newTestEnv(t)
		files := storage.NewMemoryStorage()
		cloner := new(mockCloner)
		svc := services.NewVoiceCloneService(env.repos.VoiceClones, files, cloner, env.logger)
		userID := env.createUser(t, "clone@example.com", "UTC")

		cloner.On("AddVoice", ctx, "Мой голос", "", mock.MatchedBy(func(s []elevenlabs.Sample) bool {
			return len(s) == 2 && s[0].Filename == "one.mp3"
		})).Return("voice_123", nil).Once()

		clone, err := svc.Create(ctx, userID, services.CreateVoiceCloneInput{
			Name: " Мой голос ",
			Samples: []services.FileUpload{
				audioUpload("one.mp3", "audio/mpeg", "sample-1"),
				audioUpload("two.mp3", "audio/mpeg", "sample-2"),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "voice_123", clone.ProviderVoiceID)
		require.Len(t, clone.SampleObjectKeys, 2)
		for _, k := range clone.SampleObjectKeys {
			assert.True(t, files.Has(k))
		}

		cloner.On("TextToSpeech", ctx, "voice_123", "Привет").
			Return(io.NopCloser(strings.NewReader("mp3")), nil).Once()
		rc, err := svc.Speak(ctx, userID, clone.ID, "  Привет ")
		require.NoError(t, err)
		_ = rc.Close()

		_, err = svc.Speak(ctx, userID, clone.ID, strings.Repeat("а", services.MaxSpeakLength+1))
		assert.ErrorIs(t, err, services.ErrValidation)

		// Голос уже удален у провайдера
		cloner.On("DeleteVoice", ctx, "voice_123").Return(elevenlabs.ErrVoiceNotFound).Once()
		require.NoError(t, svc.Delete(ctx, userID, clone.ID))
		for _, k := range clone.SampleObjectKeys {
			assert.False(t, files.Has(k))
		}
		list, err := svc.List(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, list)
		cloner.AssertExpectations(t)
	})

	t.Run("Ошибка провайдера удаляет загруженные образцы", func(t *testing.T) {
		env := newTestEnv(t)
		files := storage.NewMemoryStorage()
		cloner := new(mockCloner)
		svc := services.NewVoiceCloneService(env.repos.VoiceClones, files, cloner, env.logger)

		var uploaded []elevenlabs.Sample
		cloner.On("AddVoice", ctx, "Голос", "", mock.Anything).
			Run(func(args mock.Arguments) { uploaded = args.Get(3).([]elevenlabs.Sample) }).
			Return("", &elevenlabs.APIError{StatusCode: 400, Message: "bad sample"}).Once()

		_, err := svc.Create(ctx, 1, services.CreateVoiceCloneInput{
			Name:    "Голос",
			Samples: []services.FileUpload{audioUpload("one.mp3", "audio/mpeg", "sample")},
		})
		assert.ErrorIs(t, err, services.ErrUpstream)
		assert.Len(t, uploaded, 1)
		list, err := svc.List(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("Количество образцов", func(t *testing.T) {
		env := newTestEnv(t)
		svc := services.NewVoiceCloneService(env.repos.VoiceClones, storage.NewMemoryStorage(), new(mockCloner), env.logger)
		samples := make([]services.FileUpload, services.MaxVoiceSamples+1)
		for i := range samples {
			samples[i] = audioUpload("s.mp3", "audio/mpeg", "x")
		}
		_, err := svc.Create(ctx, 1, services.CreateVoiceCloneInput{Name: "Голос", Samples: samples})
		assert.ErrorIs(t, err, services.ErrValidation)
		_, err = svc.Create(ctx, 1, services.CreateVoiceCloneInput{Name: "Голос"})
		assert.ErrorIs(t, err, services.ErrValidation)
	})
}
