package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/metrics"
	"github.com/maynagashev/flowkeeper/internal/repository"
	"github.com/maynagashev/flowkeeper/internal/storage"
	"github.com/maynagashev/flowkeeper/models"
)

// MaxAudioSize - максимальный размер аудиофайла (25 MiB, как у Whisper API).
const MaxAudioSize = 25 << 20

// CreateVoiceNoteInput - данные новой голосовой заметки.
type CreateVoiceNoteInput struct {
	Title           string
	DurationSeconds int
	Transcribe      bool
	Audio           FileUpload
}

// VoiceNoteService - голосовые заметки.
type VoiceNoteService interface {
	List(ctx context.Context, userID int64) ([]models.VoiceNote, error)
	Get(ctx context.Context, userID, id int64) (*models.VoiceNote, error)
	Create(ctx context.Context, userID int64, in CreateVoiceNoteInput) (*models.VoiceNote, error)
	// OpenAudio возвращает аудио заметки. Вызывающий обязан закрыть io.ReadCloser.
	OpenAudio(ctx context.Context, userID, id int64) (*models.VoiceNote, io.ReadCloser, error)
	Analyze(ctx context.Context, userID, id int64) (*models.VoiceNote, error)
	Delete(ctx context.Context, userID, id int64) error
}

var _ VoiceNoteService = (*voiceNoteService)(nil)

type voiceNoteService struct {
	repo        repository.VoiceNoteRepository
	files       storage.FileStorage
	transcriber Transcriber
	insights    InsightsGenerator
	logger      *zap.Logger
}

// NewVoiceNoteService создает сервис голосовых заметок.
// transcriber и insights могут быть nil, если OpenAI не настроен.
func NewVoiceNoteService(
	repo repository.VoiceNoteRepository,
	files storage.FileStorage,
	transcriber Transcriber,
	insights InsightsGenerator,
	logger *zap.Logger,
) VoiceNoteService {
	return &voiceNoteService{
		repo:        repo,
		files:       files,
		transcriber: transcriber,
		insights:    insights,
		logger:      logger.Named("voice_notes"),
	}
}

func (s *voiceNoteService) List(ctx context.Context, userID int64) ([]models.VoiceNote, error) {
	notes, err := s.repo.ListVoiceNotes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения заметок: %w", err)
	}
	return notes, nil
}

func (s *voiceNoteService) Get(ctx context.Context, userID, id int64) (*models.VoiceNote, error) {
	n, err := s.repo.GetVoiceNote(ctx, userID, id)
	if err != nil {
		return nil, translate(err, "ошибка получения заметки")
	}
	return n, nil
}

// Create сохраняет аудио в хранилище, затем запись в БД.
// Если запись не создалась, загруженный объект удаляется.
func (s *voiceNoteService) Create(
	ctx context.Context,
	userID int64,
	in CreateVoiceNoteInput,
) (*models.VoiceNote, error) {
	if err := validateAudio(in.Audio); err != nil {
		return nil, err
	}
	if in.DurationSeconds < 0 {
		return nil, validationError("длительность не может быть отрицательной")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSuffix(in.Audio.Filename, path.Ext(in.Audio.Filename))
	}
	key := objectKey("voice-notes", userID, in.Audio.Filename)

	if err := s.files.UploadFile(ctx, key, in.Audio.Data, in.Audio.Size, in.Audio.ContentType); err != nil {
		return nil, fmt.Errorf("ошибка загрузки аудио: %w", err)
	}

	note := &models.VoiceNote{
		UserID:          userID,
		Title:           title,
		ObjectKey:       key,
		ContentType:     in.Audio.ContentType,
		SizeBytes:       in.Audio.Size,
		DurationSeconds: in.DurationSeconds,
	}
	if _, err := s.repo.CreateVoiceNote(ctx, note); err != nil {
		s.removeObject(ctx, key)
		return nil, fmt.Errorf("ошибка создания заметки: %w", err)
	}
	s.logger.Info("Голосовая заметка создана", zap.Int64("user_id", userID), zap.Int64("note_id", note.ID))

	if in.Transcribe && s.transcriber != nil {
		if _, err := in.Audio.Data.Seek(0, io.SeekStart); err != nil {
			s.logger.Warn("Не удалось перемотать аудио для расшифровки", zap.Error(err))
			return note, nil
		}
		if err := s.analyze(ctx, note, in.Audio.Data); err != nil {
			// Заметка уже сохранена, расшифровку можно повторить позже
			s.logger.Warn("Не удалось расшифровать заметку", zap.Int64("note_id", note.ID), zap.Error(err))
		}
	}
	return note, nil
}

func (s *voiceNoteService) OpenAudio(
	ctx context.Context,
	userID, id int64,
) (*models.VoiceNote, io.ReadCloser, error) {
	note, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.files.DownloadFile(ctx, note.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.logger.Error("Аудио заметки отсутствует в хранилище", zap.Int64("note_id", id))
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("ошибка скачивания аудио: %w", err)
	}
	return note, rc, nil
}

// Analyze заново расшифровывает заметку и генерирует анализ.
func (s *voiceNoteService) Analyze(ctx context.Context, userID, id int64) (*models.VoiceNote, error) {
	if s.transcriber == nil {
		return nil, ErrIntegrationDisabled
	}
	note, rc, err := s.OpenAudio(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	if err = s.analyze(ctx, note, rc); err != nil {
		return nil, err
	}
	return note, nil
}

// Delete удаляет запись, затем объект. Ошибка удаления объекта только логируется.
func (s *voiceNoteService) Delete(ctx context.Context, userID, id int64) error {
	note, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err = s.repo.DeleteVoiceNote(ctx, userID, id); err != nil {
		return translate(err, "ошибка удаления заметки")
	}
	s.removeObject(ctx, note.ObjectKey)
	return nil
}

// analyze расшифровывает аудио, анализирует текст и сохраняет результат.
func (s *voiceNoteService) analyze(ctx context.Context, note *models.VoiceNote, audio io.Reader) error {
	text, err := s.transcriber.Transcribe(ctx, path.Base(note.ObjectKey), audio)
	if err != nil {
		return fmt.Errorf("%w: ошибка расшифровки: %w", ErrUpstream, err)
	}
	note.Transcription = &text

	if s.insights != nil && strings.TrimSpace(text) != "" {
		insights, aErr := s.insights.Analyze(ctx, text)
		metrics.IncrementInsights("voice_note", aErr)
		if aErr != nil {
			// Расшифровку сохраняем и без анализа
			s.logger.Warn("Ошибка анализа расшифровки", zap.Int64("note_id", note.ID), zap.Error(aErr))
		} else {
			note.AIInsights = insights
		}
	}

	if err = s.repo.UpdateVoiceNoteAnalysis(ctx, note.UserID, note.ID, note.Transcription, note.AIInsights); err != nil {
		return fmt.Errorf("ошибка сохранения расшифровки: %w", err)
	}
	return nil
}

func (s *voiceNoteService) removeObject(ctx context.Context, key string) {
	if err := s.files.DeleteFile(ctx, key); err != nil {
		s.logger.Warn("Не удалось удалить объект", zap.String("key", key), zap.Error(err))
	}
}

func validateAudio(f FileUpload) error {
	if f.Data == nil || f.Size == 0 {
		return validationError("аудиофайл пуст")
	}
	if f.Size > MaxAudioSize {
		return fmt.Errorf("%w: аудиофайл больше %d MiB", ErrTooLarge, MaxAudioSize>>20)
	}
	if !strings.HasPrefix(f.ContentType, "audio/") {
		return validationError("ожидается аудиофайл, получен %q", f.ContentType)
	}
	return nil
}

// objectKey строит ключ объекта вида prefix/{userID}/{uuid}{ext}.
func objectKey(prefix string, userID int64, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("%s/%d/%s%s", prefix, userID, uuid.NewString(), ext)
}
