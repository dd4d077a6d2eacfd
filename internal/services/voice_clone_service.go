package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/integrations/elevenlabs"
	"github.com/maynagashev/flowkeeper/internal/repository"
	"github.com/maynagashev/flowkeeper/internal/storage"
	"github.com/maynagashev/flowkeeper/models"
)

// Ограничения на образцы голоса.
const (
	MaxVoiceSamples = 5
	MaxSpeakLength  = 2500
)

// CreateVoiceCloneInput - данные для клонирования голоса.
type CreateVoiceCloneInput struct {
	Name        string
	Description string
	Samples     []FileUpload
}

// VoiceCloneService - клоны голоса и синтез речи.
type VoiceCloneService interface {
	List(ctx context.Context, userID int64) ([]models.VoiceClone, error)
	Create(ctx context.Context, userID int64, in CreateVoiceCloneInput) (*models.VoiceClone, error)
	Delete(ctx context.Context, userID, id int64) error
	// Speak возвращает поток audio/mpeg. Вызывающий обязан закрыть io.ReadCloser.
	Speak(ctx context.Context, userID, id int64, text string) (io.ReadCloser, error)
}

var _ VoiceCloneService = (*voiceCloneService)(nil)

type voiceCloneService struct {
	repo   repository.VoiceCloneRepository
	files  storage.FileStorage
	cloner VoiceCloner
	logger *zap.Logger
}

// NewVoiceCloneService создает сервис клонов голоса. cloner == nil означает,
// что ElevenLabs не настроен.
func NewVoiceCloneService(
	repo repository.VoiceCloneRepository,
	files storage.FileStorage,
	cloner VoiceCloner,
	logger *zap.Logger,
) VoiceCloneService {
	return &voiceCloneService{repo: repo, files: files, cloner: cloner, logger: logger.Named("voice_clones")}
}

func (s *voiceCloneService) List(ctx context.Context, userID int64) ([]models.VoiceClone, error) {
	clones, err := s.repo.ListVoiceClones(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения голосов: %w", err)
	}
	return clones, nil
}

// Create сохраняет образцы в хранилище, создает голос у провайдера и запись в БД.
// При ошибке загруженные образцы и созданный голос удаляются.
func (s *voiceCloneService) Create(
	ctx context.Context,
	userID int64,
	in CreateVoiceCloneInput,
) (*models.VoiceClone, error) {
	if s.cloner == nil {
		return nil, ErrIntegrationDisabled
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationError("не указано имя голоса")
	}
	if len(in.Samples) == 0 || len(in.Samples) > MaxVoiceSamples {
		return nil, validationError("нужно от 1 до %d образцов", MaxVoiceSamples)
	}
	for _, f := range in.Samples {
		if err := validateAudio(f); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(in.Samples))
	cleanup := func() {
		for _, k := range keys {
			if err := s.files.DeleteFile(ctx, k); err != nil {
				s.logger.Warn("Не удалось удалить образец", zap.String("key", k), zap.Error(err))
			}
		}
	}

	samples := make([]elevenlabs.Sample, 0, len(in.Samples))
	for _, f := range in.Samples {
		key := objectKey("voice-clones", userID, f.Filename)
		if err := s.files.UploadFile(ctx, key, f.Data, f.Size, f.ContentType); err != nil {
			cleanup()
			return nil, fmt.Errorf("ошибка загрузки образца: %w", err)
		}
		keys = append(keys, key)
		if _, err := f.Data.Seek(0, io.SeekStart); err != nil {
			cleanup()
			return nil, fmt.Errorf("ошибка чтения образца: %w", err)
		}
		samples = append(samples, elevenlabs.Sample{Filename: f.Filename, ContentType: f.ContentType, Data: f.Data})
	}

	voiceID, err := s.cloner.AddVoice(ctx, name, in.Description, samples)
	if err != nil {
		cleanup()
		s.logger.Error("Ошибка клонирования голоса", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	clone := &models.VoiceClone{
		UserID:           userID,
		Name:             name,
		Description:      strings.TrimSpace(in.Description),
		ProviderVoiceID:  voiceID,
		SampleObjectKeys: keys,
	}
	if _, err = s.repo.CreateVoiceClone(ctx, clone); err != nil {
		if dErr := s.cloner.DeleteVoice(ctx, voiceID); dErr != nil {
			s.logger.Warn("Не удалось удалить голос у провайдера", zap.String("voice_id", voiceID), zap.Error(dErr))
		}
		cleanup()
		return nil, fmt.Errorf("ошибка сохранения голоса: %w", err)
	}
	s.logger.Info("Голос создан", zap.Int64("user_id", userID), zap.Int64("clone_id", clone.ID))
	return clone, nil
}

// Delete удаляет голос у провайдера, затем запись и образцы.
// Отсутствие голоса у провайдера не считается ошибкой.
func (s *voiceCloneService) Delete(ctx context.Context, userID, id int64) error {
	if s.cloner == nil {
		return ErrIntegrationDisabled
	}
	clone, err := s.repo.GetVoiceClone(ctx, userID, id)
	if err != nil {
		return translate(err, "ошибка получения голоса")
	}
	if err = s.cloner.DeleteVoice(ctx, clone.ProviderVoiceID); err != nil &&
		!errors.Is(err, elevenlabs.ErrVoiceNotFound) {
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if err = s.repo.DeleteVoiceClone(ctx, userID, id); err != nil {
		return translate(err, "ошибка удаления голоса")
	}
	for _, k := range clone.SampleObjectKeys {
		if dErr := s.files.DeleteFile(ctx, k); dErr != nil {
			s.logger.Warn("Не удалось удалить образец", zap.String("key", k), zap.Error(dErr))
		}
	}
	return nil
}

func (s *voiceCloneService) Speak(ctx context.Context, userID, id int64, text string) (io.ReadCloser, error) {
	if s.cloner == nil {
		return nil, ErrIntegrationDisabled
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationError("текст пуст")
	}
	if len([]rune(text)) > MaxSpeakLength {
		return nil, validationError("текст длиннее %d символов", MaxSpeakLength)
	}
	clone, err := s.repo.GetVoiceClone(ctx, userID, id)
	if err != nil {
		return nil, translate(err, "ошибка получения голоса")
	}
	audio, err := s.cloner.TextToSpeech(ctx, clone.ProviderVoiceID, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return audio, nil
}
