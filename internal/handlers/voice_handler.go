package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/services"
	"github.com/maynagashev/flowkeeper/models"
)

const (
	// multipartMemory - сколько формы держать в памяти, остальное уходит во временные файлы.
	multipartMemory = 32 << 20
	// multipartOverhead - запас на поля формы и разделители.
	multipartOverhead = 1 << 20
)

// VoiceHandler - голосовые заметки и клоны голоса.
type VoiceHandler struct {
	notes  services.VoiceNoteService
	clones services.VoiceCloneService
	logger *zap.Logger
}

// NewVoiceHandler создает новый экземпляр VoiceHandler.
func NewVoiceHandler(notes services.VoiceNoteService, clones services.VoiceCloneService, logger *zap.Logger) *VoiceHandler {
	return &VoiceHandler{notes: notes, clones: clones, logger: logger.Named("voice_handler")}
}

// parseMultipart разбирает форму с ограничением на общий размер тела.
func (h *VoiceHandler) parseMultipart(w http.ResponseWriter, r *http.Request, limit int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "файл слишком большой")
			return false
		}
		writeError(w, http.StatusBadRequest, "ожидается multipart/form-data")
		return false
	}
	return true
}

// fileUpload открывает файл формы. Закрыть его должен вызывающий.
func fileUpload(fh *multipart.FileHeader) (services.FileUpload, io.Closer, error) {
	f, err := fh.Open()
	if err != nil {
		return services.FileUpload{}, nil, err
	}
	return services.FileUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Data:        f,
	}, f, nil
}

func (h *VoiceHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	notes, err := h.notes.List(r.Context(), uid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *VoiceHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	note, err := h.notes.Get(r.Context(), uid, id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote принимает форму с полями audio, title, duration и transcribe.
func (h *VoiceHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	if !h.parseMultipart(w, r, services.MaxAudioSize) {
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["audio"]
	if len(files) != 1 {
		writeError(w, http.StatusBadRequest, "нужен ровно один файл audio")
		return
	}
	in := services.CreateVoiceNoteInput{Title: strings.TrimSpace(r.FormValue("title"))}
	if raw := r.FormValue("duration"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "duration должен быть неотрицательным числом")
			return
		}
		in.DurationSeconds = d
	}
	if raw := r.FormValue("transcribe"); raw != "" {
		t, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "transcribe должен быть true или false")
			return
		}
		in.Transcribe = t
	}

	upload, closer, err := fileUpload(files[0])
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	defer closer.Close()
	in.Audio = upload

	note, err := h.notes.Create(r.Context(), uid, in)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// NoteAudio отдает аудиофайл заметки.
func (h *VoiceHandler) NoteAudio(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	note, rc, err := h.notes.OpenAudio(r.Context(), uid, id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", note.ContentType)
	if note.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(note.SizeBytes, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err = io.Copy(w, rc); err != nil {
		h.logger.Warn("Ошибка отправки аудио", zap.Int64("note_id", id), zap.Error(err))
	}
}

func (h *VoiceHandler) AnalyzeNote(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	note, err := h.notes.Analyze(r.Context(), uid, id)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *VoiceHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.notes.Delete(r.Context(), uid, id); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *VoiceHandler) ListClones(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	clones, err := h.clones.List(r.Context(), uid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, clones)
}

// CreateClone принимает форму с полями name, description и файлами samples.
func (h *VoiceHandler) CreateClone(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	if !h.parseMultipart(w, r, services.MaxVoiceSamples*services.MaxAudioSize) {
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["samples"]
	if len(headers) > services.MaxVoiceSamples {
		writeError(w, http.StatusBadRequest, "слишком много образцов")
		return
	}
	in := services.CreateVoiceCloneInput{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	for _, fh := range headers {
		upload, closer, err := fileUpload(fh)
		if err != nil {
			handleServiceError(w, h.logger, err)
			return
		}
		defer closer.Close()
		in.Samples = append(in.Samples, upload)
	}

	clone, err := h.clones.Create(r.Context(), uid, in)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, clone)
}

func (h *VoiceHandler) DeleteClone(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.clones.Delete(r.Context(), uid, id); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Speak синтезирует речь голосом клона и отдает audio/mpeg потоком.
func (h *VoiceHandler) Speak(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.SpeakRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	rc, err := h.clones.Speak(r.Context(), uid, id, req.Text)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	if _, err = io.Copy(w, rc); err != nil {
		h.logger.Warn("Ошибка отправки синтезированной речи", zap.Int64("clone_id", id), zap.Error(err))
	}
}
