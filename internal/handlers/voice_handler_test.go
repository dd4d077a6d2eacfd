package handlers_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/handlers"
	"github.com/maynagashev/flowkeeper/internal/middleware"
	"github.com/maynagashev/flowkeeper/internal/services"
	"github.com/maynagashev/flowkeeper/models"
)

// MockVoiceCloneService - мок VoiceCloneService.
type MockVoiceCloneService struct {
	mock.Mock
}

func (m *MockVoiceCloneService) List(ctx context.Context, userID int64) ([]models.VoiceClone, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.VoiceClone), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockVoiceCloneService) Create(
	ctx context.Context, userID int64, in services.CreateVoiceCloneInput,
) (*models.VoiceClone, error) {
	// Имена и содержимое образцов сохраняются до закрытия файлов формы.
	samples := make([]string, 0, len(in.Samples))
	for _, s := range in.Samples {
		data, _ := io.ReadAll(s.Data)
		samples = append(samples, s.Filename+":"+s.ContentType+":"+string(data))
	}
	args := m.Called(ctx, userID, in.Name, in.Description, samples)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VoiceClone), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func (m *MockVoiceCloneService) Delete(ctx context.Context, userID, id int64) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockVoiceCloneService) Speak(ctx context.Context, userID, id int64, text string) (io.ReadCloser, error) {
	args := m.Called(ctx, userID, id, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1) //nolint:errcheck // Acceptable for mocks
}

func cloneForm(t *testing.T, name string, samples map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", name))
	require.NoError(t, mw.WriteField("description", "Спокойный голос"))
	for filename, data := range samples {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="samples"; filename="`+filename+`"`)
		h.Set("Content-Type", "audio/wav")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(data))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func serveVoice(clones services.VoiceCloneService, req *http.Request) *httptest.ResponseRecorder {
	handler := handlers.NewVoiceHandler(nil, clones, zap.NewNop())
	router := chi.NewRouter()
	router.Post("/api/voice-clones", handler.CreateClone)
	router.Post("/api/voice-clones/{id}/speak", handler.Speak)

	req = req.WithContext(middleware.WithUserID(req.Context(), 1))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestVoiceHandler_CreateClone(t *testing.T) {
	tests := []struct {
		name       string
		samples    map[string]string
		mockErr    error
		wantStatus int
	}{
		{name: "Успех", samples: map[string]string{"a.wav": "RIFF"}, wantStatus: http.StatusCreated},
		{name: "ElevenLabs недоступен", samples: map[string]string{"a.wav": "RIFF"},
			mockErr: services.ErrUpstream, wantStatus: http.StatusBadGateway},
		{name: "Интеграция выключена", samples: map[string]string{"a.wav": "RIFF"},
			mockErr: services.ErrIntegrationDisabled, wantStatus: http.StatusServiceUnavailable},
		{name: "Слишком много образцов", samples: map[string]string{
			"1.wav": "1", "2.wav": "2", "3.wav": "3", "4.wav": "4", "5.wav": "5", "6.wav": "6",
		}, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockVoiceCloneService)
			if len(tt.samples) <= services.MaxVoiceSamples {
				var clone *models.VoiceClone
				if tt.mockErr == nil {
					clone = &models.VoiceClone{ID: 5, UserID: 1, Name: "Мой голос", ProviderVoiceID: "v1"}
				}
				mockService.On("Create", mock.Anything, int64(1), "Мой голос", "Спокойный голос",
					[]string{"a.wav:audio/wav:RIFF"}).Return(clone, tt.mockErr)
			}

			body, contentType := cloneForm(t, " Мой голос ", tt.samples)
			req := httptest.NewRequest(http.MethodPost, "/api/voice-clones", body)
			req.Header.Set("Content-Type", contentType)
			rr := serveVoice(mockService, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestVoiceHandler_CreateCloneNotMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/voice-clones", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := serveVoice(new(MockVoiceCloneService), req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVoiceHandler_Speak(t *testing.T) {
	mockService := new(MockVoiceCloneService)
	mockService.On("Speak", mock.Anything, int64(1), int64(5), "Привет").
		Return(io.NopCloser(strings.NewReader("mp3-bytes")), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/voice-clones/5/speak", strings.NewReader(`{"text":"Привет"}`))
	rr := serveVoice(mockService, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "audio/mpeg", rr.Header().Get("Content-Type"))
	assert.Equal(t, "mp3-bytes", rr.Body.String())
	mockService.AssertExpectations(t)

	req = httptest.NewRequest(http.MethodPost, "/api/voice-clones/5/speak",
		strings.NewReader(`{"text":"`+strings.Repeat("а", 2501)+`"}`))
	rr = serveVoice(mockService, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
