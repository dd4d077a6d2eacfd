// Package handlers содержит HTTP-обработчики API и таблицу маршрутов.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/middleware"
	"github.com/maynagashev/flowkeeper/internal/services"
	"github.com/maynagashev/flowkeeper/models"
)

// maxJSONBody - ограничение размера JSON-тела запроса.
const maxJSONBody = 1 << 20

var errBadRequest = errors.New("некорректный запрос")

// validate проверяет DTO по тегам validate. Имена полей в ошибках берутся из тегов json.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: http.StatusText(status), Message: message})
}

// decodeJSON читает тело запроса в dst и проверяет его валидатором.
// Возвращает ошибку, текст которой можно показать клиенту.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: пустое тело запроса", errBadRequest)
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: тело запроса больше %d KiB", services.ErrTooLarge, maxJSONBody>>10)
		default:
			return fmt.Errorf("%w: неверный JSON: %s", errBadRequest, err.Error())
		}
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", errBadRequest, validationMessage(err))
	}
	return nil
}

// validationMessage переводит ошибки валидатора в короткий текст.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Field() + ": " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		parts = append(parts, msg)
	}
	return "ошибка валидации полей " + strings.Join(parts, ", ")
}

// handleServiceError отвечает статусом, соответствующим ошибке сервиса.
// Текст внутренних ошибок клиенту не отдается.
func handleServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, services.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrUpstream):
		logger.Warn("Ошибка внешнего сервиса", zap.Error(err))
		writeError(w, http.StatusBadGateway, services.ErrUpstream.Error())
	case errors.Is(err, services.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, services.ErrIntegrationDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		logger.Error("Внутренняя ошибка", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
	}
}

// userID достает ID пользователя, положенный middleware.Authenticator.
func userID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (int64, bool) {
	id, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		logger.Error("Не удалось получить userID из контекста", zap.String("path", r.URL.Path))
		writeError(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
	}
	return id, ok
}

// pathID разбирает положительный int64 из параметра маршрута.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "некорректный идентификатор "+name)
		return 0, false
	}
	return id, true
}

// queryInt разбирает необязательный целочисленный параметр запроса. Пустой означает 0.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "параметр "+name+" должен быть числом")
		return 0, false
	}
	return v, true
}
