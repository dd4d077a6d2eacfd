package services

import (
	"errors"
	"fmt"
)

// Кастомные ошибки сервисов. Обработчики переводят их в HTTP-статусы.
var (
	ErrNotFound            = errors.New("не найдено")
	ErrEmailTaken          = errors.New("email уже зарегистрирован")
	ErrInvalidCredentials  = errors.New("неверный email или пароль")
	ErrIntegrationDisabled = errors.New("интеграция не настроена")
	ErrForbidden           = errors.New("действие запрещено")
	ErrValidation          = errors.New("некорректные данные")
	ErrUpstream            = errors.New("ошибка внешнего сервиса")
	ErrTooLarge            = errors.New("слишком большой объем данных")
)

// validationError оборачивает ErrValidation с пояснением для клиента.
func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
