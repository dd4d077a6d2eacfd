// Package storage хранит аудиофайлы голосовых заметок и образцы голоса.
package storage

import (
	"context"
	"errors"
	"io"
)

// FileStorage определяет интерфейс для взаимодействия с объектным хранилищем.
type FileStorage interface {
	UploadFile(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	// DownloadFile возвращает ErrObjectNotFound, если объекта нет.
	// Вызывающий обязан закрыть io.ReadCloser.
	DownloadFile(ctx context.Context, objectKey string) (io.ReadCloser, error)
	// DeleteFile не возвращает ошибку для отсутствующего объекта.
	DeleteFile(ctx context.Context, objectKey string) error
}

// Кастомная ошибка хранилища.
var (
	ErrObjectNotFound = errors.New("объект не найден в хранилище")
)
