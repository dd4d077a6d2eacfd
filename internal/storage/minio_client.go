package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const minioNoSuchKey = "NoSuchKey"

// MinioClient реализует FileStorage для MinIO/S3.
type MinioClient struct {
	client     *minio.Client
	bucketName string
	logger     *zap.Logger
}

// MinioConfig содержит параметры для подключения к MinIO.
type MinioConfig struct {
	Endpoint        string // Адрес MinIO (например, "localhost:9000")
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BucketName      string
	Region          string
}

// NewMinioClient создает клиент MinIO и при необходимости создает бакет.
func NewMinioClient(ctx context.Context, cfg MinioConfig, logger *zap.Logger) (*MinioClient, error) {
	logger = logger.Named("minio")
	logger.Info("Инициализация клиента MinIO", zap.String("endpoint", cfg.Endpoint))

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации клиента MinIO: %w", err)
	}

	exists, err := minioClient.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки существования бакета '%s': %w", cfg.BucketName, err)
	}
	if !exists {
		logger.Info("Бакет не найден, создаем", zap.String("bucket", cfg.BucketName))
		err = minioClient.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region})
		if err != nil {
			return nil, fmt.Errorf("ошибка создания бакета '%s': %w", cfg.BucketName, err)
		}
	}

	logger.Info("Клиент MinIO инициализирован", zap.String("bucket", cfg.BucketName))
	return &MinioClient{client: minioClient, bucketName: cfg.BucketName, logger: logger}, nil
}

// UploadFile загружает файл в MinIO.
func (c *MinioClient) UploadFile(
	ctx context.Context,
	objectKey string,
	reader io.Reader,
	size int64,
	contentType string,
) error {
	info, err := c.client.PutObject(ctx, c.bucketName, objectKey, reader, size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		c.logger.Error("Ошибка загрузки файла", zap.String("key", objectKey), zap.Error(err))
		return fmt.Errorf("ошибка загрузки файла в MinIO: %w", err)
	}
	c.logger.Debug("Файл загружен",
		zap.String("key", objectKey), zap.Int64("size", info.Size), zap.String("etag", info.ETag))
	return nil
}

// DownloadFile скачивает файл из MinIO.
func (c *MinioClient) DownloadFile(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	object, err := c.client.GetObject(ctx, c.bucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, c.translate(objectKey, err)
	}
	// GetObject ленивый: отсутствие объекта обнаруживается только при Stat/Read
	if _, err = object.Stat(); err != nil {
		_ = object.Close()
		return nil, c.translate(objectKey, err)
	}
	return object, nil
}

// DeleteFile удаляет объект. S3 не сообщает об отсутствии ключа при удалении.
func (c *MinioClient) DeleteFile(ctx context.Context, objectKey string) error {
	if err := c.client.RemoveObject(ctx, c.bucketName, objectKey, minio.RemoveObjectOptions{}); err != nil {
		c.logger.Error("Ошибка удаления файла", zap.String("key", objectKey), zap.Error(err))
		return fmt.Errorf("ошибка удаления файла из MinIO: %w", err)
	}
	return nil
}

// Ping проверяет доступность бакета (для /readyz).
func (c *MinioClient) Ping(ctx context.Context) error {
	if _, err := c.client.BucketExists(ctx, c.bucketName); err != nil {
		return fmt.Errorf("MinIO недоступен: %w", err)
	}
	return nil
}

func (c *MinioClient) translate(objectKey string, err error) error {
	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) && minioErr.Code == minioNoSuchKey {
		return ErrObjectNotFound
	}
	c.logger.Error("Ошибка получения файла", zap.String("key", objectKey), zap.Error(err))
	return fmt.Errorf("ошибка получения файла из MinIO: %w", err)
}
