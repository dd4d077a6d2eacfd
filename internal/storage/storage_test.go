package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maynagashev/flowkeeper/internal/storage"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	var fs storage.FileStorage = storage.NewMemoryStorage()

	require.NoError(t, fs.UploadFile(ctx, "voice-notes/1/a.webm", strings.NewReader("audio"), 5, "audio/webm"))

	rc, err := fs.DownloadFile(ctx, "voice-notes/1/a.webm")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "audio", string(data))

	require.NoError(t, fs.DeleteFile(ctx, "voice-notes/1/a.webm"))
	_, err = fs.DownloadFile(ctx, "voice-notes/1/a.webm")
	require.ErrorIs(t, err, storage.ErrObjectNotFound)

	assert.NoError(t, fs.DeleteFile(ctx, "missing"), "удаление отсутствующего объекта не ошибка")
}

func TestNewMinioClient_InvalidEndpoint(t *testing.T) {
	_, err := storage.NewMinioClient(context.Background(), storage.MinioConfig{
		Endpoint:   "http://не endpoint",
		BucketName: "flowkeeper-audio",
	}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MinIO")
}
