package supabase

import (
	"context"
	"fmt"
	"io"
	"strings"

	storage_go "github.com/supabase-community/storage-go"

	"pdf-annotator/internal/domain"
)

// uploader is the part of the storage client used for exports.
type uploader interface {
	UploadFile(bucketID string, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
}

// ExportStorage implements domain.ExportStorage on a Supabase storage bucket.
type ExportStorage struct {
	storage uploader
	bucket  string
	logger  domain.Logger
}

// NewExportStorage connects to Supabase storage. It returns
// domain.ErrStorageDisabled when the URL or key is not configured.
func NewExportStorage(config domain.Config, logger domain.Logger) (*ExportStorage, error) {
	client, err := NewClient(config, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Export storage initialized", "bucket", config.GetExportBucket())
	return newExportStorage(client.Storage, config.GetExportBucket(), logger), nil
}

func newExportStorage(storage uploader, bucket string, logger domain.Logger) *ExportStorage {
	return &ExportStorage{storage: storage, bucket: bucket, logger: logger}
}

// Upload stores data under path in the export bucket, replacing any
// existing object, and returns "bucket/path".
func (s *ExportStorage) Upload(ctx context.Context, path string, data io.Reader, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path = strings.TrimPrefix(path, "/")
	upsert := true
	_, err := s.storage.UploadFile(s.bucket, path, data, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		s.logger.Error("Failed to upload export", err, "bucket", s.bucket, "path", path)
		return "", fmt.Errorf("failed to upload %s: %w", path, err)
	}

	key := s.bucket + "/" + path
	s.logger.Info("Export uploaded", "key", key)
	return key, nil
}
