// Package storage mirrors cached background clips to S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/background"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/config"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/logging"
	"github.com/therealutkarshpriyadarshi/shortforge/internal/metrics"
)

// Storage provides object storage operations
type Storage struct {
	client     *minio.Client
	bucketName string
	prefix     string
	logger     *logging.Logger
}

var _ background.Mirror = (*Storage)(nil)

// New creates a new storage client
func New(cfg config.StorageConfig, logger *logging.Logger) (*Storage, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	// Ensure bucket exists
	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{
			Region: cfg.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:     client,
		bucketName: cfg.BucketName,
		prefix:     strings.Trim(cfg.Prefix, "/"),
		logger:     logger,
	}, nil
}

// objectName maps a cache key like "nature/90s" to its object path
func (s *Storage) objectName(key string) string {
	name := strings.TrimPrefix(key, "/") + ".mp4"
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Upload stores the clip at filePath under key
func (s *Storage) Upload(ctx context.Context, key, filePath string) error {
	start := time.Now()
	object := s.objectName(key)

	info, err := s.client.FPutObject(ctx, s.bucketName, object, filePath, minio.PutObjectOptions{
		ContentType: getContentType(filePath),
	})
	if err != nil {
		metrics.RecordStorageOperation("upload", "error")
		s.logger.LogStorageOperation("upload", s.bucketName, object, 0, time.Since(start), err)
		return fmt.Errorf("failed to upload file: %w", err)
	}

	metrics.RecordStorageOperation("upload", "success")
	s.logger.LogStorageOperation("upload", s.bucketName, object, info.Size, time.Since(start), nil)
	return nil
}

// Download fetches key into filePath. It reports false without error when
// the object does not exist.
func (s *Storage) Download(ctx context.Context, key, filePath string) (bool, error) {
	start := time.Now()
	object := s.objectName(key)

	err := s.client.FGetObject(ctx, s.bucketName, object, filePath, minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			metrics.RecordStorageOperation("download", "miss")
			return false, nil
		}
		metrics.RecordStorageOperation("download", "error")
		s.logger.LogStorageOperation("download", s.bucketName, object, 0, time.Since(start), err)
		return false, fmt.Errorf("failed to download file: %w", err)
	}

	var size int64
	if fi, err := os.Stat(filePath); err == nil {
		size = fi.Size()
	}
	metrics.RecordStorageOperation("download", "success")
	s.logger.LogStorageOperation("download", s.bucketName, object, size, time.Since(start), nil)
	return true, nil
}

// Delete deletes a mirrored clip
func (s *Storage) Delete(ctx context.Context, key string) error {
	start := time.Now()
	object := s.objectName(key)

	err := s.client.RemoveObject(ctx, s.bucketName, object, minio.RemoveObjectOptions{})
	s.logger.LogStorageOperation("delete", s.bucketName, object, 0, time.Since(start), err)
	if err != nil {
		metrics.RecordStorageOperation("delete", "error")
		return fmt.Errorf("failed to delete object: %w", err)
	}
	metrics.RecordStorageOperation("delete", "success")
	return nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}

// getContentType returns the content type based on file extension
func getContentType(filePath string) string {
	ext := filepath.Ext(filePath)
	switch ext {
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	case ".png":
		return "image/png"
	case ".mp3":
		return "audio/mpeg"
	default:
		return "application/octet-stream"
	}
}
