// Package avatar stores profile images in object storage and hands back
// the public URL used as the avatar reference on comments.
package avatar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"komentar/internal/config"
)

const maxAvatarSize = 2 << 20 // 2 MiB

var (
	ErrStorageUnavailable = errors.New("avatar storage is not configured")
	ErrNotAnImage         = errors.New("avatar must be an image")
	ErrTooLarge           = errors.New("avatar exceeds the size limit")
)

type Service interface {
	Upload(ctx context.Context, fileName string, fileSize int64, mimeType string, reader io.Reader) (string, error)
	Delete(ctx context.Context, avatarURL string) error
}

type service struct {
	minioClient *minio.Client
	cfg         *config.Config
}

func NewService(minioClient *minio.Client, cfg *config.Config) Service {
	return &service{
		minioClient: minioClient,
		cfg:         cfg,
	}
}

func (s *service) Upload(ctx context.Context, fileName string, fileSize int64, mimeType string, reader io.Reader) (string, error) {
	if s.minioClient == nil {
		return "", ErrStorageUnavailable
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "", ErrNotAnImage
	}
	if fileSize > maxAvatarSize {
		return "", ErrTooLarge
	}

	storagePath := fmt.Sprintf("avatars/%s/%s", time.Now().Format("2006/01"), uuid.New().String())
	_, err := s.minioClient.PutObject(ctx, s.cfg.MinIOBucket, storagePath, reader, fileSize, minio.PutObjectOptions{
		ContentType: mimeType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload avatar: %w", err)
	}

	return s.publicURL(storagePath), nil
}

func (s *service) Delete(ctx context.Context, avatarURL string) error {
	if s.minioClient == nil {
		return ErrStorageUnavailable
	}
	parsed, err := url.Parse(avatarURL)
	if err != nil {
		return err
	}
	storagePath := strings.TrimPrefix(parsed.Path, "/"+s.cfg.MinIOBucket+"/")
	return s.minioClient.RemoveObject(ctx, s.cfg.MinIOBucket, storagePath, minio.RemoveObjectOptions{})
}

func (s *service) publicURL(storagePath string) string {
	scheme := "http"
	if s.cfg.MinIOPublicUseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.cfg.MinIOPublicEndpoint, s.cfg.MinIOBucket, storagePath)
}
