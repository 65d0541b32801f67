package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/storefront/commerce-backend/config"
	"github.com/storefront/commerce-backend/pkg/util"
)

var (
	ErrFileTooLarge          = errors.New("file exceeds the maximum allowed size")
	ErrContentTypeNotAllowed = errors.New("content type is not allowed")
	ErrInvalidFolder         = errors.New("invalid upload folder")
	ErrPresignUnsupported    = errors.New("storage driver does not support presigned uploads")
)

// AllowedContentTypes are accepted for item images, business logos and
// KYC documents.
var AllowedContentTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/gif",
	"application/pdf",
}

// BlobStore persists an uploaded file and returns its public URL.
type BlobStore interface {
	Save(ctx context.Context, folder, filename, contentType string, body io.Reader, size int64) (string, error)
	PresignUpload(ctx context.Context, folder, filename, contentType string) (*PresignedURLResponse, error)
}

type PresignedURLResponse struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
	Key       string `json:"key"`
}

// New builds the store selected by cfg.Storage.Driver.
func New(cfg *config.Config) (BlobStore, error) {
	switch cfg.Storage.Driver {
	case "", "local":
		return NewLocalStorage(cfg.Storage.MediaRoot, cfg.Storage.BaseURL, cfg.Storage.MediaPath), nil
	case "s3":
		return NewS3Storage(cfg.S3.Region, cfg.S3.Bucket, cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, cfg.S3.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// ObjectName derives a collision-resistant name: the slugified base name,
// eight random hex characters and the original extension.
func ObjectName(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	base := util.Slugify(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = "file"
	}

	suffix, err := util.RandomHex(4)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s%s", base, suffix, ext), nil
}

// CleanFolder accepts a single slug-like path segment.
func CleanFolder(folder string) (string, error) {
	if folder == "" {
		return "uploads", nil
	}
	cleaned := util.Slugify(folder)
	if cleaned == "" || cleaned != strings.ToLower(folder) {
		return "", ErrInvalidFolder
	}
	return cleaned, nil
}

func ValidateFileSize(size, maxSize int64) error {
	if size > maxSize {
		return fmt.Errorf("%w: limit %d bytes", ErrFileTooLarge, maxSize)
	}
	return nil
}

func ValidateContentType(contentType string, allowedTypes []string) error {
	for _, allowed := range allowedTypes {
		if contentType == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrContentTypeNotAllowed, contentType)
}
