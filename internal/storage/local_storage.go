package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/storefront/commerce-backend/pkg/logger"
)

// LocalStorage writes files under root and serves them from
// {baseURL}{mediaPath}. The router mounts root at mediaPath.
type LocalStorage struct {
	root      string
	baseURL   string
	mediaPath string
}

func NewLocalStorage(root, baseURL, mediaPath string) *LocalStorage {
	if !strings.HasPrefix(mediaPath, "/") {
		mediaPath = "/" + mediaPath
	}
	if !strings.HasSuffix(mediaPath, "/") {
		mediaPath += "/"
	}
	return &LocalStorage{
		root:      root,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		mediaPath: mediaPath,
	}
}

func (s *LocalStorage) Root() string      { return s.root }
func (s *LocalStorage) MediaPath() string { return s.mediaPath }

func (s *LocalStorage) Save(_ context.Context, folder, filename, _ string, body io.Reader, _ int64) (string, error) {
	name, err := ObjectName(filename)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, body)
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}

	logger.Info("File stored locally", map[string]interface{}{
		"folder": folder,
		"name":   name,
		"bytes":  written,
	})
	return fmt.Sprintf("%s%s%s/%s", s.baseURL, s.mediaPath, folder, name), nil
}

func (s *LocalStorage) PresignUpload(context.Context, string, string, string) (*PresignedURLResponse, error) {
	return nil, ErrPresignUnsupported
}
