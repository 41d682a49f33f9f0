package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	DefaultBasePath   = "./public/uploads"
	DefaultPublicPath = "/uploads"
)

// LocalStorage implements Storage on the local filesystem. The files are
// expected to be served statically under publicPath.
type LocalStorage struct {
	basePath   string
	publicPath string
	baseURL    string
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(cfg Config) (*LocalStorage, error) {
	if cfg.BasePath == "" {
		cfg.BasePath = DefaultBasePath
	}
	if cfg.PublicPath == "" {
		cfg.PublicPath = DefaultPublicPath
	}

	// Create base directory if it doesn't exist
	if err := os.MkdirAll(cfg.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath:   cfg.BasePath,
		publicPath: cfg.PublicPath,
		baseURL:    cfg.BaseURL,
	}, nil
}

// BasePath is the directory holding the stored files.
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

// PublicPath is the URL path prefix the files are served under.
func (s *LocalStorage) PublicPath() string {
	return s.publicPath
}

func (s *LocalStorage) Save(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	fullPath := filepath.Join(s.basePath, key)

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		_ = os.Remove(fullPath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(fullPath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.basePath, key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalStorage) GetURL(key string) string {
	if s.baseURL == "" {
		return joinURL(s.publicPath, key)
	}
	return joinURL(s.baseURL, key)
}
