package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidKey is returned for keys that could escape the storage root.
var ErrInvalidKey = errors.New("invalid storage key")

const (
	TypeLocal = "local"
	TypeS3    = "s3"
)

// Storage holds the raw bytes of uploaded files.
type Storage interface {
	// Save stores the content of reader under key
	Save(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// GetURL returns the public URL of key
	GetURL(key string) string
}

// Config holds storage configuration
type Config struct {
	Type       string `yaml:"type" validate:"omitempty,oneof=local s3"`
	BasePath   string `yaml:"basePath"`   // local: directory holding the files
	PublicPath string `yaml:"publicPath"` // local: URL path the files are served under
	BaseURL    string `yaml:"baseURL"`    // public URL base, overrides the default URL scheme
	Endpoint   string `yaml:"endpoint"`   // s3: service URL
	Region     string `yaml:"region"`     // s3
	Bucket     string `yaml:"bucket"`     // s3
	AccessKey  string `yaml:"accessKey"`  // s3
	SecretKey  string `yaml:"secretKey"`  // s3
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg Config) (Storage, error) {
	switch cfg.Type {
	case TypeLocal, "":
		return NewLocalStorage(cfg)
	case TypeS3:
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// ValidateKey rejects empty keys and keys containing path elements.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." ||
		strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
