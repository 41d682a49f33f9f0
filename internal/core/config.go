package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator"
	"github.com/jo-hoe/goportfolio/internal/backend/database"
	"github.com/jo-hoe/goportfolio/internal/backend/storage"
	"github.com/labstack/gommon/bytes"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort          = 3000
	DefaultMaxUploadSize = "200MiB"

	BufferMemory = "memory"
	BufferDisk   = "disk"
)

type Database struct {
	Type             string `yaml:"type" validate:"oneof=json sqlite redis postgres"`
	ConnectionString string `yaml:"connectionString"`
}

type SiteConfig struct {
	Title   string   `yaml:"title"`
	Tagline string   `yaml:"tagline"`
	Skills  []string `yaml:"skills"`
}

type AuthConfig struct {
	// AdminKey is compared verbatim with the x-admin-key request header.
	AdminKey              string `yaml:"adminKey"`
	RequireAdminForUpload bool   `yaml:"requireAdminForUpload"`
}

type UploadConfig struct {
	MaxSize string `yaml:"maxSize"`
	Buffer  string `yaml:"buffer" validate:"oneof=memory disk"`
	TempDir string `yaml:"tempDir"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

type ServiceConfig struct {
	Port     int            `yaml:"port" validate:"min=1,max=65535"`
	Site     SiteConfig     `yaml:"site"`
	Auth     AuthConfig     `yaml:"auth"`
	Database Database       `yaml:"database"`
	Storage  storage.Config `yaml:"storage"`
	Upload   UploadConfig   `yaml:"upload"`
	Log      LogConfig      `yaml:"log"`
}

// DefaultConfig is a local setup: JSON metadata file plus files on disk.
func DefaultConfig() *ServiceConfig {
	return &ServiceConfig{
		Port: DefaultPort,
		Site: SiteConfig{
			Title: "Portfolio",
		},
		Database: Database{
			Type:             database.TypeJSON,
			ConnectionString: "./data/portfolio.json",
		},
		Storage: storage.Config{
			Type:       storage.TypeLocal,
			BasePath:   storage.DefaultBasePath,
			PublicPath: storage.DefaultPublicPath,
		},
		Upload: UploadConfig{
			MaxSize: DefaultMaxUploadSize,
			Buffer:  BufferDisk,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from the specified YAML file and applies
// environment overrides
func LoadConfig(configPath string) (*ServiceConfig, error) {
	return LoadConfigWithEnv(configPath, os.LookupEnv)
}

// LoadConfigWithEnv is LoadConfig with an injectable environment. An empty
// configPath skips the file and starts from DefaultConfig.
func LoadConfigWithEnv(configPath string, lookupEnv func(string) (string, bool)) (*ServiceConfig, error) {
	config := DefaultConfig()

	if configPath != "" {
		// Read the config file
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}

		// Parse YAML over the defaults
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	if err := applyEnv(config, lookupEnv); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// ConfigFileExists reports whether path names a readable regular file.
func ConfigFileExists(path string) bool {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) || err != nil {
		return false
	}
	return !info.IsDir()
}

func applyEnv(config *ServiceConfig, lookupEnv func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		value, ok := lookupEnv(key)
		if !ok {
			return "", false
		}
		value = strings.TrimSpace(value)
		return value, value != ""
	}

	if value, ok := get("PORT"); ok {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", value, err)
		}
		config.Port = port
	}
	if value, ok := lookupEnv("ADMIN_KEY"); ok {
		// taken verbatim, the comparison is exact
		config.Auth.AdminKey = value
	}
	if value, ok := get("DATABASE_TYPE"); ok {
		config.Database.Type = value
	}
	if value, ok := get("DATABASE_CONNECTION"); ok {
		config.Database.ConnectionString = value
	}
	if value, ok := get("REDIS_ADDR"); ok && config.Database.Type == database.TypeRedis {
		config.Database.ConnectionString = value
	}
	if value, ok := get("STORAGE_TYPE"); ok {
		config.Storage.Type = value
	}
	if value, ok := get("STORAGE_URL"); ok {
		config.Storage.Endpoint = value
	}
	if value, ok := get("STORAGE_BUCKET"); ok {
		config.Storage.Bucket = value
	}
	if value, ok := get("STORAGE_KEY"); ok {
		config.Storage.AccessKey = value
	}
	if value, ok := get("STORAGE_SECRET"); ok {
		config.Storage.SecretKey = value
	}
	if value, ok := get("STORAGE_PUBLIC_URL"); ok {
		config.Storage.BaseURL = value
	}
	if value, ok := get("LOG_LEVEL"); ok {
		config.Log.Level = value
	}
	if value, ok := get("LOG_FORMAT"); ok {
		config.Log.Format = value
	}
	return nil
}

// Validate checks the field constraints and the rules spanning fields.
func (config *ServiceConfig) Validate() error {
	if err := validator.New().Struct(config); err != nil {
		return err
	}

	switch config.Storage.Type {
	case storage.TypeS3:
		if config.Storage.Endpoint == "" || config.Storage.Bucket == "" {
			return errors.New("s3 storage requires an endpoint url and a bucket")
		}
		if config.Storage.AccessKey == "" || config.Storage.SecretKey == "" {
			return errors.New("s3 storage requires an access key and a secret key")
		}
	case storage.TypeLocal, "":
	default:
		return fmt.Errorf("unsupported storage type: %s", config.Storage.Type)
	}

	// same parser as echo's body limit middleware
	if size, err := bytes.Parse(config.Upload.MaxSize); err != nil || size <= 0 {
		return fmt.Errorf("invalid upload max size %q", config.Upload.MaxSize)
	}

	if config.Database.ConnectionString == "" {
		return fmt.Errorf("database %s requires a connection string", config.Database.Type)
	}

	return validateSkills(config.Site.Skills)
}

// validateSkills ensures skills are non-empty and unique
func validateSkills(skills []string) error {
	seen := make(map[string]bool)

	for i, skill := range skills {
		name := strings.TrimSpace(skill)
		// Validate name is not empty
		if name == "" {
			return fmt.Errorf("skill at index %d is empty", i)
		}

		// Validate name is unique
		key := strings.ToLower(name)
		if seen[key] {
			return fmt.Errorf("duplicate skill: %s", name)
		}
		seen[key] = true
	}

	return nil
}
