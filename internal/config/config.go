package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type (
	// Config holds configuration settings for the manager
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Shared file area
		FileServerRoot           string
		FileServerBaseURL        string
		BlueprintsFolder         string
		UploadedBlueprintsFolder string

		// Storage & events
		Store            StoreConfig
		ArchiveBucketURL string

		ShutdownTimeout time.Duration
	}

	// StoreConfig holds Redis connection settings for the storage engine
	// and event hub
	StoreConfig struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}
)

const (
	DefaultAPIPort = 8100
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535

	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisDB       = 0
	DefaultRedisPrefix   = "orchestra"

	DefaultFileServerRoot           = "/var/lib/orchestra/resources"
	DefaultBlueprintsFolder         = "blueprints"
	DefaultUploadedBlueprintsFolder = "uploaded-blueprints"

	DefaultShutdownTimeout = 10 * time.Second
)

var (
	ErrInvalidAPIPort       = errors.New("invalid API port")
	ErrMissingFileRoot      = errors.New("file server root must be set")
	ErrMissingFolderName    = errors.New("folder names must be set")
	ErrEqualFolderNames     = errors.New("folder names must differ")
	ErrInvalidShutdownValue = errors.New("shutdown timeout must be positive")
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// API server, file area, and storage
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:  DefaultAPIHost,
		APIPort:  DefaultAPIPort,
		LogLevel: "info",

		FileServerRoot:           DefaultFileServerRoot,
		FileServerBaseURL:        "file://" + DefaultFileServerRoot,
		BlueprintsFolder:         DefaultBlueprintsFolder,
		UploadedBlueprintsFolder: DefaultUploadedBlueprintsFolder,

		Store: StoreConfig{
			Addr:   DefaultRedisEndpoint,
			DB:     DefaultRedisDB,
			Prefix: DefaultRedisPrefix,
		},

		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed
func (c *Config) LoadFromEnv() error {
	if host := os.Getenv("API_HOST"); host != "" {
		c.APIHost = host
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if root := os.Getenv("FILE_SERVER_ROOT"); root != "" {
		c.FileServerRoot = root
		c.FileServerBaseURL = "file://" + root
	}
	if base := os.Getenv("FILE_SERVER_BASE_URL"); base != "" {
		c.FileServerBaseURL = base
	}
	if bucket := os.Getenv("ARCHIVE_BUCKET_URL"); bucket != "" {
		c.ArchiveBucketURL = bucket
	}

	loadStoreConfigFromEnv(&c.Store)

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}

	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}
	if c.FileServerRoot == "" {
		return ErrMissingFileRoot
	}
	if c.BlueprintsFolder == "" || c.UploadedBlueprintsFolder == "" {
		return ErrMissingFolderName
	}
	if c.BlueprintsFolder == c.UploadedBlueprintsFolder {
		return ErrEqualFolderNames
	}
	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownValue
	}
	return nil
}

func loadStoreConfigFromEnv(s *StoreConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		s.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		s.Password = password
	}
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			s.DB = db
		}
	}
	if prefix := os.Getenv("REDIS_PREFIX"); prefix != "" {
		s.Prefix = prefix
	}
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}
