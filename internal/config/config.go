// Package config provides configuration loading and management for the pipeline.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment variables used by the pipeline.
const EnvPrefix = "NEWS_WEAVER"

const (
	defaultProcessSchedule = "*/5 * * * *"
	defaultBatchLimit      = 50
	defaultMaxRetries      = 3
	defaultFetchTimeout    = 30 * time.Second
	defaultSinkTimeout     = 10 * time.Second
	defaultSinkMaxAttempts = 3
	defaultLockPath        = "/tmp/news-weaver-schedule.lock"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// Storage configures where raw fetched payloads are kept
	Storage StorageConfig `yaml:"storage"`

	// Database is the pipeline database (sources + artifacts)
	Database *DatabaseConfig `yaml:"database"`

	// Sink is the downstream storage API that receives processed content
	Sink SinkConfig `yaml:"sink"`

	// Schedule configures crontab synchronization
	Schedule ScheduleConfig `yaml:"schedule"`

	// Fetch configures content fetching
	Fetch FetchConfig `yaml:"fetch,omitempty"`

	// Processing configures the processing worker
	Processing ProcessingConfig `yaml:"processing,omitempty"`

	// path is the resolved path this config was loaded from. It is embedded
	// in generated crontab entries so worker invocations find the same config.
	path string
}

// StorageConfig defines where scraped payloads are stored
type StorageConfig struct {
	// DataDir is the directory where raw fetched files are written
	DataDir string `yaml:"dataDir"`
}

// DatabaseConfig defines the PostgreSQL connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password.
	// The file should contain only the password with optional trailing whitespace.
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxConns is the maximum number of open connections to the database
	MaxConns int32 `yaml:"maxConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// SinkConfig defines the downstream storage API settings
type SinkConfig struct {
	// BaseURL is the base URL of the storage API (e.g., "http://localhost:8000")
	BaseURL string `yaml:"baseURL"`

	// APIKeyFile is the path to a file containing the shared API key.
	// Falls back to the NEWS_WEAVER_SINK_API_KEY environment variable.
	APIKeyFile string `yaml:"apiKeyFile,omitempty"`

	// Timeout is the per-request timeout (e.g., "10s")
	Timeout string `yaml:"timeout,omitempty"`

	// MaxAttempts is the number of delivery attempts per artifact
	MaxAttempts int `yaml:"maxAttempts,omitempty"`
}

// ScheduleConfig defines crontab synchronization settings
type ScheduleConfig struct {
	// BinaryPath is the absolute path of the news-weaver binary invoked
	// from generated crontab entries. Defaults to the running executable.
	BinaryPath string `yaml:"binaryPath,omitempty"`

	// ProcessSchedule is the cron expression for the processing worker entry
	ProcessSchedule string `yaml:"processSchedule,omitempty"`

	// LockPath is the advisory lock file serializing synchronize runs
	LockPath string `yaml:"lockPath,omitempty"`
}

// FetchConfig defines content fetching settings
type FetchConfig struct {
	// Timeout is the per-fetch timeout (e.g., "30s")
	Timeout string `yaml:"timeout,omitempty"`

	// UserAgent overrides the default User-Agent header
	UserAgent string `yaml:"userAgent,omitempty"`
}

// ProcessingConfig defines processing worker settings
type ProcessingConfig struct {
	// BatchLimit is the default maximum number of artifacts per run
	BatchLimit int `yaml:"batchLimit,omitempty"`

	// MaxRetries bounds how many times a failed artifact is reprocessed
	MaxRetries int `yaml:"maxRetries,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from NEWS_WEAVER_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		cleanPath := filepath.Clean(d.PasswordFile)
		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if password := os.Getenv(EnvPrefix + "_DATABASE_PASSWORD"); password != "" {
		return password, nil
	}

	return "", fmt.Errorf("database password not configured: set passwordFile or %s_DATABASE_PASSWORD", EnvPrefix)
}

// GetConnectionString builds a PostgreSQL connection string from the configuration
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	// URL-escape the password to handle special characters
	escapedPassword := url.QueryEscape(password)

	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		escapedPassword,
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)

	return connString, nil
}

// GetAPIKey returns the sink API key from the configured file or from the
// NEWS_WEAVER_SINK_API_KEY environment variable.
func (s *SinkConfig) GetAPIKey() (string, error) {
	if s.APIKeyFile != "" {
		cleanPath := filepath.Clean(s.APIKeyFile)
		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read API key file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if key := os.Getenv(EnvPrefix + "_SINK_API_KEY"); key != "" {
		return key, nil
	}

	return "", fmt.Errorf("sink API key not configured: set apiKeyFile or %s_SINK_API_KEY", EnvPrefix)
}

// GetTimeout returns the sink request timeout, or the default when unset
func (s *SinkConfig) GetTimeout() time.Duration {
	return parseDurationOrDefault(s.Timeout, defaultSinkTimeout)
}

// GetMaxAttempts returns the sink delivery attempt bound, or the default when unset
func (s *SinkConfig) GetMaxAttempts() int {
	if s.MaxAttempts <= 0 {
		return defaultSinkMaxAttempts
	}
	return s.MaxAttempts
}

// GetTimeout returns the fetch timeout, or the default when unset
func (f *FetchConfig) GetTimeout() time.Duration {
	return parseDurationOrDefault(f.Timeout, defaultFetchTimeout)
}

// GetProcessSchedule returns the processing worker cron expression
func (s *ScheduleConfig) GetProcessSchedule() string {
	if s.ProcessSchedule == "" {
		return defaultProcessSchedule
	}
	return s.ProcessSchedule
}

// GetLockPath returns the advisory lock file path
func (s *ScheduleConfig) GetLockPath() string {
	if s.LockPath == "" {
		return defaultLockPath
	}
	return s.LockPath
}

// GetBinaryPath returns the configured binary path, falling back to the
// running executable.
func (s *ScheduleConfig) GetBinaryPath() (string, error) {
	if s.BinaryPath != "" {
		return s.BinaryPath, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable path: %w", err)
	}
	return exe, nil
}

// GetBatchLimit returns the batch limit, or the default when unset
func (p *ProcessingConfig) GetBatchLimit() int {
	if p.BatchLimit <= 0 {
		return defaultBatchLimit
	}
	return p.BatchLimit
}

// GetMaxRetries returns the retry bound, or the default when unset
func (p *ProcessingConfig) GetMaxRetries() int {
	if p.MaxRetries <= 0 {
		return defaultMaxRetries
	}
	return p.MaxRetries
}

// Path returns the resolved path this configuration was loaded from
func (c *Config) Path() string {
	return c.path
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	config.path = loaderCfg.path

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.dataDir is required")
	}

	if c.Database == nil {
		return fmt.Errorf("database configuration is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("database.port must be between 1 and 65535, got %d", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database.database is required")
	}

	if c.Sink.BaseURL != "" {
		parsed, err := url.Parse(c.Sink.BaseURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("sink.baseURL must be a valid http(s) URL, got %q", c.Sink.BaseURL)
		}
	}

	if _, err := cron.ParseStandard(c.Schedule.GetProcessSchedule()); err != nil {
		return fmt.Errorf("schedule.processSchedule is not a valid cron expression: %w", err)
	}

	for name, raw := range map[string]string{
		"sink.timeout":  c.Sink.Timeout,
		"fetch.timeout": c.Fetch.Timeout,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("%s is not a valid duration: %w", name, err)
		}
	}

	return nil
}

func parseDurationOrDefault(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
