package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigFailed marks any problem reading or parsing config.yaml.
var ErrConfigFailed = errors.New("config: failed to load")

const (
	// EnvAPIBaseURL overrides api_base_url.
	EnvAPIBaseURL = "NOOTE_API_BASE_URL"
	// EnvHome overrides the app directory.
	EnvHome = "NOOTE_HOME"

	DefaultAPIBaseURL     = "http://localhost:8000/api/v1"
	DefaultRequestTimeout = 15 * time.Second
	DefaultRedisKey       = "noote:token"
)

// Token store backends.
const (
	TokenBackendFile   = "file"
	TokenBackendRedis  = "redis"
	TokenBackendMemory = "memory"
)

// Config holds user settings and derived paths.
type Config struct {
	APIBaseURL     string        `yaml:"api_base_url"`
	TokenBackend   string        `yaml:"token_backend"`
	TokenFile      string        `yaml:"token_file"`
	RedisURL       string        `yaml:"redis_url"`
	RedisKey       string        `yaml:"redis_key"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	LogLevel       string        `yaml:"log_level"`
	LogFile        string        `yaml:"log_file"`

	AppDir string `yaml:"-"`
}

// Error carries the path of the config that failed to load.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ErrConfigFailed.Error()
	}
	return fmt.Sprintf("%v: %s: %v", ErrConfigFailed, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is match ErrConfigFailed.
func (e *Error) Is(target error) bool {
	return target == ErrConfigFailed
}

// DetectAppDir returns $NOOTE_HOME or <user config dir>/noote.
func DetectAppDir() (string, error) {
	if home := strings.TrimSpace(os.Getenv(EnvHome)); home != "" {
		return filepath.Clean(home), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("detect user config dir: %w", err)
	}
	return filepath.Join(base, "noote"), nil
}

// DefaultPath returns config.yaml inside appDir.
func DefaultPath(appDir string) string {
	return filepath.Join(appDir, "config.yaml")
}

// Default returns the configuration used when no file exists.
func Default(appDir string) *Config {
	cfg := &Config{AppDir: appDir}
	cfg.applyDefaults()
	cfg.applyEnv()
	cfg.applyAppDir()
	return cfg
}

// Load reads and validates the YAML config. A missing file yields defaults.
// Relative paths are resolved against appDir.
func Load(path string, appDir string) (*Config, error) {
	if path == "" {
		return nil, &Error{Path: path, Err: errors.New("config path is empty")}
	}
	if appDir == "" {
		return nil, &Error{Path: path, Err: errors.New("app directory is empty")}
	}
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, &Error{Path: path, Err: err}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, &Error{Path: path, Err: err}
		}
	}
	cfg.AppDir = appDir
	cfg.applyDefaults()
	cfg.applyEnv()
	cfg.applyAppDir()
	if err := cfg.validate(); err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	if err := cfg.ensureDirectories(); err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	c.APIBaseURL = strings.TrimSpace(c.APIBaseURL)
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	c.TokenBackend = strings.TrimSpace(strings.ToLower(c.TokenBackend))
	if c.TokenBackend == "" {
		c.TokenBackend = TokenBackendFile
	}
	if c.TokenFile == "" {
		c.TokenFile = "token.json"
	}
	if c.RedisKey == "" {
		c.RedisKey = DefaultRedisKey
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	c.LogLevel = normalizeLogLevel(c.LogLevel)
	if c.LogFile == "" {
		c.LogFile = filepath.Join("logs", "noote.log")
	}
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIBaseURL)); v != "" {
		c.APIBaseURL = v
	}
}

func (c *Config) applyAppDir() {
	if c.AppDir == "" {
		return
	}
	c.AppDir = filepath.Clean(c.AppDir)
	c.TokenFile = makeAbsolute(c.TokenFile, c.AppDir)
	c.LogFile = makeAbsolute(c.LogFile, c.AppDir)
}

func (c *Config) validate() error {
	parsed, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("api_base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("api_base_url must be http(s), got %q", c.APIBaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("api_base_url has no host: %q", c.APIBaseURL)
	}
	switch c.TokenBackend {
	case TokenBackendFile, TokenBackendMemory:
	case TokenBackendRedis:
		if strings.TrimSpace(c.RedisURL) == "" {
			return errors.New("redis_url is required for token_backend redis")
		}
	default:
		return fmt.Errorf("unsupported token_backend %q", c.TokenBackend)
	}
	if _, ok := allowedLevels[c.LogLevel]; !ok {
		return fmt.Errorf("unsupported log_level %q", c.LogLevel)
	}
	return nil
}

func (c *Config) ensureDirectories() error {
	paths := []string{filepath.Dir(c.LogFile)}
	if c.TokenBackend == TokenBackendFile {
		paths = append(paths, filepath.Dir(c.TokenFile))
	}
	for _, dir := range paths {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func makeAbsolute(path string, base string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	if base == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}

func normalizeLogLevel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "info"
	}
	return value
}

var allowedLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"error": {},
}
