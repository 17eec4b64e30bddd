package devserver

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig represents the dev server configuration.
type ServerConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	SeedNotesDir string        `yaml:"seed_notes_dir"`
	Users        []SeedUser    `yaml:"users"`
}

// SeedUser is an account created at startup.
type SeedUser struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

const (
	defaultListenAddr = "127.0.0.1:8000"
	defaultTokenTTL   = 7 * 24 * time.Hour
)

// LoadServerConfig loads the server configuration from a YAML file.
func LoadServerConfig(configPath string) (*ServerConfig, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var config ServerConfig
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := config.Normalize(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Normalize fills defaults and checks required values.
func (c *ServerConfig) Normalize() error {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = defaultTokenTTL
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("jwt_secret must be at least 16 characters")
	}
	for i, u := range c.Users {
		if u.Username == "" || u.Password == "" {
			return fmt.Errorf("users[%d]: username and password are required", i)
		}
	}
	return nil
}
