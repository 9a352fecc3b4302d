package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github.com/thunfischtoast/gitlab-visualizer/internal/api"
	"github.com/thunfischtoast/gitlab-visualizer/internal/filter"
)

const (
	// EnvGitLabToken is the environment variable name for the GitLab API token
	EnvGitLabToken = "GLV_GITLAB_TOKEN"

	// EnvGitLabURL is the environment variable name for the GitLab base URL
	EnvGitLabURL = "GLV_GITLAB_URL"

	// DefaultDatabasePath is relative to the config file
	DefaultDatabasePath = "glv.db"

	// DefaultWorkers is the number of projects fetched in parallel
	DefaultWorkers = 5
)

// Config represents the application configuration
type Config struct {
	// Base URL of the GitLab instance (optional, can be set via GLV_GITLAB_URL
	// env var or stored with glv connect)
	GitLabURL string `json:"gitlab_url"`

	// "pat" or "oauth"
	AuthMethod api.AuthMethod `json:"auth_method,omitempty"`

	// GitLab API token (optional, can be set via GLV_GITLAB_TOKEN env var)
	Token string `json:"token"`

	// OAuth refresh token and application id, used with auth_method "oauth"
	RefreshToken string `json:"refresh_token,omitempty"`
	ClientID     string `json:"client_id,omitempty"`

	// Path to the SQLite cache database
	DatabasePath string `json:"database_path"`

	// Scoped-label keys shown in their own filter columns
	EnabledScopedKeys []string `json:"enabled_scoped_keys,omitempty"`

	Workers int `json:"workers,omitempty"`
}

// DefaultPath returns the config file location in the user config directory
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "glv", "config.json"), nil
}

// LoadConfig loads the configuration from a JSON file. Comments and trailing
// commas are allowed.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return loadConfig(path, data)
}

// LoadConfigOrDefault is LoadConfig, except that a missing file yields the
// default configuration as if it had been created at path
func LoadConfigOrDefault(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		data = []byte(defaultConfig)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return loadConfig(path, data)
}

func loadConfig(path string, data []byte) (*Config, error) {
	config, err := parseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyEnv()
	config.applyDefaults()

	// Make database path absolute if it's relative
	if !filepath.IsAbs(config.DatabasePath) {
		configDir := filepath.Dir(path)
		config.DatabasePath = filepath.Join(configDir, config.DatabasePath)
	}

	return config, nil
}

func parseConfig(data []byte) (*Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	var config Config
	if err := json.Unmarshal(standardized, &config); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	if envToken := os.Getenv(EnvGitLabToken); envToken != "" {
		c.Token = envToken
	}
	if envURL := os.Getenv(EnvGitLabURL); envURL != "" {
		c.GitLabURL = envURL
	}
}

func (c *Config) applyDefaults() {
	c.GitLabURL = strings.TrimRight(c.GitLabURL, "/")
	if c.AuthMethod == "" {
		c.AuthMethod = api.AuthPAT
	}
	if c.DatabasePath == "" {
		c.DatabasePath = DefaultDatabasePath
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if len(c.EnabledScopedKeys) == 0 {
		c.EnabledScopedKeys = append([]string(nil), filter.DefaultScopedKeys...)
	}
}

// Validate checks auth_method and the fields it requires
func (c *Config) Validate() error {
	switch c.AuthMethod {
	case api.AuthPAT, api.AuthOAuth:
	default:
		return fmt.Errorf("invalid auth_method %q (want %q or %q)", c.AuthMethod, api.AuthPAT, api.AuthOAuth)
	}
	if c.AuthMethod == api.AuthOAuth && c.RefreshToken != "" && c.ClientID == "" {
		return fmt.Errorf("client_id is required to refresh OAuth tokens")
	}
	return nil
}

// HasConnection reports whether the config names an instance and a token
func (c *Config) HasConnection() bool {
	return c.GitLabURL != "" && c.Token != ""
}

// SaveConfig saves the configuration to a JSON file
func SaveConfig(config *Config, path string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

const defaultConfig = `{
  // Base URL of your GitLab instance. GLV_GITLAB_URL overrides it.
  "gitlab_url": "https://gitlab.com",

  // "pat" for a personal access token, "oauth" for an OAuth access token
  "auth_method": "pat",

  // Needs the read_api scope. Leave empty and set GLV_GITLAB_TOKEN instead
  // to keep the token out of this file, or store it with "glv connect".
  "token": "",

  // Relative paths are resolved against this file's directory
  "database_path": "glv.db",

  "enabled_scoped_keys": ["Partner", "Priority", "State", "Type"],
}
`

// CreateDefaultConfig creates a default configuration file if it doesn't exist
func CreateDefaultConfig(path string) error {
	// Check if the file already exists
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, don't overwrite
	}

	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfig), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
