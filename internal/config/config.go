// Package config provides configuration loading and structs for the banshi server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/banshi/internal/ranking"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool                  `yaml:"debug"`
	Server  ServerConfig          `yaml:"server"`
	Storage StorageConfig         `yaml:"storage"`
	Catalog CatalogConfig         `yaml:"catalog"`
	Intent  IntentConfig          `yaml:"intent"`
	Search  SearchConfig          `yaml:"search"`
	Ranking ranking.RankingConfig `yaml:"ranking"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the catalog database path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// CatalogConfig holds catalog source settings.
type CatalogConfig struct {
	// Path is an optional csv/xlsx file loaded at startup.
	Path string `yaml:"path"`
	// Watch reloads Path when it changes.
	Watch *bool `yaml:"watch"`
	// SeedDefault installs the demonstration catalog when nothing else is available.
	SeedDefault *bool `yaml:"seed_default"`
}

// WatchOrDefault returns whether to watch the catalog file; defaults to true when a path is set.
func (c *CatalogConfig) WatchOrDefault() bool {
	if c.Watch != nil {
		return *c.Watch
	}
	return c.Path != ""
}

// SeedDefaultOrDefault returns whether to seed the demonstration catalog; defaults to true.
func (c *CatalogConfig) SeedDefaultOrDefault() bool {
	if c.SeedDefault != nil {
		return *c.SeedDefault
	}
	return true
}

// IntentConfig holds the language-model classifier settings.
type IntentConfig struct {
	APIURL       string `yaml:"api_url"`
	APIKey       string `yaml:"api_key"`
	Model        string `yaml:"model"`
	TimeoutSec   int    `yaml:"timeout_sec"`
	AdoptContext *bool  `yaml:"adopt_context"`
}

// Timeout returns the per-call timeout.
func (c *IntentConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// AdoptContextOrDefault returns whether detected applicant and location fill
// unset context fields; defaults to true.
func (c *IntentConfig) AdoptContextOrDefault() bool {
	if c.AdoptContext != nil {
		return *c.AdoptContext
	}
	return true
}

// SearchConfig holds search turn settings.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
	// ParallelThreshold is the catalog size above which scoring runs on the worker pool.
	ParallelThreshold int `yaml:"parallel_threshold"`
	Workers           int `yaml:"workers"`
	// SessionCapacity bounds the number of tracked client sessions.
	SessionCapacity int `yaml:"session_capacity"`
}

// Load reads and parses the config file at path, expands environment variables
// and paths, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expandEnvVars(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Catalog.Path != "" {
		cfg.Catalog.Path = expandPath(cfg.Catalog.Path, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		errs = append(errs, fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)",
			c.Search.DefaultLimit, c.Search.MaxLimit))
	}
	if c.Search.Workers < 1 {
		errs = append(errs, fmt.Errorf("search.workers must be positive, got %d", c.Search.Workers))
	}
	if c.Intent.TimeoutSec < 0 {
		errs = append(errs, fmt.Errorf("intent.timeout_sec cannot be negative"))
	}
	if t := c.Ranking.CoverageThreshold; t < 0 || t >= 1 {
		errs = append(errs, fmt.Errorf("ranking.coverage_threshold must be in [0, 1), got %v", t))
	}
	if c.Ranking.ResultCap < 1 {
		errs = append(errs, fmt.Errorf("ranking.result_cap must be positive, got %d", c.Ranking.ResultCap))
	}
	return errors.Join(errs...)
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		name, def, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(name)
		if val == "" && hasDefault {
			val = def
		}
		return []byte(val)
	})
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
