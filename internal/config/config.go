package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

type Config struct {
	Backend BackendConfig
	Client  ClientConfig
}

type BackendConfig struct {
	// BaseURL is the REST origin; the websocket scheme is derived from it.
	BaseURL string
	Timeout time.Duration
}

type ClientConfig struct {
	// DataDir holds the local store (tokens, profile, reaction ledgers).
	DataDir     string
	FrontendURL string
}

// fileConfig mirrors the optional YAML config file.
type fileConfig struct {
	BackendURL  string `yaml:"backend_url"`
	FrontendURL string `yaml:"frontend_url"`
	DataDir     string `yaml:"data_dir"`
	Timeout     string `yaml:"timeout"`
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatc.yaml"
	}
	return filepath.Join(home, ".chatc.yaml")
}

// Load reads the YAML config file at path (skipped when absent) and applies
// environment overrides on top. A missing file is not an error.
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Backend: BackendConfig{
			BaseURL: "http://127.0.0.1:8000",
			Timeout: 15 * time.Second,
		},
		Client: ClientConfig{
			DataDir: defaultDataDir(),
		},
	}

	if path == "" {
		path = DefaultPath()
	}
	if data, err := os.ReadFile(path); err == nil {
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		applyFile(cfg, &fc)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if v := os.Getenv("CHAT_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("CHAT_FRONTEND_URL"); v != "" {
		cfg.Client.FrontendURL = v
	}
	if v := os.Getenv("CHAT_DATA_DIR"); v != "" {
		cfg.Client.DataDir = v
	}
	if v := os.Getenv("CHAT_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid duration for CHAT_REQUEST_TIMEOUT: %w", err)
		}
		cfg.Backend.Timeout = d
	}

	if cfg.Client.FrontendURL == "" {
		cfg.Client.FrontendURL = cfg.Backend.BaseURL
	}
	return cfg, nil
}

func applyFile(cfg *Config, fc *fileConfig) {
	if fc.BackendURL != "" {
		cfg.Backend.BaseURL = fc.BackendURL
	}
	if fc.FrontendURL != "" {
		cfg.Client.FrontendURL = fc.FrontendURL
	}
	if fc.DataDir != "" {
		cfg.Client.DataDir = fc.DataDir
	}
	if fc.Timeout != "" {
		if d, err := time.ParseDuration(fc.Timeout); err == nil {
			cfg.Backend.Timeout = d
		}
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatc"
	}
	return filepath.Join(home, ".chatc")
}
