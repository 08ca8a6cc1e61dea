// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ocr-demarcator/internal/paths"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Queue     QueueConfig     `yaml:"queue"`
	API       APIConfig       `yaml:"api"`
	OCR       OCRConfig       `yaml:"ocr"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
}

// QueueConfig describes the spool queues the worker reads from and writes to.
type QueueConfig struct {
	Dir               string        `yaml:"dir"`
	Input             string        `yaml:"input"`
	Output            string        `yaml:"output"`
	BatchSize         int           `yaml:"batch_size"`
	VisibilityTimeout time.Duration `yaml:"visibility_timeout"`
	IdleWait          time.Duration `yaml:"idle_wait"`
}

// APIConfig holds the document service settings.
type APIConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Endpoint      string        `yaml:"endpoint"`
	Key           string        `yaml:"key"`
	KeyHeader     string        `yaml:"key_header"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Skip          bool          `yaml:"skip"`
}

// OCRConfig selects and tunes the page text extractor.
type OCRConfig struct {
	Mode          string        `yaml:"mode"` // auto, text or tesseract
	Workers       int           `yaml:"workers"`
	Language      string        `yaml:"language"`
	DPI           int           `yaml:"dpi"`
	PageTimeout   time.Duration `yaml:"page_timeout"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`
	MinTextLength int           `yaml:"min_text_length"`
}

// ArtifactsConfig controls what is kept on disk for each processed message.
type ArtifactsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Dir      string `yaml:"dir"`
	SplitPDF bool   `yaml:"split_pdf"`
}

// LedgerConfig points at the processed-message database.
type LedgerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogConfig sets the observability level.
type LogConfig struct {
	Level  string `yaml:"level"` // off, info or debug
	Format string `yaml:"format"`
}

// ServerConfig configures the HTTP intake server.
type ServerConfig struct {
	Listen         string `yaml:"listen"`
	MaxConnections int    `yaml:"max_connections"`
}

// OCR modes.
const (
	ModeAuto      = "auto"
	ModeText      = "text"
	ModeTesseract = "tesseract"
)

// Defaults returns the built-in configuration.
func Defaults() *Config {
	dataDir := paths.GetDataDir()

	config := &Config{}

	config.Queue.Dir = filepath.Join(dataDir, "queues")
	config.Queue.Input = "ocrinputqueue"
	config.Queue.Output = "ocrresponsequeue"
	config.Queue.BatchSize = 5
	config.Queue.VisibilityTimeout = 300 * time.Second
	config.Queue.IdleWait = 30 * time.Second

	config.API.BaseURL = "http://localhost:8080/api/"
	config.API.Endpoint = "Document/InsertOcrDocument"
	config.API.KeyHeader = "x-api-key"
	config.API.Timeout = 60 * time.Second
	config.API.RatePerSecond = 5

	config.OCR.Mode = ModeAuto
	config.OCR.Workers = 10
	config.OCR.Language = "eng"
	config.OCR.DPI = 300
	config.OCR.PageTimeout = 120 * time.Second
	config.OCR.FetchTimeout = 60 * time.Second
	config.OCR.MinTextLength = 16

	config.Artifacts.Enabled = true
	config.Artifacts.Dir = "artifacts"

	config.Ledger.Enabled = true
	config.Ledger.Path = filepath.Join(dataDir, "ledger.db")

	config.Log.Level = "info"
	config.Log.Format = "json"

	config.Server.Listen = "127.0.0.1:8090"
	config.Server.MaxConnections = 64

	return config
}

// LoadConfig loads configuration from the specified file path, then applies
// environment overrides. An empty path yields the defaults plus environment.
func LoadConfig(configPath string) (*Config, error) {
	config := Defaults()

	if configPath != "" {
		cleanPath := filepath.Clean(configPath)
		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := ApplyEnv(config, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("error applying environment: %w", err)
	}

	ApplyPlatformDefaults(config)

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays the environment variables the service has always been
// configured with onto config.
func ApplyEnv(config *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("QUEUE_DIR", &config.Queue.Dir)
	str("INPUT_QUEUE_NAME", &config.Queue.Input)
	str("CLASSIFICATION_QUEUE_NAME", &config.Queue.Output)
	str("API_URL", &config.API.BaseURL)
	str("API_KEY", &config.API.Key)
	str("ARTIFACTS_DIR", &config.Artifacts.Dir)
	str("LEDGER_PATH", &config.Ledger.Path)

	if v, ok := lookup("LOG_LEVEL"); ok && strings.TrimSpace(v) != "" {
		config.Log.Level = strings.ToLower(strings.TrimSpace(v))
	}

	if err := integer("MAX_WORKERS", &config.OCR.Workers); err != nil {
		return err
	}

	// seconds
	timeout := 0
	if err := integer("TESSERACT_TIMEOUT", &timeout); err != nil {
		return err
	}
	if timeout > 0 {
		config.OCR.PageTimeout = time.Duration(timeout) * time.Second
	}

	if v, ok := lookup("SKIP_API_CALL"); ok {
		config.API.Skip = strings.EqualFold(strings.TrimSpace(v), "true")
	}

	return nil
}

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile() string {
	for _, name := range []string{"demarcator.yaml", "demarcator.yml", "config.yaml", ".demarcator.yaml"} {
		if fileExists(name) {
			return name
		}
	}

	standardConfig := paths.GetConfigFile()
	if fileExists(standardConfig) {
		return standardConfig
	}

	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	switch config.OCR.Mode {
	case ModeAuto, ModeText, ModeTesseract:
	default:
		return fmt.Errorf("unknown ocr mode %q (want auto, text or tesseract)", config.OCR.Mode)
	}

	switch config.Log.Level {
	case "off", "info", "debug":
	default:
		return fmt.Errorf("unknown log level %q (want off, info or debug)", config.Log.Level)
	}

	if config.OCR.Workers < 1 {
		return fmt.Errorf("ocr.workers must be at least 1, got %d", config.OCR.Workers)
	}
	if config.Queue.BatchSize < 1 {
		return fmt.Errorf("queue.batch_size must be at least 1, got %d", config.Queue.BatchSize)
	}
	if config.Queue.Input == "" || config.Queue.Output == "" {
		return fmt.Errorf("queue.input and queue.output are required")
	}
	if !config.API.Skip && config.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required unless api.skip is set")
	}
	if config.API.RatePerSecond < 0 {
		return fmt.Errorf("api.rate_per_second cannot be negative")
	}

	if err := validateConfigPaths(config); err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}

	return nil
}

// validateConfigPaths validates all paths in the configuration
func validateConfigPaths(config *Config) error {
	checks := map[string]string{
		"queue.dir":     config.Queue.Dir,
		"artifacts.dir": config.Artifacts.Dir,
		"ledger.path":   config.Ledger.Path,
	}
	for name, path := range checks {
		if err := paths.ValidatePath(path); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

// ApplyPlatformDefaults normalizes the paths in the configuration
func ApplyPlatformDefaults(config *Config) {
	if config == nil {
		return
	}
	config.Queue.Dir = paths.NormalizePath(config.Queue.Dir)
	config.Artifacts.Dir = paths.NormalizePath(config.Artifacts.Dir)
	config.Ledger.Path = paths.NormalizePath(config.Ledger.Path)
}

// APIURL joins the base url and the insert endpoint.
func (c *Config) APIURL() string {
	return strings.TrimRight(c.API.BaseURL, "/") + "/" + strings.TrimLeft(c.API.Endpoint, "/")
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard locations
// when configFile is empty). If loading fails, it returns a default configuration.
// This is the shared helper used by both the CLI and the web server.
func LoadConfigOrDefault(configFile string) *Config {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		cfg, err = LoadConfig("")
		if err != nil {
			cfg = Defaults()
		}
	}
	return cfg
}
